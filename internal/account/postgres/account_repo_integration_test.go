//go:build integration

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

package postgres_test

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/acctpool/acctpool/internal/account"
	accountpg "github.com/acctpool/acctpool/internal/account/postgres"
	"github.com/acctpool/acctpool/internal/store"
)

// setupRepository starts a PostgreSQL container, migrates it, and returns a
// repository backed by it.
func setupRepository() (*accountpg.AccountRepository, *pgxpool.Pool, func(), error) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("acctpool_test"),
		tcpostgres.WithUsername("acctpool"),
		tcpostgres.WithPassword("acctpool"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, nil, nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := migrator.Up(); err != nil {
		return nil, nil, nil, err
	}
	_ = migrator.Close()

	pool, err := store.Connect(ctx, connStr)
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}

	return accountpg.NewAccountRepository(pool), pool, cleanup, nil
}

func freeAccount(login string) *account.Account {
	return &account.Account{
		ID:             ulid.Make(),
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
		Login:          login,
		CredentialHash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$a2V5",
		ProjectID:      ulid.Make(),
		Environment:    account.EnvStage,
		DomainType:     account.DomainRegular,
	}
}

var _ = Describe("AccountRepository", func() {
	var (
		repo    *accountpg.AccountRepository
		cleanup func()
	)

	BeforeEach(func() {
		var err error
		repo, _, cleanup, err = setupRepository()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cleanup()
	})

	Describe("Create", func() {
		It("round-trips an account through both lookups", func() {
			ctx := context.Background()
			acct := freeAccount("runner@example.com")

			Expect(repo.Create(ctx, acct)).To(Succeed())

			byID, err := repo.GetByID(ctx, acct.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(byID.Login).To(Equal(acct.Login))
			Expect(byID.LockTime).To(BeNil())

			byLogin, err := repo.GetByLogin(ctx, acct.Login)
			Expect(err).NotTo(HaveOccurred())
			Expect(byLogin.ID).To(Equal(acct.ID))
		})

		It("rejects a duplicate login", func() {
			ctx := context.Background()
			first := freeAccount("runner@example.com")
			second := freeAccount("runner@example.com")

			Expect(repo.Create(ctx, first)).To(Succeed())
			err := repo.Create(ctx, second)
			Expect(err).To(MatchError(account.ErrLoginTaken))
		})
	})

	Describe("AcquireLock", func() {
		It("locks a free account and rejects a second acquire", func() {
			ctx := context.Background()
			acct := freeAccount("runner@example.com")
			Expect(repo.Create(ctx, acct)).To(Succeed())

			locked, err := repo.AcquireLock(ctx, acct.ID, time.Now().UTC())
			Expect(err).NotTo(HaveOccurred())
			Expect(locked.LockTime).NotTo(BeNil())

			_, err = repo.AcquireLock(ctx, acct.ID, time.Now().UTC())
			Expect(err).To(MatchError(account.ErrNotFound))
		})

		It("lets exactly one of many concurrent acquirers win", func() {
			ctx := context.Background()
			acct := freeAccount("runner@example.com")
			Expect(repo.Create(ctx, acct)).To(Succeed())

			const runners = 8
			var wg sync.WaitGroup
			results := make(chan error, runners)

			for range runners {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := repo.AcquireLock(ctx, acct.ID, time.Now().UTC())
					results <- err
				}()
			}
			wg.Wait()
			close(results)

			var wins int
			for err := range results {
				if err == nil {
					wins++
				} else {
					Expect(err).To(MatchError(account.ErrNotFound))
				}
			}
			Expect(wins).To(Equal(1))
		})
	})

	Describe("ReleaseLock", func() {
		It("frees a locked account so it can be acquired again", func() {
			ctx := context.Background()
			acct := freeAccount("runner@example.com")
			Expect(repo.Create(ctx, acct)).To(Succeed())

			_, err := repo.AcquireLock(ctx, acct.ID, time.Now().UTC())
			Expect(err).NotTo(HaveOccurred())

			released, err := repo.ReleaseLock(ctx, acct.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(released.LockTime).To(BeNil())

			_, err = repo.AcquireLock(ctx, acct.ID, time.Now().UTC())
			Expect(err).NotTo(HaveOccurred())
		})

		It("is idempotent on a free account", func() {
			ctx := context.Background()
			acct := freeAccount("runner@example.com")
			Expect(repo.Create(ctx, acct)).To(Succeed())

			released, err := repo.ReleaseLock(ctx, acct.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(released.LockTime).To(BeNil())

			released, err = repo.ReleaseLock(ctx, acct.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(released.LockTime).To(BeNil())
		})

		It("reports a missing account", func() {
			ctx := context.Background()
			_, err := repo.ReleaseLock(ctx, ulid.Make())
			Expect(err).To(MatchError(account.ErrNotFound))
		})
	})
})
