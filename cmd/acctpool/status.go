// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// ServiceStatus holds the probe results for a running service instance.
type ServiceStatus struct {
	Addr  string `json:"addr"`
	Live  bool   `json:"live"`
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	metricsAddr string
	jsonOutput  bool
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of a running acctpool instance",
		Long:  `Probe the liveness and readiness endpoints of a running acctpool service.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg, nil)
		},
	}

	cmd.Flags().StringVar(&cfg.metricsAddr, "metrics-addr", "127.0.0.1:9100", "metrics/health address of the running service")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus executes the status command. A nil client uses a default with
// a short timeout.
func runStatus(cmd *cobra.Command, cfg *statusConfig, client *http.Client) error {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}

	status := probeService(client, cfg.metricsAddr)

	var output string
	if cfg.jsonOutput {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		output = string(data)
	} else {
		output = formatStatusTable(status)
	}

	cmd.Println(output)
	return nil
}

// probeService checks the health endpoints of the observability server.
func probeService(client *http.Client, addr string) ServiceStatus {
	status := ServiceStatus{Addr: addr}

	live, err := probeEndpoint(client, addr, "/healthz/liveness")
	if err != nil {
		status.Error = fmt.Sprintf("failed to connect: %v", err)
		return status
	}
	status.Live = live

	ready, err := probeEndpoint(client, addr, "/healthz/readiness")
	if err != nil {
		// Liveness answered but readiness did not: still report live.
		status.Error = fmt.Sprintf("readiness probe failed: %v", err)
		return status
	}
	status.Ready = ready

	return status
}

// probeEndpoint returns true when the endpoint answers 200.
func probeEndpoint(client *http.Client, addr, path string) (bool, error) {
	resp, err := client.Get("http://" + addr + path)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK, nil
}

// formatStatusTable formats the status as a human-readable table.
func formatStatusTable(status ServiceStatus) string {
	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "ADDR\tLIVE\tREADY\tERROR")

	errText := "-"
	if status.Error != "" {
		errText = status.Error
	}
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		status.Addr, yesNo(status.Live), yesNo(status.Ready), errText)

	_ = w.Flush()
	return string(buf)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// byteWriter is a simple writer that appends to a byte slice.
type byteWriter []byte

func (w *byteWriter) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}
