// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

package httpapi

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantToken string
		wantOK    bool
	}{
		{name: "standard form", header: "Bearer abc.def.ghi", wantToken: "abc.def.ghi", wantOK: true},
		{name: "lowercase scheme", header: "bearer abc.def.ghi", wantToken: "abc.def.ghi", wantOK: true},
		{name: "missing header", header: "", wantOK: false},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", wantOK: false},
		{name: "scheme only", header: "Bearer", wantOK: false},
		{name: "scheme with empty token", header: "Bearer ", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			token, ok := bearerToken(req)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}
