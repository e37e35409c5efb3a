// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/acctpool/acctpool/internal/logging"
)

func TestSetup_StampsServiceIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.Setup("acctpool", "1.2.3", "json", &buf)

	logger.Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "acctpool", entry["service"])
	assert.Equal(t, "1.2.3", entry["version"])
	assert.Equal(t, "hello", entry["msg"])
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.Setup("acctpool", "dev", "text", &buf)

	logger.Info("hello")

	out := buf.String()
	assert.Contains(t, out, "service=acctpool")
	assert.Contains(t, out, "version=dev")
}

func TestSetup_AddsTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.Setup("acctpool", "dev", "json", &buf)

	traceID := trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	spanID := trace.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	logger.InfoContext(ctx, "with trace")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, traceID.String(), entry["trace_id"])
	assert.Equal(t, spanID.String(), entry["span_id"])
}

func TestSetup_NoTraceAttrsWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.Setup("acctpool", "dev", "json", &buf)

	logger.Info("no trace")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "span_id")
}

func TestSetup_WithAttrsKeepsIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.Setup("acctpool", "dev", "json", &buf).With("request_id", "abc")

	logger.Info("scoped")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "abc", entry["request_id"])
	assert.Equal(t, "acctpool", entry["service"])
}
