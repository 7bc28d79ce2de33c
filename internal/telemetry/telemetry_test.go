// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-engine/pkg/types"
)

func TestInitDisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), types.TelemetryConfig{}, "test")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInstrumentsUsableWithNoopProviders(t *testing.T) {
	hist, err := Meter("test").Float64Histogram("test.duration")
	require.NoError(t, err)
	hist.Record(context.Background(), 1.5)

	_, span := Tracer("test").Start(context.Background(), "op")
	span.End()
}

func TestMilliseconds(t *testing.T) {
	assert.InDelta(t, 1500.0, Milliseconds(1500*time.Millisecond), 1e-9)
	assert.InDelta(t, 0.25, Milliseconds(250*time.Microsecond), 1e-9)
}
