package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for raw, want := range cases {
		assert.Equal(t, want, parseLevel(raw), raw)
	}
}

func TestNewSpanExporter(t *testing.T) {
	ctx := context.Background()

	exporter, err := newSpanExporter(ctx, ExporterNone, nil)
	require.NoError(t, err)
	assert.Nil(t, exporter)

	exporter, err = newSpanExporter(ctx, ExporterStdout, nil)
	require.NoError(t, err)
	assert.NotNil(t, exporter)

	_, err = newSpanExporter(ctx, "zipkin", nil)
	assert.Error(t, err)
}

func TestInit_WithoutExporter(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", ExporterNone)

	instruments, shutdown, err := Init(context.Background(), "storefront-test")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, shutdown(context.Background())) })

	assert.NotNil(t, instruments.Logger)
	assert.NotNil(t, instruments.Tracer("orders"))
	assert.NotNil(t, instruments.Meter("orders"))
}

func TestInstruments_NilFallbacks(t *testing.T) {
	var instruments *Instruments
	assert.NotNil(t, instruments.Tracer("orders"))
	assert.NotNil(t, instruments.Meter("orders"))
}
