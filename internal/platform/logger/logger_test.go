package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	l, err := Setup("debug")
	require.NoError(t, err, "Setup should not fail for a valid level")
	require.NotNil(t, l, "Setup should return a logger")
	assert.True(t, l.Enabled(context.Background(), slog.LevelDebug),
		"debug level logger should emit debug records")

	l, err = Setup("warn")
	require.NoError(t, err)
	assert.False(t, l.Enabled(context.Background(), slog.LevelInfo),
		"warn level logger should not emit info records")
}

func TestSetupInvalidLevelFallsBackToInfo(t *testing.T) {
	l, err := Setup("verbose")
	require.NoError(t, err, "an invalid level should not be an error")
	require.NotNil(t, l)
	assert.True(t, l.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, l.Enabled(context.Background(), slog.LevelDebug))
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	custom := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := WithLogger(context.Background(), custom)
	assert.Same(t, custom, FromContext(ctx), "FromContext should return the stored logger")

	// Without a stored logger the slog default comes back
	assert.NotNil(t, FromContext(context.Background()))
	//nolint:staticcheck // exercising nil context handling
	assert.NotNil(t, FromContext(nil))
}

func TestFromContextOrDefault(t *testing.T) {
	var buf bytes.Buffer
	def := slog.New(slog.NewJSONHandler(&buf, nil))

	got := FromContextOrDefault(context.Background(), def)
	assert.Same(t, def, got, "should fall back to the provided default")

	custom := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := WithLogger(context.Background(), custom)
	assert.Same(t, custom, FromContextOrDefault(ctx, def),
		"stored logger should win over the default")
}
