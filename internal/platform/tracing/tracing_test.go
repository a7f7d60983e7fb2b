package tracing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderDisabledIsNoop(t *testing.T) {
	t.Parallel()

	p, err := NewProvider(Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, p.Tracer())

	_, span := p.Tracer().Start(context.Background(), "test")
	assert.False(t, span.SpanContext().IsValid(), "disabled tracing should produce no-op spans")
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderFileExporter(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "traces", "traces.jsonl")
	p, err := NewProvider(Config{
		Enabled:     true,
		Exporter:    ExporterFile,
		FilePath:    path,
		ServiceName: "test-service",
	})
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "provision.domain")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "provision.domain")
}

func TestNewProviderRejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := NewProvider(Config{Enabled: true, Exporter: ExporterFile})
	assert.Error(t, err, "file exporter without a path should be rejected")

	_, err = NewProvider(Config{Enabled: true, Exporter: "jaeger"})
	assert.Error(t, err, "unknown exporters should be rejected")
}
