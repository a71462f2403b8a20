package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

func resetEnvConfig() {
	envConfig = nil
	envConfigOnce = sync.Once{}
}

func TestLoadFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		for _, key := range []string{"OTEL_ENABLED", "OTEL_SERVICE_NAME", "OTEL_SERVICE_VERSION", "OTEL_EXPORTER_OTLP_PROTOCOL", "OTEL_EXPORTER_OTLP_HEADERS"} {
			t.Setenv(key, "")
		}
		cfg := LoadFromEnv()
		assert.False(t, cfg.Enabled)
		assert.Equal(t, DefaultServiceName, cfg.ServiceName)
		assert.Equal(t, "dev", cfg.ServiceVersion)
		assert.Equal(t, "grpc", cfg.Protocol)
		assert.Empty(t, cfg.Headers)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("OTEL_ENABLED", "TRUE")
		t.Setenv("OTEL_SERVICE_NAME", "indexer")
		t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "Authorization=Bearer a=b, x-team = jvm ,broken")
		t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "1")

		cfg := LoadFromEnv()
		assert.True(t, cfg.Enabled)
		assert.True(t, cfg.Insecure)
		assert.Equal(t, "indexer", cfg.ServiceName)
		assert.Equal(t, map[string]string{"Authorization": "Bearer a=b", "x-team": "jvm"}, cfg.Headers)
	})
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		endpoint      string
		insecure      bool
		wantHost      string
		wantPlaintext bool
	}{
		{"collector:4317", false, "collector:4317", false},
		{"collector:4317", true, "collector:4317", true},
		{"http://collector:4318", false, "collector:4318", true},
		{"https://collector:4318", false, "collector:4318", false},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			host, plaintext := splitEndpoint(&Config{Endpoint: tt.endpoint, Insecure: tt.insecure})
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPlaintext, plaintext)
		})
	}
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		sampler string
		arg     string
		want    string
	}{
		{"", "", "AlwaysOnSampler"},
		{"always_off", "", "AlwaysOffSampler"},
		{"traceidratio", "0.5", "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		t.Run(tt.sampler, func(t *testing.T) {
			assert.Equal(t, tt.want, newSampler(&Config{Sampler: tt.sampler, SamplerArg: tt.arg}).Description())
		})
	}
}

func TestParseRatio(t *testing.T) {
	assert.Equal(t, 0.25, parseRatio("0.25"))
	assert.Equal(t, 1.0, parseRatio(""))
	assert.Equal(t, 1.0, parseRatio("abc"))
	assert.Equal(t, 0.0, parseRatio("-3"))
	assert.Equal(t, 1.0, parseRatio("7"))
}

func TestResourceAttributes(t *testing.T) {
	attrs := resourceAttributes(&Config{
		ServiceName:    "jindex",
		ServiceVersion: "1.2.3",
		ResourceAttrs:  map[string]string{"z": "last", "a": "first"},
	})

	require.GreaterOrEqual(t, len(attrs), 4)
	assert.Equal(t, semconv.ServiceName("jindex"), attrs[0])
	assert.Equal(t, semconv.ServiceVersion("1.2.3"), attrs[1])
	assert.Equal(t, attribute.String("a", "first"), attrs[len(attrs)-2])
	assert.Equal(t, attribute.String("z", "last"), attrs[len(attrs)-1])
}

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestEnabled_FromEnv(t *testing.T) {
	resetEnvConfig()
	defer resetEnvConfig()
	t.Setenv("OTEL_ENABLED", "false")

	assert.False(t, Enabled())
	assert.Same(t, GetConfig(), GetConfig())
}

func TestStartAndEndSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(previous)

	_, ok := StartSpan(context.Background(), "ok", attribute.Int("classes", 3))
	EndSpan(ok, nil)
	_, failed := StartSpan(context.Background(), "failed")
	EndSpan(failed, errors.New("boom"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "ok", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.Int("classes", 3))
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "boom", spans[1].Status().Description)
	assert.Equal(t, TracerName, spans[0].InstrumentationScope().Name)
}
