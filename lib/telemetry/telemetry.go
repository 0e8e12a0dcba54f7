package telemetry

import (
	"context"
	"errors"
	"os"
	"testing"

	"obswatch/lib/configutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

var tracerProvider *sdktrace.TracerProvider
var meterProvider *metric.MeterProvider

func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// searches up the filesystem from the cwd to find a file called
// telemetry.json5, once found it will then use it as a config to setup
// telemetry. a missing file yields a local-only setup with no otlp export.
func SetupFromEnv(ctx context.Context, serviceName string) error {
	config, err := configutil.ReadRecursively[Config]("telemetry.json5")
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return Setup(ctx, serviceName, config)
}

func Setup(ctx context.Context, serviceName string, config Config) error {
	r, err := newResource(serviceName)
	if err != nil {
		return err
	}

	tracerProvider, err = newTraceProvider(ctx, r, config)
	if err != nil {
		return err
	}
	otel.SetTracerProvider(tracerProvider)

	meterProvider, err = newMetricProvider(ctx, r, config)
	if err != nil {
		return err
	}
	otel.SetMeterProvider(meterProvider)

	return nil
}

func Shutdown(ctx context.Context) error {
	var errlist []error
	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			errlist = append(errlist, err)
		}
	}
	if meterProvider != nil {
		if err := meterProvider.Shutdown(ctx); err != nil {
			errlist = append(errlist, err)
		}
	}
	return errors.Join(errlist...)
}

var setupTestEnvironments = map[string]bool{}

// sets up telemetry in a testing environment, ensuring that it isn't
// set up more than once
func SetupForTesting(t testing.TB, serviceName string) func() {
	if setupTestEnvironments[serviceName] {
		return func() {}
	}
	setupTestEnvironments[serviceName] = true

	InitSlog(true)
	err := SetupFromEnv(context.Background(), serviceName)
	if err != nil {
		t.Fatal(err)
	}

	return func() {
		err := Shutdown(context.Background())
		if err != nil {
			t.Fatal(err)
		}
	}
}
