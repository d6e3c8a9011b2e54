package tracing_test

import (
	"context"
	"testing"

	"scrumpoker/internal/config"
	"scrumpoker/internal/platform/tracing"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := tracing.Setup(context.Background(), config.TracingConfig{Enabled: true, ServiceName: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_NoopWhenDisabled(t *testing.T) {
	cfg := config.TracingConfig{Endpoint: "http://localhost:4318", Enabled: false, ServiceName: "test"}

	shutdown, err := tracing.Setup(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown should not error: %v", err)
	}
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address so nothing is exported
	cfg := config.TracingConfig{Endpoint: "http://192.0.2.1:4318", Enabled: true, ServiceName: "test"}

	shutdown, err := tracing.Setup(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}
