package telemetry

import (
	"context"
	"testing"
)

func TestInitTracer(t *testing.T) {
	t.Parallel()

	tp, err := InitTracer(context.Background(), "opsdash-test", "localhost:4318")
	if err != nil {
		t.Fatalf("InitTracer() error = %v", err)
	}
	if tp == nil {
		t.Fatal("tracer provider is nil")
	}
	// The exporter never connects in this test; shutdown must still work.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = Shutdown(ctx, tp)
}

func TestShutdown_NilProvider(t *testing.T) {
	t.Parallel()

	if err := Shutdown(context.Background(), nil); err != nil {
		t.Errorf("Shutdown(nil) = %v, want nil", err)
	}
}
