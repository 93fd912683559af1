package cli

import (
	"os"
	"syscall"
	"testing"
	"time"

	"fintrack/internal/config"
)

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "json"}, "worker")
	if logger.Component() != "worker" {
		t.Fatalf("component = %q, want worker", logger.Component())
	}
}

func TestGracefulShutdownOnSignal(t *testing.T) {
	logger := SetupLogger(&config.Config{LogLevel: "error"}, "app")
	ctx, stop := GracefulShutdown(logger)
	defer stop()

	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Signal(syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled after SIGTERM")
	}
}

func TestGracefulShutdownStop(t *testing.T) {
	logger := SetupLogger(&config.Config{LogLevel: "error"}, "app")
	ctx, stop := GracefulShutdown(logger)
	stop()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("stop should cancel the context")
	}
}
