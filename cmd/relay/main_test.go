package main

import (
	"errors"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/bbsrelay/service/internal/config"
)

// TestMain_Invoke runs in a subprocess to execute main().
func TestMain_Invoke(t *testing.T) {
	if os.Getenv("BBSRELAY_TEST_MAIN") != "1" {
		return
	}
	os.Args = []string{"bbsrelay", "--no-browser", "--env-file", "does-not-exist.env"}
	main()
}

func TestMain_InvalidConfig(t *testing.T) {
	cmd := exec.Command(os.Args[0], "-test.run=TestMain_Invoke")
	cmd.Env = append(os.Environ(), "BBSRELAY_TEST_MAIN=1", "PORT=not-a-port")

	output, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got err=%v output=%s", err, string(output))
	}

	if !strings.Contains(string(output), "failed to load configuration") {
		t.Fatalf("expected config load failure, got: %s", string(output))
	}
}

func TestRootCmd_Flags(t *testing.T) {
	cmd := rootCmd()
	for _, name := range []string{FlagEnvFile, FlagNoBrowser, FlagLogLevel} {
		if cmd.Flags().Lookup(name) == nil {
			t.Fatalf("expected flag %q", name)
		}
	}
}

func TestNewServer_Timeouts(t *testing.T) {
	cfg := &config.Config{Port: "5000", NegotiateTimeout: 5 * time.Second, UploadTimeout: 30 * time.Second}
	srv := newServer(cfg, http.NotFoundHandler())

	if srv.ReadHeaderTimeout != readHeaderTimeout || srv.ReadHeaderTimeout <= 0 {
		t.Fatalf("expected read header timeout %v, got %v", readHeaderTimeout, srv.ReadHeaderTimeout)
	}
	if srv.ReadTimeout != time.Minute {
		t.Fatalf("expected read timeout 1m, got %v", srv.ReadTimeout)
	}
	if srv.WriteTimeout != 50*time.Second {
		t.Fatalf("expected write timeout 50s, got %v", srv.WriteTimeout)
	}
	if srv.Addr != cfg.Addr() {
		t.Fatalf("expected addr %q, got %q", cfg.Addr(), srv.Addr)
	}
}
