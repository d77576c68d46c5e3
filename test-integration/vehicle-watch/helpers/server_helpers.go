package helpers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/onsi/gomega"

	watchapp "github.com/rdwwatch/rdw-vehicle-watch/internal/app"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/config"
)

// ServerTestHelper manages the watcher lifecycle for testing
type ServerTestHelper struct {
	ctx        context.Context
	configPath string
	baseURL    string
	httpClient *http.Client
	app        *watchapp.WatchApp
	port       int
}

// NewServerTestHelper creates a new server test helper listening on a free port
func NewServerTestHelper(ctx context.Context, configPath string) *ServerTestHelper {
	port := FreePort()
	return &ServerTestHelper{
		ctx:        ctx,
		configPath: configPath,
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", port),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		port: port,
	}
}

// FreePort asks the kernel for an unused TCP port
func FreePort() int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	defer func() {
		_ = l.Close()
	}()
	return l.Addr().(*net.TCPAddr).Port
}

// StartServer builds and starts the watcher
func (s *ServerTestHelper) StartServer() error {
	cfg, err := config.LoadConfig(config.WithConfigPath(s.configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app, err := watchapp.NewWatchApp(s.ctx,
		watchapp.WithConfig(cfg),
		watchapp.WithAddress(fmt.Sprintf("127.0.0.1:%d", s.port)),
	)
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}

	s.app = app

	go func() {
		if err := app.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Server start failed: %v\n", err)
		}
	}()

	return nil
}

// StopServer gracefully stops the watcher
func (s *ServerTestHelper) StopServer() error {
	if s.app != nil {
		return s.app.Stop(5 * time.Second)
	}
	return nil
}

// WaitForServerReady waits until /health answers
func (s *ServerTestHelper) WaitForServerReady(timeout time.Duration) {
	gomega.Eventually(func() error {
		resp, err := s.Get("/health")
		if err != nil {
			return err
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		return nil
	}, timeout, 100*time.Millisecond).Should(gomega.Succeed(), "Server should be ready")
}

// Get makes a GET request to path
func (s *ServerTestHelper) Get(path string) (*http.Response, error) {
	return s.httpClient.Get(s.baseURL + path)
}

// Refresh makes a POST request to /refresh
func (s *ServerTestHelper) Refresh() (*http.Response, error) {
	return s.httpClient.Post(s.baseURL+"/refresh", "application/json", nil)
}

// ConfigOptions holds the settings written by WriteConfigYAML
type ConfigOptions struct {
	Plate            string
	RegistryEndpoint string
	StolenEndpoint   string
	StatusDir        string
	Interval         string
	Fields           []string
}

// WriteConfigYAML writes a configuration file for testing
func WriteConfigYAML(dir string, opts ConfigOptions) string {
	interval := opts.Interval
	if interval == "" {
		interval = "1h"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "vehicle:\n  licensePlate: %q\n", opts.Plate)
	if len(opts.Fields) > 0 {
		b.WriteString("  fields:\n")
		for _, f := range opts.Fields {
			fmt.Fprintf(&b, "    - %q\n", f)
		}
	}
	fmt.Fprintf(&b, "sync:\n  interval: %s\n  retryInitialInterval: 1s\n", interval)
	fmt.Fprintf(&b, "registry:\n  endpoint: %s\n  timeout: 2s\n", opts.RegistryEndpoint)
	if opts.StolenEndpoint != "" {
		fmt.Fprintf(&b, "stolenRegister:\n  endpoint: %s\n  timeout: 2s\n", opts.StolenEndpoint)
	}
	fmt.Fprintf(&b, "status:\n  dir: %s\n", opts.StatusDir)

	configPath := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(configPath, []byte(b.String()), 0600)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return configPath
}
