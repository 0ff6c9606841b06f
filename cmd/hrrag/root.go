package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kxddry/hr-rag/internal/config"
	"github.com/kxddry/hr-rag/internal/logger"
	"github.com/kxddry/hr-rag/internal/metrics"
)

type rootOptions struct {
	configPath  string
	logLevel    string
	metricsAddr string
}

// session is the state shared by the subcommands of one invocation.
type session struct {
	opts     rootOptions
	cfg      *config.AppConfig
	registry *prometheus.Registry
	app      *app
}

func newRootCmd() *cobra.Command {
	s := &session{}
	root := &cobra.Command{
		Use:          "hrrag",
		Short:        "Answer HR policy questions from the company handbook",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.start(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			s.close()
		},
	}
	root.PersistentFlags().StringVar(&s.opts.configPath, "config", "", "Path to YAML config file (default ./config.yaml or ~/.config/hrrag/config.yaml)")
	root.PersistentFlags().StringVar(&s.opts.logLevel, "log-level", "", "Log level: debug, info, warn, error or disabled")
	root.PersistentFlags().StringVar(&s.opts.metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address, e.g. :9090")

	root.AddCommand(
		newIngestCmd(s),
		newAskCmd(s),
		newChatCmd(s),
		newRegistryCmd(s),
	)
	return root
}

func (s *session) start(cmd *cobra.Command) error {
	cfg, err := loadConfig(s.opts.configPath)
	if err != nil {
		return err
	}
	if cfg, err = config.ApplyEnv(cfg, os.Environ()); err != nil {
		return err
	}
	if s.opts.logLevel != "" {
		cfg.Log.Level = s.opts.logLevel
	}
	if s.opts.metricsAddr != "" {
		cfg.Metrics.Addr = s.opts.metricsAddr
	}
	s.cfg = cfg

	lc := logger.DefaultConfig()
	lc.Level = logger.ParseLevel(cfg.Log.Level)
	lc.JSON = cfg.Log.JSON
	if cmd.Name() == "chat" {
		// The TUI owns the terminal.
		lc.Level = logger.DisabledLevel
	}
	logger.Init(lc)
	ctx := logger.ContextWithLogger(cmd.Context(), logger.GetDefault())
	cmd.SetContext(ctx)

	s.registry = prometheus.NewRegistry()
	rec, err := metrics.New(s.registry)
	if err != nil {
		return err
	}
	if cfg.Metrics.Addr != "" {
		if err := serveMetrics(ctx, cfg.Metrics.Addr, s.registry); err != nil {
			return err
		}
	}
	s.app, err = build(ctx, cfg, rec)
	return err
}

func (s *session) close() {
	if s.app != nil {
		s.app.Close()
	}
}

func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		cfg, _, err := config.LoadDefault()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// serveMetrics binds addr synchronously so a taken port fails the command.
func serveMetrics(ctx context.Context, addr string, g prometheus.Gatherer) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics: listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log := logger.FromContext(ctx).With("component", "metrics")
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "error", err)
		}
	}()
	log.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}
