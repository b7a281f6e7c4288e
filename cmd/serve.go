package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/ytcurator/internal/catalog"
	"github.com/desertthunder/ytcurator/internal/server"
	"github.com/desertthunder/ytcurator/internal/session"
	"github.com/desertthunder/ytcurator/internal/shared"
)

const shutdownTimeout = 10 * time.Second

// healthChecker is implemented by catalogs that can probe their upstream.
type healthChecker interface {
	Health(ctx context.Context) error
}

var _ healthChecker = (*catalog.YouTubeCatalog)(nil)

// Serve runs the chat API until interrupted, then shuts down gracefully.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := r.listenAddr(cmd)

	repo, db, err := r.openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	manager, err := r.sessions(repo, nil)
	if err != nil {
		return err
	}
	defer manager.Close()

	opts := []server.APIOption{
		server.WithHistory(repo),
		server.WithHeadersPath(r.headersPath()),
		server.WithAPILogger(shared.WithLogger(r.logger, "component", "api")),
	}
	if hc, ok := r.youtube().(healthChecker); ok {
		opts = append(opts, server.WithHealthCheck(hc.Health))
	}

	api := server.NewAPI(manager, opts...)
	srv := server.New(addr, server.NewHandler(api, r.logger), r.logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		r.pruneSessions(gctx, manager, cmd.Duration("idle"))
		return nil
	})

	url := fmt.Sprintf("http://%s/health", addr)
	r.writePlain("Serving on http://%s (Ctrl+C to stop)\n", addr)
	if cmd.Bool("open") {
		if err := shared.OpenBrowser(url); err != nil {
			r.logger.Warn("could not open browser", "error", err)
		}
	}

	return g.Wait()
}

func (r *Runner) listenAddr(cmd *cli.Command) string {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = port
	}
	return cfg.Addr()
}

// pruneSessions drops idle sessions every minute until ctx is done. A non-positive idle disables pruning.
func (r *Runner) pruneSessions(ctx context.Context, m *session.Manager, idle time.Duration) {
	if idle <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(min(idle, time.Minute))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Prune(idle); n > 0 {
				r.logger.Info("pruned idle sessions", "count", n, "remaining", m.Len())
			}
		}
	}
}
