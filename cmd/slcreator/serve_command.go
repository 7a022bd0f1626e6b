package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/slcreator/internal/api"
	"github.com/gyaneshwarpardhi/slcreator/internal/event"
	"github.com/gyaneshwarpardhi/slcreator/internal/store"
	"github.com/gyaneshwarpardhi/slcreator/internal/workspace"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editing API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides server.addr)")
	return cmd
}

func runServer(parent context.Context, c *commandContext, addr string) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := c.config()
	logger := c.logger
	if addr == "" {
		addr = cfg.Server.Addr
	}

	st, err := c.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	// ── Workspace ─────────────────────────────────────────────────────────────
	ws, err := workspace.New(context.WithoutCancel(ctx), st, workspace.Options{
		CacheSize:  cfg.CacheSize,
		QueueDepth: cfg.Server.EventQueueDepth,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	ws.OnChange(func(ev event.Event) {
		logger.Debug("link changed", "kind", ev.Kind, "arcana", ev.Arcana, "op", ev.Op, "nodes", ev.Nodes)
	})

	// ── External edit watcher ─────────────────────────────────────────────────
	if fs, ok := st.(*store.FileStore); ok && cfg.Watch {
		stopWatch, err := fs.Watch(logger, func(arcana string) {
			if ws.Invalidate(arcana) {
				logger.Info("reloading link changed on disk", "arcana", arcana)
			}
		})
		if err != nil {
			logger.Warn("link watcher unavailable (external edits will not be picked up)", "err", err)
		} else {
			defer stopWatch()
		}
	}

	// ── Config reload on SIGHUP ───────────────────────────────────────────────
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if _, err := c.loader.Reload(); err != nil {
					logger.Warn("config reload skipped", "err", err)
					continue
				}
				logger.Info("config reloaded")
			}
		}
	}()

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.New(ws, st, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", addr, "backend", cfg.Store.Backend, "data_dir", cfg.DataDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	select {
	case err := <-serveErr:
		if err != nil {
			_ = ws.Close(context.Background())
			return fmt.Errorf("serve %s: %w", addr, err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down…")

	timeout := time.Duration(cfg.Server.ShutdownTimeoutMs) * time.Millisecond
	shutCtx, shutCancel := context.WithTimeout(context.Background(), timeout)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	if err := ws.Close(shutCtx); err != nil {
		logger.Error("saving open links failed", "err", err)
		return err
	}
	logger.Info("goodbye")
	return nil
}
