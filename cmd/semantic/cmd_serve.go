// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/semantic/services/semantic"
	"github.com/AleutianAI/semantic/services/semantic/report"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	port        int
	snapshotDir string
	debug       bool
}

func newServeCmd(a *app) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), a, opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.port, "port", 8080, "port to listen on")
	f.StringVar(&opts.snapshotDir, "snapshot-dir", "", "BadgerDB directory enabling the snapshot endpoints")
	f.BoolVar(&opts.debug, "debug", false, "gin debug mode and request logging")
	return cmd
}

// newRouter builds the gin engine with recovery, tracing, metrics and the
// /v1/semantic routes.
func newRouter(svc *semantic.Service, debug bool) *gin.Engine {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("semantic"))
	if debug {
		router.Use(gin.Logger())
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	semantic.RegisterRoutes(router.Group("/v1"), semantic.NewHandlers(svc))
	return router
}

func runServe(ctx context.Context, a *app, opts *serveOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}
	analyzer, err := report.NewAnalyzer(cfg, a.logger)
	if err != nil {
		return err
	}

	svcOpts := []semantic.ServiceOption{semantic.WithServiceLogger(a.logger)}
	if opts.snapshotDir != "" {
		db, err := report.OpenSnapshotDB(opts.snapshotDir)
		if err != nil {
			return err
		}
		defer closeDB(db, a.logger)
		mgr, err := report.NewSnapshotManager(db, a.logger, report.WithRetention(cfg.SnapshotRetention))
		if err != nil {
			return err
		}
		svcOpts = append(svcOpts, semantic.WithSnapshotManager(mgr))
		a.logger.Info("snapshot store opened", slog.String("dir", opts.snapshotDir))
	}
	svc, err := semantic.NewService(analyzer, svcOpts...)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.port),
		Handler:           newRouter(svc, opts.debug),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting semantic server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down semantic server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
