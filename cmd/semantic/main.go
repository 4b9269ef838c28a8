// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command semantic analyzes Java sources and reports, for every method,
// whether it overrides a method of a supertype.
//
// Usage:
//
//	semantic analyze ./my-project
//	semantic analyze ./my-project --json
//	semantic analyze ./my-project --watch --snapshot-dir ~/.semantic/snapshots
//	semantic serve --port 8080 --snapshot-dir ~/.semantic/snapshots
//	semantic snapshots list --snapshot-dir ~/.semantic/snapshots
//	semantic snapshots diff <base-id> <target-id> --snapshot-dir ~/.semantic/snapshots
//
// Example requests against serve:
//
//	curl http://localhost:8080/v1/semantic/health
//
//	curl -X POST http://localhost:8080/v1/semantic/analyze \
//	  -H "Content-Type: application/json" \
//	  -d '{"project_root": "/path/to/project"}'
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AleutianAI/semantic/services/semantic/config"
)

// app carries the global flags and the state they configure.
type app struct {
	configPath string
	logLevel   string
	trace      bool

	logger   *slog.Logger
	shutdown func(context.Context) error
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "semantic",
		Short: "Java semantic analysis: symbols, supertypes and override resolution",
		Long: `semantic binds Java sources into a symbol table, computes the supertype
closure of every class and decides for each method whether it overrides a
supertype method (true, false or unknown when a type could not be resolved).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.shutdown != nil {
				return a.shutdown(cmd.Context())
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "analysis config YAML overriding the embedded defaults")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flags.BoolVar(&a.trace, "trace", false, "print OpenTelemetry spans to stderr")

	root.AddCommand(newAnalyzeCmd(a), newServeCmd(a), newSnapshotsCmd(a))
	return root
}

// setup configures logging and, with --trace, a stdout span exporter.
func (a *app) setup(cmd *cobra.Command) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(a.logLevel))); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", a.logLevel, err)
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !a.trace {
		return nil
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(cmd.ErrOrStderr()), stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("creating span exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	a.shutdown = tp.Shutdown
	return nil
}

// loadConfig returns the --config file when given, else the embedded defaults.
func (a *app) loadConfig(ctx context.Context) (*config.AnalysisConfig, error) {
	if a.configPath != "" {
		return config.LoadAnalysisConfigFile(ctx, a.configPath)
	}
	return config.GetAnalysisConfig(ctx)
}
