// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package binder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/semantic/services/semantic/ast"
	"github.com/AleutianAI/semantic/services/semantic/config"
)

// ParseBuiltins parses the configured platform stubs into compilation units
// ready to pass to Bind.
//
// Description:
//
//	A stub with syntax errors is still returned, with whatever declarations
//	the parser recovered; the errors are logged. Only a failure to parse
//	at all is returned as an error.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	parser - Parser used for the stubs. Must not be nil.
//	sources - Stub sources, typically AnalysisConfig.Builtins.
//	logger - Receives warnings for stubs with syntax errors.
//
// Outputs:
//
//	[]*ast.CompilationUnit - One unit per source, in input order.
//	error - Non-nil if any stub could not be parsed.
func ParseBuiltins(ctx context.Context, parser *ast.JavaParser, sources []config.BuiltinSource, logger *slog.Logger) ([]*ast.CompilationUnit, error) {
	if logger == nil {
		logger = slog.Default()
	}
	units := make([]*ast.CompilationUnit, 0, len(sources))
	for _, src := range sources {
		unit, err := parser.Parse(ctx, []byte(src.Source), src.Path)
		if err != nil {
			return nil, fmt.Errorf("parsing builtin %s: %w", src.Path, err)
		}
		if len(unit.Errors) > 0 {
			logger.Warn("builtin source has syntax errors",
				slog.String("path", src.Path),
				slog.Int("errors", len(unit.Errors)),
				slog.String("first", unit.Errors[0]))
		}
		units = append(units, unit)
	}
	return units, nil
}
