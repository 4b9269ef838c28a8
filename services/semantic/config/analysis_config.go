// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Default Analysis Configuration
// =============================================================================

//go:embed analysis.yaml
var defaultAnalysisYAML []byte

var configTracer = otel.Tracer("semantic.config")

// =============================================================================
// Analysis Configuration Types
// =============================================================================

// AnalysisConfig controls how Java sources are discovered, parsed and bound.
//
// Description:
//
//	Holds input limits, directory filters, the implicit import list and the
//	builtin platform stubs. Builtins are Java source text parsed with the
//	same parser as project files, so java.lang.Object and friends resolve
//	without a JDK on disk.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type AnalysisConfig struct {
	// MaxFileSize is the largest source file the parser accepts, in bytes.
	MaxFileSize int `yaml:"max_file_size" validate:"gte=0"`

	// ParseConcurrency bounds concurrent file parsing. Zero means NumCPU.
	ParseConcurrency int `yaml:"parse_concurrency" validate:"gte=0,lte=256"`

	// IncludeTests controls whether files under test directories are analyzed.
	IncludeTests bool `yaml:"include_tests"`

	// SnapshotRetention is how many snapshots are kept per project. Zero
	// keeps everything.
	SnapshotRetention int `yaml:"snapshot_retention" validate:"gte=0"`

	// ExcludeDirs are directory base names skipped during the walk.
	ExcludeDirs []string `yaml:"exclude_dirs" validate:"dive,required"`

	// ImplicitImports are packages imported on demand by every unit.
	ImplicitImports []string `yaml:"implicit_imports" validate:"dive,required"`

	// Builtins are declaration-only platform sources.
	Builtins []BuiltinSource `yaml:"builtins" validate:"dive"`
}

// BuiltinSource is one platform stub file.
type BuiltinSource struct {
	// Path is the conventional source path, e.g. java/lang/Object.java.
	Path string `yaml:"path" validate:"required,endswith=.java"`

	// Source is the Java declaration text.
	Source string `yaml:"source" validate:"required"`
}

// =============================================================================
// Defaults
// =============================================================================

const (
	// DefaultMaxFileSize is the default per-file limit (1 MiB).
	DefaultMaxFileSize = 1 << 20

	// MaxYAMLFileSize bounds configuration input.
	MaxYAMLFileSize = 4 << 20

	// DefaultImplicitImport is imported by every compilation unit.
	DefaultImplicitImport = "java.lang"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid analysis config")

// =============================================================================
// Singleton Analysis Config
// =============================================================================

var (
	analysisConfigMu      sync.RWMutex
	analysisConfigOnce    sync.Once
	cachedAnalysisConfig  *AnalysisConfig
	analysisConfigLoadErr error
)

// GetAnalysisConfig returns the cached embedded configuration.
//
// Description:
//
//	Loads the embedded analysis.yaml on first call and caches the result,
//	including a load error, for subsequent calls.
//
// Inputs:
//
//	ctx - Context for tracing. Must not be nil.
//
// Outputs:
//
//	*AnalysisConfig - The loaded configuration. Never nil on success.
//	error - Non-nil if loading or validation failed.
//
// Thread Safety: Safe for concurrent use via sync.Once.
func GetAnalysisConfig(ctx context.Context) (*AnalysisConfig, error) {
	if ctx == nil {
		return nil, fmt.Errorf("GetAnalysisConfig: ctx must not be nil")
	}

	analysisConfigMu.RLock()
	if cachedAnalysisConfig != nil || analysisConfigLoadErr != nil {
		cfg, err := cachedAnalysisConfig, analysisConfigLoadErr
		analysisConfigMu.RUnlock()
		return cfg, err
	}
	analysisConfigMu.RUnlock()

	analysisConfigMu.Lock()
	defer analysisConfigMu.Unlock()

	analysisConfigOnce.Do(func() {
		cachedAnalysisConfig, analysisConfigLoadErr = LoadAnalysisConfig(ctx, defaultAnalysisYAML)
	})

	return cachedAnalysisConfig, analysisConfigLoadErr
}

// ResetAnalysisConfig clears the cached config so tests can reload it.
//
// Thread Safety: Safe for concurrent use.
func ResetAnalysisConfig() {
	analysisConfigMu.Lock()
	defer analysisConfigMu.Unlock()
	cachedAnalysisConfig = nil
	analysisConfigLoadErr = nil
	analysisConfigOnce = sync.Once{}
}

// LoadAnalysisConfig parses, defaults and validates YAML bytes.
//
// Description:
//
//	data is decoded over the embedded analysis.yaml, so keys it leaves out
//	(exclude_dirs, snapshot_retention, builtins, ...) keep their embedded
//	values and override files only need the settings they change. A list
//	given in data replaces the embedded list. java.lang is always part of
//	the implicit imports, and an explicitly empty builtins list falls back
//	to the embedded stubs.
//
// Inputs:
//
//	ctx - Context for tracing.
//	data - Raw YAML bytes.
//
// Outputs:
//
//	*AnalysisConfig - The validated configuration.
//	error - Non-nil if parsing or validation fails; validation failures
//	wrap ErrInvalidConfig.
func LoadAnalysisConfig(ctx context.Context, data []byte) (*AnalysisConfig, error) {
	_, span := configTracer.Start(ctx, "config.LoadAnalysisConfig")
	defer span.End()

	if len(data) == 0 {
		return nil, fmt.Errorf("LoadAnalysisConfig: empty YAML data")
	}
	if len(data) > MaxYAMLFileSize {
		return nil, fmt.Errorf("LoadAnalysisConfig: YAML data exceeds maximum size (%d > %d)", len(data), MaxYAMLFileSize)
	}

	// Overrides are layered on the embedded defaults; keys absent from data
	// keep their default values.
	var cfg AnalysisConfig
	if err := yaml.Unmarshal(defaultAnalysisYAML, &cfg); err != nil {
		return nil, fmt.Errorf("LoadAnalysisConfig: parsing embedded defaults: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, fmt.Errorf("LoadAnalysisConfig: parsing YAML: %w", err)
	}

	if err := applyDefaults(&cfg); err != nil {
		return nil, fmt.Errorf("LoadAnalysisConfig: %w", err)
	}

	if err := validateAnalysisConfig(&cfg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return nil, fmt.Errorf("LoadAnalysisConfig: validation: %w", err)
	}

	span.SetAttributes(
		attribute.Int("max_file_size", cfg.MaxFileSize),
		attribute.Int("parse_concurrency", cfg.ParseConcurrency),
		attribute.Int("builtins", len(cfg.Builtins)),
		attribute.Int("exclude_dirs", len(cfg.ExcludeDirs)),
	)

	slog.Debug("analysis config loaded",
		slog.Int("max_file_size", cfg.MaxFileSize),
		slog.Int("parse_concurrency", cfg.ParseConcurrency),
		slog.Int("builtins", len(cfg.Builtins)),
	)

	return &cfg, nil
}

// LoadAnalysisConfigFile reads an override file from disk.
func LoadAnalysisConfigFile(ctx context.Context, path string) (*AnalysisConfig, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("LoadAnalysisConfigFile: %w", err)
	}
	if info.Size() > MaxYAMLFileSize {
		return nil, fmt.Errorf("LoadAnalysisConfigFile: %s exceeds maximum size (%d > %d)", path, info.Size(), MaxYAMLFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadAnalysisConfigFile: %w", err)
	}
	return LoadAnalysisConfig(ctx, data)
}

func applyDefaults(cfg *AnalysisConfig) error {
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.ParseConcurrency == 0 {
		cfg.ParseConcurrency = runtime.NumCPU()
	}

	hasLang := false
	for _, imp := range cfg.ImplicitImports {
		if imp == DefaultImplicitImport {
			hasLang = true
			break
		}
	}
	if !hasLang {
		cfg.ImplicitImports = append([]string{DefaultImplicitImport}, cfg.ImplicitImports...)
	}

	if len(cfg.Builtins) == 0 {
		defaults, err := embeddedBuiltins()
		if err != nil {
			return err
		}
		cfg.Builtins = defaults
	}
	return nil
}

// embeddedBuiltins decodes only the builtin stubs of analysis.yaml.
func embeddedBuiltins() ([]BuiltinSource, error) {
	var cfg struct {
		Builtins []BuiltinSource `yaml:"builtins"`
	}
	if err := yaml.Unmarshal(defaultAnalysisYAML, &cfg); err != nil {
		return nil, fmt.Errorf("embedded config: %w", err)
	}
	return cfg.Builtins, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateAnalysisConfig runs struct-tag validation then semantic checks.
func validateAnalysisConfig(cfg *AnalysisConfig) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalidConfig, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	seen := make(map[string]struct{}, len(cfg.Builtins))
	for i, b := range cfg.Builtins {
		if _, dup := seen[b.Path]; dup {
			return fmt.Errorf("%w: builtins[%d]: duplicate path %s", ErrInvalidConfig, i, b.Path)
		}
		seen[b.Path] = struct{}{}
	}

	for i, dir := range cfg.ExcludeDirs {
		if strings.ContainsAny(dir, `/\`) {
			return fmt.Errorf("%w: exclude_dirs[%d]: %q must be a base name", ErrInvalidConfig, i, dir)
		}
	}
	return nil
}

// IsExcludedDir reports whether a directory base name is skipped.
func (c *AnalysisConfig) IsExcludedDir(name string) bool {
	for _, dir := range c.ExcludeDirs {
		if dir == name {
			return true
		}
	}
	return false
}
