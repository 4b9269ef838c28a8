// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectConfigFile is the optional per-project override file, read from
// the project root by AnalyzeDir.
const ProjectConfigFile = "semantic.config.yaml"

// ProjectConfig holds per-project path overrides.
//
// Example semantic.config.yaml:
//
//	exclude_from_analysis:
//	  - generated/
//	  - src/main/java/legacy/
//	include_override:
//	  - src/test/java/fixtures/
type ProjectConfig struct {
	// ExcludeFromAnalysis lists slash-separated path prefixes that are
	// never analyzed.
	ExcludeFromAnalysis []string `yaml:"exclude_from_analysis"`

	// IncludeOverride lists path prefixes analyzed even when they look
	// like test code. Exclusions still win.
	IncludeOverride []string `yaml:"include_override"`
}

// LoadProjectConfig reads ProjectConfigFile from projectRoot. A missing
// file yields an empty config.
func LoadProjectConfig(projectRoot string) (ProjectConfig, error) {
	if projectRoot == "" {
		return ProjectConfig{}, nil
	}

	path := filepath.Join(projectRoot, ProjectConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ProjectConfig{}, nil
		}
		return ProjectConfig{}, fmt.Errorf("reading %s: %w", ProjectConfigFile, err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ProjectConfig{}, fmt.Errorf("parsing %s: %w", ProjectConfigFile, err)
	}
	return cfg, nil
}

// Excluded reports whether rel falls under an exclude_from_analysis prefix.
func (c ProjectConfig) Excluded(rel string) bool {
	return hasAnyPrefix(rel, c.ExcludeFromAnalysis)
}

// Included reports whether rel falls under an include_override prefix.
func (c ProjectConfig) Included(rel string) bool {
	return hasAnyPrefix(rel, c.IncludeOverride)
}

func hasAnyPrefix(rel string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(rel, p) {
			return true
		}
	}
	return false
}
