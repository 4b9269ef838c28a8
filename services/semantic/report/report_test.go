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
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/semantic/services/semantic/config"
	"github.com/AleutianAI/semantic/services/semantic/index"
)

var zooSources = []SourceFile{
	{Path: "p/Animal.java", Content: `package p;
public class Animal {
    public Animal() {}
    public String sound() { return ""; }
}
`},
	{Path: "p/Dog.java", Content: `package p;
public class Dog extends Animal implements Runnable {
    @Override
    public String sound() { return "woof"; }
    public void run() {}
    public void fetch() {}
    public String toString() { return "Dog"; }
}
`},
	{Path: "p/Ghost.java", Content: `package p;
class Ghost extends Missing {
    void haunt() {}
}
`},
	{Path: "README.md", Content: "not java"},
}

func newTestAnalyzer(t *testing.T, yamlOverrides string) *Analyzer {
	t.Helper()
	if yamlOverrides == "" {
		yamlOverrides = "parse_concurrency: 2\n"
	}
	cfg, err := config.LoadAnalysisConfig(context.Background(), []byte(yamlOverrides))
	require.NoError(t, err)
	a, err := NewAnalyzer(cfg, slog.Default())
	require.NoError(t, err)
	return a
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func methodByID(t *testing.T, rep *Report, id string) MethodReport {
	t.Helper()
	for _, c := range rep.Classes {
		for _, m := range c.Methods {
			if m.ID == id {
				return m
			}
		}
	}
	t.Fatalf("method %s not in report", id)
	return MethodReport{}
}

func TestNewAnalyzer_RejectsNil(t *testing.T) {
	cfg, err := config.LoadAnalysisConfig(context.Background(), []byte("include_tests: false\n"))
	require.NoError(t, err)

	_, err = NewAnalyzer(nil, slog.Default())
	assert.Error(t, err)
	_, err = NewAnalyzer(cfg, nil)
	assert.Error(t, err)
}

func TestAnalyzeSources_OverrideStatuses(t *testing.T) {
	a := newTestAnalyzer(t, "")
	rep, err := a.AnalyzeSources(context.Background(), "/zoo", zooSources)
	require.NoError(t, err)

	tests := []struct {
		id   string
		want string
	}{
		{"p.Animal#sound()", "false"},
		{"p.Animal#<init>()", OverrideNotApplicable},
		{"p.Dog#sound()", "true"},
		{"p.Dog#run()", "true"},
		{"p.Dog#fetch()", "false"},
		{"p.Dog#toString()", "true"},
		{"p.Dog#<init>()", OverrideNotApplicable},
		{"p.Ghost#haunt()", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, methodByID(t, rep, tt.id).Overridden)
		})
	}

	assert.Equal(t, Stats{
		Files:         3,
		Classes:       3,
		Methods:       9,
		Overriding:    3,
		NotOverriding: 2,
		Unknown:       1,
		Unresolved:    1,
		DurationMilli: rep.Stats.DurationMilli,
	}, rep.Stats)

	require.Len(t, rep.Unresolved, 1)
	assert.Equal(t, "Missing", rep.Unresolved[0].Name)
	assert.Equal(t, SchemaVersion, rep.SchemaVersion)
	assert.Len(t, rep.ID, 16)
	assert.Len(t, rep.Hash, 16)
}

func TestAnalyzeSources_ClassDetails(t *testing.T) {
	a := newTestAnalyzer(t, "")
	rep, err := a.AnalyzeSources(context.Background(), "/zoo", zooSources)
	require.NoError(t, err)

	dog, ok := rep.Class("p.Dog")
	require.True(t, ok)
	assert.Equal(t, "class", dog.Kind)
	assert.Equal(t, "p", dog.Package)
	assert.Equal(t, "p/Dog.java", dog.FilePath)
	assert.Equal(t, "public", dog.Visibility)
	assert.Equal(t, "p.Animal", dog.Superclass)
	assert.Equal(t, []string{"java.lang.Runnable"}, dog.Interfaces)
	assert.Equal(t, []string{"java.lang.Object", "java.lang.Runnable", "p.Animal"}, dog.SuperTypes)

	sound := methodByID(t, rep, "p.Dog#sound()")
	assert.Equal(t, "java.lang.String sound()", sound.Signature)
	assert.Contains(t, sound.Annotations, "Override")

	ctor := methodByID(t, rep, "p.Dog#<init>()")
	assert.True(t, ctor.Constructor)
	assert.Equal(t, "Dog()", ctor.Signature)

	ghost, ok := rep.Class("p.Ghost")
	require.True(t, ok)
	assert.Equal(t, "package", ghost.Visibility)

	_, ok = rep.Class("p.Cat")
	assert.False(t, ok)
}

func TestAnalyzeSources_HashIsDeterministic(t *testing.T) {
	a := newTestAnalyzer(t, "")
	ctx := context.Background()

	first, err := a.AnalyzeSources(ctx, "/zoo", zooSources)
	require.NoError(t, err)

	reversed := make([]SourceFile, len(zooSources))
	for i, f := range zooSources {
		reversed[len(zooSources)-1-i] = f
	}
	second, err := a.AnalyzeSources(ctx, "/zoo", reversed)
	require.NoError(t, err)
	assert.Equal(t, first.Hash, second.Hash)

	changed := append([]SourceFile{}, zooSources...)
	changed[0].Content = strings.Replace(changed[0].Content, "sound()", "noise()", 1)
	third, err := a.AnalyzeSources(ctx, "/zoo", changed)
	require.NoError(t, err)
	assert.NotEqual(t, first.Hash, third.Hash)
	assert.Equal(t, "false", methodByID(t, third, "p.Dog#sound()").Overridden)
}

func TestAnalyzeSources_Canceled(t *testing.T) {
	a := newTestAnalyzer(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.AnalyzeSources(ctx, "/zoo", zooSources)
	assert.ErrorIs(t, err, context.Canceled)

	// A canceled run must not poison later ones.
	rep, err := a.AnalyzeSources(context.Background(), "/zoo", zooSources)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Stats.Classes)
}

func TestAnalyzeDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/main/java/p/A.java", "package p;\npublic class A implements Comparable<A> {\n    public int compareTo(A o) { return 0; }\n}\n")
	writeFile(t, root, "src/test/java/p/ATest.java", "package p;\nclass ATest {}\n")
	writeFile(t, root, "build/generated/Gen.java", "package gen;\nclass Gen {}\n")
	writeFile(t, root, "notes.txt", "ignored")
	writeFile(t, root, "Broken.java", "package q;\npublic class Broken {\n    void m( {\n}\n")
	writeFile(t, root, "Big.java", "package q;\nclass Big {}\n"+strings.Repeat("// padding\n", 400))

	t.Run("default excludes tests and build dirs", func(t *testing.T) {
		a := newTestAnalyzer(t, "max_file_size: 2048\n")
		rep, err := a.AnalyzeDir(context.Background(), root)
		require.NoError(t, err)

		assert.Equal(t, 3, rep.Stats.Files)
		_, ok := rep.Class("p.A")
		assert.True(t, ok)
		_, ok = rep.Class("p.ATest")
		assert.False(t, ok)
		_, ok = rep.Class("gen.Gen")
		assert.False(t, ok)
		assert.Equal(t, "true", methodByID(t, rep, "p.A#compareTo(p.A)").Overridden)

		var errPaths []string
		for _, fe := range rep.FileErrors {
			errPaths = append(errPaths, fe.FilePath)
		}
		assert.ElementsMatch(t, []string{"Big.java", "Broken.java"}, errPaths)
		assert.Equal(t, 2, rep.Stats.FileErrors)

		abs, err := filepath.Abs(root)
		require.NoError(t, err)
		assert.Equal(t, abs, rep.ProjectRoot)
	})

	t.Run("include_tests", func(t *testing.T) {
		a := newTestAnalyzer(t, "max_file_size: 2048\ninclude_tests: true\n")
		rep, err := a.AnalyzeDir(context.Background(), root)
		require.NoError(t, err)
		_, ok := rep.Class("p.ATest")
		assert.True(t, ok)
	})

	t.Run("invalid root", func(t *testing.T) {
		a := newTestAnalyzer(t, "")
		_, err := a.AnalyzeDir(context.Background(), filepath.Join(root, "missing"))
		assert.ErrorIs(t, err, ErrInvalidRoot)
		_, err = a.AnalyzeDir(context.Background(), filepath.Join(root, "notes.txt"))
		assert.ErrorIs(t, err, ErrInvalidRoot)
	})
}

func TestAnalyzeDir_ProjectConfig(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/main/java/p/A.java", "package p;\npublic class A {}\n")
	writeFile(t, root, "src/main/java/legacy/Old.java", "package legacy;\nclass Old {}\n")
	writeFile(t, root, "src/test/java/fixtures/Fixture.java", "package fixtures;\nclass Fixture {}\n")
	writeFile(t, root, "src/test/java/p/ATest.java", "package p;\nclass ATest {}\n")
	writeFile(t, root, ProjectConfigFile, "exclude_from_analysis:\n  - src/main/java/legacy/\ninclude_override:\n  - src/test/java/fixtures/\n")

	a := newTestAnalyzer(t, "")
	rep, err := a.AnalyzeDir(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Stats.Files)
	for fqn, want := range map[string]bool{
		"p.A":              true,
		"legacy.Old":       false,
		"fixtures.Fixture": true,
		"p.ATest":          false,
	} {
		_, ok := rep.Class(fqn)
		assert.Equal(t, want, ok, fqn)
	}

	t.Run("malformed file fails the analysis", func(t *testing.T) {
		bad := t.TempDir()
		writeFile(t, bad, ProjectConfigFile, "exclude_from_analysis: [unclosed\n")
		_, err := a.AnalyzeDir(context.Background(), bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ProjectConfigFile)
	})

	t.Run("missing file is empty", func(t *testing.T) {
		cfg, err := LoadProjectConfig(t.TempDir())
		require.NoError(t, err)
		assert.False(t, cfg.Excluded("anything"))
		assert.False(t, cfg.Included("anything"))
	})
}

func TestIsTestPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"src/test/java/p/A.java", true},
		{"module/src/test/java/p/A.java", true},
		{"src/main/java/p/ATest.java", true},
		{"src/main/java/p/ATests.java", true},
		{"src/main/java/p/ServiceIT.java", true},
		{"src/main/java/p/Test.java", false},
		{"src/main/java/p/Contest.java", false},
		{"src/main/java/p/A.java", false},
		{"testdata/A.java", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTestPath(tt.path))
		})
	}
}

func TestIndexEntries(t *testing.T) {
	a := newTestAnalyzer(t, "")
	rep, err := a.AnalyzeSources(context.Background(), "/zoo", zooSources)
	require.NoError(t, err)

	idx := index.NewSymbolIndex()
	require.NoError(t, idx.AddBatch(context.Background(), IndexEntries(rep)))

	dog, ok := idx.GetByID("p.Dog")
	require.True(t, ok)
	assert.Equal(t, index.KindClass, dog.Kind)

	ctor, ok := idx.GetByID("p.Dog#<init>()")
	require.True(t, ok)
	assert.Equal(t, index.KindConstructor, ctor.Kind)
	assert.Equal(t, "Dog", ctor.Name)
	assert.Equal(t, OverrideNotApplicable, ctor.Overridden)

	sound, ok := idx.GetByID("p.Dog#sound()")
	require.True(t, ok)
	assert.Equal(t, "true", sound.Overridden)
	assert.Equal(t, "p.Dog", sound.Owner)

	assert.Len(t, idx.Members("p.Dog"), 5)

	results, err := idx.Search(context.Background(), "fetch", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "p.Dog#fetch()", results[0].ID)
}
