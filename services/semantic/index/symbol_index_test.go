// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func entry(id, name string, kind Kind, file string) *Entry {
	return &Entry{ID: id, Name: name, Kind: kind, Package: "p", FilePath: file, Visibility: "public"}
}

func member(owner, name string, kind Kind) *Entry {
	return &Entry{ID: owner + "#" + name, Name: name, Kind: kind, Package: "p", Owner: owner, FilePath: "p/A.java", Visibility: "public"}
}

func TestSymbolIndex_AddAndGet(t *testing.T) {
	idx := NewSymbolIndex()
	a := entry("p.A", "A", KindClass, "p/A.java")
	m := member("p.A", "run", KindMethod)

	if err := idx.Add(a); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Add(m); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if got, ok := idx.GetByID("p.A"); !ok || got != a {
		t.Error("GetByID failed")
	}
	if got := idx.GetByName("run"); len(got) != 1 || got[0] != m {
		t.Errorf("GetByName = %v", got)
	}
	if got := idx.GetByFile("p/A.java"); len(got) != 2 {
		t.Errorf("GetByFile = %v", got)
	}
	if got := idx.GetByKind(KindMethod); len(got) != 1 {
		t.Errorf("GetByKind = %v", got)
	}
	if got := idx.GetByPackage("p"); len(got) != 2 {
		t.Errorf("GetByPackage = %v", got)
	}
	if got := idx.Members("p.A"); len(got) != 1 || got[0] != m {
		t.Errorf("Members = %v", got)
	}

	got := idx.GetByName("run")
	got[0] = nil
	if idx.GetByName("run")[0] == nil {
		t.Error("GetByName must return a copy")
	}
}

func TestSymbolIndex_AddErrors(t *testing.T) {
	idx := NewSymbolIndex(WithMaxEntries(1))

	if err := idx.Add(nil); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("nil entry: %v", err)
	}
	if err := idx.Add(&Entry{ID: "x", Name: "x", Kind: "bogus", FilePath: "f"}); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("bad kind: %v", err)
	}
	if err := idx.Add(entry("p.A", "A", KindClass, "f")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Add(entry("p.B", "B", KindClass, "f")); !errors.Is(err, ErrMaxEntriesExceeded) {
		t.Errorf("capacity: %v", err)
	}

	idx = NewSymbolIndex()
	_ = idx.Add(entry("p.A", "A", KindClass, "f"))
	if err := idx.Add(entry("p.A", "A", KindClass, "f")); !errors.Is(err, ErrDuplicateEntry) {
		t.Errorf("duplicate: %v", err)
	}
}

func TestSymbolIndex_AddBatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	idx := NewSymbolIndex()
	_ = idx.Add(entry("p.A", "A", KindClass, "f"))

	err := idx.AddBatch(ctx, []*Entry{
		entry("p.B", "B", KindClass, "f"),
		entry("p.B", "B", KindClass, "f"),
		nil,
	})
	var batchErr *BatchError
	if !errors.As(err, &batchErr) || len(batchErr.Errors) != 2 {
		t.Fatalf("expected 2 batch errors, got %v", err)
	}
	if !errors.Is(err, ErrDuplicateEntry) || !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("batch error should wrap both causes: %v", err)
	}
	if idx.Len() != 1 {
		t.Errorf("failed batch must not add anything, len=%d", idx.Len())
	}

	err = idx.AddBatch(ctx, []*Entry{entry("p.A", "A", KindClass, "f"), entry("p.C", "C", KindClass, "f")})
	if !errors.Is(err, ErrDuplicateEntry) || idx.Len() != 1 {
		t.Errorf("conflict with existing entry: err=%v len=%d", err, idx.Len())
	}

	if err := idx.AddBatch(ctx, []*Entry{entry("p.C", "C", KindClass, "f")}); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}
	if idx.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", idx.Len())
	}
}

func TestSymbolIndex_Search(t *testing.T) {
	ctx := context.Background()
	idx := NewSymbolIndex()
	err := idx.AddBatch(ctx, []*Entry{
		entry("p.Process", "Process", KindClass, "f"),
		entry("p.ProcessData", "ProcessData", KindClass, "f"),
		member("p.A", "getDatesToProcess", KindMethod),
		member("p.A", "reprocessing", KindField),
		entry("p.Unrelated", "Unrelated", KindClass, "f"),
		entry("p.Proces", "Proces", KindClass, "f"),
	})
	if err != nil {
		t.Fatalf("AddBatch: %v", err)
	}

	got, err := idx.Search(ctx, "process", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	var names []string
	for _, e := range got {
		names = append(names, e.Name)
	}
	want := []string{"Process", "ProcessData", "getDatesToProcess", "reprocessing", "Proces"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("rank %d: expected %s, got %s (all: %v)", i, want[i], names[i], names)
		}
	}

	limited, _ := idx.Search(ctx, "process", 2)
	if len(limited) != 2 {
		t.Errorf("limit not applied: %d", len(limited))
	}

	if empty, err := idx.Search(ctx, "", 0); err != nil || empty != nil {
		t.Errorf("empty query: %v %v", empty, err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := idx.Search(cancelled, "process", 0); !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
}

func TestComputeMatchScore(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		symbol    string
		wantMatch string
	}{
		{"exact", "Process", "process", "exact"},
		{"prefix", "Process", "ProcessData", "prefix"},
		{"camel case", "Process", "getDatesToProcess", "camelCase"},
		{"substring", "Process", "DetectFailedProcessing", "substring"},
		{"fuzzy", "Proccess", "Process", "fuzzy"},
		{"no match", "Process", "UnrelatedFunction", "no_match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, matchType := computeMatchScore(tt.query, toLower(tt.query), tt.symbol, toLower(tt.symbol), KindMethod)
			if matchType != tt.wantMatch {
				t.Errorf("expected %s, got %s", tt.wantMatch, matchType)
			}
			if (score < 0) != (tt.wantMatch == "no_match") {
				t.Errorf("unexpected score %d for %s", score, matchType)
			}
		})
	}

	typeScore, _ := computeMatchScore("Proc", "proc", "Processor", "processor", KindClass)
	fieldScore, _ := computeMatchScore("Proc", "proc", "Processor", "processor", KindField)
	if typeScore >= fieldScore {
		t.Errorf("types should outrank fields: %d vs %d", typeScore, fieldScore)
	}
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func TestSymbolIndex_RemoveByFileAndClear(t *testing.T) {
	idx := NewSymbolIndex()
	_ = idx.Add(entry("p.A", "A", KindClass, "a.java"))
	_ = idx.Add(entry("p.B", "B", KindClass, "b.java"))
	_ = idx.Add(&Entry{ID: "p.B#x", Name: "x", Kind: KindField, Package: "p", Owner: "p.B", FilePath: "b.java"})

	if n := idx.RemoveByFile("b.java"); n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}
	if _, ok := idx.GetByID("p.B"); ok {
		t.Error("entry still present after removal")
	}
	if len(idx.Members("p.B")) != 0 || len(idx.GetByKind(KindField)) != 0 {
		t.Error("secondary indexes not cleaned")
	}
	stats := idx.Stats()
	if stats.TotalEntries != 1 || stats.FileCount != 1 || stats.ByKind[KindClass] != 1 || stats.ByKind[KindField] != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if idx.RemoveByFile("missing.java") != 0 {
		t.Error("removing unknown file should be a no-op")
	}

	idx.Clear()
	if idx.Len() != 0 || idx.Stats().PackageCount != 0 {
		t.Error("Clear left entries behind")
	}
}

func TestSymbolIndex_Concurrent(t *testing.T) {
	ctx := context.Background()
	idx := NewSymbolIndex()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('A' + i))
			_ = idx.Add(entry("p."+id, id, KindClass, id+".java"))
			_, _ = idx.Search(ctx, id, 5)
			_ = idx.Stats()
		}(i)
	}
	wg.Wait()
	if idx.Len() != 8 {
		t.Errorf("expected 8 entries, got %d", idx.Len())
	}
}
