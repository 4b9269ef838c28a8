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
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Default configuration values.
const (
	// DefaultMaxEntries is the default capacity of an index.
	DefaultMaxEntries = 1_000_000

	// searchCheckInterval is how often Search checks for cancellation.
	searchCheckInterval = 1000
)

// Options configures SymbolIndex limits.
type Options struct {
	// MaxEntries is the capacity. Adding beyond it returns
	// ErrMaxEntriesExceeded.
	// Default: 1,000,000
	MaxEntries int
}

// Option is a functional option for configuring SymbolIndex.
type Option func(*Options)

// WithMaxEntries sets the index capacity.
func WithMaxEntries(max int) Option {
	return func(o *Options) {
		o.MaxEntries = max
	}
}

// Stats describes index contents.
type Stats struct {
	TotalEntries int          `json:"total_entries"`
	ByKind       map[Kind]int `json:"by_kind"`
	FileCount    int          `json:"file_count"`
	PackageCount int          `json:"package_count"`
	MaxEntries   int          `json:"max_entries"`
}

// SymbolIndex provides O(1) lookups of entries by ID, name, file, kind,
// package and owner, plus ranked fuzzy search over names.
//
// Thread Safety:
//
//	SymbolIndex is safe for concurrent use. Entries must not be mutated
//	after they are added.
type SymbolIndex struct {
	mu sync.RWMutex

	byID      map[string]*Entry
	byName    map[string][]*Entry
	byFile    map[string][]*Entry
	byKind    map[Kind][]*Entry
	byPackage map[string][]*Entry
	byOwner   map[string][]*Entry

	kindCounts map[Kind]int

	options Options
}

// NewSymbolIndex creates an empty index.
func NewSymbolIndex(opts ...Option) *SymbolIndex {
	options := Options{MaxEntries: DefaultMaxEntries}
	for _, opt := range opts {
		opt(&options)
	}
	return &SymbolIndex{
		byID:       make(map[string]*Entry),
		byName:     make(map[string][]*Entry),
		byFile:     make(map[string][]*Entry),
		byKind:     make(map[Kind][]*Entry),
		byPackage:  make(map[string][]*Entry),
		byOwner:    make(map[string][]*Entry),
		kindCounts: make(map[Kind]int),
		options:    options,
	}
}

// Add adds one entry.
//
// Errors:
//
//	ErrInvalidEntry - Entry failed validation
//	ErrDuplicateEntry - An entry with the same ID exists
//	ErrMaxEntriesExceeded - Index is at capacity
func (idx *SymbolIndex) Add(entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidEntry)
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(idx.byID) >= idx.options.MaxEntries {
		return ErrMaxEntriesExceeded
	}
	if _, exists := idx.byID[entry.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, entry.ID)
	}
	idx.addLocked(entry)
	entriesGauge.Set(float64(len(idx.byID)))
	return nil
}

// AddBatch adds every entry or none.
//
// Description:
//
//	All entries are validated and checked for duplicates, inside the batch
//	and against the index, before anything is written.
//
// Errors:
//
//	*BatchError - Every validation and duplicate problem found
//	ErrMaxEntriesExceeded - The batch does not fit
func (idx *SymbolIndex) AddBatch(ctx context.Context, entries []*Entry) error {
	_, span := startOperationSpan(ctx, "AddBatch")
	defer span.End()
	start := time.Now()

	err := idx.addBatch(entries)
	setOperationSpanResult(span, len(entries), err == nil)
	recordOperationMetrics("add_batch", time.Since(start), err == nil)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (idx *SymbolIndex) addBatch(entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}

	var errs []error
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		if e == nil {
			errs = append(errs, fmt.Errorf("entry[%d]: %w: entry is nil", i, ErrInvalidEntry))
			continue
		}
		if err := e.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("entry[%d]: %w: %v", i, ErrInvalidEntry, err))
			continue
		}
		if first, exists := seen[e.ID]; exists {
			errs = append(errs, fmt.Errorf("entry[%d]: %w in batch (same as entry[%d]): %s",
				i, ErrDuplicateEntry, first, e.ID))
		} else {
			seen[e.ID] = i
		}
	}
	if len(errs) > 0 {
		return &BatchError{Errors: errs}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(idx.byID)+len(entries) > idx.options.MaxEntries {
		return ErrMaxEntriesExceeded
	}
	for i, e := range entries {
		if _, exists := idx.byID[e.ID]; exists {
			errs = append(errs, fmt.Errorf("entry[%d]: %w: %s", i, ErrDuplicateEntry, e.ID))
		}
	}
	if len(errs) > 0 {
		return &BatchError{Errors: errs}
	}

	for _, e := range entries {
		idx.addLocked(e)
	}
	entriesGauge.Set(float64(len(idx.byID)))
	return nil
}

// addLocked writes e to every map. Caller must hold idx.mu.
func (idx *SymbolIndex) addLocked(e *Entry) {
	idx.byID[e.ID] = e
	idx.byName[e.Name] = append(idx.byName[e.Name], e)
	idx.byFile[e.FilePath] = append(idx.byFile[e.FilePath], e)
	idx.byKind[e.Kind] = append(idx.byKind[e.Kind], e)
	idx.byPackage[e.Package] = append(idx.byPackage[e.Package], e)
	if e.Owner != "" {
		idx.byOwner[e.Owner] = append(idx.byOwner[e.Owner], e)
	}
	idx.kindCounts[e.Kind]++
}

// GetByID returns the entry with the given ID.
func (idx *SymbolIndex) GetByID(id string) (*Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	e, ok := idx.byID[id]
	return e, ok
}

// GetByName returns a copy of the entries sharing name.
func (idx *SymbolIndex) GetByName(name string) []*Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return copyEntries(idx.byName[name])
}

// GetByFile returns a copy of the entries declared in filePath.
func (idx *SymbolIndex) GetByFile(filePath string) []*Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return copyEntries(idx.byFile[filePath])
}

// GetByKind returns a copy of the entries of one kind.
func (idx *SymbolIndex) GetByKind(kind Kind) []*Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return copyEntries(idx.byKind[kind])
}

// GetByPackage returns a copy of the entries in a package.
func (idx *SymbolIndex) GetByPackage(pkg string) []*Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return copyEntries(idx.byPackage[pkg])
}

// Members returns a copy of the entries owned by the class ownerFQN.
func (idx *SymbolIndex) Members(ownerFQN string) []*Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return copyEntries(idx.byOwner[ownerFQN])
}

func copyEntries(src []*Entry) []*Entry {
	if len(src) == 0 {
		return nil
	}
	out := make([]*Entry, len(src))
	copy(out, src)
	return out
}

// Search finds entries whose name matches query.
//
// Description:
//
//	Matching is case-insensitive. Results are ranked exact, then prefix,
//	then camelCase word boundary, then substring, then fuzzy (edit
//	distance within a third of the query length). Ties are broken by match
//	position, length difference, kind and finally ID, so results are
//	deterministic.
//
// Inputs:
//
//	ctx - Context for cancellation, checked periodically.
//	query - Search string. Empty returns nil.
//	limit - Maximum results; 0 means no limit.
//
// Outputs:
//
//	[]*Entry - Matches by relevance.
//	error - Non-nil if ctx was cancelled.
func (idx *SymbolIndex) Search(ctx context.Context, query string, limit int) ([]*Entry, error) {
	ctx, span := startOperationSpan(ctx, "Search")
	defer span.End()
	start := time.Now()

	if err := ctx.Err(); err != nil {
		setOperationSpanResult(span, 0, false)
		recordOperationMetrics("search", time.Since(start), false)
		return nil, err
	}
	if query == "" {
		setOperationSpanResult(span, 0, true)
		recordOperationMetrics("search", time.Since(start), true)
		return nil, nil
	}

	queryLower := strings.ToLower(query)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	type scored struct {
		entry *Entry
		score int
	}
	var results []scored
	count := 0
	for _, e := range idx.byID {
		count++
		if count%searchCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				setOperationSpanResult(span, 0, false)
				recordOperationMetrics("search", time.Since(start), false)
				return nil, err
			}
		}
		score, _ := computeMatchScore(query, queryLower, e.Name, strings.ToLower(e.Name), e.Kind)
		if score >= 0 {
			results = append(results, scored{entry: e, score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score < results[j].score
		}
		return results[i].entry.ID < results[j].entry.ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	out := make([]*Entry, len(results))
	for i, r := range results {
		out[i] = r.entry
	}

	setOperationSpanResult(span, len(out), true)
	recordOperationMetrics("search", time.Since(start), true)
	searchResults.Observe(float64(len(out)))
	return out, nil
}

// computeMatchScore scores name against query; lower is better and -1
// means no match.
//
//	score = base*10000 + position*100 + length*10 + kind
//
// Base scores: 0 exact, 1 prefix, 2 camelCase, 3 substring, 4 fuzzy.
func computeMatchScore(query, queryLower, name, nameLower string, kind Kind) (int, string) {
	if nameLower == queryLower {
		return getKindPenalty(kind), "exact"
	}

	var base, pos int
	var matchType string
	switch {
	case strings.HasPrefix(nameLower, queryLower):
		base, matchType = 1, "prefix"
	case findCamelCaseWordMatch(name, query) >= 0:
		base, matchType, pos = 2, "camelCase", findCamelCaseWordMatch(name, query)
	case strings.Contains(nameLower, queryLower):
		base, matchType, pos = 3, "substring", strings.Index(nameLower, queryLower)
	default:
		threshold := max(2, len(queryLower)/3)
		if levenshteinDistance(nameLower, queryLower) > threshold {
			return -1, "no_match"
		}
		base, matchType = 4, "fuzzy"
	}

	positionPenalty := 0
	if len(name) > 0 && pos > 0 {
		positionPenalty = min(99, pos*100/len(name))
	}
	lengthPenalty := min(99, abs(len(name)-len(query)))

	return base*10000 + positionPenalty*100 + lengthPenalty*10 + getKindPenalty(kind), matchType
}

// findCamelCaseWordMatch returns where query matches a whole camelCase word
// of name, or -1. "Process" matches "getDatesToProcess" at 11 but not
// "Unprocessed".
func findCamelCaseWordMatch(name, query string) int {
	if len(query) == 0 || len(name) == 0 {
		return -1
	}
	queryLower := strings.ToLower(query)
	for i := 0; i+len(query) <= len(name); i++ {
		boundary := i == 0 || (isUpper(name[i]) && !isUpper(name[i-1]))
		if !boundary || strings.ToLower(name[i:i+len(query)]) != queryLower {
			continue
		}
		end := i + len(query)
		if end == len(name) || isUpper(name[end]) || !isLetter(name[end]) {
			return i
		}
	}
	return -1
}

// getKindPenalty ranks types ahead of methods ahead of fields.
func getKindPenalty(kind Kind) int {
	switch kind {
	case KindClass, KindInterface, KindEnum, KindRecord:
		return 0
	case KindMethod:
		return 1
	case KindAnnotation, KindConstructor:
		return 2
	case KindField:
		return 3
	default:
		return 5
	}
}

func isUpper(c byte) bool {
	return c >= 'A' && c <= 'Z'
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// levenshteinDistance is the edit distance between a and b, two rows at a time.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// RemoveByFile drops every entry declared in filePath and returns how
// many were removed.
func (idx *SymbolIndex) RemoveByFile(filePath string) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entries := idx.byFile[filePath]
	for _, e := range entries {
		delete(idx.byID, e.ID)
		removeFrom(idx.byName, e.Name, e)
		removeFrom(idx.byPackage, e.Package, e)
		if e.Owner != "" {
			removeFrom(idx.byOwner, e.Owner, e)
		}
		idx.byKind[e.Kind] = removeEntry(idx.byKind[e.Kind], e)
		if len(idx.byKind[e.Kind]) == 0 {
			delete(idx.byKind, e.Kind)
		}
		idx.kindCounts[e.Kind]--
		if idx.kindCounts[e.Kind] == 0 {
			delete(idx.kindCounts, e.Kind)
		}
	}
	delete(idx.byFile, filePath)
	entriesGauge.Set(float64(len(idx.byID)))
	return len(entries)
}

func removeFrom(m map[string][]*Entry, key string, e *Entry) {
	m[key] = removeEntry(m[key], e)
	if len(m[key]) == 0 {
		delete(m, key)
	}
}

// removeEntry removes e by pointer, preserving order.
func removeEntry(slice []*Entry, e *Entry) []*Entry {
	for i, s := range slice {
		if s == e {
			return append(slice[:i:i], slice[i+1:]...)
		}
	}
	return slice
}

// Clear empties the index.
func (idx *SymbolIndex) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.byID = make(map[string]*Entry)
	idx.byName = make(map[string][]*Entry)
	idx.byFile = make(map[string][]*Entry)
	idx.byKind = make(map[Kind][]*Entry)
	idx.byPackage = make(map[string][]*Entry)
	idx.byOwner = make(map[string][]*Entry)
	idx.kindCounts = make(map[Kind]int)
}

// Len returns the number of entries.
func (idx *SymbolIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.byID)
}

// Stats returns current counts.
func (idx *SymbolIndex) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	byKind := make(map[Kind]int, len(idx.kindCounts))
	for k, v := range idx.kindCounts {
		byKind[k] = v
	}
	return Stats{
		TotalEntries: len(idx.byID),
		ByKind:       byKind,
		FileCount:    len(idx.byFile),
		PackageCount: len(idx.byPackage),
		MaxEntries:   idx.options.MaxEntries,
	}
}
