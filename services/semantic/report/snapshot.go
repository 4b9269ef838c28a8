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
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerDB key prefixes for report snapshots.
const (
	keyPrefixSnap      = "semantic:snap:"
	keyPrefixSnapIndex = "semantic:snap:index:"
	keySuffixData      = ":data"
	keySuffixMeta      = ":meta"
	keySuffixLatest    = ":latest"

	// defaultListLimit caps List when no limit is given.
	defaultListLimit = 100
)

// ErrSnapshotNotFound indicates no snapshot exists for the given ID or project.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotMetadata describes a saved report.
type SnapshotMetadata struct {
	// SnapshotID equals the report ID.
	SnapshotID string `json:"snapshot_id"`

	ProjectRoot string `json:"project_root"`

	// ProjectHash is SHA256(ProjectRoot)[:16], used for key grouping.
	ProjectHash string `json:"project_hash"`

	ReportHash     string `json:"report_hash"`
	Label          string `json:"label,omitempty"`
	CreatedAtMilli int64  `json:"created_at_milli"`
	ClassCount     int    `json:"class_count"`
	MethodCount    int    `json:"method_count"`
	SchemaVersion  string `json:"schema_version"`

	// CompressedSize is the size of the gzip payload in bytes.
	CompressedSize int64 `json:"compressed_size"`

	// ContentHash is the SHA256 of the gzip payload.
	ContentHash string `json:"content_hash"`
}

// SnapshotOption configures a SnapshotManager.
type SnapshotOption func(*SnapshotManager)

// WithRetention keeps at most n snapshots per project; older ones are
// pruned after each Save. Zero or less disables pruning.
func WithRetention(n int) SnapshotOption {
	return func(m *SnapshotManager) {
		m.retention = n
	}
}

// SnapshotManager stores reports in BadgerDB as gzip-compressed JSON.
//
// Key Schema:
//
//	semantic:snap:{projectHash}:{snapshotID}:data -> gzip(JSON(Report))
//	semantic:snap:{projectHash}:{snapshotID}:meta -> JSON(SnapshotMetadata)
//	semantic:snap:{projectHash}:latest            -> snapshotID
//	semantic:snap:index:{snapshotID}              -> projectHash
//
// Thread Safety:
//
//	Safe for concurrent use. BadgerDB handles its own concurrency control.
type SnapshotManager struct {
	db        *badger.DB
	logger    *slog.Logger
	retention int
}

// NewSnapshotManager creates a manager over an opened BadgerDB. The caller
// owns db and closes it.
func NewSnapshotManager(db *badger.DB, logger *slog.Logger, opts ...SnapshotOption) (*SnapshotManager, error) {
	if db == nil {
		return nil, fmt.Errorf("badger db must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	m := &SnapshotManager{db: db, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// OpenSnapshotDB opens (creating if needed) an on-disk BadgerDB at dir.
func OpenSnapshotDB(dir string) (*badger.DB, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store %s: %w", dir, err)
	}
	return db, nil
}

// Save persists rep and moves the project's latest pointer to it.
//
// Outputs:
//
//	*SnapshotMetadata - Metadata of the stored snapshot.
//	error - Non-nil if rep is invalid, encoding fails or the write fails.
func (m *SnapshotManager) Save(ctx context.Context, rep *Report, label string) (*SnapshotMetadata, error) {
	if rep == nil {
		return nil, fmt.Errorf("report must not be nil")
	}
	if rep.ID == "" {
		return nil, fmt.Errorf("report has no ID")
	}
	_, span := startSnapshotSpan(ctx, "Save", rep.ID)
	defer span.End()

	meta, err := m.save(rep, label)
	recordSnapshotOp(span, "save", err)
	if err != nil {
		return nil, err
	}

	m.logger.Info("snapshot saved",
		slog.String("snapshot_id", meta.SnapshotID),
		slog.String("project_root", meta.ProjectRoot),
		slog.Int("class_count", meta.ClassCount),
		slog.Int64("compressed_size", meta.CompressedSize))

	if m.retention > 0 {
		if pruned, err := m.prune(ctx, meta.ProjectHash); err != nil {
			m.logger.Warn("snapshot pruning failed", slog.String("error", err.Error()))
		} else if pruned > 0 {
			m.logger.Info("snapshots pruned", slog.Int("count", pruned), slog.String("project_hash", meta.ProjectHash))
		}
	}
	return meta, nil
}

func (m *SnapshotManager) save(rep *Report, label string) (*SnapshotMetadata, error) {
	compressed, err := EncodeReport(rep)
	if err != nil {
		return nil, err
	}

	projectHash := ProjectHash(rep.ProjectRoot)
	meta := &SnapshotMetadata{
		SnapshotID:     rep.ID,
		ProjectRoot:    rep.ProjectRoot,
		ProjectHash:    projectHash,
		ReportHash:     rep.Hash,
		Label:          label,
		CreatedAtMilli: time.Now().UnixMilli(),
		ClassCount:     rep.Stats.Classes,
		MethodCount:    rep.Stats.Methods,
		SchemaVersion:  SchemaVersion,
		CompressedSize: int64(len(compressed)),
		ContentHash:    hashBytes(compressed),
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(dataKey(projectHash, rep.ID), compressed); err != nil {
			return fmt.Errorf("storing data: %w", err)
		}
		if err := txn.Set(metaKey(projectHash, rep.ID), metaJSON); err != nil {
			return fmt.Errorf("storing metadata: %w", err)
		}
		if err := txn.Set(latestKey(projectHash), []byte(rep.ID)); err != nil {
			return fmt.Errorf("updating latest pointer: %w", err)
		}
		if err := txn.Set([]byte(keyPrefixSnapIndex+rep.ID), []byte(projectHash)); err != nil {
			return fmt.Errorf("storing reverse index: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("writing snapshot to badger: %w", err)
	}
	return meta, nil
}

// Load retrieves a snapshot by ID.
//
// Outputs:
//
//	*Report - The stored report.
//	*SnapshotMetadata - Its metadata.
//	error - ErrSnapshotNotFound, an integrity failure or a decoding error.
func (m *SnapshotManager) Load(ctx context.Context, snapshotID string) (*Report, *SnapshotMetadata, error) {
	if snapshotID == "" {
		return nil, nil, fmt.Errorf("snapshot ID must not be empty")
	}
	_, span := startSnapshotSpan(ctx, "Load", snapshotID)
	defer span.End()

	rep, meta, err := m.load(snapshotID)
	recordSnapshotOp(span, "load", err)
	return rep, meta, err
}

func (m *SnapshotManager) load(snapshotID string) (*Report, *SnapshotMetadata, error) {
	projectHash, err := m.getProjectHash(snapshotID)
	if err != nil {
		return nil, nil, fmt.Errorf("looking up snapshot %s: %w", snapshotID, err)
	}
	return m.loadByKeys(projectHash, snapshotID)
}

// LoadLatest loads the newest snapshot of the project with projectHash.
func (m *SnapshotManager) LoadLatest(ctx context.Context, projectHash string) (*Report, *SnapshotMetadata, error) {
	if projectHash == "" {
		return nil, nil, fmt.Errorf("project hash must not be empty")
	}
	_, span := startSnapshotSpan(ctx, "LoadLatest", "")
	defer span.End()

	var snapshotID string
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(latestKey(projectHash))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			snapshotID = string(val)
			return nil
		})
	})
	if err != nil {
		err = fmt.Errorf("reading latest pointer for %s: %w", projectHash, notFound(err))
		recordSnapshotOp(span, "load", err)
		return nil, nil, err
	}

	rep, meta, err := m.loadByKeys(projectHash, snapshotID)
	recordSnapshotOp(span, "load", err)
	return rep, meta, err
}

// List returns snapshot metadata newest first, optionally filtered by
// project hash. A limit of zero or less means 100.
func (m *SnapshotManager) List(ctx context.Context, projectHash string, limit int) ([]*SnapshotMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	results, err := m.listAll(projectHash)
	if err != nil {
		return nil, err
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *SnapshotManager) listAll(projectHash string) ([]*SnapshotMetadata, error) {
	prefix := keyPrefixSnap
	if projectHash != "" {
		prefix = keyPrefixSnap + projectHash + ":"
	}

	var results []*SnapshotMetadata
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if !strings.HasSuffix(key, keySuffixMeta) {
				continue
			}
			var meta SnapshotMetadata
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				m.logger.Warn("skipping corrupt metadata", slog.String("key", key), slog.Any("error", err))
				continue
			}
			results = append(results, &meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].CreatedAtMilli != results[j].CreatedAtMilli {
			return results[i].CreatedAtMilli > results[j].CreatedAtMilli
		}
		return results[i].SnapshotID > results[j].SnapshotID
	})
	return results, nil
}

// Delete removes a snapshot. If it was the project's latest, the pointer
// moves to the next newest snapshot, or is removed when none remain.
func (m *SnapshotManager) Delete(ctx context.Context, snapshotID string) error {
	if snapshotID == "" {
		return fmt.Errorf("snapshot ID must not be empty")
	}
	_, span := startSnapshotSpan(ctx, "Delete", snapshotID)
	defer span.End()

	err := m.delete(snapshotID)
	recordSnapshotOp(span, "delete", err)
	if err != nil {
		return err
	}
	m.logger.Info("snapshot deleted", slog.String("snapshot_id", snapshotID))
	return nil
}

func (m *SnapshotManager) delete(snapshotID string) error {
	projectHash, err := m.getProjectHash(snapshotID)
	if err != nil {
		return fmt.Errorf("looking up snapshot %s: %w", snapshotID, err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		for _, key := range [][]byte{
			dataKey(projectHash, snapshotID),
			metaKey(projectHash, snapshotID),
			[]byte(keyPrefixSnapIndex + snapshotID),
		} {
			if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("deleting %s: %w", key, err)
			}
		}

		item, err := txn.Get(latestKey(projectHash))
		if err != nil {
			return nil
		}
		var current string
		_ = item.Value(func(val []byte) error {
			current = string(val)
			return nil
		})
		if current == snapshotID {
			if err := txn.Delete(latestKey(projectHash)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("deleting latest pointer: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", snapshotID, err)
	}
	return m.repointLatest(projectHash)
}

// repointLatest sets the latest pointer to the newest remaining snapshot
// when the pointer is missing.
func (m *SnapshotManager) repointLatest(projectHash string) error {
	remaining, err := m.listAll(projectHash)
	if err != nil || len(remaining) == 0 {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(latestKey(projectHash)); err == nil {
			return nil
		}
		return txn.Set(latestKey(projectHash), []byte(remaining[0].SnapshotID))
	})
}

// prune deletes the oldest snapshots of a project beyond the retention.
func (m *SnapshotManager) prune(ctx context.Context, projectHash string) (int, error) {
	all, err := m.listAll(projectHash)
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, meta := range all[min(len(all), m.retention):] {
		if err := ctx.Err(); err != nil {
			return pruned, err
		}
		if err := m.delete(meta.SnapshotID); err != nil {
			snapshotOps.WithLabelValues("prune", "failure").Inc()
			return pruned, err
		}
		snapshotOps.WithLabelValues("prune", "success").Inc()
		pruned++
	}
	return pruned, nil
}

func (m *SnapshotManager) loadByKeys(projectHash, snapshotID string) (*Report, *SnapshotMetadata, error) {
	var compressed, metaJSON []byte
	err := m.db.View(func(txn *badger.Txn) error {
		dataItem, err := txn.Get(dataKey(projectHash, snapshotID))
		if err != nil {
			return fmt.Errorf("reading data for %s: %w", snapshotID, notFound(err))
		}
		if compressed, err = dataItem.ValueCopy(nil); err != nil {
			return fmt.Errorf("copying data for %s: %w", snapshotID, err)
		}
		metaItem, err := txn.Get(metaKey(projectHash, snapshotID))
		if err != nil {
			return fmt.Errorf("reading metadata for %s: %w", snapshotID, notFound(err))
		}
		if metaJSON, err = metaItem.ValueCopy(nil); err != nil {
			return fmt.Errorf("copying metadata for %s: %w", snapshotID, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var meta SnapshotMetadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling metadata for %s: %w", snapshotID, err)
	}
	if actual := hashBytes(compressed); meta.ContentHash != "" && meta.ContentHash != actual {
		return nil, nil, fmt.Errorf("integrity check failed for %s: expected hash %s, got %s", snapshotID, meta.ContentHash, actual)
	}

	rep, err := DecodeReport(compressed)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding snapshot %s: %w", snapshotID, err)
	}
	return rep, &meta, nil
}

func (m *SnapshotManager) getProjectHash(snapshotID string) (string, error) {
	var projectHash string
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefixSnapIndex + snapshotID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			projectHash = string(val)
			return nil
		})
	})
	if err != nil {
		return "", notFound(err)
	}
	return projectHash, nil
}

// notFound maps badger's missing-key error to ErrSnapshotNotFound.
func notFound(err error) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrSnapshotNotFound
	}
	return err
}

// ProjectHash returns SHA256(projectRoot)[:16], the key prefix of a
// project's snapshots.
func ProjectHash(projectRoot string) string {
	return hashString(projectRoot)[:16]
}

func dataKey(projectHash, id string) []byte {
	return []byte(keyPrefixSnap + projectHash + ":" + id + keySuffixData)
}

func metaKey(projectHash, id string) []byte {
	return []byte(keyPrefixSnap + projectHash + ":" + id + keySuffixMeta)
}

func latestKey(projectHash string) []byte {
	return []byte(keyPrefixSnap + projectHash + keySuffixLatest)
}

// EncodeReport serializes rep as gzip-compressed JSON.
func EncodeReport(rep *Report) ([]byte, error) {
	data, err := json.Marshal(rep)
	if err != nil {
		return nil, fmt.Errorf("marshaling report: %w", err)
	}
	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := gw.Write(data); err != nil {
		return nil, fmt.Errorf("compressing report: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeReport reverses EncodeReport and checks the schema version.
func DecodeReport(compressed []byte) (*Report, error) {
	gr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("decompressing report: %w", err)
	}
	defer gr.Close()

	data, err := io.ReadAll(gr)
	if err != nil {
		return nil, fmt.Errorf("reading decompressed report: %w", err)
	}
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("unmarshaling report: %w", err)
	}
	if rep.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("unsupported report schema %q", rep.SchemaVersion)
	}
	return &rep, nil
}
