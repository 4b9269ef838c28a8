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
	"fmt"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testReport(id, root string) *Report {
	classes := []ClassReport{{
		FQN:      "p.A",
		Name:     "A",
		Kind:     "class",
		Package:  "p",
		FilePath: "p/A.java",
		Methods: []MethodReport{
			{ID: "p.A#run()", Name: "run", Signature: "void run()", Overridden: "true"},
		},
	}}
	rep := &Report{
		ID:            id,
		ProjectRoot:   root,
		SchemaVersion: SchemaVersion,
		Classes:       classes,
		Hash:          ReportHash(classes),
	}
	rep.Stats = computeStats(rep, 1)
	return rep
}

func TestNewSnapshotManager_RejectsNil(t *testing.T) {
	_, err := NewSnapshotManager(nil, slog.Default())
	assert.Error(t, err)
	_, err = NewSnapshotManager(openTestDB(t), nil)
	assert.Error(t, err)
}

func TestSnapshotManager_SaveLoad(t *testing.T) {
	ctx := context.Background()
	mgr, err := NewSnapshotManager(openTestDB(t), slog.Default())
	require.NoError(t, err)

	rep := testReport("snap1", "/proj")
	meta, err := mgr.Save(ctx, rep, "baseline")
	require.NoError(t, err)
	assert.Equal(t, "snap1", meta.SnapshotID)
	assert.Equal(t, ProjectHash("/proj"), meta.ProjectHash)
	assert.Equal(t, "baseline", meta.Label)
	assert.Equal(t, 1, meta.ClassCount)
	assert.Equal(t, 1, meta.MethodCount)
	assert.Positive(t, meta.CompressedSize)
	assert.Len(t, meta.ContentHash, 64)

	loaded, loadedMeta, err := mgr.Load(ctx, "snap1")
	require.NoError(t, err)
	assert.Equal(t, rep, loaded)
	assert.Equal(t, meta, loadedMeta)

	latest, _, err := mgr.LoadLatest(ctx, ProjectHash("/proj"))
	require.NoError(t, err)
	assert.Equal(t, "snap1", latest.ID)
}

func TestSnapshotManager_Errors(t *testing.T) {
	ctx := context.Background()
	mgr, err := NewSnapshotManager(openTestDB(t), slog.Default())
	require.NoError(t, err)

	_, _, err = mgr.Load(ctx, "nope")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	_, _, err = mgr.LoadLatest(ctx, ProjectHash("/nothing"))
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	assert.ErrorIs(t, mgr.Delete(ctx, "nope"), ErrSnapshotNotFound)

	_, err = mgr.Save(ctx, nil, "")
	assert.Error(t, err)
	_, err = mgr.Save(ctx, &Report{}, "")
	assert.Error(t, err)
	_, _, err = mgr.Load(ctx, "")
	assert.Error(t, err)
}

func TestSnapshotManager_IntegrityCheck(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	mgr, err := NewSnapshotManager(db, slog.Default())
	require.NoError(t, err)

	_, err = mgr.Save(ctx, testReport("snap1", "/proj"), "")
	require.NoError(t, err)

	other, err := EncodeReport(testReport("other", "/proj"))
	require.NoError(t, err)
	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		return txn.Set(dataKey(ProjectHash("/proj"), "snap1"), other)
	}))

	_, _, err = mgr.Load(ctx, "snap1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integrity check failed")
}

func TestSnapshotManager_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	mgr, err := NewSnapshotManager(openTestDB(t), slog.Default())
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		_, err := mgr.Save(ctx, testReport(fmt.Sprintf("a%d", i), "/a"), "")
		require.NoError(t, err)
	}
	_, err = mgr.Save(ctx, testReport("b1", "/b"), "")
	require.NoError(t, err)

	all, err := mgr.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	projA, err := mgr.List(ctx, ProjectHash("/a"), 0)
	require.NoError(t, err)
	require.Len(t, projA, 3)
	for i := 1; i < len(projA); i++ {
		assert.GreaterOrEqual(t, projA[i-1].CreatedAtMilli, projA[i].CreatedAtMilli)
	}

	limited, err := mgr.List(ctx, ProjectHash("/a"), 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	// Deleting the latest moves the pointer to a remaining snapshot.
	require.NoError(t, mgr.Delete(ctx, "a3"))
	latest, _, err := mgr.LoadLatest(ctx, ProjectHash("/a"))
	require.NoError(t, err)
	assert.Contains(t, []string{"a1", "a2"}, latest.ID)

	require.NoError(t, mgr.Delete(ctx, "a1"))
	require.NoError(t, mgr.Delete(ctx, "a2"))
	_, _, err = mgr.LoadLatest(ctx, ProjectHash("/a"))
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	remaining, err := mgr.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "b1", remaining[0].SnapshotID)
}

func TestSnapshotManager_Retention(t *testing.T) {
	ctx := context.Background()
	mgr, err := NewSnapshotManager(openTestDB(t), slog.Default(), WithRetention(2))
	require.NoError(t, err)

	for i := 1; i <= 4; i++ {
		_, err := mgr.Save(ctx, testReport(fmt.Sprintf("s%d", i), "/proj"), "")
		require.NoError(t, err)
	}

	kept, err := mgr.List(ctx, ProjectHash("/proj"), 0)
	require.NoError(t, err)
	assert.Len(t, kept, 2)

	latest, _, err := mgr.LoadLatest(ctx, ProjectHash("/proj"))
	require.NoError(t, err)
	assert.Equal(t, "s4", latest.ID)
}

func TestDecodeReport_RejectsOtherSchema(t *testing.T) {
	rep := testReport("x", "/proj")
	rep.SchemaVersion = "0"
	data, err := EncodeReport(rep)
	require.NoError(t, err)

	_, err = DecodeReport(data)
	assert.Error(t, err)

	_, err = DecodeReport([]byte("not gzip"))
	assert.Error(t, err)
}
