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
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/semantic/services/semantic/report"
)

type snapshotsOptions struct {
	dir         string
	projectRoot string
	limit       int
	json        bool
}

func newSnapshotsCmd(a *app) *cobra.Command {
	opts := &snapshotsOptions{}
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Inspect saved report snapshots",
	}
	cmd.PersistentFlags().StringVar(&opts.dir, "snapshot-dir", "", "BadgerDB snapshot directory")
	_ = cmd.MarkPersistentFlagRequired("snapshot-dir")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print JSON")

	list := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSnapshots(a, opts, func(mgr *report.SnapshotManager) error {
				projectHash := ""
				if opts.projectRoot != "" {
					projectHash = report.ProjectHash(opts.projectRoot)
				}
				metas, err := mgr.List(cmd.Context(), projectHash, opts.limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.json {
					return json.NewEncoder(out).Encode(metas)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tCREATED\tCLASSES\tMETHODS\tLABEL\tPROJECT")
				for _, m := range metas {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
						m.SnapshotID,
						time.UnixMilli(m.CreatedAtMilli).Format(time.RFC3339),
						m.ClassCount, m.MethodCount, m.Label, m.ProjectRoot)
				}
				return tw.Flush()
			})
		},
	}
	list.Flags().StringVar(&opts.projectRoot, "project-root", "", "only snapshots of this project")
	list.Flags().IntVar(&opts.limit, "limit", 0, "maximum snapshots to list (default 100)")

	diff := &cobra.Command{
		Use:   "diff <base-id> <target-id>",
		Short: "Compare two snapshots",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshots(a, opts, func(mgr *report.SnapshotManager) error {
				base, _, err := mgr.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				target, _, err := mgr.Load(cmd.Context(), args[1])
				if err != nil {
					return err
				}
				d, err := report.DiffReports(base, target)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.json {
					return json.NewEncoder(out).Encode(d)
				}
				renderDiff(out, d, newStyles(out))
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshots(a, opts, func(mgr *report.SnapshotManager) error {
				if err := mgr.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(list, diff, del)
	return cmd
}

func withSnapshots(a *app, opts *snapshotsOptions, fn func(*report.SnapshotManager) error) error {
	db, err := report.OpenSnapshotDB(opts.dir)
	if err != nil {
		return err
	}
	defer closeDB(db, a.logger)

	mgr, err := report.NewSnapshotManager(db, a.logger)
	if err != nil {
		return err
	}
	return fn(mgr)
}
