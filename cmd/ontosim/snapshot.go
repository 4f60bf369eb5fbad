package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ontosim/internal/core"
)

func newSnapshotCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Persist or inspect graph snapshots",
		Long: `Snapshots are written to the backend selected by ONTOSIM_SNAPSHOT_DRIVER
(memory, sqlite or postgres). The memory backend only lives for the
duration of one command and is mainly useful for dry runs.`,
	}
	cmd.AddCommand(newSnapshotSaveCommand(opts))
	cmd.AddCommand(newSnapshotShowCommand(opts))
	return cmd
}

func newSnapshotSaveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Load the fixtures and save the resulting graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			env, err := opts.open(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			snapshotter, err := core.OpenSnapshotter(ctx)
			if err != nil {
				return err
			}
			defer snapshotter.Close()
			if err := env.store.SaveSnapshot(ctx, snapshotter); err != nil {
				return fmt.Errorf("save snapshot: %w", err)
			}
			env.logger.Info("snapshot saved", "objects", env.report.Objects)
			return writeSummary(cmd.OutOrStdout(), opts.format, checkSummary{
				Loaded: env.report,
				Counts: countByType(env),
			})
		},
	}
}

func newSnapshotShowCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Restore the last saved graph and report object counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if len(opts.fixturePaths) > 0 {
				return fmt.Errorf("snapshot show does not accept --fixture")
			}
			env, err := opts.open(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			snapshotter, err := core.OpenSnapshotter(ctx)
			if err != nil {
				return err
			}
			defer snapshotter.Close()
			ok, err := env.store.RestoreSnapshot(ctx, snapshotter)
			if err != nil {
				return fmt.Errorf("restore snapshot: %w", err)
			}
			if !ok {
				return fmt.Errorf("no snapshot saved")
			}
			return writeSummary(cmd.OutOrStdout(), opts.format, checkSummary{Counts: countByType(env)})
		},
	}
}

func countByType(env *environment) map[string]int {
	counts := make(map[string]int)
	for _, objectType := range env.ontology.ObjectTypeNames() {
		counts[objectType] = len(env.store.GetObjectsOfType(objectType))
	}
	return counts
}
