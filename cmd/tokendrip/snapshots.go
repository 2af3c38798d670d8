package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tokendrip/internal/resume"
)

func newSnapshotsCommand() *cobra.Command {
	snapshotsCmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Inspect and manage resume snapshots",
	}
	snapshotsCmd.PersistentFlags().String("snapshot-dir", "./data/snapshots", "resume snapshot directory")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := snapshotStore(cmd)
			if err != nil {
				return err
			}
			ids, err := store.List()
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Println("no snapshots")
				return nil
			}
			for _, id := range ids {
				snap, err := store.Load(id)
				if err != nil {
					fmt.Printf("%s  (unreadable: %v)\n", id, err)
					continue
				}
				fmt.Printf("%s  cursor=%d records=%d completed=%d failed=%d\n",
					id, snap.LastProcessedIndex, len(snap.Records),
					snap.Summary.Completed, snap.Summary.Failed)
			}
			return nil
		},
	}
	snapshotsCmd.AddCommand(listCmd)

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest snapshots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := snapshotStore(cmd)
			if err != nil {
				return err
			}
			keep, _ := cmd.Flags().GetInt("keep")
			return store.Prune(keep)
		},
	}
	pruneCmd.Flags().Int("keep", 5, "number of snapshots to keep")
	snapshotsCmd.AddCommand(pruneCmd)

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := snapshotStore(cmd)
			if err != nil {
				return err
			}
			return store.Clear()
		},
	}
	snapshotsCmd.AddCommand(clearCmd)

	return snapshotsCmd
}

func snapshotStore(cmd *cobra.Command) (*resume.Store, error) {
	dir, err := cmd.Flags().GetString("snapshot-dir")
	if err != nil {
		return nil, err
	}
	return resume.NewStore(dir, nil), nil
}
