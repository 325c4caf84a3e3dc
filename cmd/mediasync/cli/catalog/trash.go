package catalog

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func NewTrashCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trash",
		Short: "Manage the trash",
		Long:  "List, restore or permanently remove tombstoned catalog entries.",
	}

	cmd.AddCommand(NewTrashListCommand())
	cmd.AddCommand(NewTrashRestoreCommand())
	cmd.AddCommand(NewTrashPurgeCommand())
	cmd.AddCommand(NewTrashEmptyCommand())

	return cmd
}

func NewTrashListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List trashed entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			engine, store, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			items, err := engine.ListTrash(ctx)
			if err != nil {
				return err
			}
			for _, item := range items {
				fmt.Printf("%s  %s  (trashed %s)\n", item.ID, item.Title, item.Deleted.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	return cmd
}

func NewTrashRestoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore a trashed entry",
		Long:  "Clears the tombstone of a trashed entry, making it active again.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			engine, store, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			return engine.RestoreItem(ctx, args[0])
		},
	}

	return cmd
}

func NewTrashPurgeCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "purge <id>",
		Short: "Permanently remove an entry",
		Long:  "Permanently removes a trashed entry. Use --force to purge an entry that is not in the trash.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			engine, store, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			return engine.PurgeItem(ctx, args[0], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Purge even when the entry is not trashed")

	return cmd
}

func NewTrashEmptyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "empty",
		Short: "Empty the trash",
		Long:  "Permanently removes every trashed entry in one operation.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			engine, store, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			purged, err := engine.EmptyTrash(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Purged %d entries\n", purged)
			return nil
		},
	}

	return cmd
}
