package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mediasync/pkg/catalog"
)

func NewCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the media catalog",
		Long:  "List the catalog and move whole-catalog snapshots between installations.",
	}

	cmd.AddCommand(NewCatalogListCommand())
	cmd.AddCommand(NewCatalogExportCommand())
	cmd.AddCommand(NewCatalogImportCommand())

	return cmd
}

func NewCatalogListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List catalog entries",
		Long:  "List all active catalog entries together with the refreshed availability of their local files.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			engine, store, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			items, err := engine.ListCatalog(ctx)
			if err != nil {
				return err
			}

			for _, item := range items {
				fmt.Printf("%s  %s\n", item.ID, item.Title)
				for _, loc := range item.Locations {
					marker := " "
					if loc.Available {
						marker = "*"
					}
					fmt.Printf("  %s %-6s %s\n", marker, loc.Kind, loc.Path)
				}
			}
			return nil
		},
	}

	return cmd
}

func NewCatalogExportCommand() *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export the catalog to a snapshot file",
		Long:  "Export the whole catalog (or everything updated since a timestamp) as a JSON snapshot for another installation to import.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			engine, store, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			var cursor *time.Time
			if since != "" {
				t, err := time.Parse(time.RFC3339, since)
				if err != nil {
					return fmt.Errorf("invalid --since timestamp: %w", err)
				}
				cursor = &t
			}

			snap, err := engine.Export(ctx, cursor)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal snapshot: %w", err)
			}
			if err := os.WriteFile(args[0], data, 0644); err != nil {
				return fmt.Errorf("failed to write snapshot file %s: %w", args[0], err)
			}

			fmt.Printf("Exported %d items to %s\n", len(snap.MediaItems), args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "only export entries updated after this RFC 3339 timestamp")

	return cmd
}

func NewCatalogImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a snapshot file",
		Long:  "Merge an exported snapshot into the local catalog without cascading deletes; existing rows are overwritten by the incoming values.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			engine, store, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read snapshot file %s: %w", args[0], err)
			}

			var snap catalog.Snapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				return fmt.Errorf("failed to parse snapshot file %s: %w", args[0], err)
			}

			result, err := engine.Import(ctx, snap)
			if err != nil {
				return err
			}

			fmt.Printf("Imported %d devices, %d folders, %d tags, %d items, %d locations (%d skipped), %d links (%d skipped)\n",
				result.Devices, result.Folders, result.Tags, result.Items,
				result.Locations, result.SkippedLocations, result.Links, result.SkippedLinks)
			return nil
		},
	}

	return cmd
}
