package catalog

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func NewDeviceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Manage registered devices",
		Long:  "List the devices known to this catalog and remove devices that are no longer referenced.",
	}

	cmd.AddCommand(NewDeviceListCommand())
	cmd.AddCommand(NewDeviceRemoveCommand())

	return cmd
}

func NewDeviceListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List registered devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			engine, store, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			accountID, err := engine.ResolveOwner(ctx)
			if err != nil {
				return err
			}

			devices, err := store.ListDevices(ctx, accountID)
			if err != nil {
				return err
			}
			for _, d := range devices {
				key := "-"
				if d.Key != nil {
					key = *d.Key
				}
				fmt.Printf("%s  %-8s %-24s key=%s\n", d.ID, d.Class, d.Name, key)
			}
			return nil
		},
	}

	return cmd
}

func NewDeviceRemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a device",
		Long:  "Removes a device record. Rejected while any storage location still references the device.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			engine, store, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			return engine.RemoveDevice(ctx, args[0])
		},
	}

	return cmd
}
