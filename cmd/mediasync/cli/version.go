package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// VersionInfo carries the build identity stamped in at link time
type VersionInfo struct {
	Version string
	Commit  string
}

func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(cmd.Root().Version)
		},
	}

	return cmd
}
