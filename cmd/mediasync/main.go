package main

import (
	"fmt"
	"os"

	"mediasync/cmd/mediasync/cli"
	"mediasync/cmd/mediasync/cli/catalog"
	"mediasync/cmd/mediasync/cli/server"
)

var (
	version = "0.0.1-dev"
	commit  = "main"
)

func main() {
	root := cli.NewRootCommand(cli.VersionInfo{
		Version: version,
		Commit:  commit,
	})

	root.AddCommand(cli.NewVersionCommand())

	root.AddCommand(server.NewAgentCommand())
	root.AddCommand(server.NewConfigCommand())

	root.AddCommand(catalog.NewCatalogCommand())
	root.AddCommand(catalog.NewTrashCommand())
	root.AddCommand(catalog.NewDeviceCommand())

	if err := root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
