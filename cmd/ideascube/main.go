package main

import (
	"fmt"
	"os"

	"github.com/mwantia/ideascube/cmd/ideascube/cli"
	"github.com/mwantia/ideascube/cmd/ideascube/cli/admin"
	"github.com/mwantia/ideascube/cmd/ideascube/cli/server"
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

	root.AddCommand(admin.NewBackupCommand())
	root.AddCommand(admin.NewDBCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
