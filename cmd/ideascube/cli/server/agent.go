package server

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mwantia/ideascube/cmd/ideascube/cli"
	"github.com/mwantia/ideascube/internal/agent"
)

func NewAgentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Start the ideascube agent",
		Long:  `Start the ideascube agent: open and migrate both databases, then serve the admin API until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig()
			if err != nil {
				return err
			}

			return agent.NewAgent(cfg).Serve(context.Background())
		},
	}

	return cmd
}
