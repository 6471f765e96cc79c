package admin

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mwantia/ideascube/cmd/ideascube/cli"
	"github.com/mwantia/ideascube/internal/agent"
	"github.com/mwantia/ideascube/pkg/db/router"
	"github.com/mwantia/ideascube/pkg/db/store"
	"github.com/mwantia/ideascube/pkg/log"
)

func NewDBCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the databases",
		Long:  "Migrate the durable and transient databases and maintain the search index.",
	}

	cmd.AddCommand(NewDBMigrateCommand())
	cmd.AddCommand(NewDBStatusCommand())
	cmd.AddCommand(NewDBRollbackCommand())
	cmd.AddCommand(NewDBReindexCommand())

	return cmd
}

// withStore opens both databases, applying pending migrations, and closes
// them once fn returns.
func withStore(fn func(ctx context.Context, s *store.RoutedStore) error) error {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	s, err := agent.OpenStore(ctx, cfg, log.NewLoggerService("ideascube", cfg.Log))
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(ctx, s)
}

func NewDBMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations on every backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s *store.RoutedStore) error {
				fmt.Fprintln(cmd.OutOrStdout(), "Databases are up to date.")
				return nil
			})
		},
	}
}

func NewDBStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migrations per backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s *store.RoutedStore) error {
				statuses, err := s.MigrationStatus(ctx)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "BACKEND\tVERSION\tAPPLIED\tDESCRIPTION\tMODELS")
				for _, status := range statuses {
					fmt.Fprintf(tw, "%s\t%d\t%t\t%s\t%v\n", status.Backend, status.Version, status.Applied, status.Description, status.Models)
				}
				return tw.Flush()
			})
		},
	}
}

func NewDBRollbackCommand() *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Revert the last migration of one backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s *store.RoutedStore) error {
				if err := s.Rollback(ctx, router.Backend(backend)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rolled back the last migration of '%s'.\n", backend)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&backend, "backend", string(router.Transient), "backend to roll back (default, transient)")

	return cmd
}

func NewDBReindexCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index",
		Long:  "Drop the search index and index every searchable row of the durable database again.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s *store.RoutedStore) error {
				indexed, err := s.Reindex(ctx)
				if err != nil {
					return err
				}

				names := make([]string, 0, len(indexed))
				for name := range indexed {
					names = append(names, name)
				}
				sort.Strings(names)

				out := cmd.OutOrStdout()
				for _, name := range names {
					if indexed[name] > 0 {
						fmt.Fprintf(out, "Indexed %d %s rows.\n", indexed[name], name)
					}
				}
				fmt.Fprintln(out, "Done reindexing.")
				return nil
			})
		},
	}
}
