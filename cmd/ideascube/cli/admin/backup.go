package admin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mwantia/ideascube/cmd/ideascube/cli"
	"github.com/mwantia/ideascube/internal/agent"
	"github.com/mwantia/ideascube/pkg/backup"
	"github.com/mwantia/ideascube/pkg/log"
)

func NewBackupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage backups of the durable data",
		Long:  "Create, list, load, delete and restore archives of the durable data root.",
	}

	cmd.AddCommand(NewBackupCreateCommand())
	cmd.AddCommand(NewBackupListCommand())
	cmd.AddCommand(NewBackupLoadCommand())
	cmd.AddCommand(NewBackupDeleteCommand())
	cmd.AddCommand(NewBackupRestoreCommand())
	cmd.AddCommand(NewBackupExistsCommand())

	return cmd
}

func openRepository() (*backup.Repository, error) {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, err
	}
	return agent.OpenRepository(cfg, log.NewLoggerService("ideascube", cfg.Log))
}

func NewBackupCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new backup",
		Long:  "Archive the durable data root into the backup repository.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepository()
			if err != nil {
				return err
			}

			format := repo.Format()
			if value, _ := cmd.Flags().GetString("format"); value != "" {
				if format, err = backup.ParseFormat(value); err != nil {
					return err
				}
			}

			archive, err := repo.CreateFormat(context.Background(), format)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), archive.Name)
			return nil
		},
	}

	cmd.Flags().String("format", "", "archive format (zip, tar, gztar, bztar)")

	return cmd
}

func NewBackupListCommand() *cobra.Command {
	var humanReadable bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backups",
		Long:  "List the archives of the backup repository, oldest name first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepository()
			if err != nil {
				return err
			}

			archives, err := repo.List()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSOURCE\tVERSION\tCREATED\tSIZE")
			for _, archive := range archives {
				size, err := archive.Size()
				if err != nil {
					return err
				}

				created := archive.CreatedAt.Format("2006-01-02 15:04")
				sizeText := fmt.Sprintf("%d", size)
				if humanReadable {
					created = humanize.Time(archive.CreatedAt)
					sizeText = humanize.Bytes(uint64(size))
				}

				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", archive.Name, archive.SourceID, archive.Version, created, sizeText)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVarP(&humanReadable, "human", "H", false, "Enable human-readable format")

	return cmd
}

func NewBackupLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load <file>",
		Short: "Load an archive into the repository",
		Long:  "Copy an archive file into the backup repository. Its file name must follow the archive naming scheme.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepository()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			archive, err := repo.Load(filepath.Base(args[0]), f)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), archive.Name)
			return nil
		},
	}
}

func NewBackupDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepository()
			if err != nil {
				return err
			}
			return repo.Delete(args[0])
		},
	}
}

func NewBackupRestoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <name>",
		Short: "Restore a backup over the data root",
		Long:  "Extract an archive over the durable data root. Files missing from the archive are kept. Stop the agent first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepository()
			if err != nil {
				return err
			}
			return repo.Restore(context.Background(), args[0])
		},
	}
}

func NewBackupExistsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exists <name>",
		Short: "Check whether a backup exists",
		Long:  "Exit with a non-zero status when no file with that name is in the repository.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepository()
			if err != nil {
				return err
			}

			if !repo.Exists(args[0]) {
				return fmt.Errorf("backup '%s' does not exist", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), args[0])
			return nil
		},
	}
}
