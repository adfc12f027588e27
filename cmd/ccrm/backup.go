package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/ccrm-api/internal/service"
)

func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage snapshots of the data directory",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Copy the data directory into a new timestamped backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.files().CreateBackup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d files\t%d bytes\n", info.Name, info.Files, info.Bytes)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := a.files().ListBackups(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	restore := &cobra.Command{
		Use:   "restore <name>",
		Short: "Replace the data directory with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.files().RestoreFromBackup(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(create, list, restore)
	return cmd
}

func (a *app) files() *service.FileService {
	return service.NewFileService(a.cfg.Storage, nil, a.logger)
}
