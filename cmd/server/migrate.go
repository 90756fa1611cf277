package main

import (
	"github.com/spf13/cobra"

	"github.com/iliyamo/table-reservation/internal/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}
			_, db, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			return database.Migrate(cmd.Context(), db, command)
		},
	}
}
