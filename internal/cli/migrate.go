package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"prepify/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|status|version]",
	Short:     "Apply or inspect database migrations",
	Long:      `Apply pending embedded migrations (the default), print the status of every migration, or print the current schema version.`,
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "status", "version"},
	RunE: func(cmd *cobra.Command, args []string) error {
		action := "up"
		if len(args) == 1 {
			action = args[0]
		}

		db, err := database.Connect(cfg.DSN())
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()

		switch action {
		case "status":
			return database.MigrationStatus(db)
		case "version":
			v, err := database.SchemaVersion(db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
			return nil
		default:
			return database.Migrate(db)
		}
	},
}
