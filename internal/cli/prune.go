package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"prepify/internal/database"
	"prepify/internal/scheduler"
	"prepify/internal/store"
)

var pruneOlderThan time.Duration

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old test attempts and cache log entries",
	Long: `Delete test attempts and cache invalidation log entries older than the
retention period. Runs the same job as the server's nightly schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		retention := cfg.AttemptRetention
		if pruneOlderThan > 0 {
			retention = pruneOlderThan
		}

		db, err := database.Connect(cfg.DSN())
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()

		m := &scheduler.Maintenance{
			Attempts:  store.NewAttemptStore(db),
			CacheLog:  store.NewCacheLogStore(db),
			Retention: retention,
		}
		res, err := m.Prune(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "pruned %d attempts and %d cache log entries older than %s\n",
			res.Attempts, res.CacheLog, retention)
		return err
	},
}

func init() {
	pruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 0, "retention period (default ATTEMPT_RETENTION)")
}
