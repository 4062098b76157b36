package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"prepify/internal/database"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a catalog into an empty database",
	Long: `Seed users and the category tree from a YAML catalog. The embedded demo
catalog is used unless --file is given. Tables that already hold rows are
left alone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := readCatalog(seedFile)
		if err != nil {
			return err
		}

		db, err := database.Connect(cfg.DSN())
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		return database.SeedCatalog(cmd.Context(), db, catalog)
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "catalog YAML file (default: embedded demo catalog)")
}

func readCatalog(path string) (*database.Catalog, error) {
	if path == "" {
		return database.LoadCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return database.ParseCatalog(data)
}
