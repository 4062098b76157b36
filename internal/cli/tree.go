package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"prepify/internal/database"
	"prepify/internal/models"
	"prepify/internal/store"
	"prepify/internal/tree"
)

var (
	treeSearch        string
	treePublishedOnly bool
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the category tree",
	Long: `Print the category forest in display order, one category per line,
indented by depth. --search keeps matching categories and their ancestors.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Connect(cfg.DSN())
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()

		forest, err := store.NewCategoryStore(db, nil, nil).Tree(cmd.Context())
		if err != nil {
			return err
		}
		if treePublishedOnly {
			forest = tree.Published(forest)
		}
		n := writeTree(cmd.OutOrStdout(), tree.Filter(forest, treeSearch))
		if n == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No categories found.")
		}
		return nil
	},
}

func init() {
	treeCmd.Flags().StringVarP(&treeSearch, "search", "s", "", "only show categories whose name contains this text")
	treeCmd.Flags().BoolVar(&treePublishedOnly, "published", false, "hide unpublished categories and their subtrees")
}

// writeTree prints forest in pre-order and returns the number of lines.
func writeTree(w io.Writer, forest []models.Category) int {
	flat := tree.Flatten(forest)
	for _, c := range flat {
		var flags []string
		node := tree.FindByID(forest, c.ID)
		if node != nil && node.Featured {
			flags = append(flags, "featured")
		}
		if node != nil && !node.Published {
			flags = append(flags, "draft")
		}

		line := strings.Repeat("  ", c.Level) + c.Name + "  /" + tree.SlugPath(forest, c.ID)
		if len(flags) > 0 {
			line += "  [" + strings.Join(flags, ", ") + "]"
		}
		fmt.Fprintln(w, line)
	}
	return len(flat)
}
