package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/restaurant-table-reservation/internal/database"
	"github.com/iliyamo/restaurant-table-reservation/internal/log"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create missing database tables",
	Long: `Creates every table the server needs if it does not exist yet.
Existing tables and their rows are left untouched.`,
	Args: cobra.NoArgs,
	RunE: migrate,
}

func migrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	log.Info(ctx, "schema is up to date")
	return nil
}
