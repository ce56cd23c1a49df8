package command

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/restaurant-table-reservation/internal/database"
	"github.com/iliyamo/restaurant-table-reservation/internal/log"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
	"github.com/iliyamo/restaurant-table-reservation/internal/seed"
	"github.com/iliyamo/restaurant-table-reservation/internal/service"
	"github.com/iliyamo/restaurant-table-reservation/internal/utils"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the restaurant, its tables and sample clients",
	Long: `Migrates the schema and loads a YAML document describing the
restaurant profile and hours, batches of tables per size and location,
and a list of clients. Without --file the built-in development data is
used. Running it again overwrites the restaurant and adds the tables and
clients once more.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	data, err := seedData()
	if err != nil {
		return err
	}
	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	cipher, err := utils.NewPhoneCipher(cfg.PhoneSecret)
	if err != nil {
		return fmt.Errorf("phone cipher: %w", err)
	}
	sum, err := seed.Apply(ctx, data, seed.Targets{
		Restaurants: repository.NewRestaurantRepo(db),
		Tables:      service.NewTableService(repository.NewTableRepo(db)),
		Clients:     repository.NewClientRepo(db, cipher),
	})
	if err != nil {
		return fmt.Errorf("seeding: %w", err)
	}
	log.Info(ctx, "seed loaded",
		slog.Int("tables_added", sum.TablesAdded),
		slog.Int("tables_skipped", sum.TablesSkipped),
		slog.Int("clients", sum.Clients))
	return nil
}

func seedData() (*seed.Data, error) {
	if seedFile == "" {
		return seed.Default()
	}
	f, err := os.Open(seedFile)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()
	return seed.Load(f)
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML seed document (default: built-in data)")
}
