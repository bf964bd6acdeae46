package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/spreadindex/pkg/config"
	"github.com/wonny/spreadindex/pkg/database"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "Check the PostgreSQL connection and schema",
	Long: `Connects to DATABASE_URL, pings it and reports which of the
tables the index needs exist. --ensure-schema creates missing ones.

Example:
  go run ./cmd/spreadindex test-db
  go run ./cmd/spreadindex test-db --ensure-schema`,
	RunE: runTestDB,
}

var ensureSchema bool

func init() {
	rootCmd.AddCommand(testDBCmd)

	testDBCmd.Flags().BoolVar(&ensureSchema, "ensure-schema", false, "create missing schemas and tables")
}

func runTestDB(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Spread Index Database Check ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("❌ DATABASE_URL is not set")
	}
	fmt.Fprintf(out, "✅ Config loaded (ENV: %s)\n", cfg.Env)
	fmt.Fprintf(out, "   Database URL: %s\n\n", maskPassword(cfg.Database.URL))

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to database: %w", err)
	}
	defer db.Close()
	printSuccess(out, "Database connection established")

	if ensureSchema {
		if err := db.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("❌ Failed to ensure schema: %w", err)
		}
		printSuccess(out, "Schema ensured")
	}

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ Health check failed: %w", err)
	}

	printHeader(out, "Health Check Results")
	printKeyValue(out, "Healthy", fmt.Sprintf("%v", status.Healthy))
	printKeyValue(out, "Response", status.ResponseTime.String())
	printKeyValue(out, "Connections", fmt.Sprintf("%d total, %d idle", status.TotalConns, status.IdleConns))
	printKeyValue(out, "Tables", fmt.Sprintf("%v", status.Tables))
	if len(status.Missing) > 0 {
		printWarning(out, "Missing tables (run with --ensure-schema):")
		printList(out, status.Missing)
		return fmt.Errorf("schema incomplete")
	}

	fmt.Fprintln(out)
	printSuccess(out, "All checks passed!")
	return nil
}
