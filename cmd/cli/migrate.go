package cli

import (
	"fmt"

	"github.com/axellelanca/scanlead/cmd"
	"github.com/axellelanca/scanlead/internal/database"
	"github.com/axellelanca/scanlead/internal/logger"
	"github.com/axellelanca/scanlead/internal/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// MigrateCmd represents the 'migrate' command
// This command handles database schema creation and updates
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Executes database migrations to create or update tables.",
	Long: `This command connects to the configured database (SQLite or Postgres)
and executes GORM automatic migrations for events, QR codes, scan sessions,
leads, lead statuses, message history and message recipients.`,
	Run: func(c *cobra.Command, args []string) {
		log := logger.New(cmd.Cfg)
		defer func() { _ = log.Sync() }()

		db, err := database.Open(cmd.Cfg, log)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		defer database.Close(db)

		if err := models.AutoMigrate(db); err != nil {
			log.Fatal("failed to migrate database", zap.Error(err))
		}

		fmt.Println("Database migrations executed successfully.")
	},
}

func init() {
	cmd.RootCmd.AddCommand(MigrateCmd)
}
