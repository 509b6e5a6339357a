package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/axellelanca/scanlead/cmd"
	"github.com/axellelanca/scanlead/internal/database"
	"github.com/axellelanca/scanlead/internal/logger"
	"github.com/axellelanca/scanlead/internal/repository"
	"github.com/axellelanca/scanlead/internal/services"
	"github.com/axellelanca/scanlead/internal/tracking"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	targetURLFlag string
	eventFlag     string
)

// CreateCmd représente la commande 'create'
var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Crée un QR code (lien court suivi) vers une page cible.",
	Long: `Cette commande crée un lien court suivi à imprimer en QR code et affiche
le code court, l'identifiant de suivi et l'URL complète.

Exemple:
  scanlead create --url="https://example.com/open-day" --event="Open Day 2026"`,
	Run: func(c *cobra.Command, args []string) {
		if targetURLFlag == "" {
			fmt.Println("Error: --url flag is required")
			os.Exit(1)
		}

		log := logger.New(cmd.Cfg)
		defer func() { _ = log.Sync() }()

		db, err := database.Open(cmd.Cfg, log)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		defer database.Close(db)

		ids, err := tracking.NewGenerator(cmd.Cfg.Tracking.NodeID)
		if err != nil {
			log.Fatal("failed to create tracking id generator", zap.Error(err))
		}

		qrService := services.NewQRCodeService(
			repository.NewQRCodeRepository(db),
			repository.NewEventRepository(db),
			repository.NewScanSessionRepository(db),
			ids,
			log,
		)

		qr, err := qrService.CreateQRCode(context.Background(), targetURLFlag, eventFlag)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("QR code créé avec succès:\n")
		fmt.Printf("Code: %s\n", qr.ShortCode)
		fmt.Printf("Tracking ID: %s\n", qr.TrackingID)
		fmt.Printf("URL complète: %s/%s\n", strings.TrimRight(cmd.Cfg.Server.BaseURL, "/"), qr.ShortCode)
	},
}

func init() {
	CreateCmd.Flags().StringVar(&targetURLFlag, "url", "", "The landing page URL the QR code redirects to")
	CreateCmd.Flags().StringVar(&eventFlag, "event", "", "Optional event name the QR code belongs to")
	CreateCmd.MarkFlagRequired("url")

	cmd.RootCmd.AddCommand(CreateCmd)
}
