package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/axellelanca/scanlead/cmd"
	"github.com/axellelanca/scanlead/internal/database"
	customerrors "github.com/axellelanca/scanlead/internal/errors"
	"github.com/axellelanca/scanlead/internal/logger"
	"github.com/axellelanca/scanlead/internal/models"
	"github.com/axellelanca/scanlead/internal/repository"
	"github.com/axellelanca/scanlead/internal/services"
	"github.com/axellelanca/scanlead/internal/tracking"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// StatsCmd représente la commande 'stats'
var StatsCmd = &cobra.Command{
	Use:   "stats [short-code]",
	Short: "Affiche le tableau de bord, ou les statistiques d'un QR code",
	Long: `Sans argument, affiche les indicateurs globaux (scans, conversions,
inscriptions, livraison des messages). Avec un code court, affiche les scans,
sessions et conversions de ce QR code.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runStats,
}

func init() {
	cmd.RootCmd.AddCommand(StatsCmd)
}

// runStats exécute la logique pour la commande stats
func runStats(c *cobra.Command, args []string) {
	log := logger.New(cmd.Cfg)
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cmd.Cfg, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	stats := repository.NewStatsRepository(db)
	ctx := context.Background()

	if len(args) == 0 {
		printDashboard(services.NewMetricsService(stats, cmd.Cfg.Metrics.EnrolledStatusID, log).Dashboard(ctx))
		return
	}

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

	shortCode := args[0]
	s, err := qrService.GetQRCodeStats(ctx, shortCode)
	if err != nil {
		if customerrors.Is(err, customerrors.KindNotFound) {
			fmt.Printf("Error: Short code '%s' not found\n", shortCode)
		} else {
			fmt.Printf("Error retrieving statistics: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("Statistiques pour le code court: %s\n", shortCode)
	fmt.Printf("URL cible: %s\n", s.QRCode.TargetURL)
	fmt.Printf("Tracking ID: %s\n", s.QRCode.TrackingID)
	fmt.Printf("Total de scans: %d\n", s.QRCode.ScanCount)
	fmt.Printf("Sessions: %d\n", s.Sessions)
	fmt.Printf("Conversions: %d\n", s.Conversions)
	fmt.Printf("Date de création: %s\n", s.QRCode.CreatedAt.Format("2006-01-02 15:04:05"))
}

func printDashboard(d *services.Dashboard) {
	fmt.Println("Tableau de bord")
	fmt.Printf("QR codes: %d\n", d.TotalQRCodes)
	fmt.Printf("Scans: %d (sessions: %d)\n", d.TotalScans, d.TotalSessions)
	fmt.Printf("Sessions converties: %d (%.2f%%)\n", d.ConvertedSessions, d.ConversionRate)
	fmt.Printf("Leads: %d (attribués: %d)\n", d.TotalLeads, d.AttributedLeads)
	fmt.Printf("Inscrits: %d (%.2f%%)\n", d.EnrolledLeads, d.EnrollmentRate)
	fmt.Printf("Destinataires: %d, taux de livraison: %d%%\n", d.TotalRecipients, d.DeliveryRate)

	statuses := make([]string, 0, len(d.Recipients))
	for status := range d.Recipients {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		fmt.Printf("  %s: %d\n", status, d.Recipients[models.DeliveryStatus(status)])
	}

	for _, qr := range d.QRCodes {
		fmt.Printf("  /%s scans=%d sessions=%d conversions=%d (%.2f%%)\n",
			qr.ShortCode, qr.ScanCount, qr.Sessions, qr.Conversions, qr.ConversionRate)
	}
}
