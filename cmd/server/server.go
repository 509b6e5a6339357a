package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/axellelanca/scanlead/cmd"
	"github.com/axellelanca/scanlead/internal/api"
	"github.com/axellelanca/scanlead/internal/database"
	"github.com/axellelanca/scanlead/internal/gateway"
	"github.com/axellelanca/scanlead/internal/logger"
	"github.com/axellelanca/scanlead/internal/metrics"
	"github.com/axellelanca/scanlead/internal/models"
	"github.com/axellelanca/scanlead/internal/monitor"
	"github.com/axellelanca/scanlead/internal/repository"
	"github.com/axellelanca/scanlead/internal/services"
	"github.com/axellelanca/scanlead/internal/tracking"
	"github.com/axellelanca/scanlead/internal/workers"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RunServerCmd représente la commande 'run-server' de Cobra.
// C'est le point d'entrée pour lancer le serveur de l'application.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Lance le serveur API (redirections, leads, messages) et les processus de fond.",
	Long: `Cette commande initialise la base de données, configure les APIs,
démarre les workers asynchrones des sessions de scan et le moniteur des
destinataires en attente, puis lance le serveur HTTP.`,
	Run: func(c *cobra.Command, args []string) {
		cfg := cmd.Cfg
		log := logger.New(cfg)
		defer func() { _ = log.Sync() }()

		// Initialiser la base de données
		db, err := database.Open(cfg, log)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		defer database.Close(db)

		// Migration automatique des modèles
		if err := models.AutoMigrate(db); err != nil {
			log.Fatal("failed to migrate database", zap.Error(err))
		}

		metrics.Register()

		// Initialiser les repositories
		qrRepo := repository.NewQRCodeRepository(db)
		sessionRepo := repository.NewScanSessionRepository(db)
		leadRepo := repository.NewLeadRepository(db)
		eventRepo := repository.NewEventRepository(db)
		messageRepo := repository.NewMessageRepository(db)
		statsRepo := repository.NewStatsRepository(db)
		log.Info("repositories initialised")

		ids, err := tracking.NewGenerator(cfg.Tracking.NodeID)
		if err != nil {
			log.Fatal("failed to create tracking id generator", zap.Error(err))
		}

		// Workers des sessions de scan
		scanPool := workers.StartScanWorkers(cfg.Scans.WorkerCount, cfg.Scans.BufferSize, sessionRepo, log)

		if cfg.Gateway.URL == "" {
			log.Warn("gateway.url is not set, message dispatch will be refused")
		}
		gw := gateway.NewHTTPGateway(cfg.Gateway.Timeout, cfg.Gateway.FailureThreshold, log)

		// Initialiser les services métiers
		svc := api.Services{
			QRCodes: services.NewQRCodeService(qrRepo, eventRepo, sessionRepo, ids, log),
			Scans:   services.NewScanService(qrRepo, scanPool, log),
			Leads:   services.NewLeadService(db, leadRepo, sessionRepo, eventRepo, cfg.Attribution.Window, log),
			Dispatch: services.NewDispatchService(leadRepo, messageRepo, gw, services.GatewaySettings{
				URL:         cfg.Gateway.URL,
				CallbackURL: cfg.CallbackURL(),
			}, log),
			Delivery:     services.NewDeliveryService(leadRepo, messageRepo, log),
			Metrics:      services.NewMetricsService(statsRepo, cfg.Metrics.EnrolledStatusID, log),
			GatewayState: gw.State,
		}
		log.Info("services initialised")

		ctx, stop := context.WithCancel(context.Background())
		defer stop()

		// Moniteur des destinataires restés en attente
		recipientMonitor := monitor.NewRecipientMonitor(
			messageRepo,
			time.Duration(cfg.Monitor.IntervalMinutes)*time.Minute,
			time.Duration(cfg.Monitor.StaleAfterMinutes)*time.Minute,
			log,
		)
		go recipientMonitor.Start(ctx)

		// Configurer le routeur Gin et les handlers API.
		if cfg.App.Env == "production" {
			gin.SetMode(gin.ReleaseMode)
		}
		router := gin.New()
		router.Use(gin.Recovery())
		api.SetupRoutes(router, svc, cfg.Server.BaseURL, log)
		log.Info("API routes configured", zap.Int("rate_limit_per_minute", cfg.Server.RateLimitPerMinute))

		serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
		srv := &http.Server{
			Addr:              serverAddr,
			Handler:           api.WrapHandler(router, cfg.Server.RateLimitPerMinute),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Démarrer le serveur dans une goroutine pour ne pas bloquer.
		go func() {
			log.Info("starting server", zap.String("addr", serverAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal("server failed", zap.Error(err))
			}
		}()

		// Attendre Ctrl+C ou signal d'arrêt
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("shutdown signal received, stopping server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", zap.Error(err))
		}

		// Plus aucune requête: vider le buffer des scans puis arrêter le moniteur.
		scanPool.Close()
		stop()

		log.Info("server stopped")
	},
}

func init() {
	cmd.RootCmd.AddCommand(RunServerCmd)
}
