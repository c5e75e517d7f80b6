package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pharmaflow/pharmaflow/internal/db"
	"github.com/pharmaflow/pharmaflow/internal/pharma"
	"github.com/pharmaflow/pharmaflow/internal/pharmaapi"
	"github.com/pharmaflow/pharmaflow/internal/render"
	"github.com/pharmaflow/pharmaflow/internal/server"
	"github.com/pharmaflow/pharmaflow/internal/session"
	"github.com/pharmaflow/pharmaflow/internal/web"
)

const (
	// sessionTTL is how long an idle view session is kept.
	sessionTTL     = 7 * 24 * time.Hour
	purgeInterval  = time.Hour
	shutdownPeriod = 10 * time.Second
)

var (
	serverPort int
	serverDev  bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the PharmaFlow web front end",
	Long:  `Starts the web front end: the page router, the PharmaFlow upload, analysis, graph and chat views, and the chat WebSocket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}

		logger, err := newLogger(cfg, serverDev)
		if err != nil {
			return err
		}
		defer logger.Sync()

		// Open database.
		database, err := openDatabase(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		sessions := session.NewStore(database)
		client := pharmaapi.New(cfg.API.BaseURL, cfg.API.Timeout, logger)
		dash := pharma.New(client, sessions, render.NewMarkdown(), logger, pharma.Options{
			HistoryLimit:   cfg.Chat.HistoryLimit,
			MaxUploadBytes: cfg.Upload.MaxBytes(),
		})

		// Create and start server.
		srv := server.New(server.Config{
			Port:           cfg.Server.Port,
			AllowAll:       cfg.Server.AllowAllOrigins,
			RequestTimeout: cfg.Server.RequestTimeout,
		}, client, logger)
		web.New(dash, sessions, logger).Register(srv.Router(), srv.Pages())

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go purgeSessions(ctx, sessions, logger)

		go func() {
			<-ctx.Done()
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("shutdown", zap.Error(err))
			}
		}()

		logger.Info("pharmaflow server starting",
			zap.String("version", Version),
			zap.Int("port", cfg.Server.Port),
			zap.String("backend", client.BaseURL()),
			zap.String("database", database.Path()))

		return srv.Start()
	},
}

// openDatabase opens the session database under dataDir, or an in-memory
// one when dataDir is empty.
func openDatabase(dataDir string) (*db.DB, error) {
	if dataDir == "" {
		return db.OpenMemory()
	}
	return db.Open(filepath.Join(dataDir, "pharmaflow.db"))
}

// purgeSessions drops idle view sessions until ctx is done.
func purgeSessions(ctx context.Context, sessions *session.Store, logger *zap.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.Purge(ctx, time.Now().Add(-sessionTTL))
			if err != nil {
				logger.Warn("purging sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("purged idle sessions", zap.Int64("count", n))
			}
		}
	}
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 3000, "Port to listen on (overrides server.port)")
	serverCmd.Flags().BoolVar(&serverDev, "dev", false, "Human-readable development logging")
	rootCmd.AddCommand(serverCmd)
}
