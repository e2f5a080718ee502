package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecamozu/career-agent/internal/agent"
	"github.com/ecamozu/career-agent/internal/auditlog"
	"github.com/ecamozu/career-agent/internal/httpapi"
	"github.com/ecamozu/career-agent/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	defaultListenAddr  = ":8080"
	shutdownTimeout    = 10 * time.Second
	readHeaderTimeout  = 5 * time.Second
	sessionTimeLimit   = 5 * time.Minute
	auditRecordTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the agent over HTTP",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "listen address (default is :8080)")
	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
}

func serve(_ *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the career-agent server", zap.String("version", version))

	careerAgent, _, err := buildAgent(ctx, config, logger)
	if err != nil {
		logger.Fatal("assembling the agent", zap.Error(err))
	}

	var store *auditlog.Store
	if config.Audit != nil && config.Audit.Database != "" {
		store, err = auditlog.New(config.Audit.Database, logger)
		if err != nil {
			logger.Fatal("opening the audit log", zap.Error(err))
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing the audit log", zap.Error(err))
			}
		}()
		logger.Info("audit log enabled", zap.String("database", config.Audit.Database))
	}

	processor := &auditingProcessor{agent: careerAgent, store: store, logger: logger}

	var auditor httpapi.Auditor
	if store != nil {
		auditor = store
	}
	handler := httpapi.NewHandler(processor, auditor, logger)

	listen := defaultListenAddr
	if config.Server != nil && config.Server.Listen != "" {
		listen = config.Server.Listen
	}
	if flagListen := viper.GetString("listen"); flagListen != "" {
		listen = flagListen
	}

	srv := &http.Server{
		Addr:              listen,
		Handler:           handler.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", zap.Error(err))
		}
	}
}

// auditingProcessor runs the agent and records the outcome. Audit failures
// are logged but never reported to the caller; the reply already exists.
type auditingProcessor struct {
	agent  *agent.Agent
	store  *auditlog.Store
	logger *zap.Logger
}

func (p *auditingProcessor) Process(ctx context.Context, employerMessage string) (*agent.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, sessionTimeLimit)
	defer cancel()

	result, err := p.agent.Process(ctx, employerMessage)
	if err != nil {
		return nil, err
	}

	if p.store != nil {
		// Detached from the request context so a canceled request still
		// leaves an audit record.
		recordCtx, recordCancel := context.WithTimeout(context.Background(), auditRecordTimeout)
		defer recordCancel()

		if err := p.store.Record(recordCtx, employerMessage, result.EmployerName, result); err != nil {
			p.logger.Warn("recording session failed",
				zap.String("session_id", result.SessionID),
				zap.Error(err),
			)
		}
	}

	return result, nil
}
