// cmd/server/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unclebandit/outbound-campaigns/internal/auth"
	"github.com/unclebandit/outbound-campaigns/internal/config"
	"github.com/unclebandit/outbound-campaigns/internal/controller"
	"github.com/unclebandit/outbound-campaigns/internal/db"
	"github.com/unclebandit/outbound-campaigns/internal/directory"
	"github.com/unclebandit/outbound-campaigns/internal/handler"
	"github.com/unclebandit/outbound-campaigns/internal/logger"
	"github.com/unclebandit/outbound-campaigns/internal/metrics"
	"github.com/unclebandit/outbound-campaigns/internal/queue"
	"github.com/unclebandit/outbound-campaigns/internal/repository"
	"github.com/unclebandit/outbound-campaigns/internal/service"
)

func main() {
	var envFile string

	rootCmd := &cobra.Command{
		Use:          "server",
		Short:        "Outbound campaign creation API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "Path to an optional .env file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(cfg.LogLevel, cfg.Env == config.EnvProduction)
	if err != nil {
		return err
	}
	defer log.Sync()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := db.Migrate(ctx, conn); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		return err
	}

	publisher, closePublisher, err := newPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	campaignRepo := &repository.CampaignRepository{DB: conn}
	contactRepo := &repository.ContactRepository{DB: conn}
	credentialRepo := &repository.CredentialRepository{DB: conn}

	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		Publisher:    publisher,
		Logger:       log,
		Metrics:      m,
	}

	directoryClient := directory.NewClient(directory.Config{
		BaseURL: cfg.DirectoryBaseURL,
		Timeout: cfg.DirectoryTimeout,
	}, log)

	resolver := &service.ReferenceResolver{
		Identity:    auth.ContextIdentity{},
		Credentials: credentialRepo,
		Directory:   directoryClient,
		Logger:      log,
		Metrics:     m,
	}

	forms := service.NewFormRegistry(resolver, campaignService, cfg.FormTTL, log, m)

	sessions := auth.NewSessionAuth(
		auth.NewCookieStore(cfg.SessionKey(), cfg.Env == config.EnvProduction),
		cfg.SessionName,
		log,
	)

	formController := &controller.CampaignFormController{
		Forms:          forms,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         log,
	}
	campaignHandler := handler.NewCampaignHandler(campaignService, log)

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	r.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)
		formController.Routes(r)
		campaignHandler.Routes(r)
		if cfg.Env == config.EnvDevelopment {
			r.Post("/dev/sign-in", devSignIn(sessions))
		}
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server running", zap.String("addr", srv.Addr), zap.String("env", string(cfg.Env)))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newPublisher returns the RabbitMQ publisher when AMQP_URL is set and the
// in-memory queue otherwise.
func newPublisher(cfg *config.Config, log *zap.Logger) (queue.Publisher, func(), error) {
	if cfg.AMQPURL == "" {
		q := queue.NewInMemoryQueue(log)
		if err := queue.StartCampaignCreatedLogger(q, log); err != nil {
			return nil, nil, err
		}
		log.Info("AMQP_URL not set, using in-memory queue")
		return q, func() {}, nil
	}

	p, err := queue.DialAMQP(cfg.AMQPURL)
	if err != nil {
		return nil, nil, err
	}
	p.QueueNames = map[string]string{queue.TopicCampaignCreated: cfg.CampaignEventsQueue}
	return p, func() {
		if err := p.Close(); err != nil {
			log.Warn("failed to close AMQP connection", zap.Error(err))
		}
	}, nil
}

// devSignIn stores a user id in the session so the API can be exercised
// locally without the surrounding application.
func devSignIn(sessions *auth.SessionAuth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserID string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" {
			http.Error(w, "user_id is required", http.StatusBadRequest)
			return
		}
		if err := sessions.SignIn(w, r, body.UserID); err != nil {
			http.Error(w, "failed to sign in", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
