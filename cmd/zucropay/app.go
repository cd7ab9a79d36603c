package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/zucropay/zucropay/internal/db"
	"github.com/zucropay/zucropay/internal/gateway"
	"github.com/zucropay/zucropay/internal/handlers"
	"github.com/zucropay/zucropay/internal/logger"
	"github.com/zucropay/zucropay/internal/repository/postgres"
	"github.com/zucropay/zucropay/internal/service/account"
	"github.com/zucropay/zucropay/internal/service/apikey"
	"github.com/zucropay/zucropay/internal/service/auth"
	"github.com/zucropay/zucropay/internal/service/checkout"
	"github.com/zucropay/zucropay/internal/service/notifier"
	"github.com/zucropay/zucropay/internal/service/payment"
	"github.com/zucropay/zucropay/internal/service/reconciler"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
	Notifier   *notifier.Notifier
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize gateway client and services
	gatewayClient := gateway.NewClient(c.GatewayAddr, logger)

	tokenVerifier, err := auth.NewTokenVerifier(c.SecretKey, storage.User())
	if err != nil {
		return nil, fmt.Errorf("error while creating token verifier. Err: %w", err)
	}

	apiKeyService := apikey.NewService(storage.APIKey(), logger)
	reconcilerService := reconciler.NewService(storage, logger)
	checkoutService := checkout.NewService(storage, gatewayClient, c.GatewayAPIKey, logger)
	paymentService := payment.NewService(storage, c.PublicBaseURL, logger)
	accountService := account.NewService(storage, gatewayClient, c.GatewayAPIKey, logger)
	notifierService := notifier.New(storage.Notification(), c.SecretKey, logger)

	mux := handlers.NewRouter(handlers.RouterDeps{
		Reconciler:      reconcilerService,
		CheckoutService: checkoutService,
		PaymentService:  paymentService,
		AccountService:  accountService,
		GatewayProxy:    gatewayClient,
		TokenVerifier:   tokenVerifier,
		APIKeys:         apiKeyService,
		PlatformAPIKey:  c.GatewayAPIKey,
		Logger:          logger,
	})

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		Notifier:   notifierService,
	}, nil
}

// Run starts the http server and the notification dispatcher, closing
// both gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	notifierStopped := s.Notifier.Run(srvCtx)

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		<-notifierStopped
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
