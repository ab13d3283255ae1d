package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"pharmachat/internal/ai"
	"pharmachat/internal/api"
	"pharmachat/internal/auth"
	"pharmachat/internal/config"
	"pharmachat/internal/database"
	"pharmachat/internal/relay"
	"pharmachat/internal/websocket"
	"pharmachat/pkg/types"
)

// Application coordinates all system components.
// Initialization order: Database → Auth → Relay → Monitor → API → HTTP.
type Application struct {
	config     *config.Config
	store      *database.Store
	relay      *relay.Service
	monitor    *relay.Monitor
	httpServer *http.Server
}

// NewApplication wires all components from a validated configuration.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := database.NewStore(cfg.Database.Path, cfg.Database.MaxConnections, cfg.Database.ConnLifetime)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize account store: %w", err)
	}

	if err := seedPharmacist(store, &cfg.Auth); err != nil {
		_ = store.Close()
		return nil, err
	}

	issuer := auth.NewIssuer(store, cfg.Auth.JWTSecret, cfg.Auth.JWTRefreshSecret, cfg.Auth.AccessTokenTTL)
	authenticator := auth.NewAuthenticator(cfg.Auth.JWTSecret)

	relayService := relay.NewService(authenticator)
	monitor := relay.NewMonitor(relayService, cfg.WebSocket.HeartbeatInterval)

	completer := ai.NewClient(cfg.AI.BackendURL, cfg.AI.Timeout)
	apiServer := api.NewServer(issuer, completer, relayService, cfg.HTTP.AllowedOrigins)
	wsHandler := websocket.NewHandler(relayService, cfg.WebSocket.BufferSize, cfg.WebSocket.WriteTimeout)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.HandleFunc("/ws/chat", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		store:      store,
		relay:      relayService,
		monitor:    monitor,
		httpServer: httpServer,
	}, nil
}

// seedPharmacist provisions the configured pharmacist account if it does
// not exist yet. Pharmacist accounts cannot be created through the API.
func seedPharmacist(store *database.Store, cfg *config.AuthConfig) error {
	if cfg.SeedPharmacistUsername == "" {
		return nil
	}
	if cfg.SeedPharmacistPassword == "" {
		return fmt.Errorf("seed pharmacist password is required when a seed username is set")
	}

	hash, err := auth.HashPassword(cfg.SeedPharmacistPassword)
	if err != nil {
		return err
	}

	name := cfg.SeedPharmacistName
	if name == "" {
		name = cfg.SeedPharmacistUsername
	}

	account := &types.Account{
		ID:           uuid.New().String(),
		Username:     cfg.SeedPharmacistUsername,
		Name:         name,
		PasswordHash: hash,
		Role:         types.RolePharmacist,
	}

	err = store.CreateUser(context.Background(), account)
	if errors.Is(err, database.ErrUsernameTaken) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to seed pharmacist account: %w", err)
	}

	log.Printf("Seeded pharmacist account: username=%s", account.Username)
	return nil
}

// Start launches the heartbeat monitor and the HTTP server, verifying
// the server comes up before returning.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting pharmachat relay on %s", app.httpServer.Addr)

	if err := app.monitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start heartbeat monitor: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		_ = app.monitor.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("Pharmachat relay started")
		return nil
	case <-ctx.Done():
		_ = app.monitor.Stop()
		return ctx.Err()
	}
}

// Stop shuts components down in reverse order: HTTP → Monitor → Store.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down pharmachat relay")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if err := app.monitor.Stop(); err != nil {
		log.Printf("Heartbeat monitor shutdown error: %v", err)
	}

	if err := app.store.Close(); err != nil {
		log.Printf("Account store shutdown error: %v", err)
	}

	log.Printf("Pharmachat relay shutdown complete")
	return nil
}

// GetAddr returns the server address for external connections.
func (app *Application) GetAddr() string {
	return app.httpServer.Addr
}
