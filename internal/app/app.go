package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"parkgate/internal/auth"
	"parkgate/internal/cache"
	"parkgate/internal/config"
	"parkgate/internal/db"
	"parkgate/internal/fee"
	"parkgate/internal/gate"
	httpserver "parkgate/internal/http"
	"parkgate/internal/http/handlers"
	"parkgate/internal/parking"
	"parkgate/internal/payment"
	"parkgate/internal/repository"
)

// App wires all dependencies for the parking facility service.
type App struct {
	server      *httpserver.Server
	db          *sql.DB
	manager     *gate.Manager
	commander   *gate.Commander
	coordinator *parking.Coordinator
	tracker     *payment.Tracker
	logger      *zap.Logger
}

// New builds the application graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("app: connect postgres: %w", err)
	}
	if err := db.EnsureSchema(ctx, sqlDB, cfg.Parking.TotalSlots); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("app: ensure schema: %w", err)
	}

	cardRepo := repository.NewCardRepository(sqlDB)
	sessionRepo := repository.NewSessionRepository(sqlDB)
	slotRepo := repository.NewSlotRepository(sqlDB)
	operatorRepo := repository.NewOperatorRepository(sqlDB)
	eventRepo := repository.NewGateEventRepository(sqlDB)

	// The cache is an accelerator, not a requirement; run without it when
	// redis is unreachable.
	var activeStore *cache.ActiveStore
	if redisClient, err := cache.NewClient(cfg.Redis.Addr, cfg.Redis.Password); err != nil {
		logger.Warn("redis unavailable, active-session cache disabled", zap.Error(err))
	} else {
		activeStore = cache.NewActiveStore(redisClient, cfg.ActiveSessionTTL())
	}

	calculator := fee.NewCalculator(fee.Policy{
		FreeMinutes: cfg.Parking.FreeMinutes,
		BillingUnit: time.Duration(cfg.Parking.BillingUnitMinutes) * time.Minute,
		UnitRate:    cfg.Parking.UnitRate,
		MinFee:      cfg.Parking.MinFee,
	})

	coordinator := parking.NewCoordinator(cardRepo, sessionRepo, slotRepo, calculator, activeStore, logger)

	gateway := payment.NewGateway(payment.Config{
		APIURL:        cfg.Payment.APIURL,
		APIToken:      cfg.Payment.APIToken,
		QRURL:         cfg.Payment.QRURL,
		AccountNumber: cfg.Payment.AccountNumber,
		AccountName:   cfg.Payment.AccountName,
		BankName:      cfg.Payment.BankName,
		AcquirerID:    cfg.Payment.AcquirerID,
		ContentPrefix: cfg.Payment.ContentPrefix,
	}, logger)
	watcher := payment.NewWatcher(gateway, cfg.PollInterval(), cfg.Payment.MaxAttempts, logger)
	tracker := payment.NewTracker(gateway, watcher, coordinator, logger)

	deviceState := gate.NewStateStore()
	gateRouter := gate.NewRouter()
	gateRouter.Register(gate.FrameCardScanned, gate.NewCardScannedHandler(coordinator, logger))
	gateRouter.Register(gate.FrameHeartbeat, gate.NewHeartbeatHandler(deviceState))
	gateRouter.Register(gate.FrameSlotStatus, gate.NewSlotStatusHandler(deviceState))
	processor := gate.NewProcessor(gateRouter, eventRepo, logger)

	manager := gate.NewManager(cfg.PingInterval())
	wsServer := gate.NewServer(manager, processor, deviceState, cfg.WriteTimeout(), logger)
	commander := gate.NewCommander(manager, logger)

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.TokenTTL())
	authService := auth.NewService(operatorRepo, hasher, tokens, logger)
	if err := authService.EnsureOperator(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		logger.Warn("failed to seed bootstrap operator", zap.Error(err))
	}

	routes := httpserver.Routes{
		Login: handlers.NewLoginHandler(authService),

		Stats:          handlers.NewStatsHandler(coordinator),
		RecentSessions: handlers.NewRecentSessionsHandler(coordinator),
		ActiveSessions: handlers.NewActiveSessionsHandler(coordinator),
		Slots:          handlers.NewSlotsHandler(slotRepo),
		Devices:        handlers.NewDevicesHandler(deviceState),

		ListCards:      handlers.NewListCardsHandler(cardRepo),
		CreateCard:     handlers.NewCreateCardHandler(cardRepo),
		DeactivateCard: handlers.NewDeactivateCardHandler(cardRepo),

		EntryScan:  handlers.NewEntryScanHandler(coordinator),
		ExitScan:   handlers.NewExitScanHandler(coordinator),
		ExitCash:   handlers.NewExitCashHandler(coordinator, tracker),
		ExitCancel: handlers.NewExitCancelHandler(tracker),
		ExitQR:     handlers.NewExitQRHandler(coordinator, tracker),
		ExitStatus: handlers.NewExitStatusHandler(tracker),

		PaymentCode:   handlers.NewPaymentCodeHandler(gateway),
		PaymentVerify: handlers.NewPaymentVerifyHandler(gateway),

		GateWS: wsServer.HandleWS,
		Health: handlers.NewHealthHandler(),
	}
	httpHandler := httpserver.NewRouter(routes, auth.Middleware(tokens))
	server := httpserver.NewServer(cfg.HTTPAddress(), httpHandler, logger)

	return &App{
		server:      server,
		db:          sqlDB,
		manager:     manager,
		commander:   commander,
		coordinator: coordinator,
		tracker:     tracker,
		logger:      logger,
	}, nil
}

// Run starts the gate keepalive loop, the domain event loop, and the HTTP
// server, then blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	go a.manager.Start(ctx)
	go a.reactToEvents(ctx)
	return a.server.Run(ctx)
}

// reactToEvents translates domain events into hardware commands. The
// coordinator decides; this loop actuates.
func (a *App) reactToEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-a.coordinator.Events():
			a.handleEvent(ctx, event)
		}
	}
}

func (a *App) handleEvent(ctx context.Context, event parking.Event) {
	switch event.Type {
	case parking.EventEntryAccepted:
		a.commander.Display(gate.CheckpointEntry, gate.DisplayInfo,
			"Xin chao "+event.Session.PlateNumber,
			fmt.Sprintf("Vi tri: %d", event.Session.SlotNumber))
		a.commander.OpenBarrier(gate.CheckpointEntry)

	case parking.EventEntryRejected:
		a.commander.Display(gate.CheckpointEntry, gate.DisplayError, "Tu choi", event.Reason)

	case parking.EventExitReady:
		if event.Breakdown.Fee == 0 {
			// Free exits need no settlement; release immediately.
			if err := a.coordinator.FinalizeExit(ctx, event.Session.ID, 0, parking.MethodFree); err != nil {
				a.logger.Warn("failed to finalize free exit",
					zap.Int64("session_id", event.Session.ID), zap.Error(err))
			}
			return
		}
		a.commander.Display(gate.CheckpointExit, gate.DisplayFee,
			fmt.Sprintf("Phi: %d VND", event.Breakdown.Fee),
			fee.FormatDuration(event.Breakdown.DurationMinutes))
		if _, err := a.tracker.Begin(ctx, event.Session.ID, event.Breakdown.Fee); err != nil {
			a.logger.Warn("failed to start settlement watch",
				zap.Int64("session_id", event.Session.ID), zap.Error(err))
		}

	case parking.EventExitCompleted:
		if event.Session != nil {
			a.tracker.Stop(event.Session.ID)
		}
		a.commander.Display(gate.CheckpointExit, gate.DisplayInfo, "Thanh toan xong", "Tam biet")
		a.commander.OpenBarrier(gate.CheckpointExit)

	case parking.EventExitRejected:
		a.commander.Display(gate.CheckpointExit, gate.DisplayError, "Tu choi", event.Reason)

	case parking.EventSlotsChanged:
		if event.Stats != nil {
			a.commander.SlotSummary(event.Stats.Available, event.Stats.Total)
		}
	}
}

// Close releases resources.
func (a *App) Close() {
	a.tracker.Shutdown()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
