package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"

	"gameroom-backend/internal/config"
	"gameroom-backend/internal/database"
	"gameroom-backend/internal/handlers"
	"gameroom-backend/internal/logger"
	"gameroom-backend/internal/middleware"
	"gameroom-backend/internal/services"
	"gameroom-backend/internal/websocket"
)

func main() {
	cfg, envLoaded, err := config.Load()
	if err != nil {
		logger.Get().WithError(err).Fatal("❌ FATAL ERROR: invalid configuration")
	}
	log := logger.Init(cfg.LogLevel, cfg.LogFormat)

	log.Info("🚀 GAMEROOM BACKEND SERVER STARTING")
	if !envLoaded {
		log.Warn("⚠️  .env file not found, using environment variables from system")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("❌ FATAL ERROR: Database connection failed")
	}
	defer db.Close()

	if err := database.Migrate(db, log); err != nil {
		log.WithError(err).Fatal("❌ FATAL ERROR: Database migrations failed")
	}

	store := database.NewStore(db)
	if err := database.SeedOwner(ctx, store, log, cfg.SeedOwnerEmail, cfg.SeedOwnerPassword, cfg.SeedOwnerName); err != nil {
		log.WithError(err).Fatal("❌ FATAL ERROR: Owner seeding failed")
	}

	// Drafts and submit locks live in Redis when configured so they survive
	// restarts and work across replicas
	var (
		drafts services.DraftStore  = services.NewMemoryDraftStore()
		guard  services.SubmitGuard = services.NewMemorySubmitGuard()
	)
	if cfg.RedisAddress != "" {
		rdb, err := database.ConnectRedis(ctx, cfg.RedisAddress, cfg.RedisPassword, log)
		if err != nil {
			log.WithError(err).Fatal("❌ FATAL ERROR: Redis connection failed")
		}
		defer rdb.Close()
		drafts = services.NewRedisDraftStore(rdb)
		guard = services.NewRedisSubmitGuard(redislock.New(rdb), log)
	} else {
		log.Warn("⚠️  REDIS_ADDRESS not set, draft shifts are kept in memory")
	}

	var verifiers middleware.ChainVerifier
	var jwtVerifier *middleware.JWTVerifier
	if cfg.JWTSecret != "" {
		jwtVerifier = middleware.NewJWTVerifier(cfg.JWTSecret)
		verifiers = append(verifiers, jwtVerifier)
	}

	var photos services.PhotoStore = services.NewMemoryPhotoStore()
	if cfg.FirebaseEnabled() {
		app, err := services.NewFirebaseApp(ctx, cfg.FirebaseCredentialsBase64, cfg.FirebaseCredentialsFile, cfg.StorageBucket)
		if err != nil {
			log.WithError(err).Fatal("❌ FATAL ERROR: Firebase initialization failed")
		}
		authClient, err := app.Auth(ctx)
		if err != nil {
			log.WithError(err).Fatal("❌ FATAL ERROR: Firebase auth client failed")
		}
		firebaseVerifier := middleware.NewProvisioningVerifier(middleware.NewFirebaseVerifier(authClient), store)
		verifiers = append([]middleware.TokenVerifier{firebaseVerifier}, verifiers...)

		if cfg.StorageBucket != "" {
			fs, err := services.NewFirebasePhotoStoreFromApp(ctx, app, cfg.StorageBucket)
			if err != nil {
				log.WithError(err).Fatal("❌ FATAL ERROR: Firebase storage initialization failed")
			}
			photos = fs
		}
		log.Info("✅ Firebase initialized")
	}
	if len(verifiers) == 0 {
		log.Fatal("❌ FATAL ERROR: set APP_JWT_SECRET or Firebase credentials")
	}
	if _, ok := photos.(*services.MemoryPhotoStore); ok {
		log.Warn("⚠️  No storage bucket configured, photos are kept in memory")
	}

	var sender services.SMSSender
	if cfg.TwilioEnabled() {
		sender = services.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	}

	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	ledger := services.NewBankLedger(store, hub, log)
	deps := handlers.Deps{
		Owners:   store,
		Verifier: verifiers,
		Hub:      hub,
		Visits:   services.NewVisitLedger(store, photos, guard, hub, log, cfg.Location),
		Shifts: services.NewShiftService(store, drafts, photos, ledger, guard, hub, log, services.ShiftServiceConfig{
			Location:         cfg.Location,
			RequireSnapshots: cfg.RequireShiftSnapshots,
		}),
		Ledger:   ledger,
		Expenses: services.NewExpenseService(store, ledger, guard, hub, log, cfg.Location),
		Reports:  services.NewReportService(store, log, cfg.Location),
		SMS:      services.NewSMSRelay(store, sender, log),
		Log:      log,
	}
	if jwtVerifier != nil {
		deps.Issuer = jwtVerifier
	} else {
		deps.Issuer = disabledIssuer{}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":     cfg.Port,
			"timezone": cfg.Timezone,
			"redis":    cfg.RedisAddress != "",
			"firebase": cfg.FirebaseEnabled(),
			"sms":      sender != nil,
		}).Info("🔌 Ready to accept requests")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("❌ FATAL ERROR: Server failed to start")
		}
	}()

	<-ctx.Done()
	log.Info("🛑 Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}

// disabledIssuer rejects password logins when only Firebase auth is configured
type disabledIssuer struct{}

func (disabledIssuer) IssueToken(string, string, string) (string, error) {
	return "", errors.New("password login is disabled: APP_JWT_SECRET is not set")
}
