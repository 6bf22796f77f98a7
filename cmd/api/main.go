package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"referra.org/internal/auth"
	"referra.org/internal/award"
	"referra.org/internal/bank"
	"referra.org/internal/config"
	"referra.org/internal/httpapi"
	"referra.org/internal/obs"
	"referra.org/internal/referral"
	storepg "referra.org/internal/store/pg"
	"referra.org/internal/vault"
)

var (
	version = "0.3.1"
	commit  = "unknown"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Version == "dev" {
		cfg.Version = version
	}

	obs.Init()
	obs.InitBuildInfo(cfg.Version, commit)

	var db *sql.DB
	if cfg.PGDSN != "" {
		db, err = storepg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
	}
	if db == nil {
		log.Fatal("missing REFERRA_PG_DSN")
	}

	ibanVault, err := vault.New(cfg.BankEncKey)
	if err != nil {
		log.Fatalf("bank encryption key: %v", err)
	}

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("token signer: %v", err)
	}

	profileStore := referral.NewPGStore(db)
	authStore := auth.NewPGStore(db)

	authService := auth.NewService(authStore.Identities(), authStore.Sessions(), profileStore, tokens)
	referralService := referral.NewService(profileStore)
	awardService := award.NewService(award.NewPGStore(db), profileStore)
	bankService := bank.NewService(bank.NewPGStore(db), ibanVault)

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, cfg.Version, httpapi.Deps{
		Auth:         authService,
		Tokens:       tokens,
		Directory:    profileStore,
		Referrals:    referralService,
		Awards:       awardService,
		Bank:         bankService,
		MaxBodyBytes: cfg.MaxBodyBytes,
		RateRPS:      cfg.RateLimitRPS,
		RateBurst:    cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting referra-api %s on %s", cfg.Version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}
