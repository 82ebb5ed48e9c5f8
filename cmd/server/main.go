package main

import (
	"PassKeeper/internal/config"
	"PassKeeper/internal/crypto"
	"PassKeeper/internal/handlers"
	"PassKeeper/internal/keystore"
	"PassKeeper/internal/middleware"
	"PassKeeper/internal/repo"
	"PassKeeper/internal/service"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/awnumar/memguard"
	"go.uber.org/zap"
)

func main() {
	// ключевой материал в защищённых буферах стирается при Ctrl+C
	memguard.CatchInterrupt()
	defer memguard.Purge()

	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	middleware.SetTokenTTL(cfg.TokenTTL)
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	//context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "error", err)
	}

	keys, err := keystore.New(ctx, keystore.Options{
		Backend: cfg.KeystoreBackend,
		Dir:     cfg.KeystoreDir,
		Secret:  cfg.KeystoreSecret,
		S3: keystore.S3Config{
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			UseSSL:          cfg.S3UseSSL,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
		},
	})
	if err != nil {
		sugar.Fatalw("failed to initialize keystore", "backend", cfg.KeystoreBackend, "error", err)
	}

	deriver := crypto.NewDeriver(crypto.Params{
		Time:      cfg.Argon2Time,
		MemoryKiB: cfg.Argon2MemoryKiB,
		Threads:   cfg.Argon2Parallelism,
	}, cfg.KDFWorkers)

	userRepo := repo.NewUserRepository(gormDB)
	credRepo := repo.NewCredentialRepository(gormDB)
	shareRepo := repo.NewShareRepository(gormDB)
	questionRepo := repo.NewQuestionRepository(gormDB)
	groupRepo := repo.NewGroupRepository(gormDB)
	messageRepo := repo.NewMessageRepository(gormDB)

	vaultService := service.NewVaultService(userRepo, credRepo, shareRepo, keys, deriver, sugar)
	userService := service.NewUserService(userRepo, questionRepo, vaultService, keys, sugar)
	shareService := service.NewShareService(shareRepo, groupRepo, credRepo, userRepo, sugar)
	messageService := service.NewMessageService(messageRepo, groupRepo, userRepo, sugar)

	h := handlers.NewHandler(userService, vaultService, shareService, messageService, sugar, cfg)

	addr := cfg.BaseURL

	sugar.Infow(
		"Starting server",
		"addr", addr,
	)

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"EnableHTTPS", cfg.EnableHTTPS,
		"KeystoreBackend", cfg.KeystoreBackend,
		"KDFWorkers", cfg.KDFWorkers,
	)

	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			sugar.Errorw("Server shutdown failed", "error", err)
		}
	}()

	if cfg.EnableHTTPS {
		err = srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatalw("Server failed", "error", err)
	}
	sugar.Infow("Server stopped")
}
