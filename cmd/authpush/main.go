package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	rdb "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/authpush/internal/accounts"
	"github.com/dropDatabas3/authpush/internal/config"
	"github.com/dropDatabas3/authpush/internal/domain/repository"
	"github.com/dropDatabas3/authpush/internal/domain/types"
	httpserver "github.com/dropDatabas3/authpush/internal/http"
	"github.com/dropDatabas3/authpush/internal/http/controllers"
	"github.com/dropDatabas3/authpush/internal/http/router"
	"github.com/dropDatabas3/authpush/internal/messaging"
	"github.com/dropDatabas3/authpush/internal/metrics"
	"github.com/dropDatabas3/authpush/internal/observability"
	"github.com/dropDatabas3/authpush/internal/observability/logger"
	"github.com/dropDatabas3/authpush/internal/push"
	"github.com/dropDatabas3/authpush/internal/rate"
	"github.com/dropDatabas3/authpush/internal/requeststore"
	"github.com/dropDatabas3/authpush/internal/security/otp"
	"github.com/dropDatabas3/authpush/internal/security/secretbox"
)

var version = "dev"

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:   "authpush",
		Short: "Push challenge & OTP validation service",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "ruta al config.yaml (opcional)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Arranca el servidor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfgPath)
		},
	}

	keygenCmd := &cobra.Command{
		Use:   "keygen",
		Short: "Genera una master key para el cifrado en reposo",
		RunE: func(cmd *cobra.Command, args []string) error {
			var key [32]byte
			if _, err := rand.Read(key[:]); err != nil {
				return err
			}
			fmt.Println(base64.StdEncoding.EncodeToString(key[:]))
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Imprime la versión",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	root.AddCommand(serveCmd, keygenCmd, versionCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(cfgPath string) error {
	// .env primero, para que los overrides de config lo vean.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "authpush",
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	if err := observability.InitSentry(cfg.Sentry.DSN, cfg.App.Env); err != nil {
		log.Warn("sentry init failed", logger.Err(err))
	}
	defer observability.FlushSentry()

	if cfg.Security.SecretBoxMasterKey != "" {
		_ = os.Setenv("SECRETBOX_MASTER_KEY", cfg.Security.SecretBoxMasterKey)
	}

	engine, err := otp.New(otp.Config{
		CodeDigits:       cfg.Authenticator.CodeDigits,
		WindowSize:       cfg.Authenticator.WindowSize,
		TimeStep:         config.Duration(cfg.Authenticator.TimeStep, 0),
		HashAlgorithm:    cfg.Authenticator.HashAlgorithm,
		Representation:   otp.KeyRepresentation(cfg.Authenticator.Representation),
		ScratchCodeCount: cfg.Authenticator.ScratchCodeCount,
	})
	if err != nil {
		return fmt.Errorf("otp engine: %w", err)
	}

	challengeKind, err := types.ParseChallengeKind(cfg.Authenticator.ChallengeKind)
	if err != nil {
		return fmt.Errorf("challenge kind: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Accounts
	var repo repository.AccountRepository
	switch cfg.Accounts.Driver {
	case "postgres":
		pg, err := accounts.NewPG(ctx, cfg.Accounts.DSN)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
		repo = pg
	default:
		repo = accounts.NewMemory()
	}
	if secretbox.IsReady() {
		repo = accounts.NewEncrypted(repo, accounts.SecretboxCipher{})
	} else {
		log.Warn("secretbox master key not set, secrets stored unencrypted")
	}
	defer func() { _ = repo.Close() }()

	// Request stores
	terminalGrace := config.Duration(cfg.RequestStore.Cleaner.TerminalGrace, requeststore.DefaultTerminalGrace)
	rlMax := cfg.Server.RateLimit.Max
	rlWindow := config.Duration(cfg.Server.RateLimit.Window, time.Minute)
	var (
		authStore requeststore.Store[types.PushRequest]
		regStore  requeststore.Store[types.RegistrationRequest]
		sweepers  []requeststore.Sweeper
		limiter   rate.Limiter
	)
	switch cfg.RequestStore.Kind {
	case "redis":
		client := rdb.NewClient(&rdb.Options{
			Addr: cfg.RequestStore.Redis.Addr,
			DB:   cfg.RequestStore.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		prefix := cfg.RequestStore.Redis.Prefix
		authStore = requeststore.NewRedis[types.PushRequest](client, prefix+":auth", terminalGrace)
		regStore = requeststore.NewRedis[types.RegistrationRequest](client, prefix+":reg", terminalGrace)
		if rlMax > 0 {
			limiter = rate.NewRedisLimiter(client, prefix+":rl:", rlMax, rlWindow)
		}
	default:
		defaultTTL := config.Duration(cfg.RequestStore.Memory.DefaultTTL, 2*time.Minute)
		ms := requeststore.NewMemory[types.PushRequest](defaultTTL, terminalGrace)
		rs := requeststore.NewMemory[types.RegistrationRequest](defaultTTL, terminalGrace)
		authStore, regStore = ms, rs
		sweepers = append(sweepers, ms, rs)
		if rlMax > 0 {
			limiter = rate.NewMemoryLimiter(rlMax, rlWindow)
		}
	}
	defer func() {
		_ = authStore.Close()
		_ = regStore.Close()
	}()

	cleaner := requeststore.NewCleaner(config.Duration(cfg.RequestStore.Cleaner.Interval, time.Minute), sweepers...)
	cleaner.Start(ctx)
	defer cleaner.Stop()

	// Messaging gateway
	var gateway messaging.Gateway
	switch cfg.Messaging.Kind {
	case "http":
		gateway = messaging.NewHTTP(cfg.Messaging.URL, cfg.Messaging.APIKey,
			cfg.Messaging.APISecret, config.Duration(cfg.Messaging.Timeout, 10*time.Second))
	case "amqp":
		g, err := messaging.NewAMQP(cfg.Messaging.AMQP.URL, cfg.Messaging.AMQP.Queue, cfg.Messaging.APISecret)
		if err != nil {
			return fmt.Errorf("amqp: %w", err)
		}
		defer func() { _ = g.Close() }()
		gateway = g
	default:
		gateway = messaging.NoopGateway{}
	}

	if err := metrics.RegisterPush(nil); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	svc := push.New(push.Config{
		ChallengeKind:       challengeKind,
		AuthTimeout:         config.Duration(cfg.Authenticator.AuthTimeout, time.Minute),
		RegistrationTimeout: config.Duration(cfg.Authenticator.RegistrationTimeout, 10*time.Minute),
		Issuer:              cfg.Authenticator.Issuer,
		CallbackURL:         cfg.Messaging.CallbackURL,
	}, push.Deps{
		Accounts:      repo,
		AuthRequests:  authStore,
		Registrations: regStore,
		Gateway:       gateway,
		OTP:           engine,
	})

	ctrl := controllers.NewPushController(svc, map[string]controllers.Pinger{
		"accounts": repo,
	}, limiter)
	handler := router.New(router.Deps{Push: ctrl})
	srv := httpserver.NewServer(cfg.Server.Addr, handler)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	log.Info("server started",
		logger.String("addr", cfg.Server.Addr),
		logger.String("accounts_driver", cfg.Accounts.Driver),
		logger.String("request_store", cfg.RequestStore.Kind),
		logger.String("messaging", cfg.Messaging.Kind),
		logger.ChallengeKind(challengeKind.String()),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
