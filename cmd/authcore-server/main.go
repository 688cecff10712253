// Package main provides the entry point for the authorization core
// server.
package main

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/netview-platform/authcore/internal/api/rest"
	"github.com/netview-platform/authcore/internal/apikey"
	"github.com/netview-platform/authcore/internal/audit"
	"github.com/netview-platform/authcore/internal/auth"
	"github.com/netview-platform/authcore/internal/config"
	"github.com/netview-platform/authcore/internal/db"
	"github.com/netview-platform/authcore/internal/gateway"
	"github.com/netview-platform/authcore/internal/identity"
	"github.com/netview-platform/authcore/internal/metrics"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("authcore-server %s\n", Version)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting authorization core",
		zap.String("version", Version),
		zap.Int("port", cfg.Server.Port),
	)

	conn, err := db.Open(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer conn.Close()
	conn.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if cfg.Database.MigrateOnStart {
		runner, err := db.NewMigrationRunner(conn, logger)
		if err != nil {
			logger.Fatal("failed to create migration runner", zap.Error(err))
		}
		if err := runner.Up(); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	userStore, err := identity.NewPostgresStore(conn)
	if err != nil {
		logger.Fatal("failed to create user store", zap.Error(err))
	}
	keyStore, err := apikey.NewPostgresStore(conn)
	if err != nil {
		logger.Fatal("failed to create api key store", zap.Error(err))
	}

	publicKey, err := loadPublicKey(cfg.Session.PublicKeyFile)
	if err != nil {
		logger.Fatal("failed to load session public key", zap.Error(err))
	}
	verifier, err := auth.NewSessionVerifier(auth.SessionVerifierConfig{
		PublicKey: publicKey,
		Issuer:    cfg.Session.Issuer,
		Audience:  cfg.Session.Audience,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("failed to create session verifier", zap.Error(err))
	}

	auditLogger, err := audit.NewLogger(audit.Config{
		Enabled:        cfg.Audit.Enabled,
		Type:           cfg.Audit.Type,
		FilePath:       cfg.Audit.FilePath,
		FileMaxSize:    cfg.Audit.FileMaxSize,
		FileMaxAge:     cfg.Audit.FileMaxAge,
		FileMaxBackups: cfg.Audit.FileMaxBackups,
	})
	if err != nil {
		logger.Fatal("failed to create audit logger", zap.Error(err))
	}
	defer auditLogger.Close()

	m := metrics.New()

	gw := gateway.New(gateway.Config{
		Validator: apikey.NewValidator(keyStore, userStore, logger),
		Sessions:  verifier,
		Users:     userStore,
		Logger:    logger,
		Metrics:   m,
		Audit:     auditLogger,
	})

	server, err := rest.New(rest.Config{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		MaxBodySize:  cfg.Server.MaxBodySize,
	}, rest.Deps{
		Gateway: gw,
		Keys:    apikey.NewService(keyStore, logger),
		Users:   userStore,
		Metrics: m,
		Audit:   auditLogger,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("failed to create REST server", zap.Error(err))
	}

	errChan := make(chan error, 1)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		errChan <- server.Start()
	}()

	select {
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	case sig := <-sigChan:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			logger.Error("failed to stop server cleanly", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

// initLogger initializes the zap logger.
func initLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	return cfg.Build()
}

// loadPublicKey reads a PEM-encoded RSA public key used to verify
// session tokens from the identity provider.
func loadPublicKey(path string) (*rsa.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key file: %w", err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not RSA")
	}
	return key, nil
}
