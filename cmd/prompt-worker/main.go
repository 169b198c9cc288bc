package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aescanero/dago-node-prompt/internal/config"
	"github.com/aescanero/dago-node-prompt/internal/llm"
	"github.com/aescanero/dago-node-prompt/internal/prompt"
	"github.com/aescanero/dago-node-prompt/internal/runner"
	"github.com/aescanero/dago-node-prompt/internal/worker"
)

var (
	// Version is set at build time
	Version = "dev"
	// BuildTime is set at build time
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting prompt worker",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("worker_id", cfg.WorkerID),
	)

	// Log configuration (without sensitive data)
	logger.Info("configuration loaded", zap.String("config", cfg.String()))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	// The LLM client is optional; render-only nodes work without it
	var llmClient llm.Client
	if cfg.LLMAPIKey != "" || cfg.LLMBaseURL != "" {
		llmClient, err = llm.NewClient(llm.Options{
			Provider: cfg.LLMProvider,
			APIKey:   cfg.LLMAPIKey,
			BaseURL:  cfg.LLMBaseURL,
		}, logger)
		if err != nil {
			logger.Warn("failed to initialize llm client (complete mode will not be available)",
				zap.Error(err),
			)
			llmClient = nil
		} else {
			logger.Info("llm client initialized",
				zap.String("provider", cfg.LLMProvider),
				zap.String("model", cfg.LLMModel),
			)
		}
	} else {
		logger.Warn("llm api key not provided (complete mode will not be available)")
	}

	// A base URL serves any model, so only a provider client is tied to one
	clientProvider := cfg.LLMProvider
	if cfg.LLMBaseURL != "" {
		clientProvider = ""
	}

	promptRunner := runner.NewRunner(llmClient, newBuilder(cfg, logger), runner.Options{
		DefaultModel: cfg.LLMModel,
		Provider:     clientProvider,
		MaxTokens:    cfg.LLMMaxTokens,
		MaxRetries:   cfg.MaxRetries,
		Timeout:      cfg.LLMTimeout,
		CELEnabled:   cfg.CELEnabled,
	}, logger)
	logger.Info("runner initialized")

	stateStore := worker.NewRedisStateStore(redisClient, logger)
	publisher := worker.NewStreamPublisher(redisClient, cfg.ResultMaxLen, logger)

	w := worker.NewWorker(cfg, redisClient, promptRunner, publisher, stateStore, logger)
	if err := w.Start(); err != nil {
		logger.Fatal("failed to start worker", zap.Error(err))
	}

	healthServer := worker.NewHealthServer(cfg.HealthPort, redisClient, logger)
	healthServer.AddCheck("worker", w.Running)
	if err := healthServer.Start(); err != nil {
		logger.Fatal("failed to start health server", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("prompt worker running, press Ctrl+C to stop")
	<-sigChan

	logger.Info("shutdown signal received, stopping worker")

	if err := healthServer.Stop(); err != nil {
		logger.Error("failed to stop health server", zap.Error(err))
	}

	if err := w.Stop(10 * time.Second); err != nil {
		logger.Error("failed to stop worker", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		logger.Error("failed to close redis connection", zap.Error(err))
	}

	logger.Info("worker stopped")
}

// newBuilder wires a shell for before: steps only when BEFORE_ENABLED is set,
// and file attachments only when FILES_ENABLED is set. Without them, steps
// and files found in stream payloads are logged and skipped.
func newBuilder(cfg *config.Config, logger *zap.Logger) *prompt.Builder {
	if !cfg.BeforeEnabled {
		logger.Info("before steps disabled")
		return prompt.NewBuilder(nil, logger).WithFiles(cfg.FilesEnabled)
	}
	logger.Warn("before steps enabled: stream payloads can run shell commands",
		zap.String("shell", cfg.Shell),
	)
	shell := prompt.NewShellRunner(cfg.Shell, cfg.BeforeTimeout, logger)
	return prompt.NewBuilder(shell, logger).WithFiles(cfg.FilesEnabled)
}

// initLogger initializes the logger
func initLogger(level string) (*zap.Logger, error) {
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

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}
