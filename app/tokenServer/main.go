package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/superfeelapi/goVoiceAgent/business/web"
	"github.com/superfeelapi/goVoiceAgent/foundation/external/inventory"
	"github.com/superfeelapi/goVoiceAgent/foundation/external/livekit"
	"github.com/superfeelapi/goVoiceAgent/foundation/logger"
	"go.uber.org/zap"
)

var (
	version   string
	buildTime string
)

type settings struct {
	conf.Version
	Web struct {
		APIHost         string        `conf:"default:0.0.0.0:5000"`
		ReadTimeout     time.Duration `conf:"default:5s"`
		WriteTimeout    time.Duration `conf:"default:10s"`
		ShutdownTimeout time.Duration `conf:"default:20s"`
	}
	Livekit struct {
		URL       string `conf:"default:ws://localhost:7880"`
		APIKey    string `conf:"default:devkey"`
		APISecret string `conf:"default:secret,mask"`
	}
	Files struct {
		InventoryPath string `conf:"default:inventory.json"`
	}
	Logger struct {
		LogDirectory string `conf:"noprint"`
		Level        string `conf:"default:info,help:debug|info|warn|error"`
	}
}

func main() {
	// =================================================================================================================
	// Configuration

	cfg := settings{
		Version: conf.Version{
			Build: version,
			Desc:  buildTime,
		},
	}

	help, err := conf.Parse("TOKEN", &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			os.Exit(0)
		}
		fmt.Println(err)
		os.Exit(1)
	}

	// =================================================================================================================
	// Application Logger

	log, err := logger.New(cfg.Logger.LogDirectory, cfg.Logger.Level, "web", "tokenServer")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	out, err := conf.String(&cfg)
	if err != nil {
		log.Errorw("startup", "ERROR", err)
	}
	log.Infow("startup", "version", version, "config", out)

	if err := run(cfg, log); err != nil {
		log.Errorw("shutdown", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg settings, log *zap.SugaredLogger) error {
	service := livekit.NewService(livekit.Config{
		URL:       cfg.Livekit.URL,
		APIKey:    cfg.Livekit.APIKey,
		APISecret: cfg.Livekit.APISecret,
	})

	handlers := web.New(service, func() (inventory.Catalog, error) {
		return inventory.Load(cfg.Files.InventoryPath)
	}, log)

	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      handlers.Router(),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		log.Infow("startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// Blocking main and waiting for error or shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}
