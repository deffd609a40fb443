package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bunniapp/tokenomics-sub000/config"
	"github.com/Bunniapp/tokenomics-sub000/core/events"
	"github.com/Bunniapp/tokenomics-sub000/gateway"
	"github.com/Bunniapp/tokenomics-sub000/gateway/middleware"
	"github.com/Bunniapp/tokenomics-sub000/native/masterbunni"
	"github.com/Bunniapp/tokenomics-sub000/observability/logging"
	"github.com/Bunniapp/tokenomics-sub000/storage"
	"github.com/Bunniapp/tokenomics-sub000/storage/state"

	"log/slog"
)

// logEmitter forwards engine events to structured logs. A production
// deployment would publish them to a bus instead.
type logEmitter struct {
	logger *slog.Logger
}

func (l *logEmitter) AppendEvent(evt *events.Event) {
	if evt == nil {
		return
	}
	attrs := make([]any, 0, len(evt.Attributes)*2)
	for k, v := range evt.Attributes {
		attrs = append(attrs, k, v)
	}
	l.logger.Info(evt.Type, attrs...)
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./config.toml", "path to the masterbunnid config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup("masterbunnid", cfg.Environment)

	var db storage.Database
	if cfg.DataDir == "" {
		db = storage.NewMemDB()
		logger.Warn("no data_dir configured, state is in-memory only")
	} else {
		ldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			logger.Error("open leveldb", "path", cfg.DataDir, "error", err)
			os.Exit(1)
		}
		db = ldb
	}
	defer db.Close()

	manager := state.NewManager(db)

	engine := masterbunni.NewEngine(cfg.Engine())
	engine.SetState(manager)
	engine.SetEmitter(&logEmitter{logger: logger.With("component", "engine")})

	bank := masterbunni.NewBank(manager)
	bank.RegisterLockReceiver(cfg.Engine(), engine)
	port := bank.Bind(cfg.Engine())
	engine.SetTokenPort(port)
	engine.SetLockPort(port)

	obs := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName: "masterbunnid",
		LogRequests: cfg.Environment != "production",
	}, logger)
	server := gateway.NewServer(engine, bank, logger.With("component", "gateway"), obs)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("gateway listening", "address", cfg.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("gateway serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gateway shutdown", "error", err)
	}
}
