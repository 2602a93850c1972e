package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicecall-engine/internal/auth"
	"voicecall-engine/internal/call"
	"voicecall-engine/internal/config"
	"voicecall-engine/internal/diagnostics"
	"voicecall-engine/internal/directory"
	"voicecall-engine/internal/gateway"
	"voicecall-engine/internal/history"
	"voicecall-engine/internal/httpapi"
	"voicecall-engine/internal/media"
	"voicecall-engine/internal/reporting"
	"voicecall-engine/internal/signaling"
	"voicecall-engine/internal/telephony"
	"voicecall-engine/pkg/logger"
	"voicecall-engine/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const directoryCacheTTL = 10 * time.Minute

// transport forwards Sender/Connectivity calls to the gateway client. The
// engine needs a Sender at construction while the gateway needs the engine as
// its inbound handler; this indirection breaks the cycle. The client field is
// assigned before any goroutine starts.
type transport struct{ client *gateway.Client }

func (t *transport) Send(msg signaling.Message, recipientID string) {
	t.client.Send(msg, recipientID)
}

func (t *transport) IsConnected() bool {
	return t.client != nil && t.client.IsConnected()
}

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	dir := directory.NewCachedDirectory(directory.NewPostgresRepo(db), rdb, directoryCacheTTL, log)
	hist := history.NewPostgresRepo(db)
	diag := diagnostics.NewService(diagnostics.NewPostgresRepo(db))

	// The adapter needs the engine and the engine needs an adapter provider;
	// the provider closure reads the variable assigned right after NewEngine.
	tr := &transport{}
	ringer := telephony.NopRinger{}
	var adapter call.Adapter
	eng, err := call.NewEngine(call.Config{
		SelfID:            cfg.Account.UserID,
		UnansweredTimeout: cfg.Call.UnansweredTimeout,
	}, call.Deps{
		Registry:     call.NewRegistry(cfg.Call.MaxPendingOffers),
		Media:        media.Unimplemented{},
		Adapter:      func() call.Adapter { return adapter },
		Directory:    dir,
		Sender:       tr,
		Connectivity: tr,
		History:      hist,
		Diagnostics:  diag,
		Ringer:       ringer,
		Logger:       log,
	})
	if err != nil {
		log.Error("engine init failed", "err", err)
		os.Exit(1)
	}
	adapter = telephony.NewNativeAdapter(
		eng,
		tr,
		telephony.StaticPermission(telephony.PermissionGranted),
		ringer,
		telephony.NopNotifier{},
		telephony.AlwaysForeground{},
		log,
	)

	sigRouter := signaling.NewRouter(eng, signaling.NewRedisDeduper(rdb, cfg.Call.DedupTTL), log)
	gw := gateway.NewClient(gateway.Config{
		URL:          cfg.Gateway.URL,
		Token:        cfg.Gateway.Token,
		PingInterval: cfg.Gateway.PingInterval,
		WriteTimeout: cfg.Gateway.WriteTimeout,
	}, sigRouter, log)
	tr.client = gw

	go eng.Run(rootCtx)
	go gw.Run(rootCtx)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	h := httpapi.Handlers{
		Auth:      authManager,
		Calls:     eng,
		Reporting: reporting.NewService(hist, cfg.Account.UserID),
		SelfID:    cfg.Account.UserID,
	}
	registerRoutes(r, h, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "account", cfg.Account.UserID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
