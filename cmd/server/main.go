package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-ionian/internal/agent"
	"github.com/p-n-ai/pai-ionian/internal/chat"
	"github.com/p-n-ai/pai-ionian/internal/lesson"
	"github.com/p-n-ai/pai-ionian/internal/platform/cache"
	"github.com/p-n-ai/pai-ionian/internal/platform/config"
	"github.com/p-n-ai/pai-ionian/internal/platform/database"
)

const readyTimeout = 2 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log, os.Stdout))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	catalog, err := loadCatalog(cfg.CurriculumPath)
	if err != nil {
		return fmt.Errorf("load lessons: %w", err)
	}
	slog.Info("lessons loaded", "lessons", catalog.Len(), "path", cfg.CurriculumPath)

	checks := map[string]func(context.Context) error{}

	var store agent.ConversationStore = agent.NewMemoryStore()
	if cfg.Session.Store == config.SessionStoreRedis {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return err
		}
		defer c.Close()
		checks["cache"] = c.HealthCheck
		if store, err = agent.NewRedisStore(c, cfg.Session.TTL); err != nil {
			return err
		}
	}

	var events agent.EventLogger = agent.NopEventLogger{}
	if cfg.Events.Sink == config.EventsSinkPostgres {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		checks["database"] = db.HealthCheck
		events = agent.NewPostgresEventLogger(db.Pool)
	}

	engine, err := agent.NewEngine(agent.EngineConfig{
		Catalog:     catalog,
		Store:       store,
		Events:      events,
		LessonIndex: cfg.LessonIndex,
	})
	if err != nil {
		return err
	}

	gw := chat.NewGateway()
	var ws *chat.WebSocketChannel
	if cfg.Telegram.Enabled() {
		tg, err := chat.NewTelegramChannel(cfg.Telegram.BotToken)
		if err != nil {
			return err
		}
		gw.Register("telegram", tg)
	}
	if cfg.WebSocket.Enabled {
		ws = chat.NewWebSocketChannel(cfg.WebSocket.OriginPatterns...)
		gw.Register("websocket", ws)
	}
	if err := gw.StartAll(ctx, gw.Handler(ctx, engine)); err != nil {
		return err
	}
	defer func() {
		if err := gw.StopAll(); err != nil {
			slog.Error("failed to stop channels", "error", err)
		}
	}()

	var wsHandler http.Handler
	if ws != nil {
		wsHandler = ws
	}
	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: newMux(checks, wsHandler),
		// No read or write timeout: websocket connections are long-lived.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "channels", gw.Names())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

// newLogger builds the process logger: JSON by default, text for local runs.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// loadCatalog reads lessons from dir, or the embedded lessons when dir is empty.
func loadCatalog(dir string) (*lesson.Catalog, error) {
	if dir == "" {
		return lesson.Default()
	}
	return lesson.LoadDir(dir)
}

// newMux creates the HTTP router with health check endpoints and, when ws is
// set, the websocket endpoint.
func newMux(checks map[string]func(context.Context) error, ws http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", handleReadyz(checks))
	if ws != nil {
		mux.Handle("GET /ws", ws)
	}
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func handleReadyz(checks map[string]func(context.Context) error) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				slog.Warn("readiness check failed", "check", name, "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprintf(w, `{"status":"unavailable","check":%q}`, name)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}
}
