// Command tabctl serves browser automation tools over MCP: referenced
// accessibility snapshots, element actions by ref token, content extraction.
//
// The protocol runs on stdio; logs go to stderr. Configuration comes from a
// YAML file (TABCTL_CONFIG) with env-var overrides. An optional HTTP surface
// (HTTP_ADDR) exposes health, audit, and snapshot debug endpoints.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/tabctl/tabctl/dbopen"
	"github.com/tabctl/tabctl/httpmw"
	"github.com/tabctl/tabctl/observability"
	"github.com/tabctl/tabctl/session"
)

func main() {
	logLevel := env("LOG_LEVEL", "info")
	configPath := env("TABCTL_CONFIG", "")
	auditPath := env("AUDIT_DB", "db/audit.db")
	httpAddr := env("HTTP_ADDR", "")

	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	// Stdout carries the MCP protocol; everything else goes to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, configPath, auditPath, httpAddr); err != nil {
		logger.Error("tabctl: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, auditPath, httpAddr string) error {
	cfg := &session.Config{}
	if configPath != "" {
		loaded, err := session.LoadConfigFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if ws := env("CHROME_WS_URL", ""); ws != "" {
		cfg.Browser.RemoteURL = ws
	}

	// Audit log. AUDIT_DB=off disables it.
	var opts []session.SessionOption
	opts = append(opts, session.WithLogger(logger))

	var cmdLog *observability.CommandLog
	if auditPath != "" && auditPath != "off" {
		db, err := dbopen.Open(auditPath,
			dbopen.WithMkdirAll(),
			dbopen.WithSchema(observability.Schema))
		if err != nil {
			return err
		}
		defer db.Close()
		cmdLog = observability.NewCommandLog(db, observability.WithLogger(logger))
		opts = append(opts, session.WithAudit(cmdLog))
	}

	sess := session.New(*cfg, opts...)
	if err := sess.Start(ctx); err != nil {
		return err
	}
	defer sess.Close()

	hb := observability.NewHeartbeat(0, sess.Stats, logger)
	go hb.Run(ctx)

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "tabctl",
		Version: "0.1.0",
	}, nil)
	sess.RegisterMCP(srv)

	if httpAddr != "" {
		go serveHTTP(ctx, logger, httpAddr, sess, cmdLog)
	}

	logger.Info("tabctl: serving MCP on stdio")
	err := srv.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// serveHTTP exposes the debug surface: health, recent audit rows, and the
// last committed snapshot per tab. Protected by basic auth when
// AUTH_PASSWORD_HASH (bcrypt) is set.
func serveHTTP(ctx context.Context, logger *slog.Logger, addr string, sess *session.Session, cmdLog *observability.CommandLog) {
	r := chi.NewRouter()
	for _, mw := range httpmw.DefaultStack() {
		r.Use(mw)
	}

	if hash := env("AUTH_PASSWORD_HASH", ""); hash != "" {
		r.Use(httpmw.BasicAuth(hash))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Get("/debug/snapshot", func(w http.ResponseWriter, req *http.Request) {
		text, err := sess.SnapshotText(req.URL.Query().Get("tab"))
		if err != nil {
			writeJSON(w, 404, map[string]string{"error": err.Error()})
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(text))
	})

	r.Get("/debug/audit", func(w http.ResponseWriter, req *http.Request) {
		if cmdLog == nil {
			writeJSON(w, 404, map[string]string{"error": "audit log disabled"})
			return
		}
		recent, err := cmdLog.Recent(req.Context(), 100)
		if err != nil {
			writeJSON(w, 500, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, 200, recent)
	})

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("tabctl: http listening", "addr", addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("tabctl: http", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
