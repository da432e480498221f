package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/gatehouse/pkg/config"
	"github.com/platinummonkey/gatehouse/pkg/identity"
	"github.com/platinummonkey/gatehouse/pkg/middleware"
	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/registry"
	"github.com/platinummonkey/gatehouse/pkg/session"
	"github.com/platinummonkey/gatehouse/pkg/sso"
	"github.com/platinummonkey/gatehouse/pkg/token"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	health := observability.NewHealthChecker()

	// Account store: Postgres when configured, in-memory otherwise.
	var accounts identity.Store
	if cfg.Store.PostgresURL != "" {
		pg, err := identity.NewPostgresStore(cfg.Store.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to connect account store: %v", err)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("Failed to prepare account schema: %v", err)
		}
		accounts = pg
		health.AddCheck("postgres", pg.Ping)
		logger.Info("using postgres account store")
	} else {
		accounts = identity.NewMemoryStore()
		logger.Warn("no GATEHOUSE_POSTGRES_URL set; using in-memory account store")
	}

	// Login key registry: Redis when several processes share one logical
	// server, in-process otherwise.
	var keys registry.Store
	if cfg.Store.RedisURL != "" {
		rds, err := registry.NewRedis(registry.RedisConfig{
			URL:      cfg.Store.RedisURL,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		if err != nil {
			log.Fatalf("Failed to connect login key registry: %v", err)
		}
		defer rds.Close()
		keys = rds
		health.AddCheck("redis", rds.Ping)
		logger.Info("using redis login key registry")
	} else {
		keys = registry.NewMemory()
	}

	codec, err := token.NewCodec(cfg.Security.JWTSecret, logger)
	if err != nil {
		log.Fatalf("Failed to initialize token codec: %v", err)
	}

	sessions := session.NewManager(cfg.Security.SessionCookie)
	auth := session.NewAuthenticator(logger)
	tenants := sso.NewStateTenantSwitcher(logger)

	local := sso.NewLocal(keys, auth, tenants, logger)
	remote := sso.NewRemote(accounts, codec, &cfg.Security, auth, tenants, logger)
	if metrics != nil {
		local.SetMetrics(metrics)
		remote.SetMetrics(metrics)
	}

	// A session's login key dies with the session or its logout.
	auth.SetLogoutHook(local.Cleanup)
	sessions.OnEnd(local.Cleanup)

	router := mux.NewRouter()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID)
	if metrics != nil {
		router.Use(middleware.Metrics(metrics))
	}
	router.Use(middleware.SessionState(sessions, cfg.Security.DefaultTenant))
	router.Use(middleware.HandOff(local, remote))

	registerRoutes(router, local, remote, auth, accounts, sessions, logger)

	// Health/metrics server on a separate port.
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", health.Liveness)
	healthMux.HandleFunc("/readyz", health.Readiness)
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}
	go func() {
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.WithField("addr", server.Addr).Info("gatehouse listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown failed")
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("health server shutdown failed")
	}
	if err := keys.Clear(context.Background()); err != nil {
		logger.WithError(err).Error("failed to clear login key registry")
	}
}

// registerRoutes mounts the demo/control surface. Credential verification
// is owned by the fronting platform; /login trusts the user id it is given
// and exists so the hand-off flow can be exercised end to end.
func registerRoutes(router *mux.Router, local *sso.Local, remote *sso.Remote, auth *session.Authenticator, accounts identity.Store, sessions *session.Manager, logger *observability.Logger) {
	router.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		st := session.FromContext(r.Context())
		id := r.FormValue("userLoginId")
		if st == nil || id == "" {
			http.Error(w, "userLoginId is required", http.StatusBadRequest)
			return
		}
		p, err := accounts.Lookup(r.Context(), st.Tenant, id)
		if err != nil {
			http.Error(w, "unknown account", http.StatusNotFound)
			return
		}
		if !p.LoginAllowed() {
			http.Error(w, "account disabled", http.StatusForbidden)
			return
		}
		if err := auth.Login(st, p); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]interface{}{"userLoginId": p.ID, "tenant": p.Tenant})
	}).Methods(http.MethodPost)

	router.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		st := session.FromContext(r.Context())
		if st == nil {
			http.Error(w, "no session", http.StatusBadRequest)
			return
		}
		if err := auth.Logout(st); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		sessions.End(st.Session.ID())
		writeJSON(w, map[string]interface{}{"loggedOut": true})
	}).Methods(http.MethodPost)

	router.HandleFunc("/whoami", func(w http.ResponseWriter, r *http.Request) {
		st := session.FromContext(r.Context())
		if st == nil || st.Principal == nil {
			writeJSON(w, map[string]interface{}{"anonymous": true, "tenant": tenantOf(st)})
			return
		}
		writeJSON(w, map[string]interface{}{
			"userLoginId": st.Principal.ID,
			"tenant":      st.Tenant,
		})
	}).Methods(http.MethodGet)

	// The key another webapp on this server appends to its links.
	router.HandleFunc("/loginkey", func(w http.ResponseWriter, r *http.Request) {
		key := local.ExternalLoginKey(r)
		writeJSON(w, map[string]interface{}{sso.LoginKeyParam: key})
	}).Methods(http.MethodGet)

	// The bearer token a peer server requires alongside
	// externalServerLoginKey.
	router.HandleFunc("/servertoken", func(w http.ResponseWriter, r *http.Request) {
		st := session.FromContext(r.Context())
		if st == nil || st.Principal == nil {
			http.Error(w, "not logged in", http.StatusUnauthorized)
			return
		}
		dest := r.URL.Query().Get("destination")
		if dest == "" {
			http.Error(w, "destination is required", http.StatusBadRequest)
			return
		}
		signed, err := remote.IssueServerToken(st.Tenant, st.Principal.ID, dest)
		if err != nil {
			logger.WithError(err).Error("failed to issue server token")
			http.Error(w, "token issuance failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]interface{}{
			sso.ServerLoginKeyParam: st.Principal.ID,
			"token":                 signed,
		})
	}).Methods(http.MethodGet)
}

func tenantOf(st *session.State) string {
	if st == nil {
		return ""
	}
	return st.Tenant
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
