// Package app wires the tasker server runtime: config, logging, tracing,
// HTTP routes and the change-stream pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"tasker/cmd/identity"
	authapi "tasker/cmd/internal/auth/api"
	"tasker/cmd/internal/auth/session"
	"tasker/cmd/internal/realtime"
	"tasker/cmd/internal/store"
	"tasker/cmd/internal/tasks"
	"tasker/cmd/security/password"

	"github.com/prometheus/client_golang/prometheus"
)

// Default-registry HTTP collectors are shared by every App in the process.
var defaultHTTPMetrics = sync.OnceValue(func() *httpMetrics {
	return newHTTPMetrics(prometheus.DefaultRegisterer)
})

// App is the tasker server runtime. It owns the store, the broadcast
// pipeline and the HTTP handler tree.
type App struct {
	cfg Config
	log Logger

	store       store.Store
	hub         *realtime.Hub
	broadcaster *realtime.Broadcaster
	relay       *realtime.RedisRelay

	handler         http.Handler
	shutdownTracing func(context.Context) error
}

// New constructs a fully wired App. Background workers start in Run.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		return nil, errors.New("app: nil logger")
	}

	shutdownTracing, err := SetupTracing(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	a := &App{cfg: cfg, log: log, shutdownTracing: shutdownTracing}
	if err := a.wire(ctx); err != nil {
		a.closeResources(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return err
	}
	tokens, err := session.NewJWTManager(sessCfg)
	if err != nil {
		return err
	}
	verifier := session.NewVerifier(a.log, tokens)

	pwd, err := password.FromEnv()
	if err != nil {
		return err
	}
	authCfg, err := authapi.LoadConfigFromEnv()
	if err != nil {
		return err
	}
	rtCfg, err := realtime.LoadConfigFromEnv()
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, a.cfg.DatabaseURL, store.PoolOptions{
		MaxConns: a.cfg.DBMaxConns,
		MinConns: a.cfg.DBMinConns,
	})
	if err != nil {
		return err
	}
	a.store = st
	a.log.Info("db.open", "backend", store.Backend(st))

	a.hub = realtime.NewHub(a.log)
	var sink realtime.Sink = a.hub
	if a.cfg.RedisURL != "" {
		relay, err := realtime.NewRedisRelay(ctx, a.log, a.cfg.RedisURL, rtCfg.RedisChannel, a.hub)
		if err != nil {
			return err
		}
		a.relay = relay
		sink = relay
		a.log.Info("relay.enabled", "channel", rtCfg.RedisChannel)
	}
	a.broadcaster = realtime.NewBroadcaster(a.log, sink, rtCfg.IntakeQueueSize)

	accounts, err := identity.NewManager(a.log, st, pwd, tokens)
	if err != nil {
		return err
	}
	authHandler, err := authapi.NewHandler(a.log, authCfg, accounts, verifier)
	if err != nil {
		return err
	}

	taskSvc, err := tasks.NewService(a.log, st, a.broadcaster)
	if err != nil {
		return err
	}
	accounts.SetOwnedResources(taskSvc)
	taskHandler, err := tasks.NewHandler(a.log, taskSvc, verifier, authCfg.MaxBodyBytes)
	if err != nil {
		return err
	}

	gw, err := realtime.NewWSGateway(a.log, a.hub, verifier, rtCfg)
	if err != nil {
		return err
	}

	var (
		gatherer prometheus.Gatherer
		metrics  *httpMetrics
	)
	if a.cfg.MetricsEnabled {
		gatherer = prometheus.DefaultGatherer
		metrics = defaultHTTPMetrics()
	}

	ready := []readinessCheck{{name: "db", ping: st.Ping}}
	if a.relay != nil {
		ready = append(ready, readinessCheck{name: "redis", ping: a.relay.Ping})
	}

	mux := http.NewServeMux()
	registerHTTP(mux, a.log, ready, gatherer, routes{auth: authHandler, tasks: taskHandler, ws: gw})
	a.handler = chain(mux, a.log, metrics)
	return nil
}

// Handler returns the root HTTP handler with the middleware chain applied.
func (a *App) Handler() http.Handler { return a.handler }

// Run starts background workers and the HTTP server, and blocks until ctx is
// cancelled or the server fails. Shutdown drains HTTP first, then stops the
// broadcast pipeline and releases the relay, store and tracer in that order.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		a.closeResources(context.Background())
		return fmt.Errorf("listen %s: %w", a.cfg.HTTPAddr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on a caller-provided listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	workers, stopWorkers := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = a.broadcaster.Run(workers)
	}()
	if a.relay != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.relay.Run(workers); err != nil {
				a.log.Error("relay.run.fail", "err", err)
			}
		}()
	}

	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	base := runtimeBaseURL(ln.Addr().String())
	a.log.Info("server.start",
		"addr", ln.Addr().String(),
		"base_url", base,
		"ws_url", wsBaseURL(base)+"/ws",
		"db_backend", store.Backend(a.store),
		"relay", a.relay != nil,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case runErr = <-errCh:
		a.log.Error("server.fail", "err", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		if runErr == nil {
			runErr = err
		}
	}
	a.hub.CloseAll()

	stopWorkers()
	wg.Wait()

	a.closeResources(shutdownCtx)
	a.log.Info("server.stopped")
	return runErr
}

func (a *App) closeResources(ctx context.Context) {
	if a.relay != nil {
		if err := a.relay.Close(); err != nil {
			a.log.Error("relay.close.fail", "err", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Error("store.close.fail", "err", err)
		}
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			a.log.Error("tracing.shutdown.fail", "err", err)
		}
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
