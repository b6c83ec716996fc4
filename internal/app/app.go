// Package app wires together the antposd HTTP API, the WebSocket event hub
// and Prometheus metrics around a hot-swappable station registry. It owns
// the daemon's lifecycle and is the single source of truth for the current
// operating state.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/large-farva/antpos/internal/config"
	"github.com/large-farva/antpos/internal/dataset"
	"github.com/large-farva/antpos/internal/logging"
	"github.com/large-farva/antpos/internal/registry"
	"github.com/large-farva/antpos/internal/telemetry"
	"github.com/large-farva/antpos/internal/ws"
)

// Daemon states.
const (
	StateBooting  = "BOOTING"
	StateLoading  = "LOADING"
	StateReady    = "READY"
	StateStopping = "STOPPING"
)

// OpenFunc produces a registry for a configuration.
type OpenFunc func(ctx context.Context, cfg config.Config) (*registry.Registry, dataset.Origin, error)

// Options holds everything the App needs from the caller.
type Options struct {
	Logger     *slog.Logger
	Cfg        config.Config
	ConfigPath string // re-read on reload when set
	Bind       string // overrides Cfg.Server.Bind

	// Open defaults to OpenDataset.
	Open OpenFunc
}

// generation is one immutable registry plus where it came from. The App
// swaps whole generations, never parts of one.
type generation struct {
	reg      *registry.Registry
	origin   dataset.Origin
	number   uint64
	loadedAt time.Time
}

// App is the top-level daemon process.
type App struct {
	log        *slog.Logger
	cfgMu      sync.RWMutex
	cfg        config.Config
	configPath string
	bind       string
	open       OpenFunc
	server     *http.Server
	handler    http.Handler

	startedAt time.Time
	state     atomic.Value // current state string (BOOTING, READY, etc.)

	current  atomic.Pointer[generation]
	reloadMu sync.Mutex

	wsHub   *ws.Hub
	metrics *metrics
}

// OpenDataset builds a registry from cfg's [data] and [geo] sections.
func OpenDataset(ctx context.Context, cfg config.Config) (*registry.Registry, dataset.Origin, error) {
	ell, err := cfg.Ellipsoid()
	if err != nil {
		return nil, dataset.Origin{}, err
	}
	return dataset.Open(ctx, cfg.Data,
		registry.WithEllipsoid(ell),
		registry.WithLocalTolerance(cfg.Data.LocalToleranceM),
	)
}

// New creates an App in the BOOTING state. Call Load or Run to get a
// registry in place.
func New(opts Options) *App {
	base := opts.Logger
	if base == nil {
		base = logging.Discard()
	}
	a := &App{
		cfg:        opts.Cfg,
		configPath: opts.ConfigPath,
		bind:       opts.Bind,
		open:       opts.Open,
		startedAt:  time.Now(),
		wsHub:      ws.NewHub(),
	}
	if a.open == nil {
		a.open = OpenDataset
	}
	a.log = logging.Tee(base, slog.LevelInfo, a.mirrorLog)
	a.metrics = newMetrics(a.wsHub)
	a.handler = a.routes()
	a.state.Store(StateBooting)
	return a
}

// Handler returns the daemon's HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Run loads the dataset, then starts the HTTP server, WebSocket hub and
// heartbeat ticker. It blocks until the context is cancelled or the server
// returns an error.
func (a *App) Run(ctx context.Context) error {
	bind := a.bind
	if bind == "" {
		bind = a.getConfig().Server.Bind
	}
	if bind == "" {
		bind = "0.0.0.0:8080"
	}

	go a.wsHub.Run(ctx)

	if err := a.Load(ctx); err != nil {
		return fmt.Errorf("initial dataset load: %w", err)
	}

	a.server = &http.Server{
		Addr:              bind,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}

	a.log.Info("listening", "url", "http://"+bind)
	go a.heartbeatLoop(ctx)

	go func() {
		<-ctx.Done()
		a.transition(StateStopping)
		a.log.Info("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.server.Shutdown(shutdownCtx)
	}()

	if err := a.server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Load builds the first registry from the configuration the App was created
// with.
func (a *App) Load(ctx context.Context) error {
	a.transition(StateLoading)
	_, err := a.swap(ctx, false)
	if err != nil {
		return err
	}
	a.transition(StateReady)
	return nil
}

// Reload re-reads the configuration file (when one was given) and builds a
// fresh registry. The new generation replaces the old one in a single atomic
// store; on any error the old generation keeps serving.
func (a *App) Reload(ctx context.Context) (DatasetInfo, error) {
	return a.swap(ctx, true)
}

func (a *App) swap(ctx context.Context, reread bool) (DatasetInfo, error) {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	cfg := a.getConfig()
	if reread && a.configPath != "" {
		next, err := config.Load(a.configPath)
		if err != nil {
			return DatasetInfo{}, a.reloadFailed(fmt.Errorf("config reload: %w", err))
		}
		cfg = next
	}

	start := time.Now()
	reg, origin, err := a.open(ctx, cfg)
	if err != nil {
		return DatasetInfo{}, a.reloadFailed(err)
	}
	took := time.Since(start)

	var number uint64 = 1
	if prev := a.current.Load(); prev != nil {
		number = prev.number + 1
	}
	gen := &generation{reg: reg, origin: origin, number: number, loadedAt: time.Now()}
	a.current.Store(gen)
	a.setConfig(cfg)

	a.metrics.reloads.WithLabelValues("ok").Inc()
	a.metrics.generation.Set(float64(number))
	a.metrics.stations.Set(float64(reg.Len()))
	a.metrics.antennas.Set(float64(reg.AntennaCount()))

	if origin.FallbackReason != "" {
		a.log.Warn("configured dataset unavailable, serving embedded set", "reason", origin.FallbackReason)
	}
	a.log.Info("dataset loaded",
		"generation", number,
		"origin", origin.String(),
		"stations", reg.Len(),
		"antennas", reg.AntennaCount(),
		"took", took,
	)
	a.wsHub.BroadcastJSON(telemetry.NewDatasetLoaded(number, origin.String(), reg.Len(), reg.AntennaCount(), took))
	return gen.info(), nil
}

func (a *App) reloadFailed(err error) error {
	var number uint64
	if g := a.current.Load(); g != nil {
		number = g.number
	}
	a.metrics.reloads.WithLabelValues("error").Inc()
	a.log.Error("dataset load failed", "err", err, "serving_generation", number)
	a.wsHub.BroadcastJSON(telemetry.NewReloadFailed(number, err))
	return err
}

// DatasetInfo summarises the generation currently served.
type DatasetInfo struct {
	Generation uint64         `json:"generation"`
	Origin     dataset.Origin `json:"origin"`
	Stations   int            `json:"stations"`
	Antennas   int            `json:"antennas"`
	Ellipsoid  string         `json:"ellipsoid"`
	LoadedAt   string         `json:"loaded_at"`
}

func (g *generation) info() DatasetInfo {
	return DatasetInfo{
		Generation: g.number,
		Origin:     g.origin,
		Stations:   g.reg.Len(),
		Antennas:   g.reg.AntennaCount(),
		Ellipsoid:  g.reg.Ellipsoid().Name,
		LoadedAt:   g.loadedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (a *App) getConfig() config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg
}

func (a *App) setConfig(cfg config.Config) {
	a.cfgMu.Lock()
	a.cfg = cfg
	a.cfgMu.Unlock()
}

// transition atomically updates the daemon state and broadcasts the change
// to all connected WebSocket clients.
func (a *App) transition(newState string) {
	old := a.state.Swap(newState).(string)
	if old == newState {
		return
	}
	a.wsHub.BroadcastJSON(telemetry.NewStateTransition(old, newState))
}

// heartbeatLoop sends a periodic heartbeat event so clients can detect
// connectivity and track uptime without polling.
func (a *App) heartbeatLoop(ctx context.Context) {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			var number uint64
			if g := a.current.Load(); g != nil {
				number = g.number
			}
			a.wsHub.BroadcastJSON(telemetry.NewHeartbeat(a.state.Load().(string), time.Since(a.startedAt), number))
		}
	}
}

// mirrorLog forwards daemon log records to WebSocket clients.
func (a *App) mirrorLog(r slog.Record) {
	attrs := make(map[string]string, r.NumAttrs())
	r.Attrs(func(at slog.Attr) bool {
		attrs[at.Key] = at.Value.String()
		return true
	})
	a.wsHub.BroadcastJSON(telemetry.NewLogLine(r.Level.String(), r.Message, attrs))
}
