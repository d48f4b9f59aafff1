package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	persistlog "voxelsort.ai/internal/persistence/log"
	"voxelsort.ai/internal/persistence/snapshot"
	"voxelsort.ai/internal/sim/routing"
	"voxelsort.ai/internal/sim/tick"
	"voxelsort.ai/internal/sim/tuning"
	"voxelsort.ai/internal/transport/observer"
	"voxelsort.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		layoutPath = flag.String("layout", "", "path to layout.yaml (default: <configs>/layout.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite route index")
		watch      = flag.Bool("watch_tuning", true, "reload activators when tuning.yaml changes")
		debug      = flag.Bool("debug", false, "debug logging")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := newLogger(*debug)
	defer func() { _ = logger.Sync() }()

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	lp := strings.TrimSpace(*layoutPath)
	if lp == "" {
		lp = filepath.Join(*configDir, "layout.yaml")
	}

	tune, err := tuning.Load(tp)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatal("load tuning", zap.Error(err))
		}
		logger.Info("tuning not found; using defaults", zap.String("path", tp))
		tune = tuning.Defaults()
	}

	snapDir := filepath.Join(*dataDir, "snapshots")
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = snapshot.Latest(snapDir)
	}
	store, startTick, err := loadStore(lp, snapshotToLoad, tune, logger)
	if err != nil {
		logger.Fatal("load world", zap.Error(err))
	}

	// Optional: read-model index (does not affect routing).
	idx, err := openRuntimeIndex(*dataDir, *disableDB)
	if err != nil {
		logger.Fatal("open index backend", zap.Error(err))
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Warn("index backend: upsert tuning", zap.Error(err))
		}
	}

	routeLog := persistlog.NewRouteLogger(*dataDir)
	routeLog.OnError = func(err error) { logger.Warn("route log write failed", zap.Error(err)) }
	defer routeLog.Close()

	hub := observer.NewHub(logger.Named("observer"))

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	sched := tick.NewAt(tune.TickRateHz, startTick)
	sinks := routing.MultiSink{routing.LogSink{Log: logger.Named("route")}, routeLog, hub}
	if idx != nil {
		sinks = append(sinks, idx)
	}
	eng, err := routing.New(routing.Options{
		World:      store,
		Scheduler:  sched,
		Activators: routing.NewActivators(tune.Activators.Materials, tune.Activators.Containers),
		CacheTTL:   tune.CacheTTL(),
		Sink:       sinks,
		Logger:     logger.Named("routing"),
		Meter:      provider.Meter("voxelsort.ai/routing"),
	})
	if err != nil {
		logger.Fatal("routing engine", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if *watch {
		g.Go(func() error {
			err := tuning.Watch(ctx, tp, func(t tuning.Tuning) {
				a := routing.NewActivators(t.Activators.Materials, t.Activators.Containers)
				eng.SetActivators(a)
				logger.Info("activators reloaded",
					zap.Strings("materials", a.MaterialList()),
					zap.Strings("containers", a.ContainerList()))
			}, func(err error) {
				logger.Warn("tuning reload rejected", zap.Error(err))
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				// A missing configs dir only disables reloads.
				logger.Warn("tuning watch stopped", zap.Error(err))
			}
			return nil
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = rw.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, sched, eng.Stats(), hub.Stats(), idx)
		writeOTelMetrics(r.Context(), rw, reader)
	})
	if envBool("VS_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			act := eng.Classifier().Activators()
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(struct {
				Tick       uint64        `json:"tick"`
				Containers int           `json:"containers"`
				Materials  []string      `json:"activator_materials"`
				Kinds      []string      `json:"activator_containers"`
				Stats      routing.Stats `json:"stats"`
			}{
				Tick:       sched.CurrentTick(),
				Containers: len(store.Containers()),
				Materials:  act.MaterialList(),
				Kinds:      act.ContainerList(),
				Stats:      eng.Stats(),
			})
		})
		mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel2()
			path, tick, err := requestSnapshot(ctx2, sched, store, snapDir)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": tick, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": tick, "path": path})
		})
		mux.HandleFunc("/admin/v1/observe/stats", hub.StatsHandler())
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	} else {
		logger.Info("admin endpoints disabled (VS_ENABLE_ADMIN_HTTP=false)")
	}
	mux.HandleFunc("/v1/observe", hub.WSHandler())
	mux.HandleFunc("/v1/ws", ws.NewServer(store, sched, eng, logger.Named("ws")).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		return srv.Shutdown(ctx2)
	})
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", *addr),
			zap.Int("tick_rate_hz", sched.TickRateHz()),
			zap.Int("containers", len(store.Containers())))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}

	// The scheduler has drained; the store is quiet.
	if final, err := writeFinalSnapshot(sched, store, snapDir); err != nil {
		logger.Error("final snapshot", zap.Error(err))
	} else {
		logger.Info("final snapshot", zap.String("path", final))
	}
	st := eng.Stats()
	logger.Info("bye",
		zap.Uint64("deposits", st.Deposits),
		zap.Uint64("settled", st.Settled),
		zap.Uint64("shortfalls", st.Shortfalls))
}

func newLogger(debug bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return zap.NewExample()
	}
	return l.Named("server")
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
