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

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"pantheon/internal/civilization"
	civmetrics "pantheon/internal/civilization/metrics"
	civsvc "pantheon/internal/civilization/service"
	"pantheon/internal/diplomacy"
	dipmetrics "pantheon/internal/diplomacy/metrics"
	dipsvc "pantheon/internal/diplomacy/service"
	"pantheon/internal/events"
	"pantheon/internal/milestone"
	milemetrics "pantheon/internal/milestone/metrics"
	milesvc "pantheon/internal/milestone/service"
	"pantheon/internal/platform/config"
	"pantheon/internal/platform/httpserver"
	"pantheon/internal/platform/logger"
	"pantheon/internal/platform/metrics"
	"pantheon/internal/platform/middleware"
	"pantheon/internal/platform/redis"
	"pantheon/internal/presence"
	"pantheon/internal/religion"
	religionmetrics "pantheon/internal/religion/metrics"
	religionsvc "pantheon/internal/religion/service"
	"pantheon/internal/snapshot"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	platMetrics := metrics.New()
	bus := events.NewBus(events.WithMetrics(platMetrics))

	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	var resolver presence.Resolver
	if redisClient != nil {
		resolver = presence.NewRedis(redisClient.Client)
		log.Info("presence resolver using redis")
	} else {
		resolver = presence.NewInMemory()
		log.Info("presence resolver in memory, display names unavailable")
	}

	var blobs snapshot.Store
	var pg *snapshot.Postgres
	if cfg.PostgresDSN != "" {
		pg, err = snapshot.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer pg.Close()
		blobs = pg
		log.Info("snapshot store using postgres")
	} else {
		blobs = snapshot.NewInMemory()
		log.Info("snapshot store in memory, state will not survive restarts")
	}

	religionStore := religion.NewStore()
	civStore := civilization.NewStore()
	dipStore := diplomacy.NewStore()
	mileStore := milestone.NewStore()

	religionSvc := religion.NewService(religionStore, bus,
		religionsvc.WithLogger(log),
		religionsvc.WithMetrics(religionmetrics.New()),
		religionsvc.WithPresence(resolver))
	civSvc := civilization.NewService(civStore, religionSvc, bus,
		civsvc.WithLogger(log),
		civsvc.WithMetrics(civmetrics.New(prometheus.DefaultRegisterer)))
	dipSvc := diplomacy.NewService(dipStore, civSvc, bus,
		dipsvc.WithLogger(log),
		dipsvc.WithMetrics(dipmetrics.New(prometheus.DefaultRegisterer)))
	mileSvc := milestone.NewService(mileStore, civSvc, religionSvc, religionSvc, bus,
		milesvc.WithLogger(log),
		milesvc.WithMetrics(milemetrics.New(prometheus.DefaultRegisterer)))

	// Cross-module reactions ride the event bus so no service calls another
	// mutator directly. Order matters: cascades (civilization cleanup after a
	// religion deletion) must run before the milestone engine rechecks.
	bus.Subscribe(civSvc.HandleReligionDeleted)
	bus.Subscribe(dipSvc.HandleCivilizationDisbanded)
	bus.Subscribe(mileSvc.HandleEvent)

	state := &persister{
		blobs:      blobs,
		religions:  religionStore,
		civs:       civStore,
		diplomacy:  dipStore,
		milestones: mileStore,
		logger:     log,
	}
	if err := state.restore(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	sink, err := events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	if err != nil {
		return err
	}
	if sink != nil {
		bus.Subscribe(sink.Handler())
		g.Go(func() error { return sink.Run(ctx) })
		log.Info("kafka event mirror enabled", "topic", cfg.KafkaTopic)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(log))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.ActingPlayer)

	religion.NewHandler(religionSvc, log).Register(r)
	civilization.NewHandler(civSvc, log).Register(r)
	diplomacy.NewHandler(dipSvc, log).Register(r)
	milestone.NewHandler(mileSvc, log).Register(r)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", healthHandler(redisClient, pg))

	srv := httpserver.New(cfg.Addr, r)
	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		sweep(ctx, cfg.SweepInterval, platMetrics, log, religionSvc, civSvc, dipSvc)
		return nil
	})

	err = g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if flushErr := state.flush(flushCtx); flushErr != nil {
		log.Error("failed to flush snapshots on shutdown", "error", flushErr.Error())
		if err == nil {
			err = flushErr
		}
	}
	return err
}

// sweep runs the periodic expiry pass: temporary bans, civilization invites,
// elapsed treaty breaks, expired relationships and proposals.
func sweep(
	ctx context.Context,
	interval time.Duration,
	m *metrics.Metrics,
	log *slog.Logger,
	religions *religion.Service,
	civs *civilization.Service,
	dip *diplomacy.Service,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			bans := religions.SweepExpiredBans(ctx)
			invites := civs.SweepExpiredInvites(ctx)
			rels, proposals := dip.Sweep(ctx)
			m.SweepDuration.Observe(time.Since(start).Seconds())
			if bans+invites+rels+proposals > 0 {
				log.InfoContext(ctx, "sweep pass removed expired records",
					"bans", bans, "invites", invites,
					"relationships", rels, "proposals", proposals)
			}
		}
	}
}

func healthHandler(redisClient *redis.Client, pg *snapshot.Postgres) http.HandlerFunc {
	type component struct {
		Status string `json:"status"`
	}
	check := func(ctx context.Context, health func(context.Context) error) component {
		if health == nil {
			return component{Status: "disabled"}
		}
		if err := health(ctx); err != nil {
			return component{Status: "unhealthy"}
		}
		return component{Status: "ok"}
	}
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		var redisHealth, pgHealth func(context.Context) error
		if redisClient != nil {
			redisHealth = redisClient.Health
		}
		if pg != nil {
			pgHealth = pg.Health
		}

		body := map[string]component{
			"redis":    check(ctx, redisHealth),
			"postgres": check(ctx, pgHealth),
		}
		status := http.StatusOK
		for _, c := range body {
			if c.Status == "unhealthy" {
				status = http.StatusServiceUnavailable
			}
		}
		middleware.WriteJSON(w, status, body)
	}
}
