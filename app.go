package main

import (
	"context"
	"fmt"
	"time"

	"sanfish/fishdata"
	"sanfish/images"
	"sanfish/ratelimit"
	"sanfish/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type App struct {
	cfg      Config
	log      *zap.Logger
	store    store.Store
	images   images.Store
	limiter  *ratelimit.FixedWindowLimiter
	svc      *fishdata.Service
	registry *prometheus.Registry
	metrics  *httpMetrics
}

// newApp connects the configured backends.
func newApp(ctx context.Context, cfg Config, log *zap.Logger) (*App, error) {
	var st store.Store
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory store, data is lost on restart")
		st = store.NewMemoryStore(nil)
	default:
		ms, err := store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		st = ms
	}

	var img images.Store
	if cfg.MinioEndpoint != "" {
		ms, err := images.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioPublicURL, cfg.MinioUseSSL)
		if err != nil {
			_ = st.Close(ctx)
			return nil, fmt.Errorf("minio: %w", err)
		}
		img = ms
	} else {
		fs, err := images.NewFileStore(cfg.UploadDir, cfg.UploadPublicPrefix)
		if err != nil {
			_ = st.Close(ctx)
			return nil, fmt.Errorf("upload dir: %w", err)
		}
		img = fs
	}

	var limiter *ratelimit.FixedWindowLimiter
	if cfg.RedisAddr != "" && cfg.RateLimitPerMinute > 0 {
		l, err := ratelimit.NewRedisFixedWindowLimiter(ctx, cfg.RedisAddr, cfg.RedisPassword, "sanfish:ratelimit", cfg.RateLimitPerMinute, time.Minute)
		if err != nil {
			_ = st.Close(ctx)
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		limiter = l
	}

	return assemble(cfg, log, st, img, limiter), nil
}

// assemble wires the service and metrics around already-open backends.
func assemble(cfg Config, log *zap.Logger, st store.Store, img images.Store, limiter *ratelimit.FixedWindowLimiter) *App {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := fishdata.NewService(st, log.Named("fishdata"),
		fishdata.WithImages(img),
		fishdata.WithMetrics(fishdata.NewMetrics(reg)),
		fishdata.WithPermissiveAppend(cfg.PermissiveDiseaseAppend),
	)
	return &App{
		cfg:      cfg,
		log:      log,
		store:    st,
		images:   img,
		limiter:  limiter,
		svc:      svc,
		registry: reg,
		metrics:  newHTTPMetrics(reg),
	}
}

func (a *App) close(ctx context.Context) {
	if a.limiter != nil {
		if err := a.limiter.Close(); err != nil {
			a.log.Warn("close rate limiter", zap.Error(err))
		}
	}
	if err := a.store.Close(ctx); err != nil {
		a.log.Warn("close store", zap.Error(err))
	}
}
