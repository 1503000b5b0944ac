package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BeygonK/Health-Information-System/internal/auth"
	"github.com/BeygonK/Health-Information-System/internal/handler"
	"github.com/BeygonK/Health-Information-System/internal/repository"
	"github.com/BeygonK/Health-Information-System/internal/service"
	"github.com/BeygonK/Health-Information-System/internal/validation"
	"github.com/BeygonK/Health-Information-System/pkg/cache"
	"github.com/BeygonK/Health-Information-System/pkg/config"
	"github.com/BeygonK/Health-Information-System/pkg/database"
	"github.com/BeygonK/Health-Information-System/pkg/fieldcrypt"
	"github.com/BeygonK/Health-Information-System/pkg/jobs"
	"github.com/BeygonK/Health-Information-System/pkg/logger"
)

const cacheKeyPrefix = "his:"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

// stores groups the persistence backends selected by STORAGE_DRIVER.
type stores struct {
	programs    service.ProgramStore
	clients     service.ClientStore
	enrollments service.EnrollmentStore
	pinger      handler.Pinger
	closer      io.Closer
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	cipher, err := newFieldCipher(cfg.Crypto, logr)
	if err != nil {
		return err
	}

	st, err := openStores(cfg.Storage)
	if err != nil {
		return err
	}
	if st.closer != nil {
		defer st.closer.Close()
	}

	metrics := service.NewMetricsService()
	cacheRepo, closeCache := openCache(ctx, cfg.Cache, logr)
	defer closeCache()
	profileCache := service.NewCacheService(cacheRepo, metrics, cfg.Cache.ProfileTTL, logr, true)

	pool := jobs.NewPool("client-search", jobs.PoolConfig{
		Workers:    cfg.Search.Workers,
		BufferSize: cfg.Search.QueueSize,
		Logger:     logr,
	})
	// Not tied to ctx so in-flight searches finish while the server drains.
	pool.Start(context.Background())
	defer pool.Stop()

	validator := validation.New()
	programs := service.NewProgramService(st.programs, validator, logr)
	clients := service.NewClientService(service.ClientServiceConfig{
		Clients:     st.clients,
		Enrollments: st.enrollments,
		Cipher:      cipher,
		Cache:       profileCache,
		SearchPool:  pool,
		Validator:   validator,
		Metrics:     metrics,
		ProfileTTL:  cfg.Cache.ProfileTTL,
		Logger:      logr,
	})

	router := handler.NewRouter(handler.RouterConfig{
		Programs:       handler.NewProgramHandler(programs, validator),
		Clients:        handler.NewClientHandler(clients, validator),
		Ops:            handler.NewMetricsHandler(metrics, st.pinger, logr),
		Verifier:       newVerifier(cfg.Auth),
		Metrics:        metrics,
		Logger:         logr,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "storage", cfg.Storage.Driver, "cache", cfg.Cache.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logr.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logr.Info("shutdown complete")
	return nil
}

func openStores(cfg config.StorageConfig) (*stores, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		mem := repository.NewMemoryStore()
		return &stores{
			programs:    mem.Programs(),
			clients:     mem.Clients(),
			enrollments: mem.Enrollments(),
			pinger:      mem,
		}, nil
	case config.DriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &stores{
			programs:    repository.NewProgramRepository(db),
			clients:     repository.NewClientRepository(db),
			enrollments: repository.NewEnrollmentRepository(db),
			pinger:      db,
			closer:      db,
		}, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Driver)
	}
}

// openCache falls back to the in-process cache when Redis cannot be reached
// so a cache outage never blocks boot.
func openCache(ctx context.Context, cfg config.CacheConfig, logr *zap.Logger) (service.CacheRepository, func()) {
	if cfg.Driver == config.DriverRedis {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err == nil {
			repo := repository.NewCacheRepository(client, cacheKeyPrefix)
			return repo, func() { _ = repo.Close() }
		}
		logr.Warn("redis unavailable, using in-process profile cache", zap.Error(err))
	}
	return repository.NewMemoryCacheRepository(nil), func() {}
}

func newFieldCipher(cfg config.CryptoConfig, logr *zap.Logger) (*fieldcrypt.Cipher, error) {
	if cfg.FieldKey == "" {
		logr.Warn("FIELD_ENCRYPTION_KEY not set, generated an ephemeral key; stored client fields will be unreadable after restart")
		key, err := fieldcrypt.NewRandomKey()
		if err != nil {
			return nil, err
		}
		return fieldcrypt.New(key)
	}
	key, err := fieldcrypt.ParseKey(cfg.FieldKey)
	if err != nil {
		return nil, fmt.Errorf("FIELD_ENCRYPTION_KEY: %w", err)
	}
	return fieldcrypt.New(key)
}

func newVerifier(cfg config.AuthConfig) auth.Verifier {
	chain := auth.Chain{auth.NewStaticTokenSet(cfg.APIKeys)}
	if cfg.JWTSecret != "" {
		chain = append(chain, auth.NewJWTVerifier(cfg.JWTSecret, ""))
	}
	return chain
}
