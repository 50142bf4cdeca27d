package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/PowerQR/config"
	"github.com/sifan077/PowerQR/internal/app/qrimage"
	"github.com/sifan077/PowerQR/internal/app/repository"
	"github.com/sifan077/PowerQR/internal/app/service"
	"github.com/sifan077/PowerQR/internal/app/shortcode"
	"github.com/sifan077/PowerQR/internal/app/useragent"
	inthttp "github.com/sifan077/PowerQR/internal/http/handler"
	"github.com/sifan077/PowerQR/internal/http/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	readTimeout = 10 * time.Second

	// devJWTSecret signs owner tokens when no secret is configured outside production.
	devJWTSecret = "powerqr-development-secret"
)

// Dependencies bundles infrastructure dependencies required by the HTTP server.
// DB and Config are required; the rest are optional.
type Dependencies struct {
	Logger *zap.Logger
	Config *config.Config
	DB     *gorm.DB
	// Analytics, when set, serves analytics reads through pgx (typically a replica).
	Analytics *pgxpool.Pool
	Redis     *redis.Client
	JetStream nats.JetStreamContext
	Observer  service.Observer
	Now       func() time.Time
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New builds repositories, services and routes. It reads existing short codes to seed
// the minter's filter, so it needs a reachable store.
func New(ctx context.Context, deps Dependencies) (*Server, error) {
	if deps.Config == nil || deps.DB == nil {
		return nil, errors.New("server: config and db are required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	fiberCfg := fiber.Config{
		AppName:               "PowerQR",
		DisableStartupMessage: !deps.Config.App.Development(),
		ReadTimeout:           readTimeout,
	}
	if deps.Config.App.TrustProxy {
		fiberCfg.ProxyHeader = fiber.HeaderXForwardedFor
		fiberCfg.EnableIPValidation = true
	}

	s := &Server{
		app:  fiber.New(fiberCfg),
		deps: deps,
	}
	if err := s.registerRoutes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// App exposes the Fiber application, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes(ctx context.Context) error {
	cfg := s.deps.Config
	log := s.deps.Logger
	timeout := cfg.Store.Timeout

	mappingRepo := repository.NewMappingRepository(s.deps.DB, timeout)
	visitRepo := repository.NewVisitRepository(s.deps.DB, timeout)
	statsReader := repository.NewVisitStatsReader(s.deps.DB, timeout)
	if s.deps.Analytics != nil {
		statsReader = repository.NewPgxVisitStatsReader(s.deps.Analytics, timeout)
	}

	minter := shortcode.NewMinter(shortcode.NewRandom(),
		shortcode.WithLength(cfg.ShortCode.Length),
		shortcode.WithMaxAttempts(cfg.ShortCode.MaxAttempts),
		shortcode.WithBloomFilter(cfg.ShortCode.BloomCapacity),
	)
	codes, err := mappingRepo.ListShortCodes(ctx)
	if err != nil {
		return fmt.Errorf("server: seed short codes: %w", err)
	}
	minter.Seed(codes...)
	log.Info("short code filter seeded", zap.Int("codes", len(codes)))

	var publisher service.VisitPublisher
	if s.deps.JetStream != nil {
		publisher = service.NewNATSVisitPublisher(s.deps.JetStream)
	}

	recorder := service.NewRecorder(service.RecorderDeps{
		Logger:     log,
		Visits:     visitRepo,
		Classifier: useragent.New(),
		Publisher:  publisher,
		Observer:   s.deps.Observer,
		Timeout:    timeout,
		Now:        s.deps.Now,
	})
	resolver := service.NewResolver(service.ResolverDeps{
		Logger:   log,
		Mappings: mappingRepo,
		Recorder: recorder,
		Observer: s.deps.Observer,
		Now:      s.deps.Now,
	})
	mappingService := service.NewMappingService(service.MappingDeps{
		Logger:   log,
		Mappings: mappingRepo,
		Visits:   visitRepo,
		Minter:   minter,
		Renderer: qrimage.NewPNG(),
		BaseURL:  cfg.App.BaseURL,
	})
	analyticsService := service.NewAnalyticsService(statsReader, s.deps.Now)

	s.app.Use(middleware.Recovery(log))
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(log))
	s.app.Use(middleware.CORS())
	s.app.Use(middleware.RateLimit(s.deps.Redis, cfg.RateLimit, log))

	redirectHandler := inthttp.NewRedirectHandler(inthttp.RedirectDeps{
		Logger:   log,
		Resolver: resolver,
		Probes:   s.probes(),
	})
	redirectHandler.Register(s.app)

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		log.Warn("auth.jwt_secret not set, using development secret")
		secret = devJWTSecret
	}
	apiHandler := inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:    log,
		Mappings:  mappingService,
		Analytics: analyticsService,
		Auth:      middleware.OwnerAuth([]byte(secret)),
		BaseURL:   cfg.App.BaseURL,
	})
	apiHandler.Register(s.app)

	return nil
}

func (s *Server) probes() []inthttp.Probe {
	probes := []inthttp.Probe{{
		Name: "store",
		Check: func(ctx context.Context) error {
			sqlDB, err := s.deps.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if s.deps.Redis != nil {
		probes = append(probes, inthttp.Probe{
			Name:  "redis",
			Check: func(ctx context.Context) error { return s.deps.Redis.Ping(ctx).Err() },
		})
	}
	if s.deps.Analytics != nil {
		probes = append(probes, inthttp.Probe{
			Name:  "analytics",
			Check: s.deps.Analytics.Ping,
		})
	}
	return probes
}
