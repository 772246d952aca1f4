package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	fsblobstore "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/filesystem/blobstore"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/httpapi"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/mediaprobe"
	memblobstore "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/memory/blobstore"
	memidempotency "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/memory/idempotency"
	memsessionstore "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/memory/sessionstore"
	memtourrepo "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/memory/tourrepo"
	postgres "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/postgres"
	pgidempotency "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/postgres/idempotency"
	pgtourrepo "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/postgres/tourrepo"
	redissessionstore "github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/redis/sessionstore"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/restbackend"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/app/drafts"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/app/tours"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/Overland-East-Bay/tour-authoring-api/internal/platform/clock"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/platform/config"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/platform/logging"
	blobstoreport "github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/blobstore"
	idempotencyport "github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/idempotency"
	publisherport "github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/publisher"
	sessionstoreport "github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/sessionstore"
	tourrepoport "github.com/Overland-East-Bay/tour-authoring-api/internal/ports/out/tourrepo"
)

func main() {
	envFile := flag.String("env-file", ".env", "optional dotenv file loaded before the environment")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(2)
	}
	log, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("api exited", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	clk := platformclock.NewSystemClock()

	// Auth configuration:
	// - Production: AUTH_MODE=hmac verifies HS256 bearer tokens signed with JWT_SECRET
	// - Local dev: AUTH_MODE=dev bypasses verification and uses X-Debug-Subject
	var authMW func(http.Handler) http.Handler
	switch cfg.Auth.Mode {
	case config.AuthModeHMAC:
		verifier, err := jwtverifier.New(cfg.Auth)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		authMW = httpapi.NewAuthMiddleware(verifier)
	default:
		authMW = httpapi.NewDevAuthMiddleware(cfg.Auth.DevSubject)
	}

	var (
		tourRepo  tourrepoport.Repository
		idemStore idempotencyport.Store
		sessions  sessionstoreport.Store
		blobs     blobstoreport.Store
	)

	switch cfg.StorageBackend {
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}
		tourRepo = pgtourrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	default:
		tourRepo = memtourrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	}

	switch cfg.SessionBackend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer func() { _ = client.Close() }()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		sessions = redissessionstore.NewStore(client)
	default:
		sessions = memsessionstore.NewStore(clk)
	}

	if cfg.BlobDir != "" {
		fs, err := fsblobstore.NewStore(cfg.BlobDir)
		if err != nil {
			return err
		}
		blobs = fs
	} else {
		blobs = memblobstore.NewStore()
	}

	draftSvc := drafts.NewService(sessions, blobs, mediaprobe.New(log), tourRepo, clk, log, drafts.Config{
		SessionTTL:   cfg.SessionTTL,
		ProbeTimeout: cfg.MediaProbeTimeout,
	})

	var pub publisherport.Publisher
	if cfg.UpstreamURL != "" {
		rest, err := restbackend.NewClient(cfg.UpstreamURL, cfg.UpstreamTimeout, log)
		if err != nil {
			return err
		}
		draftSvc.SetUpstream(rest)
		pub = rest
	}
	tourSvc := tours.NewService(draftSvc, tourRepo, blobs, pub, clk, log)

	api := httpapi.NewServer(draftSvc, tourSvc, idemStore, clk, log)
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{AuthMiddleware: authMW, Logger: log})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api listening",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.StorageBackend),
			zap.String("sessions", cfg.SessionBackend),
			zap.String("auth", cfg.Auth.Mode),
			zap.Bool("upstream", pub != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
