package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	rdb "github.com/redis/go-redis/v9"

	"github.com/pulsegram/authd/internal/appstore"
	"github.com/pulsegram/authd/internal/config"
	"github.com/pulsegram/authd/internal/domain/repository"
	httpserver "github.com/pulsegram/authd/internal/http"
	ctrl "github.com/pulsegram/authd/internal/http/controllers/oauth"
	"github.com/pulsegram/authd/internal/http/router"
	"github.com/pulsegram/authd/internal/infra/cachefactory"
	jwtx "github.com/pulsegram/authd/internal/jwt"
	"github.com/pulsegram/authd/internal/metrics"
	"github.com/pulsegram/authd/internal/oauth"
	"github.com/pulsegram/authd/internal/observability/logger"
	"github.com/pulsegram/authd/internal/rate"
	"github.com/pulsegram/authd/internal/scope"
	"github.com/pulsegram/authd/internal/security/keyhash"
	memstore "github.com/pulsegram/authd/internal/store/memory"
	pgstore "github.com/pulsegram/authd/internal/store/pg"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", os.Getenv("AUTHD_CONFIG"), "ruta al config.yaml (opcional)")
	flag.Parse()

	// .env local primero; las variables ya seteadas ganan.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: os.Getenv("LOG_LEVEL")})
	defer func() { _ = logger.Sync() }()
	log := logger.L().With(logger.Component("main"))

	if err := metrics.Register(nil); err != nil {
		log.Fatal("registering metrics", logger.Err(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	var (
		appsRepo  repository.ApplicationRepository
		tokenRepo repository.TokenRepository
		userRepo  repository.UserRepository
		health    func() error
	)
	switch cfg.Storage.Driver {
	case "postgres":
		st, err := pgstore.New(ctx, cfg.Storage.DSN, pgstore.PoolConfig{
			MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			log.Fatal("opening postgres store", logger.Err(err))
		}
		defer st.Close()
		appsRepo, tokenRepo, userRepo = st.Apps(), st.Tokens(), st.Users()
		health = func() error { return st.Ping(context.Background()) }
	default:
		log.Warn("using in-memory storage, data is volatile")
		st := memstore.New()
		appsRepo, tokenRepo, userRepo = st.Apps, st.Tokens, st.Users
	}

	// --- Redis compartido entre limiter y cache (si alguno lo usa) ---
	var redisClient *rdb.Client
	if cfg.Rate.Enabled || cfg.Cache.Kind == "redis" {
		redisClient = rdb.NewClient(&rdb.Options{
			Addr: cfg.Cache.Redis.Addr,
			DB:   cfg.Cache.Redis.DB,
		})
		defer func() { _ = redisClient.Close() }()
	}

	// --- Application cache ---
	appTTL, _ := time.ParseDuration(cfg.Cache.AppTTL)
	fcfg := cachefactory.Config{Kind: cfg.Cache.Kind, RedisClient: redisClient}
	fcfg.Redis.Addr = cfg.Cache.Redis.Addr
	fcfg.Redis.DB = cfg.Cache.Redis.DB
	fcfg.Redis.Prefix = cfg.Cache.Redis.Prefix
	fcfg.Memory.DefaultTTL = cfg.Cache.Memory.DefaultTTL
	apps := appstore.New(appsRepo, cachefactory.Open(fcfg), appTTL)

	// --- JWT ---
	var keys *jwtx.Keystore
	if cfg.JWT.KeySeed != "" {
		keys, err = jwtx.NewKeystoreFromSeed(cfg.JWT.KeySeed)
		if err != nil {
			log.Fatal("loading jwt key seed", logger.Err(err))
		}
	} else {
		log.Warn("no jwt key seed configured, using ephemeral key (tokens die with the process)")
		keys, err = jwtx.NewEphemeralKeystore()
		if err != nil {
			log.Fatal("generating ephemeral key", logger.Err(err))
		}
	}
	issuer := jwtx.NewIssuer(cfg.JWT.Issuer, keys, cfg.AccessTTL(), cfg.RefreshTTL())

	// --- Rate limiter ---
	var checker *rate.Checker
	if cfg.Rate.Enabled {
		checker = rate.NewChecker(
			rate.NewRedisLimiter(redisClient, cfg.Rate.Prefix),
			rate.Policy{
				Enabled:   true,
				Window:    cfg.RateWindow(),
				DevLimit:  int64(cfg.Rate.DevLimit),
				ProdLimit: int64(cfg.Rate.ProdLimit),
			},
		)
	}

	// --- Services ---
	registry := scope.Default()
	authorizeSvc := oauth.NewAuthorizeService(oauth.AuthorizeDeps{
		Apps:    apps,
		Users:   userRepo,
		Tokens:  tokenRepo,
		Scopes:  registry,
		CodeTTL: cfg.CodeTTL(),
	})
	tokenSvc := oauth.NewTokenService(oauth.TokenDeps{
		Apps:       apps,
		Tokens:     tokenRepo,
		Scopes:     registry,
		Issuer:     issuer,
		HashParams: keyhash.Default,
	})
	introspectSvc := oauth.NewIntrospectService(oauth.IntrospectDeps{
		Tokens: tokenRepo,
		Users:  userRepo,
		Issuer: issuer,
	})
	revokeSvc := oauth.NewRevokeService(oauth.RevokeDeps{Tokens: tokenRepo})

	handler := router.New(router.Deps{
		Authorize:   ctrl.NewAuthorizeController(authorizeSvc),
		Token:       ctrl.NewTokenController(tokenSvc),
		Introspect:  ctrl.NewIntrospectController(introspectSvc, cfg.Auth.IntrospectBasicUser, cfg.Auth.IntrospectBasicPass),
		Revoke:      ctrl.NewRevokeController(revokeSvc),
		Apps:        apps,
		RateChecker: checker,
		Health:      health,
	})

	shutdown, _ := time.ParseDuration(cfg.Server.ShutdownTimeout)
	srv := httpserver.NewServer(cfg.Server.Addr, handler, shutdown)
	if err := srv.Run(ctx); err != nil {
		log.Fatal("http server exited", logger.Err(err))
	}
	log.Info("bye")
}
