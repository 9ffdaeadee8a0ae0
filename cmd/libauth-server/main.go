// libauth-server is the auth service of the library-catalogue backend. It
// exposes POST /api/auth/{login,refresh,logout} backed by a Postgres user
// table and a Redis revocation store.
//
// Usage:
//
//	libauth-server [-config config.yaml]            start the HTTP server
//	libauth-server [-config config.yaml] migrate    run DB migration + seed, then exit
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	libauth "github.com/cataloghq/libauth"
	"github.com/cataloghq/libauth/httpapi"
	"github.com/cataloghq/libauth/userstore"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config (env vars override)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		panic(err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{})
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	provider := userstore.NewGormProvider(db)

	if flag.Arg(0) == "migrate" {
		runMigrate(provider, log)
		return
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		MaxRetries:  cfg.Redis.MaxRetries,
		DialTimeout: cfg.Redis.DialTimeout,
	})
	defer func() { _ = rdb.Close() }()

	engineCfg := libauth.DefaultConfig()
	engineCfg.JWT.Secret = []byte(cfg.Auth.Secret)
	engineCfg.JWT.AccessTTL = cfg.Auth.AccessTTL
	engineCfg.JWT.RefreshTTL = cfg.Auth.RefreshTTL
	engineCfg.JWT.Issuer = cfg.Auth.Issuer
	engineCfg.Session.RedisPrefix = cfg.Auth.RedisPrefix
	engineCfg.Session.OpTimeout = cfg.Auth.StoreOpTimeout
	engineCfg.Security.RevocationFailOpen = cfg.Auth.RevocationFailOpen
	engineCfg.Security.RequireSecureCookies = cfg.Auth.CookieSecure
	engineCfg.Audit.Enabled = cfg.Audit.Enabled
	engineCfg.Audit.BufferSize = cfg.Audit.BufferSize
	engineCfg.Metrics.Enabled = true

	builder := libauth.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithUserProvider(provider)

	if cfg.Audit.Enabled && cfg.Audit.Path != "" {
		f, err := os.OpenFile(cfg.Audit.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			log.Fatal("audit log open", zap.Error(err))
		}
		defer func() { _ = f.Close() }()
		builder = builder.WithAuditSink(libauth.NewJSONWriterSink(f))
	}

	engine, err := builder.Build()
	if err != nil {
		log.Fatal("engine build", zap.Error(err))
	}
	defer engine.Close()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	handler := httpapi.NewHandler(engine, log, httpapi.CookieConfig{
		Path:   cfg.Auth.CookiePath,
		Secure: cfg.Auth.CookieSecure,
		MaxAge: cfg.Auth.RefreshTTL,
	})
	handler.Register(router)

	router.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http serve", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	log.Info("stopped")
}

// runMigrate creates the users table and seeds the initial admin account
// when LIBAUTH_SEED_ADMIN_PASSWORD is set.
func runMigrate(provider *userstore.GormProvider, log *zap.Logger) {
	if err := provider.Migrate(); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	if password := os.Getenv("LIBAUTH_SEED_ADMIN_PASSWORD"); password != "" {
		err := provider.Seed(context.Background(), "admin", "admin@catalogue.local", "", password, libauth.RoleAdmin)
		if err != nil {
			log.Fatal("seed admin", zap.Error(err))
		}
		log.Info("admin account seeded")
	}

	log.Info("migration completed")
}
