package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/harel159/email-automation-system/internal/auth"
	"github.com/harel159/email-automation-system/internal/config"
	"github.com/harel159/email-automation-system/internal/db"
	"github.com/harel159/email-automation-system/internal/email"
	evsvc "github.com/harel159/email-automation-system/internal/events/service"
	"github.com/harel159/email-automation-system/internal/logger"
	"github.com/harel159/email-automation-system/internal/metrics"
	"github.com/harel159/email-automation-system/internal/platform/validation"
	"github.com/harel159/email-automation-system/internal/recipients"
	"github.com/harel159/email-automation-system/internal/settings"
	"github.com/harel159/email-automation-system/internal/storage"
	"github.com/harel159/email-automation-system/internal/templates"
	"github.com/harel159/email-automation-system/internal/version"
)

// @title           Email Automation API
// @version         1.0
// @description     Recipient management and templated bulk email for road-safety authorities.
// @BasePath        /

func main() {
	_ = godotenv.Load()
	if handleCLICommand(os.Args[1:]) {
		return
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.AppEnv, "mailer-api")
	log.Info().Str("addr", cfg.AppAddr).Str("version", version.String()).Msg("starting api server")

	pgPool, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres unavailable")
	}
	defer pgPool.Close()

	// Redis is optional: sessions and rate limits fall back to memory.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		defer redisClient.Close()
	}

	files, err := storage.NewLocal(cfg.AttachmentsDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.AttachmentsDir).Msg("attachments dir")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Secure())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(origin string) (bool, error) {
			return matchCORSOrigin(origin, cfg.CORSAllowedOrigins), nil
		},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit(bodyLimit(cfg.MaxUploadMB)))
	e.Use(metrics.HTTPMiddleware("/metrics", "/healthz"))

	e.Validator = validation.New()

	pub := evsvc.NewLogger(log)
	authReg := auth.NewRegistrar(cfg, redisClient, pub, log)
	authReg.Register(e)

	settingsSvc := settings.Register(e, pgPool, cfg, authReg.Session, authReg.Limiter, pub)
	authorities := recipients.Register(e, pgPool, authReg.Session)
	tpl := templates.Register(e, pgPool, files, authReg.Session, log)
	email.Register(e, pgPool, cfg, email.Deps{
		Authorities: authorities,
		Templates:   tpl,
		Files:       files,
		Settings:    settingsSvc,
		Publisher:   pub,
		Session:     authReg.Session,
		Token:       authReg.Token,
	}, log)

	e.Static(strings.TrimSuffix(storage.URLPrefix, "/"), files.Dir())

	e.GET("/healthz", healthHandler(pgPool, redisClient))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"version": version.String()})
	})

	go func() {
		if err := e.Start(cfg.AppAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	// Bulk sends run inside the request, so give them time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout(cfg))
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("server stopped")
}

// drainTimeout is SHUTDOWN_TIMEOUT, but never shorter than one provider
// call, so at least the recipient being sent to completes.
func drainTimeout(cfg config.Config) time.Duration {
	if floor := cfg.SendTimeout + 5*time.Second; cfg.ShutdownTimeout < floor {
		return floor
	}
	return cfg.ShutdownTimeout
}

func bodyLimit(mb int) string {
	return strconv.Itoa(mb) + "M"
}
