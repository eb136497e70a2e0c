package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/docbook/docbook/internal/config"
	"github.com/docbook/docbook/internal/domain/account"
	"github.com/docbook/docbook/internal/domain/billing"
	"github.com/docbook/docbook/internal/domain/contact"
	"github.com/docbook/docbook/internal/domain/dashboard"
	"github.com/docbook/docbook/internal/domain/identity"
	"github.com/docbook/docbook/internal/domain/review"
	"github.com/docbook/docbook/internal/domain/scheduling"
	"github.com/docbook/docbook/internal/platform/auth"
	"github.com/docbook/docbook/internal/platform/db"
	"github.com/docbook/docbook/internal/platform/middleware"
	"github.com/docbook/docbook/internal/platform/notification"
	"github.com/docbook/docbook/internal/platform/payment"
	"github.com/docbook/docbook/internal/platform/validation"
)

// routeRegistrar is implemented by every domain handler.
type routeRegistrar interface {
	RegisterRoutes(api *echo.Group, authn echo.MiddlewareFunc)
}

type deps struct {
	authn    echo.MiddlewareFunc
	handlers []routeRegistrar
}

// newServer builds the echo instance with the global middleware chain and
// the liveness endpoint. Domain routes are added by registerRoutes.
func newServer(cfg *config.Config, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}

	bodyLimit, err := middleware.ParseSize(cfg.BodyLimit)
	if err != nil {
		logger.Warn().Err(err).Int64("fallback", middleware.DefaultBodyLimit).Msg("BODY_LIMIT ignored")
		bodyLimit = middleware.DefaultBodyLimit
	}

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.SecurityHeaders(middleware.SecurityConfig{
		HSTS:          cfg.IsProduction(),
		NoStorePrefix: "/api",
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
		AllowCredentials: true,
	}))
	e.Use(middleware.RateLimit(rateLimitCfg))
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, func(c echo.Context) bool {
		return strings.HasPrefix(c.Request().URL.Path, "/health")
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "status": "ok"})
	})
	return e
}

func registerRoutes(e *echo.Echo, d *deps) {
	api := e.Group("/api")
	for _, h := range d.handlers {
		h.RegisterRoutes(api, d.authn)
	}
}

// paymentGateway returns a nil interface, not a typed nil, when Razorpay is
// not configured so billing can report the gateway as disabled.
func paymentGateway(cfg *config.Config) payment.Gateway {
	if !cfg.PaymentGatewayEnabled() {
		return nil
	}
	return payment.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
}

func emailSender(cfg *config.Config, logger zerolog.Logger) notification.EmailSender {
	if !cfg.MailEnabled() {
		return notification.LogSender{Logger: logger}
	}
	return notification.NewSMTPSender(notification.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

// revocationStore uses Redis when REDIS_URL is set and falls back to an
// in-process store otherwise. The returned func releases it.
func revocationStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (auth.RevocationStore, func(), error) {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set, logouts are kept in memory only")
		store := auth.NewMemoryRevocationStore(time.Minute)
		return store, store.Close, nil
	}
	client, err := auth.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("connected to redis")
	return auth.NewRedisRevocationStore(client), func() { _ = client.Close() }, nil
}

// buildDeps wires repositories, services and handlers for every domain.
func buildDeps(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*deps, func(), error) {
	revocations, closeStore, err := revocationStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	notifier := notification.NewNotifier(emailSender(cfg, logger), notification.NewTemplateEngine(), logger)
	txm := db.NewTxManager(pool)

	identitySvc := identity.NewService(identity.NewPatientRepoPG(pool), identity.NewDoctorRepoPG(pool))
	accountSvc := account.NewService(identitySvc, tokens, revocations, logger)
	billingSvc := billing.NewService(billing.NewPaymentRepoPG(pool), paymentGateway(cfg))
	schedulingSvc := scheduling.NewService(
		scheduling.NewSlotRepoPG(pool),
		scheduling.NewAppointmentRepoPG(pool),
		billingSvc,
		identitySvc,
		txm,
		notifier,
		logger.With().Str("component", "scheduling").Logger(),
	)
	reviewSvc := review.NewService(review.NewReviewRepoPG(pool), schedulingSvc)
	contactSvc := contact.NewService(contact.NewMessageRepoPG(pool), logger)
	dashboardSvc := dashboard.NewService(dashboard.NewStatsRepoPG(pool))

	d := &deps{
		authn: auth.Authenticate(tokens, revocations),
		handlers: []routeRegistrar{
			account.NewHandler(accountSvc),
			identity.NewHandler(identitySvc),
			scheduling.NewHandler(schedulingSvc),
			billing.NewHandler(billingSvc),
			review.NewHandler(reviewSvc),
			contact.NewHandler(contactSvc),
			dashboard.NewHandler(dashboardSvc),
		},
	}
	return d, closeStore, nil
}
