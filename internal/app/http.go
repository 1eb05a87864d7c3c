package app

import (
	"context"
	"net/http"

	"auth-portal/internal/auth/client"
	"auth-portal/internal/auth/credentials"
	"auth-portal/internal/auth/handler"
	"auth-portal/internal/auth/otp"
	"auth-portal/internal/auth/provider"
	"auth-portal/internal/auth/provider/github"
	"auth-portal/internal/auth/provider/google"
	"auth-portal/internal/auth/resolver"
	"auth-portal/internal/auth/users"
	"auth-portal/internal/config"
	"auth-portal/internal/logger"
	"auth-portal/internal/mailer"
	"auth-portal/internal/middleware"
	"auth-portal/internal/session"
	"auth-portal/internal/web"

	"github.com/gin-gonic/gin"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	registry, err := setupProviders(ctx, cfg)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	otpService := otp.NewService(
		otp.NewRedisStore(infra.Redis.Client),
		mailer.NewOTPMailer(infra.Mailer, cfg.SMTP.From),
		otp.Options{TTL: cfg.OTPTTL, AllowedAttempts: cfg.OTPAllowedAttempts},
	)

	authClient := client.New(client.Deps{
		Credentials: credentials.NewService(infra.DB),
		OTP:         otpService,
		Users:       users.NewRepository(infra.DB),
		Resolver:    resolver.NewDBResolver(infra.DB),
		Providers:   registry,
		Sessions:    session.NewRedisStore(infra.Redis.Client),
		SessionTTL:  cfg.SessionTTL,

		SessionUpdateAge: cfg.SessionUpdateAge,
	})

	router := newRouter(authClient, registry.Names(), cookieOptions(cfg))

	return router, infra.Close, nil
}

func cookieOptions(cfg config.Config) session.CookieOptions {
	return session.CookieOptions{
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// setupProviders registers a provider only when both its credentials
// are configured.
func setupProviders(ctx context.Context, cfg config.Config) (*provider.Registry, error) {
	var list []provider.OAuthProvider

	if cfg.GoogleEnabled() {
		p, err := google.New(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.RedirectURL("google"))
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	if cfg.GitHubEnabled() {
		p, err := github.New(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.RedirectURL("github"))
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	registry := provider.NewRegistry(list...)
	logger.Info("oauth providers ready", map[string]any{"providers": registry.Names()})
	return registry, nil
}

func newRouter(authClient *client.Client, providers []string, cookies session.CookieOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	// ----------------------------
	// Public Routes
	// ----------------------------

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler.NewHandler(authClient, cookies).RegisterRoutes(router)

	// ----------------------------
	// Pages
	// ----------------------------

	pageAuth := middleware.NewAuthMiddleware(authClient)
	pageAuth.Unauthorized = middleware.RedirectTo("/sign-in")

	web.NewPages(authClient, cookies, providers).
		RegisterRoutes(router, middleware.GinRequireAuth(pageAuth))

	return router
}
