package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/webmuhendisi/velopix/internal/analytics"
	"github.com/webmuhendisi/velopix/internal/di"
	"github.com/webmuhendisi/velopix/internal/handlers"
	"github.com/webmuhendisi/velopix/internal/payments"
	"github.com/webmuhendisi/velopix/internal/platform/auth"
	"github.com/webmuhendisi/velopix/internal/platform/config"
	pfirestore "github.com/webmuhendisi/velopix/internal/platform/firestore"
	"github.com/webmuhendisi/velopix/internal/platform/idempotency"
	"github.com/webmuhendisi/velopix/internal/platform/jobs"
	"github.com/webmuhendisi/velopix/internal/platform/observability"
	"github.com/webmuhendisi/velopix/internal/platform/secrets"
	platformstorage "github.com/webmuhendisi/velopix/internal/platform/storage"
	"github.com/webmuhendisi/velopix/internal/rates"
	"github.com/webmuhendisi/velopix/internal/repositories"
	firestoreRepo "github.com/webmuhendisi/velopix/internal/repositories/firestore"
	"github.com/webmuhendisi/velopix/internal/seo"
)

const webhookTolerance = 5 * time.Minute

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets("Admin.PasswordHash", "Admin.SigningKey"),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	secureCookies := cfg.Security.Environment != "local"

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	registry, err := firestoreRepo.NewRegistry(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	ratesLogger := logger.Named("rates")
	rateFetcher, err := rates.NewHTTPFetcher(nil, cfg.Rates.Endpoint, cfg.Rates.Currency)
	if err != nil {
		ratesLogger.Warn("rate provider not configured; serving the fallback rate")
		fallback := cfg.Rates.Fallback
		rateFetcher = func(context.Context) (float64, error) { return fallback, nil }
	}
	rateCache, err := rates.NewCache(rates.CacheDeps{
		Fetcher:         rateFetcher,
		RefreshInterval: cfg.Rates.RefreshInterval,
		Fallback:        cfg.Rates.Fallback,
		Clock:           time.Now,
		Logger:          zapEventLogger(ratesLogger),
	})
	if err != nil {
		logger.Fatal("failed to initialise rate cache", zap.Error(err))
	}
	rateCache.Start(ctx)
	defer rateCache.Stop()

	var gateway di.PaymentGateway
	if strings.TrimSpace(cfg.PSP.StripeAPIKey) != "" {
		stripeGateway, err := payments.NewStripeGateway(payments.StripeGatewayConfig{
			APIKey: cfg.PSP.StripeAPIKey,
			Locale: "tr",
			Logger: zapEventLogger(logger.Named("payments")),
			Clock:  time.Now,
		})
		if err != nil {
			logger.Fatal("failed to initialise stripe gateway", zap.Error(err))
		}
		gateway = stripeGateway
	} else {
		logger.Warn("stripe api key not configured; checkout routes disabled")
	}

	container, err := di.NewContainer(di.ContainerDeps{
		Config:       cfg,
		Repositories: registry,
		Gateway:      gateway,
		Rates:        rateCache,
		Clock:        time.Now,
		Logger:       zapEventLogger(logger.Named("services")),
	})
	if err != nil {
		logger.Fatal("failed to assemble services", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("container close error", zap.Error(err))
		}
	}()

	var tracker *analytics.Tracker
	var pubsubClient *pubsub.Client
	if cfg.Features.EnableAnalytics {
		var publisher analytics.PageViewPublisher
		if cfg.Analytics.Topic != "" && cfg.Firestore.ProjectID != "" {
			pubsubClient, err = pubsub.NewClient(ctx, cfg.Firestore.ProjectID)
			if err != nil {
				logger.Fatal("failed to initialise pubsub client", zap.Error(err))
			}
			pageViews, err := jobs.NewPubSubPageViewPublisher(pubsubClient.Topic(cfg.Analytics.Topic))
			if err != nil {
				logger.Fatal("failed to initialise page view publisher", zap.Error(err))
			}
			publisher = pageViews
		} else {
			logger.Warn("analytics topic not configured; page views are dropped")
		}
		tracker = analytics.NewTracker(analytics.TrackerDeps{
			Publisher:    publisher,
			PublishDelay: cfg.Analytics.PublishDelay,
			Clock:        time.Now,
			Logger:       zapEventLogger(logger.Named("analytics")),
		})
	}
	defer func() {
		if pubsubClient != nil {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}
	}()

	authority, err := auth.NewTokenAuthority(auth.TokenAuthorityConfig{
		SigningKey:   cfg.Admin.SigningKey,
		Username:     cfg.Admin.Username,
		PasswordHash: cfg.Admin.PasswordHash,
		TokenTTL:     cfg.Admin.TokenTTL,
		Clock:        time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise admin token authority", zap.Error(err))
	}

	var webhookVerifier *auth.WebhookVerifier
	if strings.TrimSpace(cfg.PSP.StripeWebhookSecret) != "" {
		webhookVerifier, err = auth.NewWebhookVerifier(cfg.PSP.StripeWebhookSecret, webhookTolerance, time.Now)
		if err != nil {
			logger.Fatal("failed to initialise webhook verifier", zap.Error(err))
		}
	} else {
		logger.Warn("stripe webhook secret not configured; webhook routes disabled")
	}

	var signedURLClient *platformstorage.Client
	if strings.TrimSpace(cfg.Storage.SignerKey) != "" {
		signer, err := platformstorage.NewServiceAccountSignerFromJSON([]byte(cfg.Storage.SignerKey))
		if err != nil {
			logger.Fatal("failed to parse storage signer key", zap.Error(err))
		}
		signedURLClient, err = platformstorage.NewClient(signer)
		if err != nil {
			logger.Fatal("failed to initialise signed url client", zap.Error(err))
		}
	} else {
		logger.Warn("storage signer key not configured; admin uploads disabled")
	}

	idempotencyStore := idempotency.NewFirestoreStore(firestoreClient)
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	var cleanupTicker *time.Ticker
	if cfg.Idempotency.CleanupInterval > 0 {
		cleanupTicker = time.NewTicker(cfg.Idempotency.CleanupInterval)
		cleanupWG.Add(1)
		go func() {
			defer cleanupWG.Done()
			cleanupLogger := logger.Named("idempotency")
			for {
				select {
				case <-cleanupTicker.C:
					runCtx, cancel := context.WithTimeout(cleanupCtx, time.Minute)
					removed, err := idempotencyStore.CleanupExpired(runCtx, time.Now().UTC(), cfg.Idempotency.CleanupBatchSize)
					cancel()
					if err != nil {
						cleanupLogger.Error("idempotency cleanup error", zap.Error(err))
						continue
					}
					if removed > 0 {
						cleanupLogger.Info("idempotency cleanup removed records", zap.Int("count", removed))
					}
				case <-cleanupCtx.Done():
					return
				}
			}
		}()
	}

	seoResolver, err := seo.NewResolver(seo.ResolverDeps{
		SiteName: cfg.Site.Name,
		BaseURL:  cfg.Site.BaseURL,
		Products: container.Services.Catalog,
		Posts:    container.Services.Content,
		Settings: container.Services.Content,
		Rates:    rateCache,
	})
	if err != nil {
		logger.Fatal("failed to initialise seo resolver", zap.Error(err))
	}

	catalogHandlers := handlers.NewCatalogHandlers(container.Services.Catalog, rateCache)
	contentHandlers := handlers.NewContentHandlers(container.Services.Content)
	repairHandlers := handlers.NewRepairHandlers(container.Services.Repairs)
	reviewHandlers := handlers.NewReviewHandlers(container.Services.Reviews)
	rateHandlers := handlers.NewRateHandlers(rateCache)
	seoHandlers := handlers.NewSEOHandlers(seoResolver)

	cartHandlers, err := handlers.NewCartHandlers(handlers.CartHandlersDeps{
		Carts:         container.Services.Cart,
		Rates:         rateCache,
		SecureCookies: secureCookies,
	})
	if err != nil {
		logger.Fatal("failed to initialise cart handlers", zap.Error(err))
	}

	adminRegistrars := []handlers.RouteRegistrar{
		catalogHandlers.AdminRoutes,
		contentHandlers.AdminRoutes,
		repairHandlers.AdminRoutes,
		reviewHandlers.AdminRoutes,
	}

	var checkoutHandlers *handlers.CheckoutHandlers
	if container.Services.Checkout != nil {
		checkoutHandlers = handlers.NewCheckoutHandlers(container.Services.Checkout)
		adminRegistrars = append(adminRegistrars, checkoutHandlers.AdminRoutes)
	}

	adminHandlers, err := handlers.NewAdminHandlers(handlers.AdminHandlersDeps{
		Authority:    authority,
		Signer:       signedURLClient,
		AssetsBucket: cfg.Storage.AssetsBucket,
		Registrars:   adminRegistrars,
		Middlewares:  []func(http.Handler) http.Handler{idempotencyMiddleware},
	})
	if err != nil {
		logger.Fatal("failed to initialise admin handlers", zap.Error(err))
	}

	projectID := strings.TrimSpace(cfg.Firestore.ProjectID)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
		handlers.RateLimitMiddleware(cfg.RateLimits.DefaultPerMinute, time.Minute, time.Now),
	}

	healthRepo, err := newHealthRepository(registry, fetcher)
	if err != nil {
		logger.Fatal("failed to initialise health repository", zap.Error(err))
	}

	opts := []handlers.Option{
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(healthRepo)),
		handlers.WithCatalogRoutes(catalogHandlers.Routes),
		handlers.WithContentRoutes(contentHandlers.Routes),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithRepairRoutes(repairHandlers.Routes),
		handlers.WithRateRoutes(rateHandlers.Routes),
		handlers.WithSEORoutes(seoHandlers.Routes),
		handlers.WithAdminRoutes(adminHandlers.Routes),
	}
	if cfg.Features.EnableReviews {
		opts = append(opts, handlers.WithReviewRoutes(reviewHandlers.Routes))
	}
	if checkoutHandlers != nil {
		opts = append(opts, handlers.WithCheckoutRoutes(checkoutHandlers.Routes))
	}
	if tracker != nil {
		analyticsHandlers := handlers.NewAnalyticsHandlers(handlers.AnalyticsHandlersDeps{
			Tracker:       tracker,
			SessionTTL:    cfg.Analytics.SessionTTL,
			SecureCookies: secureCookies,
			Clock:         time.Now,
		})
		opts = append(opts, handlers.WithAnalyticsRoutes(analyticsHandlers.Routes))
	}
	if webhookVerifier != nil && container.Services.Checkout != nil {
		webhookHandlers := handlers.NewWebhookHandlers(webhookVerifier, container.Services.Checkout)
		opts = append(opts, handlers.WithWebhookRoutes(webhookHandlers.Routes))
	}

	router := handlers.NewRouter(opts...)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("velopix api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	if cleanupTicker != nil {
		cleanupTicker.Stop()
	}
	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if tracker != nil {
		if err := tracker.Flush(shutdownCtx); err != nil {
			logger.Warn("analytics flush incomplete", zap.Error(err))
		}
	}
}

// newHealthRepository builds the readiness probe from the dependencies the
// storefront cannot serve without.
func newHealthRepository(registry repositories.Registry, fetcher *secrets.Fetcher) (repositories.HealthRepository, error) {
	checks := []repositories.DependencyCheck{
		{
			Name:    "firestore",
			Timeout: 1500 * time.Millisecond,
			Check:   registry.Health().Ping,
		},
	}
	if fetcher != nil {
		const healthReference = "secret://system/healthz?version=latest"
		checks = append(checks, repositories.DependencyCheck{
			Name:    "secretManager",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				_, err := fetcher.Resolve(ctx, healthReference)
				if err == nil {
					return nil
				}
				if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
					return nil
				}
				return err
			},
		})
	}
	return repositories.NewDependencyHealthRepository(checks)
}

// zapEventLogger adapts a zap logger to the event/fields signature the
// services and platform packages log with.
func zapEventLogger(logger *zap.Logger) func(context.Context, string, map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Debug(event, zFields...)
	}
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		if env == nil {
			return ""
		}
		if value, ok := env[key]; ok {
			return strings.TrimSpace(value)
		}
		return ""
	}

	envLabel := strings.ToLower(lookup("API_SECURITY_ENVIRONMENT"))
	if envLabel == "" {
		envLabel = "local"
	}
	projectMap := secretProjectMapFromEnv(env)
	defaultProject := lookup("API_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("API_FIRESTORE_PROJECT_ID")
	}
	fallbackPath := lookup("API_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}
	credentialsFile := lookup("API_FIRESTORE_CREDENTIALS_FILE")

	opts := []secrets.Option{
		secrets.WithEnvironment(envLabel),
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if len(projectMap) > 0 {
		opts = append(opts, secrets.WithProjectMap(projectMap))
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}

	return secrets.NewFetcher(ctx, opts...)
}

func secretProjectMapFromEnv(env map[string]string) map[string]string {
	raw := ""
	if env != nil {
		raw = env["API_SECRET_PROJECT_IDS"]
	}
	raw = strings.TrimSpace(raw)
	projects := make(map[string]string)
	if raw == "" {
		return projects
	}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		envLabel := strings.ToLower(strings.TrimSpace(parts[0]))
		project := strings.TrimSpace(parts[1])
		if envLabel == "" || project == "" {
			continue
		}
		projects[envLabel] = project
	}
	return projects
}
