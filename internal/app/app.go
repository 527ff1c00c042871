// Package app wires the store's dependencies and runs the HTTP server.
package app

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/sarit-store/internal/domain/auth"
	"github.com/xenking/sarit-store/internal/domain/contact"
	"github.com/xenking/sarit-store/internal/domain/coupon"
	"github.com/xenking/sarit-store/internal/domain/geo"
	"github.com/xenking/sarit-store/internal/domain/newsletter"
	"github.com/xenking/sarit-store/internal/domain/notify"
	"github.com/xenking/sarit-store/internal/domain/order"
	"github.com/xenking/sarit-store/internal/domain/product"
	"github.com/xenking/sarit-store/internal/domain/shipping"
	"github.com/xenking/sarit-store/internal/domain/testimonial"
	"github.com/xenking/sarit-store/internal/handler"
	"github.com/xenking/sarit-store/internal/mailer"
	"github.com/xenking/sarit-store/internal/storage/cache"
	"github.com/xenking/sarit-store/internal/storage/postgres"
	"github.com/xenking/sarit-store/pkg/health"
	"github.com/xenking/sarit-store/pkg/httpmiddleware"
)

const (
	serviceName = "sarit-api"
	cachePrefix = "sarit"
)

// Run creates all dependencies, serves HTTP until ctx is cancelled and then
// shuts down gracefully. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))
	meter := m.MeterProvider().Meter(serviceName)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck("postgres", pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	geoRepo := postgres.NewGeoRepository(pool)
	shippingRepo := postgres.NewShippingRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	newsletterRepo := postgres.NewNewsletterRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)
	testimonialRepo := postgres.NewTestimonialRepository(pool)
	contactRepo := postgres.NewContactRepository(pool)

	// Domain services.
	shippingSvc := shipping.NewService(shippingRepo)
	if _, err := shippingSvc.EnsureSingleton(ctx); err != nil {
		return errors.Wrap(err, "ensure shipping config")
	}
	catalog := product.NewCatalog(productRepo)
	places := geo.NewDirectory(geoRepo)
	subscriptions := newsletter.NewService(newsletterRepo)
	ledger, err := coupon.NewLedger(couponRepo, meter)
	if err != nil {
		return errors.Wrap(err, "create coupon ledger")
	}

	sender, closeSender, err := newSender(cfg, lg)
	if err != nil {
		return errors.Wrap(err, "create notification sender")
	}
	defer closeSender()

	dispatcher, err := notify.NewDispatcher(sender, cfg.Notify.QueueSize, lg.Named("notify"), meter)
	if err != nil {
		return errors.Wrap(err, "create dispatcher")
	}
	// The dispatcher outlives the server so orders placed during shutdown
	// still get their messages sent.
	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		_ = dispatcher.Run(dispatchCtx)
	}()
	defer func() {
		stopDispatch()
		<-dispatchDone
	}()

	orders, err := order.NewService(order.Deps{
		Catalog:    productRepo,
		Places:     places,
		Shipping:   shippingSvc,
		Coupons:    ledger,
		Subscriber: subscriptions,
		Users:      userRepo,
		Notifier:   dispatcher,
		Orders:     orderRepo,
	}, meter)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	deps := handler.Deps{
		Products:     catalog,
		Catalog:      catalog,
		Places:       places,
		Shipping:     shippingSvc,
		Coupons:      ledger,
		Orders:       orders,
		Newsletter:   subscriptions,
		Testimonials: testimonial.NewService(testimonialRepo),
		Contacts:     contact.NewInbox(contactRepo, dispatcher, cfg.Notify.ContactInbox),
		Keys:         auth.NewKeyAuthenticator(apikeyRepo, []byte(cfg.APIKeyPepper)),
	}
	if cfg.JWT.Secret != "" {
		deps.Tokens = auth.NewTokenVerifier([]byte(cfg.JWT.Secret), cfg.JWT.Issuer)
	}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "parse redis url")
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()

		store := cache.NewIdempotencyStore(rdb, cachePrefix, cfg.Idempotency.TTL)
		healthSvc.AddReadinessCheck("redis", 2*time.Second, health.PingCheck("redis", store))
		deps.Idempotency = store
	} else {
		lg.Info("Redis not configured, checkout idempotency disabled")
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	api := handler.New(deps, cfg.BodyLimit).Router(
		httpmiddleware.Instrument(serviceName, m),
		httpmiddleware.LogRequests(),
	)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/", api)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.DefaultCORS(cfg.CORS.Origins)),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
				Skip:   isHealthCheck,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
		),
	}

	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

func isHealthCheck(r *http.Request) bool {
	return r.URL.Path == "/livez" || r.URL.Path == "/readyz"
}

// newSender publishes notifications to RabbitMQ when configured and logs
// them otherwise. The returned func releases the broker connection.
func newSender(cfg *Config, lg *zap.Logger) (notify.Sender, func(), error) {
	if cfg.AMQPURL == "" {
		lg.Info("AMQP not configured, notifications are logged only")
		return mailer.NewLogSender(lg.Named("mailer")), func() {}, nil
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "dial amqp")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, errors.Wrap(err, "open amqp channel")
	}
	pub, err := mailer.NewPublisher(ch, cfg.Notify.Exchange)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, err
	}
	lg.Info("Publishing notifications", zap.String("exchange", cfg.Notify.Exchange),
		zap.String("broker", redactURL(cfg.AMQPURL)))
	return pub, func() {
		_ = ch.Close()
		_ = conn.Close()
	}, nil
}

// redactURL masks the password in a broker URL before logging it.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
