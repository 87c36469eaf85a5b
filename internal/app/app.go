package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v82"
	"github.com/tersane/ferry-reservation-system/internal/booking"
	"github.com/tersane/ferry-reservation-system/internal/domain"
	"github.com/tersane/ferry-reservation-system/internal/mailer"
	"github.com/tersane/ferry-reservation-system/internal/payment"
	"github.com/tersane/ferry-reservation-system/internal/propagator"
	"github.com/tersane/ferry-reservation-system/internal/registry"
	"github.com/tersane/ferry-reservation-system/internal/repository"
	appvalidator "github.com/tersane/ferry-reservation-system/internal/validator"
	"github.com/tersane/ferry-reservation-system/internal/vcs"
)

var (
	version = vcs.Version()
)

// seatRegistry is the slice of the seat reservation registry the HTTP layer
// needs: hold arbitration plus the read paths.
type seatRegistry interface {
	domain.HoldRegistry
	Snapshot(ctx context.Context, tripID, viewerID string) ([]domain.SeatAvailability, error)
	VerifyHolds(ctx context.Context, tripID, holderID string, seatIDs []string) error
}

type application struct {
	config         config
	logger         *slog.Logger
	db             *pgxpool.Pool
	redis          redis.UniversalClient
	validator      *validator.Validate
	mailer         mailer.Mailer
	sessionManager *scs.SessionManager

	catalog     domain.SeatCatalog
	bookingRepo domain.BookingRepository
	paymentRepo domain.PaymentRepository

	registry    seatRegistry
	propagator  *propagator.Propagator
	coordinator *payment.Coordinator
	finalizer   domain.BookingFinalizer
}

type config struct {
	port int
	env  string
	db   struct {
		dsn            string
		maxOpenConns   int
		maxIdleTime    time.Duration
		migrate        bool
		migrationsPath string
	}
	redis struct {
		url          string
		maxOpenConns int
		maxIdleConns int
		maxIdleTime  time.Duration
	}
	smtp struct {
		host     string
		port     int
		username string
		password string
		sender   string
	}
	stripe struct {
		secretKey     string
		webhookSecret string
		successUrl    string
		cancelUrl     string
	}
	amqp struct {
		url string
	}
	holds struct {
		ttl                time.Duration
		sweepInterval      time.Duration
		allowDisabledSeats bool
	}
	checkout struct {
		window       time.Duration
		safetyBuffer time.Duration
		minGrace     time.Duration
	}
}

func Run() error {
	var cfg config

	flag.IntVar(&cfg.port, "port", 3000, "server port")
	flag.StringVar(&cfg.env, "env", "dev", "Environment (dev|staging|prod)")

	flag.StringVar(&cfg.db.dsn, "db-dsn", "", "PostgreSQL DSN")
	flag.IntVar(&cfg.db.maxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.db.maxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")
	flag.BoolVar(&cfg.db.migrate, "db-migrate", false, "Run database migrations on startup")
	flag.StringVar(&cfg.db.migrationsPath, "db-migrations-path", "./migrations", "Path to database migration files")

	flag.StringVar(&cfg.redis.url, "redis-url", "", "Redis URL")
	flag.IntVar(&cfg.redis.maxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.redis.maxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.redis.maxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	flag.StringVar(&cfg.smtp.host, "smtp-host", "sandbox.smtp.mailtrap.io", "SMTP host")
	flag.IntVar(&cfg.smtp.port, "smtp-port", 2525, "SMTP port")
	flag.StringVar(&cfg.smtp.username, "smtp-username", "", "SMTP username")
	flag.StringVar(&cfg.smtp.password, "smtp-password", "", "SMTP password")
	flag.StringVar(&cfg.smtp.sender, "smtp-sender", "Tersane Ferries <no-reply@tersane.example>", "SMTP sender")

	flag.StringVar(&cfg.stripe.secretKey, "stripe-key", "", "Stripe secret key")
	flag.StringVar(&cfg.stripe.webhookSecret, "stripe-webhook-secret", "", "Stripe webhook secret")
	flag.StringVar(&cfg.stripe.successUrl, "stripe-success-url", "https://example.com/success.html", "Stripe payment success page")
	flag.StringVar(&cfg.stripe.cancelUrl, "stripe-cancel-url", "https://example.com/cancel.html", "Stripe payment cancel page")

	flag.StringVar(&cfg.amqp.url, "amqp-url", "", "RabbitMQ URL for booking events")

	flag.DurationVar(&cfg.holds.ttl, "hold-ttl", 5*time.Minute, "Temporary seat hold TTL")
	flag.DurationVar(&cfg.holds.sweepInterval, "sweep-interval", 30*time.Second, "Stale hold sweep interval")
	flag.BoolVar(&cfg.holds.allowDisabledSeats, "allow-disabled-seats", false, "Allow selecting accessibility seats")

	flag.DurationVar(&cfg.checkout.window, "checkout-window", 15*time.Minute, "Longest time a payment session may stay open")
	flag.DurationVar(&cfg.checkout.safetyBuffer, "safety-buffer", 10*time.Minute, "Payment cutoff before departure")
	flag.DurationVar(&cfg.checkout.minGrace, "min-grace", time.Minute, "Shortest window a live payment session is given")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	stripe.Key = cfg.stripe.secretKey

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	validator := appvalidator.NewValidator()

	if cfg.db.migrate {
		err := repository.Migrate(cfg.db.dsn, cfg.db.migrationsPath)
		if err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	db, err := newDatabasePool(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := newRedisClient(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	catalog := repository.NewPostgresCatalog(db)
	bookingRepo := repository.NewPostgresBookingRepository(db)
	paymentRepo := repository.NewPostgresPaymentRepository(db)

	policy := domain.SeatPolicy{AllowDisabledSeats: cfg.holds.allowDisabledSeats}
	seatRegistry := registry.New(redisClient, catalog, policy, logger)

	sweeper := registry.NewSweeper(redisClient, logger, cfg.holds.sweepInterval)
	go sweeper.Start(context.Background())
	defer sweeper.Stop()

	feed := registry.NewChangeFeed(redisClient, logger)
	availability := propagator.New(feed, logger)
	defer availability.Close()

	smtpMailer := mailer.NewSMTPMailer(cfg.smtp.host, cfg.smtp.port, cfg.smtp.username, cfg.smtp.password, cfg.smtp.sender)

	publisher := booking.NewAMQPPublisher(cfg.amqp.url, logger)
	finalizer := booking.NewFinalizer(bookingRepo, seatRegistry, publisher, smtpMailer, logger)

	gateway := payment.NewStripeGateway(cfg.stripe.successUrl, cfg.stripe.cancelUrl)

	coordinator := payment.NewCoordinator(
		payment.Config{
			CheckoutWindow: cfg.checkout.window,
			SafetyBuffer:   cfg.checkout.safetyBuffer,
			MinGrace:       cfg.checkout.minGrace,
		},
		gateway,
		seatRegistry,
		finalizer,
		paymentRepo,
		logger,
	)

	app := &application{
		config:         cfg,
		logger:         logger,
		db:             db,
		redis:          redisClient,
		validator:      validator,
		mailer:         smtpMailer,
		sessionManager: newSessionManager(redisClient),
		catalog:        catalog,
		bookingRepo:    bookingRepo,
		paymentRepo:    paymentRepo,
		registry:       seatRegistry,
		propagator:     availability,
		coordinator:    coordinator,
		finalizer:      finalizer,
	}

	return app.run()
}

func newSessionManager(client *redis.Client) *scs.SessionManager {
	sessionManager := scs.New()

	sessionManager.Store = goredisstore.New(client)
	sessionManager.IdleTimeout = 20 * time.Minute
	sessionManager.Cookie.Name = "session_id"

	return sessionManager
}

func newRedisClient(cfg config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.redis.url,
		MaxIdleConns:    cfg.redis.maxIdleConns,
		MaxActiveConns:  cfg.redis.maxOpenConns,
		ConnMaxIdleTime: cfg.redis.maxIdleTime,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func newDatabasePool(cfg config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.db.dsn)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.db.maxIdleTime
	config.MaxConns = int32(cfg.db.maxOpenConns)

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *application) run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)
		if err != nil {
			shutdownError <- err
		}

		shutdownError <- nil
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)

	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(app.recoverPanic)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", app.GetHealth)

		r.Post("/webhook", app.StripeWebhookHandler)

		r.Group(func(r chi.Router) {
			r.Use(app.sessionManager.LoadAndSave)
			r.Use(app.ensureGuestSession)

			r.Route("/trips/{tripId}", func(r chi.Router) {
				r.Get("/seats", app.GetTripSeats)
				r.Get("/availability/stream", app.StreamTripAvailability)

				r.Post("/holds", app.CreateHolds)
				r.Delete("/holds", app.ReleaseHolds)

				r.Post("/checkout", app.CreateCheckout)
			})

			r.Route("/payments/{sessionId}", func(r chi.Router) {
				r.Get("/", app.GetPaymentSession)
				r.Post("/result", app.ReportPaymentResult)
				r.Post("/cancel", app.CancelPaymentSession)
			})
		})
	})

	return r
}
