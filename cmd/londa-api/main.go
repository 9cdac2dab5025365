// README: Entry point; loads config, wires services, starts HTTP server and background sweeper.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/newrelic/go-agent/v3/newrelic"

	"londa/internal/config"
	httptransport "londa/internal/http"
	"londa/internal/http/middleware"
	"londa/internal/infra"
	"londa/internal/logging"
	"londa/internal/maps"
	"londa/internal/modules/analytics"
	"londa/internal/modules/driver"
	"londa/internal/modules/events"
	"londa/internal/modules/identity"
	"londa/internal/modules/location"
	"londa/internal/modules/matching"
	"londa/internal/modules/notification"
	"londa/internal/modules/payment"
	"londa/internal/modules/pricing"
	"londa/internal/modules/ride"
	"londa/internal/modules/subscription"
	"londa/internal/modules/user"
)

const shutdownWait = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("londa-api exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(logging.NewLogger(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fb, err := infra.NewFirebase(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		return err
	}
	defer fb.Close()

	verifier := infra.NewFirebaseVerifier(fb.Auth)
	if cfg.Auth.AllowCustomTokens {
		slog.Warn("custom tokens are accepted as bearer tokens; do not enable in production")
		verifier = infra.NewCustomTokenVerifier(verifier)
	}

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	var dbPool *pgxpool.Pool
	if cfg.DB.DSN != "" {
		dbPool, err = infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer dbPool.Close()
	}

	var nrApp *newrelic.Application
	if cfg.NewRelic.License != "" {
		nrApp, err = infra.NewNewRelic(cfg.NewRelic.AppName, cfg.NewRelic.License)
		if err != nil {
			return err
		}
	}

	routeSvc, err := maps.NewRouteService(cfg.Maps.APIKey)
	if err != nil {
		return err
	}
	placesSvc := maps.NewPlacesService(routeSvc)

	var rates pricing.RateSource
	if dbPool != nil {
		rates = pricing.NewStore(dbPool)
	}
	pricingSvc := pricing.NewService(routeSvc, rates, cfg.Fare)

	var (
		geoIndex  location.GeoIndex
		positions driver.PositionIndex
	)
	if cfg.Matching.GeoIndex == "redis" {
		redisIndex := location.NewRedisIndex(redisClient)
		geoIndex, positions = redisIndex, redisIndex
	} else {
		geoIndex = location.NewFirestoreIndex(fb.Firestore, location.Mode(cfg.Matching.GeoIndex))
	}

	signingKeys, err := infra.NewSecureTokenKeys(ctx)
	if err != nil {
		return err
	}
	defer signingKeys.EndBackground()

	accounts := identity.NewFirebaseAccounts(fb.Auth)
	userSvc := user.NewService(user.NewFirestoreStore(fb.Firestore), accounts)
	driverSvc := driver.NewService(driver.NewFirestoreStore(fb.Firestore), positions)
	identitySvc := identity.NewService(
		identity.NewRedisSessionStore(redisClient),
		accounts,
		identity.ProfileDirectory{Users: userSvc, Drivers: driverSvc},
		identity.LogSender{},
		infra.NewExpiredTokenVerifier(cfg.Firebase.ProjectID, signingKeys.Keyfunc),
		identity.Options{TTL: cfg.Auth.OTPTTL, AcceptAny: cfg.Auth.OTPAcceptAny},
	)

	notifySvc := notification.NewService(
		notification.NewFirestoreTokenStore(fb.Firestore),
		notification.NewFCMProvider(fb.Messaging),
		cfg.Notify.Concurrency,
	)

	rideSvc := ride.NewService(ride.NewFirestoreStore(fb.Firestore), cfg.Ride)
	matchingSvc := matching.NewService(rideSvc, geoIndex, pricingSvc, notifySvc, matching.NewStore(redisClient),
		cfg.Matching, matching.WithNotifyTimeout(cfg.Notify.Timeout))

	broadcaster := events.NewBroadcaster(redisClient)
	rideSvc.AddObserver(matchingSvc)
	rideSvc.AddObserver(notification.NewRideObserver(notifySvc, driverSvc))
	rideSvc.AddObserver(broadcaster)

	deps := httptransport.ServerDeps{
		Verifier:      verifier,
		Identity:      identitySvc,
		Users:         userSvc,
		Drivers:       driverSvc,
		Rides:         rideSvc,
		Matching:      matchingSvc,
		Payments:      payment.NewService(payment.NewFirestoreStore(fb.Firestore), rideSvc, pricingSvc),
		Subscriptions: subscription.NewService(subscription.NewFirestoreStore(fb.Firestore), cfg.Subscription, cfg.Fare.Currency),
		Analytics:     analytics.NewService(rideSvc, cfg.Fare.Currency),
		Notifications: notifySvc,
		Routes:        routeSvc,
		Places:        placesSvc,
		Updates:       broadcaster,
		Idempotency:   middleware.NewRedisResponseCache(redisClient),
	}
	if nrApp != nil {
		deps.NewRelic = nrApp
		defer nrApp.Shutdown(shutdownWait)
	}

	if dbPool != nil {
		ledger := events.NewLedger(dbPool)
		rideSvc.AddObserver(ledger)
		deps.History = ledger
	}

	if len(cfg.Kafka.Brokers) > 0 {
		writer := infra.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer writer.Close()
		rideSvc.AddObserver(events.NewStream(writer))
	}

	// Registered last so it runs before the Kafka, Postgres and Redis clients close.
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		if err := rideSvc.Drain(drainCtx); err != nil {
			slog.Warn("ride observers not drained", "err", err)
		}
	}()

	if cfg.Ride.SweepInterval > 0 {
		go rideSvc.RunExpirySweeper(ctx, cfg.Ride.SweepInterval)
	}

	slog.Info("londa-api starting", "addr", cfg.HTTP.Addr, "env", cfg.Env, "geo_index", cfg.Matching.GeoIndex)
	return httptransport.NewServer(cfg.HTTP.Addr, deps).Run(ctx)
}
