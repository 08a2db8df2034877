package main

import (
	"context"
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/eventhub/config"
	"github.com/oksasatya/eventhub/internal/application"
	"github.com/oksasatya/eventhub/internal/domain/entity"
	pginfra "github.com/oksasatya/eventhub/internal/infrastructure/postgres"
	"github.com/oksasatya/eventhub/pkg/helpers"
)

const demoPassword = "password123"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, pginfra.PoolOptions{
		DSN:         cfg.PostgresDSN(),
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		MaxConnLife: cfg.DBMaxConnLife,
		Logger:      logger,
		SlowQuery:   cfg.DBSlowQuery,
	})
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	jwt := helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	auth := application.NewAuthService(pginfra.NewUserRepository(pool), jwt, nil, logger)
	events := application.NewEventService(
		pginfra.NewTxManager(pool),
		pginfra.NewEventRepository(pool),
		pginfra.NewRegistrationRepository(pool),
		logger,
	)

	organizer := ensureUser(ctx, auth, logger, "organizer", "organizer@example.com")
	attendee := ensureUser(ctx, auth, logger, "attendee", "attendee@example.com")

	ev, err := events.CreateEvent(ctx, caller(organizer), application.CreateEventInput{
		Name:        "Go Meetup",
		Description: "Monthly Go meetup with lightning talks",
		Date:        time.Now().UTC().Add(14 * 24 * time.Hour).Format(time.RFC3339),
		Location:    "Main Hall",
	})
	if err != nil {
		logger.Fatalf("failed to seed event: %v", err)
	}
	logger.WithFields(logrus.Fields{"event_id": ev.ID, "name": ev.Name}).Info("seeded event")

	res, err := events.Register(ctx, caller(attendee), ev.ID, application.RequestMeta{})
	switch {
	case errors.Is(err, application.ErrAlreadyRegistered):
		logger.Info("attendee already registered")
	case err != nil:
		logger.Fatalf("failed to register attendee: %v", err)
	default:
		logger.WithFields(logrus.Fields{
			"registration_id": res.Registration.ID,
			"ticket_code":     res.Registration.TicketCode,
		}).Info("registered attendee")
	}
	logger.Infof("demo users share the password %q", demoPassword)
}

func ensureUser(ctx context.Context, auth *application.AuthService, logger *logrus.Logger, username, email string) *entity.User {
	u, err := auth.Signup(ctx, application.SignupInput{Username: username, Email: email, Password: demoPassword}, application.RequestMeta{})
	if errors.Is(err, application.ErrUserExists) {
		u, err = auth.Authenticate(ctx, email, demoPassword)
	}
	if err != nil {
		logger.Fatalf("failed to seed user %s: %v", email, err)
	}
	logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("seeded user")
	return u
}

func caller(u *entity.User) application.Caller {
	return application.Caller{ID: u.ID, Username: u.Username, Email: u.Email}
}
