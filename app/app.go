// Package app assembles the application: database, event bus, services and
// the HTTP surface.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"

	"github.com/esolangs/codeguessing/app/api"
	"github.com/esolangs/codeguessing/app/eventbus"
	commentservice "github.com/esolangs/codeguessing/app/modules/comment/application"
	guessservice "github.com/esolangs/codeguessing/app/modules/guess/application"
	leaderboardservice "github.com/esolangs/codeguessing/app/modules/leaderboard/application"
	roundservice "github.com/esolangs/codeguessing/app/modules/round/application"
	scoreservice "github.com/esolangs/codeguessing/app/modules/score/application"
	submissionservice "github.com/esolangs/codeguessing/app/modules/submission/application"
	userservice "github.com/esolangs/codeguessing/app/modules/user/application"
	"github.com/esolangs/codeguessing/app/shared/backup"
	"github.com/esolangs/codeguessing/app/shared/events"
	"github.com/esolangs/codeguessing/app/shared/metrics"
	"github.com/esolangs/codeguessing/app/shared/operation"
	"github.com/esolangs/codeguessing/app/shared/persona"
	"github.com/esolangs/codeguessing/config"
	"github.com/esolangs/codeguessing/db/bundb"
)

// App holds everything with a lifecycle.
type App struct {
	Cfg     *config.Config
	Handler http.Handler

	db        *bundb.DBService
	publisher events.Publisher
	logger    *slog.Logger
}

// NewApp wires the application from configuration.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	dbService, err := bundb.NewBunDBService(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database service: %w", err)
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATS.URL != "" {
		bus, err := eventbus.NewEventBus(cfg.NATS.URL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize event bus: %w", err)
		}
		publisher = bus
	} else {
		logger.Warn("No NATS URL configured, events are disabled")
	}

	var personas persona.Service = persona.Disabled{}
	if cfg.Canon.URL != "" {
		personas = persona.NewClient(cfg.Canon.URL)
	} else {
		logger.Warn("No canon URL configured, anonymity is disabled")
	}

	var backups backup.Runner = backup.Noop{}
	if cfg.Backup.Dir != "" {
		backups = &backup.PgDump{DSN: cfg.Postgres.DSN, Dir: cfg.Backup.Dir}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	opMetrics := metrics.NewPrometheus(registry)
	tracer := otel.Tracer("codeguessing")
	tel := func(service string) operation.Telemetry {
		return operation.Telemetry{
			Service: service,
			Logger:  logger.With(slog.String("service", service)),
			Metrics: opMetrics,
			Tracer:  tracer,
		}
	}

	db := dbService.GetDB()
	users := userservice.NewService(dbService.UserDB, db, tel("user"))
	scores := scoreservice.NewService(dbService.ScoreDB, dbService.SubmissionDB, dbService.GuessDB, db, tel("score"))
	rounds := roundservice.NewService(
		dbService.RoundDB, dbService.SubmissionDB, dbService.GuessDB, dbService.CommentDB,
		scores, personas, publisher, backups, db, cfg.Rounds, tel("round"),
	)
	submissions := submissionservice.NewService(dbService.SubmissionDB, dbService.RoundDB, dbService.UserDB, db, tel("submission"))
	guesses := guessservice.NewService(dbService.GuessDB, dbService.SubmissionDB, dbService.RoundDB, publisher, db, tel("guess"))
	comments := commentservice.NewService(
		dbService.CommentDB, dbService.RoundDB, dbService.SubmissionDB,
		personas, publisher, db, cfg.HTTP.BaseURL, tel("comment"),
	)
	leaderboard := leaderboardservice.NewService(dbService.ScoreDB, dbService.GuessDB, dbService.RoundDB, dbService.UserDB, db, tel("leaderboard"))

	auth := api.NewAuth(cfg.Auth, users, personas, logger)
	handlers := api.NewHandlers(rounds, submissions, guesses, scores, comments, leaderboard, logger)
	router := api.NewRouter(handlers, auth, registry)

	return &App{
		Cfg:       cfg,
		Handler:   router,
		db:        dbService,
		publisher: publisher,
		logger:    logger,
	}, nil
}

// Close releases the event bus and database connections.
func (a *App) Close() {
	if closer, ok := a.publisher.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.logger.Error("Failed to close event bus", slog.Any("error", err))
		}
	}
	if err := a.db.GetDB().Close(); err != nil {
		a.logger.Error("Failed to close database", slog.Any("error", err))
	}
}
