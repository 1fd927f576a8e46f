package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"counsel-tasks-backend/internal/analytics"
	"counsel-tasks-backend/internal/assistant"
	"counsel-tasks-backend/internal/auth"
	"counsel-tasks-backend/internal/chathistory"
	"counsel-tasks-backend/internal/config"
	"counsel-tasks-backend/internal/db"
	"counsel-tasks-backend/internal/feedback"
	"counsel-tasks-backend/internal/leaderboard"
	"counsel-tasks-backend/internal/logging"
	"counsel-tasks-backend/internal/notifications"
	"counsel-tasks-backend/internal/roster"
	"counsel-tasks-backend/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New(logging.Options{})
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("bad time zone")
	}

	secret, dev := cfg.Secret()
	if dev {
		logger.Warn().Msg("JWT_SECRET not set, using the development secret")
	}

	database, err := db.Connect(cfg.ConnString())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect DB")
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(ctx, database); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}
	logger.Info().Msg("connected to PostgreSQL")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	users := auth.NewStore(database)
	taskStore := tasks.NewStore(database)
	feedbackStore := feedback.NewStore(database)
	rosterStore := roster.NewStore(database)
	notes := notifications.NewStore(database)
	chats := chathistory.NewStore(database)
	sink := analytics.NewPostgres(database)

	quotes := notifications.NewQuotes(notes, nil, logger)
	chat, err := newAssistant(cfg, taskStore, loc, logger, reg)
	if err != nil {
		logger.Fatal().Err(err).Msg("assistant setup failed")
	}

	var rewards tasks.Rewarder = tasks.NewCanned(uint64(time.Now().UnixNano()))
	if cfg.OpenAIKey != "" {
		rewards = tasks.NewRewardWriter(cfg.OpenAIKey, cfg.OpenAIModel, rewards, logger)
	} else {
		logger.Info().Msg("OPENAI_API_KEY not set, rewards use canned messages")
	}

	mw := auth.New(secret)
	counselor := func(h http.HandlerFunc) http.HandlerFunc { return mw.Require(auth.RoleCounselor, h) }
	individual := func(h http.HandlerFunc) http.HandlerFunc { return mw.Require(auth.RoleIndividual, h) }

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// ----- AUTH -----
	mux.HandleFunc("POST /auth/register", auth.RegisterHandler(users, secret))
	mux.HandleFunc("POST /auth/login", auth.LoginHandler(users, secret))
	mux.HandleFunc("GET /auth/me", mw.Wrap(auth.MeHandler(users)))
	mux.HandleFunc("POST /auth/logout", mw.Wrap(auth.LogoutHandler()))
	mux.HandleFunc("DELETE /auth/account", mw.Wrap(auth.DeleteAccountHandler(users)))
	mux.HandleFunc("GET /counselors", auth.CounselorsHandler(users))

	// ----- TASKS -----
	mux.HandleFunc("/tasks", mw.Wrap(tasks.Handler(taskStore, loc, rewards, sink)))
	mux.HandleFunc("/task-comments", mw.Wrap(feedback.CommentsRouter(feedbackStore, taskStore, users, notes, sink)))

	// ----- ASSISTANT -----
	mux.HandleFunc("POST /ai/chat", mw.Wrap(assistant.ChatHandler(chat, sink)))
	mux.HandleFunc("/chat-history", mw.Wrap(chathistory.Handler(chats)))
	mux.HandleFunc("/chat-history/{id}", mw.Wrap(chathistory.SessionHandler(chats)))

	// ----- COUNSELOR -----
	mux.HandleFunc("/counselor/individuals", counselor(roster.Handler(rosterStore, users, notes, sink)))
	mux.HandleFunc("GET /counselor/individuals/{id}", counselor(roster.DetailHandler(users, taskStore, feedbackStore)))
	mux.HandleFunc("GET /counselor/leaderboard", counselor(leaderboard.CounselorHandler(taskStore, time.Now)))
	mux.HandleFunc("GET /individual/leaderboard", individual(leaderboard.IndividualHandler(users, taskStore, time.Now)))
	mux.HandleFunc("/feedback", mw.Wrap(feedback.Handler(feedbackStore, users, notes, sink)))

	// ----- NOTIFICATIONS -----
	mux.HandleFunc("/notifications", mw.Wrap(notifications.Handler(notes)))
	mux.HandleFunc("POST /notifications/remind", counselor(notifications.RemindHandler(notes, quotes, loc, time.Now)))
	mux.HandleFunc("GET /motivational", mw.Wrap(notifications.MotivationalHandler(notes, quotes, loc, time.Now)))

	mux.HandleFunc("POST /analytics/app-opened", mw.Wrap(analytics.AppOpenedHandler(sink)))

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key", "X-Platform", "X-App-Version", "X-Session-Id"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           logging.Middleware(logger, c.Handler(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", cfg.HTTPAddr).Msg("API server is running")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

// newAssistant wires the chat pipeline. Without a Gemini key the service
// answers from the local fallback only.
func newAssistant(cfg *config.Config, source assistant.TaskSource, loc *time.Location, logger zerolog.Logger, reg prometheus.Registerer) (*assistant.Service, error) {
	ac := cfg.Assistant
	clock := assistant.SystemClock

	cache, err := assistant.NewCache(ac.CacheSize, ac.CacheTTL, clock)
	if err != nil {
		return nil, err
	}
	metrics := assistant.NewMetrics(reg, cache)

	opts := assistant.Options{
		Tasks:    source,
		Cache:    cache,
		Fallback: assistant.NewFallback(nil),
		Clock:    clock,
		Location: loc,
		Logger:   logger.With().Str("component", "assistant").Logger(),
		Metrics:  metrics,
	}

	if ac.GeminiKey == "" {
		logger.Warn().Msg("GEMINI_KEY not set, assistant uses local replies only")
		return assistant.NewService(opts), nil
	}

	pacer := assistant.NewPacer(ac.MinInterval, clock, assistant.Sleep)
	gemini := assistant.NewGeminiClient(ac.GeminiKey, ac.GeminiModel, ac.GeminiBaseURL)
	opts.Generator = assistant.NewRetryingClient(gemini, pacer, assistant.RetryConfig{
		MaxAttempts:    ac.MaxAttempts,
		InitialBackoff: ac.InitialBackoff,
	}, assistant.Sleep, opts.Logger, metrics)

	return assistant.NewService(opts), nil
}
