package router

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"poll-service/internal/config"
	"poll-service/internal/handler"
	"poll-service/internal/middleware"
	"poll-service/internal/realtime"
	"poll-service/internal/repository"
	"poll-service/internal/service"
)

// Runtime holds the long-lived realtime components so main can manage
// their lifecycle around the HTTP server
type Runtime struct {
	Feed    *realtime.FeedClient
	Hub     *realtime.Hub
	Tracker *realtime.Tracker
	Poller  *realtime.Poller
}

// Start brings up the fallback poller, the change feed and the
// presence tracker. The poller starts paused and runs only while the
// feed is down; it must be live before the feed so the first state
// notification finds it ready.
func (rt *Runtime) Start() {
	rt.Poller.Start()
	rt.Poller.Pause()
	rt.Feed.Start()
	rt.Tracker.Start()
}

// Stop tears everything down in reverse order
func (rt *Runtime) Stop() {
	rt.Poller.Stop()
	rt.Tracker.Stop()
	rt.Feed.Stop()
}

func Setup(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, logger *zap.Logger) (*gin.Engine, *Runtime) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.MetricsMiddleware())

	// Repositories
	pollRepo := repository.NewPollRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	// Services
	publisher := realtime.NewRedisPublisher(redisClient)
	snapshotService := service.NewSnapshotService(pollRepo, voteRepo, logger)
	pollService := service.NewPollService(pollRepo, publisher, logger)
	voteService := service.NewVoteService(pollRepo, voteRepo, publisher, logger)
	botService := service.NewBotService(profileRepo, voteRepo, pollRepo, voteService, cfg.Bots, logger)

	// Realtime components
	hub := realtime.NewHub(logger)
	feed := realtime.NewFeedClient(
		realtime.NewRedisChangeStream(redisClient),
		snapshotService,
		hub,
		realtime.FeedConfig{
			FetchTimeout:      cfg.Realtime.FetchTimeout,
			ErrorRetryDelay:   cfg.Realtime.ErrorRetryDelay,
			TimeoutRetryDelay: cfg.Realtime.TimeoutRetryDelay,
			MaxRetryDelay:     cfg.Realtime.MaxRetryDelay,
		},
		logger,
	)
	tracker := realtime.NewTracker(
		realtime.NewRedisPresenceStream(redisClient),
		profileRepo,
		realtime.TrackerConfig{
			MinAnnounceGap:    cfg.Realtime.HeartbeatInterval / 3,
			Grace:             cfg.Realtime.PresenceGrace,
			SweepInterval:     cfg.Realtime.PresenceSweep,
			ResolveTimeout:    cfg.Realtime.FetchTimeout,
			ErrorRetryDelay:   cfg.Realtime.ErrorRetryDelay,
			TimeoutRetryDelay: cfg.Realtime.TimeoutRetryDelay,
		},
		logger,
	)
	poller := realtime.NewPoller(snapshotService, feed.Cache(), hub,
		cfg.Realtime.PollerInterval, cfg.Realtime.FetchTimeout, logger)

	// The poller carries live updates only while the feed is down.
	feed.OnStateChange(func(state realtime.ConnState) {
		switch state {
		case realtime.StateSubscribed:
			poller.Pause()
		case realtime.StateChannelError, realtime.StateTimedOut:
			poller.Resume()
		}
	})

	// Auth
	validator := middleware.NewJWTValidator(cfg.Auth.SecretKey)

	// Handlers
	pollHandler := handler.NewPollHandler(pollService, snapshotService, feed)
	voteHandler := handler.NewVoteHandler(voteService)
	presenceHandler := handler.NewPresenceHandler(tracker)
	botHandler := handler.NewBotHandler(botService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Health endpoints (no auth)
	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", middleware.MetricsHandler())

	api := r.Group(cfg.Server.BasePath)
	{
		api.GET("/health", healthHandler.Health)
		api.GET("/ready", healthHandler.Ready)

		// WebSocket endpoints
		api.GET("/ws/polls", hub.HandleResultsWebSocket(feed))
		api.GET("/ws/presence", realtime.HandlePresenceWebSocket(tracker, validator, logger))

		// Public reads, personalized when a token is present
		public := api.Group("")
		public.Use(middleware.OptionalAuthMiddleware(validator))
		{
			public.GET("", pollHandler.ListPolls)
			public.GET("/:id", pollHandler.GetPoll)
			public.GET("/presence", presenceHandler.GetOnlineUsers)
			public.POST("/refresh", pollHandler.RefreshPolls)
		}

		// Authenticated routes
		authenticated := api.Group("")
		authenticated.Use(middleware.AuthMiddleware(validator))
		{
			authenticated.POST("", pollHandler.CreatePoll)
			authenticated.PUT("/:id", pollHandler.UpdatePoll)
			authenticated.PATCH("/:id/status", pollHandler.UpdatePollStatus)
			authenticated.DELETE("/:id", pollHandler.DeletePoll)

			authenticated.POST("/:id/votes", voteHandler.CastVote)
			authenticated.DELETE("/:id/votes", voteHandler.RetractVote)

			authenticated.POST("/presence/refresh", presenceHandler.RefreshUsernames)

			// Admin-only simulation controls
			admin := authenticated.Group("/admin")
			admin.Use(middleware.RequireAdmin())
			{
				admin.POST("/bots", botHandler.CreateBots)
				admin.DELETE("/bots", botHandler.DeleteBots)
				admin.DELETE("/bots/votes", botHandler.ClearBotVotes)
				admin.GET("/bots/stats", botHandler.GetBotStats)
				admin.POST("/bots/simulate", botHandler.SimulateVoting)
				admin.POST("/bots/simulate/step", botHandler.SimulateSingleStep)
			}
		}
	}

	return r, &Runtime{Feed: feed, Hub: hub, Tracker: tracker, Poller: poller}
}
