package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/railsim-backend-go/internal/config"
	"github.com/jengzang/railsim-backend-go/internal/handler"
	"github.com/jengzang/railsim-backend-go/internal/logging"
	"github.com/jengzang/railsim-backend-go/internal/middleware"
	"github.com/jengzang/railsim-backend-go/internal/observability"
	"github.com/jengzang/railsim-backend-go/internal/repository"
	"github.com/jengzang/railsim-backend-go/internal/service"
	"github.com/jengzang/railsim-backend-go/internal/simulation"
	"github.com/jmoiron/sqlx"
)

// Dependencies are the long-lived objects the router wires into handlers.
type Dependencies struct {
	Config      *config.Config
	DB          *sqlx.DB
	Engine      *simulation.Engine
	Metrics     *observability.SimulationCollector
	Logger      logging.Logger
	RateLimiter *middleware.RateLimiter
}

// SetupRouter 设置路由
func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = logging.Noop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(log))
	r.Use(deps.Metrics.GinMiddleware())

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Railway simulation backend is running",
		})
	})
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	stationRepo := repository.NewStationRepository(deps.DB)
	trackRepo := repository.NewTrackRepository(deps.DB)
	routeRepo := repository.NewRouteRepository(deps.DB)
	trainRepo := repository.NewTrainRepository(deps.DB)

	stationService := service.NewStationService(stationRepo)
	trackService := service.NewTrackService(trackRepo, stationRepo)
	routeService := service.NewRouteService(routeRepo, stationRepo, trainRepo)
	trainService := service.NewTrainService(deps.DB)
	passengerService := service.NewPassengerService(deps.DB)

	stations := handler.NewStationHandler(stationService, passengerService)
	tracks := handler.NewTrackHandler(trackService)
	routes := handler.NewRouteHandler(routeService)
	trains := handler.NewTrainHandler(trainService)
	passengers := handler.NewPassengerHandler(passengerService)
	game := handler.NewSimulationHandler(deps.Engine, passengerService)

	authenticator := middleware.NewAuthenticator(cfg.APIKey, cfg.JWTSecret, 0)

	// API 路由组
	api := r.Group("/api/v1")
	{
		api.POST("/auth/token", handler.NewAuthHandler(authenticator).IssueToken)

		sim := api.Group("/simulation/train")
		if cfg.AuthEnabled {
			sim.Use(middleware.Auth(authenticator))
		}
		sim.Use(middleware.RateLimit(deps.RateLimiter))

		// 线路基础设施
		infra := sim.Group("/infra")
		{
			infra.POST("", tracks.Create)
			infra.GET("", tracks.List)
			infra.GET("/:id", tracks.Get)
			infra.PUT("/:id", tracks.Replace)
			infra.PATCH("/:id", tracks.Patch)
			infra.DELETE("/:id", tracks.Delete)
		}

		station := sim.Group("/station")
		{
			station.POST("", stations.Create)
			station.GET("", stations.List)
			station.GET("/:id", stations.Get)
			station.GET("/:id/passengers", stations.WaitingPassengers)
			station.PUT("/:id", stations.Replace)
			station.PATCH("/:id", stations.Patch)
			station.DELETE("/:id", stations.Delete)
		}

		route := sim.Group("/route")
		{
			route.POST("", routes.Create)
			route.GET("", routes.List)
			route.GET("/:id", routes.Get)
			route.PUT("/:id", routes.Replace)
			route.PATCH("/:id", routes.Patch)
			route.DELETE("/:id", routes.Delete)
		}

		train := sim.Group("/train")
		{
			train.POST("", trains.Create)
			train.GET("", trains.List)
			train.GET("/:id", trains.Get)
			train.PUT("/:id", trains.Replace)
			train.PATCH("/:id", trains.Patch)
			train.POST("/:id/cancel", trains.Cancel)
			train.DELETE("/:id", trains.Delete)
		}

		passenger := sim.Group("/passenger")
		{
			passenger.POST("", passengers.Create)
			passenger.GET("", passengers.List)
			passenger.GET("/:id", passengers.Get)
			passenger.PUT("/:id", passengers.Replace)
			passenger.PATCH("/:id", passengers.Patch)
			passenger.DELETE("/:id", passengers.Delete)
		}

		// 模拟控制
		g := sim.Group("/game")
		{
			g.POST("/init", game.Init)
			g.POST("/start", game.Start)
			g.POST("/pause", game.Pause)
			g.POST("/reset", game.Reset)
			g.POST("/step", game.Step)
			g.GET("/status", game.Status)
			g.GET("/trains-status", game.TrainsStatus)
			g.GET("/trains-status/:id", game.TrainStatus)
			g.GET("/stations-status", game.StationsStatus)
			g.GET("/stations-status/:id", game.StationStatus)
			g.POST("/passengers/generate", game.GeneratePassengers)
			g.GET("/events", game.Events)
			g.GET("/delays", game.Delays)
		}
	}

	return r
}
