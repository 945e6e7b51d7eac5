package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pathwise/pathwise-backend/internal/handlers"
	"github.com/pathwise/pathwise-backend/internal/middleware"
)

type RouterConfig struct {
	AdaptationHandler *handlers.AdaptationHandler
	AuthMiddleware    *middleware.AuthMiddleware
	AllowOrigins      []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	protected := router.Group("/api/adaptation")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	protected.GET("/profile", cfg.AdaptationHandler.GetProfile)
	protected.POST("/signals", cfg.AdaptationHandler.ApplySignals)
	protected.GET("/mastery/:competencyId", cfg.AdaptationHandler.GetMasteryEstimate)
	protected.GET("/zpd/:domain", cfg.AdaptationHandler.CalculateZPD)
	protected.GET("/difficulty/:domain", cfg.AdaptationHandler.GetOptimalDifficulty)
	protected.GET("/fatigue/:sessionId", cfg.AdaptationHandler.AssessFatigue)
	protected.POST("/gate", cfg.AdaptationHandler.EvaluateDecisionGate)
	protected.POST("/next-steps", cfg.AdaptationHandler.ScoreNextSteps)
	protected.GET("/rules", cfg.AdaptationHandler.GetRules)
	protected.POST("/rules", cfg.AdaptationHandler.CreateRule)
	protected.PUT("/rules/:id", cfg.AdaptationHandler.UpdateRule)
	protected.GET("/history", cfg.AdaptationHandler.GetAdaptationHistory)

	return router
}
