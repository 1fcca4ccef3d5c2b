package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the handlers and middleware onto a gin engine.
func NewRouter(h *Handler, logger *slog.Logger, corsOrigin string) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		RequestID(),
		RequestLogger(logger),
		CORS(corsOrigin),
	)

	router.GET("/", h.Home)
	router.POST("/predict", h.Predict)
	router.GET("/models", h.GetModels)
	router.GET("/predictions", h.ListPredictions)
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
