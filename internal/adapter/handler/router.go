package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rl1809/flashsale-engine/internal/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

func NewRouter(engine *gin.Engine, cfg config.CORSConfig, logger *zap.Logger, h *HTTPHandler, hub *Hub) {
	engine.Use(RecoveryMiddleware(logger))
	engine.Use(NewCORSMiddleware(cfg, logger))
	engine.Use(LoggingMiddleware(logger))

	engine.GET("/health", h.HealthCheck)
	engine.GET("/ws", hub.ServeWs)

	api := engine.Group("/api")
	addRoutes(api.Group("/flash-sales"), []route{
		{Method: http.MethodGet, Path: "", Handler: h.ListSales},
		{Method: http.MethodPost, Path: "", Handler: h.CreateSale},
		{Method: http.MethodGet, Path: "/:id", Handler: h.GetSale},
		{Method: http.MethodPost, Path: "/:id/purchase", Handler: h.Purchase},
		{Method: http.MethodPost, Path: "/:id/expire", Handler: h.Expire},
	})
	addRoutes(api, []route{
		{Method: http.MethodPost, Path: "/cart", Handler: h.AddToCart},
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		g.Handle(r.Method, r.Path, r.Handler)
	}
}
