package router

import (
	"net/http"

	"warehouse-service/internal/dto"
	"warehouse-service/internal/handlers"
	"warehouse-service/internal/middleware"
	"warehouse-service/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Deps struct {
	Orders    service.OrderService
	Inventory service.InventoryService
	Verifier  middleware.TokenVerifier
	Log       *zap.Logger
}

func Router(d Deps) *gin.Engine {
	dto.RegisterJSONTagNames()

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RequestLogger(d.Log), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.HeaderRequestID},
		ExposeHeaders: []string{"Content-Length", middleware.HeaderRequestID},
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	orderHandler := handlers.NewOrderHandler(d.Orders, d.Log)
	inventoryHandler := handlers.NewInventoryHandler(d.Inventory, d.Log)

	api := r.Group("/api/v1", middleware.AuthRequired(d.Verifier, d.Log))
	{
		orders := api.Group("/orders")
		orders.POST("", orderHandler.Create)
		orders.GET("", orderHandler.List)
		orders.GET("/:id", orderHandler.Get)
		orders.PUT("/:id", orderHandler.Update)
		orders.POST("/:id/fulfill", orderHandler.Fulfill)

		inventory := api.Group("/inventory")
		inventory.POST("", inventoryHandler.Create)
		inventory.GET("", inventoryHandler.List)
		inventory.GET("/:id", inventoryHandler.Get)
		inventory.POST("/:id/adjust", inventoryHandler.Adjust)
		inventory.DELETE("/:id", inventoryHandler.Delete)
	}

	return r
}
