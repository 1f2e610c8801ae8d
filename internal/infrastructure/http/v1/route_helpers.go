// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
)

// CatalogRouteHandler defines the route surface shared by catalog handlers.
type CatalogRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	GetByCode(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	SetDeletionMark(c *gin.Context)
}

// RegisterCatalogRoutes registers standard CRUD routes for a catalog.
// Reads are open to any authenticated user; mutations pass through the
// given gate (admin check).
func RegisterCatalogRoutes(group *gin.RouterGroup, handler CatalogRouteHandler, gate gin.HandlerFunc) {
	group.GET("", handler.List)
	group.GET("/:id", handler.Get)
	group.GET("/code/:code", handler.GetByCode)
	group.POST("", gate, handler.Create)
	group.PUT("/:id", gate, handler.Update)
	group.DELETE("/:id", gate, handler.Delete)
	group.POST("/:id/deletion-mark", gate, handler.SetDeletionMark)
}
