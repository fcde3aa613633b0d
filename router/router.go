// Package router wires the admin API routes.
package router

import (
	"FileVaultBot/internal/handler"
	"FileVaultBot/internal/store"
	"FileVaultBot/utils"

	"github.com/gin-gonic/gin"
)

// SetupRouter builds the gin engine for the admin API.
func SetupRouter(st *store.Store) *gin.Engine {
	r := gin.Default()
	r.Use(utils.CORSMiddleware())

	h := handler.New(st)

	api := r.Group("/api")
	{
		api.POST("/login", h.Login)

		auth := api.Group("")
		auth.Use(utils.AuthMiddleware())
		{
			auth.GET("/stats", h.Stats)
			auth.GET("/files", h.RecentFiles)
			auth.GET("/broadcasts", h.Broadcasts)
		}
	}
	return r
}
