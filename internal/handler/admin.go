// Package handler implements the JSON endpoints of the admin API.
package handler

import (
	"FileVaultBot/config"
	"FileVaultBot/internal/store"
	"FileVaultBot/internal/task"
	"FileVaultBot/utils"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

var errBadCredentials = errors.New("invalid username or password")

// Handler carries the admin API dependencies.
type Handler struct {
	Store *store.Store
}

func New(st *store.Store) *Handler {
	return &Handler{Store: st}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks the static admin credentials and issues a JWT.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, err)
		return
	}
	if req.Username != config.AppConfig.AdminUser || config.AppConfig.AdminPasswordHash == "" {
		utils.Fail(c, errBadCredentials)
		return
	}
	if err := bcrypt.CompareHashAndPassword(
		[]byte(config.AppConfig.AdminPasswordHash), []byte(req.Password)); err != nil {
		utils.Fail(c, errBadCredentials)
		return
	}
	token, err := utils.GenerateToken(req.Username)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, gin.H{"token": token})
}

// Stats returns the aggregate counters shown on the dashboard.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.Store.GetStats(c.Request.Context())
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, stats)
}

// RecentFiles lists the newest stored files.
func (h *Handler) RecentFiles(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	files, err := h.Store.RecentFiles(c.Request.Context(), limit)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, files)
}

// Broadcasts lists recent broadcast tasks and their outcomes.
func (h *Handler) Broadcasts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	tasks, err := task.ListBroadcastTasks(limit)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, tasks)
}
