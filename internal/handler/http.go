package handler

import (
	"context"
	"errors"
	"net/http"

	"gamebook-server/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ActionService - операции action-протокола.
type ActionService interface {
	Describe(ctx context.Context, account string) (model.ActionGetResponse, error)
	Choose(ctx context.Context, account, scene, choice string) (model.ActionPostResponse, error)
}

// ActionHandler обрабатывает HTTP запросы action-протокола.
type ActionHandler struct {
	service ActionService
	logger  *zap.Logger
}

func NewActionHandler(service ActionService, logger *zap.Logger) *ActionHandler {
	return &ActionHandler{
		service: service,
		logger:  logger.Named("ActionHandler"),
	}
}

// RegisterRoutes регистрирует маршруты. postMiddleware применяется только к POST /post_action.
func (h *ActionHandler) RegisterRoutes(r gin.IRouter, postMiddleware ...gin.HandlerFunc) {
	r.GET("/get_action", h.getAction)
	r.OPTIONS("/get_action", preflight)

	r.OPTIONS("/post_action", preflight)
	r.POST("/post_action", append(postMiddleware, h.postAction)...)

	r.GET("/actions.json", h.actionsManifest)
	r.OPTIONS("/actions.json", preflight)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func preflight(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (h *ActionHandler) getAction(c *gin.Context) {
	resp, err := h.service.Describe(c.Request.Context(), c.Query("account"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ActionHandler) postAction(c *gin.Context) {
	var req model.ActionPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid post_action body", zap.Error(err))
		h.handleServiceError(c, model.ErrInvalidAccount)
		return
	}

	resp, err := h.service.Choose(c.Request.Context(), req.Account, c.Query("scene"), c.Query("choice"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ActionHandler) actionsManifest(c *gin.Context) {
	c.JSON(http.StatusOK, model.ActionsManifest{
		Rules: []model.ActionsRule{{PathPattern: "/get_action", APIPath: "/get_action"}},
	})
}

func (h *ActionHandler) handleServiceError(c *gin.Context, err error) {
	var status int
	var body model.ActionError

	switch {
	case errors.Is(err, model.ErrInvalidAccount):
		status = http.StatusBadRequest
		body = model.ActionError{Message: "Invalid account", Error: err.Error()}
	case errors.Is(err, model.ErrUnknownChoice):
		status = http.StatusBadRequest
		body = model.ActionError{Message: "Unknown choice", Error: err.Error()}
	case errors.Is(err, model.ErrUnknownScene):
		status = http.StatusBadRequest
		body = model.ActionError{Message: "Unknown scene", Error: err.Error()}
	default:
		status = http.StatusInternalServerError
		body = model.ActionError{Message: "Internal server error", Error: "Internal server error"}
		_ = c.Error(err)
	}
	c.JSON(status, body)
}
