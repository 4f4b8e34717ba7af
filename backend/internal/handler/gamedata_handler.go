package handler

import (
	"errors"
	"net/http"
	"strconv"

	response "sphere-game-data/backend/internal/infra/common"
	appLogger "sphere-game-data/backend/internal/infra/logger"
	"sphere-game-data/backend/internal/infra/validation"
	gamedatasvc "sphere-game-data/backend/internal/service/gamedata"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const detailNotFound = "Not found."

// GameDataHandler 提供遥测记录的 HTTP 入口，权限判定由路由上的中间件完成。
type GameDataHandler struct {
	service *gamedatasvc.Service
	logger  *zap.SugaredLogger
}

// NewGameDataHandler 构造 handler。
func NewGameDataHandler(service *gamedatasvc.Service) *GameDataHandler {
	return &GameDataHandler{
		service: service,
		logger:  appLogger.S().With("component", "gamedata.handler"),
	}
}

// Create 写入一条新记录，成功返回 201 与完整记录。
func (h *GameDataHandler) Create(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.fail(c, err, 0)
		return
	}

	entry, err := h.service.Create(c.Request.Context(), body)
	if err != nil {
		h.fail(c, err, 0)
		return
	}
	response.Created(c, entry)
}

// List 按创建时间倒序返回全部记录。
func (h *GameDataHandler) List(c *gin.Context) {
	entries, err := h.service.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, 0)
		return
	}
	response.Success(c, http.StatusOK, entries)
}

// Get 返回单条记录。
func (h *GameDataHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		response.Detail(c, http.StatusNotFound, detailNotFound)
		return
	}

	entry, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, id)
		return
	}
	response.Success(c, http.StatusOK, entry)
}

// Update 以请求体整条替换记录。
func (h *GameDataHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		response.Detail(c, http.StatusNotFound, detailNotFound)
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		h.fail(c, err, id)
		return
	}

	entry, err := h.service.Replace(c.Request.Context(), id, body)
	if err != nil {
		h.fail(c, err, id)
		return
	}
	response.Success(c, http.StatusOK, entry)
}

// Delete 删除记录，成功返回 204。
func (h *GameDataHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		response.Detail(c, http.StatusNotFound, detailNotFound)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err, id)
		return
	}
	response.NoContent(c)
}

// fail 把业务错误映射为统一信封；未预期的错误带着请求上下文记录后返回 500。
func (h *GameDataHandler) fail(c *gin.Context, err error, id uint) {
	if verr, ok := validation.As(err); ok {
		response.Fail(c, http.StatusBadRequest, verr.Fields)
		return
	}
	switch {
	case errors.Is(err, gamedatasvc.ErrMalformedBody):
		response.Detail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, gamedatasvc.ErrRecordNotFound):
		response.Detail(c, http.StatusNotFound, detailNotFound)
	default:
		h.logger.Errorw("game data request failed",
			"error", err,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"client_ip", c.ClientIP(),
			"id", id,
		)
		response.Internal(c, err)
	}
}

// parseID 解析路径中的记录 id；非正整数与不存在的记录同样按 404 处理。
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
