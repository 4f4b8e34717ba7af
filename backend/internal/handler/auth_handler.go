package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	response "sphere-game-data/backend/internal/infra/common"
	appLogger "sphere-game-data/backend/internal/infra/logger"
	"sphere-game-data/backend/internal/infra/validation"
	"sphere-game-data/backend/internal/middleware"
	"sphere-game-data/backend/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler 负责对接 Gin，处理登录与登出请求。
type AuthHandler struct {
	service *auth.Service
	logger  *zap.SugaredLogger
}

// NewAuthHandler 构造鉴权 handler，注入业务层服务做实际处理。
func NewAuthHandler(service *auth.Service) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  appLogger.S().With("component", "auth.handler"),
	}
}

// jsonValueKinds 把 encoding/json 的类型名映射为错误文案里使用的名称。
var jsonValueKinds = map[string]string{
	"array":  "list",
	"string": "str",
	"number": "int",
	"bool":   "bool",
}

// Login 校验凭证并返回令牌；同一用户重复登录拿到同一个令牌。
func (h *AuthHandler) Login(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.logger.Errorw("read login body failed", "error", err, "client_ip", c.ClientIP())
		response.Internal(c, err)
		return
	}

	var params auth.LoginParams
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &params); err != nil {
			h.failDecode(c, err)
			return
		}
	}

	session, err := h.service.Login(c.Request.Context(), params)
	if err != nil {
		if verr, ok := validation.As(err); ok {
			response.Fail(c, http.StatusBadRequest, verr.Fields)
			return
		}
		if errors.Is(err, auth.ErrInvalidCredentials) {
			response.Fail(c, http.StatusBadRequest, gin.H{"error": "Invalid credentials"})
			return
		}
		h.logger.Errorw("login failed", "error", err, "client_ip", c.ClientIP())
		response.Internal(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   session.Token,
	})
}

// Logout 吊销当前调用方的令牌。
func (h *AuthHandler) Logout(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if err := h.service.Logout(c.Request.Context(), identity); err != nil {
		if errors.Is(err, auth.ErrNotAuthenticated) {
			response.Detail(c, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		h.logger.Errorw("logout failed", "error", err, "user_id", identity.UserID, "client_ip", c.ClientIP())
		response.Internal(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// failDecode 区分字段类型错误、非对象请求体与语法错误。
func (h *AuthHandler) failDecode(c *gin.Context, err error) {
	if fields, ok := validation.FromJSONError(err); ok {
		response.Fail(c, http.StatusBadRequest, fields)
		return
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		kind, ok := jsonValueKinds[typeErr.Value]
		if !ok {
			kind = typeErr.Value
		}
		response.Fail(c, http.StatusBadRequest, validation.FieldErrors{
			validation.NonFieldErrors: {fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", kind)},
		})
		return
	}

	response.Detail(c, http.StatusBadRequest, "JSON parse error - "+err.Error())
}
