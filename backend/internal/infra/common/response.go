package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope 是所有失败响应的统一结构。
type Envelope struct {
	Error      bool   `json:"error"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Details    any    `json:"details"`
}

// fallbackMessage 用于没有固定文案的状态码。
const fallbackMessage = "An error occurred"

var statusMessages = map[int]string{
	http.StatusBadRequest:          "Bad Request - Please check your input data",
	http.StatusUnauthorized:        "Authentication required",
	http.StatusForbidden:           "Permission denied",
	http.StatusNotFound:            "Resource not found",
	http.StatusMethodNotAllowed:    "Method not allowed",
	http.StatusTooManyRequests:     "Too many requests",
	http.StatusInternalServerError: "Internal server error occurred",
}

// MessageFor 根据状态码选择固定的提示文案。
func MessageFor(status int) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return fallbackMessage
}

// NewEnvelope 构造错误响应体。
func NewEnvelope(status int, details any) Envelope {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Envelope{
		Error:      true,
		StatusCode: status,
		Message:    MessageFor(status),
		Details:    details,
	}
}

// Success 原样输出业务数据。
func Success(c *gin.Context, status int, data any) {
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, data)
}

// Created 返回 201 Created 的成功响应。
func Created(c *gin.Context, data any) {
	Success(c, http.StatusCreated, data)
}

// NoContent 返回 204 响应且无 body。
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Fail 以统一信封返回错误。
func Fail(c *gin.Context, status int, details any) {
	envelope := NewEnvelope(status, details)
	c.JSON(envelope.StatusCode, envelope)
}

// Detail 返回只带一句说明的错误，details 形如 {"detail": "..."}。
func Detail(c *gin.Context, status int, detail string) {
	Fail(c, status, gin.H{"detail": detail})
}

// Abort 写入错误信封并中断后续 handler，供中间件使用。
func Abort(c *gin.Context, status int, details any) {
	envelope := NewEnvelope(status, details)
	c.AbortWithStatusJSON(envelope.StatusCode, envelope)
}

// AbortDetail 是 Abort 的单句说明版本。
func AbortDetail(c *gin.Context, status int, detail string) {
	Abort(c, status, gin.H{"detail": detail})
}

// Internal 把未处理的内部错误压平为 500，details 仅保留错误的字符串形式。
// 调用方负责在此之前记录完整日志。
func Internal(c *gin.Context, err error) {
	details := "Unknown error"
	if err != nil {
		details = err.Error()
	}
	Abort(c, http.StatusInternalServerError, details)
}
