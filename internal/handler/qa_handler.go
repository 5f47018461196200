// Package handler 包含 HTTP 请求处理函数。
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"hackrx-go/internal/model"
	"hackrx-go/internal/service"
	"hackrx-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// QAHandler 处理文档问答相关的请求。
type QAHandler struct {
	qaService      service.QAService
	requestTimeout time.Duration
}

// NewQAHandler 创建一个新的 QAHandler 实例，requestTimeout <= 0 表示不额外限制请求时长。
func NewQAHandler(qaService service.QAService, requestTimeout time.Duration) *QAHandler {
	return &QAHandler{qaService: qaService, requestTimeout: requestTimeout}
}

// Run 处理 POST /hackrx/run。
func (h *QAHandler) Run(c *gin.Context) {
	var req model.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[QAHandler] 请求体不合法: %v", err)
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "Invalid request",
			Message: "body must contain 'documents' (string) and 'questions' (array of strings)",
		})
		return
	}

	ctx := c.Request.Context()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	log.Infof("[QAHandler] 收到问答请求, 问题数: %d", len(req.Questions))
	answers, err := h.qaService.Run(ctx, req)
	if err != nil {
		status, kind := classify(err)
		if model.IsClientFault(err) {
			log.Warnw("[QAHandler] 文档不可用", "status", status, "error", err)
		} else {
			log.Errorw("[QAHandler] 问答请求失败", "status", status, "error", err)
		}
		c.JSON(status, model.ErrorResponse{Error: kind, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.RunResponse{Answers: answers})
}

// Health 处理 GET /，无需认证。
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "API is running",
		"message":  "HackRx Document Q&A API",
		"endpoint": "/hackrx/run",
	})
}

// classify 把业务错误映射为 HTTP 状态码与错误类别。
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Request timed out"
	case errors.Is(err, model.ErrInvalidRequest):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, model.ErrEmptyDocument):
		return http.StatusBadRequest, "Empty document"
	case errors.Is(err, model.ErrNotPDF):
		return http.StatusBadRequest, "Invalid document"
	case errors.Is(err, model.ErrInvalidDocumentRef):
		return http.StatusBadRequest, "Invalid document reference"
	case errors.Is(err, model.ErrDownload):
		return http.StatusBadGateway, "Document download failed"
	case errors.Is(err, model.ErrExtraction):
		return http.StatusBadGateway, "Text extraction failed"
	case errors.Is(err, model.ErrEmbeddingService):
		return http.StatusBadGateway, "Embedding service error"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
