package handler

import (
	"errors"
	"net/http"
	"regexp"

	"hackrx-go/internal/model"
	"hackrx-go/internal/service"
	"hackrx-go/pkg/log"

	"github.com/gin-gonic/gin"
)

var fingerprintPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// DocumentHandler 负责已摄取文档的查询与移除。
type DocumentHandler struct {
	docService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(docService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docService: docService}
}

// GetDocument 处理 GET /hackrx/documents/:fingerprint，返回最近一次摄取记录。
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	fingerprint, ok := fingerprintParam(c)
	if !ok {
		return
	}
	rec, err := h.docService.Status(c.Request.Context(), fingerprint)
	if err != nil {
		if errors.Is(err, model.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Document not found", Message: fingerprint})
			return
		}
		log.Error("[DocumentHandler] 查询摄取记录失败", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Internal server error", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// DeleteDocument 处理 DELETE /hackrx/documents/:fingerprint。
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	fingerprint, ok := fingerprintParam(c)
	if !ok {
		return
	}
	if err := h.docService.Evict(c.Request.Context(), fingerprint); err != nil {
		log.Error("[DocumentHandler] 移除文档失败", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Eviction failed", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "evicted", "fingerprint": fingerprint})
}

func fingerprintParam(c *gin.Context) (string, bool) {
	fingerprint := c.Param("fingerprint")
	if !fingerprintPattern.MatchString(fingerprint) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: "fingerprint must be 32 lowercase hex characters"})
		return "", false
	}
	return fingerprint, true
}
