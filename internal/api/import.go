package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pricebook/internal/importer"
)

// Ingest 导入价格表工作簿 (SSE 流式响应)
// POST /api/ingest
func (h *Handler) Ingest(c *gin.Context) {
	uploadedFile, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传文件"})
		return
	}

	dir := h.uploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	tempFilePath := filepath.Join(dir, fmt.Sprintf("pricebook_ingest_%s%s", uuid.NewString(), filepath.Ext(uploadedFile.Filename)))
	if err := c.SaveUploadedFile(uploadedFile, tempFilePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存文件失败"})
		return
	}
	defer os.Remove(tempFilePath)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	progressChan := h.coordinator.Import(c.Request.Context(), importer.IngestOptions{
		FilePath:    tempFilePath,
		Filename:    filepath.Base(uploadedFile.Filename),
		HeaderSheet: c.PostForm("headerSheet"),
	})

	for event := range progressChan {
		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}

		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}
