package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pricebook/internal/exporter"
	"pricebook/internal/quote"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// QuoteImportResponse 批量报价结果
type QuoteImportResponse struct {
	*quote.Result
	Total       string `json:"total"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	Cancelled   bool   `json:"cancelled,omitempty"` // 请求中途取消，结果只含已处理的行
}

// ImportQuote 上传报价工作簿，逐行计价
// POST /api/quotes/import
func (h *Handler) ImportQuote(c *gin.Context) {
	uploadedFile, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传文件"})
		return
	}
	src, err := uploadedFile.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取上传文件失败"})
		return
	}
	defer src.Close()

	rows, err := quote.ReadWorkbookRows(src, c.PostForm("sheet"))
	if err != nil {
		respondImportError(c, err)
		return
	}

	result, err := h.runner.Run(c.Request.Context(), rows)
	cancelled := err != nil && result != nil && isCancellation(err)
	if err != nil && !cancelled {
		respondImportError(c, err)
		return
	}

	resp := QuoteImportResponse{Result: result, Total: result.Total().StringFixed(2), Cancelled: cancelled}
	base := strings.TrimSuffix(filepath.Base(uploadedFile.Filename), filepath.Ext(uploadedFile.Filename))
	if token, err := h.saveQuote(result, base+"-priced.xlsx"); err == nil {
		resp.DownloadURL = "/api/quotes/download/" + token
	}
	c.JSON(http.StatusOK, resp)
}

// ExportQuote 把报价结果导出为 xlsx
// POST /api/quotes/export
func (h *Handler) ExportQuote(c *gin.Context) {
	var result quote.Result
	if err := c.ShouldBindJSON(&result); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的报价数据: " + err.Error()})
		return
	}

	f, err := h.exporter.Export(&result, exporter.ExportOptions{Title: c.Query("title")})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "导出失败: " + err.Error()})
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", buildContentDisposition(fmt.Sprintf("quote-%s.xlsx", time.Now().Format("20060102"))))
	c.Header("Content-Type", xlsxContentType)
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

// DownloadQuote 下载计价后的报价单（一次性）
// GET /api/quotes/download/:token
func (h *Handler) DownloadQuote(c *gin.Context) {
	item, ok := h.downloads.take(c.Param("token"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "下载链接已失效"})
		return
	}
	defer os.Remove(item.filePath)

	if _, err := os.Stat(item.filePath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "导出文件不存在"})
		return
	}
	c.Header("Content-Disposition", buildContentDisposition(item.filename))
	c.Header("Content-Type", xlsxContentType)
	c.File(item.filePath)
}

func (h *Handler) saveQuote(result *quote.Result, filename string) (string, error) {
	f, err := h.exporter.Export(result, exporter.ExportOptions{})
	if err != nil {
		return "", err
	}
	defer f.Close()

	dir := h.uploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("pricebook_quote_%s.xlsx", uuid.NewString()))
	if err := f.SaveAs(path); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return h.downloads.put(path, filename, 10*time.Minute), nil
}

func respondImportError(c *gin.Context, err error) {
	var ie *quote.ImportError
	switch {
	case errors.As(err, &ie):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": string(ie.Kind)})
	case isCancellation(err):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "请求已取消"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
