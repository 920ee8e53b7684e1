package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pricebook/internal/store"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Initialized    bool   `json:"initialized"` // 是否已导入价格表
	Tables         int    `json:"tables"`
	Products       int    `json:"products"`
	Cells          int    `json:"cells"`
	OtherCells     int    `json:"otherCells"`
	LastImportFile string `json:"lastImportFile,omitempty"`
	LastImportTime string `json:"lastImportTime,omitempty"`
	LastRunID      string `json:"lastRunId,omitempty"`
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	var resp StatusResponse
	err := h.store.View(func(s *store.Store) error {
		stats, err := s.Stats()
		if err != nil {
			return err
		}
		resp.Tables = stats.Tables
		resp.Products = stats.Products
		resp.Cells = stats.Cells
		resp.OtherCells = stats.OtherCells

		run, err := s.LastRun()
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		resp.LastImportFile = run.Filename
		resp.LastImportTime = run.CompletedAt.Format(time.RFC3339)
		resp.LastRunID = run.RunID
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取价格库状态失败: " + err.Error()})
		return
	}

	resp.Initialized = resp.Products > 0
	c.JSON(http.StatusOK, resp)
}
