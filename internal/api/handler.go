package api

import (
	"github.com/gin-gonic/gin"

	"pricebook/internal/calculator"
	"pricebook/internal/exporter"
	"pricebook/internal/importer"
	"pricebook/internal/quote"
	"pricebook/internal/store"
)

// Options Handler 依赖的可配置项
type Options struct {
	UploadDir          string
	HeaderSheet        string
	HeaderSearchWindow int
	QuoteHeaderWindow  int
	MillimetersPerInch float64
	QuoteTemplatePath  string
}

// Handler API 处理器
type Handler struct {
	store       *store.Versioned
	coordinator *importer.Coordinator
	calculator  *calculator.Calculator
	runner      *quote.Runner
	exporter    *exporter.Exporter
	downloads   *exportDownloadStore
	uploadDir   string
}

// NewHandler 创建 API 处理器
func NewHandler(st *store.Versioned, opts Options) *Handler {
	calc := calculator.NewCalculator(st, opts.MillimetersPerInch)
	return &Handler{
		store:       st,
		coordinator: importer.NewCoordinator(st).WithHeaderSheet(opts.HeaderSheet, opts.HeaderSearchWindow),
		calculator:  calc,
		runner:      quote.NewRunner(calc, opts.QuoteHeaderWindow),
		exporter:    exporter.NewExporter(opts.QuoteTemplatePath),
		downloads:   newExportDownloadStore(),
		uploadDir:   opts.UploadDir,
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 价格表导入
	router.POST("/ingest", h.Ingest)

	// 型号与计价
	router.GET("/models", h.ListModels)
	router.GET("/models/:model/options", h.GetOptions)
	router.POST("/price", h.Price)

	// 批量报价
	router.POST("/quotes/import", h.ImportQuote)
	router.POST("/quotes/export", h.ExportQuote)
	router.GET("/quotes/download/:token", h.DownloadQuote)
}
