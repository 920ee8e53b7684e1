package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"pricebook/internal/api"
	"pricebook/internal/config"
	"pricebook/internal/observability"
	"pricebook/internal/store"
)

// Server HTTP服务器
type Server struct {
	router *gin.Engine
	store  *store.Versioned
	api    *api.Handler
}

// NewServer 创建服务器并打开价格库
func NewServer(cfg *config.AppConfig) (*Server, error) {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	if _, err := config.EnsureDataDir(cfg); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	st, err := store.OpenVersioned(config.DBPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open price store: %w", err)
	}

	handler := api.NewHandler(st, api.Options{
		UploadDir:          config.GetDataPath(cfg, "uploads", ""),
		HeaderSheet:        cfg.Import.HeaderSheet,
		HeaderSearchWindow: cfg.Import.HeaderSearchWindow,
		QuoteHeaderWindow:  cfg.Import.QuoteHeaderWindow,
		MillimetersPerInch: cfg.Units.MillimetersPerInch,
		QuoteTemplatePath:  cfg.Excel.QuoteTemplatePath,
	})

	s := &Server{
		router: gin.Default(),
		store:  st,
		api:    handler,
	}
	s.setupRoutes()
	return s, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	api := s.router.Group("/api")
	{
		s.api.RegisterRoutes(api)
	}

	s.router.GET("/metrics", gin.WrapH(observability.Handler()))
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// Handler 返回 HTTP 处理器（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Close 关闭价格库
func (s *Server) Close() error {
	return s.store.Close()
}

// GetStore 获取存储（用于测试）
func (s *Server) GetStore() *store.Versioned {
	return s.store
}
