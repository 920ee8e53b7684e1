package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pricebook/internal/calculator"
	"pricebook/internal/equation"
	"pricebook/internal/store"
)

// ListModels 列出全部型号
// GET /api/models
func (h *Handler) ListModels(c *gin.Context) {
	products, err := h.calculator.Models()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取型号失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": products, "total": len(products)})
}

// GetOptions 型号可选的表面处理、阻尼与尺寸
// GET /api/models/:model/options
func (h *Handler) GetOptions(c *gin.Context) {
	opts, err := h.calculator.Options(c.Param("model"))
	if err != nil {
		respondPriceError(c, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

// Price 计算单个型号的报价
// POST /api/price
func (h *Handler) Price(c *gin.Context) {
	var req calculator.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数: " + err.Error()})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	breakdown, err := h.calculator.Price(req)
	if err != nil {
		respondPriceError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

// respondPriceError 按错误类型返回状态码
func respondPriceError(c *gin.Context, err error) {
	var (
		lookupErr *calculator.LookupError
		eqErr     *equation.EquationError
	)
	switch {
	case errors.As(err, &lookupErr) && lookupErr.Kind == calculator.LookupProductNotFound,
		errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "kind": string(calculator.LookupProductNotFound)})
	case lookupErr != nil:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "kind": string(lookupErr.Kind)})
	case errors.Is(err, calculator.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "validation"})
	case errors.As(err, &eqErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "kind": "equation"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
