package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"pricebook/internal/equation"
	"pricebook/internal/observability"
	"pricebook/internal/parser"
	"pricebook/internal/store"
)

// Coordinator 导入协调器：读取价格表工作簿，构建新版本价格库并原子替换
type Coordinator struct {
	store       *store.Versioned
	headerSheet string
	window      int
}

// NewCoordinator 创建导入协调器
func NewCoordinator(st *store.Versioned) *Coordinator {
	return &Coordinator{
		store:       st,
		headerSheet: "Header",
		window:      parser.DefaultHeaderSearchWindow,
	}
}

// WithHeaderSheet 设置默认 Header 表名称与表头搜索范围
func (c *Coordinator) WithHeaderSheet(name string, window int) *Coordinator {
	if name != "" {
		c.headerSheet = name
	}
	if window > 0 {
		c.window = window
	}
	return c
}

// ingestContext 单次导入的上下文
type ingestContext struct {
	opts       IngestOptions
	file       *excelize.File
	recognizer *parser.SheetRecognizer
	startTime  time.Time
	report     *IngestionReport
	progress   chan ProgressEvent
}

// Ingest 执行一次导入并返回报告
func (c *Coordinator) Ingest(ctx context.Context, opts IngestOptions) (*IngestionReport, error) {
	return c.run(ctx, opts, nil)
}

// Import 执行导入，返回进度通道。最后一个事件为 done（Data 为报告）或 error。
// 中间进度事件在通道满时丢弃，done/error 一直等到被读取或 ctx 结束。
func (c *Coordinator) Import(ctx context.Context, opts IngestOptions) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		report, err := c.run(ctx, opts, progressChan)
		if err != nil {
			c.sendFinal(ctx, progressChan, ProgressEvent{
				Type:      "error",
				Message:   fmt.Sprintf("导入失败: %v", err),
				Data:      errorData(err),
				Timestamp: time.Now(),
			})
			return
		}
		c.sendFinal(ctx, progressChan, ProgressEvent{
			Type:      "done",
			Message:   fmt.Sprintf("导入完成: %d 张表, %d 条警告", report.TablesWritten, len(report.Warnings)),
			Data:      report,
			Timestamp: time.Now(),
		})
	}()

	return progressChan
}

func (c *Coordinator) run(ctx context.Context, opts IngestOptions, progress chan ProgressEvent) (*IngestionReport, error) {
	report, err := c.doImport(ctx, opts, progress)
	if err != nil {
		observability.IngestionsTotal.WithLabelValues("failed").Inc()
		log.Printf("导入失败 %s: %v", opts.FilePath, err)
		return nil, err
	}
	observability.IngestionsTotal.WithLabelValues("success").Inc()
	observability.IngestedCellsTotal.Add(float64(report.CellsWritten + report.OtherCellsWritten))
	log.Printf("导入完成 %s: %d 张表, %d 个型号, %d 个单元格, %d 条警告, 耗时 %v",
		report.Filename, report.TablesWritten, report.ProductsWritten,
		report.CellsWritten+report.OtherCellsWritten, len(report.Warnings), report.Duration)
	return report, nil
}

// doImport 执行导入逻辑
func (c *Coordinator) doImport(ctx context.Context, opts IngestOptions, progress chan ProgressEvent) (*IngestionReport, error) {
	if opts.HeaderSheet == "" {
		opts.HeaderSheet = c.headerSheet
	}
	if opts.HeaderSearchWindow <= 0 {
		opts.HeaderSearchWindow = c.window
	}
	if opts.Filename == "" {
		opts.Filename = filepath.Base(opts.FilePath)
	}

	ic := &ingestContext{
		opts:       opts,
		recognizer: parser.NewSheetRecognizer(opts.HeaderSheet),
		startTime:  time.Now(),
		progress:   progress,
		report: &IngestionReport{
			RunID:    uuid.NewString(),
			Filename: opts.Filename,
			Sheets:   []SheetResult{},
		},
	}

	c.sendProgress(progress, ProgressEvent{
		Type:    "start",
		Message: "开始导入价格表",
		Data: map[string]string{
			"filename": ic.report.Filename,
			"runId":    ic.report.RunID,
		},
		Timestamp: time.Now(),
	})

	hash, size, err := fileDigest(opts.FilePath)
	if err != nil {
		return nil, &IngestionError{Kind: ErrorWorkbook, Err: err}
	}
	ic.report.FileHash = hash

	file, err := excelize.OpenFile(opts.FilePath)
	if err != nil {
		return nil, &IngestionError{Kind: ErrorWorkbook, Err: fmt.Errorf("failed to open workbook: %w", err)}
	}
	defer file.Close()
	ic.file = file

	entries, err := c.readHeader(ic)
	if err != nil {
		return nil, err
	}

	// 先解析所有引用的 Sheet，缺失任何一个都不写库
	sheetList := file.GetSheetList()
	var order []string
	bySheet := make(map[string][]parser.HeaderEntry)
	for i := range entries {
		resolved, ok := parser.ResolveSheet(sheetList, entries[i].Table.SheetName)
		if !ok {
			return nil, &IngestionError{
				Kind:  ErrorSheetMissing,
				Sheet: entries[i].Table.SheetName,
				Err:   fmt.Errorf("sheet referenced by header row %d does not exist", entries[i].Row),
			}
		}
		entries[i].Table.SheetName = resolved
		if _, ok := bySheet[resolved]; !ok {
			order = append(order, resolved)
		}
		bySheet[resolved] = append(bySheet[resolved], entries[i])
	}

	builder := newCatalogBuilder(entries)
	builder.warn(ic.report.Warnings...)
	builder.warn(validateExpressions(opts.HeaderSheet, entries)...)

	for _, sheetName := range order {
		if err := ctx.Err(); err != nil {
			return nil, &IngestionError{Kind: ErrorWorkbook, Err: err}
		}
		if err := c.processSheet(ic, builder, sheetName, bySheet[sheetName]); err != nil {
			return nil, err
		}
	}

	catalog := &builder.catalog
	completed := time.Now()
	run := store.IngestionRun{
		RunID:       ic.report.RunID,
		Filename:    ic.report.Filename,
		FileSize:    size,
		FileHash:    hash,
		Tables:      len(catalog.Tables),
		Products:    len(catalog.Products),
		Warnings:    len(builder.warnings),
		StartedAt:   ic.startTime,
		CompletedAt: completed,
	}
	for _, t := range catalog.Tables {
		run.Cells += len(t.Cells)
		run.Multipliers += len(t.Multipliers)
		run.OtherCells += len(t.Other)
	}

	err = c.store.Replace(ctx, func(w *store.Writer) error {
		if err := w.WriteCatalog(catalog); err != nil {
			return err
		}
		return w.RecordRun(run)
	})
	if err != nil {
		return nil, &IngestionError{Kind: ErrorStore, Err: err}
	}

	ic.report.TablesWritten = run.Tables
	ic.report.ProductsWritten = run.Products
	ic.report.CellsWritten = run.Cells
	ic.report.MultipliersWritten = run.Multipliers
	ic.report.OtherCellsWritten = run.OtherCells
	ic.report.Warnings = builder.warnings
	ic.report.Duration = time.Since(ic.startTime)
	return ic.report, nil
}

// readHeader 定位并解析 Header 表
func (c *Coordinator) readHeader(ic *ingestContext) ([]parser.HeaderEntry, error) {
	headerName, ok := ic.recognizer.FindHeaderSheet(ic.file.GetSheetList())
	if !ok {
		return nil, &IngestionError{
			Kind:  ErrorHeaderMissing,
			Sheet: ic.opts.HeaderSheet,
			Err:   errors.New("header sheet not found"),
		}
	}

	grid, err := parser.LoadGrid(ic.file, headerName)
	if err != nil {
		return nil, &IngestionError{Kind: ErrorWorkbook, Sheet: headerName, Err: err}
	}
	entries, warnings, err := parser.ReadHeaderSheet(grid, ic.opts.HeaderSearchWindow)
	if err != nil {
		return nil, &IngestionError{Kind: ErrorHeaderInvalid, Sheet: headerName, Err: err}
	}
	ic.report.Warnings = append(ic.report.Warnings, warnings...)

	c.sendProgress(ic.progress, ProgressEvent{
		Type:    "info",
		Message: fmt.Sprintf("Header 表声明了 %d 张价格表", len(entries)),
		Data: map[string]interface{}{
			"header_sheet": headerName,
			"entries":      len(entries),
		},
		Timestamp: time.Now(),
	})
	return entries, nil
}

// processSheet 处理单个价格 Sheet
func (c *Coordinator) processSheet(ic *ingestContext, builder *catalogBuilder, sheetName string, entries []parser.HeaderEntry) error {
	sheetStartTime := time.Now()

	c.sendProgress(ic.progress, ProgressEvent{
		Type:    "sheet_start",
		Message: fmt.Sprintf("正在解析 Sheet: %s", sheetName),
		Data: map[string]string{
			"sheet_name": sheetName,
		},
		Timestamp: time.Now(),
	})

	grid, err := parser.LoadGrid(ic.file, sheetName)
	if err != nil {
		return &IngestionError{Kind: ErrorWorkbook, Sheet: sheetName, Err: err}
	}

	result := builder.addSheet(grid, entries)
	result.SheetType = ic.recognizer.Recognize(grid).SheetType
	result.Duration = time.Since(sheetStartTime)
	ic.report.TablesDetected += result.TablesDetected
	ic.report.Sheets = append(ic.report.Sheets, result)

	c.sendProgress(ic.progress, ProgressEvent{
		Type:      "sheet_done",
		Message:   fmt.Sprintf("Sheet \"%s\" 解析完成: %d 张表, %d 个单元格, %d 条警告", sheetName, result.TablesBound, result.Cells, result.Warnings),
		Data:      result,
		Timestamp: time.Now(),
	})
	return nil
}

// validateExpressions 编译 Header 中的表达式，非法表达式只警告，计价时再报错
func validateExpressions(headerSheet string, entries []parser.HeaderEntry) []parser.DetectionWarning {
	var warnings []parser.DetectionWarning
	for _, e := range entries {
		exprs := []struct {
			name string
			src  string
		}{
			{"base modifier", e.Table.BaseModifier},
			{"wd expression", e.Table.WDExpression},
		}
		for _, x := range exprs {
			if _, err := equation.Compile(x.src); err != nil {
				warnings = append(warnings, parser.DetectionWarning{
					Kind:    parser.WarnInvalidExpression,
					Sheet:   headerSheet,
					TableID: e.Table.TableID,
					Row:     e.Row,
					Message: fmt.Sprintf("invalid %s %q: %v", x.name, x.src, err),
				})
			}
		}
	}
	return warnings
}

func errorData(err error) map[string]string {
	data := map[string]string{"error": err.Error()}
	var ie *IngestionError
	if errors.As(err, &ie) {
		data["kind"] = string(ie.Kind)
		data["sheet"] = ie.Sheet
	}
	return data
}

func fileDigest(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read workbook: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// sendProgress 发送进度事件（非阻塞）
func (c *Coordinator) sendProgress(ch chan ProgressEvent, event ProgressEvent) {
	if ch == nil {
		return
	}
	select {
	case ch <- event:
	default:
		// 通道已满，丢弃事件
	}
}

// sendFinal 发送结束事件（阻塞，直到被读取或 ctx 结束）
func (c *Coordinator) sendFinal(ctx context.Context, ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	case <-ctx.Done():
		log.Printf("导入结束事件未送达: %v", ctx.Err())
	}
}
