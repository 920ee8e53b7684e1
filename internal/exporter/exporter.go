package exporter

import (
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"pricebook/internal/quote"
)

// DefaultSheet 报价单 Sheet 名称
const DefaultSheet = "Quote"

var columns = []string{"Model", "Detail", "Size", "Finish", "Qty", "Unit Price", "Discount %", "Total", "Note"}

// Exporter 报价单导出器
//
// 配置了模板时在模板上写入（保留模板其余 Sheet 与样式），否则新建工作簿。
type Exporter struct {
	templatePath string
}

// NewExporter 创建导出器
func NewExporter(templatePath string) *Exporter {
	return &Exporter{templatePath: templatePath}
}

// ExportOptions 导出选项
type ExportOptions struct {
	Title    string
	Sheet    string
	Progress func(ProgressEvent)
}

type styles struct {
	bold  int
	money int
}

// Export 导出报价单
func (e *Exporter) Export(result *quote.Result, opts ExportOptions) (*excelize.File, error) {
	if opts.Sheet == "" {
		opts.Sheet = DefaultSheet
	}
	if opts.Title == "" {
		opts.Title = "Quotation"
	}
	reportProgress(opts.Progress, 0, "准备工作簿")

	f, err := e.openWorkbook(opts.Sheet)
	if err != nil {
		return nil, err
	}
	if err := fillQuoteSheet(f, opts, result); err != nil {
		_ = f.Close()
		return nil, err
	}

	idx, err := f.GetSheetIndex(opts.Sheet)
	if err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}
	reportProgress(opts.Progress, 100, "导出完成")
	return f, nil
}

func (e *Exporter) openWorkbook(sheet string) (*excelize.File, error) {
	path := strings.TrimSpace(e.templatePath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("PRICEBOOK_QUOTE_TEMPLATE_PATH"))
	}
	if path == "" {
		f := excelize.NewFile()
		if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("创建报价单失败: %w", err)
		}
		return f, nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("打开报价模板失败: %w", err)
	}
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("创建报价 Sheet 失败: %w", err)
		}
	}
	return f, nil
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	s.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return s, fmt.Errorf("创建样式失败: %w", err)
	}
	s.money, err = f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return s, fmt.Errorf("创建样式失败: %w", err)
	}
	return s, nil
}

func fillQuoteSheet(f *excelize.File, opts ExportOptions, result *quote.Result) error {
	sheet := opts.Sheet
	st, err := newStyles(f)
	if err != nil {
		return err
	}

	if err := setCell(f, sheet, 1, 1, opts.Title, st.bold); err != nil {
		return err
	}
	for i, name := range columns {
		if err := setCell(f, sheet, i+1, 2, name, st.bold); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 18)
	_ = f.SetColWidth(sheet, "B", "B", 28)
	_ = f.SetColWidth(sheet, "I", "I", 40)

	row := 3
	total := len(result.Entries)
	for i, entry := range result.Entries {
		if err := writeEntry(f, sheet, row, entry, st); err != nil {
			return err
		}
		row++
		if total > 0 && i%50 == 0 {
			reportProgress(opts.Progress, 10+80*i/total, fmt.Sprintf("写入第 %d/%d 行", i+1, total))
		}
	}

	if err := setCell(f, sheet, 7, row, "Total", st.bold); err != nil {
		return err
	}
	return setCell(f, sheet, 8, row, result.Total().InexactFloat64(), st.money)
}

func writeEntry(f *excelize.File, sheet string, row int, entry quote.Entry, st styles) error {
	switch {
	case entry.Kind == quote.RowTitle:
		if entry.Title == "" {
			return nil
		}
		return setCell(f, sheet, 1, row, entry.Title, st.bold)

	case entry.Breakdown != nil:
		b := entry.Breakdown
		finish := string(b.Finish)
		if b.FinishColor != "" {
			finish += " - " + b.FinishColor
		}
		model := b.Model
		if b.WithDamper {
			model += " (WD)"
		}
		if b.Insulated {
			model += " (INS)"
		}
		if b.Filter != "" {
			model += " +F." + b.Filter
		}
		values := []interface{}{
			model,
			detailOf(entry.Item),
			formatSize(b.RequestedWidth, b.RequestedHeight),
			finish,
			b.Quantity,
			quote.Money(b.UnitPrice).InexactFloat64(),
			b.DiscountPct,
			quote.Money(b.Final).InexactFloat64(),
		}
		for i, v := range values {
			style := 0
			if i == 5 || i == 7 {
				style = st.money
			}
			if err := setCell(f, sheet, i+1, row, v, style); err != nil {
				return err
			}
		}
		return nil

	case entry.Error != nil:
		model := entry.Error.Model
		if entry.Item != nil {
			model = entry.Item.Model
		}
		if err := setCell(f, sheet, 1, row, model, 0); err != nil {
			return err
		}
		if err := setCell(f, sheet, 2, row, detailOf(entry.Item), 0); err != nil {
			return err
		}
		return setCell(f, sheet, 9, row, entry.Error.Message, 0)
	}
	return nil
}

func detailOf(item *quote.ItemRequest) string {
	if item == nil {
		return ""
	}
	return item.Detail
}

func formatSize(width, height float64) string {
	w := formatTrimFloat(width, 2)
	if height <= 0 {
		return w + `"`
	}
	return fmt.Sprintf(`%s" x %s"`, w, formatTrimFloat(height, 2))
}

func formatTrimFloat(v float64, digits int) string {
	s := fmt.Sprintf("%.*f", digits, v)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("写入 %s!%s 失败: %w", sheet, cell, err)
	}
	if style > 0 {
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("设置 %s!%s 样式失败: %w", sheet, cell, err)
		}
	}
	return nil
}
