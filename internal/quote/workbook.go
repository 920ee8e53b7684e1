package quote

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ReadWorkbookRows 读取报价工作簿的一个 Sheet，sheet 为空时读取活动 Sheet
func ReadWorkbookRows(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ImportError{Kind: ImportWorkbook, Err: fmt.Errorf("failed to open workbook: %w", err)}
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &ImportError{Kind: ImportWorkbook, Err: fmt.Errorf("failed to read sheet %q: %w", sheet, err)}
	}
	return rows, nil
}
