package parser

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestLoadGrid_MergedCells(t *testing.T) {
	t.Parallel()

	wb := excelize.NewFile()
	t.Cleanup(func() { _ = wb.Close() })

	sheet := wb.GetSheetName(wb.GetActiveSheetIndex())
	rows := [][]interface{}{
		{"", `6"`, `8"`},
		{`6"`, 50, 60},
		{"", 70, 80},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	if err := wb.MergeCell(sheet, "A2", "A3"); err != nil {
		t.Fatalf("MergeCell: %v", err)
	}

	g, err := LoadGrid(wb, sheet)
	if err != nil {
		t.Fatalf("LoadGrid: %v", err)
	}
	if g.Cell(1, 0) != `6"` || g.Cell(2, 1) != "70" {
		t.Fatalf("cells = %v", g.Rows)
	}
	if !g.IsMergedContinuation(2, 0) || g.IsMergedContinuation(1, 0) {
		t.Fatalf("merged continuation not recorded")
	}

	tables, _ := DetectTables(g)
	if len(tables) != 1 || tables[0].Layout != LayoutSeparated {
		t.Fatalf("tables = %+v", tables)
	}
	c := findCell(t, tables[0], 8, 6)
	if c.PriceWithDamper == nil || *c.PriceWithDamper != 80 {
		t.Fatalf("cell = %+v", c)
	}
}

func TestSheetRecognizer(t *testing.T) {
	t.Parallel()

	r := NewSheetRecognizer("")
	if name, ok := r.FindHeaderSheet([]string{"Grilles", " HEADER "}); !ok || name != " HEADER " {
		t.Fatalf("FindHeaderSheet = %q, %v", name, ok)
	}
	if _, ok := ResolveSheet([]string{"Grilles"}, "Dampers"); ok {
		t.Fatalf("unexpected sheet match")
	}

	std := r.Recognize(NewGrid("Grilles", [][]string{{"", `4"`, `6"`}}))
	if std.SheetType != SheetTypeStandard || std.DimensionRuns != 1 {
		t.Fatalf("Recognize = %+v", std)
	}
	other := r.Recognize(NewGrid("Round", [][]string{{"Size", "Price"}}))
	if other.SheetType != SheetTypeOther {
		t.Fatalf("Recognize = %+v", other)
	}
}
