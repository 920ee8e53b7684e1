package exporter

import (
	"testing"

	"github.com/xuri/excelize/v2"

	"pricebook/internal/calculator"
	"pricebook/internal/quote"
)

func sampleResult() *quote.Result {
	return &quote.Result{
		Entries: []quote.Entry{
			{Row: 2, Kind: quote.RowTitle, Title: "Supply grilles"},
			{
				Row:  3,
				Kind: quote.RowItem,
				Item: &quote.ItemRequest{Model: "AG-1", Detail: "lobby"},
				Breakdown: &calculator.PriceBreakdown{
					Model:           "AG-1",
					RequestedWidth:  24,
					RequestedHeight: 36,
					Finish:          calculator.FinishAnodized,
					UnitPrice:       144,
					Quantity:        2,
					DiscountPct:     10,
					Final:           259.2,
				},
			},
			{Row: 4, Kind: quote.RowTitle},
			{
				Row:   5,
				Kind:  quote.RowWarning,
				Item:  &quote.ItemRequest{Model: "UNKNOWN-X"},
				Error: &quote.ImportRowError{Row: 5, Kind: quote.RowProductNotFound, Model: "UNKNOWN-X", Message: "model is not in the price list"},
			},
			{
				Row:  6,
				Kind: quote.RowItem,
				Item: &quote.ItemRequest{Model: "RD-1"},
				Breakdown: &calculator.PriceBreakdown{
					Model:          "RD-1",
					RequestedWidth: 6.5,
					WithDamper:     true,
					Finish:         calculator.FinishPowderCoated,
					FinishColor:    "RAL 9010",
					UnitPrice:      10.333,
					Quantity:       1,
					Final:          10.333,
				},
			},
		},
		Priced: 2,
	}
}

func TestExport_WritesQuoteSheet(t *testing.T) {
	t.Parallel()

	var events []ProgressEvent
	f, err := NewExporter("").Export(sampleResult(), ExportOptions{
		Progress: func(e ProgressEvent) { events = append(events, e) },
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })

	if list := f.GetSheetList(); len(list) != 1 || list[0] != DefaultSheet {
		t.Fatalf("sheets = %v", list)
	}

	cases := map[string]string{
		"A1": "Quotation",
		"A2": "Model",
		"A3": "Supply grilles",
		"A4": "AG-1",
		"B4": "lobby",
		"C4": `24" x 36"`,
		"D4": "Anodized Aluminum",
		"E4": "2",
		"A5": "",
		"A6": "UNKNOWN-X",
		"I6": "model is not in the price list",
		"A7": "RD-1 (WD)",
		"C7": `6.5"`,
		"D7": "Powder Coated - RAL 9010",
		"G8": "Total",
		"F4": "144",
		"H4": "259.2",
		"H7": "10.33",
		"H8": "269.53",
	}
	for cell, want := range cases {
		got, err := f.GetCellValue(DefaultSheet, cell, excelize.Options{RawCellValue: true})
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", cell, err)
		}
		if got != want {
			t.Fatalf("%s = %q, want %q", cell, got, want)
		}
	}

	if len(events) < 2 || events[0].Percent != 0 || events[len(events)-1].Percent != 100 {
		t.Fatalf("progress events = %+v", events)
	}
}
