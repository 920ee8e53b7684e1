package parser

import "testing"

func TestHeaderFields_Match(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cell string
		want Field
	}{
		{"Table ID", FieldTableID},
		{"Sheet Name", FieldSheetName},
		{"SHEET", FieldSheetName},
		{"Models", FieldModels},
		{"Product Model", FieldModels},
		{"TB Modifier", FieldBaseModifier},
		{"Base Price Modifier", FieldBaseModifier},
		{"BP Modifier", FieldBaseModifier},
		{"Anodized", FieldAnodized},
		{"Aluminium", FieldAnodized},
		{"Powder Coated", FieldPowderCoated},
		{"Powder", FieldPowderCoated},
		{"No Finish", FieldNoFinish},
		{"Raw", FieldNoFinish},
		{"Special Color", FieldSpecialColor},
		{"WD", FieldWD},
		{"With Damper", FieldWD},
		{"WD Modifier", FieldWD},
	}
	for _, tt := range tests {
		got, ok := HeaderFields.Match(tt.cell)
		if !ok || got != tt.want {
			t.Fatalf("HeaderFields.Match(%q) = %q, %v; want %q", tt.cell, got, ok, tt.want)
		}
	}

	if _, ok := HeaderFields.Match("Remarks"); ok {
		t.Fatalf("unrelated header should not match")
	}
}

func TestQuoteFields_MapRow(t *testing.T) {
	t.Parallel()

	row := []string{"No.", "Model", "Detail", "Width (mm)", "Height (mm)", "Unit", "Qty", "Finish", "Discount %", "Unit Price", "Model"}
	got := QuoteFields.MapRow(row)

	want := map[Field]int{
		FieldModel:    1,
		FieldDetail:   2,
		FieldWidth:    3,
		FieldHeight:   4,
		FieldUnit:     5,
		FieldQuantity: 6,
		FieldFinish:   7,
		FieldDiscount: 8,
	}
	if len(got) != len(want) {
		t.Fatalf("MapRow = %v", got)
	}
	for f, idx := range want {
		if got[f] != idx {
			t.Fatalf("field %s at %d, want %d (mapping=%v)", f, got[f], idx, got)
		}
	}
}
