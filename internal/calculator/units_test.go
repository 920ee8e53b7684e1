package calculator

import "testing"

func TestParseDimensionValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    float64
		unit    Unit
		hasUnit bool
		ok      bool
	}{
		{"12", 12, UnitInches, false, true},
		{`3"`, 3, UnitInches, true, true},
		{"550mm", 550, UnitMillimeters, true, true},
		{"2 ft", 2, UnitFeet, true, true},
		{"1,200 mm", 1200, UnitMillimeters, true, true},
		{"0.5m", 0.5, UnitMeters, true, true},
		{"12 parsecs", 0, "", false, false},
		{"", 0, "", false, false},
		{"abc", 0, "", false, false},
	}
	for _, tt := range tests {
		v, unit, hasUnit, ok := ParseDimensionValue(tt.in)
		if ok != tt.ok || v != tt.want || unit != tt.unit || hasUnit != tt.hasUnit {
			t.Fatalf("ParseDimensionValue(%q) = %v %q %v %v", tt.in, v, unit, hasUnit, ok)
		}
	}
}

func TestUnits_ToInches(t *testing.T) {
	t.Parallel()

	u := NewUnits(0)
	if u.MillimetersPerInch != DefaultMillimetersPerInch {
		t.Fatalf("default mm per inch = %v", u.MillimetersPerInch)
	}
	if got := u.ToInches(250, UnitMillimeters); got != 10 {
		t.Fatalf("250mm = %v in", got)
	}

	exact := NewUnits(25.4)
	if got := exact.ToInches(25.4, UnitMillimeters); got != 1 {
		t.Fatalf("25.4mm = %v in", got)
	}
	if got := exact.ToInches(1, UnitFeet); got != 12 {
		t.Fatalf("1ft = %v in", got)
	}
}

func TestParseFinish(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		want  Finish
		color string
		ok    bool
	}{
		{"", FinishNone, "", true},
		{"No Finish", FinishNone, "", true},
		{"mill", FinishNone, "", true},
		{"Anodized Aluminum", FinishAnodized, "", true},
		{"aluminium", FinishAnodized, "", true},
		{"PC", FinishPowderCoated, "", true},
		{"Powder Coated - White", FinishPowderCoated, "White", true},
		{"Special Color", FinishSpecialColor, "", true},
		{"custom", FinishSpecialColor, "", true},
		{"gold leaf", "", "", false},
	}
	for _, tt := range tests {
		got, color, ok := ParseFinish(tt.in)
		if got != tt.want || color != tt.color || ok != tt.ok {
			t.Fatalf("ParseFinish(%q) = %q %q %v", tt.in, got, color, ok)
		}
	}
}

func TestParseModelFlags(t *testing.T) {
	t.Parallel()

	if name, wd := ParseModelFlags(" VD-1 (wd) "); name != "VD-1" || !wd {
		t.Fatalf("ParseModelFlags = %q %v", name, wd)
	}
	if name, wd := ParseModelFlags("VD-1"); name != "VD-1" || wd {
		t.Fatalf("ParseModelFlags = %q %v", name, wd)
	}
}

func TestParseModelCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want ModelCode
	}{
		{"AG-1", ModelCode{Model: "AG-1"}},
		{"AG-1(WD)", ModelCode{Model: "AG-1", WithDamper: true}},
		{"AG-1 (ins)", ModelCode{Model: "AG-1", Insulated: true}},
		{"AG-1(WD)(INS)+F.Nylon", ModelCode{Model: "AG-1", WithDamper: true, Insulated: true, Filter: "Nylon"}},
		{"AG-1 (INS) (WD) +f. Carbon ", ModelCode{Model: "AG-1", WithDamper: true, Insulated: true, Filter: "Carbon"}},
	}
	for _, tt := range tests {
		if got := ParseModelCode(tt.in); got != tt.want {
			t.Fatalf("ParseModelCode(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
	if s := ParseModelCode("AG-1 (INS) (WD) +F.Nylon").String(); s != "AG-1(WD)(INS)+F.Nylon" {
		t.Fatalf("String = %q", s)
	}
}
