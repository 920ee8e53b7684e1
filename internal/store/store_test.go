package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pricebook/internal/model"
)

func sampleCatalog(price float64) *model.Catalog {
	table := model.NewPriceTable(1, "Grilles")
	table.Models = []string{"AG-1", "AG-2"}
	table.BaseModifier = "TB*1.2"
	table.Anodized = 1.2

	other := model.NewPriceTable(2, "Round")
	other.Kind = model.TableKindOther
	other.Models = []string{"RD-1"}

	return &model.Catalog{
		Tables: []model.TableData{
			{
				Table: table,
				Cells: []model.PriceCell{
					{TableID: 1, Width: 24, Height: 36, NormalPrice: price, PriceWithDamper: model.Float64Ptr(price + 20)},
					{TableID: 1, Width: 12, Height: 36, NormalPrice: 80},
				},
				Multipliers: []model.Multiplier{
					{TableID: 1, Axis: model.AxisRow, Dimension: 24, Multiplier: 1.5, AppliesTo: model.AppliesToNormal},
					{TableID: 1, Axis: model.AxisColumn, Dimension: 36, Multiplier: 1.4, AppliesTo: model.AppliesToDamper},
				},
			},
			{
				Table: other,
				Other: []model.OtherPrice{
					{TableID: 2, RowLabel: `6"`, ColumnLabel: "Price", Size: model.Float64Ptr(6), NormalPrice: 10},
				},
			},
		},
		Products: []model.Product{
			{TableID: 1, Model: "AG-1", SheetName: "Grilles"},
			{TableID: 1, Model: "AG-2", SheetName: "Grilles"},
			{TableID: 2, Model: "RD-1", SheetName: "Round"},
		},
	}
}

func openVersioned(t *testing.T) (*Versioned, string) {
	t.Helper()
	dir := t.TempDir()
	v, err := OpenVersioned(filepath.Join(dir, "pricebook.db"))
	if err != nil {
		t.Fatalf("OpenVersioned: %v", err)
	}
	t.Cleanup(func() { _ = v.Close() })
	return v, dir
}

func TestVersioned_ReplaceAndRead(t *testing.T) {
	t.Parallel()

	v, _ := openVersioned(t)
	err := v.Replace(context.Background(), func(w *Writer) error {
		if err := w.WriteCatalog(sampleCatalog(100)); err != nil {
			return err
		}
		return w.RecordRun(IngestionRun{RunID: "run-1", Filename: "prices.xlsx", Cells: 2, StartedAt: time.Now(), CompletedAt: time.Now()})
	})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}

	err = v.View(func(s *Store) error {
		p, err := s.ProductByModel(" ag-2 ")
		if err != nil {
			return err
		}
		if p.TableID != 1 || p.Model != "AG-2" {
			t.Fatalf("product = %+v", p)
		}

		data, err := s.LoadTable(1)
		if err != nil {
			return err
		}
		if len(data.Table.Models) != 2 || data.Table.BaseModifier != "TB*1.2" || data.Table.Anodized != 1.2 {
			t.Fatalf("table = %+v", data.Table)
		}
		if len(data.Cells) != 2 || data.Cells[0].Width != 12 || data.Cells[0].PriceWithDamper != nil {
			t.Fatalf("cells = %+v", data.Cells)
		}
		if d := data.Cells[1].PriceWithDamper; d == nil || *d != 120 {
			t.Fatalf("damper price = %v", d)
		}
		if len(data.Multipliers) != 2 || data.Multipliers[0].Axis != model.AxisColumn || data.Multipliers[1].Axis != model.AxisRow {
			t.Fatalf("multipliers = %+v", data.Multipliers)
		}

		other, err := s.LoadTable(2)
		if err != nil {
			return err
		}
		if other.Table.Kind != model.TableKindOther || len(other.Other) != 1 || *other.Other[0].Size != 6 {
			t.Fatalf("other table = %+v", other)
		}

		if _, err := s.ProductByModel("missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		run, err := s.LastRun()
		if err != nil {
			return err
		}
		if run.RunID != "run-1" || run.Cells != 2 {
			t.Fatalf("run = %+v", run)
		}

		stats, err := s.Stats()
		if err != nil {
			return err
		}
		if stats.Tables != 2 || stats.Products != 3 || stats.Cells != 2 || stats.Multipliers != 2 || stats.OtherCells != 1 {
			t.Fatalf("stats = %+v", stats)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestVersioned_FailedBuildKeepsPreviousVersion(t *testing.T) {
	t.Parallel()

	v, dir := openVersioned(t)
	if err := v.Replace(context.Background(), func(w *Writer) error {
		return w.WriteCatalog(sampleCatalog(100))
	}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	boom := errors.New("boom")
	err := v.Replace(context.Background(), func(w *Writer) error {
		if err := w.WriteCatalog(sampleCatalog(999)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected build error, got %v", err)
	}

	// 重复单元格违反唯一约束，同样不能影响当前版本
	dup := sampleCatalog(555)
	dup.Tables[0].Cells = append(dup.Tables[0].Cells, dup.Tables[0].Cells[0])
	if err := v.Replace(context.Background(), func(w *Writer) error { return w.WriteCatalog(dup) }); err == nil {
		t.Fatalf("expected unique constraint error")
	}

	_ = v.View(func(s *Store) error {
		data, err := s.LoadTable(1)
		if err != nil {
			t.Fatalf("LoadTable: %v", err)
		}
		if data.Cells[1].NormalPrice != 100 {
			t.Fatalf("previous version lost: %+v", data.Cells)
		}
		return nil
	})

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "pricebook.db" {
		names := []string{}
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("leftover files: %v", names)
	}
}

func TestVersioned_SnapshotIsStableAcrossRebuilds(t *testing.T) {
	t.Parallel()

	v, _ := openVersioned(t)
	var snapshots []*model.Catalog
	for i := 0; i < 2; i++ {
		if err := v.Replace(context.Background(), func(w *Writer) error {
			return w.WriteCatalog(sampleCatalog(100))
		}); err != nil {
			t.Fatalf("Replace #%d: %v", i, err)
		}
		_ = v.View(func(s *Store) error {
			snap, err := s.Snapshot()
			if err != nil {
				t.Fatalf("Snapshot: %v", err)
			}
			snapshots = append(snapshots, snap)
			return nil
		})
	}

	a, b := snapshots[0], snapshots[1]
	if len(a.Tables) != 2 || len(a.Products) != 3 {
		t.Fatalf("snapshot = %+v", a)
	}
	if a.Products[0].ProductID != 0 {
		t.Fatalf("snapshot must not carry surrogate keys")
	}
	if len(a.Tables[0].Cells) != len(b.Tables[0].Cells) || a.Tables[0].Cells[1].NormalPrice != b.Tables[0].Cells[1].NormalPrice {
		t.Fatalf("snapshots differ: %+v vs %+v", a, b)
	}
}

func TestVersioned_ReopenFailureRefusesUntilRecovered(t *testing.T) {
	t.Parallel()

	v, _ := openVersioned(t)
	if err := v.Replace(context.Background(), func(w *Writer) error {
		return w.WriteCatalog(sampleCatalog(100))
	}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	diskGone := errors.New("disk gone")
	failing := true
	v.open = func(path string) (*Store, error) {
		if failing {
			return nil, diskGone
		}
		return New(path)
	}

	err := v.Replace(context.Background(), func(w *Writer) error {
		return w.WriteCatalog(sampleCatalog(200))
	})
	if !errors.Is(err, diskGone) {
		t.Fatalf("Replace err = %v, want reopen failure", err)
	}

	// 句柄未切换前读写都报错，不返回已被替换的旧版本
	if err := v.View(func(s *Store) error { return nil }); !errors.Is(err, diskGone) {
		t.Fatalf("View err = %v, want reopen failure", err)
	}
	if err := v.Replace(context.Background(), func(w *Writer) error {
		return w.WriteCatalog(sampleCatalog(300))
	}); !errors.Is(err, diskGone) {
		t.Fatalf("second Replace err = %v, want reopen failure", err)
	}

	failing = false
	data, err := v.LoadTable(1)
	if err != nil {
		t.Fatalf("LoadTable after recovery: %v", err)
	}
	if data.Cells[1].NormalPrice != 200 {
		t.Fatalf("recovered version = %+v, want the swapped-in catalog", data.Cells)
	}
}
