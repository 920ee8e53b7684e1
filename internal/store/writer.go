package store

import (
	"database/sql"
	"fmt"

	"pricebook/internal/model"
)

// Writer 构建新版本价格库时使用的写入器，所有写入在同一事务内
type Writer struct {
	tx *sql.Tx
}

// WriteCatalog 写入完整目录
func (w *Writer) WriteCatalog(c *model.Catalog) error {
	for _, t := range c.Tables {
		if err := w.InsertTable(t.Table); err != nil {
			return err
		}
		if err := w.BatchInsertCells(t.Cells); err != nil {
			return err
		}
		if err := w.BatchInsertMultipliers(t.Multipliers); err != nil {
			return err
		}
		if err := w.BatchInsertOtherPrices(t.Other); err != nil {
			return err
		}
	}
	return w.BatchInsertProducts(c.Products)
}

// InsertTable 写入价格表
func (w *Writer) InsertTable(t model.PriceTable) error {
	kind := t.Kind
	if kind == "" {
		kind = model.TableKindStandard
	}
	_, err := w.tx.Exec(`
		INSERT INTO price_tables (
			table_id, sheet_name, kind, label, base_modifier, wd_expression,
			anodized, powder_coated, no_finish, special_color
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.TableID, t.SheetName, string(kind), t.Label, t.BaseModifier, t.WDExpression,
		t.Anodized, t.PowderCoated, t.NoFinish, t.SpecialColor)
	if err != nil {
		return fmt.Errorf("failed to insert price table %d: %w", t.TableID, err)
	}
	return nil
}

// BatchInsertProducts 批量写入型号
func (w *Writer) BatchInsertProducts(products []model.Product) error {
	if len(products) == 0 {
		return nil
	}

	stmt, err := w.tx.Prepare(`INSERT INTO products (table_id, model, sheet_name) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range products {
		if _, err := stmt.Exec(p.TableID, p.Model, p.SheetName); err != nil {
			return fmt.Errorf("failed to insert product %s: %w", p.Model, err)
		}
	}
	return nil
}

// BatchInsertCells 批量写入尺寸单元格
func (w *Writer) BatchInsertCells(cells []model.PriceCell) error {
	if len(cells) == 0 {
		return nil
	}

	stmt, err := w.tx.Prepare(`
		INSERT INTO prices (table_id, width, height, normal_price, price_with_damper)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range cells {
		if _, err := stmt.Exec(c.TableID, c.Width, c.Height, c.NormalPrice, nullFloat(c.PriceWithDamper)); err != nil {
			return fmt.Errorf("failed to insert price %d/%vx%v: %w", c.TableID, c.Width, c.Height, err)
		}
	}
	return nil
}

// BatchInsertMultipliers 按方向写入 row_multipliers / column_multipliers
func (w *Writer) BatchInsertMultipliers(multipliers []model.Multiplier) error {
	if len(multipliers) == 0 {
		return nil
	}

	rowStmt, err := w.tx.Prepare(`INSERT INTO row_multipliers (table_id, width, multiplier, applies_to) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer rowStmt.Close()

	colStmt, err := w.tx.Prepare(`INSERT INTO column_multipliers (table_id, height, multiplier, applies_to) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer colStmt.Close()

	for _, m := range multipliers {
		stmt := rowStmt
		if m.Axis == model.AxisColumn {
			stmt = colStmt
		}
		if _, err := stmt.Exec(m.TableID, m.Dimension, m.Multiplier, string(m.AppliesTo)); err != nil {
			return fmt.Errorf("failed to insert %s multiplier %d/%v: %w", m.Axis, m.TableID, m.Dimension, err)
		}
	}
	return nil
}

// BatchInsertOtherPrices 批量写入 Other 表单元格
func (w *Writer) BatchInsertOtherPrices(prices []model.OtherPrice) error {
	if len(prices) == 0 {
		return nil
	}

	stmt, err := w.tx.Prepare(`
		INSERT INTO other_prices (table_id, row_label, column_label, size, normal_price, price_with_damper)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range prices {
		if _, err := stmt.Exec(p.TableID, p.RowLabel, p.ColumnLabel, nullFloat(p.Size), p.NormalPrice, nullFloat(p.PriceWithDamper)); err != nil {
			return fmt.Errorf("failed to insert other price %d/%s/%s: %w", p.TableID, p.RowLabel, p.ColumnLabel, err)
		}
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return model.Float64Ptr(v.Float64)
}
