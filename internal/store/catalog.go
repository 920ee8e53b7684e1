package store

import (
	"database/sql"
	"fmt"
	"strings"

	"pricebook/internal/model"
)

// Stats 价格库统计
type Stats struct {
	Tables      int `json:"tables"`
	Products    int `json:"products"`
	Cells       int `json:"cells"`
	Multipliers int `json:"multipliers"`
	OtherCells  int `json:"otherCells"`
}

// ProductByModel 按型号查找（忽略大小写与首尾空格）
func (s *Store) ProductByModel(name string) (*model.Product, error) {
	var p model.Product
	err := s.db.QueryRow(`
		SELECT product_id, table_id, model, sheet_name
		FROM products WHERE model = ? COLLATE NOCASE
	`, strings.TrimSpace(name)).Scan(&p.ProductID, &p.TableID, &p.Model, &p.SheetName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("product %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return &p, nil
}

// Products 列出所有型号
func (s *Store) Products() ([]model.Product, error) {
	rows, err := s.db.Query(`SELECT product_id, table_id, model, sheet_name FROM products ORDER BY model`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ProductID, &p.TableID, &p.Model, &p.SheetName); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PriceTable 读取价格表定义（含型号列表）
func (s *Store) PriceTable(tableID int) (*model.PriceTable, error) {
	var (
		t    model.PriceTable
		kind string
	)
	err := s.db.QueryRow(`
		SELECT table_id, sheet_name, kind, label, base_modifier, wd_expression,
			anodized, powder_coated, no_finish, special_color
		FROM price_tables WHERE table_id = ?
	`, tableID).Scan(&t.TableID, &t.SheetName, &kind, &t.Label, &t.BaseModifier, &t.WDExpression,
		&t.Anodized, &t.PowderCoated, &t.NoFinish, &t.SpecialColor)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("price table %d: %w", tableID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query price table: %w", err)
	}
	t.Kind = model.TableKind(kind)

	rows, err := s.db.Query(`SELECT model FROM products WHERE table_id = ? ORDER BY product_id`, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to query table models: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		t.Models = append(t.Models, m)
	}
	return &t, rows.Err()
}

// LoadTable 读取价格表及其全部单元格与乘数
func (s *Store) LoadTable(tableID int) (*model.TableData, error) {
	t, err := s.PriceTable(tableID)
	if err != nil {
		return nil, err
	}
	data := &model.TableData{Table: *t}

	if data.Cells, err = s.queryCells(tableID); err != nil {
		return nil, err
	}
	if data.Multipliers, err = s.queryMultipliers(tableID); err != nil {
		return nil, err
	}
	if data.Other, err = s.queryOtherPrices(tableID); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Store) queryCells(tableID int) ([]model.PriceCell, error) {
	rows, err := s.db.Query(`
		SELECT table_id, width, height, normal_price, price_with_damper
		FROM prices WHERE table_id = ? ORDER BY width, height
	`, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var out []model.PriceCell
	for rows.Next() {
		var (
			c      model.PriceCell
			damper sql.NullFloat64
		)
		if err := rows.Scan(&c.TableID, &c.Width, &c.Height, &c.NormalPrice, &damper); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		c.PriceWithDamper = floatPtr(damper)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) queryMultipliers(tableID int) ([]model.Multiplier, error) {
	rows, err := s.db.Query(`
		SELECT 'row', width, multiplier, applies_to FROM row_multipliers WHERE table_id = ?
		UNION ALL
		SELECT 'column', height, multiplier, applies_to FROM column_multipliers WHERE table_id = ?
		ORDER BY 1, 2, 4
	`, tableID, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to query multipliers: %w", err)
	}
	defer rows.Close()

	var out []model.Multiplier
	for rows.Next() {
		var (
			m              model.Multiplier
			axis, applies string
		)
		if err := rows.Scan(&axis, &m.Dimension, &m.Multiplier, &applies); err != nil {
			return nil, fmt.Errorf("failed to scan multiplier: %w", err)
		}
		m.TableID = tableID
		m.Axis = model.Axis(axis)
		m.AppliesTo = model.AppliesTo(applies)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) queryOtherPrices(tableID int) ([]model.OtherPrice, error) {
	rows, err := s.db.Query(`
		SELECT table_id, row_label, column_label, size, normal_price, price_with_damper
		FROM other_prices WHERE table_id = ? ORDER BY other_id
	`, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to query other prices: %w", err)
	}
	defer rows.Close()

	var out []model.OtherPrice
	for rows.Next() {
		var (
			p            model.OtherPrice
			size, damper sql.NullFloat64
		)
		if err := rows.Scan(&p.TableID, &p.RowLabel, &p.ColumnLabel, &size, &p.NormalPrice, &damper); err != nil {
			return nil, fmt.Errorf("failed to scan other price: %w", err)
		}
		p.Size = floatPtr(size)
		p.PriceWithDamper = floatPtr(damper)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Snapshot 导出全部目录内容（不含代理键），用于比较两次导入结果
func (s *Store) Snapshot() (*model.Catalog, error) {
	rows, err := s.db.Query(`SELECT table_id FROM price_tables ORDER BY table_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query price tables: %w", err)
	}
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan table id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	catalog := &model.Catalog{}
	for _, id := range ids {
		data, err := s.LoadTable(id)
		if err != nil {
			return nil, err
		}
		catalog.Tables = append(catalog.Tables, *data)
	}

	products, err := s.Products()
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].ProductID = 0
	}
	catalog.Products = products
	return catalog, nil
}

// Stats 统计各表行数
func (s *Store) Stats() (*Stats, error) {
	var st Stats
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM price_tables),
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM prices),
			(SELECT COUNT(*) FROM row_multipliers) + (SELECT COUNT(*) FROM column_multipliers),
			(SELECT COUNT(*) FROM other_prices)
	`).Scan(&st.Tables, &st.Products, &st.Cells, &st.Multipliers, &st.OtherCells)
	if err != nil {
		return nil, fmt.Errorf("failed to count store rows: %w", err)
	}
	return &st, nil
}
