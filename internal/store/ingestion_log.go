package store

import (
	"database/sql"
	"fmt"
	"time"
)

// IngestionRun 生成当前价格库的导入记录
type IngestionRun struct {
	RunID       string    `json:"runId"`
	Filename    string    `json:"filename"`
	FileSize    int64     `json:"fileSize"`
	FileHash    string    `json:"fileHash"`
	Tables      int       `json:"tables"`
	Products    int       `json:"products"`
	Cells       int       `json:"cells"`
	Multipliers int       `json:"multipliers"`
	OtherCells  int       `json:"otherCells"`
	Warnings    int       `json:"warnings"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
}

// RecordRun 在新版本中记录本次导入
func (w *Writer) RecordRun(run IngestionRun) error {
	_, err := w.tx.Exec(`
		INSERT INTO ingestion_runs (
			run_id, filename, file_size, file_hash,
			tables, products, cells, multipliers, other_cells, warnings,
			started_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.RunID, run.Filename, run.FileSize, run.FileHash,
		run.Tables, run.Products, run.Cells, run.Multipliers, run.OtherCells, run.Warnings,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.CompletedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record ingestion run: %w", err)
	}
	return nil
}

// LastRun 返回生成当前价格库的导入记录；空库返回 ErrNotFound
func (s *Store) LastRun() (*IngestionRun, error) {
	var (
		run                  IngestionRun
		startedAt, completed string
	)
	err := s.db.QueryRow(`
		SELECT run_id, filename, file_size, file_hash,
			tables, products, cells, multipliers, other_cells, warnings,
			started_at, completed_at
		FROM ingestion_runs ORDER BY completed_at DESC LIMIT 1
	`).Scan(&run.RunID, &run.Filename, &run.FileSize, &run.FileHash,
		&run.Tables, &run.Products, &run.Cells, &run.Multipliers, &run.OtherCells, &run.Warnings,
		&startedAt, &completed)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query ingestion run: %w", err)
	}
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	run.CompletedAt, _ = time.Parse(time.RFC3339Nano, completed)
	return &run, nil
}
