package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"pricebook/internal/model"
)

// Versioned 可整体替换的价格库。
//
// 每次导入都在同目录的临时文件中构建新库，提交后通过 rename 原子替换正式文件，
// 再切换当前句柄。读者通过 View 访问，永远看不到写了一半的库。
// 替换后重新打开失败时进入 stale 状态：读写都先尝试重新打开，成功前返回错误。
type Versioned struct {
	path    string
	open    func(path string) (*Store, error)
	build   sync.Mutex   // 串行化 Replace
	mu      sync.RWMutex // 保护 current 与 stale
	current *Store
	stale   error
}

const reopenAttempts = 3

var reopenBackoff = 50 * time.Millisecond

// OpenVersioned 打开正式库文件（不存在时创建空库）
func OpenVersioned(path string) (*Versioned, error) {
	st, err := New(path)
	if err != nil {
		return nil, err
	}
	return &Versioned{path: path, open: New, current: st}, nil
}

// Path 正式库文件路径
func (v *Versioned) Path() string {
	return v.path
}

// View 在读锁下访问当前版本
func (v *Versioned) View(fn func(s *Store) error) error {
	if err := v.ensureFresh(); err != nil {
		return err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.current == nil {
		return errors.New("price store is closed")
	}
	return fn(v.current)
}

// ensureFresh stale 状态下重新打开正式库文件
func (v *Versioned) ensureFresh() error {
	v.mu.RLock()
	stale := v.stale
	v.mu.RUnlock()
	if stale == nil {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stale == nil {
		return nil
	}
	if err := v.reopenLocked(); err != nil {
		return fmt.Errorf("price store is unavailable after swap: %w", err)
	}
	return nil
}

// reopenLocked 重新打开正式库文件并切换句柄，调用方持有写锁
func (v *Versioned) reopenLocked() error {
	var err error
	for attempt := 1; attempt <= reopenAttempts; attempt++ {
		var st *Store
		st, err = v.open(v.path)
		if err == nil {
			old := v.current
			v.current = st
			v.stale = nil
			if old != nil {
				if err := old.Close(); err != nil {
					log.Printf("关闭旧版本价格库失败: %v", err)
				}
			}
			return nil
		}
		log.Printf("重新打开价格库失败 (%d/%d): %v", attempt, reopenAttempts, err)
		if attempt < reopenAttempts {
			time.Sleep(reopenBackoff)
		}
	}
	v.stale = err
	return err
}

// Replace 构建新版本并原子替换；build 返回错误时当前版本保持不变
func (v *Versioned) Replace(ctx context.Context, build func(w *Writer) error) error {
	v.build.Lock()
	defer v.build.Unlock()

	if err := v.ensureFresh(); err != nil {
		return err
	}

	tmpPath := filepath.Join(filepath.Dir(v.path),
		fmt.Sprintf(".%s.%s.building", filepath.Base(v.path), uuid.NewString()))

	next, err := New(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to create building store: %w", err)
	}
	discard := func() {
		next.Close()
		os.Remove(tmpPath)
		os.Remove(tmpPath + "-journal")
	}

	tx, err := next.db.BeginTx(ctx, nil)
	if err != nil {
		discard()
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := build(&Writer{tx: tx}); err != nil {
		tx.Rollback()
		discard()
		return err
	}
	if err := tx.Commit(); err != nil {
		discard()
		return fmt.Errorf("failed to commit building store: %w", err)
	}
	if err := next.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close building store: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := os.Rename(tmpPath, v.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to swap store file: %w", err)
	}
	if err := v.reopenLocked(); err != nil {
		return fmt.Errorf("failed to reopen swapped store: %w", err)
	}
	log.Printf("价格库已替换: %s", v.path)
	return nil
}

// Close 关闭当前版本
func (v *Versioned) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current == nil {
		return nil
	}
	err := v.current.Close()
	v.current = nil
	v.stale = nil
	return err
}

// ProductByModel 在当前版本中按型号查找
func (v *Versioned) ProductByModel(name string) (*model.Product, error) {
	var p *model.Product
	err := v.View(func(s *Store) error {
		var err error
		p, err = s.ProductByModel(name)
		return err
	})
	return p, err
}

// Products 当前版本的全部型号
func (v *Versioned) Products() ([]model.Product, error) {
	var products []model.Product
	err := v.View(func(s *Store) error {
		var err error
		products, err = s.Products()
		return err
	})
	return products, err
}

// LoadTable 在当前版本中读取价格表
func (v *Versioned) LoadTable(tableID int) (*model.TableData, error) {
	var data *model.TableData
	err := v.View(func(s *Store) error {
		var err error
		data, err = s.LoadTable(tableID)
		return err
	})
	return data, err
}
