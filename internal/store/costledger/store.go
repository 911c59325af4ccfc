// Package costledger 记录每次成功 provider 调用的用量与成本，
// 供预算监控与指标导出聚合。
package costledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sibyl/internal/llm"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// UsageModel maps to 'llm_usage_ledger' table.
type UsageModel struct {
	ID                  int64          `gorm:"column:id;primaryKey"`
	TraceID             string         `gorm:"column:trace_id;index"`
	Provider            string         `gorm:"column:provider"`
	Point               string         `gorm:"column:decision_point;index"`
	Pair                string         `gorm:"column:pair"`
	PromptTokens        int            `gorm:"column:prompt_tokens"`
	CompletionTokens    int            `gorm:"column:completion_tokens"`
	TotalTokens         int            `gorm:"column:total_tokens"`
	CacheReadTokens     int            `gorm:"column:cache_read_tokens"`
	CacheCreationTokens int            `gorm:"column:cache_creation_tokens"`
	CostUSD             string         `gorm:"column:cost_usd"` // decimal 字符串，避免浮点漂移
	Detail              datatypes.JSON `gorm:"column:detail"`
	Timestamp           int64          `gorm:"column:timestamp;index"`
}

func (UsageModel) TableName() string { return "llm_usage_ledger" }

// Totals 台账聚合结果。
type Totals struct {
	Calls        int64
	TotalTokens  int64
	TotalCostUSD float64
	ByPoint      map[string]int64
}

// Store implements usage/cost persistence using Gorm + SQLite.
type Store struct {
	db *gorm.DB
}

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("cost ledger: 路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&UsageModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordUsage 实现 llm.CostSink。
func (s *Store) RecordUsage(ctx context.Context, rec llm.UsageRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("cost ledger 未初始化")
	}
	detail, _ := json.Marshal(map[string]any{
		"cache_read_tokens":     rec.Usage.CacheReadTokens,
		"cache_creation_tokens": rec.Usage.CacheCreationTokens,
	})
	row := UsageModel{
		TraceID:             rec.TraceID,
		Provider:            rec.Provider,
		Point:               string(rec.Point),
		Pair:                rec.Pair,
		PromptTokens:        rec.Usage.PromptTokens,
		CompletionTokens:    rec.Usage.CompletionTokens,
		TotalTokens:         rec.Usage.TotalTokens,
		CacheReadTokens:     rec.Usage.CacheReadTokens,
		CacheCreationTokens: rec.Usage.CacheCreationTokens,
		CostUSD:             decimal.NewFromFloat(rec.Usage.CostUSD).String(),
		Detail:              datatypes.JSON(detail),
		Timestamp:           rec.Timestamp.UnixMilli(),
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// Totals 聚合全部台账（指标导出用）。
func (s *Store) Totals(ctx context.Context) (Totals, error) {
	out := Totals{ByPoint: make(map[string]int64)}
	if s == nil || s.db == nil {
		return out, fmt.Errorf("cost ledger 未初始化")
	}
	var rows []UsageModel
	if err := s.db.WithContext(ctx).
		Select("decision_point", "total_tokens", "cost_usd").
		Find(&rows).Error; err != nil {
		return out, err
	}
	cost := decimal.Zero
	for _, row := range rows {
		out.Calls++
		out.TotalTokens += int64(row.TotalTokens)
		out.ByPoint[row.Point]++
		if d, err := decimal.NewFromString(row.CostUSD); err == nil {
			cost = cost.Add(d)
		}
	}
	out.TotalCostUSD, _ = cost.Float64()
	return out, nil
}
