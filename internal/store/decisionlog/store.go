// Package decisionlog 持久化每次 decide() 尝试的审计记录。
package decisionlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"sibyl/internal/llm"

	_ "modernc.org/sqlite"
)

const redactedPlaceholder = "[redacted]"

// Store 管理 LLM 决策审计日志。记录只增不改，清理属外部运维职责。
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	redact bool
}

// Record 一条审计记录。包含原始提示词/响应（可按配置脱敏）、
// 解析结果、延迟与 token/成本拆分；失败时带错误信息。
type Record struct {
	ID          int64   `json:"id"`
	TraceID     string  `json:"trace_id"`
	Timestamp   int64   `json:"ts"`
	Point       string  `json:"decision_point"`
	Pair        string  `json:"pair"`
	TradeID     *int    `json:"trade_id,omitempty"`
	Prompt      string  `json:"prompt"`
	RawResponse string  `json:"raw_response"`
	Decision    string  `json:"decision"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
	Parameters  string  `json:"parameters"`
	LatencyMs   int64   `json:"latency_ms"`

	TokensUsed            int     `json:"tokens_used"`
	PromptTokens          int     `json:"prompt_tokens"`
	CompletionTokens      int     `json:"completion_tokens"`
	PromptCacheHitTokens  int     `json:"prompt_cache_hit_tokens"`
	PromptCacheMissTokens int     `json:"prompt_cache_miss_tokens"`
	CostUSD               float64 `json:"cost_usd"`

	Error string `json:"error,omitempty"`
}

// Query 审计记录筛选条件。
type Query struct {
	Point  string
	Pair   string
	Limit  int
	Offset int
}

// New 初始化 SQLite 存储。redact 开启时不落原始提示词/响应正文。
func New(path string, redact bool) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("decision log path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path, redact: redact}, nil
}

// Close 关闭底层 DB。
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// LogAttempt 实现 llm.AuditLogger。
func (s *Store) LogAttempt(ctx context.Context, rec llm.AttemptRecord) error {
	row := Record{
		TraceID:   rec.TraceID,
		Timestamp: rec.Timestamp.UnixMilli(),
		Point:     string(rec.Point),
		Pair:      rec.Pair,
		TradeID:   rec.TradeID,
		Prompt:    rec.Prompt,
		Error:     rec.Error,
	}
	row.RawResponse = rec.RawResponse
	if s.redact {
		if row.Prompt != "" {
			row.Prompt = redactedPlaceholder
		}
		if row.RawResponse != "" {
			row.RawResponse = redactedPlaceholder
		}
	}
	if resp := rec.Response; resp != nil {
		row.Decision = resp.Decision
		row.Confidence = resp.Confidence
		row.Reasoning = resp.Reasoning
		row.LatencyMs = resp.LatencyMs
		row.TokensUsed = resp.TokensUsed
		row.PromptTokens = resp.PromptTokens
		row.CompletionTokens = resp.CompletionTokens
		row.PromptCacheHitTokens = resp.PromptCacheHitTokens
		row.PromptCacheMissTokens = resp.PromptCacheMissTokens
		row.CostUSD = resp.CostUSD
		if len(resp.Parameters) > 0 {
			if b, err := json.Marshal(resp.Parameters); err == nil {
				row.Parameters = string(b)
			}
		}
	}
	return s.Append(ctx, row)
}

// Append 写入一条记录。
func (s *Store) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("decision log store 已关闭")
	}
	var tradeID sql.NullInt64
	if rec.TradeID != nil {
		tradeID = sql.NullInt64{Int64: int64(*rec.TradeID), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO llm_decision_log (
  trace_id, ts, decision_point, pair, trade_id,
  prompt, raw_response, decision, confidence, reasoning, parameters,
  latency_ms, tokens_used, prompt_tokens, completion_tokens,
  prompt_cache_hit_tokens, prompt_cache_miss_tokens, cost_usd, error
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TraceID, rec.Timestamp, rec.Point, rec.Pair, tradeID,
		rec.Prompt, rec.RawResponse, rec.Decision, rec.Confidence, rec.Reasoning, rec.Parameters,
		rec.LatencyMs, rec.TokensUsed, rec.PromptTokens, rec.CompletionTokens,
		rec.PromptCacheHitTokens, rec.PromptCacheMissTokens, rec.CostUSD, rec.Error,
	)
	return err
}

// List 按条件倒序查询记录。
func (s *Store) List(ctx context.Context, q Query) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("decision log store 已关闭")
	}
	var (
		conds []string
		args  []any
	)
	if p := strings.TrimSpace(q.Point); p != "" {
		conds = append(conds, "decision_point = ?")
		args = append(args, p)
	}
	if p := strings.TrimSpace(q.Pair); p != "" {
		conds = append(conds, "pair = ?")
		args = append(args, p)
	}
	query := "SELECT " + recordColumns + " FROM llm_decision_log"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id DESC"
	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if q.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, q.Offset)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ByTraceID 返回指定 trace 的记录。
func (s *Store) ByTraceID(ctx context.Context, traceID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("decision log store 已关闭")
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM llm_decision_log WHERE trace_id = ? ORDER BY id DESC LIMIT 1", traceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	rec, err := scanRecord(rows)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CountByPoint 按决策点统计记录数（供指标导出）。
func (s *Store) CountByPoint(ctx context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("decision log store 已关闭")
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT decision_point, COUNT(*) FROM llm_decision_log GROUP BY decision_point")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var point string
		var n int64
		if err := rows.Scan(&point, &n); err != nil {
			return nil, err
		}
		out[point] = n
	}
	return out, rows.Err()
}

// CountErrors 统计失败尝试数。
func (s *Store) CountErrors(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, fmt.Errorf("decision log store 已关闭")
	}
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM llm_decision_log WHERE error != ''").Scan(&n)
	return n, err
}

const recordColumns = `id, trace_id, ts, decision_point, pair, trade_id,
  prompt, raw_response, decision, confidence, reasoning, parameters,
  latency_ms, tokens_used, prompt_tokens, completion_tokens,
  prompt_cache_hit_tokens, prompt_cache_miss_tokens, cost_usd, error`

func scanRecord(rows *sql.Rows) (Record, error) {
	var rec Record
	var tradeID sql.NullInt64
	err := rows.Scan(
		&rec.ID, &rec.TraceID, &rec.Timestamp, &rec.Point, &rec.Pair, &tradeID,
		&rec.Prompt, &rec.RawResponse, &rec.Decision, &rec.Confidence, &rec.Reasoning, &rec.Parameters,
		&rec.LatencyMs, &rec.TokensUsed, &rec.PromptTokens, &rec.CompletionTokens,
		&rec.PromptCacheHitTokens, &rec.PromptCacheMissTokens, &rec.CostUSD, &rec.Error,
	)
	if err != nil {
		return Record{}, err
	}
	if tradeID.Valid {
		v := int(tradeID.Int64)
		rec.TradeID = &v
	}
	return rec, nil
}
