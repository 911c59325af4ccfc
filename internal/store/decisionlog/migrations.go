package decisionlog

import "database/sql"

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS llm_decision_log (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  trace_id TEXT NOT NULL,
  ts INTEGER NOT NULL,
  decision_point TEXT NOT NULL,
  pair TEXT NOT NULL DEFAULT '',
  trade_id INTEGER,
  prompt TEXT NOT NULL DEFAULT '',
  raw_response TEXT NOT NULL DEFAULT '',
  decision TEXT NOT NULL DEFAULT '',
  confidence REAL NOT NULL DEFAULT 0,
  reasoning TEXT NOT NULL DEFAULT '',
  parameters TEXT NOT NULL DEFAULT '',
  latency_ms INTEGER NOT NULL DEFAULT 0,
  tokens_used INTEGER NOT NULL DEFAULT 0,
  prompt_tokens INTEGER NOT NULL DEFAULT 0,
  completion_tokens INTEGER NOT NULL DEFAULT 0,
  prompt_cache_hit_tokens INTEGER NOT NULL DEFAULT 0,
  prompt_cache_miss_tokens INTEGER NOT NULL DEFAULT 0,
  cost_usd REAL NOT NULL DEFAULT 0,
  error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_llm_decision_log_trace ON llm_decision_log(trace_id);
CREATE INDEX IF NOT EXISTS idx_llm_decision_log_point_ts ON llm_decision_log(decision_point, ts);
CREATE INDEX IF NOT EXISTS idx_llm_decision_log_pair_ts ON llm_decision_log(pair, ts);
`)
	return err
}
