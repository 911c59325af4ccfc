package config

// Config 是 Sibyl 的主配置载体。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Provider ProviderConfig `mapstructure:"provider"`
	Prompt   PromptConfig   `mapstructure:"prompt"`
	Store    StoreConfig    `mapstructure:"store"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
	LLMLog   string `mapstructure:"llm_log_path"`
	LLMDump  bool   `mapstructure:"llm_dump_payload"`
}

// LLMConfig 决策引擎设置。
// Temperature/ConfidenceThreshold 用指针区分"未配置"与显式 0：
// 0 都是合法取值（贪婪采样、阈值全放行），不能被默认值吞掉。
type LLMConfig struct {
	Temperature *float64               `mapstructure:"temperature"`
	SchemasPath string                 `mapstructure:"schemas_path"`
	StrictParse bool                   `mapstructure:"strict_parse"`
	Points      map[string]PointConfig `mapstructure:"points"`
}

// PointConfig 单个决策点的配置。
type PointConfig struct {
	Enabled             *bool    `mapstructure:"enabled"`
	TTLSeconds          int      `mapstructure:"ttl_seconds"`
	ConfidenceThreshold *float64 `mapstructure:"confidence_threshold"`
	CacheSize           int      `mapstructure:"cache_size"`
}

// ProviderConfig 描述模型端点的请求/响应映射。
// kind=openai 时未显式给出的映射字段使用内置预置。
type ProviderConfig struct {
	Kind           string            `mapstructure:"kind"`
	Name           string            `mapstructure:"name"`
	APIURL         string            `mapstructure:"api_url"`
	APIKey         string            `mapstructure:"api_key"`
	Model          string            `mapstructure:"model"`
	Headers        map[string]any    `mapstructure:"headers"`
	RequestBody    map[string]any    `mapstructure:"request_body"`
	ResponsePath   string            `mapstructure:"response_path"`
	EnsureJSON     bool              `mapstructure:"ensure_json"`
	UsagePath      string            `mapstructure:"usage_path"`
	UsageFields    map[string]string `mapstructure:"usage_fields"`
	Cost           CostConfig        `mapstructure:"cost"`
	TimeoutSeconds int               `mapstructure:"timeout_seconds"`
}

// CostConfig 每百万 token 美元费率。
type CostConfig struct {
	InputPerMTok         float64 `mapstructure:"input_per_mtok"`
	OutputPerMTok        float64 `mapstructure:"output_per_mtok"`
	CacheReadPerMTok     float64 `mapstructure:"cache_read_per_mtok"`
	CacheCreationPerMTok float64 `mapstructure:"cache_creation_per_mtok"`
}

type PromptConfig struct {
	Dir string `mapstructure:"dir"`
}

type StoreConfig struct {
	DecisionLogPath string `mapstructure:"decision_log_path"`
	RedactPrompts   bool   `mapstructure:"redact_prompts"`
	CostLedgerPath  string `mapstructure:"cost_ledger_path"`
}

type MetricsConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	HTTPAddr             string `mapstructure:"http_addr"`
	FlushIntervalSeconds int    `mapstructure:"flush_interval_seconds"`
}
