package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"sibyl/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
)

// SchemaEntry 单个决策点的参数约束。
type SchemaEntry struct {
	Description string                 `mapstructure:"description" yaml:"description"`
	Schema      map[string]interface{} `mapstructure:"schema" yaml:"schema"`

	compiled *jsonschema.Schema
}

type schemaFileConfig struct {
	Points map[string]SchemaEntry `mapstructure:"points" yaml:"points"`
}

// SchemaRegistry 管理各决策点 parameters 字段的 JSON Schema。
// 配置文件变更时自动重载（沿用 viper 的 fsnotify 监听）。
type SchemaRegistry struct {
	path string
	v    *viper.Viper

	mu      sync.RWMutex
	entries map[DecisionPoint]SchemaEntry
}

// NewSchemaRegistry 读取 schema 配置文件并监听更新。
func NewSchemaRegistry(path string) (*SchemaRegistry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("schema registry requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read schema config failed: %w", err)
	}
	r := &SchemaRegistry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("参数 schema 重载失败: %v", err)
		}
	})
	v.WatchConfig()
	return r, nil
}

func (r *SchemaRegistry) reload() error {
	if err := r.v.ReadInConfig(); err != nil {
		return err
	}
	var fc schemaFileConfig
	if err := r.v.Unmarshal(&fc); err != nil {
		return fmt.Errorf("parse schema config failed: %w", err)
	}
	entries := make(map[DecisionPoint]SchemaEntry, len(fc.Points))
	for rawPoint, entry := range fc.Points {
		point := DecisionPoint(strings.ToLower(strings.TrimSpace(rawPoint)))
		if !point.Valid() {
			logger.Warnf("忽略未知决策点 schema: %q", rawPoint)
			continue
		}
		if len(entry.Schema) > 0 {
			compiled, err := compileSchema(entry.Schema)
			if err != nil {
				return fmt.Errorf("compile schema for %s failed: %w", point, err)
			}
			entry.compiled = compiled
		}
		entries[point] = entry
	}
	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
	logger.Infof("参数 schema 已加载: %d 个决策点 (%s)", len(entries), r.path)
	return nil
}

// Validate 校验 parameters 是否满足对应决策点的 schema。
// 未配置该决策点时直接放行。
func (r *SchemaRegistry) Validate(point DecisionPoint, params map[string]any) error {
	r.mu.RLock()
	entry, ok := r.entries[point]
	r.mu.RUnlock()
	if !ok || entry.compiled == nil {
		return nil
	}
	var doc any = map[string]any{}
	if params != nil {
		doc = params
	}
	if err := entry.compiled.Validate(doc); err != nil {
		return fmt.Errorf("parameters 不满足 %s schema: %w", point, err)
	}
	return nil
}

func compileSchema(data map[string]interface{}) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}
