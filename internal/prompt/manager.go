// Package prompt 管理各决策点的提示词模板。
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"sibyl/internal/logger"

	"github.com/fsnotify/fsnotify"
)

const templateExt = ".tmpl"

// Manager 从目录加载 <decision_point>.tmpl 模板，目录变更自动重载。
type Manager struct {
	dir string

	mu        sync.RWMutex
	templates map[string]*template.Template

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// templateData 模板可用字段。Context 为原始映射，
// ContextJSON 是其缩进 JSON 渲染（键已排序）。
type templateData struct {
	Point       string
	Context     map[string]any
	ContextJSON string
}

// NewManager 加载目录下全部模板并开始监听变更。
func NewManager(dir string) (*Manager, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("prompt manager requires template dir")
	}
	m := &Manager{dir: dir, done: make(chan struct{})}
	if err := m.reload(); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warnf("提示词目录监听初始化失败，热更新不可用: %v", err)
		return m, nil
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		logger.Warnf("提示词目录监听失败，热更新不可用: %v", err)
		return m, nil
	}
	m.watcher = watcher
	go m.watchLoop()
	return m, nil
}

func (m *Manager) watchLoop() {
	for {
		select {
		case <-m.done:
			return
		case evt, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Ext(evt.Name) != templateExt {
				continue
			}
			if err := m.reload(); err != nil {
				logger.Errorf("提示词模板重载失败: %v", err)
			} else {
				logger.Infof("提示词模板已重载 (%s)", evt.Name)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("提示词目录监听错误: %v", err)
		}
	}
}

func (m *Manager) reload() error {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return fmt.Errorf("read template dir failed: %w", err)
	}
	templates := make(map[string]*template.Template)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != templateExt {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), templateExt)
		raw, err := os.ReadFile(filepath.Join(m.dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read template %s failed: %w", entry.Name(), err)
		}
		tpl, err := template.New(name).Parse(string(raw))
		if err != nil {
			return fmt.Errorf("parse template %s failed: %w", entry.Name(), err)
		}
		templates[name] = tpl
	}
	m.mu.Lock()
	m.templates = templates
	m.mu.Unlock()
	return nil
}

// BuildPrompt 渲染指定决策点的提示词；模板缺失返回错误。
func (m *Manager) BuildPrompt(point string, context map[string]any) (string, error) {
	m.mu.RLock()
	tpl, ok := m.templates[point]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("提示词模板不存在: %s", point)
	}
	data := templateData{
		Point:       point,
		Context:     context,
		ContextJSON: renderContextJSON(context),
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("渲染模板 %s 失败: %w", point, err)
	}
	return buf.String(), nil
}

// Close 停止目录监听。
func (m *Manager) Close() error {
	select {
	case <-m.done:
	default:
		close(m.done)
	}
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}

// renderContextJSON 键排序由 encoding/json 保证。
func renderContextJSON(context map[string]any) string {
	if len(context) == 0 {
		return "{}"
	}
	b, err := json.MarshalIndent(context, "", "  ")
	if err != nil {
		return fmt.Sprint(context)
	}
	return string(b)
}
