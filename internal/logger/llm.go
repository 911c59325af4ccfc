package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

var (
	llmMu          sync.Mutex
	llmLog         *log.Logger
	llmDumpPayload bool
)

// SetLLMWriter 指定 LLM 对话日志输出目标；传 nil 关闭。
func SetLLMWriter(w io.Writer) {
	llmMu.Lock()
	defer llmMu.Unlock()
	if w == nil {
		llmLog = nil
		return
	}
	llmLog = log.New(w, "", log.LstdFlags)
}

func EnableLLMPayloadDump(enabled bool) {
	llmMu.Lock()
	llmDumpPayload = enabled
	llmMu.Unlock()
}

type llmSection struct {
	Title string
	Body  string
}

func logLLM(kind, provider, point string, sections []llmSection) {
	llmMu.Lock()
	logger := llmLog
	llmMu.Unlock()
	if logger == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[LLM]")
	if kind != "" {
		b.WriteString("[")
		b.WriteString(kind)
		b.WriteString("]")
	}
	if provider != "" {
		b.WriteString("[")
		b.WriteString(provider)
		b.WriteString("]")
	}
	if point != "" {
		b.WriteString("[")
		b.WriteString(point)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		body := sec.Body
		b.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	logger.Print(b.String())
}

// LogLLMRequest 记录发往模型的提示词；payload 仅在开启 dump 时输出。
func LogLLMRequest(provider, point, prompt, payload string) {
	sections := []llmSection{{Title: "PROMPT", Body: prompt}}
	if llmDumpPayload && strings.TrimSpace(payload) != "" {
		sections = append(sections, llmSection{Title: "PAYLOAD", Body: payload})
	}
	logLLM("request", provider, point, sections)
}

// LogLLMResponse 记录模型原始输出。
func LogLLMResponse(provider, point, raw string) {
	logLLM("response", provider, point, []llmSection{{Title: "RAW", Body: raw}})
}

// LogLLMPayload 在开启 dump 时记录实际发送的请求体。
func LogLLMPayload(provider, payload string) {
	llmMu.Lock()
	enabled := llmDumpPayload
	llmMu.Unlock()
	if !enabled {
		return
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return
	}
	logLLM("payload", provider, "", []llmSection{{Title: "PAYLOAD", Body: payload}})
}
