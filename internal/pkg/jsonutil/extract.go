package jsonutil

import (
	"encoding/json"
	"strings"
)

const codeFence = "```"

// Extract 从任意文本中提取最可能的 JSON 片段。
// 优先级：json 代码块 → 对象数组形态 → 配平括号片段；
// 每个策略只产出合法 JSON 候选，候选不合法时继续尝试下一策略，
// 代码块里放了废话不意味着正文里没有能用的决策。
func Extract(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if block, ok := extractFromFence(raw); ok {
		return block, true
	}
	if arr, ok := extractObjectArray(raw); ok {
		return arr, true
	}
	return extractBalanced(raw)
}

// extractFromFence 取 ```json ... ``` 代码块内容（标签大小写不敏感）。
func extractFromFence(raw string) (string, bool) {
	lower := strings.ToLower(raw)
	search := 0
	for {
		start := strings.Index(lower[search:], codeFence)
		if start == -1 {
			return "", false
		}
		start += search
		labelStart := start + len(codeFence)
		rest := raw[labelStart:]
		nl := strings.IndexByte(rest, '\n')
		if nl == -1 {
			return "", false
		}
		label := strings.TrimSpace(strings.ToLower(rest[:nl]))
		body := rest[nl+1:]
		end := strings.Index(body, codeFence)
		if end == -1 {
			return "", false
		}
		if label == "json" {
			block := strings.TrimSpace(body[:end])
			if block != "" && json.Valid([]byte(block)) {
				return block, true
			}
		}
		search = labelStart + nl + 1 + end + len(codeFence)
		if search >= len(raw) {
			return "", false
		}
	}
}

// extractObjectArray 找出形如 [{...}] 的片段（数组且首元素为对象）。
func extractObjectArray(raw string) (string, bool) {
	for i := 0; i < len(raw); i++ {
		if raw[i] != '[' {
			continue
		}
		j := i + 1
		for j < len(raw) && isSpace(raw[j]) {
			j++
		}
		if j >= len(raw) || raw[j] != '{' {
			continue
		}
		if span, ok := scanBalanced(raw, i, '[', ']'); ok && json.Valid([]byte(span)) {
			return span, true
		}
	}
	return "", false
}

// extractBalanced 依次对每个 '{' 或 '[' 做括号配平，
// 返回第一个配平且为合法 JSON 的片段。
func extractBalanced(raw string) (string, bool) {
	for i := 0; i < len(raw); i++ {
		open := raw[i]
		if open != '{' && open != '[' {
			continue
		}
		close := byte('}')
		if open == '[' {
			close = ']'
		}
		if span, ok := scanBalanced(raw, i, open, close); ok && json.Valid([]byte(span)) {
			return span, true
		}
	}
	return "", false
}

// scanBalanced 自 start 起扫描配平的 open/close 括号片段。
// 字符串字面量内的括号（含转义引号）会被正确跳过。
func scanBalanced(raw string, start int, open, close byte) (string, bool) {
	depth := 0
	inString := false
	escape := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return strings.TrimSpace(raw[start : i+1]), true
			}
		}
	}
	return "", false
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
