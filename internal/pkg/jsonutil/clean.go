package jsonutil

import "strings"

// 模型输出里常见的隐形字符与全角标点，先行归一化再尝试解析。

var invisibleReplacer = strings.NewReplacer(
	"\u200b", "", // zero width space
	"\u200c", "", // zero width non-joiner
	"\u200d", "", // zero width joiner
	"\u2060", "", // word joiner
	"\ufeff", "", // BOM
	"\u00ad", "", // soft hyphen
)

var fullWidthReplacer = strings.NewReplacer(
	"“", `"`,
	"”", `"`,
	"‘", "'",
	"’", "'",
	"：", ":",
	"，", ",",
	"【", "[",
	"】", "]",
	"（", "(",
	"）", ")",
	"　", " ",
)

// Clean 归一化模型原始输出：去除不可见控制字符、全角标点转半角、
// 统一换行符，并消除 "[ {" 之类的括号间空白伪影。
func Clean(raw string) string {
	s := invisibleReplacer.Replace(raw)
	s = fullWidthReplacer.Replace(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = collapseBracketGap(s)
	return strings.TrimSpace(s)
}

// collapseBracketGap 将 "[" 与随后 "{" 之间的空白压掉，便于数组形态识别。
func collapseBracketGap(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		b.WriteByte(ch)
		if ch != '[' {
			continue
		}
		j := i + 1
		for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n') {
			j++
		}
		if j < len(s) && s[j] == '{' && j > i+1 {
			i = j - 1
		}
	}
	return b.String()
}
