package metrics

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Render 输出 Prometheus 文本格式：每个唯一指标名一组 HELP/TYPE，
// 后接 metric{labels} value 行。样本按名称分组，组内保持输入顺序。
func Render(samples []Sample) string {
	var (
		order  []string
		groups = make(map[string][]Sample)
	)
	for _, s := range samples {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}
		if _, seen := groups[name]; !seen {
			order = append(order, name)
		}
		groups[name] = append(groups[name], s)
	}

	var b strings.Builder
	for _, name := range order {
		group := groups[name]
		var lines []string
		for _, s := range group {
			value, ok := coerceValue(s.Value)
			if !ok {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s%s %s", name, renderLabels(s.Labels), formatValue(value)))
		}
		if len(lines) == 0 {
			continue
		}
		first := group[0]
		help := strings.ReplaceAll(first.Description, "\\", "\\\\")
		help = strings.ReplaceAll(help, "\n", "\\n")
		b.WriteString("# HELP " + name + " " + help + "\n")
		b.WriteString("# TYPE " + name + " " + metricType(first.Type) + "\n")
		for _, line := range lines {
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

func metricType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "counter":
		return "counter"
	case "histogram":
		return "histogram"
	default:
		return "gauge"
	}
}

// coerceValue 将样本值转为 float64；非有限值或不可解析的返回 false。
func coerceValue(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case int:
		f = float64(val)
	case int32:
		f = float64(val)
	case int64:
		f = float64(val)
	case uint:
		f = float64(val)
	case uint64:
		f = float64(val)
	case float32:
		f = float64(val)
	case float64:
		f = val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func formatValue(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// renderLabels 按键排序输出标签；值需转义 \、换行、回车、制表符与引号。
func renderLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+`="`+escapeLabelValue(labels[k])+`"`)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

var labelEscaper = strings.NewReplacer(
	`\`, `\\`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	`"`, `\"`,
)

func escapeLabelValue(v string) string {
	return labelEscaper.Replace(v)
}
