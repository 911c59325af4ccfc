package llm

import "strconv"

// NormalizeConfidence 归一化置信度：(1,100] 视为百分比除以 100，
// 其余保持原值，最终钳制到 [0,1]。
// 150 这类明显越界值与百分比走同一条钳制路径（兼容既有行为），
// 严格模式由 Parser.Strict 单独把关。
func NormalizeConfidence(raw float64) float64 {
	v := raw
	if v > 1.0 && v <= 100.0 {
		v = v / 100.0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// coerceConfidence 将任意 JSON 值转为 float64，失败返回 (0,false)。
func coerceConfidence(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
