package llm

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// CacheKey 由决策点 + 上下文的确定性序列化取 MD5。
// encoding/json 对 map 键做字典序输出，天然满足确定性；
// 无法序列化的值统一降级为其字符串表示。
// 哈希碰撞概率对本用途可忽略。
func CacheKey(req Request) string {
	payload := map[string]any{
		"point":   string(req.Point),
		"context": sanitizeValue(req.Context),
	}
	b, err := json.Marshal(payload)
	if err != nil {
		// sanitize 之后不应再失败，兜底用 fmt 表示
		b = []byte(fmt.Sprintf("%s|%v", req.Point, req.Context))
	}
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// sanitizeValue 递归地把非 JSON 可序列化值替换为字符串表示。
func sanitizeValue(v any) any {
	switch val := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = sanitizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item)
		}
		return out
	default:
		if _, err := json.Marshal(val); err == nil {
			return val
		}
		return fmt.Sprint(val)
	}
}
