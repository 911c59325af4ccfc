package provider

import "github.com/shopspring/decimal"

// CostRates 每百万 token 的美元费率，未配置的按 0 计。
type CostRates struct {
	InputPerMTok         float64
	OutputPerMTok        float64
	CacheReadPerMTok     float64
	CacheCreationPerMTok float64
}

var million = decimal.NewFromInt(1_000_000)

// ComputeCost 按各 token 类别分别计费后求和。
// 用 decimal 逐项累加，避免小费率乘大 token 数时的浮点漂移。
func ComputeCost(u Usage, r CostRates) float64 {
	total := decimal.Zero.
		Add(tokenCost(u.PromptTokens, r.InputPerMTok)).
		Add(tokenCost(u.CompletionTokens, r.OutputPerMTok)).
		Add(tokenCost(u.CacheReadTokens, r.CacheReadPerMTok)).
		Add(tokenCost(u.CacheCreationTokens, r.CacheCreationPerMTok))
	f, _ := total.Float64()
	return f
}

func tokenCost(tokens int, ratePerMTok float64) decimal.Decimal {
	if tokens <= 0 || ratePerMTok <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(tokens)).
		Div(million).
		Mul(decimal.NewFromFloat(ratePerMTok))
}
