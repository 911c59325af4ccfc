package metrics

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderGroupsByName(t *testing.T) {
	out := Render([]Sample{
		{Name: "llm_calls_total", Value: 5, Description: "Total calls", Type: "counter", Labels: map[string]string{"point": "entry"}},
		{Name: "llm_cost_usd", Value: 0.25, Description: "Cost", Type: "gauge"},
		{Name: "llm_calls_total", Value: 2, Description: "Total calls", Type: "counter", Labels: map[string]string{"point": "exit"}},
	})

	// 同名样本共享一组 HELP/TYPE
	assert.Equal(t, 1, strings.Count(out, "# HELP llm_calls_total"))
	assert.Equal(t, 1, strings.Count(out, "# TYPE llm_calls_total counter"))
	assert.Contains(t, out, `llm_calls_total{point="entry"} 5`)
	assert.Contains(t, out, `llm_calls_total{point="exit"} 2`)
	assert.Contains(t, out, "# TYPE llm_cost_usd gauge\n")
	assert.Contains(t, out, "llm_cost_usd 0.25\n")

	// HELP/TYPE 必须在该指标的样本行之前
	assert.Less(t, strings.Index(out, "# HELP llm_calls_total"), strings.Index(out, `llm_calls_total{point="entry"}`))
}

func TestRenderLabelEscaping(t *testing.T) {
	out := Render([]Sample{
		{
			Name:        "llm_errors_total",
			Value:       1,
			Description: "Errors",
			Type:        "counter",
			Labels:      map[string]string{"reason": "bad \"quote\"\nnew\\line\ttab"},
		},
	})
	assert.Contains(t, out, `reason="bad \"quote\"\nnew\\line\ttab"`)
}

func TestRenderLabelsSorted(t *testing.T) {
	out := Render([]Sample{
		{Name: "m", Value: 1, Labels: map[string]string{"zeta": "1", "alpha": "2", "mid": "3"}},
	})
	assert.Contains(t, out, `m{alpha="2",mid="3",zeta="1"} 1`)
}

func TestRenderValueCoercion(t *testing.T) {
	out := Render([]Sample{
		{Name: "a", Value: true},
		{Name: "b", Value: int64(42)},
		{Name: "c", Value: "3.14"},
		{Name: "d", Value: "not a number"},
		{Name: "e", Value: math.NaN()},
		{Name: "f", Value: math.Inf(1)},
	})
	assert.Contains(t, out, "a 1\n")
	assert.Contains(t, out, "b 42\n")
	assert.Contains(t, out, "c 3.14\n")
	assert.NotContains(t, out, "\nd ")
	assert.NotContains(t, out, "# HELP d")
	assert.NotContains(t, out, "# HELP e")
	assert.NotContains(t, out, "# HELP f")
}

func TestRenderHelpEscaping(t *testing.T) {
	out := Render([]Sample{
		{Name: "m", Value: 1, Description: "line1\nline2 back\\slash"},
	})
	assert.Contains(t, out, `# HELP m line1\nline2 back\\slash`)
}

func TestRenderEmptyAndUnnamed(t *testing.T) {
	assert.Empty(t, Render(nil))
	assert.Empty(t, Render([]Sample{{Name: "  ", Value: 1}}))
}

func TestRenderDefaultTypeIsGauge(t *testing.T) {
	out := Render([]Sample{{Name: "m", Value: 1, Type: "weird"}})
	assert.Contains(t, out, "# TYPE m gauge\n")
}
