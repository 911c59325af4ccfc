package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeConfidence(t *testing.T) {
	cases := []struct {
		name string
		in   float64
		want float64
	}{
		{"分数原样保留", 0.9, 0.9},
		{"百分比除以100", 75, 0.75},
		{"百分比上界", 100, 1.0},
		{"刚好超过1视为百分比", 1.5, 0.015},
		{"越界值钳制到1", 150, 1.0},
		{"负值钳制到0", -5, 0},
		{"零原样保留", 0, 0},
		{"一原样保留", 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, NormalizeConfidence(tc.in), 1e-9)
		})
	}
}

func TestCoerceConfidence(t *testing.T) {
	v, ok := coerceConfidence(float64(0.5))
	assert.True(t, ok)
	assert.Equal(t, 0.5, v)

	v, ok = coerceConfidence("82.5")
	assert.True(t, ok)
	assert.Equal(t, 82.5, v)

	v, ok = coerceConfidence(true)
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)

	_, ok = coerceConfidence(map[string]any{})
	assert.False(t, ok)
}
