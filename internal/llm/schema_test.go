package llm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schemaYAML = `
points:
  adjust_position:
    description: 仓位调整参数
    schema:
      type: object
      properties:
        delta_pct:
          type: number
          minimum: -100
          maximum: 100
      required: [delta_pct]
  leverage: {}
`

func newTestRegistry(t *testing.T) *SchemaRegistry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schemas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(schemaYAML), 0o644))
	r, err := NewSchemaRegistry(path)
	require.NoError(t, err)
	return r
}

func TestSchemaValidate(t *testing.T) {
	r := newTestRegistry(t)

	assert.NoError(t, r.Validate(PointAdjustPosition, map[string]any{"delta_pct": 25.0}))
	assert.Error(t, r.Validate(PointAdjustPosition, map[string]any{"delta_pct": 250.0}))
	assert.Error(t, r.Validate(PointAdjustPosition, map[string]any{}))
	assert.Error(t, r.Validate(PointAdjustPosition, nil))
}

func TestSchemaUnconfiguredPointPasses(t *testing.T) {
	r := newTestRegistry(t)

	// 未配置 schema 的决策点放行；仅带 description 的同理
	assert.NoError(t, r.Validate(PointEntry, map[string]any{"anything": true}))
	assert.NoError(t, r.Validate(PointLeverage, nil))
}

func TestSchemaRegistryBadPath(t *testing.T) {
	_, err := NewSchemaRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
