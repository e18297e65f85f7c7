package service

import (
	"os"
	"testing"

	"biostats-go/internal/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest_OrderAndKinds(t *testing.T) {
	datasets, err := ParseManifest([]byte(testManifest))
	require.NoError(t, err)
	require.Len(t, datasets, 3)

	assert.Equal(t, "bc5cdr", datasets[0].Name)
	assert.Equal(t, "BC5CDR", datasets[0].DisplayName)
	assert.Equal(t, 2, datasets[2].Position)

	kb := datasets[0].Configs[0]
	assert.Equal(t, "bigbio_kb", kb.SchemaTag)
	require.Len(t, kb.Splits, 2)
	assert.Equal(t, "train", kb.Splits[0].Split)
	assert.Equal(t, "test", kb.Splits[1].Split)

	train := kb.Splits[0].Attributes
	names := make([]string, len(train))
	for i, a := range train {
		names[i] = a.Name
	}
	// note: null 被忽略
	assert.Equal(t, []string{"samples_count", "passages_count", "mean_length", "has_relations", "entities_type_counter", "relations_type_counter"}, names)

	assert.Equal(t, stats.KindInt, train[0].Kind)
	assert.Equal(t, stats.KindFloat, train[2].Kind)
	assert.Equal(t, stats.KindBool, train[3].Kind)
	assert.Equal(t, stats.Counter{{Label: "Disease", Count: 40}, {Label: "Chemical", Count: 25}, {Label: "Gene", Count: 3}}, train[4].Counter)
	assert.Equal(t, 0, train[5].Size())

	assert.True(t, datasets[2].Configs[1].IsLocal)
	assert.Empty(t, datasets[0].Configs[1].Splits)
}

func TestParseManifest_Aliases(t *testing.T) {
	data := `
datasets:
  - name: ds
    configs:
      - name: ds_bigbio_text
        schema: bigbio_text
        splits:
          train: &meta
            samples_count: 4
            labels_counter: {a: 1}
          test: *meta
`
	datasets, err := ParseManifest([]byte(data))
	require.NoError(t, err)
	splits := datasets[0].Configs[0].Splits
	require.Len(t, splits, 2)
	assert.Equal(t, splits[0].Attributes, splits[1].Attributes)
}

func TestParseManifest_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"yaml语法错误", "datasets: [\n"},
		{"缺少数据集名", "datasets:\n  - configs: []\n"},
		{"缺少schema", "datasets:\n  - name: a\n    configs:\n      - name: b\n"},
		{"splits不是映射", "datasets:\n  - name: a\n    configs:\n      - name: b\n        schema: bigbio_kb\n        splits: [train]\n"},
		{"计数不是整数", "datasets:\n  - name: a\n    configs:\n      - name: b\n        schema: bigbio_kb\n        splits:\n          train:\n            x_counter: {A: many}\n"},
		{"列表属性", "datasets:\n  - name: a\n    configs:\n      - name: b\n        schema: bigbio_kb\n        splits:\n          train:\n            ids: [1, 2]\n"},
		{"非法划分名", "datasets:\n  - name: a\n    configs:\n      - name: b\n        schema: bigbio_kb\n        splits:\n          'bad split': {}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.data))
			assert.ErrorIs(t, err, ErrInvalidManifest)
		})
	}
}

func TestParseManifest_ExampleCatalog(t *testing.T) {
	data, err := os.ReadFile("../../config/catalog.example.yaml")
	require.NoError(t, err)

	datasets, err := ParseManifest(data)
	require.NoError(t, err)
	require.Len(t, datasets, 2)
	assert.Equal(t, "BC5CDR", datasets[0].DisplayName)
	require.Len(t, datasets[0].Configs[0].Splits, 3)
	assert.Equal(t, "validation", datasets[0].Configs[0].Splits[1].Split)
}
