package stats

import (
	"context"
	"encoding/json"
	"testing"

	"biostats-go/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *TokenLengthTable {
	t.Helper()
	dataset := Dataset{
		{Name: "train", Records: []Record{
			{"text": "a"},
			{"text": "a b"},
			{"text": "a b c d"},
		}},
		{Name: "test", Records: []Record{
			{"text": "a b c d e f g h i j"},
		}},
	}
	table, err := ParseTokenLength(context.Background(), dataset, schema.Text)
	require.NoError(t, err)
	return table
}

func TestNorm(t *testing.T) {
	mu, sigma := Norm([]int{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mu, 1e-9)
	assert.InDelta(t, 2.0, sigma, 1e-9)

	mu, sigma = Norm(nil)
	assert.Zero(t, mu)
	assert.Zero(t, sigma)
}

func TestDrawHistogram(t *testing.T) {
	hist, err := DrawHistogram(sampleTable(t), TotalColumn, ChartOptions{NBins: 3})
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 4, 7, 10}, hist.Edges)
	require.Len(t, hist.Splits, 2)

	train := hist.Splits[0]
	assert.Equal(t, "train", train.Split)
	assert.Equal(t, 3, train.Count)
	assert.InDeltaSlice(t, []float64{2.0 / 3, 1.0 / 3, 0}, train.Probabilities, 1e-9)

	test := hist.Splits[1]
	assert.InDeltaSlice(t, []float64{0, 0, 1}, test.Probabilities, 1e-9)
	assert.InDelta(t, 10.0, test.Mean, 1e-9)

	fig := hist.Figure
	assert.Equal(t, "group", fig.Layout.BarMode)
	require.Len(t, fig.Data, 4)
	assert.Equal(t, "histogram", fig.Data[0].Type)
	assert.Equal(t, "probability", fig.Data[0].HistNorm)
	assert.Equal(t, 3, fig.Data[0].NBinsX)
	assert.Equal(t, IBMColors[0], fig.Data[0].Marker.Color)
	assert.Equal(t, "box", fig.Data[1].Type)
	assert.Equal(t, "y2", fig.Data[1].YAxis)
	assert.Equal(t, IBMColors[1], fig.Data[2].Marker.Color)
}

func TestDrawHistogram_DefaultBins(t *testing.T) {
	hist, err := DrawHistogram(sampleTable(t), "text", ChartOptions{})
	require.NoError(t, err)
	assert.Len(t, hist.Edges, DefaultHistogramBins+1)
	assert.Equal(t, DefaultHistogramBins, hist.Figure.Data[0].NBinsX)
}

func TestDrawHistogram_ConstantValues(t *testing.T) {
	table := &TokenLengthTable{Rows: []TokenLengthRow{
		{Split: "train", Total: 5},
		{Split: "train", Total: 5},
	}}
	hist, err := DrawHistogram(table, TotalColumn, ChartOptions{NBins: 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6, 7}, hist.Edges)
	assert.Equal(t, []float64{1, 0}, hist.Splits[0].Probabilities)
}

func TestDrawHistogram_UnknownColumn(t *testing.T) {
	_, err := DrawHistogram(sampleTable(t), "question", ChartOptions{})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestDrawHistogram_EmptyTable(t *testing.T) {
	hist, err := DrawHistogram(&TokenLengthTable{}, TotalColumn, ChartOptions{})
	require.NoError(t, err)
	assert.Empty(t, hist.Edges)
	assert.Empty(t, hist.Figure.Data)
}

func TestDrawBar(t *testing.T) {
	table := &LabelCounterTable{
		CounterType: "entities_type_counter",
		Rows: []LabelCounterRow{
			{Labels: "Disease", Count: 40, Split: "train"},
			{Labels: "Chemical", Count: 25, Split: "train"},
			{Labels: "Disease", Count: 9, Split: "test"},
		},
	}

	chart := DrawBar(table, ChartOptions{Colors: []string{"red"}})
	assert.Equal(t, "labels", chart.X)
	assert.Equal(t, "entities_type_counter", chart.Y)
	require.Len(t, chart.Figure.Data, 2)

	train := chart.Figure.Data[0]
	assert.Equal(t, "bar", train.Type)
	assert.Equal(t, "train", train.Name)
	assert.Equal(t, []string{"Disease", "Chemical"}, train.X)
	assert.Equal(t, []int64{40, 25}, train.Y)
	assert.Equal(t, "red", chart.Figure.Data[1].Marker.Color)

	data, err := json.Marshal(chart.Figure)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"barmode":"group"`)
}
