package stats

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownColumn token长度表中没有该列
var ErrUnknownColumn = errors.New("未知的列")

// DefaultHistogramBins 直方图默认分箱数
const DefaultHistogramBins = 20

// IBMColors IBM 色盲友好配色，按划分顺序循环使用
var IBMColors = []string{
	"#648fff",
	"#dc267f",
	"#ffb000",
	"#fe6100",
	"#785ef0",
	"#000000",
	"#ffffff",
}

// Marker 图形颜色
type Marker struct {
	Color string `json:"color"`
}

// Trace Plotly trace
type Trace struct {
	Type        string      `json:"type"`
	Name        string      `json:"name"`
	X           interface{} `json:"x,omitempty"`
	Y           interface{} `json:"y,omitempty"`
	HistNorm    string      `json:"histnorm,omitempty"`
	NBinsX      int         `json:"nbinsx,omitempty"`
	Marker      *Marker     `json:"marker,omitempty"`
	XAxis       string      `json:"xaxis,omitempty"`
	YAxis       string      `json:"yaxis,omitempty"`
	LegendGroup string      `json:"legendgroup,omitempty"`
	ShowLegend  *bool       `json:"showlegend,omitempty"`
	HoverTmpl   string      `json:"hovertemplate,omitempty"`
}

// Axis 坐标轴
type Axis struct {
	Title  string    `json:"title,omitempty"`
	Domain []float64 `json:"domain,omitempty"`
	Anchor string    `json:"anchor,omitempty"`
	Show   *bool     `json:"visible,omitempty"`
}

// Layout 图布局
type Layout struct {
	Title   string `json:"title,omitempty"`
	BarMode string `json:"barmode,omitempty"`
	XAxis   Axis   `json:"xaxis"`
	YAxis   Axis   `json:"yaxis"`
	YAxis2  *Axis  `json:"yaxis2,omitempty"`
}

// Figure 可直接交给 Plotly.newPlot 的图
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// ChartOptions 绘图选项
type ChartOptions struct {
	Title  string
	NBins  int
	Colors []string
}

func (o ChartOptions) color(i int) string {
	colors := o.Colors
	if len(colors) == 0 {
		colors = IBMColors
	}
	return colors[i%len(colors)]
}

func (o ChartOptions) nbins() int {
	if o.NBins <= 0 {
		return DefaultHistogramBins
	}
	return o.NBins
}

// Norm 计算均值和总体标准差
func Norm(lengths []int) (float64, float64) {
	if len(lengths) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range lengths {
		sum += float64(v)
	}
	mu := sum / float64(len(lengths))

	var sq float64
	for _, v := range lengths {
		d := float64(v) - mu
		sq += d * d
	}
	return mu, math.Sqrt(sq / float64(len(lengths)))
}

// SplitHistogram 一个划分的分箱结果
type SplitHistogram struct {
	Split         string    `json:"split"`
	Count         int       `json:"count"`
	Probabilities []float64 `json:"probabilities"`
	Mean          float64   `json:"mean"`
	Std           float64   `json:"std"`
}

// Histogram 直方图及其服务端分箱结果
type Histogram struct {
	Column string           `json:"column"`
	Edges  []float64        `json:"edges"`
	Splits []SplitHistogram `json:"splits"`
	Figure Figure           `json:"figure"`
}

// DrawHistogram 按划分着色绘制某列的概率直方图，附带箱线图边际
func DrawHistogram(table *TokenLengthTable, column string, opts ChartOptions) (*Histogram, error) {
	groups := table.GroupBySplit(column)
	if len(groups) == 0 && table.Len() > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}

	edges := binEdges(groups, opts.nbins())
	hist := &Histogram{
		Column: column,
		Edges:  edges,
		Splits: make([]SplitHistogram, 0, len(groups)),
		Figure: Figure{
			Data: make([]Trace, 0, 2*len(groups)),
			Layout: Layout{
				Title:   opts.Title,
				BarMode: "group",
				XAxis:   Axis{Title: column, Anchor: "y"},
				YAxis:   Axis{Title: "probability", Domain: []float64{0, 0.7326}},
				YAxis2:  &Axis{Domain: []float64{0.7426, 1}, Anchor: "x2", Show: boolPtr(false)},
			},
		},
	}

	for i, g := range groups {
		mu, sigma := Norm(g.Values)
		hist.Splits = append(hist.Splits, SplitHistogram{
			Split:         g.Split,
			Count:         len(g.Values),
			Probabilities: binProbabilities(g.Values, edges),
			Mean:          mu,
			Std:           sigma,
		})

		marker := &Marker{Color: opts.color(i)}
		hist.Figure.Data = append(hist.Figure.Data,
			Trace{
				Type:        "histogram",
				Name:        g.Split,
				X:           g.Values,
				HistNorm:    "probability",
				NBinsX:      opts.nbins(),
				Marker:      marker,
				XAxis:       "x",
				YAxis:       "y",
				LegendGroup: g.Split,
			},
			Trace{
				Type:        "box",
				Name:        g.Split,
				X:           g.Values,
				Marker:      marker,
				XAxis:       "x",
				YAxis:       "y2",
				LegendGroup: g.Split,
				ShowLegend:  boolPtr(false),
			},
		)
	}
	return hist, nil
}

// binEdges 在所有划分的取值范围上等宽分箱
func binEdges(groups []SplitValues, nbins int) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, g := range groups {
		for _, v := range g.Values {
			lo = math.Min(lo, float64(v))
			hi = math.Max(hi, float64(v))
		}
	}
	if math.IsInf(lo, 1) {
		return []float64{}
	}
	width := (hi - lo) / float64(nbins)
	if width == 0 {
		width = 1
	}
	edges := make([]float64, nbins+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	return edges
}

func binProbabilities(values []int, edges []float64) []float64 {
	if len(edges) < 2 {
		return []float64{}
	}
	nbins := len(edges) - 1
	counts := make([]float64, nbins)
	width := edges[1] - edges[0]
	for _, v := range values {
		i := int((float64(v) - edges[0]) / width)
		if i >= nbins {
			i = nbins - 1
		}
		if i < 0 {
			i = 0
		}
		counts[i]++
	}
	if len(values) > 0 {
		for i := range counts {
			counts[i] /= float64(len(values))
		}
	}
	return counts
}

// BarChart 标签计数柱状图
type BarChart struct {
	X      string `json:"x"`
	Y      string `json:"y"`
	Figure Figure `json:"figure"`
}

// DrawBar 按划分分组绘制标签计数柱状图
func DrawBar(table *LabelCounterTable, opts ChartOptions) *BarChart {
	type series struct {
		labels []string
		counts []int64
	}
	index := make(map[string]int)
	var splits []string
	var data []series
	for _, row := range table.Rows {
		i, ok := index[row.Split]
		if !ok {
			i = len(data)
			index[row.Split] = i
			splits = append(splits, row.Split)
			data = append(data, series{})
		}
		data[i].labels = append(data[i].labels, row.Labels)
		data[i].counts = append(data[i].counts, row.Count)
	}

	chart := &BarChart{
		X: "labels",
		Y: table.CounterType,
		Figure: Figure{
			Data: make([]Trace, 0, len(data)),
			Layout: Layout{
				Title:   opts.Title,
				BarMode: "group",
				XAxis:   Axis{Title: "labels"},
				YAxis:   Axis{Title: table.CounterType},
			},
		},
	}
	for i, s := range data {
		chart.Figure.Data = append(chart.Figure.Data, Trace{
			Type:        "bar",
			Name:        splits[i],
			X:           s.labels,
			Y:           s.counts,
			Marker:      &Marker{Color: opts.color(i)},
			LegendGroup: splits[i],
			HoverTmpl:   "labels=%{x}<br>" + table.CounterType + "=%{y}<br>split=" + splits[i] + "<extra></extra>",
		})
	}
	return chart
}

func boolPtr(b bool) *bool {
	return &b
}
