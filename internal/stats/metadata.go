package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSplitNotFound 元数据中不存在指定划分
	ErrSplitNotFound = errors.New("划分不存在")
	// ErrCounterNotFound 划分元数据中不存在指定计数器
	ErrCounterNotFound = errors.New("计数器不存在")
	// ErrEmptyCounter 计数器表为空，无法计算取值范围
	ErrEmptyCounter = errors.New("计数器表为空")
)

// CounterMarker 计数器属性名中包含的子串
const CounterMarker = "counter"

// AttrKind 元数据属性类型
type AttrKind string

const (
	KindInt     AttrKind = "int"
	KindFloat   AttrKind = "float"
	KindText    AttrKind = "text"
	KindBool    AttrKind = "bool"
	KindCounter AttrKind = "counter"
)

// LabelCount 计数器中的一项
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Counter 有序的标签计数
type Counter []LabelCount

// Attribute 划分元数据的一个属性
type Attribute struct {
	Name    string   `json:"name"`
	Kind    AttrKind `json:"kind"`
	Int     int64    `json:"int,omitempty"`
	Float   float64  `json:"float,omitempty"`
	Text    string   `json:"text,omitempty"`
	Bool    bool     `json:"bool,omitempty"`
	Counter Counter  `json:"counter,omitempty"`
}

// IntAttr 整数属性
func IntAttr(name string, v int64) Attribute {
	return Attribute{Name: name, Kind: KindInt, Int: v}
}

// FloatAttr 浮点属性
func FloatAttr(name string, v float64) Attribute {
	return Attribute{Name: name, Kind: KindFloat, Float: v}
}

// TextAttr 文本属性
func TextAttr(name string, v string) Attribute {
	return Attribute{Name: name, Kind: KindText, Text: v}
}

// BoolAttr 布尔属性
func BoolAttr(name string, v bool) Attribute {
	return Attribute{Name: name, Kind: KindBool, Bool: v}
}

// CounterAttr 计数器属性
func CounterAttr(name string, c Counter) Attribute {
	return Attribute{Name: name, Kind: KindCounter, Counter: c}
}

// Size 返回可度量长度的属性的长度，数值和布尔属性返回 -1
func (a Attribute) Size() int {
	switch a.Kind {
	case KindText:
		return len(a.Text)
	case KindCounter:
		return len(a.Counter)
	default:
		return -1
	}
}

// SplitMetadata 一个划分的元数据
type SplitMetadata struct {
	Split      string      `json:"split"`
	Attributes []Attribute `json:"attributes"`
}

// Attr 按名称查找属性
func (m SplitMetadata) Attr(name string) (Attribute, bool) {
	for _, a := range m.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Metadata 按划分顺序排列的元数据
type Metadata []SplitMetadata

// Split 按名称查找划分元数据
func (md Metadata) Split(name string) (SplitMetadata, bool) {
	for _, m := range md {
		if m.Split == name {
			return m, true
		}
	}
	return SplitMetadata{}, false
}

// Metric 可展示的数值指标
type Metric struct {
	Label string `json:"label"`
	Split string `json:"split"`
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

func (m Metric) String() string {
	return fmt.Sprintf("%s = %d", m.Label, m.Value)
}

// ParseMetrics 提取所有正整数属性作为指标
// 非整数或非正数属性直接跳过
func ParseMetrics(md Metadata) []Metric {
	metrics := make([]Metric, 0)
	for _, m := range md {
		for _, a := range m.Attributes {
			if a.Kind != KindInt || a.Int <= 0 {
				continue
			}
			metrics = append(metrics, Metric{
				Label: fmt.Sprintf("%s-%s", m.Split, a.Name),
				Split: m.Split,
				Name:  a.Name,
				Value: a.Int,
			})
		}
	}
	return metrics
}

// ParseCounters 从指定划分（约定为训练集）收集非空计数器的名称
func ParseCounters(md Metadata, split string) ([]string, error) {
	m, ok := md.Split(split)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSplitNotFound, split)
	}
	counters := make([]string, 0)
	for _, a := range m.Attributes {
		if strings.Contains(a.Name, CounterMarker) && a.Size() > 0 {
			counters = append(counters, a.Name)
		}
	}
	return counters, nil
}

// LabelCounterRow 标签计数表的一行
type LabelCounterRow struct {
	Labels string
	Count  int64
	Split  string
}

// LabelCounterTable 某个计数器在各划分上的标签计数
type LabelCounterTable struct {
	CounterType string
	Rows        []LabelCounterRow
}

// ParseLabelCounter 将指定计数器展开为标签计数表
// 行顺序为划分顺序，划分内为计数器顺序
func ParseLabelCounter(md Metadata, counterType string) (*LabelCounterTable, error) {
	table := &LabelCounterTable{CounterType: counterType, Rows: make([]LabelCounterRow, 0)}
	for _, m := range md {
		a, ok := m.Attr(counterType)
		if !ok || a.Kind != KindCounter {
			return nil, fmt.Errorf("%w: %s.%s", ErrCounterNotFound, m.Split, counterType)
		}
		for _, lc := range a.Counter {
			table.Rows = append(table.Rows, LabelCounterRow{
				Labels: lc.Label,
				Count:  lc.Count,
				Split:  m.Split,
			})
		}
	}
	return table, nil
}

// Range 返回计数的最小值和最大值
func (t *LabelCounterTable) Range() (int64, int64, error) {
	if len(t.Rows) == 0 {
		return 0, 0, fmt.Errorf("%w: %s", ErrEmptyCounter, t.CounterType)
	}
	lo, hi := t.Rows[0].Count, t.Rows[0].Count
	for _, row := range t.Rows[1:] {
		if row.Count < lo {
			lo = row.Count
		}
		if row.Count > hi {
			hi = row.Count
		}
	}
	return lo, hi, nil
}

// FilterMin 保留计数不小于 min 的行
func (t *LabelCounterTable) FilterMin(min int64) *LabelCounterTable {
	filtered := &LabelCounterTable{CounterType: t.CounterType, Rows: make([]LabelCounterRow, 0, len(t.Rows))}
	for _, row := range t.Rows {
		if row.Count >= min {
			filtered.Rows = append(filtered.Rows, row)
		}
	}
	return filtered
}

// Maps 转换为 {labels, <counter_type>, split} 形式
func (t *LabelCounterTable) Maps() []map[string]interface{} {
	result := make([]map[string]interface{}, len(t.Rows))
	for i, row := range t.Rows {
		result[i] = map[string]interface{}{
			"labels":      row.Labels,
			t.CounterType: row.Count,
			SplitColumn:   row.Split,
		}
	}
	return result
}

// MarshalJSON 输出计数器名称和扁平行
func (t *LabelCounterTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		CounterType string                   `json:"counter_type"`
		Rows        []map[string]interface{} `json:"rows"`
	}{
		CounterType: t.CounterType,
		Rows:        t.Maps(),
	})
}
