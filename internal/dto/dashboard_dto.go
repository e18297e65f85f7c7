package dto

import (
	"biostats-go/internal/stats"
)

// SelectRequest 更新会话中的选择，空字段保持不变
type SelectRequest struct {
	Dataset     string `json:"dataset" binding:"max=255"`
	Config      string `json:"config" binding:"max=255"`
	CounterType string `json:"counter_type" binding:"max=255"`
}

// LabelsQuery 标签计数查询
type LabelsQuery struct {
	CounterType string `form:"counter_type"`
	Min         *int64 `form:"min"`
}

// CounterRange 计数器滑块范围
type CounterRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// TokenLengthView token长度表
type TokenLengthView struct {
	Columns []string               `json:"columns"`
	Rows    []stats.TokenLengthRow `json:"rows"`
}

// LabelsView 计数器标签表和柱状图
type LabelsView struct {
	CounterType string                   `json:"counter_type"`
	Range       *CounterRange            `json:"range,omitempty"`
	Filter      int64                    `json:"filter"`
	Table       *stats.LabelCounterTable `json:"table"`
	Bar         *stats.BarChart          `json:"bar"`
}

// DashboardView 统计面板
type DashboardView struct {
	Title    string         `json:"title"`
	Dataset  string         `json:"dataset"`
	Config   string         `json:"config"`
	Schema   string         `json:"schema,omitempty"`
	Datasets []string       `json:"datasets"`
	Configs  []ConfigOption `json:"configs"`
	Fetched  bool           `json:"fetched"`

	Metrics      []stats.Metric   `json:"metrics,omitempty"`
	TokenLengths *TokenLengthView `json:"token_lengths,omitempty"`
	Histogram    *stats.Histogram `json:"histogram,omitempty"`
	Counters     []string         `json:"counters,omitempty"`
	Labels       *LabelsView      `json:"labels,omitempty"`
}
