package stats

import (
	"context"
	"fmt"

	"biostats-go/internal/schema"
)

// PassagePolicy 知识库记录中同类型段落的合并策略
type PassagePolicy int

const (
	// PassageLastWriteWins 后出现的段落覆盖前面的计数
	PassageLastWriteWins PassagePolicy = iota
	// PassageSum 同类型段落计数累加
	PassageSum
)

// ParsePassagePolicy 从配置字符串解析策略
func ParsePassagePolicy(s string) (PassagePolicy, error) {
	switch s {
	case "", "last", "last_write_wins":
		return PassageLastWriteWins, nil
	case "sum":
		return PassageSum, nil
	default:
		return 0, fmt.Errorf("未知的段落合并策略: %s", s)
	}
}

func (p PassagePolicy) String() string {
	if p == PassageSum {
		return "sum"
	}
	return "last"
}

// ProgressReporter 聚合进度回调
type ProgressReporter interface {
	// Progress 每处理一条记录调用一次，done 从0开始
	Progress(split string, done, total int)
	// SplitDone 一个划分处理完毕
	SplitDone(split string)
}

type nopProgress struct{}

func (nopProgress) Progress(string, int, int) {}
func (nopProgress) SplitDone(string)          {}

type aggregateOptions struct {
	progress ProgressReporter
	policy   PassagePolicy
}

// Option 聚合选项
type Option func(*aggregateOptions)

// WithProgress 设置进度回调
func WithProgress(p ProgressReporter) Option {
	return func(o *aggregateOptions) {
		if p != nil {
			o.progress = p
		}
	}
}

// WithPassagePolicy 设置段落合并策略
func WithPassagePolicy(p PassagePolicy) Option {
	return func(o *aggregateOptions) {
		o.policy = p
	}
}

// TokenLengthPerEntry 计算单条记录各字段的token长度（不含总长度）
func TokenLengthPerEntry(record Record, s schema.Schema, policy PassagePolicy) (TokenLengthRow, error) {
	row := newTokenLengthRow("")
	if !s.Valid() {
		return row, fmt.Errorf("%w: %d", schema.ErrUnsupportedSchema, int(s))
	}

	if s.IsPassageBased() {
		for _, field := range s.TextFields() {
			passages, err := record.passages(field)
			if err != nil {
				return row, err
			}
			for _, p := range passages {
				row.put(p.Type, TokenCount(p.Text), policy)
			}
		}
		return row, nil
	}

	for _, field := range s.TextFields() {
		text, err := record.text(field)
		if err != nil {
			return row, err
		}
		row.put(field, TokenCount(text), policy)
	}
	return row, nil
}

// ParseTokenLength 对整个数据集计算token长度表
// 行顺序为划分顺序，划分内为记录顺序。任何一条记录出错则整体失败。
func ParseTokenLength(ctx context.Context, dataset Dataset, s schema.Schema, opts ...Option) (*TokenLengthTable, error) {
	o := aggregateOptions{progress: nopProgress{}}
	for _, opt := range opts {
		opt(&o)
	}

	table := &TokenLengthTable{Rows: make([]TokenLengthRow, 0, dataset.Len())}
	for _, split := range dataset {
		total := len(split.Records)
		for i, record := range split.Records {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			o.progress.Progress(split.Name, i, total)

			row, err := TokenLengthPerEntry(record, s, o.policy)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", split.Name, i, err)
			}
			row.finish()
			row.Split = split.Name
			table.Rows = append(table.Rows, row)
		}
		o.progress.SplitDone(split.Name)
	}
	return table, nil
}
