package stats

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField 记录缺少 schema 要求的字段
	ErrMissingField = errors.New("记录缺少必需字段")
	// ErrMalformedRecord 字段类型与 schema 不符
	ErrMalformedRecord = errors.New("记录格式错误")
)

// Record 一条数据集记录（JSONL 中的一行）
type Record map[string]interface{}

// Split 数据集的一个划分
type Split struct {
	Name    string
	Records []Record
}

// Dataset 按迭代顺序排列的划分
type Dataset []Split

// Len 返回全部记录数
func (d Dataset) Len() int {
	n := 0
	for _, s := range d {
		n += len(s.Records)
	}
	return n
}

// SplitNames 返回划分名称
func (d Dataset) SplitNames() []string {
	names := make([]string, len(d))
	for i, s := range d {
		names[i] = s.Name
	}
	return names
}

// text 读取记录中的文本字段
// 字段不存在返回 ErrMissingField；值为 null 视为空文本
func (r Record) text(field string) (string, error) {
	v, ok := r[field]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	return asText(field, v)
}

func asText(field string, v interface{}) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	default:
		return "", fmt.Errorf("%w: 字段 %s 不是文本 (%T)", ErrMalformedRecord, field, v)
	}
}

// passage 知识库记录中的段落
type passage struct {
	Type string
	Text string
}

// passages 读取知识库记录的段落，取每个段落 text 列表的第一个元素
func (r Record) passages(field string) ([]passage, error) {
	raw, ok := r["passages"]
	if !ok {
		return nil, fmt.Errorf("%w: passages", ErrMissingField)
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: passages 不是列表 (%T)", ErrMalformedRecord, raw)
	}

	result := make([]passage, 0, len(items))
	for i, item := range items {
		p, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: passages[%d] 不是对象", ErrMalformedRecord, i)
		}
		typ, ok := p["type"]
		if !ok {
			return nil, fmt.Errorf("%w: passages[%d].type", ErrMissingField, i)
		}
		texts, ok := p[field]
		if !ok {
			return nil, fmt.Errorf("%w: passages[%d].%s", ErrMissingField, i, field)
		}
		first, err := firstText(texts)
		if err != nil {
			return nil, fmt.Errorf("passages[%d].%s: %w", i, field, err)
		}
		result = append(result, passage{Type: fmt.Sprint(typ), Text: first})
	}
	return result, nil
}

func firstText(v interface{}) (string, error) {
	switch t := v.(type) {
	case []interface{}:
		if len(t) == 0 {
			return "", fmt.Errorf("%w: 文本列表为空", ErrMalformedRecord)
		}
		return asText("text", t[0])
	case []string:
		if len(t) == 0 {
			return "", fmt.Errorf("%w: 文本列表为空", ErrMalformedRecord)
		}
		return t[0], nil
	default:
		return "", fmt.Errorf("%w: 文本不是列表 (%T)", ErrMalformedRecord, v)
	}
}
