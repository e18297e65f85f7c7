package stats

import (
	"bytes"
	"encoding/json"
)

const (
	// TotalColumn 总token长度列
	TotalColumn = "total_token_length"
	// SplitColumn 划分列
	SplitColumn = "split"
)

// TokenLengthRow 一条记录的token长度统计
// Total 恒等于 Counts 中各项之和
type TokenLengthRow struct {
	Split  string
	Fields []string
	Counts map[string]int
	Total  int
}

func newTokenLengthRow(split string) TokenLengthRow {
	return TokenLengthRow{Split: split, Counts: make(map[string]int)}
}

func (r *TokenLengthRow) put(key string, n int, policy PassagePolicy) {
	old, exists := r.Counts[key]
	if !exists {
		r.Fields = append(r.Fields, key)
	}
	if exists && policy == PassageSum {
		n += old
	}
	r.Counts[key] = n
}

func (r *TokenLengthRow) finish() {
	total := 0
	for _, key := range r.Fields {
		total += r.Counts[key]
	}
	r.Total = total
}

// Value 读取数值列，支持 total_token_length
func (r TokenLengthRow) Value(column string) (int, bool) {
	if column == TotalColumn {
		return r.Total, true
	}
	n, ok := r.Counts[column]
	return n, ok
}

// ToMap 转换为扁平map
func (r TokenLengthRow) ToMap() map[string]interface{} {
	m := make(map[string]interface{}, len(r.Fields)+2)
	for _, key := range r.Fields {
		m[key] = r.Counts[key]
	}
	m[TotalColumn] = r.Total
	m[SplitColumn] = r.Split
	return m
}

// MarshalJSON 按字段顺序输出扁平对象
func (r TokenLengthRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, key := range r.Fields {
		if err := writeMember(&buf, key, r.Counts[key]); err != nil {
			return nil, err
		}
		buf.WriteByte(',')
	}
	if err := writeMember(&buf, TotalColumn, r.Total); err != nil {
		return nil, err
	}
	buf.WriteByte(',')
	if err := writeMember(&buf, SplitColumn, r.Split); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, value interface{}) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// TokenLengthTable token长度表，每条记录一行
type TokenLengthTable struct {
	Rows []TokenLengthRow `json:"rows"`
}

// Len 行数
func (t *TokenLengthTable) Len() int {
	return len(t.Rows)
}

// Columns 返回列名：字段列按首次出现顺序，然后是 total_token_length 和 split
func (t *TokenLengthTable) Columns() []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range t.Rows {
		for _, key := range row.Fields {
			if !seen[key] {
				seen[key] = true
				cols = append(cols, key)
			}
		}
	}
	return append(cols, TotalColumn, SplitColumn)
}

// Splits 返回出现过的划分，保持顺序
func (t *TokenLengthTable) Splits() []string {
	seen := make(map[string]bool)
	var splits []string
	for _, row := range t.Rows {
		if !seen[row.Split] {
			seen[row.Split] = true
			splits = append(splits, row.Split)
		}
	}
	return splits
}

// SplitValues 某一划分在某列上的取值
type SplitValues struct {
	Split  string `json:"split"`
	Values []int  `json:"values"`
}

// GroupBySplit 按划分分组取出某列的值，缺失该列的行被跳过
func (t *TokenLengthTable) GroupBySplit(column string) []SplitValues {
	index := make(map[string]int)
	var groups []SplitValues
	for _, row := range t.Rows {
		v, ok := row.Value(column)
		if !ok {
			continue
		}
		i, exists := index[row.Split]
		if !exists {
			i = len(groups)
			index[row.Split] = i
			groups = append(groups, SplitValues{Split: row.Split})
		}
		groups[i].Values = append(groups[i].Values, v)
	}
	return groups
}

// Maps 转换为 map 列表，用于导出
func (t *TokenLengthTable) Maps() []map[string]interface{} {
	result := make([]map[string]interface{}, len(t.Rows))
	for i, row := range t.Rows {
		result[i] = row.ToMap()
	}
	return result
}
