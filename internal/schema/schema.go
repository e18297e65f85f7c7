package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedSchema 不支持的schema标签
var ErrUnsupportedSchema = errors.New("不支持的schema")

// Schema BigBio 数据集的 schema 枚举
type Schema int

const (
	// KB 知识库schema，文本位于 passages 中
	KB Schema = iota + 1
	Text
	QA
	TE
	TP
	Pairs
	T2T
)

// BigBioPrefix BigBio schema 标签前缀
const BigBioPrefix = "bigbio_"

type variant struct {
	tag    string
	fields []string
}

var variants = map[Schema]variant{
	KB:    {tag: "bigbio_kb", fields: []string{"text"}},
	Text:  {tag: "bigbio_text", fields: []string{"text"}},
	QA:    {tag: "bigbio_qa", fields: []string{"question", "context"}},
	TE:    {tag: "bigbio_te", fields: []string{"premise", "hypothesis"}},
	TP:    {tag: "bigbio_tp", fields: []string{"text_1", "text_2"}},
	Pairs: {tag: "bigbio_pairs", fields: []string{"text_1", "text_2"}},
	T2T:   {tag: "bigbio_t2t", fields: []string{"text_1", "text_2"}},
}

// All 按声明顺序返回全部 schema
func All() []Schema {
	return []Schema{KB, Text, QA, TE, TP, Pairs, T2T}
}

// Parse 解析 schema 标签
func Parse(tag string) (Schema, error) {
	for s, v := range variants {
		if v.tag == tag {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedSchema, tag)
}

// IsBigBio 判断标签是否为 BigBio schema（source schema 返回 false）
func IsBigBio(tag string) bool {
	return strings.HasPrefix(tag, BigBioPrefix)
}

// Tag 返回 schema 标签
func (s Schema) Tag() string {
	if v, ok := variants[s]; ok {
		return v.tag
	}
	return ""
}

// TextFields 返回需要分词的文本字段
// KB schema 的字段从每个 passage 中读取
func (s Schema) TextFields() []string {
	v, ok := variants[s]
	if !ok {
		return nil
	}
	fields := make([]string, len(v.fields))
	copy(fields, v.fields)
	return fields
}

// IsPassageBased 是否按 passage 统计
func (s Schema) IsPassageBased() bool {
	return s == KB
}

// Valid 是否为已知 schema
func (s Schema) Valid() bool {
	_, ok := variants[s]
	return ok
}

func (s Schema) String() string {
	if tag := s.Tag(); tag != "" {
		return tag
	}
	return fmt.Sprintf("Schema(%d)", int(s))
}

// MarshalText 实现 encoding.TextMarshaler
func (s Schema) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, int(s))
	}
	return []byte(s.Tag()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (s *Schema) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
