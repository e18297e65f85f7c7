package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"biostats-go/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func kbRecord(passages ...[2]string) Record {
	items := make([]interface{}, 0, len(passages))
	for _, p := range passages {
		items = append(items, map[string]interface{}{
			"type": p[0],
			"text": []interface{}{p[1]},
		})
	}
	return Record{"id": "doc", "passages": items}
}

func qaRecord(question, context string) Record {
	return Record{"question": question, "context": context}
}

type recordingProgress struct {
	calls []string
	done  []string
}

func (p *recordingProgress) Progress(split string, done, total int) {
	p.calls = append(p.calls, fmt.Sprintf("%s:%d/%d", split, done, total))
}

func (p *recordingProgress) SplitDone(split string) {
	p.done = append(p.done, split)
}

func TestTokenLengthPerEntry_TextSchemas(t *testing.T) {
	tests := []struct {
		name   string
		schema schema.Schema
		record Record
		want   map[string]int
		fields []string
	}{
		{
			name:   "qa",
			schema: schema.QA,
			record: qaRecord("what binds EGFR ?", "gefitinib binds EGFR"),
			want:   map[string]int{"question": 4, "context": 3},
			fields: []string{"question", "context"},
		},
		{
			name:   "te",
			schema: schema.TE,
			record: Record{"premise": "a b", "hypothesis": "c"},
			want:   map[string]int{"premise": 2, "hypothesis": 1},
			fields: []string{"premise", "hypothesis"},
		},
		{
			name:   "pairs with null value",
			schema: schema.Pairs,
			record: Record{"text_1": "x y z", "text_2": nil},
			want:   map[string]int{"text_1": 3, "text_2": 0},
			fields: []string{"text_1", "text_2"},
		},
		{
			name:   "text with empty string",
			schema: schema.Text,
			record: Record{"text": ""},
			want:   map[string]int{"text": 0},
			fields: []string{"text"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, err := TokenLengthPerEntry(tt.record, tt.schema, PassageLastWriteWins)
			require.NoError(t, err)
			assert.Equal(t, tt.want, row.Counts)
			assert.Equal(t, tt.fields, row.Fields)
		})
	}
}

func TestTokenLengthPerEntry_KBLastWriteWins(t *testing.T) {
	record := kbRecord(
		[2]string{"title", "one two three"},
		[2]string{"abstract", "a b c d e"},
		[2]string{"title", "only two"},
	)

	row, err := TokenLengthPerEntry(record, schema.KB, PassageLastWriteWins)
	require.NoError(t, err)
	assert.Equal(t, 2, row.Counts["title"])
	assert.Equal(t, 5, row.Counts["abstract"])
	assert.Equal(t, []string{"title", "abstract"}, row.Fields)
}

func TestTokenLengthPerEntry_KBSum(t *testing.T) {
	record := kbRecord(
		[2]string{"title", "one two three"},
		[2]string{"title", "only two"},
	)

	row, err := TokenLengthPerEntry(record, schema.KB, PassageSum)
	require.NoError(t, err)
	assert.Equal(t, 5, row.Counts["title"])
}

func TestTokenLengthPerEntry_Errors(t *testing.T) {
	tests := []struct {
		name   string
		schema schema.Schema
		record Record
		err    error
	}{
		{"missing qa field", schema.QA, Record{"question": "q"}, ErrMissingField},
		{"non text value", schema.Text, Record{"text": 42.0}, ErrMalformedRecord},
		{"kb without passages", schema.KB, Record{"id": "1"}, ErrMissingField},
		{"kb with null passages", schema.KB, Record{"passages": nil}, ErrMalformedRecord},
		{
			"passage without type",
			schema.KB,
			Record{"passages": []interface{}{map[string]interface{}{"text": []interface{}{"x"}}}},
			ErrMissingField,
		},
		{
			"passage with empty text list",
			schema.KB,
			Record{"passages": []interface{}{map[string]interface{}{"type": "title", "text": []interface{}{}}}},
			ErrMalformedRecord,
		},
		{
			"passage text not a list",
			schema.KB,
			Record{"passages": []interface{}{map[string]interface{}{"type": "title", "text": "x"}}},
			ErrMalformedRecord,
		},
		{"invalid schema", schema.Schema(0), Record{}, schema.ErrUnsupportedSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TokenLengthPerEntry(tt.record, tt.schema, PassageLastWriteWins)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestParseTokenLength_OrderAndSplits(t *testing.T) {
	dataset := Dataset{
		{Name: "train", Records: []Record{qaRecord("a", "b c"), qaRecord("d e", "f")}},
		{Name: "test", Records: []Record{qaRecord("g h i", "")}},
	}

	table, err := ParseTokenLength(context.Background(), dataset, schema.QA)
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())

	assert.Equal(t, "train", table.Rows[0].Split)
	assert.Equal(t, "train", table.Rows[1].Split)
	assert.Equal(t, "test", table.Rows[2].Split)

	assert.Equal(t, 3, table.Rows[0].Total)
	assert.Equal(t, 3, table.Rows[1].Total)
	assert.Equal(t, 3, table.Rows[2].Total)
	assert.Equal(t, 2, table.Rows[1].Counts["question"])

	assert.Equal(t, []string{"train", "test"}, table.Splits())
	assert.Equal(t, []string{"question", "context", TotalColumn, SplitColumn}, table.Columns())
}

func TestParseTokenLength_KBDuplicateTitle(t *testing.T) {
	dataset := Dataset{{Name: "train", Records: []Record{kbRecord(
		[2]string{"title", "first title here"},
		[2]string{"title", "second"},
	)}}}

	table, err := ParseTokenLength(context.Background(), dataset, schema.KB)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, 1, table.Rows[0].Counts["title"])
	assert.Equal(t, 1, table.Rows[0].Total)

	table, err = ParseTokenLength(context.Background(), dataset, schema.KB, WithPassagePolicy(PassageSum))
	require.NoError(t, err)
	assert.Equal(t, 4, table.Rows[0].Total)
}

func TestParseTokenLength_ErrorAbortsWholeTable(t *testing.T) {
	dataset := Dataset{
		{Name: "train", Records: []Record{qaRecord("a", "b")}},
		{Name: "test", Records: []Record{{"question": "only"}}},
	}

	table, err := ParseTokenLength(context.Background(), dataset, schema.QA)
	assert.Nil(t, table)
	assert.ErrorIs(t, err, ErrMissingField)
	assert.True(t, strings.HasPrefix(err.Error(), "test[0]"))
}

func TestParseTokenLength_Progress(t *testing.T) {
	dataset := Dataset{
		{Name: "train", Records: []Record{qaRecord("a", "b"), qaRecord("c", "d")}},
		{Name: "test", Records: []Record{qaRecord("e", "f")}},
	}

	p := &recordingProgress{}
	_, err := ParseTokenLength(context.Background(), dataset, schema.QA, WithProgress(p))
	require.NoError(t, err)
	assert.Equal(t, []string{"train:0/2", "train:1/2", "test:0/1"}, p.calls)
	assert.Equal(t, []string{"train", "test"}, p.done)
}

func TestParseTokenLength_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dataset := Dataset{{Name: "train", Records: []Record{qaRecord("a", "b")}}}
	_, err := ParseTokenLength(ctx, dataset, schema.QA)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseTokenLength_EmptyDataset(t *testing.T) {
	table, err := ParseTokenLength(context.Background(), Dataset{}, schema.Text)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Empty(t, table.Splits())
}

func TestTokenLengthRow_MarshalJSON(t *testing.T) {
	dataset := Dataset{{Name: "validation", Records: []Record{qaRecord("a b", "c")}}}
	table, err := ParseTokenLength(context.Background(), dataset, schema.QA)
	require.NoError(t, err)

	data, err := json.Marshal(table.Rows[0])
	require.NoError(t, err)
	assert.Equal(t, `{"question":2,"context":1,"total_token_length":3,"split":"validation"}`, string(data))
}

func TestParsePassagePolicy(t *testing.T) {
	p, err := ParsePassagePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PassageLastWriteWins, p)

	p, err = ParsePassagePolicy("sum")
	require.NoError(t, err)
	assert.Equal(t, PassageSum, p)
	assert.Equal(t, "sum", p.String())

	_, err = ParsePassagePolicy("average")
	assert.Error(t, err)
}

func TestParseTokenLength_TotalEqualsSum(t *testing.T) {
	word := rapid.StringMatching(`[a-z\t\n]{0,6}`)
	text := rapid.Custom(func(t *rapid.T) string {
		words := rapid.SliceOfN(word, 0, 8).Draw(t, "words")
		return strings.Join(words, " ")
	})

	rapid.Check(t, func(t *rapid.T) {
		s := rapid.SampledFrom([]schema.Schema{schema.Text, schema.QA, schema.TE, schema.TP, schema.Pairs, schema.T2T}).Draw(t, "schema")
		splitNames := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z]{1,8}`), 1, 3, rapid.ID[string]).Draw(t, "splits")

		dataset := make(Dataset, 0, len(splitNames))
		expected := 0
		for _, name := range splitNames {
			n := rapid.IntRange(0, 5).Draw(t, "records")
			split := Split{Name: name}
			for i := 0; i < n; i++ {
				record := Record{}
				for _, field := range s.TextFields() {
					record[field] = text.Draw(t, field)
				}
				split.Records = append(split.Records, record)
			}
			expected += n
			dataset = append(dataset, split)
		}

		table, err := ParseTokenLength(context.Background(), dataset, s)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if table.Len() != expected {
			t.Fatalf("rows = %d, want %d", table.Len(), expected)
		}

		i := 0
		for _, split := range dataset {
			for range split.Records {
				row := table.Rows[i]
				if row.Split != split.Name {
					t.Fatalf("row %d split = %q, want %q", i, row.Split, split.Name)
				}
				sum := 0
				for _, field := range s.TextFields() {
					sum += row.Counts[field]
				}
				if row.Total != sum {
					t.Fatalf("row %d total = %d, sum = %d", i, row.Total, sum)
				}
				i++
			}
		}
	})
}
