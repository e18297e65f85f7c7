package utils

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedJSONL JSONL内容无法解析
var ErrMalformedJSONL = errors.New("JSONL格式错误")

// maxLineSize 单行JSONL最大长度
const maxLineSize = 64 * 1024 * 1024

// ParseJSONL 解析JSONL格式，空行跳过，出错时报告行号
func ParseJSONL(data []byte) ([]map[string]interface{}, error) {
	return ReadJSONLines(bytes.NewReader(data))
}

// ReadJSONLines 逐行读取JSONL
func ReadJSONLines(r io.Reader) ([]map[string]interface{}, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	results := make([]map[string]interface{}, 0)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var item map[string]interface{}
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, fmt.Errorf("%w: 第%d行解析失败: %v", ErrMalformedJSONL, lineNo, err)
		}
		results = append(results, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取JSONL失败: %w", err)
	}

	return results, nil
}

// WriteJSONLines 写入JSONL格式的数据
func WriteJSONLines(w io.Writer, data []map[string]interface{}) error {
	for _, item := range data {
		jsonData, err := json.Marshal(item)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, string(jsonData)); err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV 按给定列顺序写入CSV，缺失的单元格留空
func WriteCSV(w io.Writer, headers []string, data []map[string]interface{}) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("写入CSV标题失败: %w", err)
	}

	record := make([]string, len(headers))
	for _, item := range data {
		for i, header := range headers {
			value, ok := item[header]
			if !ok || value == nil {
				record[i] = ""
				continue
			}
			record[i] = fmt.Sprintf("%v", value)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("写入CSV数据失败: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV写入失败: %w", err)
	}
	return nil
}

// ConvertToCSV 转换为CSV格式
func ConvertToCSV(headers []string, data []map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, headers, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
