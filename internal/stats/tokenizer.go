package stats

import "strings"

var lineBreakRemover = strings.NewReplacer("\t", "", "\n", "")

// Tokenize 朴素空白分词
// 去掉首尾空白并删除所有制表符和换行符后，按单个空格切分。
// 连续空格会产生空字符串token，计入长度。
func Tokenize(text string) (string, []string) {
	if text == "" {
		return text, []string{}
	}
	text = strings.TrimSpace(text)
	text = lineBreakRemover.Replace(text)
	return text, strings.Split(text, " ")
}

// TokenCount 返回文本的token数量
func TokenCount(text string) int {
	_, tokens := Tokenize(text)
	return len(tokens)
}
