package provider

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseCount 把站点展示用的数字文本解析为非负整数。
//
// 容错规则（逐级回退，永不报错）：
// - 去掉千分位逗号后是纯数字：直接取值（"1,234" => 1234）
// - "6.1k" / "2m" 后缀：按千/百万换算取整
// - 其余文本：取第一段连续数字（"150 stars today" => 150）
// - 完全没有数字：返回 0
func ParseCount(text string) int {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	if text == "" {
		return 0
	}

	if n, err := strconv.Atoi(text); err == nil && n >= 0 {
		return n
	}

	lower := strings.ToLower(text)
	if strings.HasSuffix(lower, "k") {
		if f, err := strconv.ParseFloat(lower[:len(lower)-1], 64); err == nil {
			return int(f * 1000)
		}
	}
	if strings.HasSuffix(lower, "m") {
		if f, err := strconv.ParseFloat(lower[:len(lower)-1], 64); err == nil {
			return int(f * 1000000)
		}
	}

	return firstInt(text)
}

// firstInt 取文本中第一段连续数字；没有则返回 0。
func firstInt(s string) int {
	start := -1
	for i, r := range s {
		if unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			n, _ := strconv.Atoi(s[start:i])
			return n
		}
	}
	if start >= 0 {
		n, _ := strconv.Atoi(s[start:])
		return n
	}
	return 0
}

// NormSpace 把连续空白折叠为单个空格（站点文本常带换行和缩进）。
func NormSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
