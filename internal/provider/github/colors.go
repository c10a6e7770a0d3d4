package github

import (
	_ "embed"
	"encoding/json"
)

// defaultLanguageColor 是语言存在但色表中没有对应条目时的兜底色值。
const defaultLanguageColor = "#586069"

//go:embed data/language_colors.json
var languageColorsJSON []byte

var languageColors = mustLoadColors()

func mustLoadColors() map[string]string {
	m := make(map[string]string)
	// 色表随二进制打包，解析失败属于构建产物损坏，直接 panic 尽早暴露。
	if err := json.Unmarshal(languageColorsJSON, &m); err != nil {
		panic("github: language_colors.json 损坏：" + err.Error())
	}
	return m
}

// languageColor 返回语言对应的展示色值；未收录的语言用兜底色。
func languageColor(lang string) string {
	if c, ok := languageColors[lang]; ok {
		return c
	}
	return defaultLanguageColor
}
