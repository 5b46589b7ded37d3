// Package script classifies text by writing system. Bengali is the only
// non-Latin script the pipeline special-cases.
package script

import "github.com/akolanti/DocChat/internal/domain/commonModels"

const (
	bengaliBlockStart = 0x0980
	bengaliBlockEnd   = 0x09FF
)

// HasAltScript reports whether any rune falls in the Bengali block (U+0980–U+09FF).
func HasAltScript(text string) bool {
	for _, r := range text {
		if r >= bengaliBlockStart && r <= bengaliBlockEnd {
			return true
		}
	}
	return false
}

func Detect(text string) commonModels.LanguageTag {
	if HasAltScript(text) {
		return commonModels.LangAltScript
	}
	return commonModels.LangDefault
}

// ResponseInstruction tells the model which script to answer in.
func ResponseInstruction(tag commonModels.LanguageTag) string {
	if tag == commonModels.LangAltScript {
		return "The question is written in Bengali. Write the entire answer in Bengali (বাংলা) script."
	}
	return "The question is written in English. Write the entire answer in English using Latin script."
}

// IsSentenceTerminator covers the danda and the Latin marks used to split alt-script text.
func IsSentenceTerminator(r rune) bool {
	return r == '।' || r == '?' || r == '!'
}
