package script

import (
	"strings"
	"testing"

	"github.com/akolanti/DocChat/internal/domain/commonModels"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want commonModels.LanguageTag
	}{
		{"latin", "What is the refund policy?", commonModels.LangDefault},
		{"bengali", "ফেরত নীতি কী?", commonModels.LangAltScript},
		{"mixed", "Section 4: নীতিমালা", commonModels.LangAltScript},
		{"empty", "", commonModels.LangDefault},
		{"devanagari is not bengali", "नमस्ते", commonModels.LangDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.text); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestResponseInstruction(t *testing.T) {
	if !strings.Contains(ResponseInstruction(commonModels.LangAltScript), "Bengali") {
		t.Error("alt-script instruction should ask for Bengali")
	}
	if !strings.Contains(ResponseInstruction(commonModels.LangDefault), "Latin") {
		t.Error("default instruction should ask for Latin script")
	}
}

func TestIsSentenceTerminator(t *testing.T) {
	for _, r := range []rune{'।', '?', '!'} {
		if !IsSentenceTerminator(r) {
			t.Errorf("%q should terminate a sentence", r)
		}
	}
	if IsSentenceTerminator('.') {
		t.Error("'.' is not an alt-script terminator")
	}
}
