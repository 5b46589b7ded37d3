package ingest

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/rag/script"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
)

var blankLine = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)

const (
	paragraphSeparator = "\n\n"
	sentenceSeparator  = " "
)

// Chunker packs page text into chunks of at most size bytes. Each chunk after the first
// starts with a tail of the previous one.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(settings config.ChunkingSettings) *Chunker {
	return &Chunker{size: settings.Size, overlap: settings.Overlap}
}

type unit struct {
	text string
	page int
	lang commonModels.LanguageTag
}

type chunkBuffer struct {
	text string
	page int
	lang commonModels.LanguageTag
}

func (b *chunkBuffer) empty() bool { return b.text == "" }

// Split chunks the pages of one document. Chunk indexes run from 0 across the whole document.
func (c *Chunker) Split(doc commonModels.Document, pages []commonModels.Page) []commonModels.DocChunk {
	var chunks []commonModels.DocChunk
	seal := func(b chunkBuffer) {
		index := len(chunks)
		chunks = append(chunks, commonModels.DocChunk{
			Doc:            doc,
			ChunkId:        vectorDB.ChunkID(doc.Id, index),
			Chunk:          b.text,
			PageNum:        b.page,
			ChunkPageOrder: index,
			Language:       b.lang,
		})
	}

	var buf chunkBuffer
	for _, page := range pages {
		for _, u := range splitUnits(page) {
			sep := separatorFor(u.lang)
			if !buf.empty() && len(buf.text)+len(u.text)+2 > c.size {
				seal(buf)
				tail := c.overlapTail(buf, len(sep)+len(u.text))
				buf = chunkBuffer{text: u.text, page: u.page, lang: u.lang}
				if tail != "" {
					buf.text = tail + sep + u.text
				}
				continue
			}
			if buf.empty() {
				buf = chunkBuffer{text: u.text, page: u.page, lang: u.lang}
				continue
			}
			buf.text += sep + u.text
			if u.lang == commonModels.LangAltScript {
				buf.lang = commonModels.LangAltScript
			}
		}
	}
	if !buf.empty() {
		seal(buf)
	}
	return chunks
}

// overlapTail returns the last overlap bytes of a sealed buffer (half that for alt-script),
// starting on a rune boundary and short enough that tail plus the next reserved bytes fit in size.
func (c *Chunker) overlapTail(sealed chunkBuffer, reserved int) string {
	want := c.overlap
	if sealed.lang == commonModels.LangAltScript {
		want = c.overlap / 2
	}
	if room := c.size - reserved; room < want {
		want = room
	}
	if want <= 0 {
		return ""
	}
	if want >= len(sealed.text) {
		return sealed.text
	}
	start := len(sealed.text) - want
	for start < len(sealed.text) && !utf8.RuneStart(sealed.text[start]) {
		start++
	}
	return sealed.text[start:]
}

func separatorFor(lang commonModels.LanguageTag) string {
	if lang == commonModels.LangAltScript {
		return sentenceSeparator
	}
	return paragraphSeparator
}

// splitUnits breaks a page into paragraphs, and alt-script paragraphs further into sentences.
func splitUnits(page commonModels.Page) []unit {
	lang := script.Detect(page.Content)
	var units []unit
	for _, para := range blankLine.Split(page.Content, -1) {
		if lang != commonModels.LangAltScript {
			if p := strings.TrimSpace(para); p != "" {
				units = append(units, unit{text: p, page: page.Number, lang: lang})
			}
			continue
		}
		for _, sentence := range splitSentences(para) {
			units = append(units, unit{text: sentence, page: page.Number, lang: lang})
		}
	}
	return units
}

// splitSentences cuts after every terminator, keeping the terminator with its sentence.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if !script.IsSentenceTerminator(r) {
			continue
		}
		end := i + utf8.RuneLen(r)
		if s := strings.TrimSpace(text[start:end]); s != "" {
			out = append(out, s)
		}
		start = end
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}
