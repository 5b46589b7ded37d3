package commonModels

import "time"

type Document struct {
	Id                  string    `json:"source_doc_id"`
	Name                string    `json:"doc_name"`
	Category            string    `json:"category"`
	LastIngestTimestamp time.Time `json:"ingested_at"`
	ContentType         DocType   `json:"contentType"`
}

// DocChunk is one unit of retrievable text. Doc.Name is the original filename shown in citations.
type DocChunk struct {
	Doc            Document
	ChunkId        string      `json:"chunk_id"`
	Chunk          string      `json:"content"`
	PageNum        int         `json:"page_num"`
	ChunkPageOrder int         `json:"chunk_order"`
	Language       LanguageTag `json:"language"`
}

// Page is the extracted text of one 1-based page.
type Page struct {
	Number  int
	Content string
}

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var ODT DocType = "ODT"
var RTF DocType = "RTF"
var TXT DocType = "TXT"
var ERR DocType = "ERROR"

type LanguageTag string

const (
	LangDefault   LanguageTag = "default"
	LangAltScript LanguageTag = "alt_script"
)

type ExtractionMethod string

const (
	ExtractionDirect ExtractionMethod = "direct"
	ExtractionOCR    ExtractionMethod = "ocr"
)

// Evidence is a reranked chunk handed to the answer composer.
type Evidence struct {
	Chunk DocChunk
	Score float64
}

type SourceRef struct {
	Document string `json:"document"`
	Page     int    `json:"page"`
}
