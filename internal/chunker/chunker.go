// Package chunker segments document text into bounded-length pieces for
// the embedding pipeline. Each chunk is the text sent for embedding
// (optionally prefixed/suffixed with metadata); the matching snippet is
// the underlying excerpt kept for display and summarization.
package chunker

import "strings"

// ConcatType controls where the metadata string is attached.
type ConcatType string

const (
	ConcatNone   ConcatType = ""
	ConcatPrefix ConcatType = "prefix"
	ConcatSuffix ConcatType = "suffix"
)

// Chunker is the common contract for the interchangeable strategies.
// The title, when non-empty, is always appended as one final whole
// chunk/snippet pair with no concatenation applied.
type Chunker interface {
	Chunk(title, text, concatStr string) (chunks []string, snippets []string)
	ConcatString(title, description string) string
}

type base struct {
	maxLength  int
	concatType ConcatType
}

// ConcatString builds the metadata string attached to every chunk.
// Empty title/description parts are skipped.
func (b base) ConcatString(title, description string) string {
	if b.concatType != ConcatPrefix && b.concatType != ConcatSuffix {
		return ""
	}
	parts := make([]string, 0, 2)
	if title != "" {
		parts = append(parts, title)
	}
	if description != "" {
		parts = append(parts, description)
	}
	return strings.Join(parts, " ")
}

func (b base) getChunk(snippet, concatStr string) string {
	switch b.concatType {
	case ConcatPrefix:
		return concatStr + " " + snippet
	case ConcatSuffix:
		return snippet + " " + concatStr
	default:
		return snippet
	}
}

// windows splits text into fixed-length pieces, in order, no overlap.
func windows(text string, size int) []string {
	if size < 1 {
		size = 1
	}
	var out []string
	for i := 0; i < len(text); i += size {
		end := i + size
		if end > len(text) {
			end = len(text)
		}
		out = append(out, text[i:end])
	}
	return out
}
