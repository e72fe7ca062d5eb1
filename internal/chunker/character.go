package chunker

// CharacterChunker splits text into fixed-length windows with no
// boundary awareness.
type CharacterChunker struct {
	base
}

func NewCharacterChunker(maxLength int, concatType ConcatType) *CharacterChunker {
	return &CharacterChunker{base{maxLength: maxLength, concatType: concatType}}
}

func (c *CharacterChunker) Chunk(title, text, concatStr string) ([]string, []string) {
	snippetLen := c.maxLength
	if c.concatType != ConcatNone && len(concatStr) > 0 {
		snippetLen = c.maxLength - len(concatStr) - 1
	}

	snippets := windows(text, snippetLen)
	chunks := make([]string, 0, len(snippets)+1)
	for _, snippet := range snippets {
		chunks = append(chunks, c.getChunk(snippet, concatStr))
	}

	if title != "" {
		chunks = append(chunks, title)
		snippets = append(snippets, title)
	}
	return chunks, snippets
}
