package chunker

// SentenceChunker splits text on sentence-ending punctuation and packs
// whole sentences greedily into chunks of at most maxLength characters
// (concatenation string included). A single sentence longer than the
// limit is hard-split into fixed windows and emitted immediately.
type SentenceChunker struct {
	base
}

func NewSentenceChunker(maxLength int, concatType ConcatType) *SentenceChunker {
	return &SentenceChunker{base{maxLength: maxLength, concatType: concatType}}
}

func (c *SentenceChunker) Chunk(title, text, concatStr string) ([]string, []string) {
	var chunks, snippets []string
	buffer := ""

	for _, sentence := range splitSentences(text) {
		switch {
		case len(sentence)+len(concatStr) >= c.maxLength:
			// Oversized sentence: bypass the buffer and emit fixed
			// windows right away.
			for _, w := range windows(sentence, c.maxLength-len(concatStr)-1) {
				snippets = append(snippets, w)
				chunks = append(chunks, c.getChunk(w, concatStr))
			}
		case len(buffer)+len(sentence)+len(concatStr) <= c.maxLength:
			if buffer != "" {
				buffer += " " + sentence
			} else {
				buffer = sentence
			}
		default:
			if buffer != "" {
				snippets = append(snippets, buffer)
				chunks = append(chunks, c.getChunk(buffer, concatStr))
			}
			buffer = sentence
		}
	}

	if buffer != "" {
		snippets = append(snippets, buffer)
		chunks = append(chunks, c.getChunk(buffer, concatStr))
	}

	if title != "" {
		chunks = append(chunks, title)
		snippets = append(snippets, title)
	}
	return chunks, snippets
}

// splitSentences breaks text after `.`, `?` or `!` followed by a single
// whitespace character. Two abbreviation shapes are excluded: dotted
// sequences like "e.g." or initials ("A. B."), and capitalized
// two-letter abbreviations like "Dr.".
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if (ch != '.' && ch != '?' && ch != '!') || i+1 >= len(text) || !isSpace(text[i+1]) {
			continue
		}
		if isDottedAbbrev(text, i) || isTitleAbbrev(text, i) {
			continue
		}
		out = append(out, text[start:i+1])
		start = i + 2
		i++
	}
	if start <= len(text) {
		out = append(out, text[start:])
	}
	return out
}

// isDottedAbbrev matches a `w.w` run ending at the punctuation, e.g.
// the second dot of "e.g." or "U.S.".
func isDottedAbbrev(text string, i int) bool {
	return i >= 3 && isWord(text[i-3]) && text[i-2] == '.' && isWord(text[i-1])
}

// isTitleAbbrev matches "Xy." immediately before the separator space.
func isTitleAbbrev(text string, i int) bool {
	return text[i] == '.' && i >= 2 &&
		text[i-2] >= 'A' && text[i-2] <= 'Z' &&
		text[i-1] >= 'a' && text[i-1] <= 'z'
}

func isWord(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
