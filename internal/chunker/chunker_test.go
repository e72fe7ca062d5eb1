package chunker

import (
	"reflect"
	"strings"
	"testing"
)

func TestCharacterChunkerLengthBound(t *testing.T) {
	c := NewCharacterChunker(10, ConcatNone)
	text := strings.Repeat("abcde", 7) // 35 chars
	chunks, snippets := c.Chunk("", text, "")

	if len(chunks) != 4 {
		t.Fatalf("chunks: want=4 got=%d", len(chunks))
	}
	for i, ch := range chunks {
		if len(ch) > 10 {
			t.Fatalf("chunk %d exceeds max length: %q", i, ch)
		}
		if ch != snippets[i] {
			t.Fatalf("chunk %d differs from snippet with no concat", i)
		}
	}
	if got := strings.Join(snippets, ""); got != text {
		t.Fatalf("snippets do not reassemble text: %q", got)
	}
}

func TestCharacterChunkerPrefixConcat(t *testing.T) {
	c := NewCharacterChunker(20, ConcatPrefix)
	concat := c.ConcatString("Title", "Desc")
	if concat != "Title Desc" {
		t.Fatalf("ConcatString: got=%q", concat)
	}

	chunks, snippets := c.Chunk("Title", "abcdefghijklmnop", concat)

	// window = 20 - len("Title Desc") - 1 = 9
	if snippets[0] != "abcdefghi" {
		t.Fatalf("snippet window: got=%q", snippets[0])
	}
	if chunks[0] != "Title Desc abcdefghi" {
		t.Fatalf("prefixed chunk: got=%q", chunks[0])
	}
	last := len(chunks) - 1
	if chunks[last] != "Title" || snippets[last] != "Title" {
		t.Fatalf("title chunk not appended: chunks=%v", chunks)
	}
}

func TestCharacterChunkerEmptyText(t *testing.T) {
	c := NewCharacterChunker(10, ConcatNone)
	chunks, snippets := c.Chunk("Only title", "", "")
	if len(chunks) != 1 || chunks[0] != "Only title" {
		t.Fatalf("chunks: got=%v", chunks)
	}
	if len(snippets) != 1 || snippets[0] != "Only title" {
		t.Fatalf("snippets: got=%v", snippets)
	}
}

func TestSplitSentences(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{
			in:   "One sentence. Another one! A third? Done",
			want: []string{"One sentence.", "Another one!", "A third?", "Done"},
		},
		{
			in:   "See e.g. the docs. Next sentence.",
			want: []string{"See e.g. the docs.", "Next sentence.", ""},
		},
		{
			in:   "Dr. Smith agreed. So did Mr. Jones.",
			want: []string{"Dr. Smith agreed.", "So did Mr. Jones.", ""},
		},
		{
			in:   "No terminator here",
			want: []string{"No terminator here"},
		},
	}
	for _, tc := range cases {
		if got := splitSentences(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("splitSentences(%q): want=%v got=%v", tc.in, tc.want, got)
		}
	}
}

func TestSentenceChunkerKeepsSentencesWhole(t *testing.T) {
	c := NewSentenceChunker(40, ConcatNone)
	text := "First sentence here. Second one now. Third sentence is a bit longer."
	chunks, snippets := c.Chunk("", text, "")

	want := []string{
		"First sentence here. Second one now.",
		"Third sentence is a bit longer.",
	}
	if !reflect.DeepEqual(chunks, want) {
		t.Fatalf("chunks: want=%v got=%v", want, chunks)
	}
	if !reflect.DeepEqual(snippets, want) {
		t.Fatalf("snippets: want=%v got=%v", want, snippets)
	}
}

func TestSentenceChunkerHardSplitsOversized(t *testing.T) {
	c := NewSentenceChunker(10, ConcatNone)
	long := strings.Repeat("x", 25) // no terminator, single oversized sentence
	chunks, _ := c.Chunk("", long, "")

	// window = 10 - 0 - 1 = 9
	if len(chunks) != 3 {
		t.Fatalf("chunks: want=3 got=%d (%v)", len(chunks), chunks)
	}
	for i, ch := range chunks {
		if len(ch) > 9 {
			t.Fatalf("hard-split chunk %d too long: %q", i, ch)
		}
	}
	if strings.Join(chunks, "") != long {
		t.Fatalf("hard split lost characters")
	}
}

func TestSentenceChunkerFlushThenNewBuffer(t *testing.T) {
	c := NewSentenceChunker(25, ConcatNone)
	text := "Short one. Second short. Third short."
	chunks, _ := c.Chunk("", text, "")

	// 10+13 still fits the 25 budget; adding the third would not.
	want := []string{"Short one. Second short.", "Third short."}
	if !reflect.DeepEqual(chunks, want) {
		t.Fatalf("chunks: want=%v got=%v", want, chunks)
	}
}

func TestSentenceChunkerAppendsTitleWithoutConcat(t *testing.T) {
	c := NewSentenceChunker(100, ConcatSuffix)
	chunks, snippets := c.Chunk("My Title", "Hello there.", "ctx")

	if chunks[0] != "Hello there. ctx" {
		t.Fatalf("suffixed chunk: got=%q", chunks[0])
	}
	if snippets[0] != "Hello there." {
		t.Fatalf("snippet keeps raw excerpt: got=%q", snippets[0])
	}
	last := len(chunks) - 1
	if chunks[last] != "My Title" {
		t.Fatalf("title chunk should not carry concat: got=%q", chunks[last])
	}
}
