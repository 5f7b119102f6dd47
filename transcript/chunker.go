package transcript

import (
	"strings"

	"lectureRAG/core"
)

// ChunkSegments merges consecutive segments into chunks of at most maxChars
// characters, seeding each new chunk with the trailing overlapChars of the one
// just closed so that answers near a boundary are not lost. A single segment
// longer than maxChars is emitted whole; segments are never split.
//
// The output is a pure function of input and configuration, so rebuilding an
// index from the same transcript always produces identical chunks.
func ChunkSegments(segments []core.Segment, maxChars, overlapChars int) []core.Chunk {
	var chunks []core.Chunk
	var text string
	var start, end float64

	for _, seg := range segments {
		segText := strings.TrimSpace(seg.Text)
		if segText == "" {
			continue
		}

		if text != "" && len(text)+len(segText)+1 > maxChars {
			chunks = append(chunks, timestampedChunk(len(chunks), text, start, end))
			// Overlap carries trailing context; the new chunk's span starts
			// at the incoming segment.
			if tail := trailingChars(text, overlapChars); tail != "" {
				text = tail + " " + segText
			} else {
				text = segText
			}
			start = seg.Start
			end = seg.End
			continue
		}

		if text == "" {
			start = seg.Start
			text = segText
		} else {
			text += " " + segText
		}
		end = seg.End
	}

	if text != "" {
		chunks = append(chunks, timestampedChunk(len(chunks), text, start, end))
	}
	return chunks
}

// ChunkText is the fallback for transcripts without timestamps: chunk on word
// boundaries, repeating the last overlapWords words across each boundary.
// Start/End are nil for every chunk in this mode.
func ChunkText(text string, maxChars, overlapWords int) []core.Chunk {
	var chunks []core.Chunk
	var words []string
	var size int // accumulated text length including separating spaces

	flush := func() {
		if len(words) == 0 {
			return
		}
		chunks = append(chunks, core.Chunk{
			Index: len(chunks),
			Text:  strings.Join(words, " "),
		})
	}

	for _, word := range strings.Fields(text) {
		if size > 0 && size+len(word)+1 > maxChars {
			flush()
			keep := overlapWords
			if keep > len(words) {
				keep = len(words)
			}
			words = append(words[:0:0], words[len(words)-keep:]...)
			words = append(words, word)
			size = 0
			for _, w := range words {
				size += len(w) + 1
			}
			continue
		}
		words = append(words, word)
		size += len(word) + 1
	}
	flush()
	return chunks
}

func timestampedChunk(index int, text string, start, end float64) core.Chunk {
	s, e := start, end
	return core.Chunk{Index: index, Text: text, Start: &s, End: &e}
}

// trailingChars returns the last n characters of s, cut on a rune boundary.
func trailingChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
