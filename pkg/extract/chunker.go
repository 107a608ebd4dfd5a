package extract

import "strings"

// Chunker splits text into chunks of roughly Size characters with Overlap
// characters carried between consecutive chunks. It prefers splitting on
// paragraph breaks, then lines, then words, falling back to fixed windows.
type Chunker struct {
	Size    int
	Overlap int
}

var chunkSeparators = []string{"\n\n", "\n", " "}

// NewChunker returns a chunker with the given bounds. Non-positive values
// fall back to the defaults (1000/200).
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap <= 0 || overlap >= size {
		overlap = 200
		if overlap >= size {
			overlap = size / 5
		}
	}
	return &Chunker{Size: size, Overlap: overlap}
}

// Split breaks text into chunks. Empty input yields no chunks.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return c.split(text, chunkSeparators)
}

func (c *Chunker) split(text string, separators []string) []string {
	if len(text) <= c.Size {
		return []string{text}
	}

	if len(separators) == 0 {
		return c.window(text)
	}

	sep := separators[0]
	pieces := strings.Split(text, sep)
	if len(pieces) == 1 {
		return c.split(text, separators[1:])
	}

	// Oversized pieces recurse onto finer separators before merging.
	var flat []string
	for _, piece := range pieces {
		if len(piece) > c.Size {
			flat = append(flat, c.split(piece, separators[1:])...)
		} else {
			flat = append(flat, piece)
		}
	}

	return c.merge(flat, sep)
}

// merge greedily packs pieces into chunks up to Size, carrying Overlap
// characters of each chunk's tail into the next.
func (c *Chunker) merge(pieces []string, sep string) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
		if len(chunks) > 0 && c.Overlap > 0 {
			// Carry runes, not bytes: a byte slice could cut a
			// multibyte rune and corrupt the chunk.
			tail := []rune(chunks[len(chunks)-1])
			if len(tail) > c.Overlap {
				tail = tail[len(tail)-c.Overlap:]
			}
			current.WriteString(string(tail))
			current.WriteString(sep)
		}
	}

	for _, piece := range pieces {
		if piece == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(sep)+len(piece) > c.Size {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(piece)
	}

	if chunk := strings.TrimSpace(current.String()); chunk != "" {
		chunks = append(chunks, chunk)
	}

	return chunks
}

// window splits text into fixed-size rune windows with overlap, the
// last-resort strategy when no separator applies.
func (c *Chunker) window(text string) []string {
	runes := []rune(text)
	var chunks []string
	step := c.Size - c.Overlap
	for start := 0; start < len(runes); start += step {
		end := start + c.Size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
