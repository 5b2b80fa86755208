package ops

import "unicode/utf8"

// MaxChunkBytes keeps each stored chunk below the PostgreSQL GiST index
// row limit.
const MaxChunkBytes = 8191

// ChunkString splits s into pieces of at most maxBytes bytes without
// cutting a UTF-8 sequence. Empty input yields one empty chunk so the file
// still has a content row.
func ChunkString(s string, maxBytes int) []string {
	if s == "" {
		return []string{""}
	}
	var chunks []string
	for len(s) > maxBytes {
		cut := maxBytes
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			// maxBytes is smaller than the leading rune.
			_, cut = utf8.DecodeRuneInString(s)
		}
		chunks = append(chunks, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}
