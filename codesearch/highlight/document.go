// Package highlight locates query matches inside file content and renders
// them as context-padded HTML snippets.
//
// All offsets are code-point (rune) offsets into the content.
package highlight

import "sort"

// Document is file content prepared for matching and rendering: its runes
// and a per-line length table shared by both steps.
type Document struct {
	runes []rune
	// lineLengths include the trailing newline; the last line is counted
	// as if it had one.
	lineLengths []int
	// lineEnds[i] is the offset just past line i, including its newline.
	lineEnds []int
}

func NewDocument(content string) *Document {
	d := &Document{runes: []rune(content)}
	length := 0
	for _, r := range d.runes {
		length++
		if r == '\n' {
			d.appendLine(length)
			length = 0
		}
	}
	d.appendLine(length + 1)
	return d
}

func (d *Document) appendLine(length int) {
	end := length
	if n := len(d.lineEnds); n > 0 {
		end += d.lineEnds[n-1]
	}
	d.lineLengths = append(d.lineLengths, length)
	d.lineEnds = append(d.lineEnds, end)
}

func (d *Document) Len() int           { return len(d.runes) }
func (d *Document) LineCount() int     { return len(d.lineLengths) }
func (d *Document) LineLengths() []int { return d.lineLengths }

// LineOf returns the 0-based line holding offset. Offsets past the end map
// to the last line.
func (d *Document) LineOf(offset int) int {
	i := sort.Search(len(d.lineEnds), func(i int) bool { return d.lineEnds[i] > offset })
	if i == len(d.lineEnds) {
		return len(d.lineEnds) - 1
	}
	return i
}

// LineStart returns the offset of the first rune of line. LineStart of
// LineCount() is one past the content end.
func (d *Document) LineStart(line int) int {
	if line <= 0 {
		return 0
	}
	if line > len(d.lineEnds) {
		line = len(d.lineEnds)
	}
	return d.lineEnds[line-1]
}

// Text returns content[start:end] with bounds clamped to the content.
func (d *Document) Text(start, end int) string {
	start = max(0, min(start, len(d.runes)))
	end = max(start, min(end, len(d.runes)))
	return string(d.runes[start:end])
}
