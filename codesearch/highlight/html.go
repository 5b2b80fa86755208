package highlight

import "strings"

const (
	// MaxLinesBetweenMatches is the largest line gap kept inside one chunk.
	MaxLinesBetweenMatches = 10
	// ContextLines are shown before the first and after the last match.
	ContextLines = 4

	markOpen  = `<span class="highlighted-content">`
	markClose = `</span>`
)

// Chunk is one rendered snippet.
type Chunk struct {
	FirstLineNumber int    `json:"firstLineNumber"`
	HTML            string `json:"html"`
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// Generate renders merged spans as HTML chunks, one per cluster of spans
// that are at most MaxLinesBetweenMatches lines apart.
func Generate(doc *Document, spans []Span) []Chunk {
	var chunks []Chunk
	for _, cluster := range clusterSpans(doc, spans) {
		chunks = append(chunks, renderCluster(doc, cluster))
	}
	return chunks
}

func clusterSpans(doc *Document, spans []Span) [][]Span {
	var clusters [][]Span
	for _, sp := range spans {
		if sp.End <= sp.Start {
			continue
		}
		n := len(clusters)
		if n > 0 {
			cur := clusters[n-1]
			prevLine := doc.LineOf(cur[len(cur)-1].End - 1)
			if doc.LineOf(sp.Start)-prevLine <= MaxLinesBetweenMatches {
				clusters[n-1] = append(cur, sp)
				continue
			}
		}
		clusters = append(clusters, []Span{sp})
	}
	return clusters
}

func renderCluster(doc *Document, cluster []Span) Chunk {
	firstLine := max(0, doc.LineOf(cluster[0].Start)-ContextLines)
	lastLine := min(doc.LineCount()-1, doc.LineOf(cluster[len(cluster)-1].End-1)+ContextLines)

	start := doc.LineStart(firstLine)
	end := min(doc.Len(), doc.LineStart(lastLine+1))

	var sb strings.Builder
	pos := start
	for _, sp := range cluster {
		sb.WriteString(htmlEscaper.Replace(doc.Text(pos, sp.Start)))
		sb.WriteString(markOpen)
		sb.WriteString(htmlEscaper.Replace(doc.Text(sp.Start, sp.End)))
		sb.WriteString(markClose)
		pos = sp.End
	}
	sb.WriteString(htmlEscaper.Replace(doc.Text(pos, end)))

	return Chunk{FirstLineNumber: firstLine + 1, HTML: sb.String()}
}
