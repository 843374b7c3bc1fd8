package domain

// DocumentChunk is one indexed passage of the knowledge base. Chunks are
// immutable after the index is loaded; the index owns them exclusively.
type DocumentChunk struct {
	ID          int64
	Text        string
	SourceLabel string
	Embedding   []float32
}

// ScoredChunk pairs a chunk with its similarity score against a query.
type ScoredChunk struct {
	Chunk DocumentChunk
	Score float64
}

// RetrievalResult is the per-request output of a nearest-neighbor search.
// Chunks are ordered by descending score; ties are broken by ascending
// chunk ID. The result is ephemeral and never persisted.
type RetrievalResult struct {
	Chunks         []ScoredChunk
	QueryEmbedding []float32
}

// Empty reports whether the retrieval produced no chunks, either because
// nothing cleared the similarity threshold or because retrieval was
// degraded.
func (r RetrievalResult) Empty() bool {
	return len(r.Chunks) == 0
}

// SourceLabels returns the source labels of the retrieved chunks in
// retrieval order.
func (r RetrievalResult) SourceLabels() []string {
	labels := make([]string, 0, len(r.Chunks))
	for _, sc := range r.Chunks {
		labels = append(labels, sc.Chunk.SourceLabel)
	}
	return labels
}
