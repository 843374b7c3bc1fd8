// Package index loads the precomputed document index artifact and answers
// nearest-neighbor queries over it. The index is read-only after a
// successful Load; it never performs network I/O itself (the artifact
// fetcher hands it raw bytes).
package index

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/sattva-labs/sattva/internal/domain"
)

const (
	// Artifact header (v1):
	//   0..7   magic "SATVEC01"
	//   8..15  dim (uint64, little endian)
	//   16..23 count (uint64, little endian)
	// followed by count*dim little-endian float32 values.
	headerSize = 24

	vectorElemSize = 4
)

var fileMagic = [8]byte{'S', 'A', 'T', 'V', 'E', 'C', '0', '1'}

// Embedder turns query text into a fixed-length vector. It must use the
// same embedding scheme the index was built with or scores are
// meaningless.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// metadataEntry mirrors one element of the JSON metadata artifact. The
// array is parallel to the vector file: entry i describes vector i.
type metadataEntry struct {
	ID     int64  `json:"id"`
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Index is the in-process document index.
type Index struct {
	embedder Embedder

	mu     sync.RWMutex
	loaded bool
	dim    int
	chunks []domain.DocumentChunk
}

// New creates an unloaded Index. Searches before Load fail with
// domain.ErrIndexNotLoaded, which callers treat as degraded retrieval
// rather than a request failure.
func New(embedder Embedder) *Index {
	return &Index{embedder: embedder}
}

// Load parses the binary vector artifact and its parallel metadata
// artifact. It fails with a LOAD_ERROR domain error when either payload
// is malformed or when the vector and metadata counts differ.
func (idx *Index) Load(indexBytes, metadataBytes []byte) error {
	dim, vectors, err := decodeVectors(indexBytes)
	if err != nil {
		return err
	}

	var entries []metadataEntry
	if err := json.Unmarshal(metadataBytes, &entries); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeLoad, "index payload is malformed", err)
	}

	if len(entries) != len(vectors) {
		return domain.NewDomainErrorWithCause(
			domain.ErrCodeLoad,
			"index and metadata chunk counts differ",
			fmt.Errorf("index has %d vectors, metadata has %d entries", len(vectors), len(entries)),
		)
	}

	chunks := make([]domain.DocumentChunk, len(entries))
	for i, entry := range entries {
		chunks[i] = domain.DocumentChunk{
			ID:          entry.ID,
			Text:        entry.Text,
			SourceLabel: entry.Source,
			Embedding:   vectors[i],
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.dim = dim
	idx.chunks = chunks
	idx.loaded = true
	return nil
}

// Loaded reports whether a Load has succeeded.
func (idx *Index) Loaded() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.loaded
}

// Stats returns the vector dimension and chunk count of the loaded index.
func (idx *Index) Stats() (dim, count int) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dim, len(idx.chunks)
}

// Search embeds the query and returns at most topK chunks with cosine
// similarity >= threshold, ordered by descending score. Ties are broken
// by ascending chunk ID so results are deterministic. An empty result is
// not an error.
func (idx *Index) Search(ctx context.Context, query string, topK int, threshold float64) (domain.RetrievalResult, error) {
	idx.mu.RLock()
	loaded := idx.loaded
	dim := idx.dim
	chunks := idx.chunks
	idx.mu.RUnlock()

	if !loaded {
		return domain.RetrievalResult{}, domain.ErrIndexNotLoaded
	}

	queryVec, err := idx.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(queryVec) != dim {
		return domain.RetrievalResult{}, fmt.Errorf("query embedding has %d dimensions, index has %d", len(queryVec), dim)
	}

	scored := make([]domain.ScoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		score := cosineSimilarity(queryVec, chunk.Embedding)
		if score < threshold {
			continue
		}
		scored = append(scored, domain.ScoredChunk{Chunk: chunk, Score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.ID < scored[j].Chunk.ID
	})

	if topK >= 0 && len(scored) > topK {
		scored = scored[:topK]
	}

	return domain.RetrievalResult{Chunks: scored, QueryEmbedding: queryVec}, nil
}

func decodeVectors(payload []byte) (int, [][]float32, error) {
	if len(payload) < headerSize {
		return 0, nil, domain.NewDomainErrorWithCause(
			domain.ErrCodeLoad,
			"index payload is malformed",
			fmt.Errorf("payload too small for header: %d < %d bytes", len(payload), headerSize),
		)
	}

	var magic [8]byte
	copy(magic[:], payload[:8])
	if magic != fileMagic {
		return 0, nil, domain.NewDomainErrorWithCause(
			domain.ErrCodeLoad,
			"index payload is malformed",
			fmt.Errorf("bad magic %q", magic),
		)
	}

	dim := binary.LittleEndian.Uint64(payload[8:16])
	count := binary.LittleEndian.Uint64(payload[16:24])
	if dim == 0 {
		return 0, nil, domain.NewDomainErrorWithCause(
			domain.ErrCodeLoad,
			"index payload is malformed",
			fmt.Errorf("vector dimension is zero"),
		)
	}

	// The header values are untrusted, so the size check divides the
	// actual table size instead of multiplying count by dim, which could
	// overflow and wrap back to a matching length.
	elems := uint64(len(payload)-headerSize) / vectorElemSize
	if uint64(len(payload)-headerSize)%vectorElemSize != 0 ||
		(count == 0 && elems != 0) ||
		(count > 0 && (elems%count != 0 || elems/count != dim)) {
		return 0, nil, domain.NewDomainErrorWithCause(
			domain.ErrCodeLoad,
			"index payload is malformed",
			fmt.Errorf("vector table holds %d bytes, header claims %d vectors of dimension %d", len(payload)-headerSize, count, dim),
		)
	}

	vectors := make([][]float32, count)
	offset := headerSize
	for i := range vectors {
		vec := make([]float32, dim)
		for j := range vec {
			bits := binary.LittleEndian.Uint32(payload[offset : offset+vectorElemSize])
			vec[j] = math.Float32frombits(bits)
			offset += vectorElemSize
		}
		vectors[i] = vec
	}

	return int(dim), vectors, nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
