package index

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/sattva-labs/sattva/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns a fixed vector for every query.
type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func encodeVectorArtifact(t *testing.T, dim int, vectors [][]float32) []byte {
	t.Helper()

	payload := make([]byte, headerSize, headerSize+len(vectors)*dim*vectorElemSize)
	copy(payload[:8], fileMagic[:])
	binary.LittleEndian.PutUint64(payload[8:16], uint64(dim))
	binary.LittleEndian.PutUint64(payload[16:24], uint64(len(vectors)))

	var elem [4]byte
	for _, vec := range vectors {
		require.Len(t, vec, dim)
		for _, v := range vec {
			binary.LittleEndian.PutUint32(elem[:], math.Float32bits(v))
			payload = append(payload, elem[:]...)
		}
	}
	return payload
}

func encodeMetadata(t *testing.T, entries []metadataEntry) []byte {
	t.Helper()
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	return data
}

func newLoadedIndex(t *testing.T, embedder Embedder, vectors [][]float32, entries []metadataEntry) *Index {
	t.Helper()
	idx := New(embedder)
	indexBytes := encodeVectorArtifact(t, len(vectors[0]), vectors)
	metaBytes := encodeMetadata(t, entries)
	require.NoError(t, idx.Load(indexBytes, metaBytes))
	return idx
}

func TestIndex_Load_Success(t *testing.T) {
	idx := newLoadedIndex(t, &stubEmbedder{},
		[][]float32{{1, 0}, {0, 1}},
		[]metadataEntry{
			{ID: 1, Source: "asanas.md", Text: "Surya Namaskar is a sequence of poses"},
			{ID: 2, Source: "breath.md", Text: "Pranayama is breath control"},
		})

	assert.True(t, idx.Loaded())
	dim, count := idx.Stats()
	assert.Equal(t, 2, dim)
	assert.Equal(t, 2, count)
}

func TestIndex_Load_CountMismatch(t *testing.T) {
	idx := New(&stubEmbedder{})
	indexBytes := encodeVectorArtifact(t, 2, [][]float32{{1, 0}, {0, 1}})
	metaBytes := encodeMetadata(t, []metadataEntry{{ID: 1, Source: "a", Text: "only one entry"}})

	err := idx.Load(indexBytes, metaBytes)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIndexCountMismatch))
	assert.False(t, idx.Loaded())
}

func TestIndex_Load_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		index []byte
		meta  []byte
	}{
		{
			name:  "truncated header",
			index: []byte("short"),
			meta:  []byte("[]"),
		},
		{
			name: "bad magic",
			index: func() []byte {
				b := encodeVectorArtifact(t, 2, [][]float32{{1, 0}})
				copy(b[:8], "WRONGMAG")
				return b
			}(),
			meta: []byte(`[{"id":1,"source":"a","text":"t"}]`),
		},
		{
			name: "payload shorter than header implies",
			index: func() []byte {
				b := encodeVectorArtifact(t, 2, [][]float32{{1, 0}})
				return b[:len(b)-2]
			}(),
			meta: []byte(`[{"id":1,"source":"a","text":"t"}]`),
		},
		{
			name:  "metadata is not JSON",
			index: encodeVectorArtifact(t, 2, [][]float32{{1, 0}}),
			meta:  []byte("not json"),
		},
		{
			// A huge count whose implied size wraps past the integer range
			// must fail the size check, not blow up allocating vectors.
			name: "count overflows implied size",
			index: func() []byte {
				b := make([]byte, headerSize)
				copy(b[:8], fileMagic[:])
				binary.LittleEndian.PutUint64(b[8:16], 1)
				binary.LittleEndian.PutUint64(b[16:24], 1<<62)
				return b
			}(),
			meta: []byte("[]"),
		},
		{
			name: "count times dim wraps to the payload size",
			index: func() []byte {
				b := encodeVectorArtifact(t, 1, [][]float32{{1}})
				binary.LittleEndian.PutUint64(b[8:16], 1<<32)
				binary.LittleEndian.PutUint64(b[16:24], 1<<32)
				return b
			}(),
			meta: []byte("[]"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := New(&stubEmbedder{})
			err := idx.Load(tt.index, tt.meta)
			require.Error(t, err)

			var domainErr *domain.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, domain.ErrCodeLoad, domainErr.Code)
		})
	}
}

func TestIndex_Search_BeforeLoad(t *testing.T) {
	idx := New(&stubEmbedder{vector: []float32{1, 0}})

	_, err := idx.Search(context.Background(), "anything", 3, 0.5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIndexNotLoaded))
}

func TestIndex_Search_OrderingAndThreshold(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{1, 0}}
	idx := newLoadedIndex(t, embedder,
		[][]float32{{0.6, 0.8}, {1, 0}, {0, 1}},
		[]metadataEntry{
			{ID: 10, Source: "mid.md", Text: "mid similarity"},
			{ID: 20, Source: "top.md", Text: "exact match"},
			{ID: 30, Source: "low.md", Text: "orthogonal"},
		})

	result, err := idx.Search(context.Background(), "query", 5, 0.5)
	require.NoError(t, err)
	require.Len(t, result.Chunks, 2)

	assert.Equal(t, int64(20), result.Chunks[0].Chunk.ID)
	assert.InDelta(t, 1.0, result.Chunks[0].Score, 1e-6)
	assert.Equal(t, int64(10), result.Chunks[1].Chunk.ID)
	assert.InDelta(t, 0.6, result.Chunks[1].Score, 1e-6)
	assert.Equal(t, []float32{1, 0}, result.QueryEmbedding)
}

func TestIndex_Search_TopKCap(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{1, 0}}
	idx := newLoadedIndex(t, embedder,
		[][]float32{{1, 0}, {0.9, float32(math.Sqrt(1 - 0.81))}, {0.8, 0.6}},
		[]metadataEntry{
			{ID: 1, Source: "a", Text: "a"},
			{ID: 2, Source: "b", Text: "b"},
			{ID: 3, Source: "c", Text: "c"},
		})

	result, err := idx.Search(context.Background(), "query", 2, 0.0)
	require.NoError(t, err)
	assert.Len(t, result.Chunks, 2)
	assert.Equal(t, int64(1), result.Chunks[0].Chunk.ID)
	assert.Equal(t, int64(2), result.Chunks[1].Chunk.ID)
}

func TestIndex_Search_TieBreakByAscendingID(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{1, 0}}
	idx := newLoadedIndex(t, embedder,
		[][]float32{{1, 0}, {1, 0}, {1, 0}},
		[]metadataEntry{
			{ID: 7, Source: "c", Text: "c"},
			{ID: 3, Source: "a", Text: "a"},
			{ID: 5, Source: "b", Text: "b"},
		})

	result, err := idx.Search(context.Background(), "query", 3, 0.5)
	require.NoError(t, err)
	require.Len(t, result.Chunks, 3)
	assert.Equal(t, int64(3), result.Chunks[0].Chunk.ID)
	assert.Equal(t, int64(5), result.Chunks[1].Chunk.ID)
	assert.Equal(t, int64(7), result.Chunks[2].Chunk.ID)
}

func TestIndex_Search_NoResultsIsNotAnError(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{1, 0}}
	idx := newLoadedIndex(t, embedder,
		[][]float32{{0, 1}},
		[]metadataEntry{{ID: 1, Source: "a", Text: "orthogonal"}})

	result, err := idx.Search(context.Background(), "query", 3, 0.5)
	require.NoError(t, err)
	assert.True(t, result.Empty())
}

func TestIndex_Search_ThresholdScenario(t *testing.T) {
	// Two chunks scoring 0.91 and 0.40 against the query; with top_k=3
	// and threshold=0.5 only the first clears the bar.
	embedder := &stubEmbedder{vector: []float32{1, 0}}
	idx := newLoadedIndex(t, embedder,
		[][]float32{
			{0.91, float32(math.Sqrt(1 - 0.91*0.91))},
			{0.40, float32(math.Sqrt(1 - 0.40*0.40))},
		},
		[]metadataEntry{
			{ID: 1, Source: "asanas.md", Text: "Surya Namaskar is a sequence of poses"},
			{ID: 2, Source: "breath.md", Text: "Pranayama is breath control"},
		})

	result, err := idx.Search(context.Background(), "What is Surya Namaskar?", 3, 0.5)
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, int64(1), result.Chunks[0].Chunk.ID)
	assert.InDelta(t, 0.91, result.Chunks[0].Score, 1e-4)
}

func TestIndex_Search_EmbedderFailure(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("embedding service down")}
	idx := newLoadedIndex(t, embedder,
		[][]float32{{1, 0}},
		[]metadataEntry{{ID: 1, Source: "a", Text: "t"}})

	_, err := idx.Search(context.Background(), "query", 3, 0.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to embed query")
}

func TestIndex_Search_DimensionMismatch(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{1, 0, 0}}
	idx := newLoadedIndex(t, embedder,
		[][]float32{{1, 0}},
		[]metadataEntry{{ID: 1, Source: "a", Text: "t"}})

	_, err := idx.Search(context.Background(), "query", 3, 0.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimensions")
}
