// Package vectorstore persists embedded chunks and serves similarity
// queries. Two backends implement the same contract: an embedded chromem
// store for single-binary runs and a pgvector-backed store for shared
// deployments.
package vectorstore

import (
	"context"
	"fmt"
	"strings"
)

const (
	CollectionCode = "code"
	CollectionDocs = "docs"
)

// FileRef identifies one indexed file together with the hash and embedding
// settings it was indexed under.
type FileRef struct {
	Path       string
	Hash       string
	EmbedModel string
	Dim        int
}

// Chunk is one embedded slice of a file, ready for storage.
type Chunk struct {
	Index     int
	StartLine int
	EndLine   int
	Text      string
	Embedding []float32
}

// Hit is one similarity result. Score is cosine similarity, higher is
// closer.
type Hit struct {
	FilePath   string
	ChunkIndex int
	StartLine  int
	Text       string
	Score      float64
}

// FileState is the persisted index state for one file, used to skip
// re-embedding unchanged content.
type FileState struct {
	Hash       string
	EmbedModel string
	Dim        int
}

// Store is the persistence contract. ReplaceFileChunks must supersede a
// file's previous chunks atomically so a query never sees a mix of old and
// new generations.
type Store interface {
	ReplaceFileChunks(ctx context.Context, collection string, file FileRef, chunks []Chunk) error
	Query(ctx context.Context, collection string, vec []float32, model string, topK int) ([]Hit, error)
	DeleteFile(ctx context.Context, collection, filePath string) error
	FileState(ctx context.Context, collection, filePath string) (*FileState, error)
	Close()
}

// StalenessError reports files whose stored embeddings no longer match the
// active embedding model or dimension. Callers re-index the named files and
// retry the query once.
type StalenessError struct {
	Collection string
	WantModel  string
	WantDim    int
	Paths      []string
}

func (e *StalenessError) Error() string {
	return fmt.Sprintf("collection %s has %d files embedded with a different model than %s/%d: %s",
		e.Collection, len(e.Paths), e.WantModel, e.WantDim, strings.Join(e.Paths, ", "))
}
