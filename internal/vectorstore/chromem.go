package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"vigil/internal/util"
)

// ChromemStore is the embedded backend. Vectors live in chromem-go
// collections; per-file index state lives in a manifest JSON next to the
// database so staleness checks can scan every indexed file.
type ChromemStore struct {
	db           *chromem.DB
	mu           sync.Mutex
	collections  map[string]*chromem.Collection
	states       map[string]map[string]FileState
	manifestPath string
}

// NewChromemStore opens (or creates) a persistent store at path. An empty
// path yields an in-memory store for tests.
func NewChromemStore(path string) (*ChromemStore, error) {
	var db *chromem.DB
	var manifest string
	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("open chromem db: %w", err)
		}
		manifest = filepath.Join(path, "files.json")
	}
	s := &ChromemStore{
		db:           db,
		collections:  map[string]*chromem.Collection{},
		states:       map[string]map[string]FileState{},
		manifestPath: manifest,
	}
	if err := s.loadManifest(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ChromemStore) collection(name string) (*chromem.Collection, error) {
	if c, ok := s.collections[name]; ok {
		return c, nil
	}
	c, err := s.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get collection %s: %w", name, err)
	}
	s.collections[name] = c
	return c, nil
}

func (s *ChromemStore) ReplaceFileChunks(ctx context.Context, collection string, file FileRef, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	if err := c.Delete(ctx, map[string]string{"file_path": file.Path}, nil); err != nil {
		return fmt.Errorf("delete old chunks for %s: %w", file.Path, err)
	}
	docs := make([]chromem.Document, 0, len(chunks))
	for _, ch := range chunks {
		docs = append(docs, chromem.Document{
			ID:        fmt.Sprintf("%s#%d", file.Path, ch.Index),
			Content:   ch.Text,
			Embedding: ch.Embedding,
			Metadata: map[string]string{
				"file_path":   file.Path,
				"chunk_index": strconv.Itoa(ch.Index),
				"start_line":  strconv.Itoa(ch.StartLine),
				"end_line":    strconv.Itoa(ch.EndLine),
			},
		})
	}
	if len(docs) > 0 {
		if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return fmt.Errorf("add chunks for %s: %w", file.Path, err)
		}
	}
	if s.states[collection] == nil {
		s.states[collection] = map[string]FileState{}
	}
	s.states[collection][file.Path] = FileState{Hash: file.Hash, EmbedModel: file.EmbedModel, Dim: file.Dim}
	return s.saveManifest()
}

func (s *ChromemStore) Query(ctx context.Context, collection string, vec []float32, model string, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 4
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if stale := s.stalePaths(collection, model, len(vec)); len(stale) > 0 {
		return nil, &StalenessError{Collection: collection, WantModel: model, WantDim: len(vec), Paths: stale}
	}
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	n := c.Count()
	if n == 0 {
		return nil, nil
	}
	if topK > n {
		topK = n
	}
	results, err := c.QueryWithOptions(ctx, chromem.QueryOptions{QueryEmbedding: vec, NResults: topK})
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", collection, err)
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		idx, _ := strconv.Atoi(r.Metadata["chunk_index"])
		start, _ := strconv.Atoi(r.Metadata["start_line"])
		hits = append(hits, Hit{
			FilePath:   r.Metadata["file_path"],
			ChunkIndex: idx,
			StartLine:  start,
			Text:       r.Content,
			Score:      float64(r.Similarity),
		})
	}
	// chromem orders by similarity only; equal scores fall back to chunk
	// order for stable output.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].FilePath != hits[j].FilePath {
			return hits[i].FilePath < hits[j].FilePath
		}
		return hits[i].ChunkIndex < hits[j].ChunkIndex
	})
	return hits, nil
}

func (s *ChromemStore) stalePaths(collection, model string, dim int) []string {
	var out []string
	for path, st := range s.states[collection] {
		if st.EmbedModel != model || st.Dim != dim {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

func (s *ChromemStore) DeleteFile(ctx context.Context, collection, filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	if err := c.Delete(ctx, map[string]string{"file_path": filePath}, nil); err != nil {
		return fmt.Errorf("delete chunks for %s: %w", filePath, err)
	}
	delete(s.states[collection], filePath)
	return s.saveManifest()
}

func (s *ChromemStore) FileState(ctx context.Context, collection, filePath string) (*FileState, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[collection][filePath]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (s *ChromemStore) Close() {}

func (s *ChromemStore) loadManifest() error {
	if s.manifestPath == "" {
		return nil
	}
	b, err := os.ReadFile(s.manifestPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read index manifest: %w", err)
	}
	if err := json.Unmarshal(b, &s.states); err != nil {
		return fmt.Errorf("decode index manifest: %w", err)
	}
	return nil
}

func (s *ChromemStore) saveManifest() error {
	if s.manifestPath == "" {
		return nil
	}
	if err := util.WriteJSONAtomic(s.manifestPath, s.states); err != nil {
		return fmt.Errorf("write index manifest: %w", err)
	}
	return nil
}
