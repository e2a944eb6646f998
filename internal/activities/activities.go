// Package activities implements the worker-side steps the workflows
// orchestrate: file discovery, hashing, chunking, embedding, vector store
// writes, retrieval, prompt assembly and model calls.
package activities

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"vigil/internal/chunker"
	"vigil/internal/config"
	"vigil/internal/plugins"
	"vigil/internal/providers"
	"vigil/internal/retrieval"
	"vigil/internal/review"
	"vigil/internal/storage"
	"vigil/internal/util"
	"vigil/internal/vectorstore"
)

type Activities struct {
	cfg         config.Config
	registry    *plugins.Registry
	store       vectorstore.Store
	caps        providers.Capabilities
	retriever   *retrieval.Retriever
	auditRepo   *storage.LLMAuditRepo
	resultsRepo *storage.ResultsRepo
}

// New wires the worker dependencies. db may be nil, in which case run and
// audit records are not persisted.
func New(cfg config.Config, registry *plugins.Registry, store vectorstore.Store, caps providers.Capabilities, db *storage.DB) *Activities {
	a := &Activities{
		cfg:      cfg,
		registry: registry,
		store:    store,
		caps:     caps,
		retriever: retrieval.New(store, caps, cfg.CodeEmbedModel, cfg.DocsEmbedModel,
			cfg.EmbedDim, cfg.SimilarityTopK),
	}
	if db != nil {
		a.auditRepo = storage.NewLLMAuditRepo(db)
		a.resultsRepo = storage.NewResultsRepo(db)
	}
	return a
}

var skippedDirs = map[string]bool{
	".git": true, ".hg": true, ".svn": true,
	"node_modules": true, "vendor": true,
	".idea": true, ".vscode": true,
}

// ListSourceFilesActivity walks the codebase root and returns every file a
// language profile covers. ForReview restricts the list to code files and
// applies the include/exclude globs; indexing always sees everything so any
// file stays eligible as retrieval context.
func (a *Activities) ListSourceFilesActivity(ctx context.Context, in ListSourceFilesInput) (ListSourceFilesOutput, error) {
	_ = ctx
	root := in.Root
	if root == "" {
		root = a.cfg.CodebasePath
	}
	var filter *review.PathFilter
	if in.ForReview {
		f, err := review.NewPathFilter(in.Include, in.Exclude)
		if err != nil {
			return ListSourceFilesOutput{}, err
		}
		filter = f
	}

	var files []SourceFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (skippedDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !a.registry.Supported(ext) {
			return nil
		}
		profile := a.registry.Resolve(ext)
		if in.ForReview && profile.Category != plugins.CategoryCode {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if filter != nil && !filter.Match(rel) {
			return nil
		}
		files = append(files, SourceFile{Path: path, RelPath: rel, Category: profile.Category})
		return nil
	})
	if err != nil {
		return ListSourceFilesOutput{}, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return ListSourceFilesOutput{Files: files}, nil
}

func (a *Activities) HashFileActivity(ctx context.Context, in HashFileInput) (HashFileOutput, error) {
	_ = ctx
	f, err := os.Open(in.Path)
	if err != nil {
		return HashFileOutput{}, fmt.Errorf("open file for hash: %w", err)
	}
	defer f.Close()
	hash, err := util.SHA256HexFromReader(f)
	if err != nil {
		return HashFileOutput{}, fmt.Errorf("hash file: %w", err)
	}
	return HashFileOutput{Hash: hash}, nil
}

// GetFileStateActivity compares the stored index state for a file against
// the given content hash and the active embedding settings.
func (a *Activities) GetFileStateActivity(ctx context.Context, in FileStateInput) (FileStateOutput, error) {
	st, err := a.store.FileState(ctx, in.Category, in.RelPath)
	if err != nil {
		return FileStateOutput{}, err
	}
	if st == nil {
		return FileStateOutput{}, nil
	}
	model := a.embedModelFor(in.Category)
	return FileStateOutput{
		Indexed:  true,
		UpToDate: st.Hash == in.Hash && st.EmbedModel == model && st.Dim == a.cfg.EmbedDim,
	}, nil
}

// ChunkFileActivity reads a file, resolves its language profile and splits
// it into line-window chunks. PDF documents are extracted to plain text
// first.
func (a *Activities) ChunkFileActivity(ctx context.Context, in ChunkFileInput) (ChunkFileOutput, error) {
	_ = ctx
	ext := strings.ToLower(filepath.Ext(in.Path))
	profile := a.registry.Resolve(ext)

	var content string
	if ext == ".pdf" {
		text, err := extractPDFText(in.Path)
		if err != nil {
			return ChunkFileOutput{}, err
		}
		content = text
	} else {
		b, err := os.ReadFile(in.Path)
		if err != nil {
			return ChunkFileOutput{}, fmt.Errorf("read file: %w", err)
		}
		content = string(b)
	}

	chunks := chunker.Split(content, profile)
	items := make([]ChunkItem, 0, len(chunks))
	for _, c := range chunks {
		items = append(items, ChunkItem{Index: c.Index, StartLine: c.StartLine, EndLine: c.EndLine, Text: c.Text})
	}
	return ChunkFileOutput{
		Category: profile.Category,
		Hash:     util.SHA256Hex([]byte(content)),
		Chunks:   items,
	}, nil
}

func extractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func (a *Activities) EmbedChunksActivity(ctx context.Context, in EmbedChunksInput) (EmbedChunksOutput, error) {
	embedder := a.caps.CodeEmbedder
	if in.Category == plugins.CategoryDocs {
		embedder = a.caps.DocsEmbedder
	}
	vectors, info, err := embedder.Embed(ctx, providers.EmbedRequest{
		Operation: in.Operation,
		Model:     a.embedModelFor(in.Category),
		Inputs:    in.Texts,
		Dimension: a.cfg.EmbedDim,
	})
	a.audit(ctx, in.RunID, in.RelPath, in.Operation, info, err)
	if err != nil {
		return EmbedChunksOutput{}, classifyProviderError("embed chunks", err)
	}
	if len(vectors) != len(in.Texts) {
		return EmbedChunksOutput{}, fmt.Errorf("embedder returned %d vectors for %d inputs", len(vectors), len(in.Texts))
	}
	return EmbedChunksOutput{Vectors: vectors, Provider: info.Name, Model: info.Model}, nil
}

func (a *Activities) ReplaceFileChunksActivity(ctx context.Context, in ReplaceFileChunksInput) error {
	if len(in.Chunks) != len(in.Vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(in.Chunks), len(in.Vectors))
	}
	chunks := make([]vectorstore.Chunk, 0, len(in.Chunks))
	for i, c := range in.Chunks {
		chunks = append(chunks, vectorstore.Chunk{
			Index:     c.Index,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			Text:      c.Text,
			Embedding: in.Vectors[i],
		})
	}
	return a.store.ReplaceFileChunks(ctx, in.Category, vectorstore.FileRef{
		Path:       in.RelPath,
		Hash:       in.Hash,
		EmbedModel: a.embedModelFor(in.Category),
		Dim:        a.cfg.EmbedDim,
	}, chunks)
}

func (a *Activities) DeleteFileActivity(ctx context.Context, in DeleteFileInput) error {
	category := in.Category
	if category == "" {
		category = a.registry.Resolve(strings.ToLower(filepath.Ext(in.RelPath))).Category
	}
	return a.store.DeleteFile(ctx, category, in.RelPath)
}

func (a *Activities) embedModelFor(category string) string {
	if category == plugins.CategoryDocs {
		return a.cfg.DocsEmbedModel
	}
	return a.cfg.CodeEmbedModel
}
