// Package retrieval turns a review unit into supporting context by
// embedding a query and searching both the code and docs collections.
// Path filters never apply here: any indexed file is eligible as context.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"vigil/internal/providers"
	"vigil/internal/vectorstore"
)

// Context is the merged retrieval output for one query.
type Context struct {
	CodeHits []vectorstore.Hit `json:"code_hits"`
	DocsHits []vectorstore.Hit `json:"docs_hits"`
}

// Empty reports whether retrieval produced nothing, which is a valid
// outcome on a fresh or sparse index.
func (c Context) Empty() bool {
	return len(c.CodeHits) == 0 && len(c.DocsHits) == 0
}

// Render formats hits for inclusion in a prompt, code first.
func (c Context) Render() string {
	var sb strings.Builder
	for _, h := range c.CodeHits {
		fmt.Fprintf(&sb, "--- %s (chunk %d, line %d)\n%s\n", h.FilePath, h.ChunkIndex, h.StartLine+1, h.Text)
	}
	for _, h := range c.DocsHits {
		fmt.Fprintf(&sb, "--- %s (docs, chunk %d)\n%s\n", h.FilePath, h.ChunkIndex, h.Text)
	}
	return sb.String()
}

type Retriever struct {
	store     vectorstore.Store
	code      providers.Embedder
	docs      providers.Embedder
	codeModel string
	docsModel string
	dim       int
	topK      int
}

func New(store vectorstore.Store, caps providers.Capabilities, codeModel, docsModel string, dim, topK int) *Retriever {
	return &Retriever{
		store:     store,
		code:      caps.CodeEmbedder,
		docs:      caps.DocsEmbedder,
		codeModel: codeModel,
		docsModel: docsModel,
		dim:       dim,
		topK:      topK,
	}
}

// Retrieve embeds the query once per collection and searches both. A
// vectorstore.StalenessError passes through unwrapped so the caller can
// re-index the stale files and retry.
func (r *Retriever) Retrieve(ctx context.Context, query string) (Context, error) {
	var out Context
	codeHits, err := r.search(ctx, vectorstore.CollectionCode, r.code, r.codeModel, query)
	if err != nil {
		return out, err
	}
	docsHits, err := r.search(ctx, vectorstore.CollectionDocs, r.docs, r.docsModel, query)
	if err != nil {
		return out, err
	}
	out.CodeHits = codeHits
	out.DocsHits = docsHits
	return out, nil
}

func (r *Retriever) search(ctx context.Context, collection string, embedder providers.Embedder, model, query string) ([]vectorstore.Hit, error) {
	vecs, _, err := embedder.Embed(ctx, providers.EmbedRequest{
		Operation: "retrieve_context",
		Model:     model,
		Inputs:    []string{query},
		Dimension: r.dim,
	})
	if err != nil {
		return nil, fmt.Errorf("embed query for %s: %w", collection, err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one input", len(vecs))
	}
	hits, err := r.store.Query(ctx, collection, vecs[0], model, r.topK)
	if err != nil {
		return nil, err
	}
	return hits, nil
}
