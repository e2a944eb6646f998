package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// LLMCallRecord is one audited model call. Status is "ok" or "error".
type LLMCallRecord struct {
	CallID    string
	RunID     string
	FilePath  string
	Operation string
	Provider  string
	Model     string
	Status    string
	ErrorType string
}

type LLMAuditRepo struct {
	db *DB
}

func NewLLMAuditRepo(db *DB) *LLMAuditRepo {
	return &LLMAuditRepo{db: db}
}

func (r *LLMAuditRepo) Insert(ctx context.Context, rec LLMCallRecord) error {
	if rec.CallID == "" {
		rec.CallID = uuid.NewString()
	}
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO llm_calls(call_id, run_id, file_path, operation, provider, model, status, error_type)
VALUES ($1, NULLIF($2,''), NULLIF($3,''), $4, $5, $6, $7, NULLIF($8,''))`,
		rec.CallID, rec.RunID, rec.FilePath, rec.Operation, rec.Provider, rec.Model, rec.Status, rec.ErrorType)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}
