package store

import (
	"context"
	"database/sql"
	"fmt"

	"teamhub/internal/domain"
)

type LLMKeyRepo struct {
	c conn
}

func NewLLMKeyRepo(db *sql.DB, d Dialect) *LLMKeyRepo {
	return &LLMKeyRepo{c: conn{q: db, d: d}}
}

var _ domain.LLMKeyRepository = (*LLMKeyRepo)(nil)

func (r *LLMKeyRepo) Upsert(ctx context.Context, k *domain.LLMKey) error {
	ts := now()
	k.CreatedAt, k.UpdatedAt = ts, ts
	if _, err := r.c.exec(ctx, `
		INSERT INTO llm_keys (user_id, provider, encrypted_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, provider)
		DO UPDATE SET encrypted_key = excluded.encrypted_key, updated_at = excluded.updated_at
	`, k.UserID, k.Provider, k.EncryptedKey, ts, ts); err != nil {
		return fmt.Errorf("upsert llm key: %w", err)
	}
	return nil
}

func (r *LLMKeyRepo) Delete(ctx context.Context, userID int64, provider string) error {
	res, err := r.c.exec(ctx, `DELETE FROM llm_keys WHERE user_id = ? AND provider = ?`, userID, provider)
	if err != nil {
		return fmt.Errorf("delete llm key: %w", err)
	}
	return requireFound(res, "delete llm key")
}

func (r *LLMKeyRepo) ListProviders(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.c.query(ctx, `SELECT provider FROM llm_keys WHERE user_id = ? ORDER BY provider`, userID)
	if err != nil {
		return nil, fmt.Errorf("list llm providers: %w", err)
	}
	defer rows.Close()

	var res []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
