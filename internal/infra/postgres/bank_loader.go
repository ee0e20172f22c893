package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"internmatch-service/internal/domain"
)

// BankLoader loads skill question banks stored as JSONB.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) LoadBank(ctx context.Context, skillID string) (domain.SkillBank, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM skill_banks WHERE id=$1`, skillID).Scan(&raw)
	if err == pgx.ErrNoRows {
		return domain.SkillBank{}, domain.ErrUnknownSkill
	}
	if err != nil {
		return domain.SkillBank{}, fmt.Errorf("load skill bank: %w", err)
	}
	var bank domain.SkillBank
	if err := json.Unmarshal(raw, &bank); err != nil {
		return domain.SkillBank{}, fmt.Errorf("unmarshal skill bank: %w", err)
	}
	return bank, nil
}
