package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorbid/tutorbid-api/internal/models"
)

// PriceRuleRepository persists per session-type pricing policies.
type PriceRuleRepository struct {
	db *sqlx.DB
}

// NewPriceRuleRepository builds repository.
func NewPriceRuleRepository(db *sqlx.DB) *PriceRuleRepository {
	return &PriceRuleRepository{db: db}
}

const priceRuleColumns = `id, instructor_id, session_type, base_price, min_bid_price, max_bid_price,
auto_accept_threshold, lead_time_cutoff_hours, is_active, created_at, updated_at`

// Upsert writes the active rule for (instructor, session type).
func (r *PriceRuleRepository) Upsert(ctx context.Context, rule *models.PriceRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	const query = `
INSERT INTO price_rules (id, instructor_id, session_type, base_price, min_bid_price, max_bid_price,
	auto_accept_threshold, lead_time_cutoff_hours, is_active, created_at, updated_at)
VALUES (:id, :instructor_id, :session_type, :base_price, :min_bid_price, :max_bid_price,
	:auto_accept_threshold, :lead_time_cutoff_hours, :is_active, :created_at, :updated_at)
ON CONFLICT (instructor_id, session_type) DO UPDATE
SET base_price = EXCLUDED.base_price,
    min_bid_price = EXCLUDED.min_bid_price,
    max_bid_price = EXCLUDED.max_bid_price,
    auto_accept_threshold = EXCLUDED.auto_accept_threshold,
    lead_time_cutoff_hours = EXCLUDED.lead_time_cutoff_hours,
    is_active = EXCLUDED.is_active,
    updated_at = EXCLUDED.updated_at`

	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("upsert price rule: %w", err)
	}
	return nil
}

// FindActive returns the active rule for a session type, nil when absent.
func (r *PriceRuleRepository) FindActive(ctx context.Context, instructorID, sessionType string) (*models.PriceRule, error) {
	query := fmt.Sprintf(`
SELECT %s FROM price_rules
WHERE instructor_id = $1 AND session_type = $2 AND is_active`, priceRuleColumns)

	var rule models.PriceRule
	if err := r.db.GetContext(ctx, &rule, query, instructorID, sessionType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active price rule: %w", err)
	}
	return &rule, nil
}

// ListByInstructor returns all of an instructor's rules.
func (r *PriceRuleRepository) ListByInstructor(ctx context.Context, instructorID string) ([]models.PriceRule, error) {
	query := fmt.Sprintf(`SELECT %s FROM price_rules WHERE instructor_id = $1 ORDER BY session_type ASC`, priceRuleColumns)
	var rules []models.PriceRule
	if err := r.db.SelectContext(ctx, &rules, query, instructorID); err != nil {
		return nil, fmt.Errorf("list price rules: %w", err)
	}
	return rules, nil
}

// Delete removes a rule.
func (r *PriceRuleRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM price_rules WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete price rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete price rule rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
