package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"campwise-data/internal/domain"
)

// PostgresSchedulePoliciesRepository 调度策略Repository实现（只读）
type PostgresSchedulePoliciesRepository struct {
	db *sql.DB
}

// NewPostgresSchedulePoliciesRepository 创建调度策略Repository
func NewPostgresSchedulePoliciesRepository(db *sql.DB) *PostgresSchedulePoliciesRepository {
	return &PostgresSchedulePoliciesRepository{db: db}
}

var _ SchedulePoliciesRepository = (*PostgresSchedulePoliciesRepository)(nil)

// ListActivePolicies 获取全部启用中的调度策略
func (r *PostgresSchedulePoliciesRepository) ListActivePolicies(ctx context.Context) ([]*domain.SchedulePolicy, error) {
	query := `
		SELECT
			policy_id::text,
			season_name,
			start_md,
			end_md,
			COALESCE(allowed_days, '[]'::jsonb)::text,
			slot_start,
			slot_end,
			slot_step_minutes
		FROM schedule_policies
		WHERE is_active = true
		ORDER BY season_name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.SchedulePolicy{}
	for rows.Next() {
		var p domain.SchedulePolicy
		var allowedDays string
		if err := rows.Scan(
			&p.PolicyID,
			&p.SeasonName,
			&p.StartMD,
			&p.EndMD,
			&allowedDays,
			&p.SlotStart,
			&p.SlotEnd,
			&p.SlotStepMinutes,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(allowedDays), &p.AllowedDays); err != nil {
			return nil, fmt.Errorf("decode allowed_days: %w", err)
		}
		p.IsActive = true
		out = append(out, &p)
	}
	return out, rows.Err()
}
