package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"campwise-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresTransfersRepository 转移申请Repository实现（强类型版本）
// person_ids / allocated_beds / arrived_person_ids 使用 JSONB 列
type PostgresTransfersRepository struct {
	db *sql.DB
}

// NewPostgresTransfersRepository 创建转移申请Repository
func NewPostgresTransfersRepository(db *sql.DB) *PostgresTransfersRepository {
	return &PostgresTransfersRepository{db: db}
}

var _ TransferRequestsRepository = (*PostgresTransfersRepository)(nil)

const transferColumns = `
	request_id::text,
	source_camp_id::text,
	target_camp_id::text,
	person_ids::text,
	reason,
	scheduled_dispatch_date,
	scheduled_dispatch_time,
	status,
	COALESCE(allocated_beds, '{}'::jsonb)::text,
	COALESCE(arrived_person_ids, '[]'::jsonb)::text,
	COALESCE(pre_dispatch_statuses, '{}'::jsonb)::text,
	requested_by,
	created_at,
	updated_at
`

func scanTransfer(row interface{ Scan(...any) error }) (*domain.TransferRequest, error) {
	var req domain.TransferRequest
	var personIDs, allocated, arrived, preDispatch string
	err := row.Scan(
		&req.RequestID,
		&req.SourceCampID,
		&req.TargetCampID,
		&personIDs,
		&req.Reason,
		&req.ScheduledDispatchDate,
		&req.ScheduledDispatchTime,
		&req.Status,
		&allocated,
		&arrived,
		&preDispatch,
		&req.RequestedBy,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(personIDs), &req.PersonIDs); err != nil {
		return nil, fmt.Errorf("decode person_ids: %w", err)
	}
	if err := json.Unmarshal([]byte(allocated), &req.AllocatedBeds); err != nil {
		return nil, fmt.Errorf("decode allocated_beds: %w", err)
	}
	if err := json.Unmarshal([]byte(arrived), &req.ArrivedPersonIDs); err != nil {
		return nil, fmt.Errorf("decode arrived_person_ids: %w", err)
	}
	if err := json.Unmarshal([]byte(preDispatch), &req.PreDispatchStatuses); err != nil {
		return nil, fmt.Errorf("decode pre_dispatch_statuses: %w", err)
	}
	return &req, nil
}

// CreateTransferRequest 创建转移申请
func (r *PostgresTransfersRepository) CreateTransferRequest(ctx context.Context, req *domain.TransferRequest) (string, error) {
	if req.SourceCampID == "" || req.TargetCampID == "" {
		return "", fmt.Errorf("source_camp_id and target_camp_id are required")
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	personIDs, err := json.Marshal(req.PersonIDs)
	if err != nil {
		return "", err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO transfer_requests (
			request_id, source_camp_id, target_camp_id, person_ids, reason,
			scheduled_dispatch_date, scheduled_dispatch_time, status,
			allocated_beds, arrived_person_ids, pre_dispatch_statuses, requested_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, '{}'::jsonb, '[]'::jsonb, '{}'::jsonb, $9, NOW(), NOW())`,
		requestID,
		req.SourceCampID,
		req.TargetCampID,
		string(personIDs),
		req.Reason,
		req.ScheduledDispatchDate,
		req.ScheduledDispatchTime,
		req.Status,
		req.RequestedBy,
	)
	if err != nil {
		return "", err
	}
	return requestID, nil
}

// GetTransferRequest 根据request_id获取转移申请
func (r *PostgresTransfersRepository) GetTransferRequest(ctx context.Context, requestID string) (*domain.TransferRequest, error) {
	if requestID == "" {
		return nil, fmt.Errorf("request_id is required")
	}

	query := `SELECT ` + transferColumns + ` FROM transfer_requests WHERE request_id = $1`
	req, err := scanTransfer(r.db.QueryRowContext(ctx, query, requestID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

// UpdateTransferRequest 部分更新
func (r *PostgresTransfersRepository) UpdateTransferRequest(ctx context.Context, requestID string, update TransferRequestUpdate) error {
	if requestID == "" {
		return fmt.Errorf("request_id is required")
	}

	sets := []string{}
	args := []any{}
	argIdx := 1

	if update.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *update.Status)
		argIdx++
	}
	if update.AllocatedBeds != nil {
		raw, err := json.Marshal(update.AllocatedBeds)
		if err != nil {
			return err
		}
		sets = append(sets, fmt.Sprintf("allocated_beds = $%d::jsonb", argIdx))
		args = append(args, string(raw))
		argIdx++
	}
	if update.ArrivedPersonIDs != nil {
		raw, err := json.Marshal(update.ArrivedPersonIDs)
		if err != nil {
			return err
		}
		sets = append(sets, fmt.Sprintf("arrived_person_ids = $%d::jsonb", argIdx))
		args = append(args, string(raw))
		argIdx++
	}
	if update.PreDispatchStatuses != nil {
		raw, err := json.Marshal(update.PreDispatchStatuses)
		if err != nil {
			return err
		}
		sets = append(sets, fmt.Sprintf("pre_dispatch_statuses = $%d::jsonb", argIdx))
		args = append(args, string(raw))
		argIdx++
	}

	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = NOW()")

	query := `UPDATE transfer_requests SET ` + strings.Join(sets, ", ") +
		fmt.Sprintf(` WHERE request_id = $%d`, argIdx)
	args = append(args, requestID)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// ListTransferRequests 条件查询 + 分页
func (r *PostgresTransfersRepository) ListTransferRequests(ctx context.Context, filters TransferFilters, page, size int) ([]*domain.TransferRequest, int, error) {
	where := []string{"1=1"}
	args := []any{}
	argIdx := 1

	if filters.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filters.Status)
		argIdx++
	}
	if filters.SourceCampID != "" {
		where = append(where, fmt.Sprintf("source_camp_id = $%d", argIdx))
		args = append(args, filters.SourceCampID)
		argIdx++
	}
	if filters.TargetCampID != "" {
		where = append(where, fmt.Sprintf("target_camp_id = $%d", argIdx))
		args = append(args, filters.TargetCampID)
		argIdx++
	}
	if filters.PersonID != "" {
		where = append(where, fmt.Sprintf("person_ids @> to_jsonb(ARRAY[$%d::text])", argIdx))
		args = append(args, filters.PersonID)
		argIdx++
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM transfer_requests WHERE ` + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	query := `SELECT ` + transferColumns + ` FROM transfer_requests WHERE ` + whereClause +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*domain.TransferRequest{}
	for rows.Next() {
		req, err := scanTransfer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, req)
	}
	return out, total, rows.Err()
}

// ListActiveByPerson 查询包含指定人员的非终态申请
func (r *PostgresTransfersRepository) ListActiveByPerson(ctx context.Context, personID string) ([]*domain.TransferRequest, error) {
	if personID == "" {
		return []*domain.TransferRequest{}, nil
	}

	query := `SELECT ` + transferColumns + `
		FROM transfer_requests
		WHERE person_ids @> to_jsonb(ARRAY[$1::text])
		  AND status NOT IN ($2, $3)`
	rows, err := r.db.QueryContext(ctx, query, personID,
		domain.TransferStatusCompleted, domain.TransferStatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.TransferRequest{}
	for rows.Next() {
		req, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
