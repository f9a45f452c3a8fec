package repository

import (
	"context"
	"database/sql"
	"fmt"

	"campwise-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresTransferLogsRepository 转移审计日志Repository实现
// 只追加：不提供 UPDATE / DELETE 语句
type PostgresTransferLogsRepository struct {
	db *sql.DB
}

// NewPostgresTransferLogsRepository 创建审计日志Repository
func NewPostgresTransferLogsRepository(db *sql.DB) *PostgresTransferLogsRepository {
	return &PostgresTransferLogsRepository{db: db}
}

var _ TransferLogsRepository = (*PostgresTransferLogsRepository)(nil)

const transferLogColumns = `
	log_id::text,
	person_id::text,
	from_camp_id::text,
	to_camp_id::text,
	from_bed_id::text,
	to_bed_id::text,
	transfer_date,
	transfer_time,
	transfer_request_id::text,
	transferred_by,
	notes,
	created_at
`

func scanTransferLog(row interface{ Scan(...any) error }) (*domain.TransferLogEntry, error) {
	var e domain.TransferLogEntry
	err := row.Scan(
		&e.LogID,
		&e.PersonID,
		&e.FromCampID,
		&e.ToCampID,
		&e.FromBedID,
		&e.ToBedID,
		&e.TransferDate,
		&e.TransferTime,
		&e.TransferRequestID,
		&e.TransferredBy,
		&e.Notes,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// AppendTransferLog 追加一条审计日志
func (r *PostgresTransferLogsRepository) AppendTransferLog(ctx context.Context, entry *domain.TransferLogEntry) (string, error) {
	if entry.PersonID == "" || entry.TransferRequestID == "" {
		return "", fmt.Errorf("person_id and transfer_request_id are required")
	}

	logID := entry.LogID
	if logID == "" {
		logID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transfer_logs (
			log_id, person_id, from_camp_id, to_camp_id, from_bed_id, to_bed_id,
			transfer_date, transfer_time, transfer_request_id, transferred_by, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())`,
		logID,
		entry.PersonID,
		entry.FromCampID,
		entry.ToCampID,
		entry.FromBedID,
		entry.ToBedID,
		entry.TransferDate,
		entry.TransferTime,
		entry.TransferRequestID,
		entry.TransferredBy,
		entry.Notes,
	)
	if err != nil {
		return "", err
	}
	return logID, nil
}

// ListTransferLogsByRequest 按申请查询审计日志
func (r *PostgresTransferLogsRepository) ListTransferLogsByRequest(ctx context.Context, requestID string) ([]*domain.TransferLogEntry, error) {
	query := `SELECT ` + transferLogColumns + `
		FROM transfer_logs WHERE transfer_request_id = $1 ORDER BY created_at`
	return r.queryLogs(ctx, query, requestID)
}

// ListTransferLogsByPerson 按人员查询审计日志
func (r *PostgresTransferLogsRepository) ListTransferLogsByPerson(ctx context.Context, personID string) ([]*domain.TransferLogEntry, error) {
	query := `SELECT ` + transferLogColumns + `
		FROM transfer_logs WHERE person_id = $1 ORDER BY created_at`
	return r.queryLogs(ctx, query, personID)
}

// ListTransferLogs 全量分页（Excel 导出用）
func (r *PostgresTransferLogsRepository) ListTransferLogs(ctx context.Context, page, size int) ([]*domain.TransferLogEntry, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transfer_logs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	query := `SELECT ` + transferLogColumns + `
		FROM transfer_logs ORDER BY created_at LIMIT $1 OFFSET $2`
	entries, err := r.queryLogs(ctx, query, size, (page-1)*size)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *PostgresTransferLogsRepository) queryLogs(ctx context.Context, query string, args ...any) ([]*domain.TransferLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.TransferLogEntry{}
	for rows.Next() {
		e, err := scanTransferLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
