package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"campwise-data/internal/domain"

	"github.com/lib/pq"
)

// PostgresPersonsRepository 人员Repository实现（强类型版本）
type PostgresPersonsRepository struct {
	db *sql.DB
}

// NewPostgresPersonsRepository 创建人员Repository
func NewPostgresPersonsRepository(db *sql.DB) *PostgresPersonsRepository {
	return &PostgresPersonsRepository{db: db}
}

var _ PersonsRepository = (*PostgresPersonsRepository)(nil)

const personColumns = `
	person_id::text,
	kind,
	full_name,
	employee_id,
	company_name,
	gender,
	nationality,
	camp_id::text,
	bed_id::text,
	status,
	induction_completed,
	induction_date,
	actual_arrival_date,
	actual_arrival_time,
	exit_process_status,
	exit_started_date
`

func scanPerson(row interface{ Scan(...any) error }) (*domain.Person, error) {
	var p domain.Person
	err := row.Scan(
		&p.PersonID,
		&p.Kind,
		&p.FullName,
		&p.EmployeeID,
		&p.CompanyName,
		&p.Gender,
		&p.Nationality,
		&p.CampID,
		&p.BedID,
		&p.Status,
		&p.InductionCompleted,
		&p.InductionDate,
		&p.ActualArrivalDate,
		&p.ActualArrivalTime,
		&p.ExitProcessStatus,
		&p.ExitStartedDate,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPerson 根据person_id获取人员档案
func (r *PostgresPersonsRepository) GetPerson(ctx context.Context, personID string) (*domain.Person, error) {
	if personID == "" {
		return nil, fmt.Errorf("person_id is required")
	}

	query := `SELECT ` + personColumns + ` FROM persons WHERE person_id = $1`
	p, err := scanPerson(r.db.QueryRowContext(ctx, query, personID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPersonNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListPersonsByIDs 批量获取人员档案（缺失的ID静默跳过，由service层核对数量）
func (r *PostgresPersonsRepository) ListPersonsByIDs(ctx context.Context, personIDs []string) ([]*domain.Person, error) {
	if len(personIDs) == 0 {
		return []*domain.Person{}, nil
	}

	query := `SELECT ` + personColumns + ` FROM persons WHERE person_id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(personIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePerson 部分更新：动态拼接SET子句，只写非nil字段
func (r *PostgresPersonsRepository) UpdatePerson(ctx context.Context, personID string, update PersonUpdate) error {
	if personID == "" {
		return fmt.Errorf("person_id is required")
	}

	sets := []string{}
	args := []any{}
	argIdx := 1

	addSet := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}

	if update.CampID != nil {
		addSet("camp_id", *update.CampID)
	}
	if update.ClearBed {
		sets = append(sets, "bed_id = NULL")
	} else if update.BedID != nil {
		addSet("bed_id", *update.BedID)
	}
	if update.Status != nil {
		addSet("status", *update.Status)
	}
	if update.InductionCompleted != nil {
		addSet("induction_completed", *update.InductionCompleted)
	}
	if update.ClearInductionDate {
		sets = append(sets, "induction_date = NULL")
	} else if update.InductionDate != nil {
		addSet("induction_date", *update.InductionDate)
	}
	if update.ActualArrivalDate != nil {
		addSet("actual_arrival_date", *update.ActualArrivalDate)
	}
	if update.ActualArrivalTime != nil {
		addSet("actual_arrival_time", *update.ActualArrivalTime)
	}
	if update.ExitProcessStatus != nil {
		addSet("exit_process_status", *update.ExitProcessStatus)
	}
	if update.ExitStartedDate != nil {
		addSet("exit_started_date", *update.ExitStartedDate)
	}

	if len(sets) == 0 {
		return nil
	}

	query := `UPDATE persons SET ` + strings.Join(sets, ", ") +
		fmt.Sprintf(` WHERE person_id = $%d`, argIdx)
	args = append(args, personID)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPersonNotFound
	}
	return nil
}
