package repository

import (
	"context"
	"database/sql"
	"fmt"

	"campwise-data/internal/domain"
)

// PostgresCatalogRepository 营地/房间/床位Repository实现（强类型版本）
// 实现CampsRepository + BedsRepository接口，使用domain领域模型
type PostgresCatalogRepository struct {
	db *sql.DB
}

// NewPostgresCatalogRepository 创建目录Repository
func NewPostgresCatalogRepository(db *sql.DB) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{db: db}
}

// 确保实现了接口
var _ CampsRepository = (*PostgresCatalogRepository)(nil)
var _ BedsRepository = (*PostgresCatalogRepository)(nil)

// ============================================
// Camps 表操作
// ============================================

// GetCamp 根据camp_id获取营地信息
func (r *PostgresCatalogRepository) GetCamp(ctx context.Context, campID string) (*domain.Camp, error) {
	if campID == "" {
		return nil, fmt.Errorf("camp_id is required")
	}

	query := `
		SELECT
			camp_id::text,
			camp_name,
			camp_type,
			city,
			capacity
		FROM camps
		WHERE camp_id = $1
	`
	var c domain.Camp
	err := r.db.QueryRowContext(ctx, query, campID).Scan(
		&c.CampID,
		&c.CampName,
		&c.CampType,
		&c.City,
		&c.Capacity,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCampNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListCamps 获取全部营地（目录规模小，无分页）
func (r *PostgresCatalogRepository) ListCamps(ctx context.Context) ([]*domain.Camp, error) {
	query := `
		SELECT
			camp_id::text,
			camp_name,
			camp_type,
			city,
			capacity
		FROM camps
		ORDER BY camp_name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Camp{}
	for rows.Next() {
		var c domain.Camp
		if err := rows.Scan(&c.CampID, &c.CampName, &c.CampType, &c.City, &c.Capacity); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// ============================================
// Beds 表操作
// ============================================

// GetBed 根据bed_id获取床位信息
func (r *PostgresCatalogRepository) GetBed(ctx context.Context, bedID string) (*domain.Bed, error) {
	if bedID == "" {
		return nil, fmt.Errorf("bed_id is required")
	}

	query := `
		SELECT
			bed_id::text,
			room_id::text,
			bed_number,
			status,
			occupant_id::text
		FROM beds
		WHERE bed_id = $1
	`
	var b domain.Bed
	err := r.db.QueryRowContext(ctx, query, bedID).Scan(
		&b.BedID,
		&b.RoomID,
		&b.BedNumber,
		&b.Status,
		&b.OccupantID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBedNotFound
		}
		return nil, err
	}
	return &b, nil
}

// ListBedsByCamp 获取营地内全部床位（含房间信息）
func (r *PostgresCatalogRepository) ListBedsByCamp(ctx context.Context, campID string) ([]*BedWithRoom, error) {
	return r.listBedsByCamp(ctx, campID, "")
}

// ListVacantBedsByCamp 获取营地内空闲床位
// 排序固定为 room_name, bed_number：分配结果的确定性依赖此顺序
func (r *PostgresCatalogRepository) ListVacantBedsByCamp(ctx context.Context, campID string) ([]*BedWithRoom, error) {
	return r.listBedsByCamp(ctx, campID, domain.BedStatusVacant)
}

func (r *PostgresCatalogRepository) listBedsByCamp(ctx context.Context, campID, status string) ([]*BedWithRoom, error) {
	if campID == "" {
		return []*BedWithRoom{}, nil
	}

	where := "rm.camp_id = $1"
	args := []any{campID}
	if status != "" {
		where += " AND b.status = $2"
		args = append(args, status)
	}

	query := `
		SELECT
			b.bed_id::text,
			b.room_id::text,
			b.bed_number,
			b.status,
			b.occupant_id::text,
			rm.room_id::text,
			rm.camp_id::text,
			rm.floor,
			rm.room_name,
			rm.gender_restriction
		FROM beds b
		JOIN rooms rm ON rm.room_id = b.room_id
		WHERE ` + where + `
		ORDER BY rm.room_name, b.bed_number
	`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*BedWithRoom{}
	for rows.Next() {
		var b domain.Bed
		var rm domain.Room
		if err := rows.Scan(
			&b.BedID,
			&b.RoomID,
			&b.BedNumber,
			&b.Status,
			&b.OccupantID,
			&rm.RoomID,
			&rm.CampID,
			&rm.Floor,
			&rm.RoomName,
			&rm.GenderRestriction,
		); err != nil {
			return nil, err
		}
		out = append(out, &BedWithRoom{Bed: &b, Room: &rm})
	}
	return out, rows.Err()
}

// CompareAndSetStatus 条件更新：仅当当前状态等于expected时生效
// RowsAffected=0 视为状态冲突（并发方已抢先修改）
func (r *PostgresCatalogRepository) CompareAndSetStatus(ctx context.Context, bedID, expected, next string, occupantID *string) error {
	if bedID == "" {
		return fmt.Errorf("bed_id is required")
	}

	var occupant sql.NullString
	if occupantID != nil {
		occupant = sql.NullString{String: *occupantID, Valid: true}
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE beds
		 SET status = $1, occupant_id = $2
		 WHERE bed_id = $3 AND status = $4`,
		next, occupant, bedID, expected,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// 区分"床位不存在"与"状态冲突"
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM beds WHERE bed_id = $1)`, bedID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrBedNotFound
		}
		return ErrBedStatusConflict
	}
	return nil
}
