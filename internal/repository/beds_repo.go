package repository

import (
	"context"

	"campwise-data/internal/domain"
)

// BedsRepository 床位接口
// 状态迁移必须走 CompareAndSetStatus（带前置状态校验的条件更新），
// 保证两个并发分配不会选中同一张床。
type BedsRepository interface {
	GetBed(ctx context.Context, bedID string) (*domain.Bed, error)
	// ListBedsByCamp 返回营地内全部床位及所在房间（含性别限制）
	ListBedsByCamp(ctx context.Context, campID string) ([]*BedWithRoom, error)
	// ListVacantBedsByCamp 返回营地内空闲床位，按 room_name, bed_number 稳定排序
	ListVacantBedsByCamp(ctx context.Context, campID string) ([]*BedWithRoom, error)
	// CompareAndSetStatus 仅当床位当前状态等于 expected 时迁移到 next 并写入
	// occupantID（nil = 清空占用人）。状态不匹配返回 ErrBedStatusConflict。
	CompareAndSetStatus(ctx context.Context, bedID, expected, next string, occupantID *string) error
}

// BedWithRoom 床位及所在房间（分配引擎需要房间性别限制与营地归属）
type BedWithRoom struct {
	Bed  *domain.Bed
	Room *domain.Room
}
