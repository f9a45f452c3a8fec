package repository

import (
	"context"
	"time"

	"campwise-data/internal/domain"
)

// PersonsRepository 人员档案接口
// 使用强类型领域模型，不使用map[string]any
type PersonsRepository interface {
	GetPerson(ctx context.Context, personID string) (*domain.Person, error)
	ListPersonsByIDs(ctx context.Context, personIDs []string) ([]*domain.Person, error)
	// UpdatePerson 部分更新：只写 update 中非 nil 的字段
	UpdatePerson(ctx context.Context, personID string, update PersonUpdate) error
}

// PersonUpdate 人员部分更新字段（nil = 不修改）
// ClearInductionDate / ClearBed 用于显式置空 nullable 列。
type PersonUpdate struct {
	CampID             *string
	BedID              *string
	ClearBed           bool
	Status             *string
	InductionCompleted *bool
	InductionDate      *time.Time
	ClearInductionDate bool
	ActualArrivalDate  *time.Time
	ActualArrivalTime  *string
	ExitProcessStatus  *string
	ExitStartedDate    *time.Time
}
