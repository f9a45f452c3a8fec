package repository

import (
	"context"

	"campwise-data/internal/domain"
)

// CampsRepository 营地目录接口（目录 CRUD 由后台系统维护，本服务只读）
type CampsRepository interface {
	GetCamp(ctx context.Context, campID string) (*domain.Camp, error)
	ListCamps(ctx context.Context) ([]*domain.Camp, error)
}
