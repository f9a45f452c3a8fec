package repository

import (
	"context"

	"campwise-data/internal/domain"
)

// SchedulePoliciesRepository 调度策略接口（策略维护由后台系统负责，本服务只读）
type SchedulePoliciesRepository interface {
	ListActivePolicies(ctx context.Context) ([]*domain.SchedulePolicy, error)
}
