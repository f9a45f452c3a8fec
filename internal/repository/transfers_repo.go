package repository

import (
	"context"

	"campwise-data/internal/domain"
)

// TransferRequestsRepository 转移申请接口
type TransferRequestsRepository interface {
	CreateTransferRequest(ctx context.Context, req *domain.TransferRequest) (string, error)
	GetTransferRequest(ctx context.Context, requestID string) (*domain.TransferRequest, error)
	// UpdateTransferRequest 部分更新：只写 update 中非 nil 的字段
	UpdateTransferRequest(ctx context.Context, requestID string, update TransferRequestUpdate) error
	ListTransferRequests(ctx context.Context, filters TransferFilters, page, size int) ([]*domain.TransferRequest, int, error)
	// ListActiveByPerson 返回包含指定人员且未到终态（completed/cancelled）的申请
	ListActiveByPerson(ctx context.Context, personID string) ([]*domain.TransferRequest, error)
}

// TransferRequestUpdate 转移申请部分更新字段（nil = 不修改）
type TransferRequestUpdate struct {
	Status              *string
	AllocatedBeds       map[string]domain.BedAssignment
	ArrivedPersonIDs    []string
	PreDispatchStatuses map[string]string
}

// TransferFilters 转移申请查询过滤器
type TransferFilters struct {
	Status       string
	SourceCampID string
	TargetCampID string
	PersonID     string
}
