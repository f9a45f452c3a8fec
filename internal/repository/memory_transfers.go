package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"campwise-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryTransfersRepo 转移申请内存实现
type MemoryTransfersRepo struct {
	mu       sync.RWMutex
	requests map[string]domain.TransferRequest
}

func NewMemoryTransfersRepo() *MemoryTransfersRepo {
	return &MemoryTransfersRepo{requests: map[string]domain.TransferRequest{}}
}

func (r *MemoryTransfersRepo) CreateTransferRequest(_ context.Context, req *domain.TransferRequest) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := cloneRequest(req)
	if cp.RequestID == "" {
		cp.RequestID = uuid.NewString()
	}
	now := time.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.requests[cp.RequestID] = cp
	return cp.RequestID, nil
}

func (r *MemoryTransfersRepo) GetTransferRequest(_ context.Context, requestID string) (*domain.TransferRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[requestID]
	if !ok {
		return nil, ErrRequestNotFound
	}
	out := cloneRequest(&req)
	return &out, nil
}

func (r *MemoryTransfersRepo) UpdateTransferRequest(_ context.Context, requestID string, update TransferRequestUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[requestID]
	if !ok {
		return ErrRequestNotFound
	}
	if update.Status != nil {
		req.Status = *update.Status
	}
	if update.AllocatedBeds != nil {
		m := make(map[string]domain.BedAssignment, len(update.AllocatedBeds))
		for k, v := range update.AllocatedBeds {
			m[k] = v
		}
		req.AllocatedBeds = m
	}
	if update.ArrivedPersonIDs != nil {
		req.ArrivedPersonIDs = append([]string{}, update.ArrivedPersonIDs...)
	}
	if update.PreDispatchStatuses != nil {
		m := make(map[string]string, len(update.PreDispatchStatuses))
		for k, v := range update.PreDispatchStatuses {
			m[k] = v
		}
		req.PreDispatchStatuses = m
	}
	req.UpdatedAt = time.Now()
	r.requests[requestID] = req
	return nil
}

func (r *MemoryTransfersRepo) ListTransferRequests(_ context.Context, filters TransferFilters, page, size int) ([]*domain.TransferRequest, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*domain.TransferRequest{}
	for _, req := range r.requests {
		if filters.Status != "" && req.Status != filters.Status {
			continue
		}
		if filters.SourceCampID != "" && req.SourceCampID != filters.SourceCampID {
			continue
		}
		if filters.TargetCampID != "" && req.TargetCampID != filters.TargetCampID {
			continue
		}
		if filters.PersonID != "" && !req.HasPerson(filters.PersonID) {
			continue
		}
		cp := cloneRequest(&req)
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	start := (page - 1) * size
	if start >= total {
		return []*domain.TransferRequest{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *MemoryTransfersRepo) ListActiveByPerson(_ context.Context, personID string) ([]*domain.TransferRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.TransferRequest{}
	for _, req := range r.requests {
		if req.IsTerminal() || !req.HasPerson(personID) {
			continue
		}
		cp := cloneRequest(&req)
		out = append(out, &cp)
	}
	return out, nil
}

// cloneRequest 深拷贝，避免调用方修改仓库内部状态
func cloneRequest(req *domain.TransferRequest) domain.TransferRequest {
	cp := *req
	cp.PersonIDs = append([]string{}, req.PersonIDs...)
	cp.ArrivedPersonIDs = append([]string{}, req.ArrivedPersonIDs...)
	if req.AllocatedBeds != nil {
		cp.AllocatedBeds = make(map[string]domain.BedAssignment, len(req.AllocatedBeds))
		for k, v := range req.AllocatedBeds {
			cp.AllocatedBeds[k] = v
		}
	}
	if req.PreDispatchStatuses != nil {
		cp.PreDispatchStatuses = make(map[string]string, len(req.PreDispatchStatuses))
		for k, v := range req.PreDispatchStatuses {
			cp.PreDispatchStatuses[k] = v
		}
	}
	return cp
}
