package repository

import (
	"context"
	"sync"
	"time"

	"campwise-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryTransferLogsRepo 转移审计日志内存实现（只追加）
type MemoryTransferLogsRepo struct {
	mu      sync.RWMutex
	entries []domain.TransferLogEntry
}

func NewMemoryTransferLogsRepo() *MemoryTransferLogsRepo {
	return &MemoryTransferLogsRepo{}
}

func (r *MemoryTransferLogsRepo) AppendTransferLog(_ context.Context, entry *domain.TransferLogEntry) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	if cp.LogID == "" {
		cp.LogID = uuid.NewString()
	}
	cp.CreatedAt = time.Now()
	r.entries = append(r.entries, cp)
	return cp.LogID, nil
}

func (r *MemoryTransferLogsRepo) ListTransferLogsByRequest(_ context.Context, requestID string) ([]*domain.TransferLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.TransferLogEntry{}
	for i := range r.entries {
		if r.entries[i].TransferRequestID == requestID {
			cp := r.entries[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryTransferLogsRepo) ListTransferLogsByPerson(_ context.Context, personID string) ([]*domain.TransferLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.TransferLogEntry{}
	for i := range r.entries {
		if r.entries[i].PersonID == personID {
			cp := r.entries[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryTransferLogsRepo) ListTransferLogs(_ context.Context, page, size int) ([]*domain.TransferLogEntry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := len(r.entries)
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	start := (page - 1) * size
	if start >= total {
		return []*domain.TransferLogEntry{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	out := make([]*domain.TransferLogEntry, 0, end-start)
	for i := start; i < end; i++ {
		cp := r.entries[i]
		out = append(out, &cp)
	}
	return out, total, nil
}
