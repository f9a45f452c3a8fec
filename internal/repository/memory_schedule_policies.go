package repository

import (
	"context"
	"sync"

	"campwise-data/internal/domain"

	"github.com/google/uuid"
)

// MemorySchedulePoliciesRepo 调度策略内存实现
type MemorySchedulePoliciesRepo struct {
	mu       sync.RWMutex
	policies []domain.SchedulePolicy
}

func NewMemorySchedulePoliciesRepo() *MemorySchedulePoliciesRepo {
	return &MemorySchedulePoliciesRepo{}
}

func (r *MemorySchedulePoliciesRepo) SeedPolicy(p domain.SchedulePolicy) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.PolicyID == "" {
		p.PolicyID = uuid.NewString()
	}
	r.policies = append(r.policies, p)
	return p.PolicyID
}

func (r *MemorySchedulePoliciesRepo) ListActivePolicies(_ context.Context) ([]*domain.SchedulePolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.SchedulePolicy{}
	for i := range r.policies {
		if !r.policies[i].IsActive {
			continue
		}
		cp := r.policies[i]
		cp.AllowedDays = append([]string{}, r.policies[i].AllowedDays...)
		out = append(out, &cp)
	}
	return out, nil
}
