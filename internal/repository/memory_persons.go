package repository

import (
	"context"
	"database/sql"
	"sync"

	"campwise-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryPersonsRepo 人员档案内存实现（DB 未就绪时的联测与单元测试）
type MemoryPersonsRepo struct {
	mu      sync.RWMutex
	persons map[string]domain.Person
}

func NewMemoryPersonsRepo() *MemoryPersonsRepo {
	return &MemoryPersonsRepo{persons: map[string]domain.Person{}}
}

// SeedPerson 造数：nil CampID 表示未入营
func (r *MemoryPersonsRepo) SeedPerson(p domain.Person) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.PersonID == "" {
		p.PersonID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = domain.PersonStatusActive
	}
	r.persons[p.PersonID] = p
	return p.PersonID
}

func (r *MemoryPersonsRepo) GetPerson(_ context.Context, personID string) (*domain.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.persons[personID]
	if !ok {
		return nil, ErrPersonNotFound
	}
	out := p
	return &out, nil
}

func (r *MemoryPersonsRepo) ListPersonsByIDs(_ context.Context, personIDs []string) ([]*domain.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Person, 0, len(personIDs))
	for _, id := range personIDs {
		if p, ok := r.persons[id]; ok {
			pp := p
			out = append(out, &pp)
		}
	}
	return out, nil
}

func (r *MemoryPersonsRepo) UpdatePerson(_ context.Context, personID string, update PersonUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.persons[personID]
	if !ok {
		return ErrPersonNotFound
	}
	if update.CampID != nil {
		p.CampID = sql.NullString{String: *update.CampID, Valid: true}
	}
	if update.ClearBed {
		p.BedID = sql.NullString{}
	} else if update.BedID != nil {
		p.BedID = sql.NullString{String: *update.BedID, Valid: true}
	}
	if update.Status != nil {
		p.Status = *update.Status
	}
	if update.InductionCompleted != nil {
		p.InductionCompleted = *update.InductionCompleted
	}
	if update.ClearInductionDate {
		p.InductionDate = sql.NullTime{}
	} else if update.InductionDate != nil {
		p.InductionDate = sql.NullTime{Time: *update.InductionDate, Valid: true}
	}
	if update.ActualArrivalDate != nil {
		p.ActualArrivalDate = sql.NullTime{Time: *update.ActualArrivalDate, Valid: true}
	}
	if update.ActualArrivalTime != nil {
		p.ActualArrivalTime = sql.NullString{String: *update.ActualArrivalTime, Valid: true}
	}
	if update.ExitProcessStatus != nil {
		p.ExitProcessStatus = sql.NullString{String: *update.ExitProcessStatus, Valid: true}
	}
	if update.ExitStartedDate != nil {
		p.ExitStartedDate = sql.NullTime{Time: *update.ExitStartedDate, Valid: true}
	}
	r.persons[personID] = p
	return nil
}
