package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"campwise-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryCatalogRepo: 用于 DB 未就绪时的联测与单元测试
// （camps -> rooms -> beds 的最小闭环，实现 CampsRepository + BedsRepository）
// - IDs 使用 uuid
// - CompareAndSetStatus 在仓库级互斥锁内完成读改写，语义与 Postgres 条件 UPDATE 一致
type MemoryCatalogRepo struct {
	mu sync.RWMutex

	camps map[string]domain.Camp
	rooms map[string]domain.Room // roomID -> Room
	beds  map[string]domain.Bed  // bedID -> Bed
}

func NewMemoryCatalogRepo() *MemoryCatalogRepo {
	return &MemoryCatalogRepo{
		camps: map[string]domain.Camp{},
		rooms: map[string]domain.Room{},
		beds:  map[string]domain.Bed{},
	}
}

// ---- seed helpers（联测/单测造数用） ----

func (r *MemoryCatalogRepo) SeedCamp(name, campType string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.NewString()
	r.camps[id] = domain.Camp{CampID: id, CampName: name, CampType: campType}
	return id
}

func (r *MemoryCatalogRepo) SeedRoom(campID, roomName, genderRestriction string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.NewString()
	r.rooms[id] = domain.Room{
		RoomID:            id,
		CampID:            campID,
		Floor:             "1F",
		RoomName:          roomName,
		GenderRestriction: genderRestriction,
	}
	return id
}

func (r *MemoryCatalogRepo) SeedBed(roomID, bedNumber string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.NewString()
	r.beds[id] = domain.Bed{
		BedID:     id,
		RoomID:    roomID,
		BedNumber: bedNumber,
		Status:    domain.BedStatusVacant,
	}
	return id
}

// SeedOccupiedBed 造一张已被占用的床（person 入住中场景）
func (r *MemoryCatalogRepo) SeedOccupiedBed(roomID, bedNumber, occupantID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.NewString()
	r.beds[id] = domain.Bed{
		BedID:      id,
		RoomID:     roomID,
		BedNumber:  bedNumber,
		Status:     domain.BedStatusOccupied,
		OccupantID: sql.NullString{String: occupantID, Valid: true},
	}
	return id
}

// ---- CampsRepository ----

func (r *MemoryCatalogRepo) GetCamp(_ context.Context, campID string) (*domain.Camp, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.camps[campID]
	if !ok {
		return nil, ErrCampNotFound
	}
	out := c
	return &out, nil
}

func (r *MemoryCatalogRepo) ListCamps(_ context.Context) ([]*domain.Camp, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Camp, 0, len(r.camps))
	for _, c := range r.camps {
		cc := c
		out = append(out, &cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CampName < out[j].CampName })
	return out, nil
}

// ---- BedsRepository ----

func (r *MemoryCatalogRepo) GetBed(_ context.Context, bedID string) (*domain.Bed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.beds[bedID]
	if !ok {
		return nil, ErrBedNotFound
	}
	out := b
	return &out, nil
}

func (r *MemoryCatalogRepo) ListBedsByCamp(_ context.Context, campID string) ([]*BedWithRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listBedsLocked(campID, ""), nil
}

func (r *MemoryCatalogRepo) ListVacantBedsByCamp(_ context.Context, campID string) ([]*BedWithRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listBedsLocked(campID, domain.BedStatusVacant), nil
}

// listBedsLocked 按 room_name, bed_number 稳定排序（分配确定性依赖此顺序）
func (r *MemoryCatalogRepo) listBedsLocked(campID, status string) []*BedWithRoom {
	out := []*BedWithRoom{}
	for _, b := range r.beds {
		room, ok := r.rooms[b.RoomID]
		if !ok || room.CampID != campID {
			continue
		}
		if status != "" && b.Status != status {
			continue
		}
		bb := b
		rr := room
		out = append(out, &BedWithRoom{Bed: &bb, Room: &rr})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Room.RoomName != out[j].Room.RoomName {
			return out[i].Room.RoomName < out[j].Room.RoomName
		}
		return out[i].Bed.BedNumber < out[j].Bed.BedNumber
	})
	return out
}

func (r *MemoryCatalogRepo) CompareAndSetStatus(_ context.Context, bedID, expected, next string, occupantID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.beds[bedID]
	if !ok {
		return ErrBedNotFound
	}
	if b.Status != expected {
		return ErrBedStatusConflict
	}
	b.Status = next
	if occupantID != nil {
		b.OccupantID = sql.NullString{String: *occupantID, Valid: true}
	} else {
		b.OccupantID = sql.NullString{}
	}
	r.beds[bedID] = b
	return nil
}
