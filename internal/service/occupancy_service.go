package service

import (
	"context"
	"encoding/json"
	"time"

	"campwise-data/internal/domain"
	"campwise-data/internal/repository"
	"campwise-data/internal/store"

	"go.uber.org/zap"
)

// OccupancyService 营地占用概览
// 床位状态统计来自 beds 表，快照缓存到 Redis（TTL 短，容忍轻微滞后）。
type OccupancyService interface {
	GetOccupancyCards(ctx context.Context, req OccupancyCardsInput) (*OccupancyCardsResponse, error)
	InvalidateCamp(ctx context.Context, campID string)
}

type occupancyService struct {
	camps  repository.CampsRepository
	beds   repository.BedsRepository
	kv     store.KV
	ttl    time.Duration
	logger *zap.Logger
}

// NewOccupancyService 创建 OccupancyService 实例
func NewOccupancyService(camps repository.CampsRepository, beds repository.BedsRepository, kv store.KV, logger *zap.Logger) OccupancyService {
	return &occupancyService{
		camps:  camps,
		beds:   beds,
		kv:     kv,
		ttl:    30 * time.Second,
		logger: logger,
	}
}

type OccupancyCardsInput struct {
	CampID string // 为空 = 全部营地
}

// OccupancyCard 单营地占用卡片
type OccupancyCard struct {
	CampID    string               `json:"camp_id"`
	CampName  string               `json:"camp_name"`
	CampType  string               `json:"camp_type"`
	TotalBeds int                  `json:"total_beds"`
	Vacant    int                  `json:"vacant"`
	Reserved  int                  `json:"reserved"`
	Occupied  int                  `json:"occupied"`
	Rooms     []RoomOccupancyBrief `json:"rooms"`
}

type RoomOccupancyBrief struct {
	RoomID   string `json:"room_id"`
	RoomName string `json:"room_name"`
	Vacant   int    `json:"vacant"`
	Reserved int    `json:"reserved"`
	Occupied int    `json:"occupied"`
}

type OccupancyCardsResponse struct {
	Items []*OccupancyCard `json:"items"`
}

func occupancyCacheKey(campID string) string {
	return "occupancy:camp:" + campID
}

func (s *occupancyService) GetOccupancyCards(ctx context.Context, req OccupancyCardsInput) (*OccupancyCardsResponse, error) {
	var camps []*domain.Camp
	if req.CampID != "" {
		camp, err := s.camps.GetCamp(ctx, req.CampID)
		if err != nil {
			return nil, NewNotFoundError(CodeCampNotFound, "camp not found", req.CampID)
		}
		camps = []*domain.Camp{camp}
	} else {
		all, err := s.camps.ListCamps(ctx)
		if err != nil {
			return nil, NewDependencyError("list camps failed", err)
		}
		camps = all
	}

	items := make([]*OccupancyCard, 0, len(camps))
	for _, camp := range camps {
		card, err := s.cardForCamp(ctx, camp)
		if err != nil {
			return nil, err
		}
		items = append(items, card)
	}
	return &OccupancyCardsResponse{Items: items}, nil
}

func (s *occupancyService) cardForCamp(ctx context.Context, camp *domain.Camp) (*OccupancyCard, error) {
	key := occupancyCacheKey(camp.CampID)
	if raw, err := s.kv.Get(ctx, key); err == nil {
		var card OccupancyCard
		if jerr := json.Unmarshal([]byte(raw), &card); jerr == nil {
			return &card, nil
		}
		// 缓存损坏则直接重建
	} else if err != store.ErrMiss {
		s.logger.Warn("occupancy cache read failed, falling back to DB",
			zap.String("camp_id", camp.CampID), zap.Error(err))
	}

	beds, err := s.beds.ListBedsByCamp(ctx, camp.CampID)
	if err != nil {
		return nil, NewDependencyError("list beds failed", err, camp.CampID)
	}

	card := &OccupancyCard{
		CampID:   camp.CampID,
		CampName: camp.CampName,
		CampType: camp.CampType,
	}
	roomIdx := map[string]int{}
	for _, bw := range beds {
		card.TotalBeds++
		idx, ok := roomIdx[bw.Room.RoomID]
		if !ok {
			card.Rooms = append(card.Rooms, RoomOccupancyBrief{
				RoomID:   bw.Room.RoomID,
				RoomName: bw.Room.RoomName,
			})
			idx = len(card.Rooms) - 1
			roomIdx[bw.Room.RoomID] = idx
		}
		switch bw.Bed.Status {
		case domain.BedStatusVacant:
			card.Vacant++
			card.Rooms[idx].Vacant++
		case domain.BedStatusReserved:
			card.Reserved++
			card.Rooms[idx].Reserved++
		case domain.BedStatusOccupied:
			card.Occupied++
			card.Rooms[idx].Occupied++
		}
	}

	if raw, err := json.Marshal(card); err == nil {
		if serr := s.kv.Set(ctx, key, string(raw), s.ttl); serr != nil {
			s.logger.Warn("occupancy cache write failed",
				zap.String("camp_id", camp.CampID), zap.Error(serr))
		}
	}
	return card, nil
}

// InvalidateCamp 到达确认/取消后主动失效快照（TTL 之外的尽力刷新）
func (s *occupancyService) InvalidateCamp(ctx context.Context, campID string) {
	if campID == "" {
		return
	}
	if err := s.kv.Delete(ctx, occupancyCacheKey(campID)); err != nil {
		s.logger.Warn("occupancy cache invalidate failed",
			zap.String("camp_id", campID), zap.Error(err))
	}
}
