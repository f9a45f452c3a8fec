package service

import (
	"context"
	"sort"
	"strings"

	"campwise-data/internal/domain"
	"campwise-data/internal/repository"

	"go.uber.org/zap"
)

// AllocationService 床位分配引擎
// 职责：
// 1. 为申请内每名人员确定一张兼容床位（确定性结果）
// 2. 通过逐床 CAS 预留，防止并发双重分配
// 3. 分配结果冻结到申请上（一次产出，只读）
type AllocationService interface {
	AllocateBeds(ctx context.Context, req AllocateBedsInput) (*AllocateBedsResponse, error)
}

type allocationService struct {
	camps     repository.CampsRepository
	persons   repository.PersonsRepository
	beds      repository.BedsRepository
	transfers repository.TransferRequestsRepository
	exitCheck ExitEligibilityChecker
	locks     *LockRegistry
	logger    *zap.Logger
}

// NewAllocationService 创建 AllocationService 实例
func NewAllocationService(
	camps repository.CampsRepository,
	persons repository.PersonsRepository,
	beds repository.BedsRepository,
	transfers repository.TransferRequestsRepository,
	exitCheck ExitEligibilityChecker,
	locks *LockRegistry,
	logger *zap.Logger,
) AllocationService {
	return &allocationService{
		camps:     camps,
		persons:   persons,
		beds:      beds,
		transfers: transfers,
		exitCheck: exitCheck,
		locks:     locks,
		logger:    logger,
	}
}

type AllocateBedsInput struct {
	RequestID   string
	AllocatedBy string
}

type AllocateBedsResponse struct {
	RequestID     string                          `json:"request_id"`
	Status        string                          `json:"status"`
	AllocatedBeds map[string]domain.BedAssignment `json:"allocated_beds"`
}

// AllocateBeds 执行床位分配
// 重复调用幂等：已是 beds_allocated 时直接返回冻结结果。
func (s *allocationService) AllocateBeds(ctx context.Context, req AllocateBedsInput) (*AllocateBedsResponse, error) {
	if req.RequestID == "" {
		return nil, NewValidationError(CodeMissingField, "request_id is required")
	}

	s.locks.Requests.Lock(req.RequestID)
	defer s.locks.Requests.Unlock(req.RequestID)

	request, err := s.transfers.GetTransferRequest(ctx, req.RequestID)
	if err != nil {
		if err == repository.ErrRequestNotFound {
			return nil, NewNotFoundError(CodeRequestNotFound, "transfer request not found", req.RequestID)
		}
		return nil, NewDependencyError("get transfer request failed", err, req.RequestID)
	}

	// 幂等：分配已冻结则原样返回，但先确认每张冻结床位仍处于预留状态。
	// 床位被外部改动（容量变化）时按容量不足拒绝，而不是返回失效的分配。
	if request.Status == domain.TransferStatusBedsAllocated && len(request.AllocatedBeds) > 0 {
		stale := []string{}
		for personID, assignment := range request.AllocatedBeds {
			bed, err := s.beds.GetBed(ctx, assignment.BedID)
			if err == repository.ErrBedNotFound {
				stale = append(stale, personID)
				continue
			}
			if err != nil {
				return nil, NewDependencyError("get allocated bed failed", err, assignment.BedID)
			}
			if bed.Status != domain.BedStatusReserved {
				stale = append(stale, personID)
			}
		}
		if len(stale) > 0 {
			sort.Strings(stale)
			return nil, NewValidationError(CodeInsufficientCapacity,
				"frozen allocation no longer backed by reserved beds for: "+strings.Join(stale, ", "),
				stale...)
		}
		return &AllocateBedsResponse{
			RequestID:     request.RequestID,
			Status:        request.Status,
			AllocatedBeds: request.AllocatedBeds,
		}, nil
	}
	if !ValidTransition("allocate", request.Status) {
		return nil, invalidTransitionError(req.RequestID, "allocate", request.Status)
	}

	// 人员锁内重验资格：防止两个申请并发给同一人分床
	unlock := s.locks.Persons.LockAll(request.PersonIDs)
	defer unlock()

	for _, personID := range request.PersonIDs {
		if err := validatePersonEligibility(ctx, s.persons, s.transfers, s.exitCheck,
			personID, request.Reason, request.RequestID); err != nil {
			return nil, err
		}
	}

	persons, err := s.persons.ListPersonsByIDs(ctx, request.PersonIDs)
	if err != nil {
		return nil, NewDependencyError("list persons failed", err)
	}
	if len(persons) != len(request.PersonIDs) {
		return nil, NewNotFoundError(CodePersonNotFound, "some persons in request no longer exist", req.RequestID)
	}
	personByID := map[string]*domain.Person{}
	for _, p := range persons {
		personByID[p.PersonID] = p
	}

	targetCamp, err := s.camps.GetCamp(ctx, request.TargetCampID)
	if err != nil {
		return nil, NewNotFoundError(CodeCampNotFound, "target camp not found", request.TargetCampID)
	}

	vacant, err := s.beds.ListVacantBedsByCamp(ctx, request.TargetCampID)
	if err != nil {
		return nil, NewDependencyError("list vacant beds failed", err, request.TargetCampID)
	}

	// 先完整求解匹配，再做任何预留：容量不足时零写入拒绝
	assignment, unplaced := matchBeds(request.PersonIDs, personByID, vacant)
	if len(unplaced) > 0 {
		return nil, NewValidationError(CodeInsufficientCapacity,
			"target camp has insufficient compatible vacant beds for: "+strings.Join(unplaced, ", "),
			unplaced...)
	}

	// 逐床 CAS 预留；任何一床失败则整体回退
	isTemporary := targetCamp.CampType == domain.CampTypeExit
	reserved := []string{}
	for _, personID := range request.PersonIDs {
		bedID := assignment[personID]
		err := s.beds.CompareAndSetStatus(ctx, bedID,
			domain.BedStatusVacant, domain.BedStatusReserved, nil)
		if err != nil {
			s.releaseReserved(ctx, reserved)
			if err == repository.ErrBedStatusConflict {
				return nil, NewConflictError(CodeBedUnavailable,
					"bed claimed by a concurrent allocation, retry", bedID)
			}
			return nil, NewDependencyError("reserve bed failed", err, bedID)
		}
		reserved = append(reserved, bedID)
	}

	allocated := make(map[string]domain.BedAssignment, len(assignment))
	for personID, bedID := range assignment {
		allocated[personID] = domain.BedAssignment{BedID: bedID, IsTemporary: isTemporary}
	}
	status := domain.TransferStatusBedsAllocated
	if err := s.transfers.UpdateTransferRequest(ctx, req.RequestID, repository.TransferRequestUpdate{
		Status:        &status,
		AllocatedBeds: allocated,
	}); err != nil {
		s.releaseReserved(ctx, reserved)
		return nil, NewDependencyError("freeze allocation failed", err, req.RequestID)
	}

	s.logger.Info("beds allocated",
		zap.String("request_id", req.RequestID),
		zap.String("allocated_by", req.AllocatedBy),
		zap.Int("bed_count", len(allocated)),
		zap.Bool("is_temporary", isTemporary),
	)
	return &AllocateBedsResponse{
		RequestID:     req.RequestID,
		Status:        status,
		AllocatedBeds: allocated,
	}, nil
}

// matchBeds 确定性匹配：人员按申请内顺序，床位按 room_name, bed_number 顺序，
// 取第一张性别兼容且未被本次分配占用的床。
// 返回 person_id -> bed_id 与无法安置的人员列表。
func matchBeds(personIDs []string, personByID map[string]*domain.Person, vacant []*repository.BedWithRoom) (map[string]string, []string) {
	assignment := map[string]string{}
	used := map[string]bool{}
	unplaced := []string{}

	for _, personID := range personIDs {
		person := personByID[personID]
		found := ""
		for _, bw := range vacant {
			if used[bw.Bed.BedID] || !bw.Room.AllowsGender(person.Gender) {
				continue
			}
			found = bw.Bed.BedID
			break
		}
		if found == "" {
			unplaced = append(unplaced, personID)
			continue
		}
		assignment[personID] = found
		used[found] = true
	}
	sort.Strings(unplaced)
	return assignment, unplaced
}

// releaseReserved 分配失败的补偿：把已预留的床放回 vacant
func (s *allocationService) releaseReserved(ctx context.Context, bedIDs []string) {
	for _, bedID := range bedIDs {
		if err := s.beds.CompareAndSetStatus(ctx, bedID,
			domain.BedStatusReserved, domain.BedStatusVacant, nil); err != nil {
			s.logger.Error("compensation failed: release reserved bed",
				zap.String("bed_id", bedID), zap.Error(err))
		}
	}
}
