package service

import (
	"context"
	"database/sql"
	"time"

	"campwise-data/internal/domain"
	"campwise-data/internal/repository"

	"go.uber.org/zap"
)

// ArrivalService 到达确认协调器
// 对每个 (申请, 人员) 原子地完成：旧床释放、新床入住、人员档案更新、
// 审计日志追加、申请状态重算。
//
// 实现为带补偿的 saga：持申请级锁串行执行（同一申请的并发确认、取消互斥），
// 床位走 CAS；审计日志只追加且放在最后一步，之前任何失败都先补偿已完成
// 的子步骤再返回，保证"要么全部生效，要么如同未发生"。
type ArrivalService interface {
	ConfirmArrival(ctx context.Context, req ConfirmArrivalInput) (*ConfirmArrivalResponse, error)
}

type arrivalService struct {
	camps     repository.CampsRepository
	persons   repository.PersonsRepository
	beds      repository.BedsRepository
	transfers repository.TransferRequestsRepository
	logs      repository.TransferLogsRepository
	locks     *LockRegistry
	logger    *zap.Logger
}

// NewArrivalService 创建 ArrivalService 实例
func NewArrivalService(
	camps repository.CampsRepository,
	persons repository.PersonsRepository,
	beds repository.BedsRepository,
	transfers repository.TransferRequestsRepository,
	logs repository.TransferLogsRepository,
	locks *LockRegistry,
	logger *zap.Logger,
) ArrivalService {
	return &arrivalService{
		camps:     camps,
		persons:   persons,
		beds:      beds,
		transfers: transfers,
		logs:      logs,
		locks:     locks,
		logger:    logger,
	}
}

type ConfirmArrivalInput struct {
	RequestID   string
	PersonID    string
	ArrivalDate time.Time // 必填
	ArrivalTime string    // 必填 "HH:MM"
	ConfirmedBy string    // 必填
	Notes       string    // 可选
}

type ConfirmArrivalResponse struct {
	RequestID     string `json:"request_id"`
	PersonID      string `json:"person_id"`
	BedID         string `json:"bed_id"`
	RequestStatus string `json:"request_status"`
}

// ConfirmArrival 确认一名人员到达
func (s *arrivalService) ConfirmArrival(ctx context.Context, req ConfirmArrivalInput) (*ConfirmArrivalResponse, error) {
	if req.RequestID == "" || req.PersonID == "" {
		return nil, NewValidationError(CodeMissingField, "request_id and person_id are required")
	}
	if req.ArrivalDate.IsZero() || req.ArrivalTime == "" {
		return nil, NewValidationError(CodeMissingField, "arrival date and time are required")
	}
	if req.ConfirmedBy == "" {
		return nil, NewValidationError(CodeMissingField, "confirmed_by is required")
	}

	// 申请级锁：同一申请的到达确认/取消串行化，
	// "最后一人"判定与 arrived_person_ids 重算因此无竞态。
	s.locks.Requests.Lock(req.RequestID)
	defer s.locks.Requests.Unlock(req.RequestID)

	request, err := s.transfers.GetTransferRequest(ctx, req.RequestID)
	if err != nil {
		if err == repository.ErrRequestNotFound {
			return nil, NewNotFoundError(CodeRequestNotFound, "transfer request not found", req.RequestID)
		}
		return nil, NewDependencyError("get transfer request failed", err, req.RequestID)
	}

	if !ValidTransition("confirm_arrival", request.Status) {
		return nil, invalidTransitionError(req.RequestID, "confirm_arrival", request.Status)
	}
	if !request.HasPerson(req.PersonID) {
		return nil, NewValidationError(CodeIneligiblePerson,
			"person is not a member of this transfer request", req.PersonID, req.RequestID)
	}
	// 幂等拒绝：重复确认不得重复写审计日志
	if request.HasArrived(req.PersonID) {
		return nil, NewConflictError(CodeAlreadyArrived,
			"arrival already confirmed for this person", req.PersonID, req.RequestID)
	}

	// 步骤1：查冻结分配
	assignment, ok := request.AllocatedBeds[req.PersonID]
	if !ok {
		return nil, NewNotFoundError(CodeAllocationNotFound,
			"no frozen bed allocation for person, re-run allocation", req.PersonID, req.RequestID)
	}

	person, err := s.persons.GetPerson(ctx, req.PersonID)
	if err != nil {
		return nil, NewNotFoundError(CodePersonNotFound, "person not found", req.PersonID)
	}
	targetCamp, err := s.camps.GetCamp(ctx, request.TargetCampID)
	if err != nil {
		return nil, NewNotFoundError(CodeCampNotFound, "target camp not found", request.TargetCampID)
	}

	// 以下为补偿链：每完成一步登记对应的回滚动作
	var compensations []func()
	compensate := func() {
		for i := len(compensations) - 1; i >= 0; i-- {
			compensations[i]()
		}
	}

	// 步骤2：释放旧床（如有）
	prevBedID := ""
	prevBedStatus := ""
	if person.BedID.Valid {
		prevBedID = person.BedID.String
		prevBedStatus = domain.BedStatusOccupied
		err := s.beds.CompareAndSetStatus(ctx, prevBedID,
			domain.BedStatusOccupied, domain.BedStatusVacant, nil)
		if err == repository.ErrBedStatusConflict {
			// 临时占用的旧床是 reserved 状态
			prevBedStatus = domain.BedStatusReserved
			err = s.beds.CompareAndSetStatus(ctx, prevBedID,
				domain.BedStatusReserved, domain.BedStatusVacant, nil)
		}
		if err != nil {
			if err == repository.ErrBedStatusConflict {
				return nil, NewConflictError(CodeBedUnavailable,
					"previous bed state inconsistent with person record", prevBedID)
			}
			return nil, NewDependencyError("release previous bed failed", err, prevBedID)
		}
		restoreStatus := prevBedStatus
		occupant := person.PersonID
		compensations = append(compensations, func() {
			if cerr := s.beds.CompareAndSetStatus(ctx, prevBedID,
				domain.BedStatusVacant, restoreStatus, &occupant); cerr != nil {
				s.logger.Error("compensation failed: restore previous bed",
					zap.String("bed_id", prevBedID), zap.Error(cerr))
			}
		})
	}

	// 步骤3：按冻结分配入住新床（前置状态必须是 reserved，防并发篡改）
	nextStatus := domain.BedStatusOccupied
	if assignment.IsTemporary {
		nextStatus = domain.BedStatusReserved
	}
	occupantID := req.PersonID
	if err := s.beds.CompareAndSetStatus(ctx, assignment.BedID,
		domain.BedStatusReserved, nextStatus, &occupantID); err != nil {
		compensate()
		if err == repository.ErrBedStatusConflict {
			return nil, NewConflictError(CodeBedUnavailable,
				"allocated bed no longer reserved, re-run allocation", assignment.BedID)
		}
		return nil, NewDependencyError("occupy allocated bed failed", err, assignment.BedID)
	}
	compensations = append(compensations, func() {
		if cerr := s.beds.CompareAndSetStatus(ctx, assignment.BedID,
			nextStatus, domain.BedStatusReserved, nil); cerr != nil {
			s.logger.Error("compensation failed: revert allocated bed",
				zap.String("bed_id", assignment.BedID), zap.Error(cerr))
		}
	})

	// 步骤4：更新人员档案（入住新营地 + 重置入营培训；培训是营地级的，必须重新完成）
	prevPerson := *person
	update := repository.PersonUpdate{
		CampID:             &request.TargetCampID,
		BedID:              &assignment.BedID,
		Status:             strPtr(domain.PersonStatusActive),
		InductionCompleted: boolPtr(false),
		ClearInductionDate: true,
		ActualArrivalDate:  &req.ArrivalDate,
		ActualArrivalTime:  &req.ArrivalTime,
	}
	if targetCamp.CampType == domain.CampTypeExit && person.Kind == domain.PersonKindTechnician {
		update.ExitProcessStatus = strPtr(domain.ExitProcessInProcess)
		update.ExitStartedDate = &req.ArrivalDate
	}
	if err := s.persons.UpdatePerson(ctx, req.PersonID, update); err != nil {
		compensate()
		return nil, NewDependencyError("update person failed", err, req.PersonID)
	}
	compensations = append(compensations, func() {
		if cerr := s.persons.UpdatePerson(ctx, req.PersonID, restorePersonUpdate(&prevPerson)); cerr != nil {
			s.logger.Error("compensation failed: restore person",
				zap.String("person_id", req.PersonID), zap.Error(cerr))
		}
	})

	// 步骤5：重算申请状态
	arrived := append(append([]string{}, request.ArrivedPersonIDs...), req.PersonID)
	newRequestStatus := domain.TransferStatusPartiallyArrived
	if len(arrived) == len(request.PersonIDs) {
		newRequestStatus = domain.TransferStatusCompleted
	}
	if err := s.transfers.UpdateTransferRequest(ctx, req.RequestID, repository.TransferRequestUpdate{
		Status:           &newRequestStatus,
		ArrivedPersonIDs: arrived,
	}); err != nil {
		compensate()
		return nil, NewDependencyError("update transfer request failed", err, req.RequestID)
	}
	prevRequestStatus := request.Status
	prevArrived := append([]string{}, request.ArrivedPersonIDs...)
	compensations = append(compensations, func() {
		if cerr := s.transfers.UpdateTransferRequest(ctx, req.RequestID, repository.TransferRequestUpdate{
			Status:           &prevRequestStatus,
			ArrivedPersonIDs: prevArrived,
		}); cerr != nil {
			s.logger.Error("compensation failed: revert transfer request",
				zap.String("request_id", req.RequestID), zap.Error(cerr))
		}
	})

	// 步骤6：审计日志（提交点；只追加，放最后保证失败时无日志残留）
	entry := &domain.TransferLogEntry{
		PersonID:          req.PersonID,
		FromCampID:        prevPerson.CampID,
		ToCampID:          request.TargetCampID,
		ToBedID:           assignment.BedID,
		TransferDate:      req.ArrivalDate,
		TransferTime:      req.ArrivalTime,
		TransferRequestID: req.RequestID,
		TransferredBy:     req.ConfirmedBy,
	}
	if prevBedID != "" {
		entry.FromBedID = sql.NullString{String: prevBedID, Valid: true}
	}
	if req.Notes != "" {
		entry.Notes = sql.NullString{String: req.Notes, Valid: true}
	}
	if _, err := s.logs.AppendTransferLog(ctx, entry); err != nil {
		compensate()
		return nil, NewDependencyError("append transfer log failed", err, req.RequestID)
	}

	s.logger.Info("arrival confirmed",
		zap.String("request_id", req.RequestID),
		zap.String("person_id", req.PersonID),
		zap.String("bed_id", assignment.BedID),
		zap.String("request_status", newRequestStatus),
	)
	return &ConfirmArrivalResponse{
		RequestID:     req.RequestID,
		PersonID:      req.PersonID,
		BedID:         assignment.BedID,
		RequestStatus: newRequestStatus,
	}, nil
}

// restorePersonUpdate 由快照构造回滚更新
func restorePersonUpdate(prev *domain.Person) repository.PersonUpdate {
	update := repository.PersonUpdate{
		Status:             &prev.Status,
		InductionCompleted: &prev.InductionCompleted,
	}
	if prev.CampID.Valid {
		update.CampID = &prev.CampID.String
	}
	if prev.BedID.Valid {
		update.BedID = &prev.BedID.String
	} else {
		update.ClearBed = true
	}
	if prev.InductionDate.Valid {
		update.InductionDate = &prev.InductionDate.Time
	} else {
		update.ClearInductionDate = true
	}
	if prev.ActualArrivalDate.Valid {
		update.ActualArrivalDate = &prev.ActualArrivalDate.Time
	}
	if prev.ActualArrivalTime.Valid {
		update.ActualArrivalTime = &prev.ActualArrivalTime.String
	}
	if prev.ExitProcessStatus.Valid {
		update.ExitProcessStatus = &prev.ExitProcessStatus.String
	}
	if prev.ExitStartedDate.Valid {
		update.ExitStartedDate = &prev.ExitStartedDate.Time
	}
	return update
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
