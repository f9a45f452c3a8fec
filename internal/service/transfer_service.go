package service

import (
	"context"
	"fmt"
	"time"

	"campwise-data/internal/domain"
	"campwise-data/internal/repository"

	"go.uber.org/zap"
)

// TransferService 转移申请状态机服务
// 职责：
// 1. 提交校验（人员资格、调度窗口）
// 2. 状态迁移（approve / dispatch / cancel）
// 3. 取消时释放已预留床位
type TransferService interface {
	SubmitTransferRequest(ctx context.Context, req SubmitTransferRequestInput) (*SubmitTransferRequestResponse, error)
	ApproveDispatch(ctx context.Context, req ApproveDispatchInput) (*TransferActionResponse, error)
	MarkDispatched(ctx context.Context, req MarkDispatchedInput) (*TransferActionResponse, error)
	CancelRequest(ctx context.Context, req CancelRequestInput) (*TransferActionResponse, error)
	GetTransferRequest(ctx context.Context, requestID string) (*domain.TransferRequest, error)
	ListTransferRequests(ctx context.Context, req ListTransfersInput) (*ListTransfersResponse, error)
}

type transferService struct {
	camps     repository.CampsRepository
	persons   repository.PersonsRepository
	beds      repository.BedsRepository
	transfers repository.TransferRequestsRepository
	policies  repository.SchedulePoliciesRepository
	exitCheck ExitEligibilityChecker
	locks     *LockRegistry
	logger    *zap.Logger
}

// NewTransferService 创建 TransferService 实例
func NewTransferService(
	camps repository.CampsRepository,
	persons repository.PersonsRepository,
	beds repository.BedsRepository,
	transfers repository.TransferRequestsRepository,
	policies repository.SchedulePoliciesRepository,
	exitCheck ExitEligibilityChecker,
	locks *LockRegistry,
	logger *zap.Logger,
) TransferService {
	return &transferService{
		camps:     camps,
		persons:   persons,
		beds:      beds,
		transfers: transfers,
		policies:  policies,
		exitCheck: exitCheck,
		locks:     locks,
		logger:    logger,
	}
}

// ============================================
// 请求/响应结构
// ============================================

type SubmitTransferRequestInput struct {
	SourceCampID          string    // 必填
	TargetCampID          string    // 必填
	PersonIDs             []string  // 必填，非空
	Reason                string    // 必填
	ScheduledDispatchDate time.Time // 必填
	ScheduledDispatchTime string    // 必填 "HH:MM"
	RequestedBy           string    // 必填
	AsOf                  time.Time // 调度窗口解析基准日期（handler 传 time.Now()）
}

type SubmitTransferRequestResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

type ApproveDispatchInput struct {
	RequestID  string
	ApprovedBy string
}

type MarkDispatchedInput struct {
	RequestID    string
	DispatchedBy string
}

type CancelRequestInput struct {
	RequestID   string
	CancelledBy string
}

// TransferActionResponse 状态迁移类操作的统一响应
type TransferActionResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

type ListTransfersInput struct {
	Filters  repository.TransferFilters
	Page     int
	PageSize int
}

type ListTransfersResponse struct {
	Items []*domain.TransferRequest `json:"items"`
	Total int                       `json:"total"`
}

// ============================================
// 提交
// ============================================

// SubmitTransferRequest 提交转移申请
// 所有校验（含人员资格）在任何写入之前完成；校验失败不产生任何变更。
func (s *transferService) SubmitTransferRequest(ctx context.Context, req SubmitTransferRequestInput) (*SubmitTransferRequestResponse, error) {
	if req.SourceCampID == "" || req.TargetCampID == "" {
		return nil, NewValidationError(CodeMissingField, "source_camp_id and target_camp_id are required")
	}
	if req.SourceCampID == req.TargetCampID {
		return nil, NewValidationError(CodeMissingField, "source and target camp must differ", req.SourceCampID)
	}
	if len(req.PersonIDs) == 0 {
		return nil, NewValidationError(CodeMissingField, "person_ids must not be empty")
	}
	if req.RequestedBy == "" {
		return nil, NewValidationError(CodeMissingField, "requested_by is required")
	}
	switch req.Reason {
	case domain.TransferReasonRegular, domain.TransferReasonExitCase,
		domain.TransferReasonMedical, domain.TransferReasonDisciplinary:
	default:
		return nil, NewValidationError(CodeMissingField, "unknown transfer reason: "+req.Reason)
	}
	if req.ScheduledDispatchDate.IsZero() || req.ScheduledDispatchTime == "" {
		return nil, NewValidationError(CodeMissingField, "scheduled dispatch date and time are required")
	}

	sourceCamp, err := s.camps.GetCamp(ctx, req.SourceCampID)
	if err != nil {
		return nil, NewNotFoundError(CodeCampNotFound, "source camp not found", req.SourceCampID)
	}
	targetCamp, err := s.camps.GetCamp(ctx, req.TargetCampID)
	if err != nil {
		return nil, NewNotFoundError(CodeCampNotFound, "target camp not found", req.TargetCampID)
	}

	// 调度窗口校验（床位查询之前）
	policies, err := s.policies.ListActivePolicies(ctx)
	if err != nil {
		return nil, NewDependencyError("list schedule policies failed", err)
	}
	window := ResolveDispatchWindow(req.AsOf, sourceCamp.CampType, targetCamp.CampType, policies)
	if !window.AllowsDay(req.ScheduledDispatchDate) {
		return nil, NewValidationError(CodeScheduleWindow,
			fmt.Sprintf("dispatch day %s not allowed by policy '%s' (allowed: %s)",
				req.ScheduledDispatchDate.Weekday(), window.SeasonName, window.DayNames()))
	}
	if !window.AllowsSlot(req.ScheduledDispatchTime) {
		return nil, NewValidationError(CodeScheduleWindow,
			fmt.Sprintf("dispatch time %s not allowed by policy '%s'",
				req.ScheduledDispatchTime, window.SeasonName))
	}

	// 人员资格校验（任何违规都整体拒绝，不做部分成功）
	for _, personID := range req.PersonIDs {
		if err := s.checkPersonEligibility(ctx, personID, req.Reason, ""); err != nil {
			return nil, err
		}
	}

	requestID, err := s.transfers.CreateTransferRequest(ctx, &domain.TransferRequest{
		SourceCampID:          req.SourceCampID,
		TargetCampID:          req.TargetCampID,
		PersonIDs:             req.PersonIDs,
		Reason:                req.Reason,
		ScheduledDispatchDate: req.ScheduledDispatchDate,
		ScheduledDispatchTime: req.ScheduledDispatchTime,
		Status:                domain.TransferStatusPendingAllocation,
		RequestedBy:           req.RequestedBy,
	})
	if err != nil {
		return nil, NewDependencyError("create transfer request failed", err)
	}

	s.logger.Info("transfer request submitted",
		zap.String("request_id", requestID),
		zap.String("source_camp_id", req.SourceCampID),
		zap.String("target_camp_id", req.TargetCampID),
		zap.Int("person_count", len(req.PersonIDs)),
		zap.String("reason", req.Reason),
	)
	return &SubmitTransferRequestResponse{
		RequestID: requestID,
		Status:    domain.TransferStatusPendingAllocation,
	}, nil
}

func (s *transferService) checkPersonEligibility(ctx context.Context, personID, reason, excludeRequestID string) error {
	return validatePersonEligibility(ctx, s.persons, s.transfers, s.exitCheck, personID, reason, excludeRequestID)
}

// validatePersonEligibility 人员入选资格（提交时验一次，分配时持人员锁重验一次）
// excludeRequestID: 分配时重验资格需排除本申请自身
func validatePersonEligibility(
	ctx context.Context,
	persons repository.PersonsRepository,
	transfers repository.TransferRequestsRepository,
	exitCheck ExitEligibilityChecker,
	personID, reason, excludeRequestID string,
) error {
	person, err := persons.GetPerson(ctx, personID)
	if err != nil {
		return NewNotFoundError(CodePersonNotFound, "person not found", personID)
	}

	// (a) 已在其他进行中的申请里
	active, err := transfers.ListActiveByPerson(ctx, personID)
	if err != nil {
		return NewDependencyError("list active requests failed", err, personID)
	}
	for _, r := range active {
		if r.RequestID != excludeRequestID {
			return NewValidationError(CodeIneligiblePerson,
				"person already in an active transfer request", personID, r.RequestID)
		}
	}

	// (b) 入营培训前且尚无床位（需先完成首次入住）
	if !person.InductionCompleted && !person.BedID.Valid {
		return NewValidationError(CodeIneligiblePerson,
			"person has not completed initial induction and bed assignment", personID)
	}

	// (c) exit_case 需要 terminated/absconded 状态，或 HR 系统判定的离职资格
	if reason == domain.TransferReasonExitCase {
		if person.Status == domain.PersonStatusTerminated || person.Status == domain.PersonStatusAbsconded {
			return nil
		}
		eligible, err := exitCheck.IsExitEligible(ctx, personID)
		if err != nil {
			return NewDependencyError("exit eligibility check failed", err, personID)
		}
		if !eligible {
			return NewValidationError(CodeIneligiblePerson,
				"person not eligible for exit_case transfer", personID)
		}
	}
	return nil
}

// ============================================
// 状态迁移
// ============================================

// ApproveDispatch beds_allocated → approved_for_dispatch
// 审批权限由上游负责，这里只做状态机校验。
func (s *transferService) ApproveDispatch(ctx context.Context, req ApproveDispatchInput) (*TransferActionResponse, error) {
	if req.RequestID == "" {
		return nil, NewValidationError(CodeMissingField, "request_id is required")
	}
	s.locks.Requests.Lock(req.RequestID)
	defer s.locks.Requests.Unlock(req.RequestID)

	request, err := s.getRequest(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}
	if !ValidTransition("approve", request.Status) {
		return nil, invalidTransitionError(req.RequestID, "approve", request.Status)
	}

	status := domain.TransferStatusApprovedForDispatch
	if err := s.transfers.UpdateTransferRequest(ctx, req.RequestID,
		repository.TransferRequestUpdate{Status: &status}); err != nil {
		return nil, NewDependencyError("update transfer request failed", err, req.RequestID)
	}

	s.logger.Info("transfer request approved for dispatch",
		zap.String("request_id", req.RequestID),
		zap.String("approved_by", req.ApprovedBy),
	)
	return &TransferActionResponse{RequestID: req.RequestID, Status: status}, nil
}

// MarkDispatched approved_for_dispatch → technicians_dispatched
// 源营地放行：全部人员置为 pending_arrival，物理移动开始。
func (s *transferService) MarkDispatched(ctx context.Context, req MarkDispatchedInput) (*TransferActionResponse, error) {
	if req.RequestID == "" {
		return nil, NewValidationError(CodeMissingField, "request_id is required")
	}
	s.locks.Requests.Lock(req.RequestID)
	defer s.locks.Requests.Unlock(req.RequestID)

	request, err := s.getRequest(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}
	if !ValidTransition("dispatch", request.Status) {
		return nil, invalidTransitionError(req.RequestID, "dispatch", request.Status)
	}

	// 先快照派送前状态：exit_case 成员可能是 terminated/absconded，
	// 取消或回滚时必须恢复原状态而不是一律 active。
	priorStatuses := make(map[string]string, len(request.PersonIDs))
	for _, personID := range request.PersonIDs {
		person, err := s.persons.GetPerson(ctx, personID)
		if err != nil {
			return nil, NewDependencyError("get person failed", err, personID)
		}
		priorStatuses[personID] = person.Status
	}

	pending := domain.PersonStatusPendingArrival
	updated := map[string]string{}
	for _, personID := range request.PersonIDs {
		if err := s.persons.UpdatePerson(ctx, personID,
			repository.PersonUpdate{Status: &pending}); err != nil {
			// 补偿：已改的人员回滚为派送前状态
			s.revertPersonStatuses(ctx, updated)
			return nil, NewDependencyError("mark person pending_arrival failed", err, personID)
		}
		updated[personID] = priorStatuses[personID]
	}

	status := domain.TransferStatusTechsDispatched
	if err := s.transfers.UpdateTransferRequest(ctx, req.RequestID,
		repository.TransferRequestUpdate{
			Status:              &status,
			PreDispatchStatuses: priorStatuses,
		}); err != nil {
		s.revertPersonStatuses(ctx, updated)
		return nil, NewDependencyError("update transfer request failed", err, req.RequestID)
	}

	s.logger.Info("transfer request dispatched",
		zap.String("request_id", req.RequestID),
		zap.String("dispatched_by", req.DispatchedBy),
		zap.Int("person_count", len(request.PersonIDs)),
	)
	return &TransferActionResponse{RequestID: req.RequestID, Status: status}, nil
}

// revertPersonStatuses 按快照恢复人员状态（快照缺失时退回 active）
func (s *transferService) revertPersonStatuses(ctx context.Context, priorStatuses map[string]string) {
	for id, prior := range priorStatuses {
		if prior == "" {
			prior = domain.PersonStatusActive
		}
		if err := s.persons.UpdatePerson(ctx, id,
			repository.PersonUpdate{Status: &prior}); err != nil {
			s.logger.Error("compensation failed: revert person status",
				zap.String("person_id", id), zap.Error(err))
		}
	}
}

// CancelRequest 任意非终态 → cancelled
// 持申请锁执行：等待在途的分配/到达确认完成后才会进入。
// 已预留（reserved）且尚未到达的床位释放回 vacant；未到达人员恢复可入选。
func (s *transferService) CancelRequest(ctx context.Context, req CancelRequestInput) (*TransferActionResponse, error) {
	if req.RequestID == "" {
		return nil, NewValidationError(CodeMissingField, "request_id is required")
	}
	s.locks.Requests.Lock(req.RequestID)
	defer s.locks.Requests.Unlock(req.RequestID)

	request, err := s.getRequest(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}
	if !ValidTransition("cancel", request.Status) {
		return nil, invalidTransitionError(req.RequestID, "cancel", request.Status)
	}

	// 释放未到达人员的预留床位（释放本身幂等：已释放的 CAS 不再命中）
	for personID, assignment := range request.AllocatedBeds {
		if request.HasArrived(personID) {
			continue
		}
		err := s.beds.CompareAndSetStatus(ctx, assignment.BedID,
			domain.BedStatusReserved, domain.BedStatusVacant, nil)
		if err != nil && err != repository.ErrBedStatusConflict {
			return nil, NewDependencyError("release reserved bed failed", err, assignment.BedID)
		}
	}

	// 已派送但未到达的人员恢复派送前状态（仍在源营地）。
	// exit_case 成员派送前可能是 terminated/absconded，一律置 active 会
	// 抹掉离职状态，导致重新提交时资格判定失真。
	if request.Status == domain.TransferStatusTechsDispatched ||
		request.Status == domain.TransferStatusPartiallyArrived {
		for _, personID := range request.PersonIDs {
			if request.HasArrived(personID) {
				continue
			}
			prior, ok := request.PreDispatchStatuses[personID]
			if !ok || prior == "" {
				prior = domain.PersonStatusActive
			}
			if err := s.persons.UpdatePerson(ctx, personID,
				repository.PersonUpdate{Status: &prior}); err != nil {
				s.logger.Error("cancel: revert person status failed",
					zap.String("person_id", personID), zap.Error(err))
			}
		}
	}

	status := domain.TransferStatusCancelled
	if err := s.transfers.UpdateTransferRequest(ctx, req.RequestID,
		repository.TransferRequestUpdate{Status: &status}); err != nil {
		return nil, NewDependencyError("update transfer request failed", err, req.RequestID)
	}

	s.logger.Info("transfer request cancelled",
		zap.String("request_id", req.RequestID),
		zap.String("cancelled_by", req.CancelledBy),
	)
	return &TransferActionResponse{RequestID: req.RequestID, Status: status}, nil
}

// ============================================
// 查询
// ============================================

func (s *transferService) GetTransferRequest(ctx context.Context, requestID string) (*domain.TransferRequest, error) {
	if requestID == "" {
		return nil, NewValidationError(CodeMissingField, "request_id is required")
	}
	return s.getRequest(ctx, requestID)
}

func (s *transferService) ListTransferRequests(ctx context.Context, req ListTransfersInput) (*ListTransfersResponse, error) {
	items, total, err := s.transfers.ListTransferRequests(ctx, req.Filters, req.Page, req.PageSize)
	if err != nil {
		return nil, NewDependencyError("list transfer requests failed", err)
	}
	return &ListTransfersResponse{Items: items, Total: total}, nil
}

func (s *transferService) getRequest(ctx context.Context, requestID string) (*domain.TransferRequest, error) {
	request, err := s.transfers.GetTransferRequest(ctx, requestID)
	if err != nil {
		if err == repository.ErrRequestNotFound {
			return nil, NewNotFoundError(CodeRequestNotFound, "transfer request not found", requestID)
		}
		return nil, NewDependencyError("get transfer request failed", err, requestID)
	}
	return request, nil
}
