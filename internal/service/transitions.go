package service

import (
	"campwise-data/internal/domain"
)

// 状态机动作 -> 允许的起始状态
// pending_allocation → beds_allocated → approved_for_dispatch
//   → technicians_dispatched → {partially_arrived → completed} | cancelled
var transitionMap = map[string][]string{
	"allocate": {domain.TransferStatusPendingAllocation},
	"approve":  {domain.TransferStatusBedsAllocated},
	"dispatch": {domain.TransferStatusApprovedForDispatch},
	"confirm_arrival": {
		domain.TransferStatusTechsDispatched,
		domain.TransferStatusPartiallyArrived,
	},
	"cancel": {
		domain.TransferStatusPendingAllocation,
		domain.TransferStatusBedsAllocated,
		domain.TransferStatusApprovedForDispatch,
		domain.TransferStatusTechsDispatched,
		domain.TransferStatusPartiallyArrived,
	},
}

func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}

// invalidTransitionError 统一的非法迁移错误（带当前状态与动作）
func invalidTransitionError(requestID, action, fromStatus string) *Error {
	return NewConflictError(CodeInvalidStateTransition,
		"action '"+action+"' not allowed from status '"+fromStatus+"'", requestID)
}
