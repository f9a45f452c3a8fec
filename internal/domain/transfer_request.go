package domain

import (
	"time"
)

// TransferRequest 转移申请领域模型（对应 transfer_requests 表）
// person_ids / allocated_beds / arrived_person_ids 以 JSONB 持久化。
// allocated_beds 由分配引擎一次性产出后冻结，只读。
type TransferRequest struct {
	RequestID             string                   `db:"request_id"`
	SourceCampID          string                   `db:"source_camp_id"`
	TargetCampID          string                   `db:"target_camp_id"`
	PersonIDs             []string                 `db:"person_ids"`
	Reason                string                   `db:"reason"` // NOT NULL
	ScheduledDispatchDate time.Time                `db:"scheduled_dispatch_date"`
	ScheduledDispatchTime string                   `db:"scheduled_dispatch_time"` // "HH:MM"
	Status                string                   `db:"status"`
	AllocatedBeds         map[string]BedAssignment `db:"allocated_beds"`     // person_id -> 分配结果
	ArrivedPersonIDs      []string                 `db:"arrived_person_ids"` // 已确认到达人员（到达判定以此为准）
	PreDispatchStatuses   map[string]string        `db:"pre_dispatch_statuses"` // person_id -> 派送前人员状态（取消/回滚时恢复用）
	RequestedBy           string                   `db:"requested_by"`
	CreatedAt             time.Time                `db:"created_at"`
	UpdatedAt             time.Time                `db:"updated_at"`
}

// BedAssignment 单人床位分配结果
// is_temporary: 短期占用（目标为 exit 营地时），到达后床位保持 reserved 而非 occupied
type BedAssignment struct {
	BedID       string `json:"bed_id"`
	IsTemporary bool   `json:"is_temporary"`
}

// 转移申请状态机
const (
	TransferStatusPendingAllocation    = "pending_allocation"
	TransferStatusBedsAllocated        = "beds_allocated"
	TransferStatusApprovedForDispatch  = "approved_for_dispatch"
	TransferStatusTechsDispatched      = "technicians_dispatched"
	TransferStatusPartiallyArrived     = "partially_arrived"
	TransferStatusCompleted            = "completed"
	TransferStatusCancelled            = "cancelled"
)

// 转移原因
const (
	TransferReasonRegular      = "regular"
	TransferReasonExitCase     = "exit_case"
	TransferReasonMedical      = "medical"
	TransferReasonDisciplinary = "disciplinary"
)

// IsTerminal 终态判断（completed / cancelled 后申请不可变）
func (r *TransferRequest) IsTerminal() bool {
	return r.Status == TransferStatusCompleted || r.Status == TransferStatusCancelled
}

// HasArrived 指定人员是否已确认到达
func (r *TransferRequest) HasArrived(personID string) bool {
	for _, id := range r.ArrivedPersonIDs {
		if id == personID {
			return true
		}
	}
	return false
}

// HasPerson 指定人员是否为申请成员
func (r *TransferRequest) HasPerson(personID string) bool {
	for _, id := range r.PersonIDs {
		if id == personID {
			return true
		}
	}
	return false
}
