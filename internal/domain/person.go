package domain

import (
	"database/sql"
)

// Person 人员领域模型（对应 persons 表）
// technician 与 external_personnel 统一为单一结构（kind 区分），
// 避免两套并行的转移/入住代码路径。
type Person struct {
	PersonID           string         `db:"person_id"`
	Kind               string         `db:"kind"` // NOT NULL: technician / external_personnel
	FullName           string         `db:"full_name"`
	EmployeeID         sql.NullString `db:"employee_id"`  // technician 专用
	CompanyName        sql.NullString `db:"company_name"` // external_personnel 专用
	Gender             string         `db:"gender"`       // NOT NULL: male / female
	Nationality        sql.NullString `db:"nationality"`
	CampID             sql.NullString `db:"camp_id"` // nullable（未入营）
	BedID              sql.NullString `db:"bed_id"`  // nullable；与 beds.occupant_id 双向一致
	Status             string         `db:"status"`  // NOT NULL
	InductionCompleted bool           `db:"induction_completed"` // 营地级安全培训，换营后必须重新完成
	InductionDate      sql.NullTime   `db:"induction_date"`
	ActualArrivalDate  sql.NullTime   `db:"actual_arrival_date"`
	ActualArrivalTime  sql.NullString `db:"actual_arrival_time"` // "HH:MM"
	ExitProcessStatus  sql.NullString `db:"exit_process_status"` // nullable: in_process / completed
	ExitStartedDate    sql.NullTime   `db:"exit_started_date"`
}

// 人员类别
const (
	PersonKindTechnician = "technician"
	PersonKindExternal   = "external_personnel"
)

// 人员状态
const (
	PersonStatusActive         = "active"
	PersonStatusPendingArrival = "pending_arrival"
	PersonStatusOnLeave        = "on_leave"
	PersonStatusTerminated     = "terminated"
	PersonStatusAbsconded      = "absconded"
	PersonStatusExitedCountry  = "exited_country"
)

// 离职流程状态
const (
	ExitProcessInProcess = "in_process"
	ExitProcessCompleted = "completed"
)
