package domain

import (
	"database/sql"
)

// Bed 床位领域模型（对应 beds 表）
// 状态变更只允许通过 CompareAndSetStatus（防止并发重复分配）
type Bed struct {
	BedID      string         `db:"bed_id"`
	RoomID     string         `db:"room_id"`
	BedNumber  string         `db:"bed_number"`  // NOT NULL
	Status     string         `db:"status"`      // NOT NULL: vacant / reserved / occupied
	OccupantID sql.NullString `db:"occupant_id"` // nullable; occupied 时必填，vacant 时必空
}

// 床位状态
const (
	BedStatusVacant   = "vacant"
	BedStatusReserved = "reserved"
	BedStatusOccupied = "occupied"
)
