package domain

import (
	"database/sql"
	"time"
)

// TransferLogEntry 转移审计日志（对应 transfer_logs 表）
// 只追加：写入后不允许 UPDATE / DELETE。
type TransferLogEntry struct {
	LogID             string         `db:"log_id"`
	PersonID          string         `db:"person_id"`
	FromCampID        sql.NullString `db:"from_camp_id"`
	ToCampID          string         `db:"to_camp_id"`
	FromBedID         sql.NullString `db:"from_bed_id"`
	ToBedID           string         `db:"to_bed_id"`
	TransferDate      time.Time      `db:"transfer_date"`
	TransferTime      string         `db:"transfer_time"` // "HH:MM"
	TransferRequestID string         `db:"transfer_request_id"`
	TransferredBy     string         `db:"transferred_by"`
	Notes             sql.NullString `db:"notes"`
	CreatedAt         time.Time      `db:"created_at"`
}
