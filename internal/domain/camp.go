package domain

import (
	"database/sql"
)

// Camp 营地领域模型（对应 camps 表）
// camp_type 决定调度窗口规则（见 service.ResolveDispatchWindow）
type Camp struct {
	CampID   string         `db:"camp_id"`
	CampName string         `db:"camp_name"`
	CampType string         `db:"camp_type"` // NOT NULL: induction_camp / regular_camp / exit_camp
	City     sql.NullString `db:"city"`      // nullable
	Capacity int            `db:"capacity"`  // NOT NULL, default 0
}

// 营地类型
const (
	CampTypeInduction = "induction_camp"
	CampTypeRegular   = "regular_camp"
	CampTypeExit      = "exit_camp"
)
