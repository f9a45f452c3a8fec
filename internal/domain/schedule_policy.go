package domain

// SchedulePolicy 调度窗口策略（对应 schedule_policies 表）
// start_md / end_md 为 "MM-DD"，区间允许跨年（如 12-01 → 02-28）。
// allowed_days / 时段以 JSONB 持久化。
type SchedulePolicy struct {
	PolicyID        string   `db:"policy_id"`
	SeasonName      string   `db:"season_name"`
	StartMD         string   `db:"start_md"` // "MM-DD"
	EndMD           string   `db:"end_md"`   // "MM-DD"，可小于 start_md（跨年）
	AllowedDays     []string `db:"allowed_days"` // 周几名称，如 "Tuesday"
	SlotStart       string   `db:"slot_start"`   // "HH:MM"
	SlotEnd         string   `db:"slot_end"`     // "HH:MM"
	SlotStepMinutes int      `db:"slot_step_minutes"`
	IsActive        bool     `db:"is_active"`
}
