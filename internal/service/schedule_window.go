package service

import (
	"fmt"
	"strings"
	"time"

	"campwise-data/internal/domain"
)

// 调度窗口解析：纯函数，不读墙钟、不产生副作用。
// asOf 与策略列表由调用方显式传入，保证可测试性。

// DispatchWindow 某一日期下允许的派送窗口
// Flexible=true 时任意日期/时段均可。
type DispatchWindow struct {
	Flexible     bool
	SeasonName   string   // 命中的策略名（default = 内置默认）
	AllowedDays  []string // 周几名称（time.Weekday.String()）
	AllowedSlots []string // "HH:MM"，升序
}

// 内置默认窗口（无策略命中时生效）
const (
	defaultSeasonName = "default"
	defaultSlotStart  = "14:30"
	defaultSlotEnd    = "18:30"
	defaultSlotStep   = 30
)

var defaultAllowedDays = []string{time.Tuesday.String(), time.Sunday.String()}

// FlexibleRoute 判断 源/目标营地类型组合 是否不受调度窗口约束：
// 入营营地 → 常规/离境营地，或 常规营地 → 离境营地
func FlexibleRoute(sourceType, targetType string) bool {
	if sourceType == domain.CampTypeInduction &&
		(targetType == domain.CampTypeRegular || targetType == domain.CampTypeExit) {
		return true
	}
	if sourceType == domain.CampTypeRegular && targetType == domain.CampTypeExit {
		return true
	}
	return false
}

// ResolveDispatchWindow 解析当前日期适用的派送窗口
// 多个策略命中时取第一个（仓库按 season_name 排序，理论上同日期至多一个启用）。
func ResolveDispatchWindow(asOf time.Time, sourceType, targetType string, policies []*domain.SchedulePolicy) DispatchWindow {
	if FlexibleRoute(sourceType, targetType) {
		return DispatchWindow{Flexible: true}
	}

	for _, p := range policies {
		if matchesSeason(asOf, p.StartMD, p.EndMD) {
			return DispatchWindow{
				SeasonName:   p.SeasonName,
				AllowedDays:  append([]string{}, p.AllowedDays...),
				AllowedSlots: generateSlots(p.SlotStart, p.SlotEnd, p.SlotStepMinutes),
			}
		}
	}

	return DispatchWindow{
		SeasonName:   defaultSeasonName,
		AllowedDays:  append([]string{}, defaultAllowedDays...),
		AllowedSlots: generateSlots(defaultSlotStart, defaultSlotEnd, defaultSlotStep),
	}
}

// AllowsDay 日期的周几是否在窗口内
func (w DispatchWindow) AllowsDay(date time.Time) bool {
	if w.Flexible {
		return true
	}
	day := date.Weekday().String()
	for _, d := range w.AllowedDays {
		if d == day {
			return true
		}
	}
	return false
}

// AllowsSlot 时段是否在窗口内
func (w DispatchWindow) AllowsSlot(slot string) bool {
	if w.Flexible {
		return true
	}
	for _, s := range w.AllowedSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// DayNames 允许的周几列表（错误信息展示用）
func (w DispatchWindow) DayNames() string {
	return strings.Join(w.AllowedDays, ", ")
}

// matchesSeason 判断 asOf 的月-日是否落在 [startMD, endMD] 区间
// 区间允许跨年（如 12-01 → 02-28）。格式错误的策略视为不命中。
func matchesSeason(asOf time.Time, startMD, endMD string) bool {
	start, ok1 := parseMonthDay(startMD)
	end, ok2 := parseMonthDay(endMD)
	if !ok1 || !ok2 {
		return false
	}
	now := int(asOf.Month())*100 + asOf.Day()
	if start <= end {
		return now >= start && now <= end
	}
	// 跨年区间
	return now >= start || now <= end
}

// parseMonthDay "MM-DD" -> MMDD 整数（比较用）
func parseMonthDay(md string) (int, bool) {
	var m, d int
	if _, err := fmt.Sscanf(md, "%2d-%2d", &m, &d); err != nil {
		return 0, false
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return 0, false
	}
	return m*100 + d, true
}

// generateSlots 生成 [start, end] 间隔 step 分钟的时段列表
func generateSlots(start, end string, stepMinutes int) []string {
	st, err1 := time.Parse("15:04", start)
	en, err2 := time.Parse("15:04", end)
	if err1 != nil || err2 != nil || stepMinutes <= 0 || en.Before(st) {
		return []string{}
	}
	slots := []string{}
	for t := st; !t.After(en); t = t.Add(time.Duration(stepMinutes) * time.Minute) {
		slots = append(slots, t.Format("15:04"))
	}
	return slots
}
