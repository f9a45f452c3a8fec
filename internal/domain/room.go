package domain

// Room 房间领域模型（对应 rooms 表）
// gender_restriction 用于床位分配兼容性过滤
type Room struct {
	RoomID            string `db:"room_id"`
	CampID            string `db:"camp_id"`
	Floor             string `db:"floor"`              // NOT NULL, default '1F'
	RoomName          string `db:"room_name"`          // NOT NULL
	GenderRestriction string `db:"gender_restriction"` // NOT NULL: male / female / any
}

// 房间性别限制
const (
	GenderRestrictionMale   = "male"
	GenderRestrictionFemale = "female"
	GenderRestrictionAny    = "any"
)

// AllowsGender 判断房间是否可容纳指定性别人员
func (r *Room) AllowsGender(gender string) bool {
	return r.GenderRestriction == GenderRestrictionAny || r.GenderRestriction == gender
}
