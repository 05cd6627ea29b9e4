package builtin

import (
	"strings"

	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
	"github.com/paiban/kebiao/pkg/scheduler/lookup"
)

// ClassroomCapacityConstraint 教室容量必须容纳选课人数
// 属于物理适配层，但任何超员都使整个课表不可行
type ClassroomCapacityConstraint struct {
	*BaseConstraint
}

// NewClassroomCapacityConstraint 创建容量约束
func NewClassroomCapacityConstraint(weight float64) *ClassroomCapacityConstraint {
	return &ClassroomCapacityConstraint{
		BaseConstraint: NewBaseConstraint("教室容量", constraint.TypeClassroomCapacity, model.Level3PhysicalSoft, true, weight),
	}
}

// Graded 分数是容量匹配等级，可行性只看超员冲突
func (c *ClassroomCapacityConstraint) Graded() bool { return true }

// Evaluate 有超员则为 0，否则为容量匹配等级均值 / 5
func (c *ClassroomCapacityConstraint) Evaluate(ctx *constraint.Context) (float64, []model.SchedulingConflict) {
	var conflicts []model.SchedulingConflict
	all := ctx.Assignments()
	if len(all) == 0 {
		return 1, nil
	}
	sum := 0
	for _, a := range all {
		sec := ctx.Problem.Section(a.SectionID)
		room := ctx.Problem.Classroom(a.ClassroomID)
		if sec == nil || room == nil {
			continue
		}
		if room.Capacity < sec.Enrollment {
			conflicts = append(conflicts, c.conflict(model.ConflictCapacity, model.SeverityCritical,
				"教室 %d 容量 %d 小于教学班 %d 选课人数 %d", room.ID, room.Capacity, sec.ID, sec.Enrollment).
				WithSections(sec.ID).
				WithClassrooms(room.ID).
				Suggest(model.ResolutionAction{Kind: "change_room", SectionID: sec.ID, Description: "更换容量更大的教室"}))
			continue
		}
		sum += lookup.CapacityFit(sec.Enrollment, room.Capacity)
	}
	if len(conflicts) > 0 {
		return 0, conflicts
	}
	return float64(sum) / float64(5*len(all)), nil
}

// RoomTypeMatchConstraint 教室类型与教学班要求匹配
type RoomTypeMatchConstraint struct {
	*BaseConstraint
}

// NewRoomTypeMatchConstraint 创建教室类型约束
func NewRoomTypeMatchConstraint(weight float64) *RoomTypeMatchConstraint {
	return &RoomTypeMatchConstraint{
		BaseConstraint: NewBaseConstraint("教室类型匹配", constraint.TypeRoomTypeMatch, model.Level3PhysicalSoft, false, weight),
	}
}

// Evaluate 完全匹配 1，同类 0.6，不兼容 0，取均值
func (c *RoomTypeMatchConstraint) Evaluate(ctx *constraint.Context) (float64, []model.SchedulingConflict) {
	var conflicts []model.SchedulingConflict
	all := ctx.Assignments()
	if len(all) == 0 {
		return 1, nil
	}
	var sum float64
	for _, a := range all {
		sec := ctx.Problem.Section(a.SectionID)
		room := ctx.Problem.Classroom(a.ClassroomID)
		if sec == nil || room == nil {
			continue
		}
		s := lookup.RoomTypeScore(sec.RequiredRoomType, room.Type)
		sum += float64(s) / 5
		if s == 0 {
			conflicts = append(conflicts, c.conflict(model.ConflictRoomType, model.SeverityModerate,
				"教学班 %d 需要 %s 类教室，实际安排在 %s", sec.ID, sec.RequiredRoomType, room.Type).
				WithSections(sec.ID).
				WithClassrooms(room.ID))
		}
	}
	return sum / float64(len(all)), conflicts
}

// EquipmentMatchConstraint 教室具备教学班所需设备
type EquipmentMatchConstraint struct {
	*BaseConstraint
}

// NewEquipmentMatchConstraint 创建设备约束
func NewEquipmentMatchConstraint(weight float64) *EquipmentMatchConstraint {
	return &EquipmentMatchConstraint{
		BaseConstraint: NewBaseConstraint("教学设备匹配", constraint.TypeEquipmentMatch, model.Level3PhysicalSoft, false, weight),
	}
}

// Evaluate 每个分配按具备设备的比例计分，取均值
func (c *EquipmentMatchConstraint) Evaluate(ctx *constraint.Context) (float64, []model.SchedulingConflict) {
	var conflicts []model.SchedulingConflict
	all := ctx.Assignments()
	if len(all) == 0 {
		return 1, nil
	}
	var sum float64
	for _, a := range all {
		sec := ctx.Problem.Section(a.SectionID)
		room := ctx.Problem.Classroom(a.ClassroomID)
		if sec == nil || room == nil {
			continue
		}
		if len(sec.RequiredEquipment) == 0 {
			sum++
			continue
		}
		var missing []string
		for _, eq := range sec.RequiredEquipment {
			if !room.HasEquipment([]string{eq}) {
				missing = append(missing, eq)
			}
		}
		sum += 1 - float64(len(missing))/float64(len(sec.RequiredEquipment))
		if len(missing) > 0 {
			conflicts = append(conflicts, c.conflict(model.ConflictEquipment, model.SeverityModerate,
				"教室 %d 缺少教学班 %d 所需设备: %s", room.ID, sec.ID, strings.Join(missing, ",")).
				WithSections(sec.ID).
				WithClassrooms(room.ID))
		}
	}
	return sum / float64(len(all)), conflicts
}
