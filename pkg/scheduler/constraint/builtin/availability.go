package builtin

import (
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
)

// TeacherAvailabilityConstraint 教师不可用时段不能排课
type TeacherAvailabilityConstraint struct {
	*BaseConstraint
}

// NewTeacherAvailabilityConstraint 创建教师可用性约束
func NewTeacherAvailabilityConstraint(weight float64, hard bool) *TeacherAvailabilityConstraint {
	return &TeacherAvailabilityConstraint{
		BaseConstraint: NewBaseConstraint("教师可用时间", constraint.TypeTeacherAvailability, model.Level2VariableHard, hard, weight),
	}
}

// Evaluate 得分 = 1 - 违规分配数 / 分配数
func (c *TeacherAvailabilityConstraint) Evaluate(ctx *constraint.Context) (float64, []model.SchedulingConflict) {
	var conflicts []model.SchedulingConflict
	all := ctx.Assignments()
	for _, a := range all {
		if ctx.Problem.TeacherAvailable(a.TeacherID, a.TimeSlotID) {
			continue
		}
		conflicts = append(conflicts, c.conflict(model.ConflictTeacherAvailability, c.severity(),
			"教师 %d 在时间段 %d 不可用，却安排了教学班 %d", a.TeacherID, a.TimeSlotID, a.SectionID).
			WithSections(a.SectionID).
			WithTeachers(a.TeacherID).
			WithTimeSlots(a.TimeSlotID).
			Suggest(model.ResolutionAction{Kind: "change_time", SectionID: a.SectionID, Description: "调整到教师可用的时间段或更换教师"}))
	}
	return ratioScore(len(conflicts), len(all)), conflicts
}

// ClassroomAvailabilityConstraint 教室不可用时段不能使用
type ClassroomAvailabilityConstraint struct {
	*BaseConstraint
}

// NewClassroomAvailabilityConstraint 创建教室可用性约束
func NewClassroomAvailabilityConstraint(weight float64, hard bool) *ClassroomAvailabilityConstraint {
	return &ClassroomAvailabilityConstraint{
		BaseConstraint: NewBaseConstraint("教室可用时间", constraint.TypeClassroomAvailability, model.Level2VariableHard, hard, weight),
	}
}

// Evaluate 得分 = 1 - 违规分配数 / 分配数
func (c *ClassroomAvailabilityConstraint) Evaluate(ctx *constraint.Context) (float64, []model.SchedulingConflict) {
	var conflicts []model.SchedulingConflict
	all := ctx.Assignments()
	for _, a := range all {
		if ctx.Problem.ClassroomAvailable(a.ClassroomID, a.TimeSlotID) {
			continue
		}
		conflicts = append(conflicts, c.conflict(model.ConflictClassroomAvailability, c.severity(),
			"教室 %d 在时间段 %d 不可用，却安排了教学班 %d", a.ClassroomID, a.TimeSlotID, a.SectionID).
			WithSections(a.SectionID).
			WithClassrooms(a.ClassroomID).
			WithTimeSlots(a.TimeSlotID).
			Suggest(model.ResolutionAction{Kind: "change_room", SectionID: a.SectionID, Description: "更换教室或调整时间"}))
	}
	return ratioScore(len(conflicts), len(all)), conflicts
}

// PrerequisiteConstraint 有先修关系的课程不能排在同一时间段
type PrerequisiteConstraint struct {
	*BaseConstraint
}

// NewPrerequisiteConstraint 创建先修约束
func NewPrerequisiteConstraint(weight float64) *PrerequisiteConstraint {
	return &PrerequisiteConstraint{
		BaseConstraint: NewBaseConstraint("先修课程错开", constraint.TypePrerequisite, model.Level2VariableHard, true, weight),
	}
}

// Evaluate 得分 = 1 - 同时段的先修对数 / 已排的先修对数
func (c *PrerequisiteConstraint) Evaluate(ctx *constraint.Context) (float64, []model.SchedulingConflict) {
	var conflicts []model.SchedulingConflict
	p := ctx.Problem
	total := 0
	for _, pair := range p.PrerequisitePairs() {
		a, okA := ctx.Solution.At(pair[0])
		b, okB := ctx.Solution.At(pair[1])
		if !okA || !okB {
			continue
		}
		total++
		if a.TimeSlotID != b.TimeSlotID {
			continue
		}
		conflicts = append(conflicts, c.conflict(model.ConflictPrerequisite, c.severity(),
			"存在先修关系的教学班 %d 与 %d 排在同一时间段 %d", a.SectionID, b.SectionID, a.TimeSlotID).
			WithSections(a.SectionID, b.SectionID).
			WithTimeSlots(a.TimeSlotID).
			Suggest(model.ResolutionAction{Kind: "change_time", SectionID: b.SectionID, Description: "将其中一个教学班移到其他时间段"}))
	}
	return ratioScore(len(conflicts), total), conflicts
}
