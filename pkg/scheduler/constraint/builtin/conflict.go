package builtin

import (
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
)

// TeacherConflictConstraint 教师同一时间段只能上一门课
type TeacherConflictConstraint struct {
	*BaseConstraint
}

// NewTeacherConflictConstraint 创建教师冲突约束
func NewTeacherConflictConstraint(weight float64) *TeacherConflictConstraint {
	return &TeacherConflictConstraint{
		BaseConstraint: NewBaseConstraint("教师时间冲突", constraint.TypeTeacherConflict, model.Level1CoreHard, true, weight),
	}
}

// Evaluate 得分 = 1 - 冲突对数 / 总对数
func (c *TeacherConflictConstraint) Evaluate(ctx *constraint.Context) (float64, []model.SchedulingConflict) {
	var conflicts []model.SchedulingConflict
	bad := 0
	for _, tid := range ctx.TeacherIDs() {
		idx := ctx.ByTeacher(tid)
		for i := 0; i < len(idx); i++ {
			for j := i + 1; j < len(idx); j++ {
				a, b := ctx.Assignment(idx[i]), ctx.Assignment(idx[j])
				if a.TimeSlotID != b.TimeSlotID {
					continue
				}
				bad++
				conflicts = append(conflicts, c.conflict(model.ConflictTeacher, model.SeverityCritical,
					"教师 %d 在时间段 %d 同时讲授教学班 %d 和 %d", tid, a.TimeSlotID, a.SectionID, b.SectionID).
					WithSections(a.SectionID, b.SectionID).
					WithTeachers(tid).
					WithTimeSlots(a.TimeSlotID).
					Suggest(model.ResolutionAction{Kind: "change_time", SectionID: b.SectionID, Description: "将其中一个教学班调整到教师空闲的时间段"}))
			}
		}
	}
	return ratioScore(bad, constraint.PairCount(len(ctx.Assignments()))), conflicts
}

// ClassroomConflictConstraint 教室同一时间段只能安排一个教学班
type ClassroomConflictConstraint struct {
	*BaseConstraint
}

// NewClassroomConflictConstraint 创建教室冲突约束
func NewClassroomConflictConstraint(weight float64) *ClassroomConflictConstraint {
	return &ClassroomConflictConstraint{
		BaseConstraint: NewBaseConstraint("教室时间冲突", constraint.TypeClassroomConflict, model.Level1CoreHard, true, weight),
	}
}

// Evaluate 得分 = 1 - 冲突对数 / 总对数
func (c *ClassroomConflictConstraint) Evaluate(ctx *constraint.Context) (float64, []model.SchedulingConflict) {
	var conflicts []model.SchedulingConflict
	bad := 0
	for _, rid := range ctx.RoomIDs() {
		idx := ctx.ByRoom(rid)
		for i := 0; i < len(idx); i++ {
			for j := i + 1; j < len(idx); j++ {
				a, b := ctx.Assignment(idx[i]), ctx.Assignment(idx[j])
				if a.TimeSlotID != b.TimeSlotID {
					continue
				}
				bad++
				conflicts = append(conflicts, c.conflict(model.ConflictClassroom, model.SeverityCritical,
					"教室 %d 在时间段 %d 同时安排了教学班 %d 和 %d", rid, a.TimeSlotID, a.SectionID, b.SectionID).
					WithSections(a.SectionID, b.SectionID).
					WithClassrooms(rid).
					WithTimeSlots(a.TimeSlotID).
					Suggest(model.ResolutionAction{Kind: "change_room", SectionID: b.SectionID, Description: "为其中一个教学班更换空闲教室"}))
			}
		}
	}
	return ratioScore(bad, constraint.PairCount(len(ctx.Assignments()))), conflicts
}

// SectionCoverageConstraint 每个教学班必须恰好排一次
type SectionCoverageConstraint struct {
	*BaseConstraint
}

// NewSectionCoverageConstraint 创建教学班覆盖约束
func NewSectionCoverageConstraint(weight float64) *SectionCoverageConstraint {
	return &SectionCoverageConstraint{
		BaseConstraint: NewBaseConstraint("教学班全部排课", constraint.TypeSectionCoverage, model.Level1CoreHard, true, weight),
	}
}

// Evaluate 得分 = 已排 / 总数
func (c *SectionCoverageConstraint) Evaluate(ctx *constraint.Context) (float64, []model.SchedulingConflict) {
	p := ctx.Problem
	var conflicts []model.SchedulingConflict
	missing := 0
	for pos, sec := range p.Sections {
		if _, ok := ctx.Solution.At(pos); ok {
			continue
		}
		missing++
		conflicts = append(conflicts, c.conflict(model.ConflictUnassigned, model.SeverityCritical,
			"教学班 %d 未安排", sec.ID).WithSections(sec.ID))
	}
	return ratioScore(missing, len(p.Sections)), conflicts
}
