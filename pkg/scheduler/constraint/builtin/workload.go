package builtin

import (
	"math"

	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
)

// consecutiveGap 视为连堂的最大间隔（分钟）
const consecutiveGap = 20

// TeacherWorkloadConstraint 教师每日/每周/连续课时上限
type TeacherWorkloadConstraint struct {
	*BaseConstraint
}

// NewTeacherWorkloadConstraint 创建教师课时约束
func NewTeacherWorkloadConstraint(weight float64, hard bool) *TeacherWorkloadConstraint {
	return &TeacherWorkloadConstraint{
		BaseConstraint: NewBaseConstraint("教师课时上限", constraint.TypeTeacherWorkload, model.Level2VariableHard, hard, weight),
	}
}

// Evaluate 得分 = 1 - 超限检查项 / 检查项
func (c *TeacherWorkloadConstraint) Evaluate(ctx *constraint.Context) (float64, []model.SchedulingConflict) {
	var conflicts []model.SchedulingConflict
	checks, bad := 0, 0

	for _, tid := range ctx.TeacherIDs() {
		t := ctx.Problem.Teacher(tid)
		if t == nil {
			continue
		}
		var weekly float64
		for _, day := range ctx.TeacherDays(tid) {
			list := ctx.TeacherDay(tid, day)
			var daily, run, longest float64
			for i, a := range list {
				h := a.Slot().Hours()
				daily += h
				if i > 0 {
					gap := list[i-1].Slot().GapTo(a.Slot())
					if gap < 0 || gap > consecutiveGap {
						run = 0
					}
				}
				run += h
				longest = math.Max(longest, run)
			}
			weekly += daily

			if t.MaxDailyHours > 0 {
				checks++
				if daily > float64(t.MaxDailyHours) {
					bad++
					conflicts = append(conflicts, c.conflict(model.ConflictWorkload, c.severity(),
						"教师 %d 周%d 课时 %.1f 小时，超过每日上限 %d", tid, day, daily, t.MaxDailyHours).
						WithTeachers(tid))
				}
			}
			if t.MaxConsecutiveHours > 0 {
				checks++
				if longest > float64(t.MaxConsecutiveHours) {
					bad++
					conflicts = append(conflicts, c.conflict(model.ConflictWorkload, c.severity(),
						"教师 %d 周%d 连续上课 %.1f 小时，超过上限 %d", tid, day, longest, t.MaxConsecutiveHours).
						WithTeachers(tid))
				}
			}
		}
		if t.MaxWeeklyHours > 0 {
			checks++
			if weekly > float64(t.MaxWeeklyHours) {
				bad++
				conflicts = append(conflicts, c.conflict(model.ConflictWorkload, c.severity(),
					"教师 %d 每周课时 %.1f 小时，超过上限 %d", tid, weekly, t.MaxWeeklyHours).
					WithTeachers(tid))
			}
		}
	}
	return ratioScore(bad, checks), conflicts
}
