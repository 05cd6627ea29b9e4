package builtin

import (
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
)

const (
	// compactGap 视为紧凑连排的最大间隔（分钟）
	compactGap = 15
	// DefaultCompactnessThreshold 一天内连排达到该节数即为理想
	DefaultCompactnessThreshold = 3
	// ConfigCompactnessThreshold 评估上下文中的阈值配置键
	ConfigCompactnessThreshold = "compactness_threshold"
)

// TeacherMobilityConstraint 连堂课尽量在同一教学楼
type TeacherMobilityConstraint struct {
	*BaseConstraint
}

// NewTeacherMobilityConstraint 创建教师移动约束
func NewTeacherMobilityConstraint(weight float64) *TeacherMobilityConstraint {
	return &TeacherMobilityConstraint{
		BaseConstraint: NewBaseConstraint("连堂教学楼一致", constraint.TypeTeacherMobility, model.Level4QualitySoft, false, weight),
	}
}

// Evaluate 得分 = 1 - 跨楼连堂对数 / 连堂对数
func (c *TeacherMobilityConstraint) Evaluate(ctx *constraint.Context) (float64, []model.SchedulingConflict) {
	var conflicts []model.SchedulingConflict
	consecutive, distant := 0, 0
	for _, tid := range ctx.TeacherIDs() {
		for _, day := range ctx.TeacherDays(tid) {
			list := ctx.TeacherDay(tid, day)
			for i := 1; i < len(list); i++ {
				prev, cur := list[i-1], list[i]
				gap := prev.Slot().GapTo(cur.Slot())
				if gap < 0 || gap > consecutiveGap {
					continue
				}
				consecutive++
				r1 := ctx.Problem.Classroom(prev.ClassroomID)
				r2 := ctx.Problem.Classroom(cur.ClassroomID)
				if r1 == nil || r2 == nil || r1.Building == r2.Building {
					continue
				}
				distant++
				conflicts = append(conflicts, c.conflict(model.ConflictMobility, model.SeverityMinor,
					"教师 %d 连堂课分别在 %s 与 %s，间隔仅 %d 分钟", tid, r1.Building, r2.Building, gap).
					WithSections(prev.SectionID, cur.SectionID).
					WithTeachers(tid).
					WithClassrooms(r1.ID, r2.ID).
					Suggest(model.ResolutionAction{Kind: "change_room", SectionID: cur.SectionID, TargetID: r1.ID, Description: "将后一节课换到同一教学楼"}))
			}
		}
	}
	return ratioScore(distant, consecutive), conflicts
}

// TeacherCompactnessConstraint 教师每天的课尽量连排
type TeacherCompactnessConstraint struct {
	*BaseConstraint
	threshold int
}

// NewTeacherCompactnessConstraint 创建教师课表紧凑度约束
func NewTeacherCompactnessConstraint(weight float64, threshold int) *TeacherCompactnessConstraint {
	if threshold <= 0 {
		threshold = DefaultCompactnessThreshold
	}
	return &TeacherCompactnessConstraint{
		BaseConstraint: NewBaseConstraint("教师课表紧凑", constraint.TypeTeacherCompactness, model.Level4QualitySoft, false, weight),
		threshold:      threshold,
	}
}

// Evaluate 得分 = 理想天数 / 有课天数
// 连排不足只拉低分数，不记为冲突
func (c *TeacherCompactnessConstraint) Evaluate(ctx *constraint.Context) (float64, []model.SchedulingConflict) {
	threshold := ctx.GetConfigInt(ConfigCompactnessThreshold, c.threshold)
	days, optimal := 0, 0
	for _, tid := range ctx.TeacherIDs() {
		for _, day := range ctx.TeacherDays(tid) {
			list := ctx.TeacherDay(tid, day)
			days++
			run, longest := 1, 1
			for i := 1; i < len(list); i++ {
				gap := list[i-1].Slot().GapTo(list[i].Slot())
				if gap >= 0 && gap <= compactGap {
					run++
				} else {
					run = 1
				}
				if run > longest {
					longest = run
				}
			}
			if longest >= threshold {
				optimal++
			}
		}
	}
	if days == 0 {
		return 1, nil
	}
	return float64(optimal) / float64(days), nil
}

// TeacherPreferenceConstraint 教师对课程与时间的意愿
type TeacherPreferenceConstraint struct {
	*BaseConstraint
}

// NewTeacherPreferenceConstraint 创建教师意愿约束
func NewTeacherPreferenceConstraint(weight float64) *TeacherPreferenceConstraint {
	return &TeacherPreferenceConstraint{
		BaseConstraint: NewBaseConstraint("教师意愿", constraint.TypeTeacherPreference, model.Level4QualitySoft, false, weight),
	}
}

// Evaluate 课程意愿与时间意愿各占一半，按 0-5 归一化
func (c *TeacherPreferenceConstraint) Evaluate(ctx *constraint.Context) (float64, []model.SchedulingConflict) {
	var conflicts []model.SchedulingConflict
	all := ctx.Assignments()
	if len(all) == 0 {
		return 1, nil
	}
	var sum float64
	for _, a := range all {
		sec := ctx.Problem.Section(a.SectionID)
		if sec == nil {
			continue
		}
		course := 0.5 // 无记录按中性处理
		if pref, ok := ctx.Problem.Preference(a.TeacherID, sec.CourseID); ok {
			course = float64(pref.PreferenceLevel) / 5
			if pref.PreferenceLevel <= 1 {
				conflicts = append(conflicts, c.conflict(model.ConflictPreference, model.SeverityMinor,
					"教师 %d 不愿讲授课程 %d", a.TeacherID, sec.CourseID).
					WithSections(sec.ID).
					WithTeachers(a.TeacherID))
			}
		}
		slot := 0.5
		if lvl := ctx.Problem.TeacherSlotPreference(a.TeacherID, a.TimeSlotID); lvl > 0 {
			slot = float64(lvl) / 5
		}
		sum += (course + slot) / 2
	}
	return clamp(sum / float64(len(all))), conflicts
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
