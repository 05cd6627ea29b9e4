package cp

import (
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/lookup"
)

// 目标函数各项系数
const (
	proficiencyFactor = 5
	preferenceFactor  = 2

	// slotTerm 时间段项，目前对所有时间段一视同仁
	slotTerm = 1
)

// AssignmentWeight 单个 (教学班, 时间段, 教室, 教师) 组合的目标权重
// 熟练度×5 + 意愿×2 + 教室类型匹配 + 容量匹配 + 时间段项
func AssignmentWeight(p *model.SchedulingProblem, sec *model.CourseSection, teacherID int, room *model.Classroom, slotID int) int {
	w := 0
	if pref, ok := p.Preference(teacherID, sec.CourseID); ok {
		w += pref.ProficiencyLevel*proficiencyFactor + pref.PreferenceLevel*preferenceFactor
	}
	w += lookup.RoomTypeScore(sec.RequiredRoomType, room.Type)
	w += lookup.CapacityFit(sec.Enrollment, room.Capacity)
	w += slotWeight(p, slotID)
	return w
}

// slotWeight 时间段权重
func slotWeight(_ *model.SchedulingProblem, _ int) int {
	return slotTerm
}

// SolutionWeight 课表按同一目标函数计算的总权重
func SolutionWeight(s *model.SchedulingSolution) int {
	p := s.Problem
	total := 0
	for _, a := range s.Assignments() {
		sec := p.Section(a.SectionID)
		room := p.Classroom(a.ClassroomID)
		if sec == nil || room == nil {
			continue
		}
		total += AssignmentWeight(p, sec, a.TeacherID, room, a.TimeSlotID)
	}
	return total
}
