package validator

import (
	"sort"

	"github.com/paiban/kebiao/pkg/model"
)

// DetectorConfig 检测器配置
type DetectorConfig struct {
	CheckCapacity     bool // 教室容量
	CheckAvailability bool // 教师与教室可用性
	CheckCompleteness bool // 每个教学班都已安排
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		CheckCapacity:     true,
		CheckAvailability: true,
		CheckCompleteness: true,
	}
}

// ConflictDetector 课表不变量检测
// 与评估器相互独立，用于求解结果出库前的复核
type ConflictDetector struct {
	config *DetectorConfig
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &ConflictDetector{config: config}
}

// DetectAll 检测全部冲突，结果按类型与教学班排序
func (d *ConflictDetector) DetectAll(s *model.SchedulingSolution) []model.SchedulingConflict {
	all := s.Assignments()
	var conflicts []model.SchedulingConflict

	conflicts = append(conflicts, d.detectOverlaps(all, func(a model.SchedulingAssignment) int { return a.TeacherID }, model.ConflictTeacher)...)
	conflicts = append(conflicts, d.detectOverlaps(all, func(a model.SchedulingAssignment) int { return a.ClassroomID }, model.ConflictClassroom)...)
	if d.config.CheckCapacity {
		conflicts = append(conflicts, d.detectCapacity(s.Problem, all)...)
	}
	if d.config.CheckAvailability {
		conflicts = append(conflicts, d.detectAvailability(s.Problem, all)...)
	}
	if d.config.CheckCompleteness && !s.IsComplete() {
		for _, sec := range s.Problem.Sections {
			if _, ok := s.Get(sec.ID); !ok {
				conflicts = append(conflicts, model.NewConflict(model.ConflictUnassigned, model.SeverityCritical,
					"教学班 %d 未安排", sec.ID).WithSections(sec.ID))
			}
		}
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		if conflicts[i].Type != conflicts[j].Type {
			return conflicts[i].Type < conflicts[j].Type
		}
		return firstID(conflicts[i].SectionIDs) < firstID(conflicts[j].SectionIDs)
	})
	return conflicts
}

// DetectForAssignment 检测把 a 加入课表时产生的冲突，课表中同一教学班的旧分配不参与比较
func (d *ConflictDetector) DetectForAssignment(s *model.SchedulingSolution, a model.SchedulingAssignment) []model.SchedulingConflict {
	var conflicts []model.SchedulingConflict
	slot := a.Slot()
	for _, other := range s.Assignments() {
		if other.SectionID == a.SectionID || !slot.Overlaps(other.Slot()) {
			continue
		}
		if other.TeacherID == a.TeacherID {
			conflicts = append(conflicts, model.NewConflict(model.ConflictTeacher, model.SeverityCritical,
				"教师 %d 在时间段 %d 已有教学班 %d", a.TeacherID, other.TimeSlotID, other.SectionID).
				WithSections(a.SectionID, other.SectionID).
				WithTeachers(a.TeacherID))
		}
		if other.ClassroomID == a.ClassroomID {
			conflicts = append(conflicts, model.NewConflict(model.ConflictClassroom, model.SeverityCritical,
				"教室 %d 在时间段 %d 已有教学班 %d", a.ClassroomID, other.TimeSlotID, other.SectionID).
				WithSections(a.SectionID, other.SectionID).
				WithClassrooms(a.ClassroomID))
		}
	}
	one := []model.SchedulingAssignment{a}
	if d.config.CheckCapacity {
		conflicts = append(conflicts, d.detectCapacity(s.Problem, one)...)
	}
	if d.config.CheckAvailability {
		conflicts = append(conflicts, d.detectAvailability(s.Problem, one)...)
	}
	return conflicts
}

// detectOverlaps 同一资源时间重叠的分配两两报告
func (d *ConflictDetector) detectOverlaps(all []model.SchedulingAssignment, resource func(model.SchedulingAssignment) int, t model.ConflictType) []model.SchedulingConflict {
	groups := make(map[int][]model.SchedulingAssignment)
	for _, a := range all {
		groups[resource(a)] = append(groups[resource(a)], a)
	}

	var conflicts []model.SchedulingConflict
	for id, list := range groups {
		sort.Slice(list, func(i, j int) bool {
			if list[i].DayOfWeek != list[j].DayOfWeek {
				return list[i].DayOfWeek < list[j].DayOfWeek
			}
			return list[i].StartTime < list[j].StartTime
		})
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				if !list[i].Slot().Overlaps(list[j].Slot()) {
					continue
				}
				c := model.NewConflict(t, model.SeverityCritical, "%s %d 在同一时间有教学班 %d 和 %d",
					resourceName(t), id, list[i].SectionID, list[j].SectionID).
					WithSections(list[i].SectionID, list[j].SectionID).
					WithTimeSlots(list[i].TimeSlotID, list[j].TimeSlotID)
				if t == model.ConflictTeacher {
					c = c.WithTeachers(id)
				} else {
					c = c.WithClassrooms(id)
				}
				conflicts = append(conflicts, c)
			}
		}
	}
	return conflicts
}

func (d *ConflictDetector) detectCapacity(p *model.SchedulingProblem, all []model.SchedulingAssignment) []model.SchedulingConflict {
	var conflicts []model.SchedulingConflict
	for _, a := range all {
		sec, room := p.Section(a.SectionID), p.Classroom(a.ClassroomID)
		if sec == nil || room == nil || room.Capacity >= sec.Enrollment {
			continue
		}
		conflicts = append(conflicts, model.NewConflict(model.ConflictCapacity, model.SeverityCritical,
			"教室 %d 容量 %d 小于教学班 %d 选课人数 %d", room.ID, room.Capacity, sec.ID, sec.Enrollment).
			WithSections(sec.ID).
			WithClassrooms(room.ID))
	}
	return conflicts
}

func (d *ConflictDetector) detectAvailability(p *model.SchedulingProblem, all []model.SchedulingAssignment) []model.SchedulingConflict {
	var conflicts []model.SchedulingConflict
	for _, a := range all {
		if !p.TeacherAvailable(a.TeacherID, a.TimeSlotID) {
			conflicts = append(conflicts, model.NewConflict(model.ConflictTeacherAvailability, model.SeveritySevere,
				"教师 %d 在时间段 %d 不可用", a.TeacherID, a.TimeSlotID).
				WithSections(a.SectionID).
				WithTeachers(a.TeacherID).
				WithTimeSlots(a.TimeSlotID))
		}
		if !p.ClassroomAvailable(a.ClassroomID, a.TimeSlotID) {
			conflicts = append(conflicts, model.NewConflict(model.ConflictClassroomAvailability, model.SeveritySevere,
				"教室 %d 在时间段 %d 不可用", a.ClassroomID, a.TimeSlotID).
				WithSections(a.SectionID).
				WithClassrooms(a.ClassroomID).
				WithTimeSlots(a.TimeSlotID))
		}
	}
	return conflicts
}

func resourceName(t model.ConflictType) string {
	if t == model.ConflictTeacher {
		return "教师"
	}
	return "教室"
}

func firstID(ids []int) int {
	if len(ids) == 0 {
		return 0
	}
	return ids[0]
}
