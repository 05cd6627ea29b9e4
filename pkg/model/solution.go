package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SchedulingAssignment 一条排课结果：教学班 -> (教师, 教室, 时间段)
type SchedulingAssignment struct {
	SectionID   int    `json:"section_id" db:"section_id"`
	TeacherID   int    `json:"teacher_id" db:"teacher_id"`
	ClassroomID int    `json:"classroom_id" db:"classroom_id"`
	TimeSlotID  int    `json:"time_slot_id" db:"time_slot_id"`
	DayOfWeek   int    `json:"day_of_week" db:"day_of_week"`
	StartTime   Clock  `json:"start_time" db:"start_time"`
	EndTime     Clock  `json:"end_time" db:"end_time"`
	WeekPattern string `json:"week_pattern,omitempty" db:"week_pattern"` // 如 "1-16" 或 "odd"
}

// Slot 还原出时间段
func (a SchedulingAssignment) Slot() TimeSlot {
	return TimeSlot{ID: a.TimeSlotID, DayOfWeek: a.DayOfWeek, Start: a.StartTime, End: a.EndTime}
}

// SameResources 教师、教室、时间段是否完全一致
func (a SchedulingAssignment) SameResources(b SchedulingAssignment) bool {
	return a.TeacherID == b.TeacherID && a.ClassroomID == b.ClassroomID && a.TimeSlotID == b.TimeSlotID
}

// NewAssignment 创建分配并补齐冗余的时间字段
func NewAssignment(p *SchedulingProblem, sectionID, teacherID, classroomID, slotID int) SchedulingAssignment {
	a := SchedulingAssignment{
		SectionID:   sectionID,
		TeacherID:   teacherID,
		ClassroomID: classroomID,
		TimeSlotID:  slotID,
	}
	if ts := p.TimeSlot(slotID); ts != nil {
		a.DayOfWeek = ts.DayOfWeek
		a.StartTime = ts.Start
		a.EndTime = ts.End
	}
	return a
}

// SchedulingSolution 一个候选课表
// 分配按教学班位置存放在连续数组中，每个教学班至多一条
type SchedulingSolution struct {
	ID         uuid.UUID             `json:"id"`
	Problem    *SchedulingProblem    `json:"-"`
	Algorithm  string                `json:"algorithm"`
	CreatedAt  time.Time             `json:"created_at"`
	Evaluation *SchedulingEvaluation `json:"evaluation,omitempty"`

	slots    []SchedulingAssignment
	assigned []bool
	count    int
}

// NewSolution 创建空课表
func NewSolution(p *SchedulingProblem, algorithm string) *SchedulingSolution {
	n := len(p.Sections)
	return &SchedulingSolution{
		ID:        uuid.New(),
		Problem:   p,
		Algorithm: algorithm,
		CreatedAt: time.Now(),
		slots:     make([]SchedulingAssignment, n),
		assigned:  make([]bool, n),
	}
}

// Assign 写入或覆盖一条分配，教学班不存在时返回 false
func (s *SchedulingSolution) Assign(a SchedulingAssignment) bool {
	pos, ok := s.Problem.SectionPos(a.SectionID)
	if !ok {
		return false
	}
	s.AssignAt(pos, a)
	return true
}

// AssignAt 按教学班位置写入分配
func (s *SchedulingSolution) AssignAt(pos int, a SchedulingAssignment) {
	if !s.assigned[pos] {
		s.count++
	}
	s.slots[pos] = a
	s.assigned[pos] = true
	s.Evaluation = nil
}

// Unassign 移除教学班的分配
func (s *SchedulingSolution) Unassign(sectionID int) {
	pos, ok := s.Problem.SectionPos(sectionID)
	if !ok || !s.assigned[pos] {
		return
	}
	s.assigned[pos] = false
	s.slots[pos] = SchedulingAssignment{}
	s.count--
	s.Evaluation = nil
}

// Get 获取教学班的分配
func (s *SchedulingSolution) Get(sectionID int) (SchedulingAssignment, bool) {
	pos, ok := s.Problem.SectionPos(sectionID)
	if !ok {
		return SchedulingAssignment{}, false
	}
	return s.At(pos)
}

// At 按位置获取分配
func (s *SchedulingSolution) At(pos int) (SchedulingAssignment, bool) {
	if pos < 0 || pos >= len(s.slots) || !s.assigned[pos] {
		return SchedulingAssignment{}, false
	}
	return s.slots[pos], true
}

// Len 已分配的教学班数
func (s *SchedulingSolution) Len() int {
	return s.count
}

// Capacity 教学班总数
func (s *SchedulingSolution) Capacity() int {
	return len(s.slots)
}

// IsComplete 是否每个教学班都已分配
func (s *SchedulingSolution) IsComplete() bool {
	return s.count == len(s.slots)
}

// Assignments 按教学班顺序返回全部分配的副本
func (s *SchedulingSolution) Assignments() []SchedulingAssignment {
	out := make([]SchedulingAssignment, 0, s.count)
	for i, ok := range s.assigned {
		if ok {
			out = append(out, s.slots[i])
		}
	}
	return out
}

// AssignedPositions 返回已分配的教学班位置
func (s *SchedulingSolution) AssignedPositions() []int {
	out := make([]int, 0, s.count)
	for i, ok := range s.assigned {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

// Clone 整块复制，评估结果不复制
func (s *SchedulingSolution) Clone() *SchedulingSolution {
	c := &SchedulingSolution{
		ID:        uuid.New(),
		Problem:   s.Problem,
		Algorithm: s.Algorithm,
		CreatedAt: time.Now(),
		slots:     make([]SchedulingAssignment, len(s.slots)),
		assigned:  make([]bool, len(s.assigned)),
		count:     s.count,
	}
	copy(c.slots, s.slots)
	copy(c.assigned, s.assigned)
	return c
}

// CopyFrom 用另一课表的内容覆盖当前课表（同一问题）
func (s *SchedulingSolution) CopyFrom(o *SchedulingSolution) {
	copy(s.slots, o.slots)
	copy(s.assigned, o.assigned)
	s.count = o.count
	s.Evaluation = o.Evaluation
}

// Score 评估分数，未评估返回 0
func (s *SchedulingSolution) Score() float64 {
	if s.Evaluation == nil {
		return 0
	}
	return s.Evaluation.Score
}

// solutionJSON 序列化形态
type solutionJSON struct {
	ID          uuid.UUID              `json:"id"`
	Algorithm   string                 `json:"algorithm"`
	CreatedAt   time.Time              `json:"created_at"`
	Assignments []SchedulingAssignment `json:"assignments"`
	Evaluation  *SchedulingEvaluation  `json:"evaluation,omitempty"`
}

// MarshalJSON 以分配列表形式序列化
func (s *SchedulingSolution) MarshalJSON() ([]byte, error) {
	return json.Marshal(solutionJSON{
		ID:          s.ID,
		Algorithm:   s.Algorithm,
		CreatedAt:   s.CreatedAt,
		Assignments: s.Assignments(),
		Evaluation:  s.Evaluation,
	})
}
