package model

import (
	"fmt"

	"github.com/google/uuid"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictTeacher               ConflictType = "teacher"                // 教师时间冲突
	ConflictClassroom             ConflictType = "classroom"              // 教室时间冲突
	ConflictCapacity              ConflictType = "capacity"               // 教室容量不足
	ConflictTeacherAvailability   ConflictType = "teacher_availability"   // 教师不可用
	ConflictClassroomAvailability ConflictType = "classroom_availability" // 教室不可用
	ConflictPrerequisite          ConflictType = "prerequisite"           // 先修课程同时段
	ConflictMobility              ConflictType = "mobility"               // 连堂跨楼
	ConflictRoomType              ConflictType = "room_type"              // 教室类型不符
	ConflictEquipment             ConflictType = "equipment"              // 设备缺失
	ConflictWorkload              ConflictType = "workload"               // 教师课时超限
	ConflictPreference            ConflictType = "preference"             // 教师意愿不符
	ConflictUnassigned            ConflictType = "unassigned"             // 教学班未排
	ConflictEvaluationError       ConflictType = "constraint_evaluation_error"
)

// Severity 严重程度
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityCritical Severity = "critical"
)

// Rank 严重程度排序值
func (s Severity) Rank() int {
	switch s {
	case SeverityMinor:
		return 1
	case SeverityModerate:
		return 2
	case SeveritySevere:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// ResolutionStatus 冲突处理状态
type ResolutionStatus string

const (
	ResolutionUnresolved ResolutionStatus = "unresolved"
	ResolutionResolved   ResolutionStatus = "resolved"
	ResolutionIgnored    ResolutionStatus = "ignored"
)

// ResolutionAction 建议的处理动作
type ResolutionAction struct {
	Kind        string `json:"kind"` // change_time/change_room/change_teacher/swap
	SectionID   int    `json:"section_id"`
	TargetID    int    `json:"target_id,omitempty"`
	Description string `json:"description"`
}

// SchedulingConflict 检测到的冲突
type SchedulingConflict struct {
	ID           uuid.UUID          `json:"id"`
	Type         ConflictType       `json:"type"`
	Severity     Severity           `json:"severity"`
	Description  string             `json:"description"`
	ConstraintID string             `json:"constraint_id,omitempty"`
	SectionIDs   []int              `json:"section_ids,omitempty"`
	TeacherIDs   []int              `json:"teacher_ids,omitempty"`
	ClassroomIDs []int              `json:"classroom_ids,omitempty"`
	TimeSlotIDs  []int              `json:"time_slot_ids,omitempty"`
	Status       ResolutionStatus   `json:"status"`
	Suggestions  []ResolutionAction `json:"suggested_resolutions,omitempty"`
}

// NewConflict 创建冲突
func NewConflict(t ConflictType, severity Severity, format string, args ...interface{}) SchedulingConflict {
	return SchedulingConflict{
		ID:          uuid.New(),
		Type:        t,
		Severity:    severity,
		Description: fmt.Sprintf(format, args...),
		Status:      ResolutionUnresolved,
	}
}

// WithSections 设置涉及的教学班
func (c SchedulingConflict) WithSections(ids ...int) SchedulingConflict {
	c.SectionIDs = append(c.SectionIDs, ids...)
	return c
}

// WithTeachers 设置涉及的教师
func (c SchedulingConflict) WithTeachers(ids ...int) SchedulingConflict {
	c.TeacherIDs = append(c.TeacherIDs, ids...)
	return c
}

// WithClassrooms 设置涉及的教室
func (c SchedulingConflict) WithClassrooms(ids ...int) SchedulingConflict {
	c.ClassroomIDs = append(c.ClassroomIDs, ids...)
	return c
}

// WithTimeSlots 设置涉及的时间段
func (c SchedulingConflict) WithTimeSlots(ids ...int) SchedulingConflict {
	c.TimeSlotIDs = append(c.TimeSlotIDs, ids...)
	return c
}

// Suggest 追加处理建议
func (c SchedulingConflict) Suggest(actions ...ResolutionAction) SchedulingConflict {
	c.Suggestions = append(c.Suggestions, actions...)
	return c
}

// IsHardType 该冲突类型是否对应硬约束
func (t ConflictType) IsHardType() bool {
	switch t {
	case ConflictTeacher, ConflictClassroom, ConflictCapacity, ConflictUnassigned, ConflictEvaluationError:
		return true
	}
	return false
}
