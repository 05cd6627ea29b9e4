// Package constraint 定义约束接口、分层注册表和评估器
package constraint

import (
	"sort"

	"github.com/paiban/kebiao/pkg/model"
)

// Type 约束类型标识
type Type string

const (
	// 核心硬约束
	TypeTeacherConflict   Type = "teacher_conflict"
	TypeClassroomConflict Type = "classroom_conflict"
	TypeSectionCoverage   Type = "section_coverage"

	// 可配置硬约束
	TypeTeacherAvailability   Type = "teacher_availability"
	TypeClassroomAvailability Type = "classroom_availability"
	TypePrerequisite          Type = "prerequisite"
	TypeTeacherWorkload       Type = "teacher_workload"

	// 物理适配
	TypeClassroomCapacity Type = "classroom_capacity"
	TypeRoomTypeMatch     Type = "room_type_match"
	TypeEquipmentMatch    Type = "equipment_match"

	// 质量偏好
	TypeTeacherMobility    Type = "teacher_mobility"
	TypeTeacherCompactness Type = "teacher_compactness"
	TypeTeacherPreference  Type = "teacher_preference"
)

// Constraint 约束接口
type Constraint interface {
	// ID 约束唯一标识
	ID() string

	// Name 返回约束名称
	Name() string

	// Type 返回约束类型
	Type() Type

	// IsHard 是否为硬约束
	IsHard() bool

	// Weight 约束权重，评估时按层级倍率放大
	Weight() float64

	// Level 约束层级
	Level() model.HierarchyLevel

	// Evaluate 评估整个课表
	// 返回 [0,1] 之间的满足度以及检测到的冲突
	Evaluate(ctx *Context) (score float64, conflicts []model.SchedulingConflict)
}

// Graded 硬约束的分数表示适配程度而非满足程度时实现该接口
// 这类约束只按冲突判定可行性，分数不与满足阈值比较
type Graded interface {
	Graded() bool
}

// isGraded 约束是否按等级计分
func isGraded(c Constraint) bool {
	g, ok := c.(Graded)
	return ok && g.Graded()
}

// Context 评估上下文：课表加上一次性建立的分组索引
type Context struct {
	Problem  *model.SchedulingProblem
	Solution *model.SchedulingSolution

	// 额外配置
	Config map[string]interface{}

	assignments []model.SchedulingAssignment
	byTeacher   map[int][]int
	byRoom      map[int][]int
	bySlot      map[int][]int
}

// NewContext 为课表创建评估上下文
func NewContext(s *model.SchedulingSolution) *Context {
	c := &Context{
		Problem:     s.Problem,
		Solution:    s,
		Config:      make(map[string]interface{}),
		assignments: s.Assignments(),
		byTeacher:   make(map[int][]int),
		byRoom:      make(map[int][]int),
		bySlot:      make(map[int][]int),
	}
	for i, a := range c.assignments {
		c.byTeacher[a.TeacherID] = append(c.byTeacher[a.TeacherID], i)
		c.byRoom[a.ClassroomID] = append(c.byRoom[a.ClassroomID], i)
		c.bySlot[a.TimeSlotID] = append(c.bySlot[a.TimeSlotID], i)
	}
	return c
}

// Assignments 全部分配（只读）
func (c *Context) Assignments() []model.SchedulingAssignment {
	return c.assignments
}

// Assignment 按下标取分配
func (c *Context) Assignment(i int) model.SchedulingAssignment {
	return c.assignments[i]
}

// TeacherIDs 有课教师ID（升序）
func (c *Context) TeacherIDs() []int {
	return sortedKeys(c.byTeacher)
}

// RoomIDs 被占用的教室ID（升序）
func (c *Context) RoomIDs() []int {
	return sortedKeys(c.byRoom)
}

// ByTeacher 某教师的分配下标
func (c *Context) ByTeacher(teacherID int) []int {
	return c.byTeacher[teacherID]
}

// ByRoom 某教室的分配下标
func (c *Context) ByRoom(roomID int) []int {
	return c.byRoom[roomID]
}

// BySlot 某时间段的分配下标
func (c *Context) BySlot(slotID int) []int {
	return c.bySlot[slotID]
}

// TeacherDay 某教师某天的分配，按开始时间排序
func (c *Context) TeacherDay(teacherID, day int) []model.SchedulingAssignment {
	var out []model.SchedulingAssignment
	for _, i := range c.byTeacher[teacherID] {
		if c.assignments[i].DayOfWeek == day {
			out = append(out, c.assignments[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out
}

// TeacherDays 某教师有课的天（升序）
func (c *Context) TeacherDays(teacherID int) []int {
	days := make(map[int][]int)
	for _, i := range c.byTeacher[teacherID] {
		days[c.assignments[i].DayOfWeek] = nil
	}
	return sortedKeys(days)
}

// GetConfigInt 获取整数配置
func (c *Context) GetConfigInt(key string, defaultVal int) int {
	if val, ok := c.Config[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case float64:
			return int(v)
		case int64:
			return int(v)
		}
	}
	return defaultVal
}

func sortedKeys(m map[int][]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// PairCount n 个元素的两两组合数
func PairCount(n int) int {
	return n * (n - 1) / 2
}
