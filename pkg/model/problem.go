// Package model 定义排课引擎的核心数据模型
package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Clock 一天中的时刻（自零点起的分钟数）
type Clock int

// NewClock 由时、分构造时刻
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock 解析 HH:MM 格式
func ParseClock(s string) (Clock, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("时间格式无效 %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("时间超出范围 %q", s)
	}
	return NewClock(h, m), nil
}

// String 返回 HH:MM 格式
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MarshalJSON 序列化为 "HH:MM"
func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON 从 "HH:MM" 反序列化
func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// RoomType 教室类型
type RoomType string

const (
	RoomLectureHall RoomType = "lecture_hall" // 阶梯教室
	RoomClassroom   RoomType = "classroom"    // 普通教室
	RoomSeminar     RoomType = "seminar"      // 研讨室
	RoomLab         RoomType = "lab"          // 实验室
	RoomComputerLab RoomType = "computer_lab" // 机房
)

// Family 返回教室类型所属的大类
func (t RoomType) Family() string {
	switch t {
	case RoomLectureHall, RoomClassroom, RoomSeminar:
		return "general"
	case RoomLab, RoomComputerLab:
		return "lab"
	}
	return string(t)
}

// Compatible 两种教室类型是否同属一类
func (t RoomType) Compatible(other RoomType) bool {
	return t.Family() == other.Family()
}

// CourseSection 教学班
type CourseSection struct {
	ID                int      `json:"id" db:"id"`
	CourseID          int      `json:"course_id" db:"course_id"`
	Code              string   `json:"code,omitempty" db:"code"`
	Name              string   `json:"name,omitempty" db:"name"`
	Enrollment        int      `json:"enrollment" db:"enrollment" validate:"gte=0"`
	RequiredRoomType  RoomType `json:"required_room_type,omitempty" db:"required_room_type"`
	RequiredEquipment []string `json:"required_equipment,omitempty" db:"required_equipment"`
	Prerequisites     []int    `json:"prerequisites,omitempty" db:"-"` // 先修课程ID
}

// Teacher 教师
type Teacher struct {
	ID                  int    `json:"id" db:"id"`
	Name                string `json:"name" db:"name"`
	Department          string `json:"department,omitempty" db:"department"`
	MaxWeeklyHours      int    `json:"max_weekly_hours,omitempty" db:"max_weekly_hours" validate:"gte=0"`           // 0 表示不限
	MaxDailyHours       int    `json:"max_daily_hours,omitempty" db:"max_daily_hours" validate:"gte=0"`             // 0 表示不限
	MaxConsecutiveHours int    `json:"max_consecutive_hours,omitempty" db:"max_consecutive_hours" validate:"gte=0"` // 0 表示不限
}

// Classroom 教室
type Classroom struct {
	ID        int      `json:"id" db:"id"`
	Name      string   `json:"name" db:"name"`
	Capacity  int      `json:"capacity" db:"capacity" validate:"gt=0"`
	Building  string   `json:"building,omitempty" db:"building"`
	Campus    string   `json:"campus,omitempty" db:"campus"`
	Type      RoomType `json:"type,omitempty" db:"type"`
	Equipment []string `json:"equipment,omitempty" db:"equipment"`
}

// HasEquipment 教室是否具备全部所需设备
func (c *Classroom) HasEquipment(required []string) bool {
	for _, r := range required {
		found := false
		for _, e := range c.Equipment {
			if e == r {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// TimeSlot 时间段
type TimeSlot struct {
	ID        int   `json:"id" db:"id"`
	DayOfWeek int   `json:"day_of_week" db:"day_of_week" validate:"gte=1,lte=7"` // 1=周一 ... 7=周日
	Start     Clock `json:"start" db:"start_time"`
	End       Clock `json:"end" db:"end_time" validate:"gtfield=Start"`
}

// Duration 时长（分钟）
func (ts TimeSlot) Duration() int {
	return int(ts.End - ts.Start)
}

// Hours 时长（小时）
func (ts TimeSlot) Hours() float64 {
	return float64(ts.Duration()) / 60
}

// GapTo 到下一个时间段的间隔分钟数，不同天或有重叠时返回 -1
func (ts TimeSlot) GapTo(next TimeSlot) int {
	if ts.DayOfWeek != next.DayOfWeek || next.Start < ts.End {
		return -1
	}
	return int(next.Start - ts.End)
}

// Overlaps 两个时间段是否重叠
func (ts TimeSlot) Overlaps(other TimeSlot) bool {
	return ts.DayOfWeek == other.DayOfWeek && ts.Start < other.End && other.Start < ts.End
}

// TeacherCoursePreference 教师-课程熟练度与意愿
type TeacherCoursePreference struct {
	TeacherID        int `json:"teacher_id" db:"teacher_id"`
	CourseID         int `json:"course_id" db:"course_id"`
	ProficiencyLevel int `json:"proficiency_level" db:"proficiency_level" validate:"gte=1,lte=5"` // 1-5
	PreferenceLevel  int `json:"preference_level" db:"preference_level" validate:"gte=0,lte=5"` // 0-5
}

// TeacherAvailability 教师时间可用性
type TeacherAvailability struct {
	TeacherID       int  `json:"teacher_id" db:"teacher_id"`
	TimeSlotID      int  `json:"time_slot_id" db:"time_slot_id"`
	IsAvailable     bool `json:"is_available" db:"is_available"`
	PreferenceLevel int  `json:"preference_level,omitempty" db:"preference_level"`
}

// ClassroomAvailability 教室时间可用性
type ClassroomAvailability struct {
	ClassroomID int    `json:"classroom_id" db:"classroom_id"`
	TimeSlotID  int    `json:"time_slot_id" db:"time_slot_id"`
	IsAvailable bool   `json:"is_available" db:"is_available"`
	Reason      string `json:"reason,omitempty" db:"reason"`
}

// CoursePrerequisite 课程先修关系
type CoursePrerequisite struct {
	CourseID             int  `json:"course_id" db:"course_id"`
	PrerequisiteCourseID int  `json:"prerequisite_course_id" db:"prerequisite_course_id"`
	IsMandatory          bool `json:"is_mandatory" db:"is_mandatory"`
}

// SchedulingProblem 排课问题（构造后按约定只读）
type SchedulingProblem struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Term string    `json:"term,omitempty"`

	Sections   []CourseSection `json:"sections"`
	Teachers   []Teacher       `json:"teachers"`
	Classrooms []Classroom     `json:"classrooms"`
	TimeSlots  []TimeSlot      `json:"time_slots"`

	TeacherPreferences    []TeacherCoursePreference `json:"teacher_preferences,omitempty"`
	TeacherAvailability   []TeacherAvailability     `json:"teacher_availability,omitempty"`
	ClassroomAvailability []ClassroomAvailability   `json:"classroom_availability,omitempty"`
	CoursePrerequisites   []CoursePrerequisite      `json:"course_prerequisites,omitempty"`

	mu      sync.Mutex
	index   atomic.Pointer[problemIndex]
	version atomic.Uint64
}

type pairKey struct{ a, b int }

// problemIndex ID到位置及关系表的索引
type problemIndex struct {
	sectionPos   map[int]int
	teacherPos   map[int]int
	classroomPos map[int]int
	slotPos      map[int]int

	prefs      map[pairKey]TeacherCoursePreference // (teacher, course)
	teacherAv  map[pairKey]TeacherAvailability     // (teacher, slot)
	roomAv     map[pairKey]ClassroomAvailability   // (room, slot)
	prereqs    map[pairKey]bool                    // (course, prerequisite)
	sectionsOf map[int][]int                       // course -> 教学班位置
}

// NewSchedulingProblem 创建排课问题
func NewSchedulingProblem(name string) *SchedulingProblem {
	return &SchedulingProblem{ID: uuid.New(), Name: name}
}

// Reindex 重建索引并递增版本号，修改实体列表后必须调用
func (p *SchedulingProblem) Reindex() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.index.Store(p.buildIndex())
	p.version.Add(1)
}

// Version 问题版本号，派生的查找表据此判断是否过期
func (p *SchedulingProblem) Version() uint64 {
	p.idx()
	return p.version.Load()
}

func (p *SchedulingProblem) idx() *problemIndex {
	if ix := p.index.Load(); ix != nil {
		return ix
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if ix := p.index.Load(); ix != nil {
		return ix
	}
	ix := p.buildIndex()
	p.index.Store(ix)
	p.version.Add(1)
	return ix
}

func (p *SchedulingProblem) buildIndex() *problemIndex {
	ix := &problemIndex{
		sectionPos:   make(map[int]int, len(p.Sections)),
		teacherPos:   make(map[int]int, len(p.Teachers)),
		classroomPos: make(map[int]int, len(p.Classrooms)),
		slotPos:      make(map[int]int, len(p.TimeSlots)),
		prefs:        make(map[pairKey]TeacherCoursePreference, len(p.TeacherPreferences)),
		teacherAv:    make(map[pairKey]TeacherAvailability, len(p.TeacherAvailability)),
		roomAv:       make(map[pairKey]ClassroomAvailability, len(p.ClassroomAvailability)),
		prereqs:      make(map[pairKey]bool),
		sectionsOf:   make(map[int][]int),
	}
	for i, s := range p.Sections {
		ix.sectionPos[s.ID] = i
		ix.sectionsOf[s.CourseID] = append(ix.sectionsOf[s.CourseID], i)
		for _, pre := range s.Prerequisites {
			ix.prereqs[pairKey{s.CourseID, pre}] = true
		}
	}
	for i, t := range p.Teachers {
		ix.teacherPos[t.ID] = i
	}
	for i, c := range p.Classrooms {
		ix.classroomPos[c.ID] = i
	}
	for i, ts := range p.TimeSlots {
		ix.slotPos[ts.ID] = i
	}
	for _, pr := range p.TeacherPreferences {
		ix.prefs[pairKey{pr.TeacherID, pr.CourseID}] = pr
	}
	for _, a := range p.TeacherAvailability {
		ix.teacherAv[pairKey{a.TeacherID, a.TimeSlotID}] = a
	}
	for _, a := range p.ClassroomAvailability {
		ix.roomAv[pairKey{a.ClassroomID, a.TimeSlotID}] = a
	}
	for _, cp := range p.CoursePrerequisites {
		ix.prereqs[pairKey{cp.CourseID, cp.PrerequisiteCourseID}] = true
	}
	return ix
}

// SectionPos 教学班ID对应的位置
func (p *SchedulingProblem) SectionPos(id int) (int, bool) {
	i, ok := p.idx().sectionPos[id]
	return i, ok
}

// Section 按ID获取教学班
func (p *SchedulingProblem) Section(id int) *CourseSection {
	if i, ok := p.idx().sectionPos[id]; ok {
		return &p.Sections[i]
	}
	return nil
}

// Teacher 按ID获取教师
func (p *SchedulingProblem) Teacher(id int) *Teacher {
	if i, ok := p.idx().teacherPos[id]; ok {
		return &p.Teachers[i]
	}
	return nil
}

// Classroom 按ID获取教室
func (p *SchedulingProblem) Classroom(id int) *Classroom {
	if i, ok := p.idx().classroomPos[id]; ok {
		return &p.Classrooms[i]
	}
	return nil
}

// TimeSlot 按ID获取时间段
func (p *SchedulingProblem) TimeSlot(id int) *TimeSlot {
	if i, ok := p.idx().slotPos[id]; ok {
		return &p.TimeSlots[i]
	}
	return nil
}

// TeacherPos 教师ID对应的位置
func (p *SchedulingProblem) TeacherPos(id int) (int, bool) {
	i, ok := p.idx().teacherPos[id]
	return i, ok
}

// ClassroomPos 教室ID对应的位置
func (p *SchedulingProblem) ClassroomPos(id int) (int, bool) {
	i, ok := p.idx().classroomPos[id]
	return i, ok
}

// TimeSlotPos 时间段ID对应的位置
func (p *SchedulingProblem) TimeSlotPos(id int) (int, bool) {
	i, ok := p.idx().slotPos[id]
	return i, ok
}

// Preference 教师对课程的熟练度/意愿记录
func (p *SchedulingProblem) Preference(teacherID, courseID int) (TeacherCoursePreference, bool) {
	pr, ok := p.idx().prefs[pairKey{teacherID, courseID}]
	return pr, ok
}

// TeacherAvailable 教师在该时间段是否可用（无记录视为可用）
func (p *SchedulingProblem) TeacherAvailable(teacherID, slotID int) bool {
	if a, ok := p.idx().teacherAv[pairKey{teacherID, slotID}]; ok {
		return a.IsAvailable
	}
	return true
}

// TeacherSlotPreference 教师对时间段的偏好等级（无记录返回 0）
func (p *SchedulingProblem) TeacherSlotPreference(teacherID, slotID int) int {
	if a, ok := p.idx().teacherAv[pairKey{teacherID, slotID}]; ok {
		return a.PreferenceLevel
	}
	return 0
}

// ClassroomAvailable 教室在该时间段是否可用（无记录视为可用）
func (p *SchedulingProblem) ClassroomAvailable(classroomID, slotID int) bool {
	if a, ok := p.idx().roomAv[pairKey{classroomID, slotID}]; ok {
		return a.IsAvailable
	}
	return true
}

// IsPrerequisitePair 两门课程之间是否存在先修关系（任一方向）
func (p *SchedulingProblem) IsPrerequisitePair(courseA, courseB int) bool {
	ix := p.idx()
	return ix.prereqs[pairKey{courseA, courseB}] || ix.prereqs[pairKey{courseB, courseA}]
}

// PrerequisitePairs 返回所有存在先修关系的教学班位置对 (i<j)
func (p *SchedulingProblem) PrerequisitePairs() [][2]int {
	ix := p.idx()
	seen := make(map[pairKey]bool)
	var out [][2]int
	for k := range ix.prereqs {
		for _, i := range ix.sectionsOf[k.a] {
			for _, j := range ix.sectionsOf[k.b] {
				if i == j {
					continue
				}
				a, b := i, j
				if a > b {
					a, b = b, a
				}
				if seen[pairKey{a, b}] {
					continue
				}
				seen[pairKey{a, b}] = true
				out = append(out, [2]int{a, b})
			}
		}
	}
	sortPairs(out)
	return out
}

func sortPairs(ps [][2]int) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i][0] != ps[j][0] {
			return ps[i][0] < ps[j][0]
		}
		return ps[i][1] < ps[j][1]
	})
}

// Size 返回问题规模摘要
func (p *SchedulingProblem) Size() (sections, teachers, classrooms, slots int) {
	return len(p.Sections), len(p.Teachers), len(p.Classrooms), len(p.TimeSlots)
}
