package cp

import (
	"fmt"

	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/lookup"
)

// BuildOptions 模型构建选项
type BuildOptions struct {
	Level model.ConstraintLevel

	// RelaxCapacityFilter 不按容量预筛教室，容量改由 Basic 级约束保证
	RelaxCapacityFilter bool

	// Disabled 关闭的约束族，仅用于不可行诊断
	Disabled map[Family]bool

	// Converters Complete 级使用的转换器，nil 表示默认集合
	Converters []Converter
}

// DefaultConverters 默认转换器
func DefaultConverters() []Converter {
	return []Converter{
		&EquipmentConverter{},
		&CampusProximityConverter{MaxGapMinutes: 20},
	}
}

// Builder CP模型构建器
type Builder struct {
	problem *model.SchedulingProblem
	tables  *lookup.Tables
	opts    BuildOptions
	logger  *logger.SchedulerLogger
}

// NewBuilder 创建构建器
func NewBuilder(tables *lookup.Tables, opts BuildOptions) *Builder {
	if opts.Level == 0 {
		opts.Level = model.LevelStandard
	}
	if opts.Converters == nil {
		opts.Converters = DefaultConverters()
	}
	return &Builder{
		problem: tables.Problem(),
		tables:  tables,
		opts:    opts,
		logger:  logger.NewSchedulerLogger().Named("cp_builder"),
	}
}

func (b *Builder) enabled(f Family) bool {
	return !b.opts.Disabled[f]
}

// Build 构建模型
// 有教学班找不到任何候选教室时返回容量不足错误，模型仍会返回以便诊断
func (b *Builder) Build() (*Model, error) {
	p := b.problem
	m := NewModel(b.opts.Level)

	b.createVariables(m)
	if len(m.infeasible) > 0 {
		var ids []int
		var reasons []string
		for _, d := range m.infeasible {
			ids = append(ids, d.SectionIDs...)
			reasons = append(reasons, d.Message)
		}
		return m, apperrors.CapacityShortfall(ids).WithReasons(reasons...)
	}

	b.addCore(m)
	if b.opts.Level >= model.LevelBasic {
		b.addBasic(m)
	}
	if b.opts.Level >= model.LevelStandard {
		b.addStandard(m)
	}
	if b.opts.Level >= model.LevelComplete && b.enabled(FamilyConverter) {
		for _, c := range b.opts.Converters {
			c.Apply(m, p)
		}
	}

	b.logger.ModelBuilt(b.opts.Level.String(), m.NumVars(), m.NumConstraints())
	return m, nil
}

// createVariables 预筛后创建变量并写入目标系数
func (b *Builder) createVariables(m *Model) {
	p := b.problem
	for si := range p.Sections {
		sec := &p.Sections[si]
		rooms := b.tables.CapacityRooms(si)
		if b.opts.RelaxCapacityFilter {
			rooms = allPositions(len(p.Classrooms))
		}
		if len(rooms) == 0 {
			m.infeasible = append(m.infeasible, Diagnostic{
				Code:       apperrors.CodeCapacityShortfall,
				Family:     FamilyCapacity,
				Message:    fmt.Sprintf("教学班 %d（%d 人）没有容量足够的教室", sec.ID, sec.Enrollment),
				SectionIDs: []int{sec.ID},
			})
			continue
		}
		teachers := b.tables.QualifiedTeachers(si)
		for ti := range p.TimeSlots {
			slot := &p.TimeSlots[ti]
			for _, ri := range rooms {
				room := &p.Classrooms[ri]
				for _, fi := range teachers {
					teacher := &p.Teachers[fi]
					k := VarKey{Section: sec.ID, TimeSlot: slot.ID, Classroom: room.ID, Teacher: teacher.ID}
					v := m.NewBoolVar(k)
					m.SetObjective(v, AssignmentWeight(p, sec, teacher.ID, room, slot.ID))
				}
			}
		}
	}
}

// addCore 每个教学班恰好一次；教师、教室同时段至多一门
func (b *Builder) addCore(m *Model) {
	p := b.problem
	for _, sec := range p.Sections {
		m.AddExactlyOne(fmt.Sprintf("assign_s%d", sec.ID), FamilyAssignment, m.SectionVars(sec.ID))
	}

	type resSlot struct{ res, slot int }
	byTeacher := make(map[resSlot][]int)
	byRoom := make(map[resSlot][]int)
	for v, k := range m.Keys() {
		byTeacher[resSlot{k.Teacher, k.TimeSlot}] = append(byTeacher[resSlot{k.Teacher, k.TimeSlot}], v)
		byRoom[resSlot{k.Classroom, k.TimeSlot}] = append(byRoom[resSlot{k.Classroom, k.TimeSlot}], v)
	}
	for _, ts := range p.TimeSlots {
		for _, t := range p.Teachers {
			m.AddAtMostOne(fmt.Sprintf("teacher_f%d_t%d", t.ID, ts.ID), FamilyTeacherClash, byTeacher[resSlot{t.ID, ts.ID}])
		}
		for _, r := range p.Classrooms {
			m.AddAtMostOne(fmt.Sprintf("room_r%d_t%d", r.ID, ts.ID), FamilyRoomClash, byRoom[resSlot{r.ID, ts.ID}])
		}
	}
}

// addBasic 容量与先修
func (b *Builder) addBasic(m *Model) {
	p := b.problem
	if b.enabled(FamilyCapacity) {
		for _, sec := range p.Sections {
			var over []int
			for _, v := range m.SectionVars(sec.ID) {
				room := p.Classroom(m.Key(v).Classroom)
				if room.Capacity < sec.Enrollment {
					over = append(over, v)
				}
			}
			m.ForbidAll(fmt.Sprintf("capacity_s%d", sec.ID), FamilyCapacity, over)
		}
	}

	if b.enabled(FamilyPrerequisite) {
		for _, pair := range p.PrerequisitePairs() {
			a, c := p.Sections[pair[0]].ID, p.Sections[pair[1]].ID
			bySlot := make(map[int][]int)
			for _, v := range m.SectionVars(a) {
				bySlot[m.Key(v).TimeSlot] = append(bySlot[m.Key(v).TimeSlot], v)
			}
			for _, v := range m.SectionVars(c) {
				bySlot[m.Key(v).TimeSlot] = append(bySlot[m.Key(v).TimeSlot], v)
			}
			for _, ts := range p.TimeSlots {
				m.AddAtMostOne(fmt.Sprintf("prereq_s%d_s%d_t%d", a, c, ts.ID), FamilyPrerequisite, bySlot[ts.ID])
			}
		}
	}
}

// addStandard 教师、教室显式不可用
func (b *Builder) addStandard(m *Model) {
	p := b.problem
	teacherOff := make(map[[2]int][]int)
	roomOff := make(map[[2]int][]int)
	for v, k := range m.Keys() {
		if !p.TeacherAvailable(k.Teacher, k.TimeSlot) {
			teacherOff[[2]int{k.Teacher, k.TimeSlot}] = append(teacherOff[[2]int{k.Teacher, k.TimeSlot}], v)
		}
		if !p.ClassroomAvailable(k.Classroom, k.TimeSlot) {
			roomOff[[2]int{k.Classroom, k.TimeSlot}] = append(roomOff[[2]int{k.Classroom, k.TimeSlot}], v)
		}
	}
	for _, a := range p.TeacherAvailability {
		key := [2]int{a.TeacherID, a.TimeSlotID}
		if b.enabled(FamilyTeacherAvailability) {
			m.ForbidAll(fmt.Sprintf("teacher_off_f%d_t%d", key[0], key[1]), FamilyTeacherAvailability, teacherOff[key])
		}
		delete(teacherOff, key)
	}
	for _, a := range p.ClassroomAvailability {
		key := [2]int{a.ClassroomID, a.TimeSlotID}
		if b.enabled(FamilyClassroomAvailability) {
			m.ForbidAll(fmt.Sprintf("room_off_r%d_t%d", key[0], key[1]), FamilyClassroomAvailability, roomOff[key])
		}
		delete(roomOff, key)
	}
}

func allPositions(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
