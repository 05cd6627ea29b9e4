package cp

import (
	"fmt"
	"sort"

	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/model"
)

// ToAssignment 把变量键还原成排课分配
// 时间段、教室、教学班、教师必须都存在于问题中
func ToAssignment(p *model.SchedulingProblem, k VarKey) (model.SchedulingAssignment, error) {
	if p.TimeSlot(k.TimeSlot) == nil {
		return model.SchedulingAssignment{}, malformedKey(k, "时间段不存在")
	}
	if p.Classroom(k.Classroom) == nil {
		return model.SchedulingAssignment{}, malformedKey(k, "教室不存在")
	}
	if p.Section(k.Section) == nil {
		return model.SchedulingAssignment{}, malformedKey(k, "教学班不存在")
	}
	if p.Teacher(k.Teacher) == nil {
		return model.SchedulingAssignment{}, malformedKey(k, "教师不存在")
	}
	return model.NewAssignment(p, k.Section, k.Teacher, k.Classroom, k.TimeSlot), nil
}

// ToSolution 把模型取值转换为课表，取值为假的变量直接跳过
func ToSolution(p *model.SchedulingProblem, m *Model, values []bool, algorithm string) (*model.SchedulingSolution, error) {
	if len(values) > m.NumVars() {
		return nil, apperrors.New(apperrors.CodeInternal, fmt.Sprintf("取值个数 %d 超过变量数 %d", len(values), m.NumVars()))
	}
	keys := make([]VarKey, 0, len(p.Sections))
	for v, on := range values {
		if on {
			keys = append(keys, m.Key(v))
		}
	}
	return FromKeys(p, keys, algorithm)
}

// FromKeys 由一组为真的变量键构造课表
func FromKeys(p *model.SchedulingProblem, keys []VarKey, algorithm string) (*model.SchedulingSolution, error) {
	s := model.NewSolution(p, algorithm)
	for _, k := range keys {
		a, err := ToAssignment(p, k)
		if err != nil {
			return nil, err
		}
		if _, dup := s.Get(k.Section); dup {
			return nil, malformedKey(k, "教学班被重复分配")
		}
		s.Assign(a)
	}
	return s, nil
}

// ToKeys 课表对应的变量键，按键排序
func ToKeys(s *model.SchedulingSolution) []VarKey {
	assignments := s.Assignments()
	keys := make([]VarKey, len(assignments))
	for i, a := range assignments {
		keys[i] = VarKey{Section: a.SectionID, TimeSlot: a.TimeSlotID, Classroom: a.ClassroomID, Teacher: a.TeacherID}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// ToValues 课表在模型上的取值，分配不在模型变量中时返回错误
func ToValues(m *Model, s *model.SchedulingSolution) ([]bool, error) {
	values := make([]bool, m.NumVars())
	for _, k := range ToKeys(s) {
		v, ok := m.Var(k)
		if !ok {
			return nil, malformedKey(k, "不是模型变量")
		}
		values[v] = true
	}
	return values, nil
}

func malformedKey(k VarKey, reason string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeInternal, fmt.Sprintf("变量 %s 无效: %s", k, reason)).
		WithField("key", k.String())
}
