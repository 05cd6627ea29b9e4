// Package validator 提供排课问题与课表的校验
package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/model"
)

// ProblemValidator 求解前的输入校验
type ProblemValidator struct {
	validate *validator.Validate
}

// NewProblemValidator 创建校验器，validate 为 nil 时新建
func NewProblemValidator(validate *validator.Validate) *ProblemValidator {
	if validate == nil {
		validate = validator.New()
	}
	return &ProblemValidator{validate: validate}
}

// ValidateProblem 使用默认校验器检查问题
func ValidateProblem(p *model.SchedulingProblem) error {
	return NewProblemValidator(nil).Validate(p)
}

// Validate 检查实体字段与关系表引用，有错误时返回 VALIDATION_FAILED
func (v *ProblemValidator) Validate(p *model.SchedulingProblem) error {
	if p == nil {
		return apperrors.InvalidInput("problem", "不能为空")
	}
	ve := &apperrors.ValidationErrors{}

	if len(p.Sections) == 0 {
		ve.Add("sections", "至少需要一个教学班")
	}
	if len(p.Teachers) == 0 {
		ve.Add("teachers", "至少需要一位教师")
	}
	if len(p.Classrooms) == 0 {
		ve.Add("classrooms", "至少需要一间教室")
	}
	if len(p.TimeSlots) == 0 {
		ve.Add("time_slots", "至少需要一个时间段")
	}

	sections := make(map[int]bool)
	for i, s := range p.Sections {
		field := fmt.Sprintf("sections[%d]", i)
		v.checkStruct(ve, field, s)
		if sections[s.ID] {
			ve.Add(field, fmt.Sprintf("教学班 %d 重复", s.ID))
		}
		sections[s.ID] = true
	}
	teachers := make(map[int]bool)
	for i, t := range p.Teachers {
		field := fmt.Sprintf("teachers[%d]", i)
		v.checkStruct(ve, field, t)
		if teachers[t.ID] {
			ve.Add(field, fmt.Sprintf("教师 %d 重复", t.ID))
		}
		teachers[t.ID] = true
	}
	rooms := make(map[int]bool)
	for i, c := range p.Classrooms {
		field := fmt.Sprintf("classrooms[%d]", i)
		v.checkStruct(ve, field, c)
		if rooms[c.ID] {
			ve.Add(field, fmt.Sprintf("教室 %d 重复", c.ID))
		}
		rooms[c.ID] = true
	}
	slots := make(map[int]bool)
	for i, ts := range p.TimeSlots {
		field := fmt.Sprintf("time_slots[%d]", i)
		v.checkStruct(ve, field, ts)
		if slots[ts.ID] {
			ve.Add(field, fmt.Sprintf("时间段 %d 重复", ts.ID))
		}
		slots[ts.ID] = true
	}

	for i, pr := range p.TeacherPreferences {
		field := fmt.Sprintf("teacher_preferences[%d]", i)
		v.checkStruct(ve, field, pr)
		if !teachers[pr.TeacherID] {
			ve.Add(field, fmt.Sprintf("引用了不存在的教师 %d", pr.TeacherID))
		}
	}
	for i, a := range p.TeacherAvailability {
		field := fmt.Sprintf("teacher_availability[%d]", i)
		if !teachers[a.TeacherID] {
			ve.Add(field, fmt.Sprintf("引用了不存在的教师 %d", a.TeacherID))
		}
		if !slots[a.TimeSlotID] {
			ve.Add(field, fmt.Sprintf("引用了不存在的时间段 %d", a.TimeSlotID))
		}
	}
	for i, a := range p.ClassroomAvailability {
		field := fmt.Sprintf("classroom_availability[%d]", i)
		if !rooms[a.ClassroomID] {
			ve.Add(field, fmt.Sprintf("引用了不存在的教室 %d", a.ClassroomID))
		}
		if !slots[a.TimeSlotID] {
			ve.Add(field, fmt.Sprintf("引用了不存在的时间段 %d", a.TimeSlotID))
		}
	}
	// 课程不是独立实体，先修关系只检查自引用
	for i, pr := range p.CoursePrerequisites {
		if pr.CourseID == pr.PrerequisiteCourseID {
			ve.Add(fmt.Sprintf("course_prerequisites[%d]", i), fmt.Sprintf("课程 %d 不能以自身为先修", pr.CourseID))
		}
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

// checkStruct 按 validate 标签校验单个实体
func (v *ProblemValidator) checkStruct(ve *apperrors.ValidationErrors, field string, s interface{}) {
	err := v.validate.Struct(s)
	if err == nil {
		return
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		ve.Add(field, err.Error())
		return
	}
	for _, fe := range verrs {
		ve.Add(field+"."+fe.Field(), fmt.Sprintf("不满足规则 %s=%s (值 %v)", fe.Tag(), fe.Param(), fe.Value()))
	}
}
