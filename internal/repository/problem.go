package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/paiban/kebiao/internal/database"
	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/model"
)

// ProblemRepository 排课问题仓储
type ProblemRepository struct {
	db *database.DB
}

// NewProblemRepository 创建排课问题仓储
func NewProblemRepository(db *database.DB) *ProblemRepository {
	return &ProblemRepository{db: db}
}

type problemRow struct {
	ID   uuid.UUID `db:"id"`
	Name string    `db:"name"`
	Term string    `db:"term"`
}

type sectionRow struct {
	ID                int            `db:"id"`
	CourseID          int            `db:"course_id"`
	Code              string         `db:"code"`
	Name              string         `db:"name"`
	Enrollment        int            `db:"enrollment"`
	RequiredRoomType  string         `db:"required_room_type"`
	RequiredEquipment pq.StringArray `db:"required_equipment"`
}

type classroomRow struct {
	ID        int            `db:"id"`
	Name      string         `db:"name"`
	Capacity  int            `db:"capacity"`
	Building  string         `db:"building"`
	Campus    string         `db:"campus"`
	Type      string         `db:"type"`
	Equipment pq.StringArray `db:"equipment"`
}

type timeSlotRow struct {
	ID        int    `db:"id"`
	DayOfWeek int    `db:"day_of_week"`
	StartTime string `db:"start_time"`
	EndTime   string `db:"end_time"`
}

const (
	selectProblem = `SELECT id, name, term FROM scheduling_problems WHERE id = $1`

	selectSections = `SELECT id, course_id, code, name, enrollment, required_room_type, required_equipment
FROM course_sections WHERE problem_id = $1 ORDER BY id`

	selectTeachers = `SELECT id, name, department, max_weekly_hours, max_daily_hours, max_consecutive_hours
FROM teachers WHERE problem_id = $1 ORDER BY id`

	selectClassrooms = `SELECT id, name, capacity, building, campus, type, equipment
FROM classrooms WHERE problem_id = $1 ORDER BY id`

	selectTimeSlots = `SELECT id, day_of_week, to_char(start_time, 'HH24:MI') AS start_time, to_char(end_time, 'HH24:MI') AS end_time
FROM time_slots WHERE problem_id = $1 ORDER BY id`

	selectPreferences = `SELECT teacher_id, course_id, proficiency_level, preference_level
FROM teacher_course_preferences WHERE problem_id = $1 ORDER BY teacher_id, course_id`

	selectTeacherAvailability = `SELECT teacher_id, time_slot_id, is_available, preference_level
FROM teacher_availability WHERE problem_id = $1 ORDER BY teacher_id, time_slot_id`

	selectClassroomAvailability = `SELECT classroom_id, time_slot_id, is_available, reason
FROM classroom_availability WHERE problem_id = $1 ORDER BY classroom_id, time_slot_id`

	selectPrerequisites = `SELECT course_id, prerequisite_course_id, is_mandatory
FROM course_prerequisites WHERE problem_id = $1 ORDER BY course_id, prerequisite_course_id`
)

// Load 读取完整的排课问题，不存在时返回 NOT_FOUND
func (r *ProblemRepository) Load(ctx context.Context, id uuid.UUID) (*model.SchedulingProblem, error) {
	var head problemRow
	if err := r.db.GetContext(ctx, &head, selectProblem, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("排课问题", id.String())
		}
		return nil, dbError("查询排课问题", err)
	}

	p := model.NewSchedulingProblem(head.Name)
	p.ID = head.ID
	p.Term = head.Term

	var sections []sectionRow
	if err := r.db.SelectContext(ctx, &sections, selectSections, id); err != nil {
		return nil, dbError("查询教学班", err)
	}
	for _, s := range sections {
		p.Sections = append(p.Sections, model.CourseSection{
			ID:                s.ID,
			CourseID:          s.CourseID,
			Code:              s.Code,
			Name:              s.Name,
			Enrollment:        s.Enrollment,
			RequiredRoomType:  model.RoomType(s.RequiredRoomType),
			RequiredEquipment: []string(s.RequiredEquipment),
		})
	}

	if err := r.db.SelectContext(ctx, &p.Teachers, selectTeachers, id); err != nil {
		return nil, dbError("查询教师", err)
	}

	var rooms []classroomRow
	if err := r.db.SelectContext(ctx, &rooms, selectClassrooms, id); err != nil {
		return nil, dbError("查询教室", err)
	}
	for _, c := range rooms {
		p.Classrooms = append(p.Classrooms, model.Classroom{
			ID:        c.ID,
			Name:      c.Name,
			Capacity:  c.Capacity,
			Building:  c.Building,
			Campus:    c.Campus,
			Type:      model.RoomType(c.Type),
			Equipment: []string(c.Equipment),
		})
	}

	var slots []timeSlotRow
	if err := r.db.SelectContext(ctx, &slots, selectTimeSlots, id); err != nil {
		return nil, dbError("查询时间段", err)
	}
	for _, s := range slots {
		start, err := model.ParseClock(s.StartTime)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, fmt.Sprintf("时间段 %d 开始时间无效", s.ID))
		}
		end, err := model.ParseClock(s.EndTime)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, fmt.Sprintf("时间段 %d 结束时间无效", s.ID))
		}
		p.TimeSlots = append(p.TimeSlots, model.TimeSlot{ID: s.ID, DayOfWeek: s.DayOfWeek, Start: start, End: end})
	}

	if err := r.db.SelectContext(ctx, &p.TeacherPreferences, selectPreferences, id); err != nil {
		return nil, dbError("查询教师偏好", err)
	}
	if err := r.db.SelectContext(ctx, &p.TeacherAvailability, selectTeacherAvailability, id); err != nil {
		return nil, dbError("查询教师可用性", err)
	}
	if err := r.db.SelectContext(ctx, &p.ClassroomAvailability, selectClassroomAvailability, id); err != nil {
		return nil, dbError("查询教室可用性", err)
	}
	if err := r.db.SelectContext(ctx, &p.CoursePrerequisites, selectPrerequisites, id); err != nil {
		return nil, dbError("查询先修关系", err)
	}

	p.Reindex()
	return p, nil
}

func dbError(op string, err error) *apperrors.AppError {
	return apperrors.Wrap(err, apperrors.CodeDatabaseError, op+"失败")
}
