package lookup

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/paiban/kebiao/pkg/model"
)

func newProblem() *model.SchedulingProblem {
	p := model.NewSchedulingProblem("lookup")
	p.Sections = []model.CourseSection{
		{ID: 1, CourseID: 11, Enrollment: 40, RequiredRoomType: model.RoomClassroom},
		{ID: 2, CourseID: 12, Enrollment: 25, RequiredRoomType: model.RoomComputerLab},
		{ID: 3, CourseID: 13, Enrollment: 100},
	}
	p.Teachers = []model.Teacher{{ID: 1}, {ID: 2}, {ID: 3}}
	p.Classrooms = []model.Classroom{
		{ID: 1, Capacity: 45, Type: model.RoomClassroom},
		{ID: 2, Capacity: 30, Type: model.RoomLab},
		{ID: 3, Capacity: 60, Type: model.RoomLectureHall},
	}
	p.TimeSlots = []model.TimeSlot{{ID: 1, DayOfWeek: 1, Start: model.NewClock(8, 0), End: model.NewClock(9, 40)}}
	p.TeacherPreferences = []model.TeacherCoursePreference{
		{TeacherID: 1, CourseID: 11, ProficiencyLevel: 5},
		{TeacherID: 2, CourseID: 11, ProficiencyLevel: 2},
		{TeacherID: 3, CourseID: 12, ProficiencyLevel: 3},
	}
	return p
}

func TestBuildRooms(t *testing.T) {
	tb := Build(newProblem(), 0)

	tests := []struct {
		name         string
		section      int
		wantCapacity []int
		wantSuitable []int
	}{
		{"普通教室需求", 0, []int{0, 2}, []int{0, 2}},
		{"机房需求只接受实验类", 1, []int{0, 1, 2}, []int{1}},
		{"没有足够大的教室", 2, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.wantCapacity, tb.CapacityRooms(tt.section)); diff != "" {
				t.Errorf("CapacityRooms mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantSuitable, tb.SuitableRooms(tt.section)); diff != "" {
				t.Errorf("SuitableRooms mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if !tb.RoomSuitable(1, 1) || tb.RoomSuitable(1, 0) {
		t.Error("RoomSuitable 与 SuitableRooms 不一致")
	}
	if diff := cmp.Diff([]int{3}, tb.RoomsShortfall()); diff != "" {
		t.Errorf("RoomsShortfall mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildTeachers(t *testing.T) {
	tb := Build(newProblem(), 3)

	if got := tb.MinProficiency(); got != 3 {
		t.Errorf("MinProficiency = %d, want 3", got)
	}
	if diff := cmp.Diff([]int{0}, tb.QualifiedTeachers(0)); diff != "" {
		t.Errorf("课程11合格教师 mismatch (-want +got):\n%s", diff)
	}
	if tb.UsedFallback(0) {
		t.Error("课程11不应回退")
	}
	if diff := cmp.Diff([]int{2}, tb.QualifiedTeachers(1)); diff != "" {
		t.Errorf("课程12合格教师 mismatch (-want +got):\n%s", diff)
	}

	// 课程13无人有记录，回退为全部教师
	if !tb.UsedFallback(2) {
		t.Error("课程13应回退为全部教师")
	}
	if diff := cmp.Diff([]int{0, 1, 2}, tb.QualifiedTeachers(2)); diff != "" {
		t.Errorf("回退教师 mismatch (-want +got):\n%s", diff)
	}
	for ti := 0; ti < 3; ti++ {
		if !tb.TeacherQualified(2, ti) {
			t.Errorf("回退后教师 %d 应合格", ti)
		}
	}
	if tb.TeacherQualified(0, 1) {
		t.Error("熟练度 2 的教师不应合格")
	}
}

func TestStale(t *testing.T) {
	p := newProblem()
	tb := Build(p, 0)
	if tb.Stale() {
		t.Fatal("新建的查找表不应过期")
	}
	p.Classrooms = append(p.Classrooms, model.Classroom{ID: 4, Capacity: 200})
	p.Reindex()
	if !tb.Stale() {
		t.Error("Reindex 后查找表应过期")
	}
}

func TestCapacityFit(t *testing.T) {
	tests := []struct {
		name       string
		enrollment int
		capacity   int
		want       int
	}{
		{"超员", 50, 40, 0},
		{"满员", 40, 40, 5},
		{"85%", 34, 40, 5},
		{"75%", 30, 40, 4},
		{"50%", 20, 40, 3},
		{"30%", 12, 40, 2},
		{"很空", 5, 40, 1},
		{"无效容量", 5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CapacityFit(tt.enrollment, tt.capacity); got != tt.want {
				t.Errorf("CapacityFit(%d, %d) = %d, want %d", tt.enrollment, tt.capacity, got, tt.want)
			}
		})
	}
}

func TestRoomTypeScore(t *testing.T) {
	tests := []struct {
		name     string
		required model.RoomType
		actual   model.RoomType
		want     int
	}{
		{"无要求", "", model.RoomLab, 5},
		{"完全匹配", model.RoomLab, model.RoomLab, 5},
		{"同类", model.RoomLab, model.RoomComputerLab, 3},
		{"不兼容", model.RoomLab, model.RoomClassroom, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoomTypeScore(tt.required, tt.actual); got != tt.want {
				t.Errorf("RoomTypeScore = %d, want %d", got, tt.want)
			}
		})
	}
}
