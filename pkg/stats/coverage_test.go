package stats

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/paiban/kebiao/pkg/model"
)

func TestAnalyzer_Analyze(t *testing.T) {
	p := newTestProblem()
	s := assign(p, [4]int{1, 1, 1, 1}, [4]int{2, 2, 2, 1}, [4]int{3, 1, 1, 3})

	st := NewAnalyzer().Analyze(s)
	if st.TotalSections != 3 || st.AssignedSections != 3 {
		t.Errorf("sections = %d/%d", st.AssignedSections, st.TotalSections)
	}
	// 3 个 (教室, 时间段) 组合 / 2*4
	if math.Abs(st.ClassroomUtilization-37.5) > 1e-9 {
		t.Errorf("ClassroomUtilization = %v", st.ClassroomUtilization)
	}
	if math.Abs(st.TeacherUtilization-200.0/3) > 1e-9 {
		t.Errorf("TeacherUtilization = %v", st.TeacherUtilization)
	}
	if st.TimeSlotUtilization != 50 {
		t.Errorf("TimeSlotUtilization = %v", st.TimeSlotUtilization)
	}
	// (30 + 20 + 40) / 40 / 3
	if math.Abs(st.AverageRoomFill-75) > 1e-9 {
		t.Errorf("AverageRoomFill = %v", st.AverageRoomFill)
	}

	wantHours := map[int]float64{1: 4, 2: 2, 3: 0}
	if diff := cmp.Diff(wantHours, st.TeacherHours); diff != "" {
		t.Errorf("TeacherHours (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[int]int{1: 2, 2: 1}, st.AssignmentsPerDay); diff != "" {
		t.Errorf("AssignmentsPerDay (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1}, st.PeakTimeSlots); diff != "" {
		t.Errorf("PeakTimeSlots (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2, 4}, st.LowTimeSlots); diff != "" {
		t.Errorf("LowTimeSlots (-want +got):\n%s", diff)
	}
	if st.WorkloadStdDev <= 0 {
		t.Errorf("WorkloadStdDev = %v", st.WorkloadStdDev)
	}
	if st.ConflictsBySeverity != nil {
		t.Error("未评估的课表不应统计冲突")
	}
}

func TestAnalyzer_Conflicts(t *testing.T) {
	p := newTestProblem()
	s := assign(p, [4]int{1, 1, 1, 1})
	s.Evaluation = &model.SchedulingEvaluation{Conflicts: []model.SchedulingConflict{
		model.NewConflict(model.ConflictTeacher, model.SeverityCritical, "a"),
		model.NewConflict(model.ConflictMobility, model.SeverityMinor, "b"),
		model.NewConflict(model.ConflictTeacher, model.SeverityCritical, "c"),
	}}
	st := NewAnalyzer().Analyze(s)
	want := map[string]int{string(model.SeverityCritical): 2, string(model.SeverityMinor): 1}
	if diff := cmp.Diff(want, st.ConflictsBySeverity); diff != "" {
		t.Errorf("ConflictsBySeverity (-want +got):\n%s", diff)
	}
}

func TestPeakAndLow(t *testing.T) {
	tests := []struct {
		name     string
		loads    []SlotLoad
		wantPeak []int
		wantLow  []int
	}{
		{"空", nil, nil, nil},
		{"全部相同", []SlotLoad{{TimeSlotID: 1, Count: 2}, {TimeSlotID: 2, Count: 2}}, nil, nil},
		{"一高一低", []SlotLoad{{TimeSlotID: 2, Count: 3}, {TimeSlotID: 1, Count: 1}, {TimeSlotID: 3, Count: 2}}, []int{2}, []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peak, low := peakAndLow(tt.loads)
			if diff := cmp.Diff(tt.wantPeak, peak); diff != "" {
				t.Errorf("peak (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantLow, low); diff != "" {
				t.Errorf("low (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGenerateReport(t *testing.T) {
	p := newTestProblem()
	st := NewAnalyzer().Analyze(assign(p, [4]int{1, 1, 1, 1}, [4]int{2, 2, 2, 2}))
	report := GenerateReport(st)
	for _, want := range []string{"课表统计报告", "2/3 已安排", "教师 1: 2.0 小时", "公平性评分", "高峰时间段"} {
		if !strings.Contains(report, want) {
			t.Errorf("报告缺少 %q:\n%s", want, report)
		}
	}
}
