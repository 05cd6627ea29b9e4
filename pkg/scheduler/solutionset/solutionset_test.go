package solutionset

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/paiban/kebiao/pkg/model"
)

func newTestProblem() *model.SchedulingProblem {
	p := model.NewSchedulingProblem("solutionset")
	p.Sections = []model.CourseSection{{ID: 1, CourseID: 11}, {ID: 2, CourseID: 12}, {ID: 3, CourseID: 13}}
	p.Teachers = []model.Teacher{{ID: 1}, {ID: 2}}
	p.Classrooms = []model.Classroom{{ID: 1, Capacity: 40}, {ID: 2, Capacity: 40}}
	p.TimeSlots = []model.TimeSlot{
		{ID: 1, DayOfWeek: 1, Start: model.NewClock(8, 0), End: model.NewClock(9, 40)},
		{ID: 2, DayOfWeek: 1, Start: model.NewClock(10, 0), End: model.NewClock(11, 40)},
	}
	return p
}

func solution(p *model.SchedulingProblem, score float64, feasible bool, rows ...[4]int) *model.SchedulingSolution {
	s := model.NewSolution(p, "test")
	for _, r := range rows {
		s.Assign(model.NewAssignment(p, r[0], r[1], r[2], r[3]))
	}
	s.Evaluation = &model.SchedulingEvaluation{Score: score, HardScore: 1, IsFeasible: feasible}
	return s
}

func TestCompareSolutions(t *testing.T) {
	p := newTestProblem()
	left := solution(p, 0.5, true, [4]int{1, 1, 1, 1}, [4]int{2, 2, 2, 1})
	right := solution(p, 0.7, true, [4]int{1, 1, 1, 1}, [4]int{3, 2, 2, 2})

	c := CompareSolutions(left, right)
	var kinds []DiffKind
	for _, d := range c.Sections {
		kinds = append(kinds, d.Kind)
	}
	want := []DiffKind{DiffIdentical, DiffOnlyLeft, DiffOnlyRight}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("差异类型 (-want +got):\n%s", diff)
	}
	if c.Identical != 1 || c.OnlyLeft != 1 || c.OnlyRight != 1 || c.Different != 0 {
		t.Errorf("计数错误: %+v", c)
	}
	if math.Abs(c.Difference-200.0/3) > 1e-9 {
		t.Errorf("Difference = %v", c.Difference)
	}
	if math.Abs(c.ScoreDelta-0.2) > 1e-9 {
		t.Errorf("ScoreDelta = %v", c.ScoreDelta)
	}

	moved := solution(p, 0.5, true, [4]int{1, 1, 1, 2}, [4]int{2, 2, 2, 1})
	c = CompareSolutions(left, moved)
	if c.Different != 1 || c.Identical != 1 || c.Difference != 50 {
		t.Errorf("换时间段: %+v", c)
	}
}

func TestPairwiseDiversity(t *testing.T) {
	p := newTestProblem()
	a := solution(p, 0, true, [4]int{1, 1, 1, 1}, [4]int{2, 2, 2, 1})
	b := solution(p, 0, true, [4]int{1, 1, 1, 1}, [4]int{2, 2, 2, 2})

	if d := PairwiseDiversity(a, a); d != 0 {
		t.Errorf("同一课表距离 = %v", d)
	}
	// 交集 1，并集 3
	if d := PairwiseDiversity(a, b); math.Abs(d-2.0/3) > 1e-9 {
		t.Errorf("距离 = %v, want 2/3", d)
	}
}

func TestManager(t *testing.T) {
	p := newTestProblem()
	m := NewManager(p, "test")
	if m.Primary() != nil {
		t.Error("空集合不应有主方案")
	}

	low := solution(p, 0.4, true, [4]int{1, 1, 1, 1}, [4]int{2, 2, 2, 1})
	high := solution(p, 0.9, true, [4]int{1, 1, 1, 2}, [4]int{2, 2, 2, 2})
	infeasible := solution(p, 1.0, false, [4]int{1, 1, 1, 1}, [4]int{2, 1, 1, 1})

	m.Add(low)
	if m.Primary() != low {
		t.Error("第一个课表应为主方案")
	}
	if !m.AddDiverse(high, 0.5) {
		t.Fatal("完全不同的课表应被接受")
	}
	dup := solution(p, 0.3, true, [4]int{1, 1, 1, 1}, [4]int{2, 2, 2, 1})
	if m.AddDiverse(dup, 0.2) {
		t.Error("重复课表不应被接受")
	}
	m.Add(infeasible)

	set := m.Set()
	if set.HighScore != 1.0 || set.LowScore != 0.4 {
		t.Errorf("High/Low = %v/%v", set.HighScore, set.LowScore)
	}
	if math.Abs(set.AverageScore-(0.4+0.9+1.0)/3) > 1e-9 {
		t.Errorf("AverageScore = %v", set.AverageScore)
	}
	if set.Diversity <= 0 || set.Diversity > 100 {
		t.Errorf("Diversity = %v", set.Diversity)
	}

	ranked := m.Ranked()
	got := []uuid.UUID{ranked[0].ID, ranked[1].ID, ranked[2].ID}
	want := []uuid.UUID{high.ID, low.ID, infeasible.ID}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("可行课表应排在不可行课表之前 (-want +got):\n%s", diff)
	}

	if m.SetPrimary(uuid.New()) {
		t.Error("未知 id 不能设为主方案")
	}
	if !m.SetPrimary(infeasible.ID) || m.Primary() != infeasible {
		t.Error("SetPrimary 未生效")
	}
	if best := m.PromoteBest(); best != high || m.Primary() != high {
		t.Error("PromoteBest 应选适应度最高的课表")
	}
}

func TestDiversityEdgeCases(t *testing.T) {
	p := newTestProblem()
	if d := Diversity(nil); d != 0 {
		t.Errorf("Diversity(nil) = %v", d)
	}
	one := solution(p, 0, true, [4]int{1, 1, 1, 1})
	if d := Diversity([]*model.SchedulingSolution{one}); d != 0 {
		t.Errorf("单个课表 = %v", d)
	}
	two := solution(p, 0, true, [4]int{1, 2, 2, 2})
	if d := Diversity([]*model.SchedulingSolution{one, two}); d != 100 {
		t.Errorf("完全不同 = %v, want 100", d)
	}
}
