package constraint

import (
	"math"
	"strings"
	"sync"
	"testing"

	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/model"
)

func TestManager_Register(t *testing.T) {
	manager := NewManager()

	c := &MockConstraint{id: "test", level: model.Level1CoreHard, hard: true}
	manager.Register(c)

	constraints := manager.GetAll()
	if len(constraints) != 1 {
		t.Errorf("Expected 1 constraint, got %d", len(constraints))
	}

	// 同ID重复注册应替换
	manager.Register(&MockConstraint{id: "test", level: model.Level4QualitySoft})
	if manager.Count() != 1 {
		t.Errorf("Expected replacement, got %d constraints", manager.Count())
	}
	if manager.Get("test").Level() != model.Level4QualitySoft {
		t.Error("Expected the replaced constraint to move to level 4")
	}
}

func TestManager_LevelOrder(t *testing.T) {
	manager := NewManager()
	manager.Register(&MockConstraint{id: "quality", level: model.Level4QualitySoft})
	manager.Register(&MockConstraint{id: "core", level: model.Level1CoreHard, hard: true})
	manager.Register(&MockConstraint{id: "physical", level: model.Level3PhysicalSoft})
	manager.Register(&MockConstraint{id: "physical_hard", level: model.Level3PhysicalSoft, hard: true})

	got := manager.GetAll()
	want := []string{"core", "physical_hard", "physical", "quality"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d constraints, got %d", len(want), len(got))
	}
	for i, c := range got {
		if c.ID() != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], c.ID())
		}
	}
}

func TestManager_GetByCategory(t *testing.T) {
	manager := NewManager()

	manager.Register(&MockConstraint{id: "hard1", level: model.Level1CoreHard, hard: true})
	manager.Register(&MockConstraint{id: "soft1", level: model.Level4QualitySoft})

	if n := len(manager.GetByCategory(CategoryHard)); n != 1 {
		t.Errorf("Expected 1 hard constraint, got %d", n)
	}
	if n := len(manager.GetByCategory(CategorySoft)); n != 1 {
		t.Errorf("Expected 1 soft constraint, got %d", n)
	}
	if n := len(manager.GetByLevel(model.Level1CoreHard)); n != 1 {
		t.Errorf("Expected 1 level-1 constraint, got %d", n)
	}
}

func TestManager_UnregisterAndClear(t *testing.T) {
	manager := NewManager()
	manager.Register(&MockConstraint{id: "a", level: model.Level1CoreHard, hard: true})
	manager.Register(&MockConstraint{id: "b", level: model.Level1CoreHard, hard: true})

	manager.Unregister("a")
	if manager.Count() != 1 || manager.Get("a") != nil {
		t.Error("Expected constraint a to be removed")
	}

	manager.Clear()
	if manager.Count() != 0 {
		t.Error("Expected 0 constraints after clear")
	}
}

func TestManager_Summary(t *testing.T) {
	manager := NewManager()
	manager.Register(&MockConstraint{id: "c1", level: model.Level1CoreHard, hard: true})
	manager.Register(&MockConstraint{id: "c2", level: model.Level3PhysicalSoft})

	s := manager.Summary()
	if s["total"] != 2 || s["hard"] != 1 || s["soft"] != 1 {
		t.Errorf("unexpected summary %v", s)
	}
}

func TestEvaluator_Evaluate(t *testing.T) {
	p := newTinyProblem()
	sol := model.NewSolution(p, "test")

	tests := []struct {
		name         string
		constraints  []*MockConstraint
		wantFeasible bool
		wantScore    float64
		wantHard     float64
	}{
		{
			name:         "没有约束",
			wantFeasible: true,
			wantScore:    1,
			wantHard:     1,
		},
		{
			name: "硬约束满足，软约束加权平均",
			constraints: []*MockConstraint{
				{id: "h", level: model.Level1CoreHard, hard: true, score: 1},
				{id: "s1", level: model.Level3PhysicalSoft, score: 1, weight: 1},
				{id: "s2", level: model.Level4QualitySoft, score: 0.5, weight: 3},
			},
			wantFeasible: true,
			wantScore:    (1*1 + 0.5*3) / 4.0,
			wantHard:     1,
		},
		{
			name: "硬约束未满足",
			constraints: []*MockConstraint{
				{id: "h", level: model.Level1CoreHard, hard: true, score: 0.5},
				{id: "s", level: model.Level4QualitySoft, score: 1},
			},
			wantFeasible: false,
			wantScore:    1,
			wantHard:     0.5,
		},
		{
			name: "等级计分的硬约束只看冲突",
			constraints: []*MockConstraint{
				{id: "cap", level: model.Level3PhysicalSoft, hard: true, score: 0.8, graded: true},
			},
			wantFeasible: true,
			wantScore:    1,
			wantHard:     0.8,
		},
		{
			name: "分数越界被截断",
			constraints: []*MockConstraint{
				{id: "s", level: model.Level4QualitySoft, score: 1.7},
			},
			wantFeasible: true,
			wantScore:    1,
			wantHard:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager()
			for _, c := range tt.constraints {
				m.Register(c)
			}
			eval := NewEvaluator(m, DefaultWeights(), 1).Evaluate(sol)
			if eval.IsFeasible != tt.wantFeasible {
				t.Errorf("IsFeasible = %v, want %v", eval.IsFeasible, tt.wantFeasible)
			}
			if math.Abs(eval.Score-tt.wantScore) > 1e-9 {
				t.Errorf("Score = %v, want %v", eval.Score, tt.wantScore)
			}
			if math.Abs(eval.HardScore-tt.wantHard) > 1e-9 {
				t.Errorf("HardScore = %v, want %v", eval.HardScore, tt.wantHard)
			}
			if len(eval.ConstraintEvaluations) != len(tt.constraints) {
				t.Errorf("Expected %d constraint evaluations, got %d", len(tt.constraints), len(eval.ConstraintEvaluations))
			}
		})
	}
}

func TestEvaluator_CategoryWeights(t *testing.T) {
	p := newTinyProblem()
	sol := model.NewSolution(p, "test")

	m := NewManager()
	m.Register(&MockConstraint{id: "phys", level: model.Level3PhysicalSoft, score: 1, weight: 1})
	m.Register(&MockConstraint{id: "qual", level: model.Level4QualitySoft, score: 0, weight: 1})

	w := DefaultWeights()
	w.Physical = 3
	eval := NewEvaluator(m, w, 1).Evaluate(sol)
	if math.Abs(eval.Score-0.75) > 1e-9 {
		t.Errorf("Score = %v, want 0.75", eval.Score)
	}
}

func TestEvaluator_PanicBecomesConflict(t *testing.T) {
	p := newTinyProblem()
	sol := model.NewSolution(p, "test")

	m := NewManager()
	m.Register(&MockConstraint{id: "boom", level: model.Level1CoreHard, hard: true, panics: true})
	m.Register(&MockConstraint{id: "ok", level: model.Level4QualitySoft, score: 1})

	eval := NewEvaluator(m, DefaultWeights(), 1).Evaluate(sol)
	if eval.IsFeasible {
		t.Error("Expected infeasible after a hard constraint failed to evaluate")
	}
	errs := eval.ConflictsOfType(model.ConflictEvaluationError)
	if len(errs) != 1 {
		t.Fatalf("Expected 1 evaluation error conflict, got %d", len(errs))
	}
	if errs[0].ConstraintID != "boom" {
		t.Errorf("Expected conflict tagged with constraint id, got %q", errs[0].ConstraintID)
	}
	if len(eval.ConstraintEvaluations) != 2 {
		t.Fatal("Expected evaluation to continue after the failing constraint")
	}
	if msg := eval.ConstraintEvaluations[0].Error; !strings.Contains(msg, string(apperrors.CodeEvaluationFailed)) {
		t.Errorf("Expected evaluation error code in %q", msg)
	}
}

func TestEvaluator_Concurrent(t *testing.T) {
	p := newTinyProblem()
	m := NewManager()
	m.Register(&MockConstraint{id: "h", level: model.Level1CoreHard, hard: true, score: 1})
	ev := NewEvaluator(m, DefaultWeights(), 1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sol := model.NewSolution(p, "test")
			if !ev.Evaluate(sol).IsFeasible {
				t.Error("Expected feasible")
			}
		}()
	}
	wg.Wait()
}

func TestContext_Groupings(t *testing.T) {
	p := newTinyProblem()
	sol := model.NewSolution(p, "test")
	sol.Assign(model.NewAssignment(p, 1, 10, 100, 1000))
	sol.Assign(model.NewAssignment(p, 2, 10, 100, 1001))

	ctx := NewContext(sol)
	if len(ctx.ByTeacher(10)) != 2 {
		t.Errorf("Expected 2 assignments for teacher 10, got %d", len(ctx.ByTeacher(10)))
	}
	if len(ctx.BySlot(1000)) != 1 {
		t.Errorf("Expected 1 assignment at slot 1000, got %d", len(ctx.BySlot(1000)))
	}
	day := ctx.TeacherDay(10, 1)
	if len(day) != 2 || day[0].StartTime > day[1].StartTime {
		t.Errorf("Expected 2 ordered assignments on day 1, got %v", day)
	}
}

func newTinyProblem() *model.SchedulingProblem {
	p := model.NewSchedulingProblem("tiny")
	p.Sections = []model.CourseSection{{ID: 1, CourseID: 1, Enrollment: 10}, {ID: 2, CourseID: 2, Enrollment: 10}}
	p.Teachers = []model.Teacher{{ID: 10, Name: "T"}}
	p.Classrooms = []model.Classroom{{ID: 100, Capacity: 20}}
	p.TimeSlots = []model.TimeSlot{
		{ID: 1000, DayOfWeek: 1, Start: model.NewClock(8, 0), End: model.NewClock(9, 40)},
		{ID: 1001, DayOfWeek: 1, Start: model.NewClock(10, 0), End: model.NewClock(11, 40)},
	}
	return p
}

// MockConstraint 用于测试的模拟约束
type MockConstraint struct {
	id     string
	level  model.HierarchyLevel
	hard   bool
	weight float64
	score  float64
	panics bool
	graded bool
}

func (m *MockConstraint) ID() string                  { return m.id }
func (m *MockConstraint) Name() string                { return m.id }
func (m *MockConstraint) Type() Type                  { return Type(m.id) }
func (m *MockConstraint) IsHard() bool                { return m.hard }
func (m *MockConstraint) Level() model.HierarchyLevel { return m.level }
func (m *MockConstraint) Graded() bool                { return m.graded }
func (m *MockConstraint) Weight() float64 {
	if m.weight == 0 {
		return 1
	}
	return m.weight
}

func (m *MockConstraint) Evaluate(ctx *Context) (float64, []model.SchedulingConflict) {
	if m.panics {
		var s []int
		_ = s[3]
	}
	return m.score, nil
}
