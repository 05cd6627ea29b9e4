package solver

import (
	"context"
	"strings"
	"testing"
	"time"

	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/cp"
	"github.com/paiban/kebiao/pkg/scheduler/solutionset"
	"github.com/paiban/kebiao/pkg/validator"
)

// 3 个教学班、2 位教师、2 间教室、4 个时间段
func newScenarioA() *model.SchedulingProblem {
	p := model.NewSchedulingProblem("scenario-a")
	p.Sections = []model.CourseSection{
		{ID: 1, CourseID: 11, Enrollment: 30, RequiredRoomType: model.RoomClassroom},
		{ID: 2, CourseID: 12, Enrollment: 30, RequiredRoomType: model.RoomClassroom},
		{ID: 3, CourseID: 13, Enrollment: 30, RequiredRoomType: model.RoomClassroom},
	}
	p.Teachers = []model.Teacher{{ID: 1, Name: "张老师"}, {ID: 2, Name: "李老师"}}
	p.Classrooms = []model.Classroom{
		{ID: 1, Name: "A101", Capacity: 40, Building: "A", Type: model.RoomClassroom},
		{ID: 2, Name: "A102", Capacity: 40, Building: "A", Type: model.RoomClassroom},
	}
	p.TimeSlots = []model.TimeSlot{
		{ID: 1, DayOfWeek: 1, Start: model.NewClock(8, 0), End: model.NewClock(9, 40)},
		{ID: 2, DayOfWeek: 1, Start: model.NewClock(10, 0), End: model.NewClock(11, 40)},
		{ID: 3, DayOfWeek: 2, Start: model.NewClock(8, 0), End: model.NewClock(9, 40)},
		{ID: 4, DayOfWeek: 2, Start: model.NewClock(10, 0), End: model.NewClock(11, 40)},
	}
	for _, tid := range []int{1, 2} {
		for _, cid := range []int{11, 12, 13} {
			p.TeacherPreferences = append(p.TeacherPreferences, model.TeacherCoursePreference{
				TeacherID: tid, CourseID: cid, ProficiencyLevel: 4, PreferenceLevel: 3,
			})
		}
	}
	return p
}

// 两个有先修关系的教学班只有一个时间段
func newScenarioD() *model.SchedulingProblem {
	p := model.NewSchedulingProblem("scenario-d")
	p.Sections = []model.CourseSection{
		{ID: 1, CourseID: 11, Enrollment: 30},
		{ID: 2, CourseID: 12, Enrollment: 30},
	}
	p.Teachers = []model.Teacher{{ID: 1}, {ID: 2}}
	p.Classrooms = []model.Classroom{{ID: 1, Capacity: 40}, {ID: 2, Capacity: 40}}
	p.TimeSlots = []model.TimeSlot{{ID: 1, DayOfWeek: 1, Start: model.NewClock(8, 0), End: model.NewClock(9, 40)}}
	p.CoursePrerequisites = []model.CoursePrerequisite{{CourseID: 12, PrerequisiteCourseID: 11, IsMandatory: true}}
	return p
}

func testParams() model.SchedulingParameters {
	params := model.DefaultParameters()
	params.CpTimeLimit = 10
	params.MaxLsIterations = 200
	params.MaxNoImprovement = 50
	return params
}

type recordingObserver struct {
	cpCalls    int
	lsCalls    int
	finished   []model.SchedulingStatus
	cpSolution int
}

func (o *recordingObserver) CPFinished(rounds, solutions int, status string) {
	o.cpCalls++
	o.cpSolution = solutions
}

func (o *recordingObserver) LocalSearchFinished(int, float64, float64, string) {
	o.lsCalls++
}

func (o *recordingObserver) SolveFinished(status model.SchedulingStatus, _ time.Duration, _ float64) {
	o.finished = append(o.finished, status)
}

// panicBackend 模拟后端内部崩溃
type panicBackend struct{}

func (panicBackend) Name() string { return "panic" }

func (panicBackend) Solve(context.Context, *cp.Model, cp.SolutionCallback) (cp.SolveStatus, error) {
	panic("backend exploded")
}

func TestHybridSolver_ScenarioA(t *testing.T) {
	obs := &recordingObserver{}
	rs, err := NewHybridSolver().WithObserver(obs).Solve(context.Background(), newScenarioA(), testParams())
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if rs.Status != model.StatusSuccess {
		t.Fatalf("Status = %s (%s), want success", rs.Status, rs.Message)
	}
	if len(rs.Results) == 0 || rs.SolutionSet == nil {
		t.Fatal("没有返回方案")
	}

	detector := validator.NewConflictDetector(nil)
	for i, r := range rs.Results {
		if got := r.Solution.Len(); got != 3 {
			t.Errorf("方案 %d 有 %d 个分配, want 3", i, got)
		}
		if c := detector.DetectAll(r.Solution); len(c) > 0 {
			t.Errorf("方案 %d 存在冲突: %v", i, c)
		}
		if !r.Evaluation.IsFeasible {
			t.Errorf("方案 %d 不可行", i)
		}
		if len(r.Evaluation.Conflicts) > 0 {
			t.Errorf("方案 %d 评估出 %d 个冲突: %v", i, len(r.Evaluation.Conflicts), r.Evaluation.Conflicts)
		}
		if r.Statistics == nil || r.Statistics.AssignedSections != 3 {
			t.Errorf("方案 %d 缺少统计", i)
		}
	}

	if best := rs.Best(); best == nil || best.Solution != rs.SolutionSet.Primary() {
		t.Error("主方案应排在结果中")
	}
	if obs.cpCalls != 1 || obs.cpSolution == 0 {
		t.Errorf("CP 观察次数 %d, 解 %d", obs.cpCalls, obs.cpSolution)
	}
	if obs.lsCalls != len(rs.Results) {
		t.Errorf("局部搜索观察次数 %d, want %d", obs.lsCalls, len(rs.Results))
	}
	if len(obs.finished) != 1 || obs.finished[0] != model.StatusSuccess {
		t.Errorf("SolveFinished = %v", obs.finished)
	}
	if rs.Duration <= 0 {
		t.Error("Duration 未记录")
	}
}

func TestHybridSolver_ScenarioB(t *testing.T) {
	p := newScenarioA()
	p.TeacherAvailability = []model.TeacherAvailability{{TeacherID: 1, TimeSlotID: 1, IsAvailable: false}}

	rs, err := NewHybridSolver().Solve(context.Background(), p, testParams())
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if rs.Status != model.StatusSuccess {
		t.Fatalf("Status = %s (%s), want success", rs.Status, rs.Message)
	}
	for i, r := range rs.Results {
		for _, a := range r.Solution.Assignments() {
			if a.TeacherID == 1 && a.TimeSlotID == 1 {
				t.Errorf("方案 %d 把张老师排在了不可用的时间段 1", i)
			}
		}
	}
}

func TestHybridSolver_Failures(t *testing.T) {
	tests := []struct {
		name     string
		problem  func() *model.SchedulingProblem
		params   func(p *model.SchedulingParameters)
		status   model.SchedulingStatus
		code     apperrors.Code
		contains string
	}{
		{
			name: "容量不足",
			problem: func() *model.SchedulingProblem {
				p := newScenarioA()
				p.Sections[2].Enrollment = 100
				return p
			},
			status:   model.StatusFailure,
			code:     apperrors.CodeCapacityShortfall,
			contains: "容量",
		},
		{
			name:     "先修冲突",
			problem:  newScenarioD,
			status:   model.StatusFailure,
			code:     apperrors.CodePrerequisiteConflict,
			contains: "先修",
		},
		{
			name: "贪心也报告容量不足",
			problem: func() *model.SchedulingProblem {
				p := newScenarioA()
				p.Sections[0].Enrollment = 100
				return p
			},
			params:   func(p *model.SchedulingParameters) { p.Algorithm = model.AlgorithmGreedy },
			status:   model.StatusFailure,
			code:     apperrors.CodeCapacityShortfall,
			contains: "容量",
		},
		{
			name: "输入不合法",
			problem: func() *model.SchedulingProblem {
				p := newScenarioA()
				p.Classrooms[0].Capacity = 0
				return p
			},
			status:   model.StatusFailure,
			code:     apperrors.CodeValidationFail,
			contains: "验证",
		},
		{
			name:    "参数不合法",
			problem: newScenarioA,
			params:  func(p *model.SchedulingParameters) { p.CoolingRate = 1.5 },
			status:  model.StatusFailure,
			code:    apperrors.CodeValidationFail,
		},
		{
			name:    "空问题",
			problem: func() *model.SchedulingProblem { return nil },
			status:  model.StatusFailure,
			code:    apperrors.CodeInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := testParams()
			if tt.params != nil {
				tt.params(&params)
			}
			rs, err := NewHybridSolver().Solve(context.Background(), tt.problem(), params)
			if rs == nil {
				t.Fatal("结果集不应为空")
			}
			if rs.Status != tt.status {
				t.Errorf("Status = %s, want %s", rs.Status, tt.status)
			}
			if !apperrors.Is(err, tt.code) || rs.Code != string(tt.code) {
				t.Errorf("code = %s / %v, want %s", rs.Code, err, tt.code)
			}
			if tt.contains != "" && !strings.Contains(rs.Message, tt.contains) {
				t.Errorf("Message = %q, 应包含 %q", rs.Message, tt.contains)
			}
			if len(rs.Results) != 0 {
				t.Errorf("失败时不应有方案, got %d", len(rs.Results))
			}
		})
	}
}

func TestHybridSolver_ValidationErrors(t *testing.T) {
	p := newScenarioA()
	p.TimeSlots[0].DayOfWeek = 9

	rs, _ := NewHybridSolver().Solve(context.Background(), p, testParams())
	if len(rs.ValidationErrors) == 0 {
		t.Fatal("应返回逐字段校验错误")
	}
	if !strings.Contains(strings.Join(rs.ValidationErrors, "\n"), "time_slots[0].DayOfWeek") {
		t.Errorf("ValidationErrors = %v", rs.ValidationErrors)
	}
}

func TestHybridSolver_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rs, err := NewHybridSolver().Solve(ctx, newScenarioA(), testParams())
	if rs.Status != model.StatusCancelled {
		t.Errorf("Status = %s, want cancelled", rs.Status)
	}
	if !apperrors.Is(err, apperrors.CodeCancelled) {
		t.Errorf("err = %v, want CANCELLED", err)
	}
}

func TestHybridSolver_RecoversPanic(t *testing.T) {
	obs := &recordingObserver{}
	rs, err := NewHybridSolver().
		WithBackend(panicBackend{}).
		WithObserver(obs).
		Solve(context.Background(), newScenarioA(), testParams())

	if rs == nil || rs.Status != model.StatusError {
		t.Fatalf("rs = %+v, want error status", rs)
	}
	if !apperrors.Is(err, apperrors.CodeInternal) {
		t.Errorf("err = %v, want INTERNAL", err)
	}
	if !strings.Contains(rs.Message, "backend exploded") {
		t.Errorf("Message = %q", rs.Message)
	}
	if len(obs.finished) != 1 || obs.finished[0] != model.StatusError {
		t.Errorf("SolveFinished = %v", obs.finished)
	}
}

func TestHybridSolver_Greedy(t *testing.T) {
	params := testParams()
	params.Algorithm = model.AlgorithmGreedy

	rs, err := NewHybridSolver().Solve(context.Background(), newScenarioA(), params)
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if rs.Status != model.StatusSuccess && rs.Status != model.StatusPartialSuccess {
		t.Fatalf("Status = %s (%s)", rs.Status, rs.Message)
	}
	for i, r := range rs.Results {
		if !r.Solution.IsComplete() {
			t.Errorf("方案 %d 不完整", i)
		}
		if !strings.HasPrefix(r.Solution.Algorithm, "greedy") {
			t.Errorf("方案 %d 算法 = %s", i, r.Solution.Algorithm)
		}
	}
}

func TestHybridSolver_NoLocalSearch(t *testing.T) {
	params := testParams()
	params.MaxLsIterations = 0
	obs := &recordingObserver{}

	rs, err := NewHybridSolver().WithObserver(obs).Solve(context.Background(), newScenarioA(), params)
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if obs.lsCalls != 0 {
		t.Errorf("关闭局部搜索后仍有 %d 次观察", obs.lsCalls)
	}
	for _, r := range rs.Results {
		if r.Solution.Algorithm != "cp" {
			t.Errorf("Algorithm = %s, want cp", r.Solution.Algorithm)
		}
	}
}

// 一个教学班、两间同类实验室，局部搜索会把两个方案都推向类型完全匹配的教室
func newCollapsingProblem() *model.SchedulingProblem {
	p := model.NewSchedulingProblem("collapse")
	p.Sections = []model.CourseSection{{ID: 1, CourseID: 11, Enrollment: 30, RequiredRoomType: model.RoomLab}}
	p.Teachers = []model.Teacher{{ID: 1}}
	p.Classrooms = []model.Classroom{
		{ID: 1, Capacity: 40, Type: model.RoomLab},
		{ID: 2, Capacity: 40, Type: model.RoomComputerLab},
	}
	p.TimeSlots = []model.TimeSlot{{ID: 1, DayOfWeek: 1, Start: model.NewClock(8, 0), End: model.NewClock(9, 40)}}
	p.TeacherPreferences = []model.TeacherCoursePreference{{TeacherID: 1, CourseID: 11, ProficiencyLevel: 4, PreferenceLevel: 3}}
	return p
}

func TestHybridSolver_KeepsDiversityAfterRefinement(t *testing.T) {
	params := testParams()
	params.InitialSolutionCount = 2

	rs, err := NewHybridSolver().Solve(context.Background(), newCollapsingProblem(), params)
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	sols := rs.SolutionSet.Solutions
	for i := range sols {
		for j := 0; j < i; j++ {
			if d := solutionset.PairwiseDiversity(sols[i], sols[j]); d < params.DiversityThreshold {
				t.Errorf("方案 %d 与方案 %d 距离 %.2f < %.2f", i, j, d, params.DiversityThreshold)
			}
		}
	}
	if len(sols) < params.InitialSolutionCount && rs.Status == model.StatusSuccess {
		t.Errorf("只有 %d 个方案却报告 success", len(sols))
	}
	if rs.Status == model.StatusFailure || rs.Status == model.StatusError {
		t.Errorf("Status = %s (%s)", rs.Status, rs.Message)
	}
}

func TestHybridSolver_AdmitFallsBackToInitial(t *testing.T) {
	p := newCollapsingProblem()
	params := testParams()
	h := NewHybridSolver()
	run := &solveRun{problem: p, params: params, log: h.logger}

	first := model.NewSolution(p, "cp+sa")
	first.Assign(model.NewAssignment(p, 1, 1, 1, 1))
	first.Evaluation = &model.SchedulingEvaluation{Score: 0.9, IsFeasible: true}

	initial := model.NewSolution(p, "cp")
	initial.Assign(model.NewAssignment(p, 1, 1, 2, 1))
	initial.Evaluation = &model.SchedulingEvaluation{Score: 0.7, IsFeasible: true}
	collapsed := first.Clone()
	collapsed.Evaluation = &model.SchedulingEvaluation{Score: 0.9, IsFeasible: true}

	mgr := solutionset.NewManager(p, p.Name)
	h.admit(run, mgr, []*model.SchedulingSolution{first, initial}, []*model.SchedulingSolution{first, collapsed})

	if mgr.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", mgr.Len())
	}
	if got := mgr.Set().Solutions[1]; got != initial {
		t.Error("坍缩的课表应退回其初始解")
	}
	if run.partial {
		t.Error("退回初始解后不应标记为部分成功")
	}

	// 初始解也重复时丢弃
	run = &solveRun{problem: p, params: params, log: h.logger}
	mgr = solutionset.NewManager(p, p.Name)
	h.admit(run, mgr, []*model.SchedulingSolution{first, first.Clone()}, []*model.SchedulingSolution{first, collapsed})
	if mgr.Len() != 1 || !run.partial {
		t.Errorf("Len() = %d partial = %v, want 1 and true", mgr.Len(), run.partial)
	}
}
