package cp

import (
	"context"
	"math"
	"testing"
	"time"

	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/model"
)

func TestDriverDiverseSolutions(t *testing.T) {
	m := build(t, newScenarioA(), model.LevelStandard)

	tests := []struct {
		name          string
		cfg           DriverConfig
		wantSolutions int
		wantPartial   bool
	}{
		{"多样性割", DriverConfig{Count: 3, DiversityThreshold: 0.2, UseNoGoodCuts: true, DiversityCuts: true}, 3, false},
		{"仅 no-good 割", DriverConfig{Count: 3, DiversityThreshold: 0.2, UseNoGoodCuts: true}, 3, false},
		{"高阈值", DriverConfig{Count: 2, DiversityThreshold: 1, DiversityCuts: true}, 2, false},
		{"不加割只求一轮", DriverConfig{Count: 3, DiversityThreshold: 0.2}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewDriver(bruteBackend{}, tt.cfg).Run(context.Background(), m)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if got := len(res.Solutions); got != tt.wantSolutions {
				t.Fatalf("解数量 = %d, want %d", got, tt.wantSolutions)
			}
			if res.Partial != tt.wantPartial {
				t.Errorf("Partial = %v, want %v", res.Partial, tt.wantPartial)
			}
			for i, s := range res.Solutions {
				if bad := m.Check(s.Values); len(bad) > 0 {
					t.Errorf("解 %d 违反原模型约束: %v", i, bad)
				}
				for j := 0; j < i; j++ {
					if d := JaccardDistance(s.Active, res.Solutions[j].Active); d < tt.cfg.DiversityThreshold || d == 0 {
						t.Errorf("解 %d 与解 %d 的距离 %.3f 低于阈值", i, j, d)
					}
				}
			}
		})
	}
}

func TestDriverExhaustsSpace(t *testing.T) {
	// 1 个教学班、1 位教师、1 间教室、2 个时间段：只有两个不同的解
	p := newScenarioA()
	p.Sections = p.Sections[:1]
	p.Teachers = p.Teachers[:1]
	p.Classrooms = p.Classrooms[:1]
	p.TimeSlots = p.TimeSlots[:2]
	m := build(t, p, model.LevelStandard)

	res, err := NewDriver(bruteBackend{}, DriverConfig{Count: 5, UseNoGoodCuts: true}).Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Solutions) != 2 || !res.Partial || !res.Exhausted {
		t.Errorf("got %d 个解 partial=%v exhausted=%v, want 2 true true", len(res.Solutions), res.Partial, res.Exhausted)
	}
	if res.Rounds != 3 {
		t.Errorf("Rounds = %d, want 3", res.Rounds)
	}
}

func TestDriverFailures(t *testing.T) {
	tests := []struct {
		name    string
		backend Backend
		model   func(t *testing.T) *Model
		want    apperrors.Code
	}{
		{"证明无解", bruteBackend{}, func(t *testing.T) *Model { return build(t, newScenarioD(), model.LevelStandard) }, apperrors.CodeNoFeasibleSolution},
		{"超时无解", silentBackend{}, func(t *testing.T) *Model { return build(t, newScenarioA(), model.LevelStandard) }, apperrors.CodeSearchExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DriverConfig{Count: 2, DiversityThreshold: 0.2, TimeLimit: time.Second, UseNoGoodCuts: true}
			res, err := NewDriver(tt.backend, cfg).Run(context.Background(), tt.model(t))
			if err == nil {
				t.Fatal("期望返回错误")
			}
			if got := apperrors.GetCode(err); got != tt.want {
				t.Errorf("错误码 = %s, want %s", got, tt.want)
			}
			if res == nil || len(res.Solutions) != 0 {
				t.Errorf("失败时不应带解")
			}
		})
	}
}

func TestDriverCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDriver(bruteBackend{}, DriverConfig{Count: 1}).Run(ctx, build(t, newScenarioA(), model.LevelStandard))
	if !apperrors.Is(err, apperrors.CodeCancelled) {
		t.Errorf("错误码 = %s, want %s", apperrors.GetCode(err), apperrors.CodeCancelled)
	}
}

func TestDriverConfigFromParameters(t *testing.T) {
	params := model.DefaultParameters()
	params.InitialSolutionCount = 5
	params.CpTimeLimit = 10
	cfg := DriverConfigFromParameters(params)
	if cfg.Count != 5 || cfg.TimeLimit != 10*time.Second || cfg.DiversityThreshold != params.DiversityThreshold {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestJaccardDistance(t *testing.T) {
	k := func(s, ts int) VarKey { return VarKey{Section: s, TimeSlot: ts, Classroom: 1, Teacher: 1} }
	tests := []struct {
		name string
		a, b []VarKey
		want float64
	}{
		{"相同", []VarKey{k(1, 1), k(2, 1)}, []VarKey{k(1, 1), k(2, 1)}, 0},
		{"完全不同", []VarKey{k(1, 1)}, []VarKey{k(1, 2)}, 1},
		{"一半重叠", []VarKey{k(1, 1), k(2, 1)}, []VarKey{k(1, 1), k(2, 2)}, 1 - 1.0/3},
		{"都为空", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JaccardDistance(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("JaccardDistance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiversityCutBound(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		threshold float64
		wantRHS   int
	}{
		{"默认阈值", 5, 0.2, 4},
		{"阈值 0.5", 5, 0.5, 3},
		{"阈值 1", 5, 1, 0},
		{"阈值 0 退化为 no-good", 5, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(model.LevelCore)
			values := make([]bool, tt.n)
			for i := range values {
				m.NewBoolVar(VarKey{Section: i + 1})
				values[i] = true
			}
			addDiversityCut(m, values, tt.threshold, 1)
			cs := m.Constraints()
			if len(cs) != 1 || cs[0].RHS != tt.wantRHS || cs[0].Family != FamilyCut {
				t.Errorf("cut = %+v, want rhs %d", cs, tt.wantRHS)
			}
		})
	}
}
