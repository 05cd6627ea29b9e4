package cp

import (
	"context"
	"sync"

	"github.com/crillab/gophersat/solver"
)

// GophersatBackend 基于 gophersat 伪布尔求解器的后端
// 线性约束直接转成 PB 约束，最大化目标转成等价的最小化代价
type GophersatBackend struct {
	// Optimize 为 false 时找到第一个可行解即返回
	Optimize bool
}

// NewGophersatBackend 创建默认做优化的后端
func NewGophersatBackend() *GophersatBackend {
	return &GophersatBackend{Optimize: true}
}

// Name 后端名称
func (b *GophersatBackend) Name() string { return "gophersat" }

// Solve 求解模型
func (b *GophersatBackend) Solve(ctx context.Context, m *Model, onSolution SolutionCallback) (SolveStatus, error) {
	n := m.NumVars()
	if n == 0 {
		return StatusInfeasible, nil
	}

	pb := solver.ParsePBConstrs(toPBConstrs(m))
	if b.Optimize {
		lits, weights := costFunction(m)
		if len(lits) > 0 {
			pb.SetCostFunc(lits, weights)
		}
	}
	s := solver.New(pb)

	results := make(chan solver.Result)
	stop := make(chan struct{})
	var stopOnce sync.Once
	halt := func() { stopOnce.Do(func() { close(stop) }) }

	final := make(chan solver.Result, 1)
	go func() {
		final <- s.Optimal(results, stop)
	}()

	found := false
	stopped := false
	wantMore := true
	done := ctx.Done()
	for results != nil {
		select {
		case res, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			if res.Status != solver.Sat || !wantMore {
				continue
			}
			values := modelValues(res.Model, n)
			found = true
			if !onSolution(values, m.ObjectiveValue(values)) {
				wantMore = false
				stopped = true
				halt()
			}
		case <-done:
			stopped = true
			done = nil
			halt()
		}
	}
	res := <-final
	halt()

	switch {
	case res.Status == solver.Unsat && !found:
		return StatusInfeasible, nil
	case found && !stopped:
		return StatusOptimal, nil
	case found:
		return StatusFeasible, nil
	case res.Status == solver.Sat:
		// 最终结果未经由通道送达
		values := modelValues(res.Model, n)
		onSolution(values, m.ObjectiveValue(values))
		return StatusFeasible, nil
	default:
		return StatusUnknown, nil
	}
}

// toPBConstrs 变量 v 对应文字 v+1
// Σ c·x <= r 改写为 Σ c·¬x >= Σc - r
func toPBConstrs(m *Model) []solver.PBConstr {
	out := make([]solver.PBConstr, 0, m.NumConstraints())
	for _, c := range m.Constraints() {
		lits := make([]int, len(c.Vars))
		neg := make([]int, len(c.Vars))
		weights := make([]int, len(c.Vars))
		total := 0
		for i, v := range c.Vars {
			lits[i] = v + 1
			neg[i] = -(v + 1)
			weights[i] = c.coeff(i)
			total += weights[i]
		}
		ge := solver.PBConstr{Lits: lits, Weights: weights, AtLeast: c.RHS}
		le := solver.PBConstr{Lits: neg, Weights: weights, AtLeast: total - c.RHS}
		switch c.Op {
		case OpGE:
			out = append(out, ge)
		case OpLE:
			out = append(out, le)
		default:
			out = append(out, ge, le)
		}
	}
	return out
}

// costFunction 每个教学班恰好一个变量为真，
// 因此最大化 Σw·x 等价于最小化 Σ(maxW-w)·x
func costFunction(m *Model) ([]solver.Lit, []int) {
	maxW := 0
	for v := 0; v < m.NumVars(); v++ {
		if w := m.Objective(v); w > maxW {
			maxW = w
		}
	}
	var lits []solver.Lit
	var weights []int
	for v := 0; v < m.NumVars(); v++ {
		cost := maxW - m.Objective(v)
		if cost <= 0 {
			continue
		}
		lits = append(lits, solver.IntToLit(int32(v+1)))
		weights = append(weights, cost)
	}
	return lits, weights
}

// modelValues 对齐到模型变量数，求解器未涉及的变量视为假
func modelValues(model []bool, n int) []bool {
	values := make([]bool, n)
	copy(values, model)
	return values
}
