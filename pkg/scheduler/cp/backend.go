package cp

import (
	"context"
)

// SolveStatus 后端求解状态
type SolveStatus int

const (
	StatusUnknown    SolveStatus = iota // 时限内未得出结论
	StatusFeasible                      // 找到解但未证明最优
	StatusOptimal                       // 找到并证明最优
	StatusInfeasible                    // 证明无解
)

// String 状态名称
func (s SolveStatus) String() string {
	switch s {
	case StatusFeasible:
		return "feasible"
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	default:
		return "unknown"
	}
}

// SolutionCallback 每找到一个可行解回调一次
// values 按变量下标给出取值，回调返回 false 时后端应尽快结束
type SolutionCallback func(values []bool, objective int) bool

// Backend 带解回调的布尔约束求解能力
type Backend interface {
	Name() string
	Solve(ctx context.Context, m *Model, onSolution SolutionCallback) (SolveStatus, error)
}

// Satisfiable 只判定模型是否有解
func Satisfiable(ctx context.Context, b Backend, m *Model) (SolveStatus, error) {
	return b.Solve(ctx, m, func([]bool, int) bool { return false })
}
