// Package solver 串联 CP 初始解、局部搜索与结果汇总
package solver

import (
	"context"
	"time"

	"github.com/paiban/kebiao/pkg/model"
)

// Solver 求解器接口
type Solver interface {
	// Solve 求解排课问题，结果集总是非空
	// Failure、Cancelled、Error 时同时返回对应的 AppError
	Solve(ctx context.Context, p *model.SchedulingProblem, params model.SchedulingParameters) (*model.SchedulingResultSet, error)

	// Name 返回求解器名称
	Name() string
}

// Observer 求解过程观察者，用于指标采集
type Observer interface {
	// CPFinished 多样化 CP 阶段结束
	CPFinished(rounds, solutions int, status string)

	// LocalSearchFinished 单个课表的局部搜索结束
	LocalSearchFinished(iterations int, initial, best float64, reason string)

	// SolveFinished 一次求解结束
	SolveFinished(status model.SchedulingStatus, duration time.Duration, best float64)
}

var (
	_ Solver = (*HybridSolver)(nil)
	_ Solver = (*GreedySolver)(nil)
)

// NopObserver 不做任何事的观察者
type NopObserver struct{}

// CPFinished 忽略 CP 阶段
func (NopObserver) CPFinished(int, int, string) {}

// LocalSearchFinished 忽略局部搜索
func (NopObserver) LocalSearchFinished(int, float64, float64, string) {}

// SolveFinished 忽略求解结束
func (NopObserver) SolveFinished(model.SchedulingStatus, time.Duration, float64) {}
