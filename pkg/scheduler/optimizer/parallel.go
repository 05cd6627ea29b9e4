package optimizer

import (
	"context"
	"runtime"
	"sync"

	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/lookup"
)

// ParallelEvaluator 并行评估一批课表
type ParallelEvaluator struct {
	workers   int
	evaluator Evaluator
}

// NewParallelEvaluator 创建并行评估器
func NewParallelEvaluator(workers int, evaluator Evaluator) *ParallelEvaluator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &ParallelEvaluator{
		workers:   workers,
		evaluator: evaluator,
	}
}

type evalJob struct {
	index    int
	solution *model.SchedulingSolution
}

// EvaluateBatch 评估并把结果挂到各课表上，取消后未处理的课表保持原样
func (p *ParallelEvaluator) EvaluateBatch(ctx context.Context, solutions []*model.SchedulingSolution) []*model.SchedulingEvaluation {
	results := make([]*model.SchedulingEvaluation, len(solutions))
	if len(solutions) == 0 {
		return results
	}

	jobs := make(chan evalJob, len(solutions))
	for i, s := range solutions {
		jobs <- evalJob{i, s}
	}
	close(jobs)

	workers := p.workers
	if workers > len(solutions) {
		workers = len(solutions)
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					return
				}
				eval := p.evaluator.Evaluate(job.solution)
				job.solution.Evaluation = eval
				results[job.index] = eval
			}
		}()
	}
	wg.Wait()
	return results
}

// Refiner 对每个初始课表各跑一次局部搜索
// 第 i 个课表使用种子 Seed+i，串行与并行结果一致
type Refiner struct {
	config         OptimizationConfig
	evaluator      Evaluator
	tables         *lookup.Tables
	parallel       bool
	maxParallelism int
	logger         *logger.SchedulerLogger
}

// NewRefiner 创建精化器
func NewRefiner(config OptimizationConfig, evaluator Evaluator, tables *lookup.Tables) *Refiner {
	return &Refiner{
		config:    config,
		evaluator: evaluator,
		tables:    tables,
		logger:    logger.NewSchedulerLogger().Named("refiner"),
	}
}

// WithParallelism 开启并行，max<=0 时按 CPU 数
func (r *Refiner) WithParallelism(enabled bool, max int) *Refiner {
	r.parallel = enabled
	r.maxParallelism = max
	return r
}

// RefineAll 返回与输入一一对应的结果
func (r *Refiner) RefineAll(ctx context.Context, solutions []*model.SchedulingSolution) []*Result {
	if !r.parallel || len(solutions) < 2 {
		return r.refineSerial(ctx, solutions)
	}
	return r.refineParallel(ctx, solutions)
}

func (r *Refiner) optimizerFor(i int) *LocalSearchOptimizer {
	cfg := r.config
	cfg.Seed += int64(i)
	return NewLocalSearchOptimizer(cfg, r.evaluator, r.tables)
}

func (r *Refiner) refineSerial(ctx context.Context, solutions []*model.SchedulingSolution) []*Result {
	results := make([]*Result, len(solutions))
	for i, s := range solutions {
		results[i] = r.optimizerFor(i).Optimize(ctx, s, i)
	}
	return results
}

func (r *Refiner) refineParallel(ctx context.Context, solutions []*model.SchedulingSolution) []*Result {
	limit := r.maxParallelism
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	r.logger.Logger().Debug().Int("solutions", len(solutions)).Int("workers", limit).Msg("并行局部搜索")

	results := make([]*Result, len(solutions))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i, s := range solutions {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, s *model.SchedulingSolution) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				// 协程内的 panic 无法被外层捕获，结果留空由调用方回退到初始解
				if rec := recover(); rec != nil {
					r.logger.Logger().Error().Interface("panic", rec).Int("index", i).Msg("局部搜索异常")
				}
			}()
			// Optimize 内部克隆，各协程只写自己的副本
			results[i] = r.optimizerFor(i).Optimize(ctx, s, i)
		}(i, s)
	}
	wg.Wait()
	return results
}
