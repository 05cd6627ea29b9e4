package solver

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
	"github.com/paiban/kebiao/pkg/scheduler/constraint/builtin"
	"github.com/paiban/kebiao/pkg/scheduler/cp"
	"github.com/paiban/kebiao/pkg/scheduler/lookup"
	"github.com/paiban/kebiao/pkg/scheduler/optimizer"
	"github.com/paiban/kebiao/pkg/scheduler/solutionset"
	"github.com/paiban/kebiao/pkg/stats"
	"github.com/paiban/kebiao/pkg/validator"
)

// HybridSolver CP 生成多样初始解，再逐个做模拟退火
type HybridSolver struct {
	backend  cp.Backend
	observer Observer
	analyzer *stats.Analyzer
	logger   *logger.SchedulerLogger
}

// NewHybridSolver 创建混合求解器，默认使用 gophersat 后端
func NewHybridSolver() *HybridSolver {
	return &HybridSolver{
		backend:  cp.NewGophersatBackend(),
		observer: NopObserver{},
		analyzer: stats.NewAnalyzer(),
		logger:   logger.NewSchedulerLogger().Named("hybrid"),
	}
}

// WithBackend 替换 CP 后端
func (h *HybridSolver) WithBackend(b cp.Backend) *HybridSolver {
	h.backend = b
	return h
}

// WithObserver 设置观察者，nil 表示不观察
func (h *HybridSolver) WithObserver(o Observer) *HybridSolver {
	if o == nil {
		o = NopObserver{}
	}
	h.observer = o
	return h
}

// Name 返回求解器名称
func (h *HybridSolver) Name() string {
	return "HybridSolver"
}

// solveRun 一次求解共享的只读状态
type solveRun struct {
	problem   *model.SchedulingProblem
	params    model.SchedulingParameters
	tables    *lookup.Tables
	evaluator *constraint.Evaluator
	log       *logger.SchedulerLogger
	partial   bool
}

// Solve 求解排课问题，任何失败都映射为结果集状态
func (h *HybridSolver) Solve(ctx context.Context, p *model.SchedulingProblem, params model.SchedulingParameters) (rs *model.SchedulingResultSet, err error) {
	start := time.Now()
	rs = model.NewResultSet(p)
	ctx = logger.WithSolveID(ctx, rs.ID.String())
	log := h.logger.WithContext(ctx)

	defer func() {
		if rec := recover(); rec != nil {
			log.Logger().Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("求解过程异常")
			appErr := apperrors.New(apperrors.CodeInternal, fmt.Sprintf("求解过程异常: %v", rec))
			rs.SolutionSet, rs.Results = nil, nil
			rs.Fail(model.StatusError, string(appErr.Code), appErr.Message)
			err = appErr
		}
		rs.Duration = time.Since(start)
		best, count := 0.0, 0
		if rs.SolutionSet != nil {
			count = len(rs.SolutionSet.Solutions)
			if primary := rs.SolutionSet.Primary(); primary != nil && primary.Evaluation != nil {
				best = primary.Evaluation.Fitness()
			}
		}
		h.observer.SolveFinished(rs.Status, rs.Duration, best)
		problemID := ""
		if p != nil {
			problemID = p.ID.String()
		}
		log.SolveComplete(problemID, string(rs.Status), rs.Duration, count, best)
	}()

	if err := params.Validate(); err != nil {
		return failWith(rs, model.StatusFailure, err)
	}
	if err := validator.ValidateProblem(p); err != nil {
		return failWith(rs, model.StatusFailure, err)
	}

	nS, nT, nR, nTS := p.Size()
	log.StartSolve(p.ID.String(), nS, nT, nR, nTS)

	run := &solveRun{
		problem:   p,
		params:    params,
		tables:    lookup.Build(p, params.MinProficiency),
		evaluator: builtin.NewDefaultEvaluator(params),
		log:       log,
	}

	var initials []*model.SchedulingSolution
	if params.Algorithm == model.AlgorithmGreedy {
		initials, err = h.generateGreedy(ctx, run)
	} else {
		initials, err = h.generateCP(ctx, run)
	}
	if err != nil {
		status := model.StatusFailure
		if apperrors.Is(err, apperrors.CodeCancelled) {
			status = model.StatusCancelled
		} else if apperrors.Is(err, apperrors.CodeInternal) {
			status = model.StatusError
		}
		return failWith(rs, status, err)
	}
	rs.Status = model.StatusInitialSolutionGenerated
	log.Logger().Info().Int("solutions", len(initials)).Msg("初始解已生成")

	optimizer.NewParallelEvaluator(params.MaxParallelism, run.evaluator).EvaluateBatch(ctx, initials)
	finals := h.refine(ctx, run, initials)

	mgr := solutionset.NewManager(p, p.Name)
	h.admit(run, mgr, initials, finals)
	mgr.PromoteBest()
	rs.SolutionSet = mgr.Set()
	rs.Results = h.results(run, mgr.Ranked())

	if errors.Is(ctx.Err(), context.Canceled) {
		appErr := apperrors.Wrap(ctx.Err(), apperrors.CodeCancelled, "求解已取消，返回已有方案")
		rs.Fail(model.StatusCancelled, string(appErr.Code), appErr.Message)
		return rs, appErr
	}
	h.finish(rs, run)
	return rs, nil
}

// generateCP 构建模型并求多样解，不可行时附带诊断
func (h *HybridSolver) generateCP(ctx context.Context, run *solveRun) ([]*model.SchedulingSolution, error) {
	opts := cp.BuildOptions{Level: run.params.ConstraintLevel}
	m, err := cp.NewBuilder(run.tables, opts).Build()
	if err != nil {
		return nil, err
	}

	res, err := cp.NewDriver(h.backend, cp.DriverConfigFromParameters(run.params)).Run(ctx, m)
	if res != nil {
		h.observer.CPFinished(res.Rounds, len(res.Solutions), res.Status.String())
	}
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNoFeasibleSolution) {
			diags := cp.NewDiagnoser(h.backend, run.tables, opts).Diagnose(ctx, m)
			for _, d := range diags {
				run.log.ConstraintViolation(string(d.Family), d.Message)
			}
			return nil, cp.DiagnosticError(diags)
		}
		return nil, err
	}

	run.partial = res.Partial
	out := make([]*model.SchedulingSolution, 0, len(res.Solutions))
	for _, raw := range res.Solutions {
		s, err := cp.ToSolution(run.problem, m, raw.Values, "cp")
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// generateGreedy 贪心构造初始解
func (h *HybridSolver) generateGreedy(ctx context.Context, run *solveRun) ([]*model.SchedulingSolution, error) {
	if short := run.tables.RoomsShortfall(); len(short) > 0 {
		return nil, apperrors.CapacityShortfall(short)
	}
	g := NewGreedySolver(run.tables, run.params.ConstraintLevel)
	g.SetDiversityThreshold(run.params.DiversityThreshold)
	out, err := g.Generate(ctx, run.params.InitialSolutionCount, run.params.Seed)
	if err != nil {
		return nil, err
	}
	run.partial = len(out) < run.params.InitialSolutionCount
	return out, nil
}

// refine 局部搜索，某个课表搜索失败时保留其初始解
func (h *HybridSolver) refine(ctx context.Context, run *solveRun, initials []*model.SchedulingSolution) []*model.SchedulingSolution {
	if run.params.MaxLsIterations <= 0 {
		return initials
	}
	refiner := optimizer.NewRefiner(optimizer.ConfigFromParameters(run.params), run.evaluator, run.tables).
		WithParallelism(run.params.EnableParallelOptimization, run.params.MaxParallelism)

	finals := make([]*model.SchedulingSolution, len(initials))
	for i, r := range refiner.RefineAll(ctx, initials) {
		finals[i] = initials[i]
		if r == nil || r.Best == nil {
			continue
		}
		h.observer.LocalSearchFinished(r.Iterations, r.InitialScore, r.BestScore, r.StopReason)
		finals[i] = r.Best
	}
	return finals
}

// admit 按适应度从高到低把精化后的课表放入集合，与已收课表过近时退回其初始解，
// 仍然过近则丢弃并记为部分成功
func (h *HybridSolver) admit(run *solveRun, mgr *solutionset.Manager, initials, finals []*model.SchedulingSolution) {
	threshold := run.params.DiversityThreshold
	order := make([]int, len(finals))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return finals[order[a]].Evaluation.Fitness() > finals[order[b]].Evaluation.Fitness()
	})

	for _, i := range order {
		if mgr.AddDiverse(finals[i], threshold) {
			continue
		}
		if finals[i] != initials[i] && mgr.AddDiverse(initials[i], threshold) {
			run.log.Logger().Debug().Int("index", i).Msg("精化后的课表与已有方案过近，保留初始解")
			continue
		}
		run.partial = true
		run.log.Logger().Warn().Int("index", i).Float64("threshold", threshold).Msg("课表多样性不足，已丢弃")
	}
}

// results 为每个课表附上统计并复核不变量
func (h *HybridSolver) results(run *solveRun, ranked []*model.SchedulingSolution) []model.SchedulingResult {
	detector := validator.NewConflictDetector(&validator.DetectorConfig{
		CheckCapacity:     run.params.ConstraintLevel >= model.LevelBasic,
		CheckAvailability: run.params.ConstraintLevel >= model.LevelStandard && run.params.AvailabilityAsHard,
		CheckCompleteness: true,
	})

	out := make([]model.SchedulingResult, 0, len(ranked))
	for _, s := range ranked {
		if s.Evaluation == nil {
			s.Evaluation = run.evaluator.Evaluate(s)
		}
		r := model.SchedulingResult{
			Solution:   s,
			Evaluation: s.Evaluation,
			Statistics: h.analyzer.Analyze(s),
		}
		violations := detector.DetectAll(s)
		switch {
		case len(violations) > 0:
			r.Status = model.StatusFailure
			r.Message = fmt.Sprintf("课表违反 %d 项硬性规则: %s", len(violations), violations[0].Description)
			for _, v := range violations {
				run.log.ConstraintViolation(string(v.Type), v.Description)
			}
		case !s.Evaluation.IsFeasible:
			r.Status = model.StatusPartialSuccess
			r.Message = fmt.Sprintf("存在 %d 个硬约束冲突", len(s.Evaluation.HardConflicts()))
		default:
			r.Status = model.StatusSuccess
			r.Message = fmt.Sprintf("得分 %.3f", s.Evaluation.Score)
		}
		out = append(out, r)
	}
	return out
}

// finish 按主方案与方案数量确定总体状态
func (h *HybridSolver) finish(rs *model.SchedulingResultSet, run *solveRun) {
	best := rs.Best()
	want := run.params.InitialSolutionCount
	got := len(rs.Results)
	switch {
	case best == nil || best.Status == model.StatusFailure:
		rs.Status = model.StatusFailure
		rs.Code = string(apperrors.CodeConstraintViolation)
		rs.Message = "没有满足硬性规则的方案"
	case best.Status != model.StatusSuccess:
		rs.Status = model.StatusPartialSuccess
		rs.Message = "主方案仍有冲突: " + best.Message
	case run.partial:
		rs.Status = model.StatusPartialSuccess
		rs.Message = fmt.Sprintf("仅找到 %d/%d 个方案", got, want)
	default:
		rs.Status = model.StatusSuccess
		rs.Message = fmt.Sprintf("排课成功，共 %d 个方案", got)
	}
}

// failWith 把错误写入结果集
func failWith(rs *model.SchedulingResultSet, status model.SchedulingStatus, err error) (*model.SchedulingResultSet, error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Wrap(err, apperrors.CodeInternal, err.Error())
	}
	rs.Fail(status, string(appErr.Code), appErr.Message, appErr.Reasons...)
	if appErr.Code == apperrors.CodeValidationFail {
		rs.ValidationErrors = appErr.Reasons
	}
	return rs, appErr
}
