// Package optimizer 用模拟退火对初始课表做局部搜索
package optimizer

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/lookup"
)

// 停止原因
const (
	StopMinTemperature = "min_temperature"
	StopMaxIterations  = "max_iterations"
	StopPlateau        = "plateau"
	StopDeadline       = "deadline"
	StopCancelled      = "cancelled"
	StopNoMoves        = "no_moves"
)

// OptimizationConfig 局部搜索配置
type OptimizationConfig struct {
	MaxIterations      int                   `json:"max_iterations"`      // 最大迭代次数
	InitialTemperature float64               `json:"initial_temperature"` // 初始温度
	CoolingRate        float64               `json:"cooling_rate"`        // 每轮乘以该系数
	MinTemperature     float64               `json:"min_temperature"`     // 温度下限
	MaxNoImprovement   int                   `json:"max_no_improvement"`  // 连续无改进上限
	MaxTime            time.Duration         `json:"max_time"`            // 0 表示不限
	CheckInterval      int                   `json:"check_interval"`      // 每隔多少轮检查取消与截止时间
	ConflictDirected   float64               `json:"conflict_directed"`   // 存在硬冲突时走定向移动的概率
	Level              model.ConstraintLevel `json:"level"`
	Seed               int64                 `json:"seed"`
}

// DefaultOptConfig 默认配置
func DefaultOptConfig() OptimizationConfig {
	return OptimizationConfig{
		MaxIterations:      1000,
		InitialTemperature: 1.0,
		CoolingRate:        0.995,
		MinTemperature:     0.01,
		MaxNoImprovement:   100,
		CheckInterval:      32,
		ConflictDirected:   0.5,
		Level:              model.LevelStandard,
		Seed:               1,
	}
}

// ConfigFromParameters 从求解参数生成配置
func ConfigFromParameters(p model.SchedulingParameters) OptimizationConfig {
	cfg := DefaultOptConfig()
	cfg.MaxIterations = p.MaxLsIterations
	cfg.InitialTemperature = p.InitialTemperature
	cfg.CoolingRate = p.CoolingRate
	cfg.MinTemperature = p.MinTemperature
	cfg.MaxNoImprovement = p.MaxNoImprovement
	cfg.Level = p.ConstraintLevel
	cfg.Seed = p.Seed
	return cfg
}

// Evaluator 局部搜索所需的评估能力，必须可并发调用
type Evaluator interface {
	Evaluate(s *model.SchedulingSolution) *model.SchedulingEvaluation
}

// Result 一次局部搜索的结果
type Result struct {
	Index        int
	Best         *model.SchedulingSolution
	InitialScore float64
	BestScore    float64
	Iterations   int
	Accepted     int
	Improved     int
	StopReason   string

	// BestScoreTrace 每轮结束时的最优适应度，单调不减
	BestScoreTrace []float64
}

// LocalSearchOptimizer 模拟退火优化器，一个实例只在一个协程中使用
type LocalSearchOptimizer struct {
	config    OptimizationConfig
	evaluator Evaluator
	moves     *MoveGenerator
	rng       *rand.Rand
	logger    *logger.SchedulerLogger
}

// NewLocalSearchOptimizer 创建优化器
func NewLocalSearchOptimizer(config OptimizationConfig, evaluator Evaluator, tables *lookup.Tables) *LocalSearchOptimizer {
	if config.CheckInterval <= 0 {
		config.CheckInterval = 32
	}
	return &LocalSearchOptimizer{
		config:    config,
		evaluator: evaluator,
		moves:     NewMoveGenerator(tables, config.Level, config.Seed),
		rng:       rand.New(rand.NewSource(config.Seed ^ 0x5deece66d)),
		logger:    logger.NewSchedulerLogger().Named("local_search"),
	}
}

// Moves 使用的邻域生成器
func (o *LocalSearchOptimizer) Moves() *MoveGenerator {
	return o.moves
}

// Optimize 优化课表副本，initial 不会被修改
func (o *LocalSearchOptimizer) Optimize(ctx context.Context, initial *model.SchedulingSolution, index int) *Result {
	cfg := o.config
	var deadline time.Time
	if cfg.MaxTime > 0 {
		deadline = time.Now().Add(cfg.MaxTime)
	}

	current := initial.Clone()
	current.Evaluation = o.evaluate(current, initial.Evaluation)
	best := current.Clone()
	best.Evaluation = current.Evaluation
	neighbor := current.Clone()

	res := &Result{
		Index:        index,
		InitialScore: current.Evaluation.Fitness(),
		StopReason:   StopMaxIterations,
	}
	bestScore := res.InitialScore
	temperature := cfg.InitialTemperature
	noImprovement := 0
	failedMoves := 0

	for i := 0; i < cfg.MaxIterations; i++ {
		if temperature <= cfg.MinTemperature {
			res.StopReason = StopMinTemperature
			break
		}
		if i%cfg.CheckInterval == 0 {
			if ctx.Err() != nil {
				res.StopReason = StopCancelled
				break
			}
			if !deadline.IsZero() && time.Now().After(deadline) {
				res.StopReason = StopDeadline
				break
			}
		}
		res.Iterations++

		mv, ok := o.nextMove(current)
		if ok {
			failedMoves = 0
			neighbor.CopyFrom(current)
			mv.Apply(neighbor)
			neighbor.Evaluation = o.evaluator.Evaluate(neighbor)
			score := neighbor.Evaluation.Fitness()

			switch {
			case score > bestScore:
				bestScore = score
				best.CopyFrom(neighbor)
				current, neighbor = neighbor, current
				res.Accepted++
				res.Improved++
				noImprovement = 0
			case o.rng.Float64() < acceptanceProbability(score-bestScore, temperature):
				current, neighbor = neighbor, current
				res.Accepted++
				noImprovement++
			default:
				noImprovement++
			}
		} else {
			// 没有可用移动时跳过本轮
			failedMoves++
			noImprovement++
		}

		temperature *= cfg.CoolingRate
		res.BestScoreTrace = append(res.BestScoreTrace, bestScore)

		if cfg.MaxNoImprovement <= 0 {
			continue
		}
		if failedMoves >= cfg.MaxNoImprovement {
			res.StopReason = StopNoMoves
			break
		}
		if noImprovement >= cfg.MaxNoImprovement {
			res.StopReason = StopPlateau
			break
		}
	}

	best.Algorithm = initial.Algorithm + "+sa"
	best.Evaluation = o.evaluator.Evaluate(best)
	res.Best = best
	res.BestScore = bestScore
	o.logger.LocalSearchDone(index, res.Iterations, res.InitialScore, res.BestScore, res.StopReason)
	return res
}

// nextMove 有硬冲突时按概率走定向移动，否则随机移动
func (o *LocalSearchOptimizer) nextMove(s *model.SchedulingSolution) (Move, bool) {
	if s.Evaluation != nil && !s.Evaluation.IsFeasible && o.rng.Float64() < o.config.ConflictDirected {
		if hard := s.Evaluation.HardConflicts(); len(hard) > 0 {
			c := hard[o.rng.Intn(len(hard))]
			if mv, ok := o.moves.RandomMoveForConflict(s, c); ok {
				return mv, true
			}
		}
	}
	return o.moves.RandomMove(s)
}

func (o *LocalSearchOptimizer) evaluate(s *model.SchedulingSolution, cached *model.SchedulingEvaluation) *model.SchedulingEvaluation {
	if cached != nil {
		return cached
	}
	return o.evaluator.Evaluate(s)
}

// acceptanceProbability 退火接受概率 exp(delta/T)，delta 为新解与最优解之差
func acceptanceProbability(delta, temperature float64) float64 {
	if delta >= 0 {
		return 1.0
	}
	if temperature <= 0 {
		return 0.0
	}
	return math.Exp(delta / temperature)
}
