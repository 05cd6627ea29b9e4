package constraint

import (
	"fmt"
	"math"
	"time"

	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/model"
)

// Weights 各类约束的权重倍率
type Weights struct {
	Hard     float64
	Soft     float64
	Physical float64
	Quality  float64
}

// DefaultWeights 默认倍率全部为 1
func DefaultWeights() Weights {
	return Weights{Hard: 1, Soft: 1, Physical: 1, Quality: 1}
}

// WeightsFromParameters 从求解参数提取倍率
func WeightsFromParameters(p model.SchedulingParameters) Weights {
	return Weights{Hard: p.HardWeight, Soft: p.SoftWeight, Physical: p.PhysicalWeight, Quality: p.QualityWeight}
}

// Evaluator 约束评估器
// 只读取课表，不持有可变状态，可对不同课表并发调用
type Evaluator struct {
	manager   *Manager
	weights   Weights
	threshold float64
	config    map[string]interface{}
	logger    *logger.SchedulerLogger
}

// NewEvaluator 创建评估器
func NewEvaluator(m *Manager, w Weights, hardThreshold float64) *Evaluator {
	if hardThreshold <= 0 || hardThreshold > 1 {
		hardThreshold = 1
	}
	return &Evaluator{
		manager:   m,
		weights:   w,
		threshold: hardThreshold,
		config:    make(map[string]interface{}),
		logger:    logger.NewSchedulerLogger().Named("evaluator"),
	}
}

// SetConfig 设置传给约束的上下文配置
func (e *Evaluator) SetConfig(key string, value interface{}) {
	e.config[key] = value
}

// Manager 返回所用约束注册表
func (e *Evaluator) Manager() *Manager {
	return e.manager
}

// EffectiveWeight 约束权重乘以所属类别倍率
func (e *Evaluator) EffectiveWeight(c Constraint) float64 {
	w := c.Weight()
	if c.IsHard() {
		return w * e.weights.Hard
	}
	switch c.Level() {
	case model.Level3PhysicalSoft:
		w *= e.weights.Physical
	case model.Level4QualitySoft:
		w *= e.weights.Quality
	}
	return w * e.weights.Soft
}

// Evaluate 评估课表，返回新的评估结果
func (e *Evaluator) Evaluate(s *model.SchedulingSolution) *model.SchedulingEvaluation {
	ctx := NewContext(s)
	for k, v := range e.config {
		ctx.Config[k] = v
	}

	eval := &model.SchedulingEvaluation{
		SolutionID:  s.ID,
		IsFeasible:  true,
		EvaluatedAt: time.Now(),
	}

	var hardSum, hardW, softSum, softW float64
	for _, c := range e.manager.GetAll() {
		score, conflicts, err := e.safeEvaluate(c, ctx)
		w := e.EffectiveWeight(c)

		ce := model.ConstraintEvaluation{
			ConstraintID: c.ID(),
			Name:         c.Name(),
			Level:        c.Level(),
			IsHard:       c.IsHard(),
			Weight:       w,
			Score:        score,
			Conflicts:    len(conflicts),
		}
		if err != nil {
			ce.Error = err.Error()
		}
		for i := range conflicts {
			if conflicts[i].ConstraintID == "" {
				conflicts[i].ConstraintID = c.ID()
			}
		}
		eval.ConstraintEvaluations = append(eval.ConstraintEvaluations, ce)
		eval.Conflicts = append(eval.Conflicts, conflicts...)

		if c.IsHard() {
			hardSum += w * score
			hardW += w
			if len(conflicts) > 0 || (score < e.threshold && !isGraded(c)) {
				eval.IsFeasible = false
			}
		} else {
			softSum += w * score
			softW += w
		}
	}

	eval.HardScore = 1
	if hardW > 0 {
		eval.HardScore = hardSum / hardW
	}
	eval.SoftScore = 1
	if softW > 0 {
		eval.SoftScore = softSum / softW
	}
	eval.Score = eval.SoftScore
	return eval
}

// EvaluateAndAttach 评估并把结果挂到课表上
func (e *Evaluator) EvaluateAndAttach(s *model.SchedulingSolution) *model.SchedulingEvaluation {
	eval := e.Evaluate(s)
	s.Evaluation = eval
	return eval
}

// safeEvaluate 单个约束出错时记录冲突而不是中断整轮评估
func (e *Evaluator) safeEvaluate(c Constraint, ctx *Context) (score float64, conflicts []model.SchedulingConflict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.EvaluationFailed(c.ID(), fmt.Errorf("%v", r))
			e.logger.Logger().Warn().
				Str("constraint", c.ID()).
				Interface("panic", r).
				Msg("约束评估异常")
			score = 0
			conflicts = []model.SchedulingConflict{
				model.NewConflict(model.ConflictEvaluationError, model.SeverityCritical,
					"约束 %s 评估失败: %v", c.Name(), r),
			}
		}
	}()

	score, conflicts = c.Evaluate(ctx)
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, append(conflicts, model.NewConflict(model.ConflictEvaluationError, model.SeverityCritical,
			"约束 %s 返回了无效分数", c.Name())), apperrors.EvaluationFailed(c.ID(), fmt.Errorf("invalid score %v", score))
	}
	return clamp01(score), conflicts, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
