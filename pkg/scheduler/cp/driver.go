package cp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/model"
)

// DriverConfig 多样化求解配置
type DriverConfig struct {
	Count              int           // 需要的解数
	DiversityThreshold float64       // 与已保留解的最小 Jaccard 距离
	TimeLimit          time.Duration // 总时限，0 表示不限
	UseNoGoodCuts      bool          // 拒绝的解加 no-good 割
	DiversityCuts      bool          // 接受的解加多样性割
}

// DriverConfigFromParameters 从求解参数生成配置
func DriverConfigFromParameters(p model.SchedulingParameters) DriverConfig {
	return DriverConfig{
		Count:              p.InitialSolutionCount,
		DiversityThreshold: p.DiversityThreshold,
		TimeLimit:          p.CpTimeout(),
		UseNoGoodCuts:      p.UseNoGoodCuts,
		DiversityCuts:      p.DiversityCuts,
	}
}

// RawSolution 模型层面的一个解
type RawSolution struct {
	Values    []bool
	Active    []VarKey
	Objective int
	Round     int
}

// DriveResult 多样化求解结果
type DriveResult struct {
	Solutions []RawSolution
	Partial   bool        // 少于请求数量
	Rounds    int         // 实际调用后端的轮数
	Status    SolveStatus // 最后一轮的后端状态
	Exhausted bool        // 割平面下解空间已穷尽
}

// Driver 多样化初始解驱动器
// 每轮调用后端求最优，按多样性筛选后加割平面排除已见过的解
type Driver struct {
	backend Backend
	cfg     DriverConfig
	logger  *logger.SchedulerLogger
}

// NewDriver 创建驱动器
func NewDriver(b Backend, cfg DriverConfig) *Driver {
	if cfg.Count <= 0 {
		cfg.Count = 1
	}
	return &Driver{
		backend: b,
		cfg:     cfg,
		logger:  logger.NewSchedulerLogger().Named("cp_driver"),
	}
}

// Config 当前配置
func (d *Driver) Config() DriverConfig {
	return d.cfg
}

// Run 在模型副本上求取至多 Count 个互不相同且足够分散的解
func (d *Driver) Run(ctx context.Context, m *Model) (*DriveResult, error) {
	rctx := ctx
	if d.cfg.TimeLimit > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, d.cfg.TimeLimit)
		defer cancel()
	}

	work := m.Clone()
	res := &DriveResult{Status: StatusUnknown}
	cutsEnabled := d.cfg.UseNoGoodCuts || d.cfg.DiversityCuts

	for len(res.Solutions) < d.cfg.Count {
		if rctx.Err() != nil {
			break
		}
		res.Rounds++
		round := res.Rounds

		var best []bool
		bestObj := math.MinInt
		found := 0
		status, err := d.backend.Solve(rctx, work, func(values []bool, obj int) bool {
			found++
			if best == nil || obj > bestObj {
				best = append([]bool(nil), values...)
				bestObj = obj
			}
			return rctx.Err() == nil
		})
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, fmt.Sprintf("%s 后端求解失败", d.backend.Name()))
		}
		res.Status = status
		d.logger.CPRound(round, status.String(), found)

		if best == nil {
			res.Exhausted = status == StatusInfeasible
			break
		}

		active := work.Active(best)
		minDist := d.minDistance(active, res.Solutions)
		accepted := len(res.Solutions) == 0 || (minDist > 0 && minDist >= d.cfg.DiversityThreshold)
		if accepted {
			res.Solutions = append(res.Solutions, RawSolution{
				Values:    best,
				Active:    active,
				Objective: bestObj,
				Round:     round,
			})
			if len(res.Solutions) == 1 {
				minDist = 1
			}
			d.logger.SolutionAccepted(len(res.Solutions)-1, bestObj, minDist)
		}

		if !cutsEnabled {
			break
		}
		switch {
		case accepted && d.cfg.DiversityCuts:
			addDiversityCut(work, best, d.cfg.DiversityThreshold, round)
		default:
			addNoGoodCut(work, best, round)
		}
	}

	res.Partial = len(res.Solutions) < d.cfg.Count
	if len(res.Solutions) > 0 {
		return res, nil
	}

	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return res, apperrors.Wrap(ctx.Err(), apperrors.CodeCancelled, "求解已取消")
	case res.Exhausted:
		return res, apperrors.NoFeasibleSolution("约束模型无可行解")
	default:
		return res, apperrors.SearchExhausted(d.cfg.TimeLimit.String())
	}
}

// minDistance 与已保留解的最小 Jaccard 距离，没有已保留解时为 1
func (d *Driver) minDistance(active []VarKey, kept []RawSolution) float64 {
	closest := 1.0
	for _, k := range kept {
		if dist := JaccardDistance(active, k.Active); dist < closest {
			closest = dist
		}
	}
	return closest
}

// JaccardDistance 1 - |A∩B| / |A∪B|，两个空集距离为 0
func JaccardDistance(a, b []VarKey) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[VarKey]struct{}, len(a))
	for _, k := range a {
		set[k] = struct{}{}
	}
	inter := 0
	for _, k := range b {
		if _, ok := set[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return 1 - float64(inter)/float64(union)
}

// addNoGoodCut 排除恰好这一组取值
func addNoGoodCut(m *Model, values []bool, round int) {
	vars := trueVars(values)
	if len(vars) == 0 {
		return
	}
	m.Add(LinearConstraint{
		Name:   fmt.Sprintf("nogood_r%d", round),
		Family: FamilyCut,
		Vars:   vars,
		Op:     OpLE,
		RHS:    len(vars) - 1,
	})
}

// addDiversityCut 后续解与此解的重叠数不超过 ⌊2n(1-t)/(2-t)⌋，
// 在每个教学班恰好一个赋值时等价于 Jaccard 距离不小于 t
func addDiversityCut(m *Model, values []bool, threshold float64, round int) {
	vars := trueVars(values)
	n := len(vars)
	if n == 0 {
		return
	}
	rhs := n - 1
	if threshold > 0 && threshold <= 1 {
		if bound := int(math.Floor(2 * float64(n) * (1 - threshold) / (2 - threshold))); bound < rhs {
			rhs = bound
		}
	}
	m.Add(LinearConstraint{
		Name:   fmt.Sprintf("diversity_r%d", round),
		Family: FamilyCut,
		Vars:   vars,
		Op:     OpLE,
		RHS:    rhs,
	})
}

func trueVars(values []bool) []int {
	var vars []int
	for v, on := range values {
		if on {
			vars = append(vars, v)
		}
	}
	return vars
}
