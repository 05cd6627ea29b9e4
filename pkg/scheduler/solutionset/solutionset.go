// Package solutionset 管理同一问题的多个候选课表
package solutionset

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/cp"
)

// DiffKind 单个教学班在两个课表间的差异类型
type DiffKind string

const (
	DiffIdentical DiffKind = "identical"
	DiffDifferent DiffKind = "different"
	DiffOnlyLeft  DiffKind = "only_left"
	DiffOnlyRight DiffKind = "only_right"
)

// SectionDiff 单个教学班的对比结果
type SectionDiff struct {
	SectionID int                         `json:"section_id"`
	Kind      DiffKind                    `json:"kind"`
	Left      *model.SchedulingAssignment `json:"left,omitempty"`
	Right     *model.SchedulingAssignment `json:"right,omitempty"`
}

// Comparison 两个课表的对比
type Comparison struct {
	Sections   []SectionDiff `json:"sections"`
	Identical  int           `json:"identical"`
	Different  int           `json:"different"`
	OnlyLeft   int           `json:"only_left"`
	OnlyRight  int           `json:"only_right"`
	Difference float64       `json:"difference"` // 百分比
	ScoreDelta float64       `json:"score_delta"`
}

// CompareSolutions 按教学班对比两个课表
func CompareSolutions(left, right *model.SchedulingSolution) *Comparison {
	l := byOwnSection(left)
	r := byOwnSection(right)
	ids := lo.Union(lo.Keys(l), lo.Keys(r))
	sort.Ints(ids)

	c := &Comparison{Sections: make([]SectionDiff, 0, len(ids))}
	for _, id := range ids {
		la, inL := l[id]
		ra, inR := r[id]
		d := SectionDiff{SectionID: id}
		switch {
		case inL && inR:
			d.Left, d.Right = &la, &ra
			if la.SameResources(ra) {
				d.Kind = DiffIdentical
				c.Identical++
			} else {
				d.Kind = DiffDifferent
				c.Different++
			}
		case inL:
			d.Left = &la
			d.Kind = DiffOnlyLeft
			c.OnlyLeft++
		default:
			d.Right = &ra
			d.Kind = DiffOnlyRight
			c.OnlyRight++
		}
		c.Sections = append(c.Sections, d)
	}
	if len(ids) > 0 {
		c.Difference = float64(c.Different+c.OnlyLeft+c.OnlyRight) / float64(len(ids)) * 100
	}
	c.ScoreDelta = right.Score() - left.Score()
	return c
}

func byOwnSection(s *model.SchedulingSolution) map[int]model.SchedulingAssignment {
	return lo.KeyBy(s.Assignments(), func(a model.SchedulingAssignment) int { return a.SectionID })
}

// PairwiseDiversity 两个课表分配元组集合的 Jaccard 距离
func PairwiseDiversity(a, b *model.SchedulingSolution) float64 {
	return cp.JaccardDistance(cp.ToKeys(a), cp.ToKeys(b))
}

// Manager 候选课表集合
// 非并发安全，由求解流程在单个协程中维护
type Manager struct {
	set *model.SchedulingSolutionSet
}

// NewManager 创建集合
func NewManager(p *model.SchedulingProblem, name string) *Manager {
	return &Manager{set: &model.SchedulingSolutionSet{
		ID:        uuid.New(),
		Name:      name,
		Problem:   p,
		CreatedAt: time.Now(),
	}}
}

// Add 加入课表，第一个课表成为主方案
func (m *Manager) Add(s *model.SchedulingSolution) {
	if s == nil {
		return
	}
	m.set.Solutions = append(m.set.Solutions, s)
	if len(m.set.Solutions) == 1 {
		m.set.PrimaryID = s.ID
	}
	m.refresh()
}

// AddDiverse 与已有课表的最小差异不低于 threshold 时才加入
func (m *Manager) AddDiverse(s *model.SchedulingSolution, threshold float64) bool {
	if s == nil {
		return false
	}
	for _, o := range m.set.Solutions {
		if PairwiseDiversity(s, o) < threshold {
			return false
		}
	}
	m.Add(s)
	return true
}

// SetPrimary 指定主方案，id 不在集合中返回 false
func (m *Manager) SetPrimary(id uuid.UUID) bool {
	if _, ok := lo.Find(m.set.Solutions, func(s *model.SchedulingSolution) bool { return s.ID == id }); !ok {
		return false
	}
	m.set.PrimaryID = id
	return true
}

// Primary 主方案
func (m *Manager) Primary() *model.SchedulingSolution {
	return m.set.Primary()
}

// PromoteBest 把适应度最高的课表设为主方案
func (m *Manager) PromoteBest() *model.SchedulingSolution {
	ranked := m.Ranked()
	if len(ranked) == 0 {
		return nil
	}
	m.set.PrimaryID = ranked[0].ID
	return ranked[0]
}

// Ranked 按适应度降序返回，未评估的排在最后，同分保持加入顺序
func (m *Manager) Ranked() []*model.SchedulingSolution {
	out := make([]*model.SchedulingSolution, len(m.set.Solutions))
	copy(out, m.set.Solutions)
	sort.SliceStable(out, func(i, j int) bool {
		return fitness(out[i]) > fitness(out[j])
	})
	return out
}

func fitness(s *model.SchedulingSolution) float64 {
	if s.Evaluation == nil {
		return -1
	}
	return s.Evaluation.Fitness()
}

// Len 课表数量
func (m *Manager) Len() int {
	return len(m.set.Solutions)
}

// Set 返回底层集合，指标已更新
func (m *Manager) Set() *model.SchedulingSolutionSet {
	m.refresh()
	return m.set
}

// refresh 重新计算分数与多样性指标
func (m *Manager) refresh() {
	set := m.set
	set.AverageScore, set.HighScore, set.LowScore = 0, 0, 0
	scored := lo.Filter(set.Solutions, func(s *model.SchedulingSolution, _ int) bool { return s.Evaluation != nil })
	if len(scored) > 0 {
		scores := lo.Map(scored, func(s *model.SchedulingSolution, _ int) float64 { return s.Evaluation.Score })
		set.AverageScore = lo.Sum(scores) / float64(len(scores))
		set.HighScore = lo.Max(scores)
		set.LowScore = lo.Min(scores)
	}
	set.Diversity = Diversity(set.Solutions)
}

// Diversity 两两差异百分比的均值，少于两个课表时为 0
func Diversity(solutions []*model.SchedulingSolution) float64 {
	n := len(solutions)
	if n < 2 {
		return 0
	}
	var sum float64
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += CompareSolutions(solutions[i], solutions[j]).Difference
			pairs++
		}
	}
	return sum / float64(pairs)
}
