// Package builtin 提供内置排课约束实现
package builtin

import (
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
)

// BaseConstraint 约束基类
type BaseConstraint struct {
	id     string
	name   string
	typ    constraint.Type
	hard   bool
	weight float64
	level  model.HierarchyLevel
}

// NewBaseConstraint 创建基础约束
func NewBaseConstraint(name string, typ constraint.Type, level model.HierarchyLevel, hard bool, weight float64) *BaseConstraint {
	return &BaseConstraint{
		id:     string(typ),
		name:   name,
		typ:    typ,
		hard:   hard,
		weight: weight,
		level:  level,
	}
}

// ID 返回约束标识
func (c *BaseConstraint) ID() string { return c.id }

// Name 返回约束名称
func (c *BaseConstraint) Name() string { return c.name }

// Type 返回约束类型
func (c *BaseConstraint) Type() constraint.Type { return c.typ }

// IsHard 是否硬约束
func (c *BaseConstraint) IsHard() bool { return c.hard }

// Weight 返回约束权重
func (c *BaseConstraint) Weight() float64 { return c.weight }

// Level 返回约束层级
func (c *BaseConstraint) Level() model.HierarchyLevel { return c.level }

// SetHard 切换软硬（第二层约束按部署配置）
func (c *BaseConstraint) SetHard(hard bool) { c.hard = hard }

// severity 硬约束冲突记为 severe，软约束为 minor
func (c *BaseConstraint) severity() model.Severity {
	if c.hard {
		return model.SeveritySevere
	}
	return model.SeverityMinor
}

// conflict 创建带约束ID的冲突
func (c *BaseConstraint) conflict(t model.ConflictType, sev model.Severity, format string, args ...interface{}) model.SchedulingConflict {
	cf := model.NewConflict(t, sev, format, args...)
	cf.ConstraintID = c.id
	return cf
}

// ratioScore 1 - bad/total，total 为 0 时视为完全满足
func ratioScore(bad, total int) float64 {
	if total <= 0 {
		return 1
	}
	return 1 - float64(bad)/float64(total)
}
