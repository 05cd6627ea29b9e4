package model

import (
	"time"

	"github.com/google/uuid"
)

// HierarchyLevel 约束层级
type HierarchyLevel int

const (
	Level1CoreHard     HierarchyLevel = 1 // 核心硬约束，不可违反
	Level2VariableHard HierarchyLevel = 2 // 可配置硬约束
	Level3PhysicalSoft HierarchyLevel = 3 // 物理适配
	Level4QualitySoft  HierarchyLevel = 4 // 质量偏好
)

// String 层级名称
func (l HierarchyLevel) String() string {
	switch l {
	case Level1CoreHard:
		return "core_hard"
	case Level2VariableHard:
		return "variable_hard"
	case Level3PhysicalSoft:
		return "physical_soft"
	case Level4QualitySoft:
		return "quality_soft"
	}
	return "unknown"
}

// ConstraintEvaluation 单个约束的评估结果
type ConstraintEvaluation struct {
	ConstraintID string         `json:"constraint_id"`
	Name         string         `json:"name"`
	Level        HierarchyLevel `json:"level"`
	IsHard       bool           `json:"is_hard"`
	Weight       float64        `json:"weight"`
	Score        float64        `json:"score"`
	Conflicts    int            `json:"conflicts"`
	Error        string         `json:"error,omitempty"`
}

// SchedulingEvaluation 一次评估的结果，每次评估新建，不修改课表
// Score 为软约束加权平均，HardScore 为硬约束加权满足程度
type SchedulingEvaluation struct {
	SolutionID            uuid.UUID              `json:"solution_id"`
	Score                 float64                `json:"score"`
	IsFeasible            bool                   `json:"is_feasible"`
	HardScore             float64                `json:"hard_score"`
	SoftScore             float64                `json:"soft_score"`
	ConstraintEvaluations []ConstraintEvaluation `json:"constraint_evaluations"`
	Conflicts             []SchedulingConflict   `json:"conflicts"`
	EvaluatedAt           time.Time              `json:"evaluated_at"`
}

// Fitness 搜索使用的综合适应度：可行解总高于不可行解
// 可行解落在 [1,2]，不可行解按硬约束满足程度落在 [0,1)
func (e *SchedulingEvaluation) Fitness() float64 {
	if e == nil {
		return 0
	}
	if e.IsFeasible {
		return 1 + e.Score
	}
	if e.HardScore >= 1 {
		return 0.999
	}
	return e.HardScore
}

// HardConflicts 硬约束产生的冲突
func (e *SchedulingEvaluation) HardConflicts() []SchedulingConflict {
	var out []SchedulingConflict
	hard := make(map[string]bool)
	for _, ce := range e.ConstraintEvaluations {
		if ce.IsHard {
			hard[ce.ConstraintID] = true
		}
	}
	for _, c := range e.Conflicts {
		if hard[c.ConstraintID] || c.Type == ConflictEvaluationError {
			out = append(out, c)
		}
	}
	return out
}

// ConflictsOfType 按类型筛选冲突
func (e *SchedulingEvaluation) ConflictsOfType(t ConflictType) []SchedulingConflict {
	var out []SchedulingConflict
	for _, c := range e.Conflicts {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}
