// Package constraints 约束目录
package constraints

import (
	"fmt"

	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
	"github.com/paiban/kebiao/pkg/scheduler/constraint/builtin"
)

// ConstraintParam 影响约束行为的求解参数
type ConstraintParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int, float, bool
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
}

// ConstraintDefinition 约束定义
type ConstraintDefinition struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Type        string            `json:"type"`     // hard 硬约束, soft 软约束
	Category    string            `json:"category"` // 分类
	Level       string            `json:"level"`
	Weight      float64           `json:"weight"`
	Description string            `json:"description"`
	Params      []ConstraintParam `json:"params,omitempty"`
}

// LibraryResponse 约束库响应
type LibraryResponse struct {
	Library []ConstraintDefinition `json:"library"`
	Summary map[string]interface{} `json:"summary"`
}

type entry struct {
	category    string
	description string
	params      []ConstraintParam
}

func weightParam(name, desc string) ConstraintParam {
	return ConstraintParam{Name: name, Type: "float", Description: desc, Default: "1.0", Min: "0"}
}

var catalog = map[constraint.Type]entry{
	// 第一层
	constraint.TypeTeacherConflict: {
		category:    "资源冲突",
		description: "同一教师在同一时间段最多上一门课。",
		params:      []ConstraintParam{weightParam("hard_weight", "第一、二层权重倍率")},
	},
	constraint.TypeClassroomConflict: {
		category:    "资源冲突",
		description: "同一教室在同一时间段最多安排一个教学班。",
		params:      []ConstraintParam{weightParam("hard_weight", "第一、二层权重倍率")},
	},
	constraint.TypeSectionCoverage: {
		category:    "完整性",
		description: "每个教学班恰好获得一次（教师, 教室, 时间段）分配。",
	},

	// 第二层
	constraint.TypeTeacherAvailability: {
		category:    "可用时间",
		description: "不把课排到教师声明不可用的时间段。",
		params: []ConstraintParam{
			{Name: "availability_as_hard", Type: "bool", Description: "作为硬约束", Default: "true"},
		},
	},
	constraint.TypeClassroomAvailability: {
		category:    "可用时间",
		description: "不把课排到教室不可用的时间段。",
		params: []ConstraintParam{
			{Name: "availability_as_hard", Type: "bool", Description: "作为硬约束", Default: "true"},
		},
	},
	constraint.TypePrerequisite: {
		category:    "教学计划",
		description: "先修课程与后续课程的教学班不排在同一时间段。",
	},
	constraint.TypeTeacherWorkload: {
		category:    "工作量",
		description: "教师每周、每天课时及连续上课节数不超过上限。",
		params: []ConstraintParam{
			{Name: "enforce_workload_limits", Type: "bool", Description: "作为硬约束", Default: "false"},
		},
	},

	// 第三层
	constraint.TypeClassroomCapacity: {
		category:    "物理适配",
		description: "教室容量不低于选课人数，按占用率分级计分。",
		params:      []ConstraintParam{weightParam("hard_weight", "硬约束权重倍率")},
	},
	constraint.TypeRoomTypeMatch: {
		category:    "物理适配",
		description: "教室类型与课程要求一致，同类型族部分匹配。",
		params:      []ConstraintParam{weightParam("physical_weight", "第三层权重倍率")},
	},
	constraint.TypeEquipmentMatch: {
		category:    "物理适配",
		description: "教室具备课程要求的全部教学设备。",
		params:      []ConstraintParam{weightParam("physical_weight", "第三层权重倍率")},
	},

	// 第四层
	constraint.TypeTeacherPreference: {
		category:    "教学质量",
		description: "优先安排熟练度与意愿更高的教师。",
		params: []ConstraintParam{
			weightParam("quality_weight", "第四层权重倍率"),
			{Name: "min_proficiency", Type: "int", Description: "候选教师最低熟练度", Default: "3", Min: "0", Max: "5"},
		},
	},
	constraint.TypeTeacherMobility: {
		category:    "教学质量",
		description: "教师相邻两节课尽量在同一教学楼。",
		params:      []ConstraintParam{weightParam("quality_weight", "第四层权重倍率")},
	},
	constraint.TypeTeacherCompactness: {
		category:    "教学质量",
		description: "教师一天内课程之间的空档尽量少。",
		params: []ConstraintParam{
			weightParam("quality_weight", "第四层权重倍率"),
			{Name: "compactness_threshold", Type: "int", Description: "允许的最大空档节数", Default: "3", Min: "1"},
		},
	},
}

// GetLibrary 按求解参数列出当前生效的全部约束
// 软硬属性与权重取自注册后的约束实例
func GetLibrary(params model.SchedulingParameters) LibraryResponse {
	ev := builtin.NewDefaultEvaluator(params)
	m := ev.Manager()

	all := m.GetAll()
	defs := make([]ConstraintDefinition, 0, len(all))
	for _, c := range all {
		e, ok := catalog[c.Type()]
		if !ok {
			e = entry{category: "其他", description: fmt.Sprintf("未登记的约束 %s", c.ID())}
		}
		defs = append(defs, ConstraintDefinition{
			Name:        c.ID(),
			DisplayName: c.Name(),
			Type:        string(constraint.CategoryOf(c)),
			Category:    e.category,
			Level:       c.Level().String(),
			Weight:      ev.EffectiveWeight(c),
			Description: e.description,
			Params:      e.params,
		})
	}
	return LibraryResponse{Library: defs, Summary: m.Summary()}
}
