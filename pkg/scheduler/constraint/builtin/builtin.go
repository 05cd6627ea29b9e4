package builtin

import (
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/constraint"
)

// 默认权重
const (
	WeightCore     = 100.0
	WeightVariable = 80.0
	WeightPhysical = 60.0
	WeightQuality  = 40.0
)

// RegisterDefaultConstraints 按求解参数注册全部内置约束
func RegisterDefaultConstraints(manager *constraint.Manager, params model.SchedulingParameters) {
	// 第一层：核心硬约束
	manager.Register(NewTeacherConflictConstraint(WeightCore))
	manager.Register(NewClassroomConflictConstraint(WeightCore))
	manager.Register(NewSectionCoverageConstraint(WeightCore))

	// 第二层：可配置硬约束
	manager.Register(NewTeacherAvailabilityConstraint(WeightVariable, params.AvailabilityAsHard))
	manager.Register(NewClassroomAvailabilityConstraint(WeightVariable, params.AvailabilityAsHard))
	manager.Register(NewPrerequisiteConstraint(WeightVariable))
	manager.Register(NewTeacherWorkloadConstraint(WeightVariable*0.5, params.EnforceWorkloadLimits))

	// 第三层：物理适配
	manager.Register(NewClassroomCapacityConstraint(WeightCore))
	manager.Register(NewRoomTypeMatchConstraint(WeightPhysical))
	manager.Register(NewEquipmentMatchConstraint(WeightPhysical * 0.75))

	// 第四层：质量偏好
	manager.Register(NewTeacherPreferenceConstraint(WeightQuality))
	manager.Register(NewTeacherMobilityConstraint(WeightQuality * 0.75))
	manager.Register(NewTeacherCompactnessConstraint(WeightQuality*0.5, params.CompactnessThreshold))
}

// NewDefaultEvaluator 创建注册了全部内置约束的评估器
func NewDefaultEvaluator(params model.SchedulingParameters) *constraint.Evaluator {
	m := constraint.NewManager()
	RegisterDefaultConstraints(m, params)
	return constraint.NewEvaluator(m, constraint.WeightsFromParameters(params), params.HardThreshold)
}
