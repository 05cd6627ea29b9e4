package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/paiban/kebiao/pkg/errors"
)

// ConstraintLevel CP模型的约束应用级别，后一级包含前一级全部约束
type ConstraintLevel int

const (
	LevelCore     ConstraintLevel = iota + 1 // 唯一分配与资源不冲突
	LevelBasic                               // + 容量、先修
	LevelStandard                            // + 教师/教室不可用
	LevelComplete                            // + 全部转换器
)

// String 级别名称
func (l ConstraintLevel) String() string {
	switch l {
	case LevelCore:
		return "core"
	case LevelBasic:
		return "basic"
	case LevelStandard:
		return "standard"
	case LevelComplete:
		return "complete"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseConstraintLevel 解析级别名称
func ParseConstraintLevel(s string) (ConstraintLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "core":
		return LevelCore, nil
	case "basic":
		return LevelBasic, nil
	case "standard", "":
		return LevelStandard, nil
	case "complete":
		return LevelComplete, nil
	}
	return 0, fmt.Errorf("未知约束级别: %s", s)
}

// MarshalText 文本序列化
func (l ConstraintLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText 文本反序列化
func (l *ConstraintLevel) UnmarshalText(b []byte) error {
	v, err := ParseConstraintLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// 初始解算法
const (
	AlgorithmCP     = "cp"
	AlgorithmGreedy = "greedy"
)

// SchedulingParameters 求解参数
type SchedulingParameters struct {
	// CP 阶段
	CpTimeLimit          int             `json:"cp_time_limit" mapstructure:"cp_time_limit" validate:"gte=1"` // 秒
	InitialSolutionCount int             `json:"initial_solution_count" mapstructure:"initial_solution_count" validate:"gte=1,lte=50"`
	DiversityThreshold   float64         `json:"diversity_threshold" mapstructure:"diversity_threshold" validate:"gte=0,lte=1"`
	ConstraintLevel      ConstraintLevel `json:"constraint_level" mapstructure:"constraint_level" validate:"gte=1,lte=4"`
	MinProficiency       int             `json:"min_proficiency" mapstructure:"min_proficiency" validate:"gte=0,lte=5"`
	UseNoGoodCuts        bool            `json:"use_no_good_cuts" mapstructure:"use_no_good_cuts"`
	DiversityCuts        bool            `json:"diversity_cuts" mapstructure:"diversity_cuts"`
	Algorithm            string          `json:"algorithm" mapstructure:"algorithm" validate:"oneof=cp greedy"`

	// 局部搜索阶段
	MaxLsIterations            int     `json:"max_ls_iterations" mapstructure:"max_ls_iterations" validate:"gte=0"`
	InitialTemperature         float64 `json:"initial_temperature" mapstructure:"initial_temperature" validate:"gt=0"`
	CoolingRate                float64 `json:"cooling_rate" mapstructure:"cooling_rate" validate:"gt=0,lt=1"`
	MinTemperature             float64 `json:"min_temperature" mapstructure:"min_temperature" validate:"gt=0,ltfield=InitialTemperature"`
	MaxNoImprovement           int     `json:"max_no_improvement" mapstructure:"max_no_improvement" validate:"gte=1"`
	EnableParallelOptimization bool    `json:"enable_parallel_optimization" mapstructure:"enable_parallel_optimization"`
	MaxParallelism             int     `json:"max_parallelism" mapstructure:"max_parallelism" validate:"gte=0"`
	Seed                       int64   `json:"seed" mapstructure:"seed"`

	// 约束权重倍率
	HardWeight     float64 `json:"hard_weight" mapstructure:"hard_weight" validate:"gte=0"`
	SoftWeight     float64 `json:"soft_weight" mapstructure:"soft_weight" validate:"gte=0"`
	PhysicalWeight float64 `json:"physical_weight" mapstructure:"physical_weight" validate:"gte=0"`
	QualityWeight  float64 `json:"quality_weight" mapstructure:"quality_weight" validate:"gte=0"`

	// 约束行为
	AvailabilityAsHard    bool    `json:"availability_as_hard" mapstructure:"availability_as_hard"`
	EnforceWorkloadLimits bool    `json:"enforce_workload_limits" mapstructure:"enforce_workload_limits"`
	CompactnessThreshold  int     `json:"compactness_threshold" mapstructure:"compactness_threshold" validate:"gte=1"`
	HardThreshold         float64 `json:"hard_threshold" mapstructure:"hard_threshold" validate:"gte=0,lte=1"`
}

// DefaultParameters 返回默认参数
func DefaultParameters() SchedulingParameters {
	return SchedulingParameters{
		CpTimeLimit:          60,
		InitialSolutionCount: 3,
		DiversityThreshold:   0.2,
		ConstraintLevel:      LevelStandard,
		MinProficiency:       3,
		UseNoGoodCuts:        true,
		DiversityCuts:        true,
		Algorithm:            AlgorithmCP,

		MaxLsIterations:            1000,
		InitialTemperature:         1.0,
		CoolingRate:                0.995,
		MinTemperature:             0.01,
		MaxNoImprovement:           100,
		EnableParallelOptimization: false,
		MaxParallelism:             0,
		Seed:                       1,

		HardWeight:     1.0,
		SoftWeight:     1.0,
		PhysicalWeight: 1.0,
		QualityWeight:  1.0,

		AvailabilityAsHard:    true,
		EnforceWorkloadLimits: false,
		CompactnessThreshold:  3,
		HardThreshold:         1.0,
	}
}

// CpTimeout CP阶段时限
func (p SchedulingParameters) CpTimeout() time.Duration {
	return time.Duration(p.CpTimeLimit) * time.Second
}

var validate = validator.New()

// Validate 校验参数
func (p SchedulingParameters) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "参数校验失败")
	}
	ve := &apperrors.ValidationErrors{}
	for _, fe := range verrs {
		ve.Add(fe.Field(), fmt.Sprintf("不满足规则 %s=%s (值 %v)", fe.Tag(), fe.Param(), fe.Value()))
	}
	return ve.ToAppError()
}
