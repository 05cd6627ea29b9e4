package cp

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/scheduler/lookup"
)

// Diagnostic 一条不可行原因
type Diagnostic struct {
	Code       apperrors.Code `json:"code"`
	Family     Family         `json:"family"`
	Message    string         `json:"message"`
	SectionIDs []int          `json:"section_ids,omitempty"`
}

// 诊断时依次尝试关闭的约束族
var diagnosableFamilies = []Family{
	FamilyCapacity,
	FamilyPrerequisite,
	FamilyTeacherAvailability,
	FamilyClassroomAvailability,
	FamilyConverter,
}

var familyCodes = map[Family]apperrors.Code{
	FamilyCapacity:              apperrors.CodeCapacityShortfall,
	FamilyPrerequisite:          apperrors.CodePrerequisiteConflict,
	FamilyTeacherAvailability:   apperrors.CodeAvailabilityConflict,
	FamilyClassroomAvailability: apperrors.CodeAvailabilityConflict,
	FamilyConverter:             apperrors.CodeConstraintViolation,
}

var familyMessages = map[Family]string{
	FamilyCapacity:              "教室容量不足",
	FamilyPrerequisite:          "先修课程无法错开时间段",
	FamilyTeacherAvailability:   "教师不可用时间过多",
	FamilyClassroomAvailability: "教室不可用时间过多",
	FamilyConverter:             "设备或校区约束无法满足",
}

// DefaultDiagnoseTimeout 每次可满足性检查的时限
const DefaultDiagnoseTimeout = 5 * time.Second

// Diagnoser 不可行诊断：逐个关闭约束族重建模型，关闭后可解的族即为原因
type Diagnoser struct {
	backend Backend
	tables  *lookup.Tables
	opts    BuildOptions
	timeout time.Duration
}

// NewDiagnoser 创建诊断器，opts 应与原模型构建时一致
func NewDiagnoser(b Backend, tables *lookup.Tables, opts BuildOptions) *Diagnoser {
	return &Diagnoser{backend: b, tables: tables, opts: opts, timeout: DefaultDiagnoseTimeout}
}

// WithTimeout 设置单次检查时限
func (d *Diagnoser) WithTimeout(t time.Duration) *Diagnoser {
	d.timeout = t
	return d
}

// Diagnose 返回导致不可行的约束族；没有找到时返回一条通用原因
func (d *Diagnoser) Diagnose(ctx context.Context, m *Model) []Diagnostic {
	if pre := m.Infeasible(); len(pre) > 0 {
		return pre
	}

	present := make(map[Family]bool)
	for _, c := range m.Constraints() {
		present[c.Family] = true
	}

	var found []Diagnostic
	for _, f := range diagnosableFamilies {
		if !present[f] || ctx.Err() != nil {
			continue
		}
		opts := d.opts
		opts.Disabled = map[Family]bool{f: true}
		for k, v := range d.opts.Disabled {
			opts.Disabled[k] = v
		}
		relaxed, err := NewBuilder(d.tables, opts).Build()
		if err != nil {
			continue
		}

		cctx, cancel := context.WithTimeout(ctx, d.timeout)
		status, err := Satisfiable(cctx, d.backend, relaxed)
		cancel()
		if err != nil || (status != StatusFeasible && status != StatusOptimal) {
			continue
		}
		found = append(found, Diagnostic{
			Code:    familyCodes[f],
			Family:  f,
			Message: fmt.Sprintf("%s：去掉该类约束后问题可解", familyMessages[f]),
		})
	}

	if len(found) == 0 {
		return []Diagnostic{{
			Code:    apperrors.CodeNoFeasibleSolution,
			Message: "核心约束（教学班必须安排、教师与教室不得冲突）无法同时满足",
		}}
	}
	return found
}

// DiagnosticError 把诊断结果转成错误，首个原因决定错误码
func DiagnosticError(diags []Diagnostic) *apperrors.AppError {
	if len(diags) == 0 {
		return apperrors.NoFeasibleSolution("约束模型无可行解")
	}
	reasons := make([]string, len(diags))
	for i, d := range diags {
		reasons[i] = d.Message
	}
	if diags[0].Code == apperrors.CodePrerequisiteConflict {
		return apperrors.PrerequisiteConflict(diags[0].Message).WithReasons(reasons...)
	}
	return apperrors.New(diags[0].Code, "无可行解: "+diags[0].Message).WithReasons(reasons...)
}
