package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsInfeasible(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"无可行解", NoFeasibleSolution("x"), true},
		{"容量不足", CapacityShortfall([]int{1, 2}), true},
		{"先修冲突", PrerequisiteConflict("x"), true},
		{"可用时间冲突", New(CodeAvailabilityConflict, "x"), true},
		{"包装后仍可识别", fmt.Errorf("solve: %w", NoFeasibleSolution("x")), true},
		{"搜索超时", SearchExhausted("1s"), false},
		{"输入无效", InvalidInput("sections", "x"), false},
		{"普通错误", errors.New("x"), false},
		{"空错误", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsInfeasible(tt.err); got != tt.want {
				t.Errorf("IsInfeasible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluationFailed(t *testing.T) {
	cause := errors.New("index out of range")
	err := EvaluationFailed("teacher_conflict", cause)

	if err.Code != CodeEvaluationFailed {
		t.Errorf("Code = %s", err.Code)
	}
	if !errors.Is(err, cause) {
		t.Error("应能通过 errors.Is 找到原因")
	}
	if !strings.Contains(err.Error(), "teacher_conflict") || !strings.Contains(err.Error(), "index out of range") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestPrerequisiteConflict(t *testing.T) {
	err := PrerequisiteConflict("课程 11 与 12").WithReasons("a", "b")
	if GetCode(err) != CodePrerequisiteConflict {
		t.Errorf("GetCode() = %s", GetCode(err))
	}
	if !strings.Contains(err.Message, "先修") {
		t.Errorf("Message = %q", err.Message)
	}
	if got := GetReasons(err); len(got) != 2 {
		t.Errorf("GetReasons() = %v", got)
	}
}

func TestValidationErrors_ToAppError(t *testing.T) {
	ve := &ValidationErrors{}
	if ve.HasErrors() {
		t.Fatal("新建的集合不应有错误")
	}
	ve.Add("classrooms[0].capacity", "必须大于 0")
	ve.Add("time_slots", "不能为空")

	err := ve.ToAppError()
	if err.Code != CodeValidationFail {
		t.Errorf("Code = %s", err.Code)
	}
	if len(err.Fields) != 2 {
		t.Errorf("Fields = %v", err.Fields)
	}
	if len(err.Reasons) != 2 || err.Reasons[1] != "time_slots: 不能为空" {
		t.Errorf("Reasons = %v", err.Reasons)
	}
}

func TestGetCode_Unknown(t *testing.T) {
	if got := GetCode(errors.New("x")); got != CodeUnknown {
		t.Errorf("GetCode() = %s, want %s", got, CodeUnknown)
	}
}
