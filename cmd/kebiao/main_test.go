package main

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/model"
)

const sampleProblem = `{
  "name": "2024 秋季",
  "sections": [{"id": 1, "course_id": 11, "enrollment": 30}],
  "teachers": [{"id": 1, "name": "张老师"}],
  "classrooms": [{"id": 1, "name": "A101", "capacity": 40}],
  "time_slots": [{"id": 1, "day_of_week": 1, "start": "08:00", "end": "09:40"}]
}`

func TestReadProblem(t *testing.T) {
	p, err := readProblem(strings.NewReader(sampleProblem))
	if err != nil {
		t.Fatalf("readProblem() error = %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("缺少 ID 时应生成新 ID")
	}
	if p.TimeSlots[0].End != model.NewClock(9, 40) {
		t.Errorf("End = %v", p.TimeSlots[0].End)
	}
	if p.Section(1) == nil {
		t.Error("索引未建立")
	}

	if _, err := readProblem(strings.NewReader(`{"sections": [], "rooms": []}`)); !apperrors.Is(err, apperrors.CodeInvalidInput) {
		t.Errorf("未知字段应报 INVALID_INPUT, got %v", err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name   string
		status model.SchedulingStatus
		err    error
		want   int
	}{
		{"成功", model.StatusSuccess, nil, exitOK},
		{"部分成功", model.StatusPartialSuccess, nil, exitOK},
		{"无解", model.StatusFailure, apperrors.NoFeasibleSolution("x"), exitInfeasible},
		{"先修冲突", model.StatusFailure, apperrors.PrerequisiteConflict("x"), exitInfeasible},
		{"搜索超时", model.StatusFailure, apperrors.SearchExhausted("1s"), exitFailure},
		{"输入无效", model.StatusFailure, apperrors.InvalidInput("sections", "x"), exitFailure},
		{"取消", model.StatusCancelled, apperrors.New(apperrors.CodeCancelled, "x"), exitFailure},
		{"内部错误", model.StatusError, apperrors.New(apperrors.CodeInternal, "x"), exitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := &model.SchedulingResultSet{Status: tt.status}
			if got := exitCode(rs, tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
