package model

import (
	"encoding/json"
	"testing"
)

func TestSolution_AssignUnassign(t *testing.T) {
	p := newTestProblem()
	s := NewSolution(p, "test")

	if s.Len() != 0 || s.Capacity() != 2 || s.IsComplete() {
		t.Fatalf("新课表: Len=%d Capacity=%d", s.Len(), s.Capacity())
	}
	if s.Assign(NewAssignment(p, 99, 1, 1, 1)) {
		t.Error("不存在的教学班应返回 false")
	}

	s.Assign(NewAssignment(p, 1, 1, 1, 1))
	s.Evaluation = &SchedulingEvaluation{IsFeasible: true}
	s.Assign(NewAssignment(p, 1, 2, 2, 2)) // 覆盖
	if s.Len() != 1 {
		t.Errorf("覆盖后 Len = %d, want 1", s.Len())
	}
	if s.Evaluation != nil {
		t.Error("修改分配后应清除评估结果")
	}
	a, ok := s.Get(1)
	if !ok || a.TeacherID != 2 || a.TimeSlotID != 2 {
		t.Errorf("Get(1) = %+v, %v", a, ok)
	}
	if a.DayOfWeek != 1 || a.StartTime != NewClock(10, 0) || a.EndTime != NewClock(11, 40) {
		t.Errorf("时间字段未补齐: %+v", a)
	}

	s.AssignAt(1, NewAssignment(p, 2, 1, 1, 1))
	if !s.IsComplete() {
		t.Error("两个教学班都已分配")
	}

	s.Unassign(1)
	s.Unassign(1) // 重复移除不影响计数
	if s.Len() != 1 {
		t.Errorf("Unassign 后 Len = %d, want 1", s.Len())
	}
	if _, ok := s.Get(1); ok {
		t.Error("已移除的教学班不应有分配")
	}
	if _, ok := s.At(5); ok {
		t.Error("越界位置应返回 false")
	}
	if got := s.AssignedPositions(); len(got) != 1 || got[0] != 1 {
		t.Errorf("AssignedPositions = %v, want [1]", got)
	}
}

func TestSolution_CloneIndependent(t *testing.T) {
	p := newTestProblem()
	s := NewSolution(p, "cp")
	s.Assign(NewAssignment(p, 1, 1, 1, 1))
	s.Evaluation = &SchedulingEvaluation{Score: 0.5, IsFeasible: true}

	c := s.Clone()
	if c.ID == s.ID {
		t.Error("副本应有新的 ID")
	}
	if c.Evaluation != nil {
		t.Error("副本不复制评估结果")
	}
	if c.Algorithm != "cp" || c.Len() != 1 {
		t.Errorf("副本内容错误: %s %d", c.Algorithm, c.Len())
	}

	c.Assign(NewAssignment(p, 1, 2, 2, 2))
	c.Assign(NewAssignment(p, 2, 1, 1, 2))
	if a, _ := s.Get(1); a.TeacherID != 1 {
		t.Error("修改副本不应影响原课表")
	}
	if s.Len() != 1 {
		t.Errorf("原课表 Len = %d, want 1", s.Len())
	}
}

func TestSolution_CopyFrom(t *testing.T) {
	p := newTestProblem()
	src := NewSolution(p, "sa")
	src.Assign(NewAssignment(p, 1, 1, 1, 1))
	src.Assign(NewAssignment(p, 2, 2, 2, 2))
	src.Evaluation = &SchedulingEvaluation{Score: 0.8, IsFeasible: true}

	dst := NewSolution(p, "sa")
	dst.Assign(NewAssignment(p, 1, 2, 2, 1))
	id := dst.ID
	dst.CopyFrom(src)

	if dst.ID != id {
		t.Error("CopyFrom 不应改变 ID")
	}
	if !dst.IsComplete() || dst.Score() != 0.8 {
		t.Errorf("CopyFrom 后 Len=%d Score=%v", dst.Len(), dst.Score())
	}
	if a, _ := dst.Get(1); a.TeacherID != 1 {
		t.Errorf("Get(1) = %+v", a)
	}

	src.Unassign(2)
	if !dst.IsComplete() {
		t.Error("修改源课表不应影响目标课表")
	}
}

func TestSolution_MarshalJSON(t *testing.T) {
	p := newTestProblem()
	s := NewSolution(p, "greedy")
	s.Assign(NewAssignment(p, 2, 2, 1, 2))

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	var out struct {
		ID          string `json:"id"`
		Algorithm   string `json:"algorithm"`
		Assignments []struct {
			SectionID  int    `json:"section_id"`
			TimeSlotID int    `json:"time_slot_id"`
			StartTime  string `json:"start_time"`
		} `json:"assignments"`
		Evaluation *json.RawMessage `json:"evaluation"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if out.ID != s.ID.String() || out.Algorithm != "greedy" {
		t.Errorf("id/algorithm = %s/%s", out.ID, out.Algorithm)
	}
	if len(out.Assignments) != 1 {
		t.Fatalf("assignments = %d, want 1", len(out.Assignments))
	}
	if a := out.Assignments[0]; a.SectionID != 2 || a.TimeSlotID != 2 || a.StartTime != "10:00" {
		t.Errorf("assignment = %+v", a)
	}
	if out.Evaluation != nil {
		t.Error("未评估时不应输出 evaluation")
	}
}
