package model

import (
	"time"

	"github.com/google/uuid"
)

// SchedulingStatus 求解状态
type SchedulingStatus string

const (
	StatusNotStarted               SchedulingStatus = "not_started"
	StatusInitialSolutionGenerated SchedulingStatus = "initial_solution_generated"
	StatusSuccess                  SchedulingStatus = "success"
	StatusPartialSuccess           SchedulingStatus = "partial_success"
	StatusFailure                  SchedulingStatus = "failure"
	StatusCancelled                SchedulingStatus = "cancelled"
	StatusError                    SchedulingStatus = "error"
)

// SchedulingSolutionSet 同一问题的一组候选课表
type SchedulingSolutionSet struct {
	ID           uuid.UUID             `json:"id"`
	Name         string                `json:"name"`
	Problem      *SchedulingProblem    `json:"-"`
	Solutions    []*SchedulingSolution `json:"solutions"`
	PrimaryID    uuid.UUID             `json:"primary_id"`
	AverageScore float64               `json:"average_score"`
	HighScore    float64               `json:"high_score"`
	LowScore     float64               `json:"low_score"`
	Diversity    float64               `json:"diversity"`
	CreatedAt    time.Time             `json:"created_at"`
}

// Primary 返回主方案
func (ss *SchedulingSolutionSet) Primary() *SchedulingSolution {
	for _, s := range ss.Solutions {
		if s.ID == ss.PrimaryID {
			return s
		}
	}
	if len(ss.Solutions) > 0 {
		return ss.Solutions[0]
	}
	return nil
}

// SchedulingStatistics 课表统计
type SchedulingStatistics struct {
	TotalSections        int             `json:"total_sections"`
	AssignedSections     int             `json:"assigned_sections"`
	ClassroomUtilization float64         `json:"classroom_utilization"`
	TeacherUtilization   float64         `json:"teacher_utilization"`
	TimeSlotUtilization  float64         `json:"time_slot_utilization"`
	AverageRoomFill      float64         `json:"average_room_fill"`
	TeacherHours         map[int]float64 `json:"teacher_hours"`
	WorkloadStdDev       float64         `json:"workload_std_dev"`
	WorkloadGini         float64         `json:"workload_gini"`
	FairnessScore        float64         `json:"fairness_score"` // 0-100
	OvertimeTeachers     []int           `json:"overtime_teachers,omitempty"`
	PeakTimeSlots        []int           `json:"peak_time_slots"`
	LowTimeSlots         []int           `json:"low_time_slots"`
	AssignmentsPerDay    map[int]int     `json:"assignments_per_day"`
	ConflictsBySeverity  map[string]int  `json:"conflicts_by_severity,omitempty"`
}

// SchedulingResult 单个方案的结果
type SchedulingResult struct {
	Status     SchedulingStatus      `json:"status"`
	Solution   *SchedulingSolution   `json:"solution,omitempty"`
	Evaluation *SchedulingEvaluation `json:"evaluation,omitempty"`
	Statistics *SchedulingStatistics `json:"statistics,omitempty"`
	Message    string                `json:"message,omitempty"`
}

// SchedulingResultSet 一次求解的完整输出
type SchedulingResultSet struct {
	ID               uuid.UUID              `json:"id"`
	ProblemID        uuid.UUID              `json:"problem_id"`
	Status           SchedulingStatus       `json:"status"`
	Message          string                 `json:"message,omitempty"`
	Code             string                 `json:"code,omitempty"`
	Reasons          []string               `json:"reasons,omitempty"`
	ValidationErrors []string               `json:"validation_errors,omitempty"`
	SolutionSet      *SchedulingSolutionSet `json:"solution_set,omitempty"`
	Results          []SchedulingResult     `json:"results,omitempty"`
	Duration         time.Duration          `json:"duration"`
	CreatedAt        time.Time              `json:"created_at"`
}

// NewResultSet 创建空结果集
func NewResultSet(problem *SchedulingProblem) *SchedulingResultSet {
	rs := &SchedulingResultSet{
		ID:        uuid.New(),
		Status:    StatusNotStarted,
		CreatedAt: time.Now(),
	}
	if problem != nil {
		rs.ProblemID = problem.ID
	}
	return rs
}

// Fail 标记失败
func (rs *SchedulingResultSet) Fail(status SchedulingStatus, code, message string, reasons ...string) *SchedulingResultSet {
	rs.Status = status
	rs.Code = code
	rs.Message = message
	rs.Reasons = append(rs.Reasons, reasons...)
	return rs
}

// Best 返回主方案的结果
func (rs *SchedulingResultSet) Best() *SchedulingResult {
	if rs.SolutionSet == nil || len(rs.Results) == 0 {
		return nil
	}
	primary := rs.SolutionSet.Primary()
	for i := range rs.Results {
		if rs.Results[i].Solution == primary {
			return &rs.Results[i]
		}
	}
	return &rs.Results[0]
}
