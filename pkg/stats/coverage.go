package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/paiban/kebiao/pkg/model"
)

// SlotLoad 单个时间段的占用
type SlotLoad struct {
	TimeSlotID int     `json:"time_slot_id"`
	DayOfWeek  int     `json:"day_of_week"`
	Count      int     `json:"count"`
	RoomUsage  float64 `json:"room_usage"` // 占用教室比例 (%)
}

// Analyzer 课表统计分析器
type Analyzer struct {
	fairness *FairnessAnalyzer
}

// NewAnalyzer 创建统计分析器
func NewAnalyzer() *Analyzer {
	return &Analyzer{fairness: NewFairnessAnalyzer()}
}

// Analyze 统计资源利用率与教师课时
func (an *Analyzer) Analyze(s *model.SchedulingSolution) *model.SchedulingStatistics {
	p := s.Problem
	all := s.Assignments()
	st := &model.SchedulingStatistics{
		TotalSections:     len(p.Sections),
		AssignedSections:  len(all),
		TeacherHours:      make(map[int]float64),
		AssignmentsPerDay: make(map[int]int),
	}

	rooms, teachers, slots := len(p.Classrooms), len(p.Teachers), len(p.TimeSlots)
	if rooms > 0 && slots > 0 {
		used := lo.Uniq(lo.Map(all, func(a model.SchedulingAssignment, _ int) [2]int {
			return [2]int{a.ClassroomID, a.TimeSlotID}
		}))
		st.ClassroomUtilization = float64(len(used)) / float64(rooms*slots) * 100
	}
	if teachers > 0 {
		active := lo.Uniq(lo.Map(all, func(a model.SchedulingAssignment, _ int) int { return a.TeacherID }))
		st.TeacherUtilization = float64(len(active)) / float64(teachers) * 100
	}
	if slots > 0 {
		usedSlots := lo.Uniq(lo.Map(all, func(a model.SchedulingAssignment, _ int) int { return a.TimeSlotID }))
		st.TimeSlotUtilization = float64(len(usedSlots)) / float64(slots) * 100
	}

	var fill float64
	for _, a := range all {
		st.AssignmentsPerDay[a.DayOfWeek]++
		sec, room := p.Section(a.SectionID), p.Classroom(a.ClassroomID)
		if sec != nil && room != nil && room.Capacity > 0 {
			fill += float64(sec.Enrollment) / float64(room.Capacity)
		}
	}
	if len(all) > 0 {
		st.AverageRoomFill = fill / float64(len(all)) * 100
	}

	fm := an.fairness.Analyze(s)
	for _, ts := range fm.TeacherStats {
		st.TeacherHours[ts.TeacherID] = ts.TotalHours
		if ts.OvertimeHours > 0 {
			st.OvertimeTeachers = append(st.OvertimeTeachers, ts.TeacherID)
		}
	}
	sort.Ints(st.OvertimeTeachers)
	st.WorkloadStdDev = fm.WorkloadStdDev
	st.WorkloadGini = fm.WorkloadGini
	st.FairnessScore = fm.OverallFairnessScore

	st.PeakTimeSlots, st.LowTimeSlots = peakAndLow(SlotLoads(s))

	if s.Evaluation != nil && len(s.Evaluation.Conflicts) > 0 {
		st.ConflictsBySeverity = make(map[string]int)
		for _, c := range s.Evaluation.Conflicts {
			st.ConflictsBySeverity[string(c.Severity)]++
		}
	}
	return st
}

// SlotLoads 每个时间段的课程数，按问题中的时间段顺序
func SlotLoads(s *model.SchedulingSolution) []SlotLoad {
	p := s.Problem
	counts := lo.CountValuesBy(s.Assignments(), func(a model.SchedulingAssignment) int { return a.TimeSlotID })
	loads := make([]SlotLoad, len(p.TimeSlots))
	for i, ts := range p.TimeSlots {
		loads[i] = SlotLoad{TimeSlotID: ts.ID, DayOfWeek: ts.DayOfWeek, Count: counts[ts.ID]}
		if len(p.Classrooms) > 0 {
			loads[i].RoomUsage = float64(counts[ts.ID]) / float64(len(p.Classrooms)) * 100
		}
	}
	return loads
}

// peakAndLow 课程最多与最少的时间段，全部相同时不区分高峰低谷
func peakAndLow(loads []SlotLoad) (peak, low []int) {
	if len(loads) == 0 {
		return nil, nil
	}
	maxC, minC := math.MinInt, math.MaxInt
	for _, l := range loads {
		maxC = max(maxC, l.Count)
		minC = min(minC, l.Count)
	}
	if maxC == minC {
		return nil, nil
	}
	for _, l := range loads {
		switch l.Count {
		case maxC:
			peak = append(peak, l.TimeSlotID)
		case minC:
			low = append(low, l.TimeSlotID)
		}
	}
	sort.Ints(peak)
	sort.Ints(low)
	return peak, low
}

// GenerateReport 生成文本统计报告
func GenerateReport(st *model.SchedulingStatistics) string {
	var b strings.Builder
	b.WriteString("=== 课表统计报告 ===\n\n")

	b.WriteString("【整体情况】\n")
	fmt.Fprintf(&b, "  教学班: %d/%d 已安排\n", st.AssignedSections, st.TotalSections)
	fmt.Fprintf(&b, "  教室利用率: %.1f%%\n", st.ClassroomUtilization)
	fmt.Fprintf(&b, "  教师利用率: %.1f%%\n", st.TeacherUtilization)
	fmt.Fprintf(&b, "  时间段利用率: %.1f%%\n", st.TimeSlotUtilization)
	fmt.Fprintf(&b, "  平均上座率: %.1f%%\n\n", st.AverageRoomFill)

	b.WriteString("【教师课时】\n")
	ids := lo.Keys(st.TeacherHours)
	sort.Ints(ids)
	for _, id := range ids {
		fmt.Fprintf(&b, "  - 教师 %d: %.1f 小时\n", id, st.TeacherHours[id])
	}
	fmt.Fprintf(&b, "  课时标准差: %.2f\n", st.WorkloadStdDev)
	fmt.Fprintf(&b, "  基尼系数: %.3f\n", st.WorkloadGini)
	fmt.Fprintf(&b, "  公平性评分: %.1f\n", st.FairnessScore)
	if len(st.OvertimeTeachers) > 0 {
		fmt.Fprintf(&b, "  超出周课时上限: %v\n", st.OvertimeTeachers)
	}

	if len(st.PeakTimeSlots) > 0 {
		fmt.Fprintf(&b, "\n【高峰时间段】 %v\n", st.PeakTimeSlots)
	}
	if len(st.ConflictsBySeverity) > 0 {
		b.WriteString("\n【冲突】\n")
		sev := lo.Keys(st.ConflictsBySeverity)
		sort.Strings(sev)
		for _, s := range sev {
			fmt.Fprintf(&b, "  - %s: %d\n", s, st.ConflictsBySeverity[s])
		}
	}
	return b.String()
}
