// Package stats 提供课表统计分析功能
package stats

import (
	"math"
	"sort"

	"github.com/paiban/kebiao/pkg/model"
)

// FairnessMetrics 教师工作量公平性指标
type FairnessMetrics struct {
	WorkloadGini       float64 `json:"workload_gini"` // 0=完全公平, 1=完全不公平
	WorkloadVariance   float64 `json:"workload_variance"`
	WorkloadStdDev     float64 `json:"workload_std_dev"`
	AvgHoursPerTeacher float64 `json:"avg_hours_per_teacher"`
	MaxHours           float64 `json:"max_hours"`
	MinHours           float64 `json:"min_hours"`
	HoursRange         float64 `json:"hours_range"`

	TeacherStats []TeacherStat `json:"teacher_stats"`

	// 综合评分 (0-100)
	OverallFairnessScore float64 `json:"overall_fairness_score"`
}

// TeacherStat 单个教师的统计
type TeacherStat struct {
	TeacherID     int     `json:"teacher_id"`
	TeacherName   string  `json:"teacher_name"`
	TotalHours    float64 `json:"total_hours"`
	SectionCount  int     `json:"section_count"`
	TeachingDays  int     `json:"teaching_days"`
	OvertimeHours float64 `json:"overtime_hours"` // 超出每周上限的部分
	Deviation     float64 `json:"deviation"`      // 与平均值的偏差百分比
}

// FairnessAnalyzer 公平性分析器，没有课的教师按零课时计入
type FairnessAnalyzer struct{}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{}
}

// Analyze 分析课表的工作量公平性
func (f *FairnessAnalyzer) Analyze(s *model.SchedulingSolution) *FairnessMetrics {
	teacherStats := f.calculateTeacherStats(s)
	if len(teacherStats) == 0 {
		return &FairnessMetrics{OverallFairnessScore: 100}
	}

	hours := make([]float64, len(teacherStats))
	for i, st := range teacherStats {
		hours[i] = st.TotalHours
	}

	avg := mean(hours)
	variance := varianceOf(hours, avg)
	stdDev := math.Sqrt(variance)
	maxHours, minHours := valueRange(hours)

	for i := range teacherStats {
		if avg > 0 {
			teacherStats[i].Deviation = (teacherStats[i].TotalHours - avg) / avg * 100
		}
	}

	gini := giniOf(hours)
	return &FairnessMetrics{
		WorkloadGini:         gini,
		WorkloadVariance:     variance,
		WorkloadStdDev:       stdDev,
		AvgHoursPerTeacher:   avg,
		MaxHours:             maxHours,
		MinHours:             minHours,
		HoursRange:           maxHours - minHours,
		TeacherStats:         teacherStats,
		OverallFairnessScore: overallScore(gini, stdDev, avg),
	}
}

// calculateTeacherStats 按教师汇总课时
func (f *FairnessAnalyzer) calculateTeacherStats(s *model.SchedulingSolution) []TeacherStat {
	p := s.Problem
	statMap := make(map[int]*TeacherStat)
	days := make(map[int]map[int]bool)

	for _, t := range p.Teachers {
		statMap[t.ID] = &TeacherStat{TeacherID: t.ID, TeacherName: t.Name}
		days[t.ID] = make(map[int]bool)
	}

	for _, a := range s.Assignments() {
		st, ok := statMap[a.TeacherID]
		if !ok {
			st = &TeacherStat{TeacherID: a.TeacherID}
			if t := p.Teacher(a.TeacherID); t != nil {
				st.TeacherName = t.Name
			}
			statMap[a.TeacherID] = st
			days[a.TeacherID] = make(map[int]bool)
		}
		st.TotalHours += a.Slot().Hours()
		st.SectionCount++
		days[a.TeacherID][a.DayOfWeek] = true
	}

	result := make([]TeacherStat, 0, len(statMap))
	for id, st := range statMap {
		st.TeachingDays = len(days[id])
		if t := p.Teacher(id); t != nil && t.MaxWeeklyHours > 0 && st.TotalHours > float64(t.MaxWeeklyHours) {
			st.OvertimeHours = st.TotalHours - float64(t.MaxWeeklyHours)
		}
		result = append(result, *st)
	}

	// 课时多的在前，同课时按教师编号
	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalHours != result[j].TotalHours {
			return result[i].TotalHours > result[j].TotalHours
		}
		return result[i].TeacherID < result[j].TeacherID
	})
	return result
}

// overallScore 基尼系数占 0.8，变异系数占 0.2
func overallScore(gini, stdDev, avg float64) float64 {
	const (
		giniWeight = 0.8
		cvWeight   = 0.2
	)
	cvScore := 100.0
	if avg > 0 {
		cvScore = math.Max(0, 100-stdDev/avg*200)
	}
	score := giniWeight*(1-gini)*100 + cvWeight*cvScore
	return math.Max(0, math.Min(100, score))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// varianceOf 总体方差
func varianceOf(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

func valueRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// giniOf 基尼系数
func giniOf(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	gini := 0.0
	for i, v := range sorted {
		gini += (2*float64(i+1) - float64(n) - 1) * v
	}
	gini = gini / (float64(n) * sum)
	return math.Max(0, math.Min(1, gini))
}
