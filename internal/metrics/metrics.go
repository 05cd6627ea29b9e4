// Package metrics 提供Prometheus监控指标
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/solver"
)

// Recorder 求解过程指标，实现 solver.Observer
type Recorder struct {
	registry *prometheus.Registry
	handler  http.Handler

	solves       *prometheus.CounterVec
	duration     prometheus.Histogram
	cpRounds     prometheus.Counter
	cpSolutions  *prometheus.CounterVec
	lsIterations prometheus.Counter
	lsStops      *prometheus.CounterVec
	improvement  prometheus.Histogram
	bestScore    prometheus.Gauge
}

var _ solver.Observer = (*Recorder)(nil)

// NewRecorder 创建并注册全部指标
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kebiao_solve_total",
			Help: "排课求解次数",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kebiao_solve_duration_seconds",
			Help:    "排课求解耗时",
			Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0},
		}),
		cpRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kebiao_cp_rounds_total",
			Help: "CP 后端调用轮数",
		}),
		cpSolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kebiao_cp_solutions_total",
			Help: "CP 阶段保留的初始解数",
		}, []string{"status"}),
		lsIterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kebiao_local_search_iterations_total",
			Help: "局部搜索迭代次数",
		}),
		lsStops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kebiao_local_search_stops_total",
			Help: "局部搜索停止原因",
		}, []string{"reason"}),
		improvement: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kebiao_local_search_improvement",
			Help:    "局部搜索带来的适应度提升",
			Buckets: []float64{0, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		bestScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kebiao_best_fitness",
			Help: "最近一次求解主方案的适应度",
		}),
	}

	registry.MustRegister(r.solves, r.duration, r.cpRounds, r.cpSolutions,
		r.lsIterations, r.lsStops, r.improvement, r.bestScore)
	r.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return r
}

// Registry 返回指标注册表
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler 返回Prometheus格式的指标HTTP处理器
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return r.handler
}

// CPFinished 记录 CP 阶段
func (r *Recorder) CPFinished(rounds, solutions int, status string) {
	r.cpRounds.Add(float64(rounds))
	r.cpSolutions.WithLabelValues(status).Add(float64(solutions))
}

// LocalSearchFinished 记录一次局部搜索
func (r *Recorder) LocalSearchFinished(iterations int, initial, best float64, reason string) {
	r.lsIterations.Add(float64(iterations))
	r.lsStops.WithLabelValues(reason).Inc()
	if gain := best - initial; gain >= 0 {
		r.improvement.Observe(gain)
	}
}

// SolveFinished 记录一次求解
func (r *Recorder) SolveFinished(status model.SchedulingStatus, duration time.Duration, best float64) {
	r.solves.WithLabelValues(string(status)).Inc()
	r.duration.Observe(duration.Seconds())
	if status == model.StatusSuccess || status == model.StatusPartialSuccess {
		r.bestScore.Set(best)
	}
}
