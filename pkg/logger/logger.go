// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stdout
				}
			} else {
				output = os.Stdout
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	if logger.GetLevel() == zerolog.Disabled {
		Init(DefaultConfig())
	}
	return &logger
}

type ctxKey string

// SolveIDKey 求解任务ID在上下文中的键
const SolveIDKey ctxKey = "solve_id"

// WithSolveID 将求解任务ID写入上下文
func WithSolveID(ctx context.Context, solveID string) context.Context {
	return context.WithValue(ctx, SolveIDKey, solveID)
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// WithField 添加字段
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// SchedulerLogger 排课引擎专用日志器
type SchedulerLogger struct {
	base *zerolog.Logger
}

// NewSchedulerLogger 创建排课引擎日志器
func NewSchedulerLogger() *SchedulerLogger {
	l := Get().With().Str("component", "scheduler").Logger()
	return &SchedulerLogger{base: &l}
}

// Named 派生子组件日志器
func (l *SchedulerLogger) Named(stage string) *SchedulerLogger {
	sub := l.base.With().Str("stage", stage).Logger()
	return &SchedulerLogger{base: &sub}
}

// WithContext 附上上下文中的求解任务ID
func (l *SchedulerLogger) WithContext(ctx context.Context) *SchedulerLogger {
	id, ok := ctx.Value(SolveIDKey).(string)
	if !ok {
		return l
	}
	sub := l.base.With().Str("solve_id", id).Logger()
	return &SchedulerLogger{base: &sub}
}

// Logger 返回底层 zerolog 日志器
func (l *SchedulerLogger) Logger() *zerolog.Logger {
	return l.base
}

// StartSolve 记录求解开始
func (l *SchedulerLogger) StartSolve(problemID string, sections, teachers, rooms, slots int) {
	l.base.Info().
		Str("problem_id", problemID).
		Int("sections", sections).
		Int("teachers", teachers).
		Int("classrooms", rooms).
		Int("time_slots", slots).
		Msg("开始生成课表")
}

// ModelBuilt 记录CP模型构建完成
func (l *SchedulerLogger) ModelBuilt(level string, vars, constraints int) {
	l.base.Info().
		Str("level", level).
		Int("variables", vars).
		Int("constraints", constraints).
		Msg("CP模型构建完成")
}

// CPRound 记录一轮CP求解
func (l *SchedulerLogger) CPRound(round int, status string, found int) {
	l.base.Debug().
		Int("round", round).
		Str("status", status).
		Int("found", found).
		Msg("CP求解轮次")
}

// SolutionAccepted 记录接受一个多样解
func (l *SchedulerLogger) SolutionAccepted(index int, objective int, diversity float64) {
	l.base.Info().
		Int("index", index).
		Int("objective", objective).
		Float64("min_diversity", diversity).
		Msg("接受候选解")
}

// LocalSearchDone 记录局部搜索结束
func (l *SchedulerLogger) LocalSearchDone(index, iterations int, initial, best float64, reason string) {
	l.base.Info().
		Int("index", index).
		Int("iterations", iterations).
		Float64("initial_score", initial).
		Float64("best_score", best).
		Str("stop_reason", reason).
		Msg("局部搜索完成")
}

// ConstraintViolation 记录约束违反
func (l *SchedulerLogger) ConstraintViolation(constraint, details string) {
	l.base.Warn().
		Str("constraint", constraint).
		Str("details", details).
		Msg("约束违反")
}

// SolveComplete 记录求解完成
func (l *SchedulerLogger) SolveComplete(problemID, status string, duration time.Duration, solutions int, best float64) {
	l.base.Info().
		Str("problem_id", problemID).
		Str("status", status).
		Dur("duration", duration).
		Int("solutions", solutions).
		Float64("best_score", best).
		Msg("课表生成完成")
}
