// KeBiao 课表优化引擎
// 命令行入口：读取排课问题，求解后输出结果集 JSON

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/kebiao/internal/config"
	"github.com/paiban/kebiao/internal/constraints"
	"github.com/paiban/kebiao/internal/database"
	"github.com/paiban/kebiao/internal/metrics"
	"github.com/paiban/kebiao/internal/repository"
	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/solver"
	"github.com/paiban/kebiao/pkg/stats"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// 退出码
const (
	exitOK         = 0
	exitFailure    = 1 // 输入无效、搜索超时或已取消
	exitError      = 2 // 配置、数据库或内部错误
	exitInfeasible = 3 // 问题本身无解
)

type options struct {
	configPath string
	problem    string
	problemID  string
	out        string
	save       bool
	migrate    bool
	report     bool
	library    bool
	linger     time.Duration
	version    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "配置文件路径（yaml）")
	flag.StringVar(&opts.problem, "problem", "", "排课问题 JSON 文件，- 表示标准输入")
	flag.StringVar(&opts.problemID, "problem-id", "", "从数据库读取的排课问题ID")
	flag.StringVar(&opts.out, "out", "-", "结果集 JSON 输出路径，- 表示标准输出")
	flag.BoolVar(&opts.save, "save", false, "把结果集写入数据库")
	flag.BoolVar(&opts.migrate, "migrate", false, "启动时初始化表结构")
	flag.BoolVar(&opts.report, "report", false, "在标准错误输出主方案统计报告")
	flag.BoolVar(&opts.library, "constraints", false, "按当前配置列出生效的约束后退出")
	flag.DurationVar(&opts.linger, "linger", 0, "求解结束后继续提供 /metrics 的时长")
	flag.BoolVar(&opts.version, "version", false, "打印版本信息")
	flag.Parse()

	if opts.version {
		fmt.Printf("KeBiao 课表优化引擎 v%s\nBuild: %s (%s)\n", Version, BuildTime, GitCommit)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, opts))
}

func run(ctx context.Context, opts options) int {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		return exitError
	}
	logger.Init(cfg.Log)
	log := logger.WithField("component", "cli")

	if opts.library {
		if err := writeJSON(opts.out, constraints.GetLibrary(cfg.Scheduler)); err != nil {
			log.Error().Err(err).Msg("写出约束目录失败")
			return exitError
		}
		return exitOK
	}

	var db *database.DB
	if opts.problemID != "" || opts.save || opts.migrate {
		db, err = database.New(&cfg.Database)
		if err != nil {
			log.Error().Err(err).Msg("连接数据库失败")
			return exitError
		}
		defer db.Close()
		if opts.migrate {
			if err := repository.Migrate(ctx, db); err != nil {
				log.Error().Err(err).Msg("初始化表结构失败")
				return exitError
			}
		}
	}

	p, err := loadProblem(ctx, opts, db)
	if err != nil {
		log.Error().Err(err).Msg("读取排课问题失败")
		if apperrors.Is(err, apperrors.CodeNotFound) || apperrors.Is(err, apperrors.CodeInvalidInput) {
			return exitFailure
		}
		return exitError
	}

	hybrid := solver.NewHybridSolver()
	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.NewRecorder()
		hybrid.WithObserver(recorder)
		srv := serveMetrics(cfg.Metrics, recorder)
		defer func() {
			if opts.linger > 0 {
				log.Info().Dur("linger", opts.linger).Msg("继续提供监控指标")
				select {
				case <-time.After(opts.linger):
				case <-ctx.Done():
				}
			}
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			srv.Shutdown(shutdownCtx)
		}()
	}

	rs, solveErr := hybrid.Solve(ctx, p, cfg.Scheduler)

	if err := writeJSON(opts.out, rs); err != nil {
		log.Error().Err(err).Msg("写出结果失败")
		return exitError
	}
	if opts.report {
		if best := rs.Best(); best != nil && best.Statistics != nil {
			fmt.Fprintln(os.Stderr, stats.GenerateReport(best.Statistics))
		}
	}
	if opts.save && db != nil {
		if err := repository.NewSolutionRepository(db).SaveResultSet(ctx, rs); err != nil {
			log.Error().Err(err).Msg("保存结果失败")
			return exitError
		}
		log.Info().Str("result_set", rs.ID.String()).Msg("结果已保存")
	}

	return exitCode(rs, solveErr)
}

// loadProblem 从文件、标准输入或数据库读取问题
func loadProblem(ctx context.Context, opts options, db *database.DB) (*model.SchedulingProblem, error) {
	switch {
	case opts.problemID != "":
		id, err := uuid.Parse(opts.problemID)
		if err != nil {
			return nil, apperrors.InvalidInput("problem-id", err.Error())
		}
		return repository.NewProblemRepository(db).Load(ctx, id)
	case opts.problem == "-":
		return readProblem(os.Stdin)
	case opts.problem != "":
		f, err := os.Open(opts.problem)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "打开问题文件失败")
		}
		defer f.Close()
		return readProblem(f)
	}
	return nil, apperrors.InvalidInput("problem", "需要 -problem 或 -problem-id")
}

// readProblem 解析问题 JSON，缺少 ID 时生成新 ID
func readProblem(r io.Reader) (*model.SchedulingProblem, error) {
	p := model.NewSchedulingProblem("")
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "问题 JSON 格式无效")
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Reindex()
	return p, nil
}

func writeJSON(path string, v interface{}) error {
	var w io.Writer = os.Stdout
	if path != "-" && path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serveMetrics(cfg config.MetricsConfig, recorder *metrics.Recorder) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, recorder.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"kebiao"}`))
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", cfg.Addr).Msg("监控服务启动失败")
		}
	}()
	logger.Info().Str("addr", cfg.Addr).Str("path", cfg.Path).Msg("监控服务已启动")
	return srv
}

// exitCode 按结果集状态映射退出码
func exitCode(rs *model.SchedulingResultSet, err error) int {
	switch rs.Status {
	case model.StatusSuccess, model.StatusPartialSuccess:
		return exitOK
	case model.StatusError:
		return exitError
	}
	switch {
	case err == nil:
	case apperrors.Is(err, apperrors.CodeInternal):
		return exitError
	case apperrors.IsInfeasible(err):
		return exitInfeasible
	}
	return exitFailure
}
