// Package config 提供配置管理
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/model"
)

// EnvPrefix 环境变量前缀，例如 KEBIAO_SCHEDULER_CP_TIME_LIMIT
const EnvPrefix = "KEBIAO"

// Config 应用配置
type Config struct {
	App       AppConfig                  `yaml:"app"`
	Log       logger.Config              `yaml:"log"`
	Database  DatabaseConfig             `yaml:"database"`
	Metrics   MetricsConfig              `yaml:"metrics"`
	Scheduler model.SchedulingParameters `yaml:"scheduler"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name string `yaml:"name"`
	Env  string `yaml:"env"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// Load 加载配置：默认值 < 配置文件 < .env < 环境变量
// path 为空时只读环境变量
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Log: logger.Config{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Output:     v.GetString("log.output"),
			FilePath:   v.GetString("log.file_path"),
			TimeFormat: time.RFC3339,
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			Name:            v.GetString("database.name"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			SSLMode:         v.GetString("database.ssl_mode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Addr:    v.GetString("metrics.addr"),
			Path:    v.GetString("metrics.path"),
		},
	}

	params, err := loadParameters(v)
	if err != nil {
		return nil, err
	}
	cfg.Scheduler = params
	return cfg, nil
}

// loadParameters 读取 scheduler 段并校验
func loadParameters(v *viper.Viper) (model.SchedulingParameters, error) {
	level, err := model.ParseConstraintLevel(v.GetString("scheduler.constraint_level"))
	if err != nil {
		return model.SchedulingParameters{}, err
	}
	p := model.SchedulingParameters{
		CpTimeLimit:          v.GetInt("scheduler.cp_time_limit"),
		InitialSolutionCount: v.GetInt("scheduler.initial_solution_count"),
		DiversityThreshold:   v.GetFloat64("scheduler.diversity_threshold"),
		ConstraintLevel:      level,
		MinProficiency:       v.GetInt("scheduler.min_proficiency"),
		UseNoGoodCuts:        v.GetBool("scheduler.use_no_good_cuts"),
		DiversityCuts:        v.GetBool("scheduler.diversity_cuts"),
		Algorithm:            v.GetString("scheduler.algorithm"),

		MaxLsIterations:            v.GetInt("scheduler.max_ls_iterations"),
		InitialTemperature:         v.GetFloat64("scheduler.initial_temperature"),
		CoolingRate:                v.GetFloat64("scheduler.cooling_rate"),
		MinTemperature:             v.GetFloat64("scheduler.min_temperature"),
		MaxNoImprovement:           v.GetInt("scheduler.max_no_improvement"),
		EnableParallelOptimization: v.GetBool("scheduler.enable_parallel_optimization"),
		MaxParallelism:             v.GetInt("scheduler.max_parallelism"),
		Seed:                       v.GetInt64("scheduler.seed"),

		HardWeight:     v.GetFloat64("scheduler.hard_weight"),
		SoftWeight:     v.GetFloat64("scheduler.soft_weight"),
		PhysicalWeight: v.GetFloat64("scheduler.physical_weight"),
		QualityWeight:  v.GetFloat64("scheduler.quality_weight"),

		AvailabilityAsHard:    v.GetBool("scheduler.availability_as_hard"),
		EnforceWorkloadLimits: v.GetBool("scheduler.enforce_workload_limits"),
		CompactnessThreshold:  v.GetInt("scheduler.compactness_threshold"),
		HardThreshold:         v.GetFloat64("scheduler.hard_threshold"),
	}
	if err := p.Validate(); err != nil {
		return model.SchedulingParameters{}, err
	}
	return p, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "kebiao")
	v.SetDefault("app.env", "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.file_path", "")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "kebiao")
	v.SetDefault("database.user", "kebiao")
	v.SetDefault("database.password", "kebiao")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9102")
	v.SetDefault("metrics.path", "/metrics")

	d := model.DefaultParameters()
	v.SetDefault("scheduler.cp_time_limit", d.CpTimeLimit)
	v.SetDefault("scheduler.initial_solution_count", d.InitialSolutionCount)
	v.SetDefault("scheduler.diversity_threshold", d.DiversityThreshold)
	v.SetDefault("scheduler.constraint_level", d.ConstraintLevel.String())
	v.SetDefault("scheduler.min_proficiency", d.MinProficiency)
	v.SetDefault("scheduler.use_no_good_cuts", d.UseNoGoodCuts)
	v.SetDefault("scheduler.diversity_cuts", d.DiversityCuts)
	v.SetDefault("scheduler.algorithm", d.Algorithm)
	v.SetDefault("scheduler.max_ls_iterations", d.MaxLsIterations)
	v.SetDefault("scheduler.initial_temperature", d.InitialTemperature)
	v.SetDefault("scheduler.cooling_rate", d.CoolingRate)
	v.SetDefault("scheduler.min_temperature", d.MinTemperature)
	v.SetDefault("scheduler.max_no_improvement", d.MaxNoImprovement)
	v.SetDefault("scheduler.enable_parallel_optimization", d.EnableParallelOptimization)
	v.SetDefault("scheduler.max_parallelism", d.MaxParallelism)
	v.SetDefault("scheduler.seed", d.Seed)
	v.SetDefault("scheduler.hard_weight", d.HardWeight)
	v.SetDefault("scheduler.soft_weight", d.SoftWeight)
	v.SetDefault("scheduler.physical_weight", d.PhysicalWeight)
	v.SetDefault("scheduler.quality_weight", d.QualityWeight)
	v.SetDefault("scheduler.availability_as_hard", d.AvailabilityAsHard)
	v.SetDefault("scheduler.enforce_workload_limits", d.EnforceWorkloadLimits)
	v.SetDefault("scheduler.compactness_threshold", d.CompactnessThreshold)
	v.SetDefault("scheduler.hard_threshold", d.HardThreshold)
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
