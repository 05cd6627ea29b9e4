package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/model"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "kebiao", cfg.App.Name)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, model.DefaultParameters(), cfg.Scheduler)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kebiao.yaml")
	content := `
app:
  env: production
database:
  host: db.internal
  port: 6543
scheduler:
  constraint_level: complete
  initial_solution_count: 5
  algorithm: greedy
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("KEBIAO_SCHEDULER_CP_TIME_LIMIT", "15")
	t.Setenv("KEBIAO_DATABASE_PORT", "7000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 7000, cfg.Database.Port, "环境变量覆盖配置文件")
	assert.Equal(t, model.LevelComplete, cfg.Scheduler.ConstraintLevel)
	assert.Equal(t, 5, cfg.Scheduler.InitialSolutionCount)
	assert.Equal(t, model.AlgorithmGreedy, cfg.Scheduler.Algorithm)
	assert.Equal(t, 15, cfg.Scheduler.CpTimeLimit)
	assert.Contains(t, cfg.Database.DSN(), "host=db.internal port=7000")
}

func TestLoadRejectsInvalidParameters(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		code apperrors.Code
	}{
		{"冷却率越界", "KEBIAO_SCHEDULER_COOLING_RATE", "1.2", apperrors.CodeValidationFail},
		{"未知算法", "KEBIAO_SCHEDULER_ALGORITHM", "tabu", apperrors.CodeValidationFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load("")
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, tt.code), "err = %v", err)
		})
	}

	t.Run("未知约束级别", func(t *testing.T) {
		t.Setenv("KEBIAO_SCHEDULER_CONSTRAINT_LEVEL", "strict")
		_, err := Load("")
		assert.Error(t, err)
	})
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, model.LevelStandard, cfg.Scheduler.ConstraintLevel)
}
