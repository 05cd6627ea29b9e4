package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/paiban/kebiao/internal/database"
	"github.com/paiban/kebiao/pkg/model"
)

// SolutionRepository 求解结果仓储
type SolutionRepository struct {
	db *database.DB
}

// NewSolutionRepository 创建求解结果仓储
func NewSolutionRepository(db *database.DB) *SolutionRepository {
	return &SolutionRepository{db: db}
}

type assignmentRow struct {
	SolutionID  uuid.UUID `db:"solution_id"`
	SectionID   int       `db:"section_id"`
	TeacherID   int       `db:"teacher_id"`
	ClassroomID int       `db:"classroom_id"`
	TimeSlotID  int       `db:"time_slot_id"`
}

const (
	insertResultSet = `INSERT INTO scheduling_result_sets
(id, problem_id, status, code, message, reasons, duration_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	insertSolution = `INSERT INTO scheduling_solutions
(id, result_set_id, algorithm, status, is_primary, score, hard_score, is_feasible, message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	insertAssignments = `INSERT INTO scheduling_assignments
(solution_id, section_id, teacher_id, classroom_id, time_slot_id)
VALUES (:solution_id, :section_id, :teacher_id, :classroom_id, :time_slot_id)`
)

// SaveResultSet 在一个事务内保存结果集、各方案及其分配
func (r *SolutionRepository) SaveResultSet(ctx context.Context, rs *model.SchedulingResultSet) error {
	var primary uuid.UUID
	if rs.SolutionSet != nil {
		if p := rs.SolutionSet.Primary(); p != nil {
			primary = p.ID
		}
	}

	reasons := rs.Reasons
	if reasons == nil {
		reasons = []string{}
	}

	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, insertResultSet,
			rs.ID, rs.ProblemID, string(rs.Status), rs.Code, rs.Message,
			pq.Array(reasons), rs.Duration.Milliseconds(), rs.CreatedAt,
		); err != nil {
			return err
		}

		for _, res := range rs.Results {
			s := res.Solution
			if s == nil {
				continue
			}
			var score, hard float64
			var feasible bool
			if res.Evaluation != nil {
				score, hard, feasible = res.Evaluation.Score, res.Evaluation.HardScore, res.Evaluation.IsFeasible
			}
			if _, err := tx.ExecContext(ctx, insertSolution,
				s.ID, rs.ID, s.Algorithm, string(res.Status), s.ID == primary,
				score, hard, feasible, res.Message, s.CreatedAt,
			); err != nil {
				return err
			}

			rows := assignmentRows(s)
			if len(rows) == 0 {
				continue
			}
			if _, err := tx.NamedExecContext(ctx, insertAssignments, rows); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return dbError("保存求解结果", err)
	}
	return nil
}

func assignmentRows(s *model.SchedulingSolution) []assignmentRow {
	all := s.Assignments()
	rows := make([]assignmentRow, len(all))
	for i, a := range all {
		rows[i] = assignmentRow{
			SolutionID:  s.ID,
			SectionID:   a.SectionID,
			TeacherID:   a.TeacherID,
			ClassroomID: a.ClassroomID,
			TimeSlotID:  a.TimeSlotID,
		}
	}
	return rows
}

// ResultSummary 已保存结果集的概要
type ResultSummary struct {
	ID        uuid.UUID              `json:"id"`
	ProblemID uuid.UUID              `json:"problem_id"`
	Status    model.SchedulingStatus `json:"status"`
	Code      string                 `json:"code,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Reasons   []string               `json:"reasons,omitempty"`
	Duration  time.Duration          `json:"duration"`
	CreatedAt time.Time              `json:"created_at"`
}

type resultSetRow struct {
	ID         uuid.UUID      `db:"id"`
	ProblemID  uuid.UUID      `db:"problem_id"`
	Status     string         `db:"status"`
	Code       string         `db:"code"`
	Message    string         `db:"message"`
	Reasons    pq.StringArray `db:"reasons"`
	DurationMs int64          `db:"duration_ms"`
	CreatedAt  time.Time      `db:"created_at"`
}

const selectResultSets = `SELECT id, problem_id, status, code, message, reasons, duration_ms, created_at
FROM scheduling_result_sets WHERE problem_id = $1 ORDER BY created_at DESC LIMIT $2`

// ListByProblem 按时间倒序列出问题的结果集概要
func (r *SolutionRepository) ListByProblem(ctx context.Context, problemID uuid.UUID, limit int) ([]ResultSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []resultSetRow
	if err := r.db.SelectContext(ctx, &rows, selectResultSets, problemID, limit); err != nil {
		return nil, dbError("查询求解结果", err)
	}
	out := make([]ResultSummary, len(rows))
	for i, row := range rows {
		out[i] = ResultSummary{
			ID:        row.ID,
			ProblemID: row.ProblemID,
			Status:    model.SchedulingStatus(row.Status),
			Code:      row.Code,
			Message:   row.Message,
			Reasons:   []string(row.Reasons),
			Duration:  time.Duration(row.DurationMs) * time.Millisecond,
			CreatedAt: row.CreatedAt,
		}
	}
	return out, nil
}
