package solver

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	apperrors "github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/cp"
	"github.com/paiban/kebiao/pkg/scheduler/lookup"
	"github.com/paiban/kebiao/pkg/scheduler/solutionset"
)

// loadPenalty 教师每多一门课扣除的权重，使课时趋于均衡
const loadPenalty = 2

// GreedySolver 贪心构造初始课表
// 难排的教学班先排，每次取目标权重最高且不冲突的组合
type GreedySolver struct {
	tables        *lookup.Tables
	level         model.ConstraintLevel
	maxIterations int
	diversity     float64
	logger        *logger.SchedulerLogger
}

// NewGreedySolver 创建贪心求解器
func NewGreedySolver(tables *lookup.Tables, level model.ConstraintLevel) *GreedySolver {
	return &GreedySolver{
		tables:        tables,
		level:         level,
		maxIterations: 10,
		logger:        logger.NewSchedulerLogger().Named("greedy"),
	}
}

// Name 返回求解器名称
func (g *GreedySolver) Name() string {
	return "GreedySolver"
}

// Solve 只用贪心构造求解，不做局部搜索
// 查找表按 p 重新建立，状态映射与 HybridSolver 相同
func (g *GreedySolver) Solve(ctx context.Context, p *model.SchedulingProblem, params model.SchedulingParameters) (*model.SchedulingResultSet, error) {
	params.Algorithm = model.AlgorithmGreedy
	params.MaxLsIterations = 0
	return NewHybridSolver().Solve(ctx, p, params)
}

// SetMaxIterations 每个课表最多的构造次数
func (g *GreedySolver) SetMaxIterations(max int) {
	g.maxIterations = max
}

// SetDiversityThreshold 新课表与已收课表的最小 Jaccard 距离
func (g *GreedySolver) SetDiversityThreshold(threshold float64) {
	g.diversity = threshold
}

// Generate 构造至多 count 个两两差异不低于多样性阈值的完整课表
// 第 i 次构造使用种子 seed+i，只有第 0 次不打乱同分候选
func (g *GreedySolver) Generate(ctx context.Context, count int, seed int64) ([]*model.SchedulingSolution, error) {
	if count <= 0 {
		count = 1
	}
	attempts := count * max(g.maxIterations, 1)

	var out []*model.SchedulingSolution
	var lastUnplaced []int
	for i := 0; i < attempts && len(out) < count; i++ {
		if ctx.Err() != nil {
			break
		}
		s, unplaced := g.construct(rand.New(rand.NewSource(seed+int64(i))), i > 0)
		if len(unplaced) > 0 {
			lastUnplaced = unplaced
			continue
		}
		if tooSimilar(s, out, g.diversity) {
			continue
		}
		out = append(out, s)
		g.logger.SolutionAccepted(len(out)-1, cp.SolutionWeight(s), 0)
	}

	if len(out) > 0 {
		return out, nil
	}
	if ctx.Err() != nil {
		return nil, apperrors.Wrap(ctx.Err(), apperrors.CodeCancelled, "求解已取消")
	}
	ids := make([]string, len(lastUnplaced))
	for i, id := range lastUnplaced {
		ids[i] = fmt.Sprint(id)
	}
	return nil, apperrors.NoFeasibleSolution(fmt.Sprintf("贪心构造无法安排教学班: %s", strings.Join(ids, ","))).
		WithField("sections", lastUnplaced)
}

// tooSimilar 与任一已收课表相同或差异低于阈值
func tooSimilar(s *model.SchedulingSolution, kept []*model.SchedulingSolution, threshold float64) bool {
	for _, o := range kept {
		if d := solutionset.PairwiseDiversity(s, o); d == 0 || d < threshold {
			return true
		}
	}
	return false
}

// greedyState 单次构造的占用状态
type greedyState struct {
	teacherBusy map[[2]int]bool // (教师, 时间段)
	roomBusy    map[[2]int]bool // (教室, 时间段)
	slotCourses map[int][]int   // 时间段 -> 已排课程
	load        map[int]int     // 教师 -> 已排门数
}

// construct 构造一个课表，返回未能安排的教学班
func (g *GreedySolver) construct(rng *rand.Rand, shuffle bool) (*model.SchedulingSolution, []int) {
	p := g.tables.Problem()
	s := model.NewSolution(p, "greedy")
	st := &greedyState{
		teacherBusy: make(map[[2]int]bool),
		roomBusy:    make(map[[2]int]bool),
		slotCourses: make(map[int][]int),
		load:        make(map[int]int),
	}

	var unplaced []int
	for _, si := range g.order(rng, shuffle) {
		sec := &p.Sections[si]
		best, ok := g.pick(si, sec, st, rng, shuffle)
		if !ok {
			unplaced = append(unplaced, sec.ID)
			continue
		}
		s.AssignAt(si, best)
		st.teacherBusy[[2]int{best.TeacherID, best.TimeSlotID}] = true
		st.roomBusy[[2]int{best.ClassroomID, best.TimeSlotID}] = true
		st.slotCourses[best.TimeSlotID] = append(st.slotCourses[best.TimeSlotID], sec.CourseID)
		st.load[best.TeacherID]++
	}
	sort.Ints(unplaced)
	return s, unplaced
}

// order 候选组合少的教学班先排，人数多的优先
func (g *GreedySolver) order(rng *rand.Rand, shuffle bool) []int {
	p := g.tables.Problem()
	idx := make([]int, len(p.Sections))
	for i := range idx {
		idx[i] = i
	}
	if shuffle {
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	}
	options := func(si int) int {
		return len(g.tables.CapacityRooms(si)) * len(g.tables.QualifiedTeachers(si))
	}
	sort.SliceStable(idx, func(a, b int) bool {
		oa, ob := options(idx[a]), options(idx[b])
		if oa != ob {
			return oa < ob
		}
		return p.Sections[idx[a]].Enrollment > p.Sections[idx[b]].Enrollment
	})
	return idx
}

// pick 权重最高的合法组合
func (g *GreedySolver) pick(si int, sec *model.CourseSection, st *greedyState, rng *rand.Rand, shuffle bool) (model.SchedulingAssignment, bool) {
	p := g.tables.Problem()
	var best model.SchedulingAssignment
	bestW, ties := 0, 0
	found := false

	for ti := range p.TimeSlots {
		slot := &p.TimeSlots[ti]
		if g.level >= model.LevelBasic && g.prerequisiteClash(sec.CourseID, st.slotCourses[slot.ID]) {
			continue
		}
		for _, ri := range g.tables.CapacityRooms(si) {
			room := &p.Classrooms[ri]
			if st.roomBusy[[2]int{room.ID, slot.ID}] {
				continue
			}
			if g.level >= model.LevelStandard && !p.ClassroomAvailable(room.ID, slot.ID) {
				continue
			}
			for _, fi := range g.tables.QualifiedTeachers(si) {
				teacher := &p.Teachers[fi]
				if st.teacherBusy[[2]int{teacher.ID, slot.ID}] {
					continue
				}
				if g.level >= model.LevelStandard && !p.TeacherAvailable(teacher.ID, slot.ID) {
					continue
				}
				w := cp.AssignmentWeight(p, sec, teacher.ID, room, slot.ID) - loadPenalty*st.load[teacher.ID]
				switch {
				case !found || w > bestW:
					ties = 1
				case w == bestW && shuffle:
					// 同分候选等概率保留
					ties++
					if rng.Intn(ties) != 0 {
						continue
					}
				default:
					continue
				}
				best = model.NewAssignment(p, sec.ID, teacher.ID, room.ID, slot.ID)
				bestW = w
				found = true
			}
		}
	}
	return best, found
}

func (g *GreedySolver) prerequisiteClash(course int, scheduled []int) bool {
	p := g.tables.Problem()
	for _, c := range scheduled {
		if p.IsPrerequisitePair(course, c) {
			return true
		}
	}
	return false
}
