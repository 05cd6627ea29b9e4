package optimizer

import (
	"math/rand"

	"github.com/paiban/kebiao/pkg/model"
	"github.com/paiban/kebiao/pkg/scheduler/lookup"
)

// MoveType 邻域移动类型
type MoveType int

const (
	MoveTime    MoveType = iota // 换时间段
	MoveRoom                    // 换教室
	MoveTeacher                 // 换教师
	MoveSwap                    // 与另一教学班交换资源
)

// String 移动类型名称
func (t MoveType) String() string {
	switch t {
	case MoveTime:
		return "time"
	case MoveRoom:
		return "room"
	case MoveTeacher:
		return "teacher"
	default:
		return "swap"
	}
}

// SwapMask 交换哪些资源
type SwapMask uint8

const (
	SwapTime SwapMask = 1 << iota
	SwapRoom
	SwapTeacher

	SwapAll = SwapTime | SwapRoom | SwapTeacher
)

// Move 一次邻域移动，记录移动后的分配
type Move struct {
	Type   MoveType
	Pos    int // 目标教学班位置
	Target model.SchedulingAssignment

	// 交换移动才有
	Other       int
	OtherTarget model.SchedulingAssignment
	Mask        SwapMask
}

// Apply 把移动写入课表
func (mv Move) Apply(s *model.SchedulingSolution) {
	s.AssignAt(mv.Pos, mv.Target)
	if mv.Type == MoveSwap {
		s.AssignAt(mv.Other, mv.OtherTarget)
	}
}

// occupancy 课表中 (教师, 时段) 与 (教室, 时段) 的占用计数
type occupancy struct {
	teacher map[[2]int]int
	room    map[[2]int]int
}

func newOccupancy(s *model.SchedulingSolution) *occupancy {
	o := &occupancy{
		teacher: make(map[[2]int]int, s.Len()),
		room:    make(map[[2]int]int, s.Len()),
	}
	for _, a := range s.Assignments() {
		o.add(a, 1)
	}
	return o
}

func (o *occupancy) add(a model.SchedulingAssignment, d int) {
	o.teacher[[2]int{a.TeacherID, a.TimeSlotID}] += d
	o.room[[2]int{a.ClassroomID, a.TimeSlotID}] += d
}

func (o *occupancy) teacherFree(teacherID, slotID int) bool {
	return o.teacher[[2]int{teacherID, slotID}] == 0
}

func (o *occupancy) roomFree(roomID, slotID int) bool {
	return o.room[[2]int{roomID, slotID}] == 0
}

// MoveGenerator 邻域生成器
// 候选教室与合格教师来自共享的只读查找表
type MoveGenerator struct {
	problem *model.SchedulingProblem
	tables  *lookup.Tables

	// checkAvailability Standard 级以上才检查显式不可用
	checkAvailability bool

	rng         *rand.Rand
	moveWeights []float64 // 按 MoveType 顺序
}

// NewMoveGenerator 创建邻域生成器
func NewMoveGenerator(tables *lookup.Tables, level model.ConstraintLevel, seed int64) *MoveGenerator {
	return &MoveGenerator{
		problem:           tables.Problem(),
		tables:            tables,
		checkAvailability: level >= model.LevelStandard,
		rng:               rand.New(rand.NewSource(seed)),
		moveWeights:       []float64{0.35, 0.25, 0.2, 0.2},
	}
}

// SetMoveWeights 设置各移动类型的选择权重
func (g *MoveGenerator) SetMoveWeights(time, room, teacher, swap float64) {
	g.moveWeights = []float64{time, room, teacher, swap}
}

// Tables 共享查找表
func (g *MoveGenerator) Tables() *lookup.Tables {
	return g.tables
}

// TimeMoves 换到教师和教室都空闲的其他时间段
func (g *MoveGenerator) TimeMoves(s *model.SchedulingSolution, pos int) []Move {
	return g.timeMoves(s, newOccupancy(s), pos, g.checkAvailability)
}

func (g *MoveGenerator) timeMoves(s *model.SchedulingSolution, occ *occupancy, pos int, strict bool) []Move {
	a, ok := s.At(pos)
	if !ok {
		return nil
	}
	p := g.problem
	var moves []Move
	for _, ts := range p.TimeSlots {
		if ts.ID == a.TimeSlotID {
			continue
		}
		if !occ.teacherFree(a.TeacherID, ts.ID) || !occ.roomFree(a.ClassroomID, ts.ID) {
			continue
		}
		if strict && (!p.TeacherAvailable(a.TeacherID, ts.ID) || !p.ClassroomAvailable(a.ClassroomID, ts.ID)) {
			continue
		}
		moves = append(moves, Move{
			Type:   MoveTime,
			Pos:    pos,
			Target: model.NewAssignment(p, a.SectionID, a.TeacherID, a.ClassroomID, ts.ID),
		})
	}
	return moves
}

// RoomMoves 换到当前时间段空闲、容量足够且类型兼容的其他教室
func (g *MoveGenerator) RoomMoves(s *model.SchedulingSolution, pos int) []Move {
	return g.roomMoves(s, newOccupancy(s), pos, g.checkAvailability)
}

func (g *MoveGenerator) roomMoves(s *model.SchedulingSolution, occ *occupancy, pos int, strict bool) []Move {
	a, ok := s.At(pos)
	if !ok {
		return nil
	}
	p := g.problem
	rooms := g.tables.SuitableRooms(pos)
	if len(rooms) == 0 {
		rooms = g.tables.CapacityRooms(pos)
	}
	var moves []Move
	for _, ri := range rooms {
		room := &p.Classrooms[ri]
		if room.ID == a.ClassroomID || !occ.roomFree(room.ID, a.TimeSlotID) {
			continue
		}
		if strict && !p.ClassroomAvailable(room.ID, a.TimeSlotID) {
			continue
		}
		moves = append(moves, Move{
			Type:   MoveRoom,
			Pos:    pos,
			Target: model.NewAssignment(p, a.SectionID, a.TeacherID, room.ID, a.TimeSlotID),
		})
	}
	return moves
}

// TeacherMoves 换到当前时间段空闲的其他合格教师
func (g *MoveGenerator) TeacherMoves(s *model.SchedulingSolution, pos int) []Move {
	return g.teacherMoves(s, newOccupancy(s), pos, g.checkAvailability)
}

func (g *MoveGenerator) teacherMoves(s *model.SchedulingSolution, occ *occupancy, pos int, strict bool) []Move {
	a, ok := s.At(pos)
	if !ok {
		return nil
	}
	p := g.problem
	var moves []Move
	for _, ti := range g.tables.QualifiedTeachers(pos) {
		t := &p.Teachers[ti]
		if t.ID == a.TeacherID || !occ.teacherFree(t.ID, a.TimeSlotID) {
			continue
		}
		if strict && !p.TeacherAvailable(t.ID, a.TimeSlotID) {
			continue
		}
		moves = append(moves, Move{
			Type:   MoveTeacher,
			Pos:    pos,
			Target: model.NewAssignment(p, a.SectionID, t.ID, a.ClassroomID, a.TimeSlotID),
		})
	}
	return moves
}

// SwapMoves 与 other 位置的教学班交换资源，只保留不引入新冲突的组合
func (g *MoveGenerator) SwapMoves(s *model.SchedulingSolution, pos, other int) []Move {
	return g.swapMoves(s, newOccupancy(s), pos, other)
}

func (g *MoveGenerator) swapMoves(s *model.SchedulingSolution, occ *occupancy, pos, other int) []Move {
	if pos == other {
		return nil
	}
	a, ok1 := s.At(pos)
	b, ok2 := s.At(other)
	if !ok1 || !ok2 {
		return nil
	}

	// 暂时移除两条分配再检查
	occ.add(a, -1)
	occ.add(b, -1)
	defer func() {
		occ.add(a, 1)
		occ.add(b, 1)
	}()

	var moves []Move
	for mask := SwapTime; mask <= SwapAll; mask++ {
		na, nb := g.swapped(a, b, mask)
		if na.SameResources(a) && nb.SameResources(b) {
			continue
		}
		if !g.swapValid(occ, pos, na) || !g.swapValid(occ, other, nb) {
			continue
		}
		if na.TimeSlotID == nb.TimeSlotID && (na.TeacherID == nb.TeacherID || na.ClassroomID == nb.ClassroomID) {
			continue
		}
		moves = append(moves, Move{
			Type:        MoveSwap,
			Pos:         pos,
			Target:      na,
			Other:       other,
			OtherTarget: nb,
			Mask:        mask,
		})
	}
	return moves
}

func (g *MoveGenerator) swapped(a, b model.SchedulingAssignment, mask SwapMask) (model.SchedulingAssignment, model.SchedulingAssignment) {
	at, ar, af := a.TimeSlotID, a.ClassroomID, a.TeacherID
	bt, br, bf := b.TimeSlotID, b.ClassroomID, b.TeacherID
	if mask&SwapTime != 0 {
		at, bt = bt, at
	}
	if mask&SwapRoom != 0 {
		ar, br = br, ar
	}
	if mask&SwapTeacher != 0 {
		af, bf = bf, af
	}
	p := g.problem
	return model.NewAssignment(p, a.SectionID, af, ar, at), model.NewAssignment(p, b.SectionID, bf, br, bt)
}

// swapValid 交换后的分配不与其余分配冲突，教室与教师仍然合格
func (g *MoveGenerator) swapValid(occ *occupancy, pos int, a model.SchedulingAssignment) bool {
	if !occ.teacherFree(a.TeacherID, a.TimeSlotID) || !occ.roomFree(a.ClassroomID, a.TimeSlotID) {
		return false
	}
	p := g.problem
	ri, ok := p.ClassroomPos(a.ClassroomID)
	if !ok || p.Classrooms[ri].Capacity < p.Sections[pos].Enrollment {
		return false
	}
	// 与 roomMoves 一致：有类型兼容的教室时只接受兼容教室
	if len(g.tables.SuitableRooms(pos)) > 0 && !g.tables.RoomSuitable(pos, ri) {
		return false
	}
	if ti, ok := p.TeacherPos(a.TeacherID); !ok || !g.tables.TeacherQualified(pos, ti) {
		return false
	}
	if g.checkAvailability && (!p.TeacherAvailable(a.TeacherID, a.TimeSlotID) || !p.ClassroomAvailable(a.ClassroomID, a.TimeSlotID)) {
		return false
	}
	return true
}

// Candidates 目标教学班的全部候选移动，交换移动遍历所有其他教学班
func (g *MoveGenerator) Candidates(s *model.SchedulingSolution, pos int) []Move {
	occ := newOccupancy(s)
	moves := g.timeMoves(s, occ, pos, g.checkAvailability)
	moves = append(moves, g.roomMoves(s, occ, pos, g.checkAvailability)...)
	moves = append(moves, g.teacherMoves(s, occ, pos, g.checkAvailability)...)
	for _, other := range s.AssignedPositions() {
		moves = append(moves, g.swapMoves(s, occ, pos, other)...)
	}
	return moves
}

// RandomMove 随机挑一个教学班和移动类型；该类型无候选时换下一种
func (g *MoveGenerator) RandomMove(s *model.SchedulingSolution) (Move, bool) {
	positions := s.AssignedPositions()
	if len(positions) == 0 {
		return Move{}, false
	}
	pos := positions[g.rng.Intn(len(positions))]
	occ := newOccupancy(s)

	first := g.selectMoveType()
	for k := 0; k < 4; k++ {
		var moves []Move
		switch MoveType((int(first) + k) % 4) {
		case MoveTime:
			moves = g.timeMoves(s, occ, pos, g.checkAvailability)
		case MoveRoom:
			moves = g.roomMoves(s, occ, pos, g.checkAvailability)
		case MoveTeacher:
			moves = g.teacherMoves(s, occ, pos, g.checkAvailability)
		case MoveSwap:
			if len(positions) > 1 {
				other := positions[g.rng.Intn(len(positions))]
				moves = g.swapMoves(s, occ, pos, other)
			}
		}
		if len(moves) > 0 {
			return moves[g.rng.Intn(len(moves))], true
		}
	}
	return Move{}, false
}

// selectMoveType 按权重选择移动类型
func (g *MoveGenerator) selectMoveType() MoveType {
	total := 0.0
	for _, w := range g.moveWeights {
		total += w
	}
	r := g.rng.Float64() * total
	cumulative := 0.0
	for i, w := range g.moveWeights {
		cumulative += w
		if r < cumulative {
			return MoveType(i)
		}
	}
	return MoveSwap
}

// MovesForConflict 只生成可能消除该冲突的移动
func (g *MoveGenerator) MovesForConflict(s *model.SchedulingSolution, c model.SchedulingConflict) []Move {
	p := g.problem
	occ := newOccupancy(s)
	var moves []Move
	for _, sid := range c.SectionIDs {
		pos, ok := p.SectionPos(sid)
		if !ok {
			continue
		}
		if _, ok := s.At(pos); !ok {
			continue
		}
		switch c.Type {
		case model.ConflictTeacher:
			moves = append(moves, g.timeMoves(s, occ, pos, g.checkAvailability)...)
			moves = append(moves, g.teacherMoves(s, occ, pos, g.checkAvailability)...)
		case model.ConflictClassroom:
			moves = append(moves, g.timeMoves(s, occ, pos, g.checkAvailability)...)
			moves = append(moves, g.roomMoves(s, occ, pos, g.checkAvailability)...)
		case model.ConflictTeacherAvailability:
			moves = append(moves, g.timeMoves(s, occ, pos, true)...)
			moves = append(moves, g.teacherMoves(s, occ, pos, true)...)
		case model.ConflictClassroomAvailability:
			moves = append(moves, g.timeMoves(s, occ, pos, true)...)
			moves = append(moves, g.roomMoves(s, occ, pos, true)...)
		case model.ConflictCapacity, model.ConflictRoomType, model.ConflictEquipment:
			moves = append(moves, g.roomMoves(s, occ, pos, g.checkAvailability)...)
		case model.ConflictMobility:
			moves = append(moves, g.roomMoves(s, occ, pos, g.checkAvailability)...)
			moves = append(moves, g.timeMoves(s, occ, pos, g.checkAvailability)...)
		case model.ConflictPrerequisite:
			moves = append(moves, g.timeMoves(s, occ, pos, g.checkAvailability)...)
		case model.ConflictWorkload, model.ConflictPreference:
			moves = append(moves, g.teacherMoves(s, occ, pos, g.checkAvailability)...)
			moves = append(moves, g.timeMoves(s, occ, pos, g.checkAvailability)...)
		default:
			moves = append(moves, g.Candidates(s, pos)...)
		}
	}
	return moves
}

// RandomMoveForConflict 从定向候选中随机挑一个
func (g *MoveGenerator) RandomMoveForConflict(s *model.SchedulingSolution, c model.SchedulingConflict) (Move, bool) {
	moves := g.MovesForConflict(s, c)
	if len(moves) == 0 {
		return Move{}, false
	}
	return moves[g.rng.Intn(len(moves))], true
}
