// Package lookup 提供每个排课问题构建一次的只读查找表
//
// 教室适配表与教师资格表由模型构建器与邻域生成器共用，
// 构建后不再修改，可在多个优化协程之间安全共享。
package lookup

import (
	"github.com/samber/lo"

	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/model"
)

// DefaultMinProficiency 默认最低熟练度
const DefaultMinProficiency = 3

// Tables 查找表
type Tables struct {
	problem *model.SchedulingProblem
	version uint64

	minProficiency int

	// 以下均按实体位置索引
	capacityRooms [][]int  // 教学班 -> 容量足够的教室
	suitableRooms [][]int  // 教学班 -> 容量足够且类型兼容的教室
	qualified     [][]int  // 教学班 -> 合格教师
	fallback      []bool   // 教学班的合格教师是否回退为全部教师
	roomOK        [][]bool // [教学班][教室] 适配
	teacherOK     [][]bool // [教学班][教师] 合格
}

// Build 为问题构建查找表
func Build(p *model.SchedulingProblem, minProficiency int) *Tables {
	if minProficiency <= 0 {
		minProficiency = DefaultMinProficiency
	}
	nS, nT, nR, _ := p.Size()
	t := &Tables{
		problem:        p,
		version:        p.Version(),
		minProficiency: minProficiency,
		capacityRooms:  make([][]int, nS),
		suitableRooms:  make([][]int, nS),
		qualified:      make([][]int, nS),
		fallback:       make([]bool, nS),
		roomOK:         make([][]bool, nS),
		teacherOK:      make([][]bool, nS),
	}

	allTeachers := lo.Range(nT)
	log := logger.NewSchedulerLogger().Named("lookup")

	for si := range p.Sections {
		sec := &p.Sections[si]
		t.roomOK[si] = make([]bool, nR)
		for ri := range p.Classrooms {
			room := &p.Classrooms[ri]
			if room.Capacity < sec.Enrollment {
				continue
			}
			t.capacityRooms[si] = append(t.capacityRooms[si], ri)
			if sec.RequiredRoomType == "" || sec.RequiredRoomType.Compatible(room.Type) {
				t.suitableRooms[si] = append(t.suitableRooms[si], ri)
				t.roomOK[si][ri] = true
			}
		}

		t.teacherOK[si] = make([]bool, nT)
		for ti := range p.Teachers {
			pref, ok := p.Preference(p.Teachers[ti].ID, sec.CourseID)
			if ok && pref.ProficiencyLevel >= minProficiency {
				t.qualified[si] = append(t.qualified[si], ti)
				t.teacherOK[si][ti] = true
			}
		}
		if len(t.qualified[si]) == 0 {
			// 无人达标时放开为全部教师，避免模型直接无解
			t.qualified[si] = allTeachers
			t.fallback[si] = true
			for ti := range t.teacherOK[si] {
				t.teacherOK[si][ti] = true
			}
			log.Logger().Debug().Int("section_id", sec.ID).Msg("没有达到熟练度要求的教师，回退为全部教师")
		}
	}
	return t
}

// Problem 所属问题
func (t *Tables) Problem() *model.SchedulingProblem {
	return t.problem
}

// Stale 问题实体变更后查找表过期
func (t *Tables) Stale() bool {
	return t.version != t.problem.Version()
}

// MinProficiency 构建时使用的熟练度阈值
func (t *Tables) MinProficiency() int {
	return t.minProficiency
}

// CapacityRooms 容量足够的教室位置
func (t *Tables) CapacityRooms(sectionPos int) []int {
	return t.capacityRooms[sectionPos]
}

// SuitableRooms 容量足够且类型兼容的教室位置
func (t *Tables) SuitableRooms(sectionPos int) []int {
	return t.suitableRooms[sectionPos]
}

// QualifiedTeachers 合格教师位置
func (t *Tables) QualifiedTeachers(sectionPos int) []int {
	return t.qualified[sectionPos]
}

// UsedFallback 是否回退为全部教师
func (t *Tables) UsedFallback(sectionPos int) bool {
	return t.fallback[sectionPos]
}

// RoomSuitable 教室是否适合该教学班
func (t *Tables) RoomSuitable(sectionPos, roomPos int) bool {
	return t.roomOK[sectionPos][roomPos]
}

// TeacherQualified 教师是否可以讲授该教学班
func (t *Tables) TeacherQualified(sectionPos, teacherPos int) bool {
	return t.teacherOK[sectionPos][teacherPos]
}

// RoomsShortfall 没有容量足够教室的教学班ID
func (t *Tables) RoomsShortfall() []int {
	var ids []int
	for si, rooms := range t.capacityRooms {
		if len(rooms) == 0 {
			ids = append(ids, t.problem.Sections[si].ID)
		}
	}
	return ids
}

// CapacityFit 容量匹配得分 1-5
func CapacityFit(enrollment, capacity int) int {
	if capacity <= 0 {
		return 0
	}
	u := float64(enrollment) / float64(capacity)
	switch {
	case u > 1:
		return 0
	case u >= 0.85:
		return 5
	case u >= 0.70:
		return 4
	case u >= 0.50:
		return 3
	case u >= 0.30:
		return 2
	default:
		return 1
	}
}

// RoomTypeScore 教室类型匹配得分：完全匹配或无要求 5，同类 3，不兼容 0
func RoomTypeScore(required, actual model.RoomType) int {
	switch {
	case required == "" || required == actual:
		return 5
	case required.Compatible(actual):
		return 3
	default:
		return 0
	}
}
