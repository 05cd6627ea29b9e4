package cp

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/paiban/kebiao/pkg/model"
)

// Converter 把软/物理约束转成模型约束，在 Complete 级应用
type Converter interface {
	Name() string
	Apply(m *Model, p *model.SchedulingProblem)
}

// EquipmentConverter 有教室具备全部所需设备时，禁止使用缺设备的教室
type EquipmentConverter struct{}

// Name 转换器名称
func (c *EquipmentConverter) Name() string { return "equipment" }

// Apply 添加约束
func (c *EquipmentConverter) Apply(m *Model, p *model.SchedulingProblem) {
	for _, sec := range p.Sections {
		if len(sec.RequiredEquipment) == 0 {
			continue
		}
		var lacking []int
		satisfiable := false
		for _, v := range m.SectionVars(sec.ID) {
			room := p.Classroom(m.Key(v).Classroom)
			if room.HasEquipment(sec.RequiredEquipment) {
				satisfiable = true
			} else {
				lacking = append(lacking, v)
			}
		}
		// 没有任何教室满足时保持可解，由评估阶段计分
		if !satisfiable {
			continue
		}
		m.ForbidAll(fmt.Sprintf("equipment_s%d", sec.ID), FamilyConverter, lacking)
	}
}

// CampusProximityConverter 教师相邻两节课不能跨校区
type CampusProximityConverter struct {
	MaxGapMinutes int
}

// Name 转换器名称
func (c *CampusProximityConverter) Name() string { return "campus_proximity" }

// Apply 添加约束
func (c *CampusProximityConverter) Apply(m *Model, p *model.SchedulingProblem) {
	type slotCampus struct {
		slot   int
		campus string
	}
	byTeacher := make(map[int]map[slotCampus][]int)
	campuses := make(map[string]bool)
	for v, k := range m.Keys() {
		room := p.Classroom(k.Classroom)
		if room.Campus == "" {
			continue
		}
		campuses[room.Campus] = true
		if byTeacher[k.Teacher] == nil {
			byTeacher[k.Teacher] = make(map[slotCampus][]int)
		}
		sc := slotCampus{k.TimeSlot, room.Campus}
		byTeacher[k.Teacher][sc] = append(byTeacher[k.Teacher][sc], v)
	}
	if len(campuses) < 2 {
		return
	}

	names := lo.Keys(campuses)
	sort.Strings(names)
	for _, t := range p.Teachers {
		groups := byTeacher[t.ID]
		if groups == nil {
			continue
		}
		for i := range p.TimeSlots {
			for j := range p.TimeSlots {
				s1, s2 := p.TimeSlots[i], p.TimeSlots[j]
				gap := s1.GapTo(s2)
				if i == j || gap < 0 || gap > c.MaxGapMinutes {
					continue
				}
				for _, c1 := range names {
					for _, c2 := range names {
						if c1 == c2 {
							continue
						}
						a := groups[slotCampus{s1.ID, c1}]
						b := groups[slotCampus{s2.ID, c2}]
						if len(a) == 0 || len(b) == 0 {
							continue
						}
						vars := append(append([]int{}, a...), b...)
						m.AddAtMostOne(fmt.Sprintf("campus_f%d_t%d_t%d_%s_%s", t.ID, s1.ID, s2.ID, c1, c2), FamilyConverter, vars)
					}
				}
			}
		}
	}
}
