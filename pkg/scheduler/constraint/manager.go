package constraint

import (
	"sort"
	"sync"

	"github.com/paiban/kebiao/pkg/model"
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（尽量满足）
)

// CategoryOf 约束所属类别
func CategoryOf(c Constraint) Category {
	if c.IsHard() {
		return CategoryHard
	}
	return CategorySoft
}

// Manager 约束注册表，按层级分区
type Manager struct {
	mu     sync.RWMutex
	levels map[model.HierarchyLevel][]Constraint
}

// NewManager 创建约束管理器
func NewManager() *Manager {
	return &Manager{
		levels: make(map[model.HierarchyLevel][]Constraint),
	}
}

// Register 注册约束，同ID约束会被替换
func (m *Manager) Register(c Constraint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(c.ID())
	lvl := c.Level()
	m.levels[lvl] = append(m.levels[lvl], c)

	// 同层内：硬约束在前，权重高的在前
	list := m.levels[lvl]
	sort.SliceStable(list, func(i, j int) bool {
		ci, cj := list[i], list[j]
		if ci.IsHard() != cj.IsHard() {
			return ci.IsHard()
		}
		return ci.Weight() > cj.Weight()
	})
}

// Unregister 注销约束
func (m *Manager) Unregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(id)
}

func (m *Manager) removeLocked(id string) {
	for lvl, list := range m.levels {
		for i, c := range list {
			if c.ID() == id {
				m.levels[lvl] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Get 按ID获取约束
func (m *Manager) Get(id string) Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, list := range m.levels {
		for _, c := range list {
			if c.ID() == id {
				return c
			}
		}
	}
	return nil
}

// GetAll 获取所有约束，按层级从高优先级到低优先级
func (m *Manager) GetAll() []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Constraint
	for _, lvl := range m.sortedLevelsLocked() {
		result = append(result, m.levels[lvl]...)
	}
	return result
}

// GetByLevel 获取某一层级的约束
func (m *Manager) GetByLevel(lvl model.HierarchyLevel) []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Constraint, len(m.levels[lvl]))
	copy(result, m.levels[lvl])
	return result
}

// GetByCategory 按类别获取约束
func (m *Manager) GetByCategory(cat Category) []Constraint {
	var result []Constraint
	for _, c := range m.GetAll() {
		if CategoryOf(c) == cat {
			result = append(result, c)
		}
	}
	return result
}

func (m *Manager) sortedLevelsLocked() []model.HierarchyLevel {
	lvls := make([]model.HierarchyLevel, 0, len(m.levels))
	for lvl := range m.levels {
		lvls = append(lvls, lvl)
	}
	sort.Slice(lvls, func(i, j int) bool { return lvls[i] < lvls[j] })
	return lvls
}

// Clear 清除所有约束
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels = make(map[model.HierarchyLevel][]Constraint)
}

// Count 返回约束数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, list := range m.levels {
		n += len(list)
	}
	return n
}

// Summary 返回约束摘要
func (m *Manager) Summary() map[string]interface{} {
	all := m.GetAll()
	hard := 0
	byLevel := make(map[string]int)
	for _, c := range all {
		if c.IsHard() {
			hard++
		}
		byLevel[c.Level().String()]++
	}

	return map[string]interface{}{
		"total":    len(all),
		"hard":     hard,
		"soft":     len(all) - hard,
		"by_level": byLevel,
	}
}
