// Package cp 构建排课的布尔约束模型并求取多样化的初始解
package cp

import (
	"fmt"
	"sort"

	"github.com/paiban/kebiao/pkg/model"
)

// VarKey 决策变量键：(教学班, 时间段, 教室, 教师) 的实体ID
type VarKey struct {
	Section   int
	TimeSlot  int
	Classroom int
	Teacher   int
}

// String 仅用于日志与诊断
func (k VarKey) String() string {
	return fmt.Sprintf("s%d/t%d/r%d/f%d", k.Section, k.TimeSlot, k.Classroom, k.Teacher)
}

// Less 键的全序，用于生成签名
func (k VarKey) Less(o VarKey) bool {
	if k.Section != o.Section {
		return k.Section < o.Section
	}
	if k.TimeSlot != o.TimeSlot {
		return k.TimeSlot < o.TimeSlot
	}
	if k.Classroom != o.Classroom {
		return k.Classroom < o.Classroom
	}
	return k.Teacher < o.Teacher
}

// Op 线性约束的比较符
type Op int

const (
	OpLE Op = iota // <=
	OpGE           // >=
	OpEQ           // ==
)

// String 比较符文本
func (o Op) String() string {
	switch o {
	case OpLE:
		return "<="
	case OpGE:
		return ">="
	default:
		return "=="
	}
}

// Family 约束族，用于按族关闭约束做不可行诊断
type Family string

const (
	FamilyAssignment            Family = "assignment"             // 每个教学班恰好一次
	FamilyTeacherClash          Family = "teacher_clash"          // 教师同时段至多一门
	FamilyRoomClash             Family = "room_clash"             // 教室同时段至多一门
	FamilyCapacity              Family = "capacity"               // 容量
	FamilyPrerequisite          Family = "prerequisite"           // 先修错开
	FamilyTeacherAvailability   Family = "teacher_availability"   // 教师不可用
	FamilyClassroomAvailability Family = "classroom_availability" // 教室不可用
	FamilyConverter             Family = "converter"              // 可插拔转换器
	FamilyCut                   Family = "cut"                    // 驱动器添加的割平面
)

// LinearConstraint 线性约束 Σ coeff·x  op  rhs
type LinearConstraint struct {
	Name   string
	Family Family
	Vars   []int
	Coeffs []int // nil 表示全部为 1
	Op     Op
	RHS    int
}

// coeff 第 i 个变量的系数
func (c *LinearConstraint) coeff(i int) int {
	if c.Coeffs == nil {
		return 1
	}
	return c.Coeffs[i]
}

// Satisfied 在给定赋值下是否满足
func (c *LinearConstraint) Satisfied(values []bool) bool {
	sum := 0
	for i, v := range c.Vars {
		if values[v] {
			sum += c.coeff(i)
		}
	}
	switch c.Op {
	case OpLE:
		return sum <= c.RHS
	case OpGE:
		return sum >= c.RHS
	default:
		return sum == c.RHS
	}
}

// Model 布尔约束模型
type Model struct {
	Level model.ConstraintLevel

	keys        []VarKey
	index       map[VarKey]int
	bySection   map[int][]int
	constraints []LinearConstraint
	objective   []int

	// 构建阶段即可判定的不可行原因
	infeasible []Diagnostic
}

// NewModel 创建空模型
func NewModel(level model.ConstraintLevel) *Model {
	return &Model{
		Level:     level,
		index:     make(map[VarKey]int),
		bySection: make(map[int][]int),
	}
}

// NewBoolVar 新建决策变量，键已存在时返回原变量
func (m *Model) NewBoolVar(k VarKey) int {
	if v, ok := m.index[k]; ok {
		return v
	}
	v := len(m.keys)
	m.keys = append(m.keys, k)
	m.index[k] = v
	m.bySection[k.Section] = append(m.bySection[k.Section], v)
	m.objective = append(m.objective, 0)
	return v
}

// Var 按键查找变量
func (m *Model) Var(k VarKey) (int, bool) {
	v, ok := m.index[k]
	return v, ok
}

// Key 变量对应的键
func (m *Model) Key(v int) VarKey {
	return m.keys[v]
}

// Keys 全部变量键（只读）
func (m *Model) Keys() []VarKey {
	return m.keys
}

// NumVars 变量数
func (m *Model) NumVars() int {
	return len(m.keys)
}

// SectionVars 某教学班的全部变量
func (m *Model) SectionVars(sectionID int) []int {
	return m.bySection[sectionID]
}

// Constraints 全部约束（只读）
func (m *Model) Constraints() []LinearConstraint {
	return m.constraints
}

// NumConstraints 约束数
func (m *Model) NumConstraints() int {
	return len(m.constraints)
}

// Add 添加线性约束
func (m *Model) Add(c LinearConstraint) {
	if len(c.Vars) == 0 && trivial(c.Op, c.RHS) {
		return
	}
	m.constraints = append(m.constraints, c)
}

// trivial 空约束 0 op rhs 是否恒成立
func trivial(op Op, rhs int) bool {
	switch op {
	case OpLE:
		return rhs >= 0
	case OpGE:
		return rhs <= 0
	default:
		return rhs == 0
	}
}

// AddExactlyOne Σ vars == 1
func (m *Model) AddExactlyOne(name string, f Family, vars []int) {
	m.Add(LinearConstraint{Name: name, Family: f, Vars: vars, Op: OpEQ, RHS: 1})
}

// AddAtMostOne Σ vars <= 1，变量少于两个时无需约束
func (m *Model) AddAtMostOne(name string, f Family, vars []int) {
	if len(vars) < 2 {
		return
	}
	m.Add(LinearConstraint{Name: name, Family: f, Vars: vars, Op: OpLE, RHS: 1})
}

// ForbidAll 强制变量全部为 0
func (m *Model) ForbidAll(name string, f Family, vars []int) {
	if len(vars) == 0 {
		return
	}
	m.Add(LinearConstraint{Name: name, Family: f, Vars: vars, Op: OpLE, RHS: 0})
}

// SetObjective 设置变量的目标系数（最大化）
func (m *Model) SetObjective(v, weight int) {
	m.objective[v] = weight
}

// Objective 变量的目标系数
func (m *Model) Objective(v int) int {
	return m.objective[v]
}

// ObjectiveValue 赋值对应的目标值
func (m *Model) ObjectiveValue(values []bool) int {
	total := 0
	for v, on := range values {
		if on {
			total += m.objective[v]
		}
	}
	return total
}

// Check 返回赋值违反的约束名
func (m *Model) Check(values []bool) []string {
	var bad []string
	for i := range m.constraints {
		if !m.constraints[i].Satisfied(values) {
			bad = append(bad, m.constraints[i].Name)
		}
	}
	return bad
}

// Infeasible 构建阶段发现的不可行原因
func (m *Model) Infeasible() []Diagnostic {
	return m.infeasible
}

// Clone 复制模型，割平面可以在副本上追加而不影响原模型
func (m *Model) Clone() *Model {
	c := &Model{
		Level:       m.Level,
		keys:        m.keys,
		index:       m.index,
		bySection:   m.bySection,
		constraints: make([]LinearConstraint, len(m.constraints)),
		objective:   m.objective,
		infeasible:  m.infeasible,
	}
	copy(c.constraints, m.constraints)
	return c
}

// Active 赋值中为真的变量键，按键排序
func (m *Model) Active(values []bool) []VarKey {
	var out []VarKey
	for v, on := range values {
		if on {
			out = append(out, m.keys[v])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Stats 模型规模
func (m *Model) Stats() map[string]int {
	byFamily := map[string]int{
		"variables":   len(m.keys),
		"constraints": len(m.constraints),
	}
	for _, c := range m.constraints {
		byFamily["family_"+string(c.Family)]++
	}
	return byFamily
}
