package wizard

import (
	"sort"

	"dormitory-forms/pkg/types"
)

// Conditional 条件必填：When 字段的值等于 Equals 时 Fields 才计入必填
type Conditional struct {
	When   string
	Equals string
	Fields []string
}

// RequiredSet 完成度统计使用的必填字段集合
type RequiredSet struct {
	Base        []string
	Conditional []Conditional
	// Checkboxes 只有勾选后才算已填写的字段（如同意条款）
	Checkboxes []string
}

// filled 字段是否计为已填写
func (r RequiredSet) filled(name string, values types.Values, checkboxes map[string]struct{}) bool {
	if _, ok := checkboxes[name]; ok {
		return values.IsChecked(name)
	}
	return !values.IsBlank(name)
}

func (r RequiredSet) checkboxSet() map[string]struct{} {
	out := make(map[string]struct{}, len(r.Checkboxes))
	for _, name := range r.Checkboxes {
		out[name] = struct{}{}
	}
	return out
}

// Resolve 按当前取值推导必填字段列表（Base 在前，条件字段按声明顺序在后，去重）
func (r RequiredSet) Resolve(values types.Values) []string {
	seen := make(map[string]struct{}, len(r.Base))
	out := make([]string, 0, len(r.Base)+len(r.Conditional))
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, name := range r.Base {
		add(name)
	}
	for _, cond := range r.Conditional {
		text, _ := values.Text(cond.When)
		if text != cond.Equals {
			continue
		}
		for _, name := range cond.Fields {
			add(name)
		}
	}
	return out
}

// determinants 影响集合成员的字段
func (r RequiredSet) determinants() map[string]struct{} {
	out := make(map[string]struct{}, len(r.Conditional))
	for _, cond := range r.Conditional {
		out[cond.When] = struct{}{}
	}
	return out
}

// CompletionRatio 必填字段中已填写的比例，范围 [0, 1]
// 没有必填字段时视为已完成，返回 1
func CompletionRatio(names []string, values types.Values) float64 {
	if len(names) == 0 {
		return 1
	}
	filled := 0
	for _, name := range names {
		if !values.IsBlank(name) {
			filled++
		}
	}
	return float64(filled) / float64(len(names))
}

// Progress 完成度快照
type Progress struct {
	Ratio    float64  `json:"ratio"`
	Percent  int      `json:"percent"`
	Required []string `json:"required"`
	Missing  []string `json:"missing"`
}

// Tracker 在每次取值变化时重新计算完成度
// 决定性字段（如 roomType）变化时重新推导必填集合
type Tracker struct {
	set          RequiredSet
	determinants map[string]struct{}
	checkboxes   map[string]struct{}
	values       types.Values
	required     []string
}

// NewTracker 创建完成度跟踪器，initial 会被复制
func NewTracker(set RequiredSet, initial types.Values) *Tracker {
	values := initial.Clone()
	if values == nil {
		values = types.NewValues(len(set.Base))
	}
	t := &Tracker{
		set:          set,
		determinants: set.determinants(),
		checkboxes:   set.checkboxSet(),
		values:       values,
	}
	t.required = set.Resolve(values)
	return t
}

// Update 更新一个字段并返回新的完成度
func (t *Tracker) Update(key string, value any) Progress {
	t.values.SetOrDel(key, value)
	if _, ok := t.determinants[key]; ok {
		t.required = t.set.Resolve(t.values)
	}
	return t.Progress()
}

// Required 当前的必填字段列表
func (t *Tracker) Required() []string {
	out := make([]string, len(t.required))
	copy(out, t.required)
	return out
}

// Progress 当前完成度
func (t *Tracker) Progress() Progress {
	missing := make([]string, 0)
	for _, name := range t.required {
		if !t.set.filled(name, t.values, t.checkboxes) {
			missing = append(missing, name)
		}
	}
	ratio := 1.0
	if len(t.required) > 0 {
		ratio = float64(len(t.required)-len(missing)) / float64(len(t.required))
	}
	sort.Strings(missing)
	return Progress{
		Ratio:    ratio,
		Percent:  int(ratio*100 + 0.5),
		Required: t.Required(),
		Missing:  missing,
	}
}
