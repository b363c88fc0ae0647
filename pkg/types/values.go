package types

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Values 表单取值类型，保存一次表单会话中所有输入框的当前值
//
// 设计说明：
// - 基于 map[string]any，键为表单字段名（如 "residentPhone"、"startDay"）
// - 值通常是字符串（逐键输入的文本框），也可能是数字（下拉框选中的 id）
// - 验证引擎只通过 Text 读取值，统一把数字转为十进制文本，避免类型分支扩散
// - 空字符串、nil 和缺失键是等价的"未填写"状态
//
// 线程安全：
// - map 类型非线程安全，会话层负责加锁
type Values map[string]any

// NewValues 创建一个新的表单取值实例
func NewValues(capacity int) Values {
	return make(Values, capacity)
}

// Set 设置字段值，空键名被忽略
func (v Values) Set(key string, value any) {
	if len(key) == 0 {
		return
	}
	v[key] = value
}

// SetOrDel 设置字段值，value 为 nil 时删除该键
func (v Values) SetOrDel(key string, value any) {
	if len(key) == 0 {
		return
	}
	if value == nil {
		delete(v, key)
		return
	}
	v[key] = value
}

// SetMultiple 批量设置键值对
func (v Values) SetMultiple(pairs map[string]any) {
	for k, val := range pairs {
		if len(k) > 0 {
			v[k] = val
		}
	}
}

// Delete 删除字段
func (v Values) Delete(key string) {
	delete(v, key)
}

// Get 获取原始值
func (v Values) Get(key string) (any, bool) {
	val, ok := v[key]
	return val, ok
}

// Text 获取字段的文本表示（已去除首尾空白）
// 返回值 present 表示字段是否"已填写"：缺失、nil、纯空白字符串均视为未填写
func (v Values) Text(key string) (text string, present bool) {
	raw, ok := v[key]
	if !ok || raw == nil {
		return "", false
	}
	text = strings.TrimSpace(toText(raw))
	return text, text != ""
}

// IsBlank 字段是否未填写
func (v Values) IsBlank(key string) bool {
	_, present := v.Text(key)
	return !present
}

// IsChecked 复选框字段是否勾选：布尔 true，或 "true"、"1"、"on"、"yes"（不区分大小写）
// 缺失、false 和其它文本均视为未勾选
func (v Values) IsChecked(key string) bool {
	raw, ok := v[key]
	if !ok || raw == nil {
		return false
	}
	if b, isBool := raw.(bool); isBool {
		return b
	}
	return IsCheckedText(toText(raw))
}

// IsCheckedText 文本形式的复选框取值是否表示勾选
func IsCheckedText(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "true", "1", "on", "yes":
		return true
	default:
		return false
	}
}

// Int 以整数读取字段，支持数字类型和十进制字符串
func (v Values) Int(key string) (int, bool) {
	raw, ok := v[key]
	if !ok || raw == nil {
		return 0, false
	}
	switch n := raw.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		if n > math.MaxInt || n < math.MinInt {
			return 0, false
		}
		return int(n), true
	case float64:
		// JSON 解码出来的数字都是 float64
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, false
		}
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// Has 检查键是否存在（不论是否为空）
func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}

// Keys 返回排序后的键列表，保证输出稳定
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len 键数量
func (v Values) Len() int {
	return len(v)
}

// Clone 浅拷贝，值本身多为字符串和数字，浅拷贝已足够隔离
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Merge 合并另一个取值集合，后者覆盖前者
func (v Values) Merge(other Values) {
	for k, val := range other {
		if len(k) > 0 {
			v[k] = val
		}
	}
}

func toText(raw any) string {
	switch t := raw.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
