package validator

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PathKind 字段路径的形态
type PathKind uint8

const (
	// PathSimple 普通字段：name
	PathSimple PathKind = iota
	// PathIndexed 列表字段的元素：name[index]
	PathIndexed
	// PathIndexedSub 列表元素的子字段：name[index].sub
	PathIndexedSub
)

// maxFlattenDepth 展开错误树时允许的最大嵌套深度
const maxFlattenDepth = 32

var (
	ErrEmptyPath          = errors.New("path: empty path")
	ErrMalformedPath      = errors.New("path: malformed path")
	ErrMalformedErrorTree = errors.New("path: malformed error tree")
)

// FieldPath 错误归属的字段路径（带标签的变体）
// Simple(name) | Indexed(name, index) | IndexedSub(name, index, sub)
type FieldPath struct {
	Kind  PathKind
	Name  string
	Index int
	Sub   string
}

// Simple 普通字段路径
func Simple(name string) FieldPath {
	return FieldPath{Kind: PathSimple, Name: name}
}

// Indexed 列表元素路径
func Indexed(name string, index int) FieldPath {
	return FieldPath{Kind: PathIndexed, Name: name, Index: index}
}

// IndexedSub 列表元素子字段路径
func IndexedSub(name string, index int, sub string) FieldPath {
	return FieldPath{Kind: PathIndexedSub, Name: name, Index: index, Sub: sub}
}

// Key 路径的字符串形式，用作错误映射的键
func (p FieldPath) Key() string {
	switch p.Kind {
	case PathIndexed:
		return p.Name + "[" + strconv.Itoa(p.Index) + "]"
	case PathIndexedSub:
		return p.Name + "[" + strconv.Itoa(p.Index) + "]." + p.Sub
	default:
		return p.Name
	}
}

// String 实现 fmt.Stringer
func (p FieldPath) String() string {
	return p.Key()
}

// ParseFieldPath 解析 Key() 生成的字符串："name"、"name[1]"、"name[1].sub"
func ParseFieldPath(key string) (FieldPath, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return FieldPath{}, ErrEmptyPath
	}

	open := strings.IndexByte(key, '[')
	if open < 0 {
		if strings.ContainsAny(key, "].") {
			return FieldPath{}, fmt.Errorf("%w: %q", ErrMalformedPath, key)
		}
		return Simple(key), nil
	}

	closeIdx := strings.IndexByte(key, ']')
	if open == 0 || closeIdx < open {
		return FieldPath{}, fmt.Errorf("%w: %q", ErrMalformedPath, key)
	}
	index, err := strconv.Atoi(key[open+1 : closeIdx])
	if err != nil || index < 0 {
		return FieldPath{}, fmt.Errorf("%w: %q", ErrMalformedPath, key)
	}

	name := key[:open]
	rest := key[closeIdx+1:]
	switch {
	case rest == "":
		return Indexed(name, index), nil
	case strings.HasPrefix(rest, ".") && len(rest) > 1:
		return IndexedSub(name, index, rest[1:]), nil
	default:
		return FieldPath{}, fmt.Errorf("%w: %q", ErrMalformedPath, key)
	}
}

// PathFromSegments 由服务端返回的路径片段构建路径
//
//	["phone_number"]            -> Simple("phone_number")
//	["rooms", "0"]              -> Indexed("rooms", 0)
//	["rooms", "0", "number"]    -> IndexedSub("rooms", 0, "number")
//	["rooms", "0", "a", "b"]    -> IndexedSub("rooms", 0, "a.b")
//	["address", "city"]         -> Simple("address")（非数字下标时收敛到根字段）
func PathFromSegments(segments []string) (FieldPath, error) {
	if len(segments) == 0 || strings.TrimSpace(segments[0]) == "" {
		return FieldPath{}, ErrEmptyPath
	}
	name := strings.TrimSpace(segments[0])
	if len(segments) == 1 {
		return Simple(name), nil
	}
	index, err := strconv.Atoi(strings.TrimSpace(segments[1]))
	if err != nil || index < 0 {
		return Simple(name), nil
	}
	if len(segments) == 2 {
		return Indexed(name, index), nil
	}
	return IndexedSub(name, index, strings.Join(segments[2:], ".")), nil
}

// PathError 展开后的单条错误
type PathError struct {
	Path    FieldPath
	Message string
}

// FlattenErrors 把嵌套的错误树展开为有序的路径错误列表
//
// 错误树的约定（即解码后的 JSON）：
//   - 叶子：字符串，或带 "message" 字符串字段的对象
//   - 顶层键 -> 叶子：Simple(key)
//   - 顶层键 -> 数组：第 i 个元素为叶子时 Indexed(key, i)；
//     为对象时其每个子键产生 IndexedSub(key, i, sub)，子键下更深的结构收敛为第一条叶子消息
//   - 顶层键 -> 非叶子对象：收敛为 Simple(key)，取第一条叶子消息
//   - nil 元素被跳过；数字、布尔等其它类型返回 ErrMalformedErrorTree
//
// 顺序：order 中列出的键按 order 顺序在前，其余键按字典序在后；
// 数组按下标，对象子键按字典序
func FlattenErrors(tree map[string]any, order []string) ([]PathError, error) {
	var out []PathError
	for _, key := range orderedKeys(tree, order) {
		node := tree[key]
		if node == nil {
			continue
		}

		if msg, ok := leafMessage(node); ok {
			out = append(out, PathError{Path: Simple(key), Message: msg})
			continue
		}

		switch typed := node.(type) {
		case []any:
			items, err := flattenItems(key, typed)
			if err != nil {
				return nil, err
			}
			out = append(out, items...)
		case map[string]any:
			msg, ok, err := firstLeaf(typed, 1)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			if ok {
				out = append(out, PathError{Path: Simple(key), Message: msg})
			}
		default:
			return nil, fmt.Errorf("%w: %s has type %T", ErrMalformedErrorTree, key, node)
		}
	}
	return out, nil
}

func flattenItems(key string, items []any) ([]PathError, error) {
	var out []PathError
	for i, item := range items {
		if item == nil {
			continue
		}
		if msg, ok := leafMessage(item); ok {
			out = append(out, PathError{Path: Indexed(key, i), Message: msg})
			continue
		}
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] has type %T", ErrMalformedErrorTree, key, i, item)
		}
		for _, sub := range orderedKeys(obj, nil) {
			if obj[sub] == nil {
				continue
			}
			msg, found, err := firstLeafOf(obj[sub], 2)
			if err != nil {
				return nil, fmt.Errorf("%s[%d].%s: %w", key, i, sub, err)
			}
			if found {
				out = append(out, PathError{Path: IndexedSub(key, i, sub), Message: msg})
			}
		}
	}
	return out, nil
}

// leafMessage 节点是否为叶子，是则返回消息
func leafMessage(node any) (string, bool) {
	switch typed := node.(type) {
	case string:
		return typed, true
	case map[string]any:
		if msg, ok := typed["message"].(string); ok {
			return msg, true
		}
	}
	return "", false
}

// firstLeafOf 深度优先查找第一条叶子消息
func firstLeafOf(node any, depth int) (string, bool, error) {
	if depth > maxFlattenDepth {
		return "", false, fmt.Errorf("%w: nesting deeper than %d", ErrMalformedErrorTree, maxFlattenDepth)
	}
	if node == nil {
		return "", false, nil
	}
	if msg, ok := leafMessage(node); ok {
		return msg, true, nil
	}
	switch typed := node.(type) {
	case map[string]any:
		return firstLeaf(typed, depth)
	case []any:
		for _, item := range typed {
			msg, ok, err := firstLeafOf(item, depth+1)
			if err != nil || ok {
				return msg, ok, err
			}
		}
		return "", false, nil
	default:
		return "", false, fmt.Errorf("%w: unexpected %T", ErrMalformedErrorTree, node)
	}
}

func firstLeaf(obj map[string]any, depth int) (string, bool, error) {
	for _, key := range orderedKeys(obj, nil) {
		msg, ok, err := firstLeafOf(obj[key], depth+1)
		if err != nil || ok {
			return msg, ok, err
		}
	}
	return "", false, nil
}

// orderedKeys order 中存在的键在前，其余按字典序
func orderedKeys(m map[string]any, order []string) []string {
	keys := make([]string, 0, len(m))
	seen := make(map[string]struct{}, len(m))
	for _, key := range order {
		if _, ok := m[key]; !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	rest := make([]string, 0, len(m)-len(keys))
	for key := range m {
		if _, ok := seen[key]; !ok {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
