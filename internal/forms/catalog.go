package forms

import (
	"strconv"

	"dormitory-forms/internal/backend"
)

// GroupCatalog 班级允许列表的来源
// 返回院系下的班级 id（十进制字符串），未知院系返回 nil
type GroupCatalog interface {
	GroupIDs(facultyID string) []string
}

// StaticCatalog 院系 id -> 班级列表，适合命令行和测试
type StaticCatalog map[string][]backend.Group

// GroupIDs 实现 GroupCatalog
func (c StaticCatalog) GroupIDs(facultyID string) []string {
	return groupIDs(c[facultyID])
}

// Course 查找班级对应的年级
func (c StaticCatalog) Course(facultyID, groupID string) (int, bool) {
	return CourseOf(c[facultyID], groupID)
}

// FacultyCatalog 只保存一个院系的班级列表
// 会话在每次院系请求返回后整体替换它，旧院系的查询始终得到空列表
type FacultyCatalog struct {
	FacultyID string
	Groups    []backend.Group
}

// GroupIDs 实现 GroupCatalog
func (c FacultyCatalog) GroupIDs(facultyID string) []string {
	if facultyID == "" || facultyID != c.FacultyID {
		return nil
	}
	return groupIDs(c.Groups)
}

// CourseOf 在班级列表中查找年级
func CourseOf(groups []backend.Group, groupID string) (int, bool) {
	for _, g := range groups {
		if strconv.Itoa(g.ID) == groupID {
			return g.Course, true
		}
	}
	return 0, false
}

func groupIDs(groups []backend.Group) []string {
	if groups == nil {
		return nil
	}
	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = strconv.Itoa(g.ID)
	}
	return ids
}
