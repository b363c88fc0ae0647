package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"dormitory-forms/internal/backend"
	"dormitory-forms/internal/forms"
	"dormitory-forms/internal/navigator"
	"dormitory-forms/pkg/idgen"
	"dormitory-forms/pkg/types"
	"dormitory-forms/pkg/validator"
)

var (
	// ErrFieldLocked 字段由预设填充，只读
	ErrFieldLocked = errors.New("session: field is locked")
	// ErrUnknownField 表单中没有该字段
	ErrUnknownField = errors.New("session: unknown field")
	// ErrStaleResponse 请求返回时已被更新的选择取代，结果被丢弃
	ErrStaleResponse = errors.New("session: response superseded by a newer selection")
	// ErrInvalidForm 表单存在验证错误
	ErrInvalidForm = errors.New("session: form has validation errors")
	// ErrNoBackend 未配置后端
	ErrNoBackend = errors.New("session: backend is not configured")
)

// 用户可见的通知文案
const (
	NoticeFacultiesFailed   = "Could not load faculties"
	NoticeGroupsFailed      = "Could not load groups for the selected faculty"
	NoticeDormitoriesFailed = "Could not load dormitories"
	NoticePresetFailed      = "Could not load preset dates, enter them manually"
	NoticeSubmitted         = "Application submitted"
	NoticeDuplicate         = "You have already submitted an application for this period"
	NoticeProfile           = "Complete your profile before applying"
	NoticeFixErrors         = "Fix the highlighted fields"
	NoticeSubmitFailed      = "Could not submit the application"
)

// DefaultProfileURL 资料不完整时的跳转地址
const DefaultProfileURL = "/profile"

// Options 会话依赖
type Options struct {
	Backend       backend.API
	Validator     *validator.Validator
	CenturyPrefix string
	Now           func() time.Time
	Notifier      Notifier
	Logger        *zap.Logger
	ProfileURL    string

	HighlightDuration time.Duration
	AfterFunc         navigator.AfterFunc
}

func (o Options) withDefaults() Options {
	if o.Validator == nil {
		o.Validator = validator.Default()
	}
	if o.CenturyPrefix == "" {
		o.CenturyPrefix = types.DefaultCenturyPrefix
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Notifier == nil {
		o.Notifier = NewLogNotifier(o.Logger)
	}
	if o.ProfileURL == "" {
		o.ProfileURL = DefaultProfileURL
	}
	return o
}

// Session 一次住宿申请的表单会话
// 持有取值、字段状态、班级目录和错误游标；所有方法并发安全
type Session struct {
	mu sync.Mutex

	id     idgen.ID
	opts   Options
	logger *zap.Logger

	values types.Values
	states map[string]types.FieldState
	known  map[string]struct{}

	faculties   []backend.Faculty
	dormitories []backend.Dormitory
	catalog     forms.FacultyCatalog

	groupFetch  fetchSlot
	presetFetch fetchSlot

	result    *validator.Result
	focused   string
	submitted bool

	cursor  *navigator.Cursor
	notices noticeLog
}

// New 创建会话
func New(id idgen.ID, opts Options) *Session {
	opts = opts.withDefaults()
	fields := forms.AccommodationFields()
	s := &Session{
		id:     id,
		opts:   opts,
		logger: opts.Logger.With(zap.String("session", id.String())),
		values: types.NewValues(len(fields)),
		states: make(map[string]types.FieldState, len(fields)),
		known:  make(map[string]struct{}, len(fields)),
	}
	for _, key := range fields {
		s.known[key] = struct{}{}
	}
	s.cursor = navigator.NewCursor(&fieldRegistry{s: s},
		navigator.WithHighlightDuration(opts.HighlightDuration),
		navigator.WithAfterFunc(opts.AfterFunc),
		navigator.WithLogger(s.logger))
	return s
}

// ID 会话ID
func (s *Session) ID() idgen.ID {
	return s.id
}

// Close 取消进行中的请求并移除高亮
func (s *Session) Close() {
	s.mu.Lock()
	s.groupFetch.stop()
	s.presetFetch.stop()
	s.mu.Unlock()
	s.cursor.Close()
}

// notify 通知并记录
func (s *Session) notify(level Level, message string) {
	n := Notice{Level: level, Message: message}
	s.notices.add(n)
	s.opts.Notifier.Notify(n)
}

// Notices 取出最近的通知
func (s *Session) Notices() []Notice {
	return s.notices.drain()
}

// ============================================================================
// 取值
// ============================================================================

// Values 当前取值的副本
func (s *Session) Values() types.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values.Clone()
}

// State 字段状态
func (s *Session) State(key string) types.FieldState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[key]
}

// SetValue 用户编辑一个字段
// 只读字段返回 ErrFieldLocked；选择班级时自动推导年级
func (s *Session) SetValue(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setValueLocked(key, value)
}

// SetValues 批量编辑，遇到第一个错误时停止
func (s *Session) SetValues(values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range types.Values(values).Keys() {
		if err := s.setValueLocked(key, values[key]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) setValueLocked(key string, value any) error {
	if _, ok := s.known[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	state := s.states[key]
	if state.IsLocked() {
		return fmt.Errorf("%w: %q", ErrFieldLocked, key)
	}

	s.values.SetOrDel(key, value)
	state.Set(types.FieldTouched)
	s.states[key] = state

	if key == forms.KeyGroup {
		s.deriveCourseLocked()
	}
	return nil
}

// deriveCourseLocked 年级由所选班级决定
func (s *Session) deriveCourseLocked() {
	groupID, ok := s.values.Text(forms.KeyGroup)
	if !ok {
		return
	}
	if course, found := forms.CourseOf(s.catalog.Groups, groupID); found {
		s.values.Set(forms.KeyCourse, course)
	}
}

// ============================================================================
// 上下文请求
// ============================================================================

// LoadFaculties 加载院系列表，失败时通知并返回空列表
func (s *Session) LoadFaculties(ctx context.Context) []backend.Faculty {
	if s.opts.Backend == nil {
		return nil
	}
	faculties, err := s.opts.Backend.Faculties(ctx)
	if err != nil {
		s.logger.Warn("load faculties", zap.Error(err))
		s.notify(LevelWarning, NoticeFacultiesFailed)
		faculties = []backend.Faculty{}
	}
	s.mu.Lock()
	s.faculties = faculties
	s.mu.Unlock()
	return faculties
}

// LoadDormitories 加载宿舍楼列表，失败时通知并返回空列表
func (s *Session) LoadDormitories(ctx context.Context) []backend.Dormitory {
	if s.opts.Backend == nil {
		return nil
	}
	dormitories, err := s.opts.Backend.Dormitories(ctx)
	if err != nil {
		s.logger.Warn("load dormitories", zap.Error(err))
		s.notify(LevelWarning, NoticeDormitoriesFailed)
		dormitories = []backend.Dormitory{}
	}
	s.mu.Lock()
	s.dormitories = dormitories
	s.mu.Unlock()
	return dormitories
}

// SelectFaculty 选择院系并加载其班级列表
//
// 选择会立即清空班级和年级；上一次未完成的班级请求被取消。
// 响应返回时，只有请求代数仍是最新且院系取值未变时才应用结果，
// 否则返回 ErrStaleResponse 并丢弃结果。
// 请求失败不是致命错误：通知用户，班级列表为空。
func (s *Session) SelectFaculty(ctx context.Context, facultyID int) ([]backend.Group, error) {
	if s.opts.Backend == nil {
		return nil, ErrNoBackend
	}
	key := strconv.Itoa(facultyID)

	s.mu.Lock()
	if s.states[forms.KeyFaculty].IsLocked() {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrFieldLocked, forms.KeyFaculty)
	}
	s.values.Set(forms.KeyFaculty, facultyID)
	s.touchLocked(forms.KeyFaculty)
	s.values.Delete(forms.KeyGroup)
	s.values.Delete(forms.KeyCourse)
	s.catalog = forms.FacultyCatalog{FacultyID: key}
	gen, fetchCtx := s.groupFetch.begin(ctx)
	s.mu.Unlock()

	groups, err := s.opts.Backend.Groups(fetchCtx, facultyID)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, _ := s.values.Text(forms.KeyFaculty)
	if !s.groupFetch.current(gen) || current != key {
		s.logger.Debug("discard stale groups response",
			zap.Int("faculty", facultyID),
			zap.String("current", current))
		return nil, ErrStaleResponse
	}
	s.groupFetch.finish(gen)

	if err != nil {
		s.logger.Warn("load groups", zap.Int("faculty", facultyID), zap.Error(err))
		s.notify(LevelWarning, NoticeGroupsFailed)
		groups = []backend.Group{}
	}
	s.catalog = forms.FacultyCatalog{FacultyID: key, Groups: groups}
	return groups, nil
}

// Groups 当前院系的班级列表
func (s *Session) Groups() []backend.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]backend.Group, len(s.catalog.Groups))
	copy(out, s.catalog.Groups)
	return out
}

// ApplyPreset 选择宿舍楼和学年后加载预设日期
//
// 有预设时填充并锁定对应的三段式日期；没有预设或请求失败时解锁日期，改为手动输入。
// 过期响应的判定方式与 SelectFaculty 相同。
func (s *Session) ApplyPreset(ctx context.Context, dormitoryID int, academicYear string) (*backend.Preset, error) {
	if s.opts.Backend == nil {
		return nil, ErrNoBackend
	}
	startYear, endYear, err := splitAcademicYear(academicYear)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.values.Set(forms.KeyDormNumber, dormitoryID)
	s.values.Set(forms.KeyAcademicYearStart, startYear)
	s.values.Set(forms.KeyAcademicYearEnd, endYear)
	s.touchLocked(forms.KeyDormNumber)
	gen, fetchCtx := s.presetFetch.begin(ctx)
	s.mu.Unlock()

	preset, fetchErr := s.opts.Backend.Preset(fetchCtx, dormitoryID, academicYear)

	s.mu.Lock()
	defer s.mu.Unlock()

	dorm, _ := s.values.Text(forms.KeyDormNumber)
	if !s.presetFetch.current(gen) || dorm != strconv.Itoa(dormitoryID) || s.academicYearLocked() != academicYear {
		s.logger.Debug("discard stale preset response", zap.Int("dormitory", dormitoryID))
		return nil, ErrStaleResponse
	}
	s.presetFetch.finish(gen)

	if fetchErr != nil {
		s.logger.Warn("load preset", zap.Int("dormitory", dormitoryID), zap.Error(fetchErr))
		s.notify(LevelWarning, NoticePresetFailed)
		preset = nil
	}

	s.unlockDatesLocked()
	if preset == nil {
		return nil, nil
	}

	for _, p := range []struct {
		iso    string
		fields validator.DateFields
	}{
		{preset.StartDate, forms.StartDate},
		{preset.EndDate, forms.EndDate},
		{preset.ApplicationDate, forms.ApplicationDate},
	} {
		if p.iso == "" {
			continue
		}
		parts, err := types.DatePartsFromISO(p.iso)
		if err != nil {
			s.logger.Warn("malformed preset date", zap.String("date", p.iso), zap.Error(err))
			continue
		}
		p.fields.Set(s.values, parts)
		for _, key := range p.fields.Names() {
			state := s.states[key]
			state.Set(types.FieldPrefilled | types.FieldLocked)
			s.states[key] = state
		}
	}
	return preset, nil
}

func (s *Session) academicYearLocked() string {
	start, _ := s.values.Text(forms.KeyAcademicYearStart)
	end, _ := s.values.Text(forms.KeyAcademicYearEnd)
	return start + "-" + end
}

func (s *Session) unlockDatesLocked() {
	for _, triple := range forms.DateTriples() {
		for _, key := range triple.Names() {
			state := s.states[key]
			state.Unset(types.FieldPrefilled | types.FieldLocked)
			s.states[key] = state
		}
	}
}

func (s *Session) touchLocked(key string) {
	state := s.states[key]
	state.Set(types.FieldTouched)
	s.states[key] = state
}

// splitAcademicYear "2024-2025" -> "2024", "2025"
func splitAcademicYear(value string) (string, string, error) {
	start, end, ok := strings.Cut(strings.TrimSpace(value), "-")
	if !ok || len(start) != 4 || len(end) != 4 {
		return "", "", fmt.Errorf("session: academic year %q must look like YYYY-YYYY", value)
	}
	if _, err := strconv.Atoi(start); err != nil {
		return "", "", fmt.Errorf("session: academic year %q: %w", value, err)
	}
	if _, err := strconv.Atoi(end); err != nil {
		return "", "", fmt.Errorf("session: academic year %q: %w", value, err)
	}
	return start, end, nil
}
