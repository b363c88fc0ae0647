package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dormitory-forms/internal/backend"
	"dormitory-forms/internal/forms"
	"dormitory-forms/internal/navigator"
	"dormitory-forms/pkg/idgen"
	"dormitory-forms/pkg/types"
	"dormitory-forms/pkg/validator"
)

var fixedNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.Local)

// fakeBackend 可控的后端
type fakeBackend struct {
	mu sync.Mutex

	faculties    []backend.Faculty
	facultiesErr error
	groups       map[int][]backend.Group
	groupsErr    error
	// gates 设置后 Groups 会等待通道关闭，模拟迟到的响应（不响应取消）
	gates     map[int]chan struct{}
	started   map[int]chan struct{}
	ctxErrs   map[int]error
	presets   map[int]*backend.Preset
	presetErr error
	submitErr error
	submitted []backend.AccommodationRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		faculties: []backend.Faculty{{ID: 3, Name: "Informatics"}},
		groups: map[int][]backend.Group{
			1: {{ID: 1, Course: 1}, {ID: 2, Course: 1}},
			2: {{ID: 3, Course: 3}, {ID: 4, Course: 4}},
			3: {{ID: 12, Name: "KN-21", Course: 2}},
		},
		gates:   map[int]chan struct{}{},
		started: map[int]chan struct{}{},
		ctxErrs: map[int]error{},
		presets: map[int]*backend.Preset{},
	}
}

func (f *fakeBackend) Faculties(ctx context.Context) ([]backend.Faculty, error) {
	return f.faculties, f.facultiesErr
}

func (f *fakeBackend) Groups(ctx context.Context, facultyID int) ([]backend.Group, error) {
	f.mu.Lock()
	gate := f.gates[facultyID]
	started := f.started[facultyID]
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErrs[facultyID] = ctx.Err()
	if f.groupsErr != nil {
		return nil, f.groupsErr
	}
	return f.groups[facultyID], nil
}

func (f *fakeBackend) Dormitories(ctx context.Context) ([]backend.Dormitory, error) {
	return nil, errors.New("dormitories unavailable")
}

func (f *fakeBackend) Preset(ctx context.Context, dormitoryID int, academicYear string) (*backend.Preset, error) {
	if f.presetErr != nil {
		return nil, f.presetErr
	}
	return f.presets[dormitoryID], nil
}

func (f *fakeBackend) SubmitAccommodation(ctx context.Context, req backend.AccommodationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req)
	return f.submitErr
}

type recordedNotices struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recordedNotices) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordedNotices) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.notices))
	for i, n := range r.notices {
		out[i] = n.Message
	}
	return out
}

// noopTimer 测试中不自动移除高亮
type noopTimer struct{}

func (noopTimer) Stop() bool { return true }

func newTestSession(t *testing.T, fb *fakeBackend) (*Session, *recordedNotices) {
	t.Helper()
	notices := &recordedNotices{}
	s := New(idgen.ID(1), Options{
		Backend:   fb,
		Validator: validator.New(),
		Now:       func() time.Time { return fixedNow },
		Notifier:  notices,
		AfterFunc: func(time.Duration, func()) navigator.Timer { return noopTimer{} },
	})
	t.Cleanup(s.Close)
	return s, notices
}

// fillValid 填写一份合法的申请（院系 3，班级 12）
func fillValid(t *testing.T, s *Session) {
	t.Helper()
	ctx := context.Background()
	_, err := s.SelectFaculty(ctx, 3)
	require.NoError(t, err)

	today := types.DatePartsFromTime(fixedNow)
	require.NoError(t, s.SetValues(map[string]any{
		forms.KeyGroup:              "12",
		forms.KeyFullName:           "Петренко Іван Олегович",
		forms.KeySurname:            "Петренко",
		forms.KeyResidentPhone:      "501234567",
		forms.KeyDormNumber:         5,
		forms.KeyAcademicYearStart:  "2024",
		forms.KeyAcademicYearEnd:    "2025",
		forms.StartDate.Day:         "01",
		forms.StartDate.Month:       "09",
		forms.StartDate.Year:        "24",
		forms.EndDate.Day:           "30",
		forms.EndDate.Month:         "06",
		forms.EndDate.Year:          "25",
		forms.ApplicationDate.Day:   today.Day,
		forms.ApplicationDate.Month: today.Month,
		forms.ApplicationDate.Year:  today.Year,
	}))
}

func TestSession_GroupDerivesCourse(t *testing.T) {
	s, _ := newTestSession(t, newFakeBackend())
	fillValid(t, s)

	course, ok := s.Values().Int(forms.KeyCourse)
	require.True(t, ok)
	assert.Equal(t, 2, course)
	assert.True(t, s.Validate().IsValid())
}

func TestSession_UnknownField(t *testing.T) {
	s, _ := newTestSession(t, newFakeBackend())
	assert.ErrorIs(t, s.SetValue("nickname", "x"), ErrUnknownField)
}

func TestSession_StaleFacultyResponse(t *testing.T) {
	fb := newFakeBackend()
	gateA := make(chan struct{})
	startedA := make(chan struct{})
	fb.gates[1] = gateA
	fb.started[1] = startedA

	s, _ := newTestSession(t, fb)
	ctx := context.Background()

	type outcome struct {
		groups []backend.Group
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		groups, err := s.SelectFaculty(ctx, 1)
		done <- outcome{groups, err}
	}()
	<-startedA

	// A 的响应还没回来时选择 B
	groupsB, err := s.SelectFaculty(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, groupsB, 2)

	close(gateA)
	resA := <-done
	assert.ErrorIs(t, resA.err, ErrStaleResponse)
	assert.Nil(t, resA.groups)

	fb.mu.Lock()
	assert.ErrorIs(t, fb.ctxErrs[1], context.Canceled, "旧请求被取消")
	fb.mu.Unlock()

	// 允许列表仍然是 B 的班级
	assert.Equal(t, fb.groups[2], s.Groups())

	require.NoError(t, s.SetValue(forms.KeyGroup, "1"))
	msg, ok := s.Validate().Message(forms.KeyGroup)
	assert.True(t, ok)
	assert.Equal(t, forms.MsgGroupMismatch, msg)

	require.NoError(t, s.SetValue(forms.KeyGroup, "3"))
	_, ok = s.Validate().Message(forms.KeyGroup)
	assert.False(t, ok)
}

func TestSession_GroupsFetchFailure(t *testing.T) {
	fb := newFakeBackend()
	fb.groupsErr = errors.New("boom")
	s, notices := newTestSession(t, fb)

	groups, err := s.SelectFaculty(context.Background(), 3)
	assert.NoError(t, err, "请求失败不是致命错误")
	assert.Empty(t, groups)
	assert.Equal(t, []string{NoticeGroupsFailed}, notices.messages())
	assert.Equal(t, []Notice{{Level: LevelWarning, Message: NoticeGroupsFailed}}, s.Notices())
	assert.Empty(t, s.Notices(), "读取后清空")
}

func TestSession_ListFallbacks(t *testing.T) {
	fb := newFakeBackend()
	s, notices := newTestSession(t, fb)
	ctx := context.Background()

	assert.Equal(t, fb.faculties, s.LoadFaculties(ctx))

	dorms := s.LoadDormitories(ctx)
	assert.NotNil(t, dorms)
	assert.Empty(t, dorms)
	assert.Equal(t, []string{NoticeDormitoriesFailed}, notices.messages())
}

func TestSession_ApplyPreset(t *testing.T) {
	fb := newFakeBackend()
	fb.presets[5] = &backend.Preset{
		AcademicYear: "2024-2025",
		StartDate:    "2024-09-01",
		EndDate:      "2025-06-30",
	}
	s, _ := newTestSession(t, fb)
	ctx := context.Background()

	preset, err := s.ApplyPreset(ctx, 5, "2024-2025")
	require.NoError(t, err)
	require.NotNil(t, preset)

	values := s.Values()
	assert.Equal(t, types.DateParts{Day: "01", Month: "09", Year: "24"}, forms.StartDate.Parts(values))
	assert.Equal(t, types.DateParts{Day: "30", Month: "06", Year: "25"}, forms.EndDate.Parts(values))
	assert.True(t, s.State(forms.StartDate.Day).IsLocked())
	assert.True(t, s.State(forms.EndDate.Year).Contain(types.FieldPrefilled))
	assert.False(t, s.State(forms.ApplicationDate.Day).IsLocked(), "预设没有申请日期")
	assert.ErrorIs(t, s.SetValue(forms.StartDate.Day, "02"), ErrFieldLocked)

	// 另一栋楼没有预设：解锁，改为手动输入
	preset, err = s.ApplyPreset(ctx, 6, "2024-2025")
	require.NoError(t, err)
	assert.Nil(t, preset)
	assert.False(t, s.State(forms.StartDate.Day).IsLocked())
	assert.NoError(t, s.SetValue(forms.StartDate.Day, "02"))

	_, err = s.ApplyPreset(ctx, 5, "2024")
	assert.Error(t, err)
}

func TestSession_ApplyPresetFailure(t *testing.T) {
	fb := newFakeBackend()
	fb.presetErr = errors.New("timeout")
	s, notices := newTestSession(t, fb)

	preset, err := s.ApplyPreset(context.Background(), 5, "2024-2025")
	assert.NoError(t, err)
	assert.Nil(t, preset)
	assert.Equal(t, []string{NoticePresetFailed}, notices.messages())
	assert.True(t, s.State(forms.StartDate.Day).CanEdit())
}

func TestSession_SubmitInvalid(t *testing.T) {
	fb := newFakeBackend()
	s, _ := newTestSession(t, fb)
	fillValid(t, s)
	require.NoError(t, s.SetValue(forms.KeyResidentPhone, "123"))
	require.NoError(t, s.SetValue(forms.KeyAcademicYearEnd, "2026"))

	outcome, err := s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrInvalidForm)
	require.NotNil(t, outcome)
	assert.False(t, outcome.Submitted)
	assert.Equal(t, []string{forms.KeyResidentPhone, forms.KeyAcademicYearEnd}, outcome.Result.Keys())
	assert.Empty(t, fb.submitted, "客户端验证失败时不发请求")

	// 游标重置并跳到第一个错误
	assert.Equal(t, forms.KeyResidentPhone, s.Focused())
	assert.True(t, s.State(forms.KeyResidentPhone).Contain(types.FieldHighlighted))

	key, err := s.NextError()
	require.NoError(t, err)
	assert.Equal(t, forms.KeyAcademicYearEnd, key)

	// 再次验证时游标回到 0
	s.Validate()
	view := s.Snapshot()
	assert.Equal(t, []string{forms.KeyResidentPhone, forms.KeyAcademicYearEnd}, view.ErrorOrder)
}

func TestSession_SubmitSuccess(t *testing.T) {
	fb := newFakeBackend()
	s, notices := newTestSession(t, fb)
	fillValid(t, s)

	outcome, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.Submitted)
	assert.True(t, s.Submitted())
	require.Len(t, fb.submitted, 1)
	assert.Equal(t, "+380501234567", fb.submitted[0].PhoneNumber)
	assert.Equal(t, 12, fb.submitted[0].GroupID)
	assert.Equal(t, "2024-09-01", fb.submitted[0].StartDate)
	assert.Equal(t, []string{NoticeSubmitted}, notices.messages())
}

func TestSession_SubmitServerErrors(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantErr      error
		wantNotice   string
		wantRedirect string
		wantErrors   map[string]string
	}{
		{
			name:       "重复申请",
			err:        &backend.APIError{Status: http.StatusConflict, Code: backend.CodeDuplicateApplication},
			wantNotice: NoticeDuplicate,
			wantErrors: map[string]string{},
		},
		{
			name:         "资料不完整",
			err:          &backend.APIError{Status: http.StatusForbidden, Code: backend.CodeProfileIncomplete},
			wantNotice:   NoticeProfile,
			wantRedirect: DefaultProfileURL,
			wantErrors:   map[string]string{},
		},
		{
			name: "字段错误合并",
			err: &backend.APIError{
				Status:  http.StatusUnprocessableEntity,
				Message: "Validation failed",
				Details: []backend.ErrorDetail{
					{Path: []string{"phone_number"}, Message: "Phone already used"},
					{Path: []string{"start_date"}, Message: "Outside the preset"},
				},
			},
			wantErr:    ErrInvalidForm,
			wantNotice: NoticeFixErrors,
			wantErrors: map[string]string{
				forms.KeyResidentPhone: "Phone already used",
				forms.StartDate.Day:    "Outside the preset",
			},
		},
		{
			name:       "其它服务端错误",
			err:        &backend.APIError{Status: http.StatusInternalServerError, Message: "Internal error"},
			wantNotice: "Internal error",
			wantErrors: map[string]string{},
		},
		{
			name:       "网络错误",
			err:        errors.New("connection refused"),
			wantNotice: NoticeSubmitFailed,
			wantErrors: map[string]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend()
			fb.submitErr = tt.err
			s, _ := newTestSession(t, fb)
			fillValid(t, s)

			outcome, err := s.Submit(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			require.NotNil(t, outcome)
			assert.False(t, outcome.Submitted)
			assert.Equal(t, tt.wantNotice, outcome.Notice)
			assert.Equal(t, tt.wantRedirect, outcome.Redirect)
			assert.Equal(t, tt.wantErrors, outcome.Result.Messages())
			assert.False(t, s.Submitted())
		})
	}
}

func TestSession_ServerErrorsFollowDeclarationOrder(t *testing.T) {
	fb := newFakeBackend()
	fb.submitErr = &backend.APIError{
		Status: http.StatusUnprocessableEntity,
		Details: []backend.ErrorDetail{
			{Path: []string{"end_date"}, Message: "too late"},
			{Path: []string{"faculty_id"}, Message: "closed"},
		},
	}
	s, _ := newTestSession(t, fb)
	fillValid(t, s)

	_, err := s.Submit(context.Background())
	require.ErrorIs(t, err, ErrInvalidForm)
	assert.Equal(t, []string{forms.KeyFaculty, forms.EndDate.Day}, s.Snapshot().ErrorOrder)
	assert.Equal(t, forms.KeyFaculty, s.Focused())
}

// validatingBackend 提交期间读取一次验证结果，模拟并发的 /validate 请求
type validatingBackend struct {
	*fakeBackend
	session  *Session
	observed *validator.Result
	snapshot []byte
}

func (b *validatingBackend) SubmitAccommodation(ctx context.Context, req backend.AccommodationRequest) error {
	b.observed = b.session.Validate()
	b.snapshot, _ = b.observed.MarshalJSON()
	return b.fakeBackend.SubmitAccommodation(ctx, req)
}

func TestSession_ServerErrorsLeaveIssuedResultUntouched(t *testing.T) {
	fb := newFakeBackend()
	fb.submitErr = &backend.APIError{
		Status: http.StatusUnprocessableEntity,
		Details: []backend.ErrorDetail{
			{Path: []string{"phone_number"}, Message: "Phone already used"},
		},
	}
	vb := &validatingBackend{fakeBackend: fb}
	notices := &recordedNotices{}
	s := New(idgen.ID(1), Options{
		Backend:   vb,
		Validator: validator.New(),
		Now:       func() time.Time { return fixedNow },
		Notifier:  notices,
		AfterFunc: func(time.Duration, func()) navigator.Timer { return noopTimer{} },
	})
	t.Cleanup(s.Close)
	vb.session = s
	fillValid(t, s)

	outcome, err := s.Submit(context.Background())
	require.ErrorIs(t, err, ErrInvalidForm)
	require.NotNil(t, vb.observed)

	// 已交出的结果保持不变，合并只作用在副本上
	assert.True(t, vb.observed.IsValid())
	after, err := vb.observed.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, string(vb.snapshot), string(after))

	assert.NotSame(t, vb.observed, outcome.Result)
	assert.Equal(t, map[string]string{forms.KeyResidentPhone: "Phone already used"}, outcome.Result.Messages())
	assert.Equal(t, []string{forms.KeyResidentPhone}, s.Snapshot().ErrorOrder)
}

func TestManager(t *testing.T) {
	ids, err := idgen.NewSnowflake(0, 2)
	require.NoError(t, err)
	m := NewManager(ids, Options{Backend: newFakeBackend()})

	s, err := m.Create()
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	assert.True(t, m.Delete(s.ID()))
	assert.False(t, m.Delete(s.ID()))
	_, err = m.Get(s.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, m.Len())
}

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestManager_IdleExpiry(t *testing.T) {
	ids, err := idgen.NewSnowflake(0, 3)
	require.NoError(t, err)
	clock := &fakeClock{now: fixedNow}
	m := NewManager(ids, Options{Backend: newFakeBackend()},
		WithIdleTTL(10*time.Minute), WithClock(clock.Now))
	t.Cleanup(m.Close)

	idle, err := m.Create()
	require.NoError(t, err)
	active, err := m.Create()
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)
	_, err = m.Get(active.ID())
	require.NoError(t, err)
	assert.Equal(t, 0, m.Sweep())

	// idle 空闲 11 分钟过期，active 刚访问过 5 分钟
	clock.Advance(5 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())
	_, err = m.Get(idle.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// 过期但尚未清理的会话在 Get 时移除
	clock.Advance(11 * time.Minute)
	_, err = m.Get(active.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, m.Len())
}

func TestManager_MaxSessions(t *testing.T) {
	ids, err := idgen.NewSnowflake(0, 4)
	require.NoError(t, err)
	clock := &fakeClock{now: fixedNow}
	m := NewManager(ids, Options{Backend: newFakeBackend()},
		WithIdleTTL(time.Minute), WithMaxSessions(2), WithClock(clock.Now))
	t.Cleanup(m.Close)

	for i := 0; i < 2; i++ {
		_, err := m.Create()
		require.NoError(t, err)
	}
	_, err = m.Create()
	assert.ErrorIs(t, err, ErrTooManySessions)
	assert.Equal(t, 2, m.Len())

	// 达到上限时先清理过期会话再分配
	clock.Advance(2 * time.Minute)
	s, err := m.Create()
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.Equal(t, 1, m.Len())
}

func TestManager_NoExpiry(t *testing.T) {
	ids, err := idgen.NewSnowflake(0, 5)
	require.NoError(t, err)
	clock := &fakeClock{now: fixedNow}
	m := NewManager(ids, Options{Backend: newFakeBackend()}, WithIdleTTL(0), WithClock(clock.Now))
	t.Cleanup(m.Close)

	s, err := m.Create()
	require.NoError(t, err)
	clock.Advance(24 * time.Hour)
	assert.Equal(t, 0, m.Sweep())
	_, err = m.Get(s.ID())
	assert.NoError(t, err)
}

func TestManager_RunStopsWithContext(t *testing.T) {
	ids, err := idgen.NewSnowflake(0, 6)
	require.NoError(t, err)
	m := NewManager(ids, Options{Backend: newFakeBackend()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
