package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dormitory-forms/internal/backend"
	"dormitory-forms/internal/session"
	"dormitory-forms/pkg/idgen"
)

// SetupSessionRoutes 住宿申请会话
func SetupSessionRoutes(rg *gin.RouterGroup, sessions *session.Manager) {
	g := rg.Group("/sessions")
	g.POST("", CreateSession(sessions))
	g.GET("/:id", GetSession(sessions))
	g.DELETE("/:id", DeleteSession(sessions))
	g.PUT("/:id/values", SetValues(sessions))
	g.POST("/:id/faculty", SelectFaculty(sessions))
	g.POST("/:id/preset", ApplyPreset(sessions))
	g.POST("/:id/validate", ValidateSession(sessions))
	g.POST("/:id/errors/jump", JumpToError(sessions))
	g.POST("/:id/submit", SubmitSession(sessions))
	g.GET("/:id/notices", SessionNotices(sessions))
}

type facultyRequest struct {
	FacultyID int `json:"facultyId" binding:"required,min=1"`
}

type facultyResponse struct {
	Groups []backend.Group `json:"groups"`
	View   session.View    `json:"session"`
}

type presetRequest struct {
	DormitoryID  int    `json:"dormitoryId" binding:"required,min=1"`
	AcademicYear string `json:"academicYear" binding:"required"`
}

type presetResponse struct {
	Preset *backend.Preset `json:"preset"`
	View   session.View    `json:"session"`
}

type jumpRequest struct {
	// Index 与 Direction 二选一，都为空时跳到下一个
	Index     *int   `json:"index" binding:"omitempty,min=0"`
	Direction string `json:"direction" binding:"omitempty,oneof=next prev"`
}

type jumpResponse struct {
	Key   string `json:"key"`
	Index int    `json:"index"`
}

// lookup 按路径参数取会话，失败时已写响应
func lookup(c *gin.Context, sessions *session.Manager) (*session.Session, bool) {
	id, err := idgen.ParseID(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	s, err := sessions.Get(id)
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	return s, true
}

// CreateSession godoc
// @Summary Start an accommodation application
// @Description Creates a form session and loads faculties and dormitories. Load failures become notices.
// @Tags sessions
// @Produce json
// @Success 201 {object} session.View
// @Failure 500 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /sessions [post]
func CreateSession(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := sessions.Create()
		if err != nil {
			abortWithError(c, err)
			return
		}
		ctx := c.Request.Context()
		s.LoadFaculties(ctx)
		s.LoadDormitories(ctx)
		c.JSON(http.StatusCreated, s.Snapshot())
	}
}

// GetSession godoc
// @Summary Get a session snapshot
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} session.View
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [get]
func GetSession(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookup(c, sessions)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, s.Snapshot())
	}
}

// DeleteSession godoc
// @Summary Discard a session
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [delete]
func DeleteSession(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idgen.ParseID(c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		if !sessions.Delete(id) {
			abortWithError(c, session.ErrSessionNotFound)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// SetValues godoc
// @Summary Edit field values
// @Description Applies edits in key order and stops at the first locked or unknown field.
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param values body map[string]interface{} true "Field values"
// @Success 200 {object} session.View
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/values [put]
func SetValues(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookup(c, sessions)
		if !ok {
			return
		}
		var values map[string]any
		if err := c.ShouldBindJSON(&values); err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.SetValues(values); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, s.Snapshot())
	}
}

// SelectFaculty godoc
// @Summary Select a faculty and load its groups
// @Description A response superseded by a newer selection is discarded with 409.
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param body body facultyRequest true "Faculty"
// @Success 200 {object} facultyResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/faculty [post]
func SelectFaculty(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookup(c, sessions)
		if !ok {
			return
		}
		var req facultyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
		groups, err := s.SelectFaculty(c.Request.Context(), req.FacultyID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, facultyResponse{Groups: groups, View: s.Snapshot()})
	}
}

// ApplyPreset godoc
// @Summary Load preset dates for a dormitory and academic year
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param body body presetRequest true "Dormitory and academic year"
// @Success 200 {object} presetResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/preset [post]
func ApplyPreset(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookup(c, sessions)
		if !ok {
			return
		}
		var req presetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
		preset, err := s.ApplyPreset(c.Request.Context(), req.DormitoryID, req.AcademicYear)
		if err != nil {
			if errors.Is(err, session.ErrStaleResponse) || errors.Is(err, session.ErrNoBackend) {
				abortWithError(c, err)
				return
			}
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
		c.JSON(http.StatusOK, presetResponse{Preset: preset, View: s.Snapshot()})
	}
}

// ValidateSession godoc
// @Summary Validate the form and reset the error cursor
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} validator.Result
// @Router /sessions/{id}/validate [post]
func ValidateSession(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookup(c, sessions)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, s.Validate())
	}
}

// JumpToError godoc
// @Summary Move the error cursor
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param body body jumpRequest false "Target index or direction"
// @Success 200 {object} jumpResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/errors/jump [post]
func JumpToError(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookup(c, sessions)
		if !ok {
			return
		}
		var req jumpRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				writeError(c, http.StatusBadRequest, err.Error())
				return
			}
		}

		var (
			key string
			err error
		)
		switch {
		case req.Index != nil:
			key, err = s.JumpTo(*req.Index)
		case req.Direction == "prev":
			key, err = s.PrevError()
		default:
			key, err = s.NextError()
		}
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, jumpResponse{Key: key, Index: s.ErrorIndex()})
	}
}

// SubmitSession godoc
// @Summary Submit the application
// @Description 422 carries the merged client and server field errors; other server refusals return 200 with a notice.
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} session.Outcome
// @Failure 422 {object} session.Outcome
// @Router /sessions/{id}/submit [post]
func SubmitSession(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookup(c, sessions)
		if !ok {
			return
		}
		outcome, err := s.Submit(c.Request.Context())
		switch {
		case errors.Is(err, session.ErrInvalidForm):
			c.JSON(http.StatusUnprocessableEntity, outcome)
		case err != nil:
			abortWithError(c, err)
		default:
			c.JSON(http.StatusOK, outcome)
		}
	}
}

// SessionNotices godoc
// @Summary Drain pending notices
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {array} session.Notice
// @Router /sessions/{id}/notices [get]
func SessionNotices(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := lookup(c, sessions)
		if !ok {
			return
		}
		notices := s.Notices()
		if notices == nil {
			notices = []session.Notice{}
		}
		c.JSON(http.StatusOK, notices)
	}
}
