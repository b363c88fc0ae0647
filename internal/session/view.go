package session

import (
	"dormitory-forms/internal/backend"
	"dormitory-forms/pkg/idgen"
	"dormitory-forms/pkg/types"
)

// View 会话的只读快照
type View struct {
	ID          idgen.ID                    `json:"id"`
	Values      types.Values                `json:"values"`
	States      map[string]types.FieldState `json:"states"`
	Faculties   []backend.Faculty           `json:"faculties"`
	Groups      []backend.Group             `json:"groups"`
	Dormitories []backend.Dormitory         `json:"dormitories"`
	Errors      map[string]string           `json:"errors"`
	ErrorOrder  []string                    `json:"errorOrder"`
	Focused     string                      `json:"focused,omitempty"`
	Submitted   bool                        `json:"submitted"`
}

// Snapshot 当前状态快照
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := make(map[string]types.FieldState, len(s.states))
	for key, state := range s.states {
		if state != types.FieldNone {
			states[key] = state
		}
	}
	v := View{
		ID:          s.id,
		Values:      s.values.Clone(),
		States:      states,
		Faculties:   append([]backend.Faculty(nil), s.faculties...),
		Groups:      append([]backend.Group(nil), s.catalog.Groups...),
		Dormitories: append([]backend.Dormitory(nil), s.dormitories...),
		Errors:      s.result.Messages(),
		ErrorOrder:  s.cursor.Keys(),
		Focused:     s.focused,
		Submitted:   s.submitted,
	}
	return v
}
