package domain

// Result is the structured outcome of an ingestion call
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// AuthState is the external authentication state of a bot
type AuthState string

const (
	AuthStateAuthed    AuthState = "authed"
	AuthStateNotAuthed AuthState = "not_authed"
)

// Valid reports whether the state is one of the known values
func (s AuthState) Valid() bool {
	return s == AuthStateAuthed || s == AuthStateNotAuthed
}
