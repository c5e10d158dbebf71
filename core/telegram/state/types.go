package state

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the chat.
	StateIdle State = "idle"
)

// Session stores conversation state and collected data for a chat.
type Session struct {
	ChatID int64
	State  State
	Fields map[string]string
	// Scratch lists files and directories to remove when the session ends.
	Scratch []string
}

// Get returns a field value or "".
func (s *Session) Get(key string) string {
	if s == nil || s.Fields == nil {
		return ""
	}
	return s.Fields[key]
}

// Set stores a field value.
func (s *Session) Set(key, value string) {
	if s.Fields == nil {
		s.Fields = make(map[string]string)
	}
	s.Fields[key] = value
}

// AddScratch registers a path for cleanup, ignoring duplicates.
func (s *Session) AddScratch(path string) {
	if path == "" {
		return
	}
	for _, p := range s.Scratch {
		if p == path {
			return
		}
	}
	s.Scratch = append(s.Scratch, path)
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := &Session{ChatID: s.ChatID, State: s.State}
	if s.Fields != nil {
		out.Fields = make(map[string]string, len(s.Fields))
		for k, v := range s.Fields {
			out.Fields[k] = v
		}
	}
	out.Scratch = append([]string(nil), s.Scratch...)
	return out
}

// Store persists sessions keyed by chat ID. Get returns a copy; changes
// become visible only through Update. Lock serialises event handling for one
// chat and returns the unlock function.
type Store interface {
	Get(chatID int64) (*Session, bool)
	Create(chatID int64, st State) *Session
	Update(s *Session)
	Clear(chatID int64)
	Lock(chatID int64) func()
	Active() int
}
