package preview

import (
	"sync"

	"github.com/google/uuid"

	"filesrus/internal/store"
)

// StreamState is the adaptive-stream load sub-state. Error is terminal for
// the mount: the session stays open but renders a message instead of a
// player.
type StreamState int

const (
	StreamNone StreamState = iota
	StreamLoading
	StreamReady
	StreamError
)

func (s StreamState) String() string {
	switch s {
	case StreamLoading:
		return "loading"
	case StreamReady:
		return "ready"
	case StreamError:
		return "error"
	default:
		return "none"
	}
}

// Session is one open preview: a resolved player kind plus the playback
// state local to it. The mode lives only on the session and is never
// written back to the file record.
type Session struct {
	id     string
	viewer string
	fileID string
	player PlayerKind

	mu        sync.Mutex
	mode      PlaybackMode
	frozen    bool
	stream    StreamState
	streamErr string
	closed    bool
}

func (s *Session) ID() string         { return s.id }
func (s *Session) FileID() string     { return s.fileID }
func (s *Session) Player() PlayerKind { return s.player }

func (s *Session) Mode() PlaybackMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode applies an explicit mode selection. Selecting the active mode
// again is a no-op with no side effects. Players without playback state
// (static image, unsupported) ignore mode changes entirely. Returns whether
// the mode changed.
func (s *Session) SetMode(mode PlaybackMode) bool {
	if !s.player.Playable() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || mode == s.mode {
		return false
	}
	s.mode = mode
	if mode != ModeOnce {
		s.frozen = false
	}
	return true
}

// ToggleFrozen freezes or resumes an animated image. Animated images cannot
// be paused mid-loop, so Once is approximated by a frozen frame toggled on
// user interaction. Outside Once mode, or for other players, the toggle is
// ignored. Returns the frozen state after the call.
func (s *Session) ToggleFrozen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.player != PlayerAnimatedImage || s.mode != ModeOnce {
		return s.frozen
	}
	s.frozen = !s.frozen
	return s.frozen
}

func (s *Session) Frozen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frozen
}

func (s *Session) Stream() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream
}

func (s *Session) StreamError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamErr
}

// MarkStreamReady transitions the adaptive stream from loading to ready.
// No-op for other players or once the stream has errored.
func (s *Session) MarkStreamReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != PlayerAdaptiveStream || s.stream != StreamLoading {
		return
	}
	s.stream = StreamReady
}

// FailStream records a fatal stream error. The error state is terminal for
// this mount; only this player instance is disabled.
func (s *Session) FailStream(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != PlayerAdaptiveStream || s.stream == StreamError {
		return
	}
	s.stream = StreamError
	s.streamErr = msg
}

// Manager owns preview sessions and the decode resources behind them. A
// viewer holds at most one open preview: opening another file releases the
// previous session first, and Close releases deterministically, so decode
// sessions cannot leak across open/close cycles.
type Manager struct {
	mu       sync.Mutex
	byID     map[string]*Session
	byViewer map[string]*Session
	decodes  int
}

func NewManager() *Manager {
	return &Manager{
		byID:     make(map[string]*Session),
		byViewer: make(map[string]*Session),
	}
}

// Open resolves the record's player and starts a session for the viewer.
// Any session the viewer already holds is closed first.
func (m *Manager) Open(viewer string, rec *store.FileRecord) *Session {
	player := ResolvePlayer(string(rec.FileType))
	mode, _ := ParseMode(rec.PlaybackMode)

	sess := &Session{
		id:     uuid.NewString(),
		viewer: viewer,
		fileID: rec.ID,
		player: player,
		mode:   mode,
	}
	if player == PlayerAdaptiveStream {
		sess.stream = StreamLoading
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev := m.byViewer[viewer]; prev != nil {
		m.closeLocked(prev)
	}

	m.byID[sess.id] = sess
	m.byViewer[viewer] = sess
	if player.Playable() {
		m.decodes++
	}
	return sess
}

// Get returns the session with the given id, if it is still open.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.byID[id]
	return sess, ok
}

// Close releases the session's decode resource and forgets it. Returns
// whether a session was closed.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.byID[id]
	if !ok {
		return false
	}
	m.closeLocked(sess)
	return true
}

func (m *Manager) closeLocked(sess *Session) {
	delete(m.byID, sess.id)
	if m.byViewer[sess.viewer] == sess {
		delete(m.byViewer, sess.viewer)
	}

	sess.mu.Lock()
	alreadyClosed := sess.closed
	sess.closed = true
	sess.mu.Unlock()

	if !alreadyClosed && sess.player.Playable() {
		m.decodes--
	}
}

// ActiveDecodes returns the number of live decode sessions.
func (m *Manager) ActiveDecodes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decodes
}

// OpenSessions returns the number of open sessions.
func (m *Manager) OpenSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}
