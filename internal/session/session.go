// Package session manages user sessions: uploaded sources, generated
// outputs, settings and the running job.
//
// Types:
//   - Session: Tracks uploaded files, outputs, settings and the current job.
//   - SessionManager: Manages all active sessions.
//
// Expected outputs:
// - Session IDs are unique (UUID)
// - Files are tracked per session in upload (or user-defined) order
// - Cleanup removes all files for a session
//
// Used by API handlers to manage user state.
package session

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"go-pdftools/internal/i18n"
	"go-pdftools/internal/job"
	"go-pdftools/internal/utils"
)

var (
	ErrJobRunning   = errors.New("another job is in progress")
	ErrFileNotFound = errors.New("file not found in session")
	ErrInvalidOrder = errors.New("order must list every file exactly once")
)

type FileKind string

const (
	KindPDF   FileKind = "pdf"
	KindImage FileKind = "image"
)

// File is an uploaded source. ID is the stored file name.
type File struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Kind        FileKind `json:"kind"`
	ContentType string   `json:"contentType"`
	Size        int64    `json:"size"`
	Pages       int      `json:"pages,omitempty"`
	Width       int      `json:"width,omitempty"`
	Height      int      `json:"height,omitempty"`
	Encrypted   bool     `json:"encrypted,omitempty"`
	Path        string   `json:"-"`
}

// Output is a generated result waiting to be downloaded.
type Output struct {
	Filename     string
	Path         string
	ContentType  string
	DownloadName string
	CreatedAt    time.Time
}

// Settings are the per-session user preferences. They are replaced as a
// whole, never mutated in place.
type Settings struct {
	Language i18n.Language `json:"language"`
}

type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	files    []File
	outputs  map[string]Output
	settings Settings
	job      *job.Job
	lastSeen time.Time
}

type SessionManager struct {
	Sessions map[string]*Session
	Mutex    sync.RWMutex

	defaults Settings
}

func NewSessionManager(defaults Settings) *SessionManager {
	if defaults.Language == "" {
		defaults.Language = i18n.Default
	}
	return &SessionManager{
		Sessions: make(map[string]*Session),
		defaults: defaults,
	}
}

func (sm *SessionManager) CreateSession() *Session {
	sm.Mutex.Lock()
	defer sm.Mutex.Unlock()

	now := time.Now()
	session := &Session{
		ID:        utils.GenerateUUID(),
		CreatedAt: now,
		outputs:   make(map[string]Output),
		settings:  sm.defaults,
		lastSeen:  now,
	}
	sm.Sessions[session.ID] = session
	return session
}

// GetSession returns the session and marks it as recently used.
func (sm *SessionManager) GetSession(id string) (*Session, bool) {
	sm.Mutex.RLock()
	session, exists := sm.Sessions[id]
	sm.Mutex.RUnlock()
	if exists {
		session.touch()
	}
	return session, exists
}

// DeleteSession removes the session and its files.
func (sm *SessionManager) DeleteSession(id string) {
	sm.Mutex.Lock()
	session, exists := sm.Sessions[id]
	delete(sm.Sessions, id)
	sm.Mutex.Unlock()
	if exists {
		session.Cleanup()
	}
}

// Sweep removes sessions idle for longer than ttl and returns how many were
// removed. Sessions with a running job are kept.
func (sm *SessionManager) Sweep(ttl time.Duration) int {
	var expired []*Session
	sm.Mutex.Lock()
	for id, session := range sm.Sessions {
		if session.idleFor() > ttl && !session.JobRunning() {
			expired = append(expired, session)
			delete(sm.Sessions, id)
		}
	}
	sm.Mutex.Unlock()
	for _, session := range expired {
		session.Cleanup()
	}
	return len(expired)
}

// Len returns the number of active sessions.
func (sm *SessionManager) Len() int {
	sm.Mutex.RLock()
	defer sm.Mutex.RUnlock()
	return len(sm.Sessions)
}

// CleanupAll removes every session and its files.
func (sm *SessionManager) CleanupAll() {
	sm.Mutex.Lock()
	sessions := sm.Sessions
	sm.Sessions = make(map[string]*Session)
	sm.Mutex.Unlock()
	for _, session := range sessions {
		if j := session.Job(); j != nil {
			j.Cancel()
		}
		session.Cleanup()
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastSeen)
}

func (s *Session) AddFile(f File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, f)
}

// GetFiles returns a copy of the files in their current order.
func (s *Session) GetFiles() []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]File(nil), s.files...)
}

// GetFile returns the file with the given ID and kind. An empty kind matches
// any file.
func (s *Session) GetFile(id string, kind FileKind) (File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		if f.ID == id && (kind == "" || f.Kind == kind) {
			return f, nil
		}
	}
	return File{}, ErrFileNotFound
}

// FilesOfKind returns the files of kind in their current order.
func (s *Session) FilesOfKind(kind FileKind) []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []File
	for _, f := range s.files {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

// SetOrder reorders the files. ids must be a permutation of the file IDs of
// one kind; files of other kinds keep their positions relative to each
// other after the reordered ones.
func (s *Session) SetOrder(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) == 0 {
		return ErrInvalidOrder
	}
	byID := make(map[string]File, len(s.files))
	for _, f := range s.files {
		byID[f.ID] = f
	}
	seen := make(map[string]bool, len(ids))
	var kind FileKind
	ordered := make([]File, 0, len(s.files))
	for _, id := range ids {
		f, ok := byID[id]
		if !ok || seen[id] {
			return ErrInvalidOrder
		}
		if kind == "" {
			kind = f.Kind
		} else if f.Kind != kind {
			return ErrInvalidOrder
		}
		seen[id] = true
		ordered = append(ordered, f)
	}
	for _, f := range s.files {
		if f.Kind == kind && !seen[f.ID] {
			return ErrInvalidOrder
		}
	}
	for _, f := range s.files {
		if f.Kind != kind {
			ordered = append(ordered, f)
		}
	}
	s.files = ordered
	return nil
}

// RemoveFile deletes an uploaded file.
func (s *Session) RemoveFile(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.files {
		if f.ID == id {
			os.Remove(f.Path)
			s.files = append(s.files[:i], s.files[i+1:]...)
			return nil
		}
	}
	return ErrFileNotFound
}

func (s *Session) AddOutput(o Output) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	s.outputs[o.Filename] = o
}

func (s *Session) GetOutput(filename string) (Output, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.outputs[filename]
	return o, ok
}

// RemoveOutput forgets the output and deletes its file.
func (s *Session) RemoveOutput(filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.outputs[filename]; ok {
		os.Remove(o.Path)
		delete(s.outputs, filename)
	}
}

func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Session) SetSettings(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// StartJob starts a job of kind unless one is already running. The returned
// context is canceled when the job is canceled or parent is done.
func (s *Session) StartJob(parent context.Context, kind string) (*job.Job, context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job != nil && s.job.Running() {
		return nil, nil, ErrJobRunning
	}
	j, ctx := job.Start(parent, utils.GenerateUUID(), kind)
	s.job = j
	return j, ctx, nil
}

// Job returns the most recent job, or nil.
func (s *Session) Job() *job.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.job
}

func (s *Session) JobRunning() bool {
	j := s.Job()
	return j != nil && j.Running()
}

func (s *Session) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, file := range s.files {
		os.Remove(file.Path)
	}
	for _, o := range s.outputs {
		os.Remove(o.Path)
	}
	s.files = nil
	s.outputs = make(map[string]Output)
}
