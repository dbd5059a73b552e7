package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/docnum/internal/engine"
	"github.com/google/uuid"
)

// BuildStatus represents the state of a numbering build.
type BuildStatus string

const (
	StatusQueued    BuildStatus = "queued"
	StatusParsing   BuildStatus = "parsing"
	StatusNumbering BuildStatus = "numbering"
	StatusCompleted BuildStatus = "completed"
	// StatusPartial is a completed build that reported warnings.
	StatusPartial BuildStatus = "partial"
	StatusFailed  BuildStatus = "failed"
)

// Done reports whether the status is final.
func (s BuildStatus) Done() bool {
	return s == StatusCompleted || s == StatusPartial || s == StatusFailed
}

// Build tracks one document build. Each build owns its engine result; no
// numbering state is shared between builds.
type Build struct {
	mu sync.Mutex

	ID    string `json:"build_id"`
	DocID string `json:"doc_id"`

	Status   BuildStatus `json:"status"`
	Phase    string      `json:"phase"`
	Filename string      `json:"filename"`
	Title    string      `json:"title"`
	Attempts int         `json:"attempts"`

	Options engine.Options `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	result   *engine.Result
	errors   []string
}

// NewBuild creates a queued build for an uploaded file. The document id is
// derived from the content so rebuilding the same file keeps its id.
func NewBuild(filename, title string, data []byte, opts engine.Options) *Build {
	now := time.Now()
	return &Build{
		ID:        uuid.NewString(),
		DocID:     ContentHashHex(data)[:16],
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		Title:     title,
		Options:   opts,
		CreatedAt: now,
		UpdatedAt: now,
		fileData:  data,
	}
}

// SetStatus updates build status atomically.
func (b *Build) SetStatus(status BuildStatus, phase string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Status = status
	b.Phase = phase
	b.UpdatedAt = time.Now()
}

// AddError records an error.
func (b *Build) AddError(err string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errors = append(b.errors, err)
	b.UpdatedAt = time.Now()
}

func (b *Build) incrAttempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Attempts++
	return b.Attempts
}

func (b *Build) setResult(res *engine.Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.result = res
	if b.Title == "" {
		b.Title = res.Title
	}
	b.fileData = nil
	b.UpdatedAt = time.Now()
}

// Result returns the engine result once the build has completed.
func (b *Build) Result() *engine.Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.result
}

// FileData returns the raw file bytes.
func (b *Build) FileData() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fileData
}

// BuildSnapshot is a read-only, JSON-safe copy of build state.
type BuildSnapshot struct {
	ID       string          `json:"build_id"`
	DocID    string          `json:"doc_id"`
	Status   BuildStatus     `json:"status"`
	Phase    string          `json:"phase"`
	Filename string          `json:"filename"`
	Title    string          `json:"title"`
	Attempts int             `json:"attempts"`
	Errors   []string        `json:"errors"`
	Summary  *engine.Summary `json:"summary,omitempty"`
}

// Snapshot returns a JSON-safe copy of the build state.
func (b *Build) Snapshot() BuildSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := BuildSnapshot{
		ID:       b.ID,
		DocID:    b.DocID,
		Status:   b.Status,
		Phase:    b.Phase,
		Filename: b.Filename,
		Title:    b.Title,
		Attempts: b.Attempts,
		Errors:   append([]string{}, b.errors...),
	}
	if b.result != nil {
		sum := b.result.Summary()
		snap.Summary = &sum
	}
	return snap
}

// BuildStore is a thread-safe in-memory build registry with TTL eviction.
type BuildStore struct {
	mu     sync.Mutex
	builds map[string]*Build
	ttl    time.Duration
}

func NewBuildStore(ttl time.Duration) *BuildStore {
	return &BuildStore{
		builds: make(map[string]*Build),
		ttl:    ttl,
	}
}

func (s *BuildStore) Put(b *Build) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.builds[b.ID] = b
}

func (s *BuildStore) Get(id string) *Build {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builds[id]
}

// Latest returns the most recently created finished build of a document.
func (s *BuildStore) Latest(docID string) *Build {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *Build
	for _, b := range s.builds {
		b.mu.Lock()
		match := b.DocID == docID && b.result != nil
		b.mu.Unlock()
		if match && (latest == nil || b.CreatedAt.After(latest.CreatedAt)) {
			latest = b
		}
	}
	return latest
}

// Len returns the number of stored builds.
func (s *BuildStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.builds)
}

// Cleanup removes expired builds.
func (s *BuildStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, b := range s.builds {
		b.mu.Lock()
		expired := now.Sub(b.UpdatedAt) > s.ttl
		b.mu.Unlock()
		if expired {
			delete(s.builds, id)
		}
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
