package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

var errBackend = errors.New("backend down")

// mockLexicalIndex answers by query string. Unknown queries return no hits.
type mockLexicalIndex struct {
	mu      sync.Mutex
	hits    map[string][]driven.LexicalHit
	errs    map[string]error
	delay   map[string]time.Duration
	queries []driven.LexicalQuery
}

func newMockLexicalIndex() *mockLexicalIndex {
	return &mockLexicalIndex{
		hits:  make(map[string][]driven.LexicalHit),
		errs:  make(map[string]error),
		delay: make(map[string]time.Duration),
	}
}

func (m *mockLexicalIndex) Search(ctx context.Context, q driven.LexicalQuery) ([]driven.LexicalHit, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	hits, err, delay := m.hits[q.Query], m.errs[q.Query], m.delay[q.Query]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}

func (m *mockLexicalIndex) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

// mockLLM returns a fixed reply and counts calls.
type mockLLM struct {
	reply    string
	err      error
	delay    time.Duration
	calls    atomic.Int32
	lastOpts driven.ChatOptions
	lastMsgs []driven.ChatMessage
	mu       sync.Mutex
}

func (m *mockLLM) Chat(ctx context.Context, msgs []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.lastOpts = opts
	m.lastMsgs = msgs
	m.mu.Unlock()
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.reply, m.err
}

func (m *mockLLM) ModelName() string            { return "mock" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// mockEmbedding maps text to a fixed vector.
type mockEmbedding struct {
	vectors map[string][]float32
	err     error
}

func (m *mockEmbedding) Embed(_ context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.vectors[text], nil
}

func (m *mockEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbedding) Dimensions() int              { return 2 }
func (m *mockEmbedding) ModelName() string            { return "mock-embed" }
func (m *mockEmbedding) Ping(_ context.Context) error { return nil }
func (m *mockEmbedding) Close() error                 { return nil }

// mockVectorIndex returns canned hits regardless of the query vector and
// records the queries it saw.
type mockVectorIndex struct {
	mu      sync.Mutex
	hits    []driven.VectorHit
	err     error
	queries []driven.VectorQuery
}

func (m *mockVectorIndex) Upsert(_ context.Context, _ domain.Chunk, _ []float32) error { return nil }
func (m *mockVectorIndex) Delete(_ context.Context, _ string) error                    { return nil }
func (m *mockVectorIndex) Close() error                                                { return nil }

func (m *mockVectorIndex) Search(_ context.Context, q driven.VectorQuery) ([]driven.VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	if m.err != nil {
		return nil, m.err
	}
	return m.hits, nil
}

// mockReranker returns a fixed order.
type mockReranker struct {
	order []string
	err   error
	calls int
	seen  []driven.RerankCandidate
}

func (m *mockReranker) Rerank(_ context.Context, _ string, c []driven.RerankCandidate) ([]string, error) {
	m.calls++
	m.seen = c
	return m.order, m.err
}

// failingMembershipStore fails every lookup.
type failingMembershipStore struct{}

func (failingMembershipStore) SavePerson(context.Context, *domain.Person) error   { return errBackend }
func (failingMembershipStore) SaveTeam(context.Context, *domain.Team) error       { return errBackend }
func (failingMembershipStore) SaveProject(context.Context, *domain.Project) error { return errBackend }
func (failingMembershipStore) SaveMembership(context.Context, domain.TeamMembership) error {
	return errBackend
}
func (failingMembershipStore) AssignTeam(context.Context, domain.ProjectAssignment) error {
	return errBackend
}
func (failingMembershipStore) MembershipsForPerson(context.Context, string) ([]domain.TeamMembership, error) {
	return nil, errBackend
}
func (failingMembershipStore) ProjectsForTeam(context.Context, string) ([]string, error) {
	return nil, errBackend
}

// stubSubject is a minimal Subject for access tests.
type stubSubject struct {
	id     string
	person string
	scopes []string
}

func (s stubSubject) SubjectID() string      { return s.id }
func (s stubSubject) LinkedPersonID() string { return s.person }
func (s stubSubject) HasScope(scope string) bool {
	for _, sc := range s.scopes {
		if sc == scope {
			return true
		}
	}
	return false
}

// stubResource is a minimal Resource for access tests.
type stubResource struct {
	sensitivity domain.SensitivityLevel
	project     string
	creator     string
	people      []string
}

func (r stubResource) ResourceSensitivity() domain.SensitivityLevel { return r.sensitivity }
func (r stubResource) ResourceProject() string                      { return r.project }
func (r stubResource) ResourceCreator() string                      { return r.creator }
func (r stubResource) AttachedPeople() []string                     { return r.people }
