// Package mock provides a thread-safe, fully in-memory implementation of all
// memory-layer interfaces.
//
// It serves two purposes: the test double required by the pipeline tests, and
// the development backend used when no Postgres DSN is configured. Similarity
// search is exact (brute-force cosine) and applies the same score
// normalisation and tie-break rules as the Postgres/pgvector backend, so
// tests written against this package hold against production.
//
// All operations are safe for concurrent use.
package mock

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/memoroo/memoroo/pkg/apperr"
	"github.com/memoroo/memoroo/pkg/memory"
)

// Compile-time interface checks.
var (
	_ memory.UnitStore         = (*Store)(nil)
	_ memory.VectorIndex       = (*Store)(nil)
	_ memory.ConversationStore = (*Store)(nil)
	_ memory.GraphStore        = (*Store)(nil)
	_ memory.LifeStore         = (*Store)(nil)
	_ memory.UserStore         = (*Store)(nil)
)

// vecKey identifies one stored vector.
type vecKey struct {
	owner      string
	sourceType memory.SourceType
	sourceID   string
}

// vecEntry pairs a vector with the instant it was first indexed. The
// timestamp is preserved across re-upserts so that the tie-break order stays
// stable when a unit is re-embedded.
type vecEntry struct {
	vector    []float32
	createdAt time.Time
}

// unitKey identifies one stored unit within an owner's namespace.
type unitKey struct {
	owner string
	id    string
}

// edgeKey identifies one directed edge.
type edgeKey struct {
	owner   string
	source  string
	target  string
	relType string
}

// Store is the in-memory backend. The zero value is NOT usable; create
// instances with [New].
type Store struct {
	mu sync.RWMutex

	units         map[unitKey]memory.MemoryUnit
	vectors       map[vecKey]vecEntry
	conversations map[unitKey]memory.Conversation
	messages      map[string][]memory.ChatMessage // conversation id → ordered messages
	edges         map[edgeKey]memory.Edge
	moodLogs      map[unitKey]memory.MoodLog
	timeline      map[unitKey]memory.TimelineEvent
	habits        map[unitKey]memory.Habit
	users         map[string]memory.User // user id → user

	// now is the clock; overridable in tests.
	now func() time.Time
}

// New returns an initialised, empty [Store].
func New() *Store {
	return &Store{
		units:         make(map[unitKey]memory.MemoryUnit),
		vectors:       make(map[vecKey]vecEntry),
		conversations: make(map[unitKey]memory.Conversation),
		messages:      make(map[string][]memory.ChatMessage),
		edges:         make(map[edgeKey]memory.Edge),
		moodLogs:      make(map[unitKey]memory.MoodLog),
		timeline:      make(map[unitKey]memory.TimelineEvent),
		habits:        make(map[unitKey]memory.Habit),
		users:         make(map[string]memory.User),
		now:           time.Now,
	}
}

// SetClock overrides the store's clock. Intended for tests that need
// deterministic timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// ─────────────────────────────────────────────────────────────────────────────
// UnitStore
// ─────────────────────────────────────────────────────────────────────────────

// PutUnit implements [memory.UnitStore].
func (s *Store) PutUnit(_ context.Context, unit memory.MemoryUnit) error {
	if unit.OwnerID == "" || unit.ID == "" {
		return fmt.Errorf("mock store: put unit: owner id and id must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := unitKey{owner: unit.OwnerID, id: unit.ID}
	if existing, ok := s.units[key]; ok {
		unit.CreatedAt = existing.CreatedAt
	} else if unit.CreatedAt.IsZero() {
		unit.CreatedAt = s.now()
	}
	unit.UpdatedAt = s.now()
	s.units[key] = unit
	return nil
}

// GetUnit implements [memory.UnitStore].
func (s *Store) GetUnit(_ context.Context, ownerID, id string) (*memory.MemoryUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.units[unitKey{owner: ownerID, id: id}]
	if !ok {
		return nil, nil
	}
	cp := u
	return &cp, nil
}

// ListUnits implements [memory.UnitStore].
func (s *Store) ListUnits(_ context.Context, ownerID string, opts ...memory.ListOpt) ([]memory.MemoryUnit, error) {
	params := memory.ApplyListOpts(opts)

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []memory.MemoryUnit{}
	for key, u := range s.units {
		if key.owner != ownerID {
			continue
		}
		if len(params.SourceTypes) > 0 && !containsType(params.SourceTypes, u.SourceType) {
			continue
		}
		if params.Search != "" {
			q := strings.ToLower(params.Search)
			if !strings.Contains(strings.ToLower(u.Title), q) &&
				!strings.Contains(strings.ToLower(u.Content), q) {
				continue
			}
		}
		if !params.After.IsZero() && !u.CreatedAt.After(params.After) {
			continue
		}
		if !params.Before.IsZero() && !u.CreatedAt.Before(params.Before) {
			continue
		}
		results = append(results, u)
	}

	sort.Slice(results, func(i, j int) bool {
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].ID < results[j].ID
	})
	if params.Limit > 0 && len(results) > params.Limit {
		results = results[:params.Limit]
	}
	return results, nil
}

// DeleteUnit implements [memory.UnitStore]. Edges touching the unit are
// removed along with it.
func (s *Store) DeleteUnit(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.units, unitKey{owner: ownerID, id: id})
	for key := range s.edges {
		if key.owner == ownerID && (key.source == id || key.target == id) {
			delete(s.edges, key)
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// VectorIndex
// ─────────────────────────────────────────────────────────────────────────────

// Upsert implements [memory.VectorIndex].
func (s *Store) Upsert(_ context.Context, ownerID string, sourceType memory.SourceType, sourceID string, vector []float32) error {
	if ownerID == "" || sourceID == "" {
		return fmt.Errorf("mock store: upsert vector: owner id and source id must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := vecKey{owner: ownerID, sourceType: sourceType, sourceID: sourceID}
	entry := vecEntry{vector: append([]float32(nil), vector...), createdAt: s.now()}
	if existing, ok := s.vectors[key]; ok {
		entry.createdAt = existing.createdAt
	}
	s.vectors[key] = entry
	return nil
}

// Query implements [memory.VectorIndex]. Search is exact brute-force cosine,
// strictly scoped to ownerID's vectors.
func (s *Store) Query(_ context.Context, ownerID string, vector []float32, k int) ([]memory.Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("mock store: query: k must be >= 1, got %d", k)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		hit       memory.Hit
		createdAt time.Time
	}
	var candidates []scored
	for key, entry := range s.vectors {
		if key.owner != ownerID {
			continue
		}
		candidates = append(candidates, scored{
			hit: memory.Hit{
				SourceType: key.sourceType,
				SourceID:   key.sourceID,
				Score:      cosineSimilarity(vector, entry.vector),
			},
			createdAt: entry.createdAt,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].hit.Score != candidates[j].hit.Score {
			return candidates[i].hit.Score > candidates[j].hit.Score
		}
		if !candidates[i].createdAt.Equal(candidates[j].createdAt) {
			return candidates[i].createdAt.After(candidates[j].createdAt)
		}
		return candidates[i].hit.SourceID < candidates[j].hit.SourceID
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	hits := make([]memory.Hit, len(candidates))
	for i, c := range candidates {
		hits[i] = c.hit
	}
	return hits, nil
}

// Delete implements [memory.VectorIndex].
func (s *Store) Delete(_ context.Context, ownerID string, sourceType memory.SourceType, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vectors, vecKey{owner: ownerID, sourceType: sourceType, sourceID: sourceID})
	return nil
}

// cosineSimilarity returns the cosine of the angle between a and b,
// normalised to [0,1] by clamping negative cosine to 0. Mismatched lengths
// and zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		return 1
	}
	return cos
}

// containsType reports whether types contains t.
func containsType(types []memory.SourceType, t memory.SourceType) bool {
	for _, st := range types {
		if st == t {
			return true
		}
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// ConversationStore
// ─────────────────────────────────────────────────────────────────────────────

// CreateConversation implements [memory.ConversationStore].
func (s *Store) CreateConversation(_ context.Context, c memory.Conversation) error {
	if c.OwnerID == "" || c.ID == "" {
		return fmt.Errorf("mock store: create conversation: owner id and id must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := unitKey{owner: c.OwnerID, id: c.ID}
	if _, exists := s.conversations[key]; exists {
		return apperr.New(apperr.KindConflict, "mock store: conversation %q already exists", c.ID)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	s.conversations[key] = c
	return nil
}

// GetConversation implements [memory.ConversationStore].
func (s *Store) GetConversation(_ context.Context, ownerID, id string) (*memory.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[unitKey{owner: ownerID, id: id}]
	if !ok {
		return nil, nil
	}
	cp := c
	return &cp, nil
}

// ListConversations implements [memory.ConversationStore].
func (s *Store) ListConversations(_ context.Context, ownerID string) ([]memory.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []memory.Conversation{}
	for key, c := range s.conversations {
		if key.owner == ownerID {
			results = append(results, c)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].UpdatedAt.Equal(results[j].UpdatedAt) {
			return results[i].UpdatedAt.After(results[j].UpdatedAt)
		}
		return results[i].ID < results[j].ID
	})
	return results, nil
}

// DeleteConversation implements [memory.ConversationStore]. All messages of
// the conversation are removed with it.
func (s *Store) DeleteConversation(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := unitKey{owner: ownerID, id: id}
	if _, ok := s.conversations[key]; !ok {
		return nil
	}
	delete(s.conversations, key)
	delete(s.messages, id)
	return nil
}

// AppendMessage implements [memory.ConversationStore].
func (s *Store) AppendMessage(_ context.Context, ownerID string, msg memory.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := unitKey{owner: ownerID, id: msg.ConversationID}
	conv, ok := s.conversations[key]
	if !ok {
		return fmt.Errorf("mock store: append message: conversation %q not found", msg.ConversationID)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	msg.RelatedMemoryIDs = append([]string(nil), msg.RelatedMemoryIDs...)
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], msg)

	conv.UpdatedAt = s.now()
	s.conversations[key] = conv
	return nil
}

// ListMessages implements [memory.ConversationStore].
func (s *Store) ListMessages(_ context.Context, ownerID, conversationID string) ([]memory.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.conversations[unitKey{owner: ownerID, id: conversationID}]; !ok {
		return nil, fmt.Errorf("mock store: list messages: conversation %q not found", conversationID)
	}
	msgs := s.messages[conversationID]
	out := make([]memory.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

// GetMessage implements [memory.ConversationStore].
func (s *Store) GetMessage(_ context.Context, ownerID, messageID string) (*memory.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for convID, msgs := range s.messages {
		if _, ok := s.conversations[unitKey{owner: ownerID, id: convID}]; !ok {
			continue
		}
		for _, m := range msgs {
			if m.ID == messageID {
				cp := m
				return &cp, nil
			}
		}
	}
	return nil, nil
}

// DeleteMessage implements [memory.ConversationStore].
func (s *Store) DeleteMessage(_ context.Context, ownerID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for convID, msgs := range s.messages {
		if _, ok := s.conversations[unitKey{owner: ownerID, id: convID}]; !ok {
			continue
		}
		for i, m := range msgs {
			if m.ID == messageID {
				s.messages[convID] = append(msgs[:i:i], msgs[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// GraphStore
// ─────────────────────────────────────────────────────────────────────────────

// AddEdge implements [memory.GraphStore].
func (s *Store) AddEdge(_ context.Context, e memory.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.units[unitKey{owner: e.OwnerID, id: e.SourceID}]; !ok {
		return fmt.Errorf("mock store: add edge: source unit %q not found", e.SourceID)
	}
	if _, ok := s.units[unitKey{owner: e.OwnerID, id: e.TargetID}]; !ok {
		return fmt.Errorf("mock store: add edge: target unit %q not found", e.TargetID)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	s.edges[edgeKey{owner: e.OwnerID, source: e.SourceID, target: e.TargetID, relType: e.RelType}] = e
	return nil
}

// DeleteEdge implements [memory.GraphStore].
func (s *Store) DeleteEdge(_ context.Context, ownerID, sourceID, targetID, relType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.edges, edgeKey{owner: ownerID, source: sourceID, target: targetID, relType: relType})
	return nil
}

// ListEdges implements [memory.GraphStore].
func (s *Store) ListEdges(_ context.Context, ownerID, unitID string) ([]memory.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []memory.Edge{}
	for key, e := range s.edges {
		if key.owner != ownerID {
			continue
		}
		if key.source == unitID || key.target == unitID {
			results = append(results, e)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

// Neighbors implements [memory.GraphStore].
func (s *Store) Neighbors(_ context.Context, ownerID, unitID string) ([]memory.MemoryUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]bool{}
	results := []memory.MemoryUnit{}
	for key := range s.edges {
		if key.owner != ownerID {
			continue
		}
		var other string
		switch unitID {
		case key.source:
			other = key.target
		case key.target:
			other = key.source
		default:
			continue
		}
		if seen[other] {
			continue
		}
		seen[other] = true
		if u, ok := s.units[unitKey{owner: ownerID, id: other}]; ok {
			results = append(results, u)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// LifeStore
// ─────────────────────────────────────────────────────────────────────────────

// AddMoodLog implements [memory.LifeStore].
func (s *Store) AddMoodLog(_ context.Context, log memory.MoodLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if log.Timestamp.IsZero() {
		log.Timestamp = s.now()
	}
	s.moodLogs[unitKey{owner: log.OwnerID, id: log.ID}] = log
	return nil
}

// ListMoodLogs implements [memory.LifeStore].
func (s *Store) ListMoodLogs(_ context.Context, ownerID string) ([]memory.MoodLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []memory.MoodLog{}
	for key, l := range s.moodLogs {
		if key.owner == ownerID {
			results = append(results, l)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].Timestamp.Equal(results[j].Timestamp) {
			return results[i].Timestamp.After(results[j].Timestamp)
		}
		return results[i].ID < results[j].ID
	})
	return results, nil
}

// DeleteMoodLog implements [memory.LifeStore].
func (s *Store) DeleteMoodLog(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.moodLogs, unitKey{owner: ownerID, id: id})
	return nil
}

// AddTimelineEvent implements [memory.LifeStore].
func (s *Store) AddTimelineEvent(_ context.Context, ev memory.TimelineEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now()
	}
	s.timeline[unitKey{owner: ev.OwnerID, id: ev.ID}] = ev
	return nil
}

// ListTimelineEvents implements [memory.LifeStore].
func (s *Store) ListTimelineEvents(_ context.Context, ownerID string) ([]memory.TimelineEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []memory.TimelineEvent{}
	for key, ev := range s.timeline {
		if key.owner == ownerID {
			results = append(results, ev)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].Timestamp.Equal(results[j].Timestamp) {
			return results[i].Timestamp.After(results[j].Timestamp)
		}
		return results[i].ID < results[j].ID
	})
	return results, nil
}

// DeleteTimelineEvent implements [memory.LifeStore].
func (s *Store) DeleteTimelineEvent(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timeline, unitKey{owner: ownerID, id: id})
	return nil
}

// PutHabit implements [memory.LifeStore].
func (s *Store) PutHabit(_ context.Context, h memory.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := unitKey{owner: h.OwnerID, id: h.ID}
	if existing, ok := s.habits[key]; ok {
		h.CreatedAt = existing.CreatedAt
	} else if h.CreatedAt.IsZero() {
		h.CreatedAt = s.now()
	}
	s.habits[key] = h
	return nil
}

// GetHabit implements [memory.LifeStore].
func (s *Store) GetHabit(_ context.Context, ownerID, id string) (*memory.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.habits[unitKey{owner: ownerID, id: id}]
	if !ok {
		return nil, nil
	}
	cp := h
	return &cp, nil
}

// ListHabits implements [memory.LifeStore].
func (s *Store) ListHabits(_ context.Context, ownerID string) ([]memory.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []memory.Habit{}
	for key, h := range s.habits {
		if key.owner == ownerID {
			results = append(results, h)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].ID < results[j].ID
	})
	return results, nil
}

// DeleteHabit implements [memory.LifeStore].
func (s *Store) DeleteHabit(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.habits, unitKey{owner: ownerID, id: id})
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// UserStore
// ─────────────────────────────────────────────────────────────────────────────

// CreateUser implements [memory.UserStore].
func (s *Store) CreateUser(_ context.Context, u memory.User) error {
	if u.ID == "" {
		return fmt.Errorf("mock store: create user: id must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if u.Email != "" && existing.Email == u.Email {
			return apperr.New(apperr.KindConflict, "mock store: create user: email %q already registered", u.Email)
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	s.users[u.ID] = u
	return nil
}

// GetUser implements [memory.UserStore].
func (s *Store) GetUser(_ context.Context, id string) (*memory.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := u
	return &cp, nil
}

// GetUserByTokenDigest implements [memory.UserStore].
func (s *Store) GetUserByTokenDigest(_ context.Context, digest string) (*memory.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.TokenDigest != "" && u.TokenDigest == digest {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}
