package memrepo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/lexcorpus-backend/internal/data/repos"
	types "github.com/yungbote/lexcorpus-backend/internal/domain"
	chatdomain "github.com/yungbote/lexcorpus-backend/internal/domain/chat"
	"github.com/yungbote/lexcorpus-backend/internal/pkg/dbctx"
)

// Memory holds in-process implementations of every repo for service and handler tests.
// It mirrors the not-found and error conventions of the gorm repos.
type Memory struct {
	mu       sync.Mutex
	docs     map[uuid.UUID]*types.Document
	chunks   map[string]*types.Chunk
	sessions map[uuid.UUID]*types.ChatSession
	messages map[uuid.UUID][]*types.ChatMessage
	queries  map[uuid.UUID]*types.QueryLog
	feedback []*types.Feedback
	clock    time.Time

	// FailAppend makes AppendPair fail, for persistence error paths.
	FailAppend error
}

func NewMemory() *Memory {
	return &Memory{
		docs:     map[uuid.UUID]*types.Document{},
		chunks:   map[string]*types.Chunk{},
		sessions: map[uuid.UUID]*types.ChatSession{},
		messages: map[uuid.UUID][]*types.ChatMessage{},
		queries:  map[uuid.UUID]*types.QueryLog{},
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp so ordering is deterministic.
func (m *Memory) tick() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

func (m *Memory) Documents() repos.DocumentRepo   { return memDocs{m} }
func (m *Memory) Chunks() repos.ChunkRepo         { return memChunks{m} }
func (m *Memory) Sessions() repos.ChatSessionRepo { return memSessions{m} }
func (m *Memory) Messages() repos.ChatMessageRepo { return memMessages{m} }
func (m *Memory) QueryLogs() repos.QueryLogRepo   { return memQueries{m} }
func (m *Memory) Feedback() repos.FeedbackRepo    { return memFeedback{m} }

func (m *Memory) FeedbackRows() []*types.Feedback {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*types.Feedback(nil), m.feedback...)
}

// Tx runs fn without a real transaction.
func (m *Memory) Tx() dbctx.TxRunner { return noTx{} }

type noTx struct{}

func (noTx) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return fn(dbctx.New(ctx))
}

// ---- documents ----

type memDocs struct{ m *Memory }

func (r memDocs) Create(dbc dbctx.Context, doc *types.Document) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, d := range r.m.docs {
		if d.ContentHash == doc.ContentHash {
			return repos.ErrDuplicateHash
		}
	}
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := r.m.tick()
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = now
	}
	doc.UpdatedAt = now
	if doc.Status == "" {
		doc.Status = types.DocumentStatusProcessing
	}
	cp := *doc
	r.m.docs[doc.ID] = &cp
	return nil
}

func (r memDocs) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Document, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.docs[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r memDocs) GetByHash(dbc dbctx.Context, hash string) (*types.Document, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, d := range r.m.docs {
		if d.ContentHash == hash {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memDocs) List(dbc dbctx.Context, f repos.DocumentListFilter) ([]*types.Document, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	country := strings.ToLower(strings.TrimSpace(f.Country))
	var all []*types.Document
	for _, d := range r.m.docs {
		if country != "" && d.Country != country {
			continue
		}
		cp := *d
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].UploadedAt.Equal(all[j].UploadedAt) {
			return all[i].ID.String() < all[j].ID.String()
		}
		return all[i].UploadedAt.After(all[j].UploadedAt)
	})
	total := int64(len(all))
	if f.Offset >= len(all) {
		return []*types.Document{}, total, nil
	}
	all = all[max(f.Offset, 0):]
	if len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return all, total, nil
}

func (r memDocs) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status, message string) error {
	return r.UpdateFields(dbc, id, map[string]any{"status": status, "status_message": message})
}

func (r memDocs) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.docs[id]
	if !ok {
		return nil
	}
	for k, v := range updates {
		switch k {
		case "status":
			d.Status, _ = v.(string)
		case "status_message":
			d.StatusMessage, _ = v.(string)
		case "storage_key":
			d.StorageKey, _ = v.(string)
		case "page_count":
			d.PageCount, _ = v.(int)
		case "ocr_pages":
			d.OCRPages, _ = v.(int)
		}
	}
	d.UpdatedAt = r.m.tick()
	return nil
}

func (r memDocs) Delete(dbc dbctx.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.docs, id)
	for k, c := range r.m.chunks {
		if c.DocumentID == id {
			delete(r.m.chunks, k)
		}
	}
	return nil
}

func (r memDocs) Stats(dbc dbctx.Context) (*types.CorpusStats, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := &types.CorpusStats{
		TotalDocuments: int64(len(r.m.docs)),
		TotalChunks:    int64(len(r.m.chunks)),
		ByCountry:      map[string]int64{},
		ByType:         map[string]int64{},
		ByStatus:       map[string]int64{},
	}
	for _, d := range r.m.docs {
		out.ByCountry[d.Country]++
		out.ByType[d.DocumentType]++
		out.ByStatus[d.Status]++
	}
	return out, nil
}

// ---- chunks ----

type memChunks struct{ m *Memory }

func (r memChunks) CreateBatch(dbc dbctx.Context, chunks []*types.Chunk) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, c := range chunks {
		cp := *c
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = r.m.tick()
		}
		r.m.chunks[c.ID] = &cp
	}
	return nil
}

func (r memChunks) ListByDocument(dbc dbctx.Context, documentID uuid.UUID) ([]*types.Chunk, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*types.Chunk{}
	for _, c := range r.m.chunks {
		if c.DocumentID == documentID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

func (r memChunks) DeleteByDocument(dbc dbctx.Context, documentID uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for k, c := range r.m.chunks {
		if c.DocumentID == documentID {
			delete(r.m.chunks, k)
		}
	}
	return nil
}

func (r memChunks) ContainsText(dbc dbctx.Context, needle string) (bool, error) {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return false, nil
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, c := range r.m.chunks {
		if strings.Contains(strings.ToLower(c.Content), needle) {
			return true, nil
		}
	}
	return false, nil
}

func (r memChunks) Count(dbc dbctx.Context) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return int64(len(r.m.chunks)), nil
}

// ---- sessions ----

type memSessions struct{ m *Memory }

func (r memSessions) Create(dbc dbctx.Context, s *types.ChatSession) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Title == "" {
		s.Title = chatdomain.DefaultSessionTitle
	}
	now := r.m.tick()
	s.CreatedAt, s.UpdatedAt = now, now
	cp := *s
	r.m.sessions[s.ID] = &cp
	return nil
}

func (r memSessions) live(userID string, id uuid.UUID) *types.ChatSession {
	s, ok := r.m.sessions[id]
	if !ok || s.UserID != userID || s.DeletedAt.Valid {
		return nil
	}
	return s
}

func (r memSessions) GetByID(dbc dbctx.Context, userID string, id uuid.UUID) (*types.ChatSession, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s := r.live(userID, id)
	if s == nil {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r memSessions) LatestForUser(dbc dbctx.Context, userID string) (*types.ChatSession, error) {
	list, _ := r.ListByUser(dbc, userID, 1)
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (r memSessions) ListByUser(dbc dbctx.Context, userID string, limit int) ([]*types.ChatSession, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*types.ChatSession
	for id := range r.m.sessions {
		if s := r.live(userID, id); s != nil {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memSessions) Rename(dbc dbctx.Context, userID string, id uuid.UUID, title string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s := r.live(userID, id)
	if s == nil {
		return gorm.ErrRecordNotFound
	}
	s.Title = strings.TrimSpace(title)
	s.UpdatedAt = r.m.tick()
	return nil
}

func (r memSessions) SoftDelete(dbc dbctx.Context, userID string, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s := r.live(userID, id)
	if s == nil {
		return gorm.ErrRecordNotFound
	}
	s.DeletedAt = gorm.DeletedAt{Time: r.m.tick(), Valid: true}
	return nil
}

// ---- messages ----

type memMessages struct{ m *Memory }

func (r memMessages) AppendPair(dbc dbctx.Context, sessionID uuid.UUID, user, assistant *types.ChatMessage) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.FailAppend != nil {
		return r.m.FailAppend
	}
	s, ok := r.m.sessions[sessionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := r.m.tick()
	for i, msg := range []*types.ChatMessage{user, assistant} {
		if msg.ID == uuid.Nil {
			msg.ID = uuid.New()
		}
		msg.SessionID = sessionID
		msg.Seq = s.NextSeq + int64(i) + 1
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = now
		}
		cp := *msg
		r.m.messages[sessionID] = append(r.m.messages[sessionID], &cp)
	}
	s.NextSeq += 2
	s.UpdatedAt = now
	return nil
}

func (r memMessages) ListRecent(dbc dbctx.Context, sessionID uuid.UUID, limit int) ([]*types.ChatMessage, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	all := r.m.messages[sessionID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]*types.ChatMessage, 0, len(all))
	for _, msg := range all {
		cp := *msg
		out = append(out, &cp)
	}
	return out, nil
}

// ---- query log / feedback ----

type memQueries struct{ m *Memory }

func (r memQueries) Create(dbc dbctx.Context, row *types.QueryLog) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = r.m.tick()
	}
	cp := *row
	r.m.queries[row.ID] = &cp
	return nil
}

func (r memQueries) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.QueryLog, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	q, ok := r.m.queries[id]
	if !ok {
		return nil, nil
	}
	cp := *q
	return &cp, nil
}

func (r memQueries) ListByUser(dbc dbctx.Context, userID string, limit int) ([]*types.QueryLog, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*types.QueryLog
	for _, q := range r.m.queries {
		if q.UserID == userID {
			cp := *q
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memFeedback struct{ m *Memory }

func (r memFeedback) Create(dbc dbctx.Context, row *types.Feedback) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	cp := *row
	r.m.feedback = append(r.m.feedback, &cp)
	return nil
}
