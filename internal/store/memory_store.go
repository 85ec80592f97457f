package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/linkup/backend/internal/models"
)

// MemoryStore backs tests and credential-less dev runs. A single mutex
// guards all maps, so a batch commit is naturally all-or-nothing: staged
// writes are validated first and applied only if every precondition holds.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]models.Profile
	sent     map[string]map[string]models.FriendRequest // senderID -> recipientID
	received map[string]map[string]models.FriendRequest // recipientID -> senderID
	friends  map[string]map[string]models.Friend        // ownerID -> friendID
	pairs    map[string]models.RelationshipPair
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]models.Profile),
		sent:     make(map[string]map[string]models.FriendRequest),
		received: make(map[string]map[string]models.FriendRequest),
		friends:  make(map[string]map[string]models.Friend),
		pairs:    make(map[string]models.RelationshipPair),
	}
}

func (s *MemoryStore) CreateProfile(ctx context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[p.UID]; ok {
		return ErrAlreadyExists
	}
	s.profiles[p.UID] = *p
	return nil
}

func (s *MemoryStore) GetProfile(ctx context.Context, uid string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[uid]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) UpdateProfile(ctx context.Context, uid string, set map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[uid]
	if !ok {
		return ErrNotFound
	}
	applyProfileSet(&p, set)
	s.profiles[uid] = p
	return nil
}

func (s *MemoryStore) DeleteProfile(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.profiles, uid)
	return nil
}

func (s *MemoryStore) SearchProfilesByPrefix(ctx context.Context, field, prefix string, limit int) ([]models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Profile
	for _, p := range s.profiles {
		v := profileFieldValue(&p, field)
		if v != "" && strings.HasPrefix(v, prefix) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		vi, vj := profileFieldValue(&out[i], field), profileFieldValue(&out[j], field)
		if vi != vj {
			return vi < vj
		}
		return out[i].UID < out[j].UID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func profileFieldValue(p *models.Profile, field string) string {
	switch field {
	case FieldDisplayNameLower:
		return p.DisplayNameLower
	case FieldEmailLower:
		return p.EmailLower
	case FieldDisplayName:
		return p.DisplayName
	case FieldEmail:
		return p.Email
	}
	return ""
}

func applyProfileSet(p *models.Profile, set map[string]interface{}) {
	for k, v := range set {
		switch k {
		case FieldEmail:
			p.Email, _ = v.(string)
		case FieldDisplayName:
			p.DisplayName, _ = v.(string)
		case FieldPhotoURL:
			p.PhotoURL, _ = v.(string)
		case FieldEmailLower:
			p.EmailLower, _ = v.(string)
		case FieldDisplayNameLower:
			p.DisplayNameLower, _ = v.(string)
		case FieldUpdatedAt:
			if t, ok := v.(time.Time); ok {
				p.UpdatedAt = t
			}
		}
	}
}

func applyRequestSet(r *models.FriendRequest, set map[string]interface{}) {
	for k, v := range set {
		switch k {
		case FieldDisplayName:
			r.DisplayName, _ = v.(string)
		case FieldPhotoURL:
			r.PhotoURL, _ = v.(string)
		}
	}
}

func applyFriendSet(f *models.Friend, set map[string]interface{}) {
	for k, v := range set {
		switch k {
		case FieldDisplayName:
			f.DisplayName, _ = v.(string)
		case FieldPhotoURL:
			f.PhotoURL, _ = v.(string)
		}
	}
}

func (s *MemoryStore) GetPair(ctx context.Context, pairID string) (*models.RelationshipPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pairs[pairID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) GetSentRequest(ctx context.Context, senderID, recipientID string) (*models.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.sent[senderID][recipientID]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) GetReceivedRequest(ctx context.Context, recipientID, senderID string) (*models.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.received[recipientID][senderID]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) GetFriend(ctx context.Context, ownerID, friendID string) (*models.Friend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.friends[ownerID][friendID]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

func (s *MemoryStore) ListSentRequests(ctx context.Context, senderID string) ([]models.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.FriendRequest
	for _, r := range s.sent[senderID] {
		out = append(out, r)
	}
	sortRequestsNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) ListReceivedRequests(ctx context.Context, recipientID string) ([]models.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.FriendRequest
	for _, r := range s.received[recipientID] {
		out = append(out, r)
	}
	sortRequestsNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) ListFriends(ctx context.Context, ownerID string) ([]models.Friend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Friend
	for _, f := range s.friends[ownerID] {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Since.Equal(out[j].Since) {
			return out[i].Since.After(out[j].Since)
		}
		return out[i].FriendID < out[j].FriendID
	})
	return out, nil
}

func sortRequestsNewestFirst(rs []models.FriendRequest) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.After(rs[j].CreatedAt)
		}
		return rs[i].SenderID+rs[i].RecipientID < rs[j].SenderID+rs[j].RecipientID
	})
}

func (s *MemoryStore) ListRequestsFromSender(ctx context.Context, senderID, afterRecipientID string, limit int) ([]models.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.FriendRequest
	for recipientID, bysender := range s.received {
		if r, ok := bysender[senderID]; ok && recipientID > afterRecipientID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecipientID < out[j].RecipientID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListRequestsToRecipient(ctx context.Context, recipientID, afterSenderID string, limit int) ([]models.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.FriendRequest
	for senderID, byrecipient := range s.sent {
		if r, ok := byrecipient[recipientID]; ok && senderID > afterSenderID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SenderID < out[j].SenderID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListFriendEdgesTo(ctx context.Context, friendID, afterOwnerID string, limit int) ([]models.Friend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Friend
	for ownerID, byfriend := range s.friends {
		if f, ok := byfriend[friendID]; ok && ownerID > afterOwnerID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OwnerID < out[j].OwnerID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Batch() Batch {
	return &memoryBatch{s: s}
}

type memOpKind int

const (
	opCreate memOpKind = iota
	opSet
	opUpdate
	opDelete
)

type memTarget int

const (
	targetPair memTarget = iota
	targetSent
	targetReceived
	targetFriend
)

type memOp struct {
	kind    memOpKind
	target  memTarget
	owner   string // pair id for targetPair
	other   string
	pair    *models.RelationshipPair
	request *models.FriendRequest
	friend  *models.Friend
	set     map[string]interface{}
}

type memoryBatch struct {
	s   *MemoryStore
	ops []memOp
}

func (b *memoryBatch) CreatePair(pairID string, p *models.RelationshipPair) {
	cp := *p
	b.ops = append(b.ops, memOp{kind: opCreate, target: targetPair, owner: pairID, pair: &cp})
}

func (b *memoryBatch) SetPair(pairID string, p *models.RelationshipPair) {
	cp := *p
	b.ops = append(b.ops, memOp{kind: opSet, target: targetPair, owner: pairID, pair: &cp})
}

func (b *memoryBatch) DeletePair(pairID string) {
	b.ops = append(b.ops, memOp{kind: opDelete, target: targetPair, owner: pairID})
}

func (b *memoryBatch) CreateSentRequest(r *models.FriendRequest) {
	cp := *r
	b.ops = append(b.ops, memOp{kind: opCreate, target: targetSent, owner: r.SenderID, other: r.RecipientID, request: &cp})
}

func (b *memoryBatch) CreateReceivedRequest(r *models.FriendRequest) {
	cp := *r
	b.ops = append(b.ops, memOp{kind: opCreate, target: targetReceived, owner: r.RecipientID, other: r.SenderID, request: &cp})
}

func (b *memoryBatch) DeleteSentRequest(senderID, recipientID string) {
	b.ops = append(b.ops, memOp{kind: opDelete, target: targetSent, owner: senderID, other: recipientID})
}

func (b *memoryBatch) DeleteReceivedRequest(recipientID, senderID string) {
	b.ops = append(b.ops, memOp{kind: opDelete, target: targetReceived, owner: recipientID, other: senderID})
}

func (b *memoryBatch) UpdateSentRequest(senderID, recipientID string, set map[string]interface{}) {
	b.ops = append(b.ops, memOp{kind: opUpdate, target: targetSent, owner: senderID, other: recipientID, set: set})
}

func (b *memoryBatch) UpdateReceivedRequest(recipientID, senderID string, set map[string]interface{}) {
	b.ops = append(b.ops, memOp{kind: opUpdate, target: targetReceived, owner: recipientID, other: senderID, set: set})
}

func (b *memoryBatch) SetFriend(f *models.Friend) {
	cp := *f
	b.ops = append(b.ops, memOp{kind: opSet, target: targetFriend, owner: f.OwnerID, other: f.FriendID, friend: &cp})
}

func (b *memoryBatch) DeleteFriend(ownerID, friendID string) {
	b.ops = append(b.ops, memOp{kind: opDelete, target: targetFriend, owner: ownerID, other: friendID})
}

func (b *memoryBatch) UpdateFriend(ownerID, friendID string, set map[string]interface{}) {
	b.ops = append(b.ops, memOp{kind: opUpdate, target: targetFriend, owner: ownerID, other: friendID, set: set})
}

func (b *memoryBatch) Len() int {
	return len(b.ops)
}

func (b *memoryBatch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}

	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	// Validate every precondition before touching anything.
	for _, op := range b.ops {
		switch op.kind {
		case opCreate:
			if b.exists(op) {
				return ErrAlreadyExists
			}
		case opUpdate:
			if !b.exists(op) {
				return ErrNotFound
			}
		}
	}

	for _, op := range b.ops {
		b.apply(op)
	}
	return nil
}

func (b *memoryBatch) exists(op memOp) bool {
	switch op.target {
	case targetPair:
		_, ok := b.s.pairs[op.owner]
		return ok
	case targetSent:
		_, ok := b.s.sent[op.owner][op.other]
		return ok
	case targetReceived:
		_, ok := b.s.received[op.owner][op.other]
		return ok
	case targetFriend:
		_, ok := b.s.friends[op.owner][op.other]
		return ok
	}
	return false
}

func (b *memoryBatch) apply(op memOp) {
	switch op.target {
	case targetPair:
		switch op.kind {
		case opCreate, opSet:
			b.s.pairs[op.owner] = *op.pair
		case opDelete:
			delete(b.s.pairs, op.owner)
		}
	case targetSent:
		applyMirrorOp(b.s.sent, op, op.request, applyRequestSet)
	case targetReceived:
		applyMirrorOp(b.s.received, op, op.request, applyRequestSet)
	case targetFriend:
		applyMirrorOp(b.s.friends, op, op.friend, applyFriendSet)
	}
}

func applyMirrorOp[T any](m map[string]map[string]T, op memOp, doc *T, applySet func(*T, map[string]interface{})) {
	switch op.kind {
	case opCreate, opSet:
		if m[op.owner] == nil {
			m[op.owner] = make(map[string]T)
		}
		m[op.owner][op.other] = *doc
	case opUpdate:
		d := m[op.owner][op.other]
		applySet(&d, op.set)
		m[op.owner][op.other] = d
	case opDelete:
		delete(m[op.owner], op.other)
	}
}
