package message

import (
	"context"
	"sync"
)

// Op names a repository operation for failure injection.
type Op string

// Repository operations.
const (
	OpCreateMessage    Op = "create_message"
	OpCreateHotel      Op = "create_hotel"
	OpCreateInfo       Op = "create_info"
	OpCreateRecipient  Op = "create_recipient"
	OpUpdateInfoStatus Op = "update_info_status"
)

type failure struct {
	err   error
	match func(row any) bool
}

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu         sync.RWMutex
	nextID     int64
	messages   map[int64]*Message
	hotels     map[int64]*Hotel
	infos      map[int64]*Info
	recipients map[int64]*Recipient
	failures   map[Op]failure
	zeroID     map[Op]bool
}

// NewInMemoryRepository creates a new in-memory message repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		messages:   make(map[int64]*Message),
		hotels:     make(map[int64]*Hotel),
		infos:      make(map[int64]*Info),
		recipients: make(map[int64]*Recipient),
		failures:   make(map[Op]failure),
		zeroID:     make(map[Op]bool),
	}
}

// FailOn makes op return err for rows accepted by match. A nil match fails every call.
func (r *InMemoryRepository) FailOn(op Op, err error, match func(row any) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failures[op] = failure{err: err, match: match}
}

// ReturnZeroID makes op succeed without assigning an identifier.
func (r *InMemoryRepository) ReturnZeroID(op Op) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.zeroID[op] = true
}

// CreateMessage inserts the parent message row.
func (r *InMemoryRepository) CreateMessage(_ context.Context, m *Message) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.failLocked(OpCreateMessage, m); err != nil {
		return 0, err
	}
	if r.zeroID[OpCreateMessage] {
		return 0, nil
	}

	row := *m
	row.ID = r.allocLocked()
	r.messages[row.ID] = &row
	return row.ID, nil
}

// CreateHotel inserts a message/hotel association row.
func (r *InMemoryRepository) CreateHotel(_ context.Context, h *Hotel) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.failLocked(OpCreateHotel, h); err != nil {
		return 0, err
	}
	if r.zeroID[OpCreateHotel] {
		return 0, nil
	}

	row := *h
	row.ID = r.allocLocked()
	r.hotels[row.ID] = &row
	return row.ID, nil
}

// CreateInfo inserts a message info row.
func (r *InMemoryRepository) CreateInfo(_ context.Context, info *Info) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.failLocked(OpCreateInfo, info); err != nil {
		return 0, err
	}
	if r.zeroID[OpCreateInfo] {
		return 0, nil
	}

	row := *info
	row.ID = r.allocLocked()
	r.infos[row.ID] = &row
	return row.ID, nil
}

// CreateRecipient inserts a message recipient row.
func (r *InMemoryRepository) CreateRecipient(_ context.Context, rcpt *Recipient) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.failLocked(OpCreateRecipient, rcpt); err != nil {
		return 0, err
	}
	if r.zeroID[OpCreateRecipient] {
		return 0, nil
	}

	row := *rcpt
	row.ID = r.allocLocked()
	r.recipients[row.ID] = &row
	return row.ID, nil
}

// UpdateInfoStatus sets the status of a message info row.
func (r *InMemoryRepository) UpdateInfoStatus(_ context.Context, id int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.failLocked(OpUpdateInfoStatus, id); err != nil {
		return err
	}

	info, ok := r.infos[id]
	if !ok {
		return ErrMessageInfoNotFound
	}
	info.Status = status
	return nil
}

// Messages returns copies of all stored messages.
func (r *InMemoryRepository) Messages() []Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Message, 0, len(r.messages))
	for _, m := range r.messages {
		out = append(out, *m)
	}
	return out
}

// Hotels returns copies of all association rows for messageID.
func (r *InMemoryRepository) Hotels(messageID int64) []Hotel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Hotel
	for _, h := range r.hotels {
		if h.MessageID == messageID {
			out = append(out, *h)
		}
	}
	return out
}

// Infos returns copies of all info rows for messageID.
func (r *InMemoryRepository) Infos(messageID int64) []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Info
	for _, info := range r.infos {
		if info.MessageID == messageID {
			out = append(out, *info)
		}
	}
	return out
}

// Recipients returns copies of all recipient rows for messageID.
func (r *InMemoryRepository) Recipients(messageID int64) []Recipient {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Recipient
	for _, rcpt := range r.recipients {
		if rcpt.MessageID == messageID {
			out = append(out, *rcpt)
		}
	}
	return out
}

func (r *InMemoryRepository) allocLocked() int64 {
	r.nextID++
	return r.nextID
}

func (r *InMemoryRepository) failLocked(op Op, row any) error {
	f, ok := r.failures[op]
	if !ok {
		return nil
	}
	if f.match == nil || f.match(row) {
		return f.err
	}
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
