package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"dmrelay/internal/domain"
)

const msgKeyPrefix = "msg:"

// BadgerStore persists messages in BadgerDB under time-ordered keys, so a
// plain prefix iteration yields a channel's history oldest first.
type BadgerStore struct {
	db  *badger.DB
	now func() time.Time
}

func New(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db, now: time.Now}
}

// Open opens (or creates) the store at dir. An empty dir opens an in-memory
// database, used by tests and the dev config.
func Open(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	return New(db), nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func key(ch domain.ChannelID, at time.Time, id domain.MessageID) []byte {
	// Nanos are zero-padded so lexicographic key order equals time order.
	// '#' cannot appear inside a user id, so no other channel shares a prefix.
	return []byte(fmt.Sprintf("%s%s#%020d#%s", msgKeyPrefix, ch, at.UnixNano(), id))
}

// Append assigns the message id and timestamp and writes it exactly once.
func (s *BadgerStore) Append(ctx context.Context, ch domain.ChannelID, draft domain.Draft) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	msg := domain.Message{
		ID:          domain.MessageID(uuid.NewString()),
		ChannelID:   ch,
		From:        draft.From,
		To:          draft.To,
		Content:     draft.Content,
		Attachments: draft.Attachments,
		CreatedAt:   s.now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return domain.Message{}, fmt.Errorf("marshal message: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(ch, msg.CreatedAt, msg.ID), data)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("append message: %w", err)
	}
	log.Debug().Str("module", "storage").Str("channel", string(ch)).Str("id", string(msg.ID)).Msg("message persisted")
	return msg, nil
}

// Query returns every message of the channel in send order.
func (s *BadgerStore) Query(ctx context.Context, ch domain.ChannelID) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte(msgKeyPrefix + string(ch) + "#")
	var out []domain.Message
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var msg domain.Message
				if err := json.Unmarshal(v, &msg); err != nil {
					return fmt.Errorf("unmarshal message: %w", err)
				}
				out = append(out, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query channel %s: %w", ch, err)
	}
	return out, nil
}
