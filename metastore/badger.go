package metastore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/ristretto"

	"github.com/Dev-solder124/genAI/core"
	"github.com/Dev-solder124/genAI/fieldcrypt"
)

// maxSessionTurns caps the rolling session buffer per owner.
const maxSessionTurns = 60

// BadgerStore implements Store on Badger with a ristretto read-through
// cache for profiles. Keys are partitioned per owner:
//
//	owner/{id}/profile
//	owner/{id}/memories/{memoryID}
//	owner/{id}/session
type BadgerStore struct {
	db       *badger.DB
	profiles *ristretto.Cache
}

// NewBadgerStore wraps an open Badger DB.
func NewBadgerStore(db *badger.DB) (*BadgerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("metastore: badger db cannot be nil")
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("metastore: profile cache: %w", err)
	}
	return &BadgerStore{db: db, profiles: cache}, nil
}

// Open opens a Badger database at path and wraps it. An empty path
// opens an in-memory database, used by tests and the example CLI.
func Open(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("metastore: open badger: %w", err)
	}
	return NewBadgerStore(db)
}

func profileKey(ownerID string) []byte {
	return []byte("owner/" + ownerID + "/profile")
}

func memoryKey(ownerID, memoryID string) []byte {
	return []byte("owner/" + ownerID + "/memories/" + memoryID)
}

func memoryPrefix(ownerID string) []byte {
	return []byte("owner/" + ownerID + "/memories/")
}

func sessionKey(ownerID string) []byte {
	return []byte("owner/" + ownerID + "/session")
}

// profileDoc is the stored JSON shape of a profile. Encrypted fields
// keep an explicit flag so legacy plaintext rows stay readable.
type profileDoc struct {
	OwnerID               string    `json:"owner_id"`
	DisplayName           string    `json:"display_name,omitempty"`
	DisplayNameEncrypted  bool      `json:"display_name_encrypted,omitempty"`
	Contact               string    `json:"contact,omitempty"`
	ContactEncrypted      bool      `json:"contact_encrypted,omitempty"`
	Consent               bool      `json:"consent"`
	Anonymous             bool      `json:"anonymous,omitempty"`
	Instructions          string    `json:"instructions,omitempty"`
	InstructionsEncrypted bool      `json:"instructions_encrypted,omitempty"`
	Stage                 string    `json:"stage,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	LastInteractionAt     time.Time `json:"last_interaction_at"`
}

func encodeProfile(p core.UserProfile) ([]byte, error) {
	doc := profileDoc{
		OwnerID:           p.OwnerID,
		Consent:           p.Consent,
		Anonymous:         p.Anonymous,
		Stage:             p.Stage.String(),
		CreatedAt:         p.CreatedAt,
		LastInteractionAt: p.LastInteractionAt,
	}
	doc.DisplayName, doc.DisplayNameEncrypted = p.DisplayName.Stored()
	doc.Contact, doc.ContactEncrypted = p.Contact.Stored()
	doc.Instructions, doc.InstructionsEncrypted = p.Instructions.Stored()
	return json.Marshal(doc)
}

func decodeProfile(data []byte) (core.UserProfile, error) {
	var doc profileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return core.UserProfile{}, err
	}
	return core.UserProfile{
		OwnerID:           doc.OwnerID,
		DisplayName:       fieldcrypt.FromStored(doc.DisplayName, doc.DisplayNameEncrypted),
		Contact:           fieldcrypt.FromStored(doc.Contact, doc.ContactEncrypted),
		Consent:           doc.Consent,
		Anonymous:         doc.Anonymous,
		Instructions:      fieldcrypt.FromStored(doc.Instructions, doc.InstructionsEncrypted),
		Stage:             core.Stage(doc.Stage),
		CreatedAt:         doc.CreatedAt,
		LastInteractionAt: doc.LastInteractionAt,
	}, nil
}

// memoryDoc is the stored JSON shape of a memory record. The embedding
// is deliberately absent; it lives only in the vector index.
type memoryDoc struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"owner_id"`
	Summary          string    `json:"summary"`
	SummaryEncrypted bool      `json:"summary_encrypted,omitempty"`
	Topic            string    `json:"topic,omitempty"`
	SessionID        string    `json:"session_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func encodeMemory(m core.Memory) ([]byte, error) {
	doc := memoryDoc{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Topic:     m.Topic,
		SessionID: m.SessionID,
		CreatedAt: m.CreatedAt,
	}
	doc.Summary, doc.SummaryEncrypted = m.Summary.Stored()
	return json.Marshal(doc)
}

func decodeMemory(data []byte) (core.Memory, error) {
	var doc memoryDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return core.Memory{}, err
	}
	return core.Memory{
		ID:        doc.ID,
		OwnerID:   doc.OwnerID,
		Summary:   fieldcrypt.FromStored(doc.Summary, doc.SummaryEncrypted),
		Topic:     doc.Topic,
		SessionID: doc.SessionID,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// GetProfile loads a profile, serving repeat reads from the cache.
func (s *BadgerStore) GetProfile(ctx context.Context, ownerID string) (core.UserProfile, error) {
	if err := ValidateOwnerID(ownerID); err != nil {
		return core.UserProfile{}, err
	}

	if v, ok := s.profiles.Get(ownerID); ok {
		if p, ok := v.(core.UserProfile); ok {
			return p, nil
		}
	}

	var profile core.UserProfile
	err := s.db.View(func(txn *badger.Txn) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		item, err := txn.Get(profileKey(ownerID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return core.ErrProfileNotFound
			}
			return fmt.Errorf("%w: %v", core.ErrMetadataStore, err)
		}
		return item.Value(func(v []byte) error {
			profile, err = decodeProfile(v)
			return err
		})
	})
	if err != nil {
		return core.UserProfile{}, err
	}

	s.profiles.Set(ownerID, profile, 1)
	return profile, nil
}

// PutProfile writes the profile and refreshes the cache.
func (s *BadgerStore) PutProfile(ctx context.Context, profile core.UserProfile) error {
	if err := ValidateOwnerID(profile.OwnerID); err != nil {
		return err
	}
	data, err := encodeProfile(profile)
	if err != nil {
		return fmt.Errorf("%w: encode profile: %v", core.ErrMetadataStore, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		return txn.Set(profileKey(profile.OwnerID), data)
	})
	if err != nil {
		return fmt.Errorf("%w: put profile: %v", core.ErrMetadataStore, err)
	}

	s.profiles.Set(profile.OwnerID, profile, 1)
	return nil
}

// UpdateProfile applies fn under a write transaction. A missing profile
// starts from a zero value with the owner id set, so first-touch flows
// need no separate create step.
func (s *BadgerStore) UpdateProfile(ctx context.Context, ownerID string, fn func(*core.UserProfile) error) (core.UserProfile, error) {
	if err := ValidateOwnerID(ownerID); err != nil {
		return core.UserProfile{}, err
	}

	var updated core.UserProfile
	err := s.db.Update(func(txn *badger.Txn) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		profile := core.UserProfile{OwnerID: ownerID}
		item, err := txn.Get(profileKey(ownerID))
		if err == nil {
			if err := item.Value(func(v []byte) error {
				profile, err = decodeProfile(v)
				return err
			}); err != nil {
				return fmt.Errorf("%w: decode profile: %v", core.ErrMetadataStore, err)
			}
		} else if err != badger.ErrKeyNotFound {
			return fmt.Errorf("%w: %v", core.ErrMetadataStore, err)
		}

		if err := fn(&profile); err != nil {
			return err
		}
		profile.OwnerID = ownerID

		data, err := encodeProfile(profile)
		if err != nil {
			return fmt.Errorf("%w: encode profile: %v", core.ErrMetadataStore, err)
		}
		if err := txn.Set(profileKey(ownerID), data); err != nil {
			return fmt.Errorf("%w: %v", core.ErrMetadataStore, err)
		}
		updated = profile
		return nil
	})
	if err != nil {
		return core.UserProfile{}, err
	}

	s.profiles.Set(ownerID, updated, 1)
	return updated, nil
}

// PutMemory writes one memory record into the owner's partition.
func (s *BadgerStore) PutMemory(ctx context.Context, mem core.Memory) error {
	if err := ValidateOwnerID(mem.OwnerID); err != nil {
		return err
	}
	if mem.ID == "" {
		return fmt.Errorf("%w: memory id cannot be empty", core.ErrMetadataStore)
	}
	data, err := encodeMemory(mem)
	if err != nil {
		return fmt.Errorf("%w: encode memory: %v", core.ErrMetadataStore, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		return txn.Set(memoryKey(mem.OwnerID, mem.ID), data)
	})
	if err != nil {
		return fmt.Errorf("%w: put memory: %v", core.ErrMetadataStore, err)
	}
	return nil
}

// GetMemories loads records by id. Missing ids are skipped so a stale
// vector match cannot fail the whole read.
func (s *BadgerStore) GetMemories(ctx context.Context, ownerID string, ids []string) ([]core.Memory, error) {
	if err := ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	memories := make([]core.Memory, 0, len(ids))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item, err := txn.Get(memoryKey(ownerID, id))
			if err != nil {
				if err == badger.ErrKeyNotFound {
					continue
				}
				return fmt.Errorf("%w: %v", core.ErrMetadataStore, err)
			}
			var mem core.Memory
			if err := item.Value(func(v []byte) error {
				mem, err = decodeMemory(v)
				return err
			}); err != nil {
				continue
			}
			memories = append(memories, mem)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return memories, nil
}

// DeleteMemories removes the owner's whole memory partition and reports
// the count. Repeating the call returns 0, making deletion idempotent.
func (s *BadgerStore) DeleteMemories(ctx context.Context, ownerID string) (int, error) {
	if err := ValidateOwnerID(ownerID); err != nil {
		return 0, err
	}

	deleted := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		prefix := memoryPrefix(ownerID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("%w: %v", core.ErrMetadataStore, err)
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// AppendSessionTurn appends to the rolling buffer, evicting the oldest
// turn past the cap.
func (s *BadgerStore) AppendSessionTurn(ctx context.Context, ownerID string, turn core.Turn) error {
	if err := ValidateOwnerID(ownerID); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var turns []core.Turn
		item, err := txn.Get(sessionKey(ownerID))
		if err == nil {
			if err := item.Value(func(v []byte) error {
				return json.Unmarshal(v, &turns)
			}); err != nil {
				// Corrupt buffer; start over rather than block writes.
				turns = nil
			}
		} else if err != badger.ErrKeyNotFound {
			return fmt.Errorf("%w: %v", core.ErrMetadataStore, err)
		}

		turns = append(turns, turn)
		if len(turns) > maxSessionTurns {
			turns = turns[len(turns)-maxSessionTurns:]
		}

		data, err := json.Marshal(turns)
		if err != nil {
			return fmt.Errorf("%w: encode session: %v", core.ErrMetadataStore, err)
		}
		if err := txn.Set(sessionKey(ownerID), data); err != nil {
			return fmt.Errorf("%w: %v", core.ErrMetadataStore, err)
		}
		return nil
	})
}

// RecentTurns returns up to n most recent turns, oldest first.
func (s *BadgerStore) RecentTurns(ctx context.Context, ownerID string, n int) ([]core.Turn, error) {
	if err := ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	var turns []core.Turn
	err := s.db.View(func(txn *badger.Txn) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		item, err := txn.Get(sessionKey(ownerID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return fmt.Errorf("%w: %v", core.ErrMetadataStore, err)
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &turns)
		})
	})
	if err != nil {
		return nil, err
	}

	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns, nil
}

// ClearSession drops the owner's session buffer.
func (s *BadgerStore) ClearSession(ctx context.Context, ownerID string) error {
	if err := ValidateOwnerID(ownerID); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(sessionKey(ownerID))
		if err != nil && err != badger.ErrKeyNotFound {
			return fmt.Errorf("%w: %v", core.ErrMetadataStore, err)
		}
		return nil
	})
	return err
}

// Close closes the cache and the underlying database.
func (s *BadgerStore) Close() error {
	s.profiles.Close()
	return s.db.Close()
}
