package favorites

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boltdb/bolt"
	"github.com/rs/zerolog"

	"github.com/mealkeeper/mealkeeper/pkg/logging"
)

// SchemaVersion is the store layout this build understands. Version 1
// held the record bucket only; version 2 added the two index buckets.
const SchemaVersion = 2

var (
	bucketRecords = []byte("favorites")
	bucketMeta    = []byte("meta")
	bucketBySaved = []byte("idx_saved_at")
	bucketByName  = []byte("idx_name")

	metaKeyVersion = []byte("schema_version")
)

// ErrNotFound indicates the recipe ID is not favorited.
var ErrNotFound = errors.New("favorite not found")

// SchemaConflictError is returned when the database on disk was written
// by a newer build. The store stays unopened: truncating a newer schema
// would silently lose user data.
type SchemaConflictError struct {
	Stored    int
	Supported int
}

func (e *SchemaConflictError) Error() string {
	return fmt.Sprintf("favorites store schema v%d is newer than supported v%d; refusing to open",
		e.Stored, e.Supported)
}

// SortKey selects the secondary index used by List.
type SortKey string

const (
	SortByDate SortKey = "date"
	SortByName SortKey = "name"
)

// Order is the listing direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Config holds store configuration.
type Config struct {
	// Path is the database file location.
	Path string

	// OnSave, if set, runs fire-and-forget after every successful save
	// (the cache hydration hook). Its failures never fail the save.
	OnSave func(Record)

	// LockTimeout bounds the wait for the file lock when another
	// process holds the database open.
	LockTimeout time.Duration
}

// Store is the durable favorites store, backed by a bolt database file.
type Store struct {
	db     *bolt.DB
	onSave func(Record)
	logger zerolog.Logger
	now    func() time.Time
}

// Open acquires the database file, creating it on first use, and runs
// schema upgrades. A database written by a newer build is refused with
// SchemaConflictError.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 5 * time.Second
	}

	db, err := bolt.Open(cfg.Path, 0600, &bolt.Options{Timeout: cfg.LockTimeout})
	if err != nil {
		return nil, fmt.Errorf("open favorites store: %w", err)
	}

	s := &Store{
		db:     db,
		onSave: cfg.OnSave,
		logger: logging.NewLogger("favorites"),
		now:    time.Now,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database file. The handle is unusable afterwards;
// re-acquire with Open.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate brings the store to the current schema. Missing buckets are
// created; a v1 database gets its index buckets built from the records.
func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}

		stored := 0
		if raw := meta.Get(metaKeyVersion); raw != nil {
			stored = int(binary.BigEndian.Uint64(raw))
		}
		if stored > SchemaVersion {
			return &SchemaConflictError{Stored: stored, Supported: SchemaVersion}
		}

		for _, name := range [][]byte{bucketRecords, bucketBySaved, bucketByName} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}

		if stored != 0 && stored < SchemaVersion {
			s.logger.Info().Int("from", stored).Int("to", SchemaVersion).Msg("Upgrading favorites schema")
			if err := rebuildIndexes(tx); err != nil {
				return fmt.Errorf("rebuild indexes: %w", err)
			}
		}

		version := make([]byte, 8)
		binary.BigEndian.PutUint64(version, uint64(SchemaVersion))
		return meta.Put(metaKeyVersion, version)
	})
}

// rebuildIndexes repopulates both secondary indexes from the record
// bucket inside an upgrade transaction.
func rebuildIndexes(tx *bolt.Tx) error {
	records := tx.Bucket(bucketRecords)
	return records.ForEach(func(k, v []byte) error {
		var rec Record
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("decode record %s: %w", k, err)
		}
		if err := putIndexEntries(tx, &rec); err != nil {
			return err
		}
		return nil
	})
}

// savedKey encodes the save-time index key: big-endian timestamp so the
// bucket iterates in time order, with the ID appended as the tie-break.
func savedKey(rec *Record) []byte {
	key := make([]byte, 8, 8+len(rec.ID))
	binary.BigEndian.PutUint64(key, uint64(rec.SavedAt))
	return append(key, rec.ID...)
}

// nameKey encodes the name index key: case-folded name, NUL, ID.
func nameKey(rec *Record) []byte {
	name := strings.ToLower(rec.Name)
	key := make([]byte, 0, len(name)+1+len(rec.ID))
	key = append(key, name...)
	key = append(key, 0)
	return append(key, rec.ID...)
}

func putIndexEntries(tx *bolt.Tx, rec *Record) error {
	if err := tx.Bucket(bucketBySaved).Put(savedKey(rec), []byte(rec.ID)); err != nil {
		return err
	}
	return tx.Bucket(bucketByName).Put(nameKey(rec), []byte(rec.ID))
}

func deleteIndexEntries(tx *bolt.Tx, rec *Record) error {
	if err := tx.Bucket(bucketBySaved).Delete(savedKey(rec)); err != nil {
		return err
	}
	return tx.Bucket(bucketByName).Delete(nameKey(rec))
}

// Save upserts the record, stamping SavedAt. Re-saving an existing ID
// overwrites the whole record and refreshes SavedAt; the timestamp never
// moves backwards. The OnSave hook runs fire-and-forget afterwards.
func (s *Store) Save(rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record ID is required")
	}

	rec.SavedAt = s.now().UnixMilli()

	err := s.db.Update(func(tx *bolt.Tx) error {
		records := tx.Bucket(bucketRecords)

		if old := records.Get([]byte(rec.ID)); old != nil {
			var prev Record
			if err := json.Unmarshal(old, &prev); err == nil {
				if err := deleteIndexEntries(tx, &prev); err != nil {
					return err
				}
				if prev.SavedAt > rec.SavedAt {
					rec.SavedAt = prev.SavedAt
				}
			}
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		if err := records.Put([]byte(rec.ID), data); err != nil {
			return err
		}
		return putIndexEntries(tx, &rec)
	})
	if err != nil {
		favoriteOps.WithLabelValues("save", "error").Inc()
		return fmt.Errorf("save favorite %s: %w", rec.ID, err)
	}

	favoriteOps.WithLabelValues("save", "ok").Inc()
	s.logger.Debug().Str("recipe_id", rec.ID).Msg("Favorite saved")

	if s.onSave != nil {
		go s.onSave(rec)
	}
	return nil
}

// Remove deletes a favorite. Removing an absent ID is a no-op.
func (s *Store) Remove(id string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		records := tx.Bucket(bucketRecords)
		raw := records.Get([]byte(id))
		if raw == nil {
			return nil
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err == nil {
			if err := deleteIndexEntries(tx, &rec); err != nil {
				return err
			}
		}
		return records.Delete([]byte(id))
	})
	if err != nil {
		favoriteOps.WithLabelValues("remove", "error").Inc()
		return fmt.Errorf("remove favorite %s: %w", id, err)
	}
	favoriteOps.WithLabelValues("remove", "ok").Inc()
	return nil
}

// Get returns the favorited record, or ErrNotFound.
func (s *Store) Get(id string) (*Record, error) {
	var rec *Record
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketRecords).Get([]byte(id))
		if raw == nil {
			return ErrNotFound
		}
		rec = &Record{}
		return json.Unmarshal(raw, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// IsPresent reports whether the ID is favorited.
func (s *Store) IsPresent(id string) (bool, error) {
	var present bool
	err := s.db.View(func(tx *bolt.Tx) error {
		present = tx.Bucket(bucketRecords).Get([]byte(id)) != nil
		return nil
	})
	return present, err
}

// List returns every favorite ordered by the requested key. Ties on the
// sort key fall back to primary-key order (the ID is the index key's
// suffix).
func (s *Store) List(key SortKey, order Order) ([]Record, error) {
	var index []byte
	switch key {
	case SortByName:
		index = bucketByName
	case SortByDate, "":
		index = bucketBySaved
	default:
		return nil, fmt.Errorf("unknown sort key %q", key)
	}

	var out []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		records := tx.Bucket(bucketRecords)
		c := tx.Bucket(index).Cursor()

		next := c.Next
		k, id := c.First()
		if order == Desc {
			next = c.Prev
			k, id = c.Last()
		}

		for ; k != nil; k, id = next() {
			raw := records.Get(id)
			if raw == nil {
				// Dangling index entry; skip rather than fail the read
				continue
			}
			var rec Record
			if err := json.Unmarshal(raw, &rec); err != nil {
				return fmt.Errorf("decode record %s: %w", id, err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of favorites.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketRecords).Stats().KeyN
		return nil
	})
	return n, err
}

// Clear removes every favorite and both indexes.
func (s *Store) Clear() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketRecords, bucketBySaved, bucketByName} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		favoriteOps.WithLabelValues("clear", "error").Inc()
		return fmt.Errorf("clear favorites: %w", err)
	}
	favoriteOps.WithLabelValues("clear", "ok").Inc()
	return nil
}

// Toggle flips the favorite state of the record's ID and reports the new
// state (true = now favorited).
//
// The read-then-write is deliberately not atomic: two concurrent
// togglers of the same ID can both observe the same presence, and the
// booleans they get back may not reflect the final state. Upsert and
// idempotent-delete semantics keep the data safe either way.
func (s *Store) Toggle(rec Record) (bool, error) {
	present, err := s.IsPresent(rec.ID)
	if err != nil {
		return false, err
	}
	if present {
		if err := s.Remove(rec.ID); err != nil {
			return true, err
		}
		return false, nil
	}
	if err := s.Save(rec); err != nil {
		return false, err
	}
	return true, nil
}
