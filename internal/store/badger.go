package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Key prefixes for the three document collections.
const (
	prefixHelpRequest = "helpreq/"
	prefixKnowledge   = "knowledge/"
	prefixCallLog     = "call/"
)

// Config configures the embedded BadgerDB store.
type Config struct {
	// Path is the directory for database files. Ignored when InMemory is true.
	Path string

	// InMemory disables disk persistence. Used in tests.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool
}

// DefaultConfig returns production defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryConfig returns a config suitable for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerStore implements Store on an embedded BadgerDB.
type badgerStore struct {
	db     *badger.DB
	logger *zap.Logger
}

// badgerLogger adapts zap to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{})   { l.logger.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...interface{}) { l.logger.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...interface{})    { l.logger.Debugf(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...interface{})   { l.logger.Debugf(format, args...) }

// Open creates and opens a BadgerDB-backed store.
func Open(cfg Config, logger *zap.Logger) (Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("store path is required for persistent databases")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	path := cfg.Path
	if cfg.InMemory {
		path = ""
	}
	opts := badger.DefaultOptions(path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{logger: logger.Named("badger").Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %s: %w", cfg.Path, err)
	}

	return &badgerStore{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *badgerStore) Close() error {
	return s.db.Close()
}

// putJSON marshals v and writes it under key within txn.
func putJSON(txn *badger.Txn, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

// getJSON reads key within txn and unmarshals into v.
// Returns ErrNotFound when the key is absent.
func getJSON(txn *badger.Txn, key string, v interface{}) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// scanPrefix iterates all values under prefix, invoking fn with each raw value.
func (s *badgerStore) scanPrefix(prefix string, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

// Help request operations

func (s *badgerStore) CreateHelpRequest(ctx context.Context, req *HelpRequest) (string, error) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if req.Status == "" {
		req.Status = StatusPending
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return putJSON(txn, prefixHelpRequest+req.ID, req)
	})
	if err != nil {
		return "", fmt.Errorf("create help request: %w", err)
	}
	return req.ID, nil
}

func (s *badgerStore) GetHelpRequest(ctx context.Context, id string) (*HelpRequest, error) {
	var req HelpRequest
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, prefixHelpRequest+id, &req)
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *badgerStore) listRequests(filter func(*HelpRequest) bool) ([]*HelpRequest, error) {
	var requests []*HelpRequest
	err := s.scanPrefix(prefixHelpRequest, func(val []byte) error {
		var req HelpRequest
		if err := json.Unmarshal(val, &req); err != nil {
			return err
		}
		if filter == nil || filter(&req) {
			requests = append(requests, &req)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests, nil
}

func (s *badgerStore) ListPending(ctx context.Context) ([]*HelpRequest, error) {
	return s.listRequests(func(r *HelpRequest) bool { return r.Status == StatusPending })
}

func (s *badgerStore) ListRecent(ctx context.Context, limit int) ([]*HelpRequest, error) {
	requests, err := s.listRequests(nil)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(requests) > limit {
		requests = requests[:limit]
	}
	return requests, nil
}

// transitionHelpRequest applies mutate to a request iff it is currently
// PENDING, inside a single transaction. Returns false without mutation
// when the request is absent or already terminal.
func (s *badgerStore) transitionHelpRequest(id string, mutate func(*HelpRequest)) (bool, error) {
	applied := false
	err := s.db.Update(func(txn *badger.Txn) error {
		var req HelpRequest
		if err := getJSON(txn, prefixHelpRequest+id, &req); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		if req.Status != StatusPending {
			return nil
		}
		mutate(&req)
		applied = true
		return putJSON(txn, prefixHelpRequest+id, &req)
	})
	if err != nil {
		return false, fmt.Errorf("transition help request %s: %w", id, err)
	}
	return applied, nil
}

func (s *badgerStore) UpdateHelpRequestResolved(ctx context.Context, id, answer, resolver string) (bool, error) {
	return s.transitionHelpRequest(id, func(req *HelpRequest) {
		now := time.Now().UTC()
		req.Status = StatusResolved
		req.Answer = answer
		req.ResolverName = resolver
		req.ResolvedAt = &now
	})
}

func (s *badgerStore) UpdateHelpRequestTimeout(ctx context.Context, id string) (bool, error) {
	return s.transitionHelpRequest(id, func(req *HelpRequest) {
		now := time.Now().UTC()
		req.Status = StatusTimeout
		req.ResolvedAt = &now
	})
}

// Knowledge operations

func (s *badgerStore) CreateKnowledgeEntry(ctx context.Context, entry *KnowledgeEntry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = now
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return putJSON(txn, prefixKnowledge+entry.ID, entry)
	})
	if err != nil {
		return "", fmt.Errorf("create knowledge entry: %w", err)
	}
	return entry.ID, nil
}

func (s *badgerStore) ListAllKnowledge(ctx context.Context) ([]*KnowledgeEntry, error) {
	var entries []*KnowledgeEntry
	err := s.scanPrefix(prefixKnowledge, func(val []byte) error {
		var entry KnowledgeEntry
		if err := json.Unmarshal(val, &entry); err != nil {
			return err
		}
		entries = append(entries, &entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

func (s *badgerStore) IncrementKnowledgeUsage(ctx context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		var entry KnowledgeEntry
		if err := getJSON(txn, prefixKnowledge+id, &entry); err != nil {
			return err
		}
		entry.UsageCount++
		entry.UpdatedAt = time.Now().UTC()
		return putJSON(txn, prefixKnowledge+id, &entry)
	})
	if err != nil {
		return fmt.Errorf("increment usage for %s: %w", id, err)
	}
	return nil
}

func (s *badgerStore) TextSearchKnowledge(ctx context.Context, query string) ([]*KnowledgeEntry, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}

	var matches []*KnowledgeEntry
	err := s.scanPrefix(prefixKnowledge, func(val []byte) error {
		// Cheap pre-filter on the raw JSON before decoding.
		if !bytes.Contains(bytes.ToLower(val), []byte(needle)) {
			return nil
		}
		var entry KnowledgeEntry
		if err := json.Unmarshal(val, &entry); err != nil {
			return err
		}
		if strings.Contains(strings.ToLower(entry.Question), needle) ||
			strings.Contains(strings.ToLower(entry.Answer), needle) {
			matches = append(matches, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("text search knowledge: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].UsageCount > matches[j].UsageCount
	})
	return matches, nil
}

// Call log operations

func (s *badgerStore) CreateCallLog(ctx context.Context, call *CallLog) (string, error) {
	if call.ID == "" {
		call.ID = uuid.New().String()
	}
	if call.StartedAt.IsZero() {
		call.StartedAt = time.Now().UTC()
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return putJSON(txn, prefixCallLog+call.ID, call)
	})
	if err != nil {
		return "", fmt.Errorf("create call log: %w", err)
	}
	return call.ID, nil
}

func (s *badgerStore) AppendCallHelpRequest(ctx context.Context, callID, requestID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		var call CallLog
		if err := getJSON(txn, prefixCallLog+callID, &call); err != nil {
			return err
		}
		call.HelpRequests = append(call.HelpRequests, requestID)
		call.ResolvedByAI = false
		return putJSON(txn, prefixCallLog+callID, &call)
	})
	if err != nil {
		return fmt.Errorf("append help request to call %s: %w", callID, err)
	}
	return nil
}

func (s *badgerStore) EndCallLog(ctx context.Context, callID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		var call CallLog
		if err := getJSON(txn, prefixCallLog+callID, &call); err != nil {
			return err
		}
		now := time.Now().UTC()
		call.EndedAt = &now
		return putJSON(txn, prefixCallLog+callID, &call)
	})
	if err != nil {
		return fmt.Errorf("end call log %s: %w", callID, err)
	}
	return nil
}

func (s *badgerStore) ListCallLogs(ctx context.Context, limit int) ([]*CallLog, error) {
	var calls []*CallLog
	err := s.scanPrefix(prefixCallLog, func(val []byte) error {
		var call CallLog
		if err := json.Unmarshal(val, &call); err != nil {
			return err
		}
		calls = append(calls, &call)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(calls, func(i, j int) bool {
		return calls[i].StartedAt.After(calls[j].StartedAt)
	})
	if limit > 0 && len(calls) > limit {
		calls = calls[:limit]
	}
	return calls, nil
}
