package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/conorfennell/lingoreview/internal/domain"
)

// LocalSchemaVersion is the version written into every device bucket.
const LocalSchemaVersion = 1

// localDocument is the bucket layout since version 1. Version 0 buckets held
// the states map alone, with no envelope.
type localDocument struct {
	Version int                           `json:"version"`
	Scope   string                        `json:"scope"`
	States  map[string]domain.ReviewState `json:"states"`
}

// LocalStore keeps one anonymous device's review states in a Bucket. Every
// call loads the whole document and every mutation saves it back.
type LocalStore struct {
	mu     sync.Mutex
	bucket Bucket
	scope  domain.Scope
}

var _ Store = (*LocalStore)(nil)

// OpenLocal binds a bucket to a device identity. With an empty deviceID the
// identity stored in the bucket is reused, or a new one is minted and saved.
func OpenLocal(ctx context.Context, bucket Bucket, deviceID string) (*LocalStore, error) {
	s := &LocalStore{bucket: bucket}
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	switch {
	case doc.Scope != "" && deviceID != "" && doc.Scope != deviceID:
		return nil, fmt.Errorf("%w: bucket belongs to device %s", ErrScopeMismatch, doc.Scope)
	case deviceID != "":
		doc.Scope = deviceID
	case doc.Scope == "":
		doc.Scope = domain.NewDeviceScope().ID
	}
	s.scope = domain.Scope{Kind: domain.ScopeDevice, ID: doc.Scope}

	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}
	return s, nil
}

// Scope returns the device scope this store serves.
func (s *LocalStore) Scope() domain.Scope {
	return s.scope
}

func (s *LocalStore) Get(ctx context.Context, scope domain.Scope, itemID string) (domain.ReviewState, bool, error) {
	if err := s.check(scope); err != nil {
		return domain.ReviewState{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return domain.ReviewState{}, false, err
	}
	state, ok := doc.States[itemID]
	return state, ok, nil
}

func (s *LocalStore) Put(ctx context.Context, scope domain.Scope, itemID string, state domain.ReviewState) error {
	if err := s.check(scope); err != nil {
		return err
	}
	if itemID == "" {
		return domain.Invalid("item_id", "must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	doc.States[itemID] = state
	return s.save(ctx, doc)
}

func (s *LocalStore) Snapshot(ctx context.Context, scope domain.Scope) (map[string]domain.ReviewState, error) {
	if err := s.check(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.States, nil
}

func (s *LocalStore) ListDue(ctx context.Context, scope domain.Scope, asOf time.Time) ([]string, error) {
	states, err := s.Snapshot(ctx, scope)
	if err != nil {
		return nil, err
	}
	return DueItems(states, asOf), nil
}

func (s *LocalStore) ListFresh(ctx context.Context, scope domain.Scope, candidates []string) ([]string, error) {
	states, err := s.Snapshot(ctx, scope)
	if err != nil {
		return nil, err
	}
	return FreshItems(states, candidates), nil
}

func (s *LocalStore) check(scope domain.Scope) error {
	if err := scopeErr(scope, domain.ScopeDevice); err != nil {
		return err
	}
	if scope.ID != s.scope.ID {
		return fmt.Errorf("%w: %s", ErrScopeMismatch, scope)
	}
	return nil
}

func (s *LocalStore) load(ctx context.Context) (localDocument, error) {
	raw, err := s.bucket.Load(ctx)
	if err != nil {
		return localDocument{}, adapterErr("load", s.scope, err)
	}
	doc, err := decodeLocal(raw)
	if err != nil {
		return localDocument{}, adapterErr("decode", s.scope, err)
	}
	return doc, nil
}

func (s *LocalStore) save(ctx context.Context, doc localDocument) error {
	doc.Version = LocalSchemaVersion
	raw, err := json.Marshal(doc)
	if err != nil {
		return adapterErr("encode", s.scope, err)
	}
	if err := s.bucket.Save(ctx, raw); err != nil {
		return adapterErr("save", s.scope, err)
	}
	return nil
}

// decodeLocal reads a bucket of any supported version and upgrades it to
// the current layout. Unknown fields are ignored.
func decodeLocal(raw []byte) (localDocument, error) {
	doc := localDocument{Version: LocalSchemaVersion, States: map[string]domain.ReviewState{}}
	if len(raw) == 0 {
		return doc, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return doc, fmt.Errorf("failed to parse bucket: %w", err)
	}

	version := 0
	if v, ok := probe["version"]; ok {
		if err := json.Unmarshal(v, &version); err != nil {
			return doc, fmt.Errorf("failed to parse bucket version: %w", err)
		}
	}

	switch {
	case version == 0:
		if err := json.Unmarshal(raw, &doc.States); err != nil {
			return doc, fmt.Errorf("failed to parse legacy bucket: %w", err)
		}
	case version <= LocalSchemaVersion:
		if err := json.Unmarshal(raw, &doc); err != nil {
			return doc, fmt.Errorf("failed to parse bucket: %w", err)
		}
	default:
		return doc, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	if doc.States == nil {
		doc.States = map[string]domain.ReviewState{}
	}
	doc.Version = LocalSchemaVersion
	return doc, nil
}
