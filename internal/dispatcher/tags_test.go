package dispatcher

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scuffle-video/api/internal/errors"
	"github.com/scuffle-video/api/internal/ids"
	"github.com/scuffle-video/api/internal/models"
)

// fakeBucket is a minimal models.Taggable for exercising Tag/Untag without a
// database.
type fakeBucket struct {
	id   ids.ID
	tags models.Tags
}

func (f *fakeBucket) GetID() ids.ID        { return f.id }
func (f *fakeBucket) GetTags() models.Tags  { return f.tags }
func (f *fakeBucket) SetTags(t models.Tags) { f.tags = t }

// fakeTagStore is an in-memory tagStore[*fakeBucket]. Like the real stores,
// MutateTags holds a lock across the whole read-mutate-write, standing in
// for the row lock the database takes.
type fakeTagStore struct {
	mu   sync.Mutex
	rows map[ids.ID]*fakeBucket
}

func (s *fakeTagStore) MutateTags(ctx context.Context, orgID, id ids.ID, mutate func(models.Tags) (models.Tags, error)) (*fakeBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, errors.NotFound("s3_bucket")
	}
	newTags, err := mutate(row.tags)
	if err != nil {
		return nil, err
	}
	row.tags = newTags
	return row, nil
}

func TestTagUntagRoundTrip(t *testing.T) {
	id := ids.New()
	store := &fakeTagStore{rows: map[ids.ID]*fakeBucket{
		id: {id: id, tags: models.Tags{"env": "prod"}},
	}}
	limits := TagLimits{MaxTagsPerRow: 10, MaxKeyLen: 32, MaxValueLen: 64}

	tagged, err := Tag[*fakeBucket](context.Background(), store, ids.New(), id, map[string]string{"owner": "alice"}, limits)
	require.Nil(t, err)
	assert.Equal(t, models.Tags{"env": "prod", "owner": "alice"}, tagged.GetTags())

	untagged, err := Untag[*fakeBucket](context.Background(), store, ids.New(), id, []string{"owner"})
	require.Nil(t, err)
	assert.Equal(t, models.Tags{"env": "prod"}, untagged.GetTags())
}

func TestUntagAbsentKeyIsNotAnError(t *testing.T) {
	id := ids.New()
	store := &fakeTagStore{rows: map[ids.ID]*fakeBucket{
		id: {id: id, tags: models.Tags{"env": "prod"}},
	}}

	result, err := Untag[*fakeBucket](context.Background(), store, ids.New(), id, []string{"does-not-exist"})
	require.Nil(t, err)
	assert.Equal(t, models.Tags{"env": "prod"}, result.GetTags())
}

func TestTagExceedsMaxCountIsInvalidArgument(t *testing.T) {
	id := ids.New()
	store := &fakeTagStore{rows: map[ids.ID]*fakeBucket{
		id: {id: id, tags: models.Tags{"a": "1"}},
	}}
	limits := TagLimits{MaxTagsPerRow: 1, MaxKeyLen: 32, MaxValueLen: 64}

	_, err := Tag[*fakeBucket](context.Background(), store, ids.New(), id, map[string]string{"b": "2"}, limits)
	require.NotNil(t, err)
	assert.Equal(t, "INVALID_ARGUMENT", err.Code)
}

func TestTagMissingRowIsNotFound(t *testing.T) {
	store := &fakeTagStore{rows: map[ids.ID]*fakeBucket{}}
	limits := TagLimits{MaxTagsPerRow: 10, MaxKeyLen: 32, MaxValueLen: 64}

	_, err := Tag[*fakeBucket](context.Background(), store, ids.New(), ids.New(), map[string]string{"a": "1"}, limits)
	require.NotNil(t, err)
	assert.Equal(t, "NOT_FOUND", err.Code)
}

// TestConcurrentTagsDoNotLoseUpdates pins the atomicity contract: because
// the merge runs inside the store's MutateTags (not as a separate read
// followed by a write), concurrent Tag calls on the same row all land, no
// merge overwrites another.
func TestConcurrentTagsDoNotLoseUpdates(t *testing.T) {
	id := ids.New()
	store := &fakeTagStore{rows: map[ids.ID]*fakeBucket{
		id: {id: id, tags: models.Tags{}},
	}}
	limits := TagLimits{MaxTagsPerRow: 100, MaxKeyLen: 32, MaxValueLen: 64}

	keys := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			_, err := Tag[*fakeBucket](context.Background(), store, ids.New(), id, map[string]string{k: "v"}, limits)
			assert.Nil(t, err)
		}(key)
	}
	wg.Wait()

	final := store.rows[id].tags
	require.Len(t, final, len(keys))
	for _, key := range keys {
		assert.Equal(t, "v", final[key])
	}
}
