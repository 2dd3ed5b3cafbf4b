package recordings

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scuffle-video/api/internal/ids"
	"github.com/scuffle-video/api/internal/models"
)

// TestPublishCleanupBatchesGroupsContiguousRuns: R1 has two thumbnails, R2
// has one; R1 has one segment in rendition A and two in rendition B. With a
// batch size large enough to never force a split,
// exactly four batches publish, one per contiguous (recording_id,
// object_types) run, in stream order.
func TestPublishCleanupBatchesGroupsContiguousRuns(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	r1, r2 := ids.New(), ids.New()
	bucket1, bucket2 := ids.New(), ids.New()
	t0, t1, t2 := ids.New(), ids.New(), ids.New()
	s0, s1, s2 := ids.New(), ids.New(), ids.New()

	mock.ExpectQuery("SELECT id, recording_id, idx FROM recording_thumbnails").
		WillReturnRows(sqlmock.NewRows([]string{"id", "recording_id", "idx"}).
			AddRow(t0.String(), r1.String(), 0).
			AddRow(t1.String(), r1.String(), 1).
			AddRow(t2.String(), r2.String(), 0))

	mock.ExpectQuery("SELECT id, recording_id, rendition, idx FROM recording_rendition_segments").
		WillReturnRows(sqlmock.NewRows([]string{"id", "recording_id", "rendition", "idx"}).
			AddRow(s0.String(), r1.String(), string(models.RenditionVideoSource), 0).
			AddRow(s1.String(), r1.String(), string(models.RenditionVideo1080p), 0).
			AddRow(s2.String(), r1.String(), string(models.RenditionVideo1080p), 1))

	mock.ExpectExec("DELETE FROM recording_delete_pending").WillReturnResult(sqlmock.NewResult(0, 2))

	pub := &recordingPublisher{}
	svc := &Service{sqlDB: sqlDB, publisher: pub, batchSize: 100}

	deletedRecordings := map[ids.ID]ids.ID{r1: bucket1, r2: bucket2}
	svc.publishCleanupBatches(context.Background(), ids.New(), deletedRecordings)

	require.Len(t, pub.published, 4)

	assert.Equal(t, r1, pub.published[0].RecordingID)
	assert.True(t, pub.published[0].ObjectTypes.Thumbnails)
	assert.Equal(t, []models.BatchObject{{Index: 0, ObjectID: t0}, {Index: 1, ObjectID: t1}}, pub.published[0].Objects)

	assert.Equal(t, r2, pub.published[1].RecordingID)
	assert.True(t, pub.published[1].ObjectTypes.Thumbnails)
	assert.Equal(t, []models.BatchObject{{Index: 0, ObjectID: t2}}, pub.published[1].Objects)

	assert.Equal(t, r1, pub.published[2].RecordingID)
	assert.False(t, pub.published[2].ObjectTypes.Thumbnails)
	assert.Equal(t, models.RenditionVideoSource, pub.published[2].ObjectTypes.Rendition)
	assert.Equal(t, []models.BatchObject{{Index: 0, ObjectID: s0}}, pub.published[2].Objects)

	assert.Equal(t, r1, pub.published[3].RecordingID)
	assert.Equal(t, models.RenditionVideo1080p, pub.published[3].ObjectTypes.Rendition)
	assert.Equal(t, []models.BatchObject{{Index: 0, ObjectID: s1}, {Index: 1, ObjectID: s2}}, pub.published[3].Objects)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPublishCleanupBatchesKeepsMarkerOnFailure: a recording whose batch
// fails to publish keeps its recording_delete_pending row so
// internal/reconcile retries it; only the clean recording's marker clears.
func TestPublishCleanupBatchesKeepsMarkerOnFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	r1, r2 := ids.New(), ids.New()
	bucket1, bucket2 := ids.New(), ids.New()
	t0, t1 := ids.New(), ids.New()

	mock.ExpectQuery("SELECT id, recording_id, idx FROM recording_thumbnails").
		WillReturnRows(sqlmock.NewRows([]string{"id", "recording_id", "idx"}).
			AddRow(t0.String(), r1.String(), 0).
			AddRow(t1.String(), r2.String(), 0))
	mock.ExpectQuery("SELECT id, recording_id, rendition, idx FROM recording_rendition_segments").
		WillReturnRows(sqlmock.NewRows([]string{"id", "recording_id", "rendition", "idx"}))

	// Only r2's marker should be cleared; r1's publish fails.
	mock.ExpectExec("DELETE FROM recording_delete_pending").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	pub := &recordingPublisher{failNext: true}
	svc := &Service{sqlDB: sqlDB, publisher: pub, batchSize: 100}

	deletedRecordings := map[ids.ID]ids.ID{r1: bucket1, r2: bucket2}
	svc.publishCleanupBatches(context.Background(), ids.New(), deletedRecordings)

	require.Len(t, pub.published, 1)
	assert.Equal(t, r2, pub.published[0].RecordingID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
