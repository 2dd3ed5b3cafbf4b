package recordings

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scuffle-video/api/internal/authz"
	"github.com/scuffle-video/api/internal/ids"
	"github.com/scuffle-video/api/internal/models"
	"github.com/scuffle-video/api/internal/ratelimit"
)

// recordingPublisher records every batch published to it, standing in for
// the live NATS events.Publisher so batch grouping can be asserted without a
// broker (see batchPublisher in delete.go).
type recordingPublisher struct {
	published []models.RecordingDeleteBatchTask
	failNext  bool
}

func (p *recordingPublisher) PublishRecordingDeleteBatch(task models.RecordingDeleteBatchTask) error {
	if p.failNext {
		p.failNext = false
		return assert.AnError
	}
	p.published = append(p.published, task)
	return nil
}

func deleteScopedToken(orgID ids.ID) *models.AccessToken {
	return &models.AccessToken{
		OrganizationID: orgID,
		Scopes: models.AccessTokenScopes{
			{Resource: string(authz.ResourceRecording), Permission: "*"},
		},
	}
}

// TestDeletePartialMiss: two of three requested recordings exist, so the
// response partitions ids into deleted/failed with no overlap.
func TestDeletePartialMiss(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	orgID := ids.New()
	r1, r2, r3 := ids.New(), ids.New(), ids.New()
	bucket1, bucket2 := ids.New(), ids.New()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE recordings SET deleted_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "s3_bucket_id"}).
			AddRow(r1.String(), bucket1.String()).
			AddRow(r2.String(), bucket2.String()))
	mock.ExpectExec("DELETE FROM playback_sessions").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM recording_renditions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO recording_delete_pending").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO recording_delete_pending").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery("SELECT id, recording_id, idx FROM recording_thumbnails").
		WillReturnRows(sqlmock.NewRows([]string{"id", "recording_id", "idx"}))
	mock.ExpectQuery("SELECT id, recording_id, rendition, idx FROM recording_rendition_segments").
		WillReturnRows(sqlmock.NewRows([]string{"id", "recording_id", "rendition", "idx"}))
	mock.ExpectExec("DELETE FROM recording_delete_pending").WillReturnResult(sqlmock.NewResult(0, 2))

	pub := &recordingPublisher{}
	svc := &Service{sqlDB: sqlDB, publisher: pub, limiter: ratelimit.New(nil), batchSize: 100}
	defer svc.limiter.Close()

	result, appErr := svc.Delete(context.Background(), deleteScopedToken(orgID), []ids.ID{r1, r2, r3})
	require.Nil(t, appErr)

	assert.ElementsMatch(t, []ids.ID{r1, r2}, result.DeletedIDs)
	assert.ElementsMatch(t, []ids.ID{r3}, result.FailedIDs)
	assert.Equal(t, 3, len(result.DeletedIDs)+len(result.FailedIDs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRejectsEmptyIDs(t *testing.T) {
	svc := &Service{limiter: ratelimit.New(nil), batchSize: 100}
	defer svc.limiter.Close()

	_, appErr := svc.Delete(context.Background(), deleteScopedToken(ids.New()), nil)
	require.NotNil(t, appErr)
	assert.Equal(t, "INVALID_ARGUMENT", appErr.Code)
}

func TestDeleteRejectsTooManyIDs(t *testing.T) {
	svc := &Service{limiter: ratelimit.New(nil), batchSize: 100}
	defer svc.limiter.Close()

	tooMany := make([]ids.ID, maxDeleteIDs+1)
	for i := range tooMany {
		tooMany[i] = ids.New()
	}

	_, appErr := svc.Delete(context.Background(), deleteScopedToken(ids.New()), tooMany)
	require.NotNil(t, appErr)
	assert.Equal(t, "INVALID_ARGUMENT", appErr.Code)
}

func TestDeleteRejectsMissingScope(t *testing.T) {
	svc := &Service{limiter: ratelimit.New(nil), batchSize: 100}
	defer svc.limiter.Close()

	unscoped := &models.AccessToken{OrganizationID: ids.New()}
	_, appErr := svc.Delete(context.Background(), unscoped, []ids.ID{ids.New()})
	require.NotNil(t, appErr)
	assert.Equal(t, "PERMISSION_DENIED", appErr.Code)
}
