package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scuffle-video/api/internal/authz"
	"github.com/scuffle-video/api/internal/db"
	"github.com/scuffle-video/api/internal/ids"
	"github.com/scuffle-video/api/internal/models"
	"github.com/scuffle-video/api/internal/ratelimit"
)

func bucketScopedToken(orgID ids.ID, permission string) *models.AccessToken {
	return &models.AccessToken{
		OrganizationID: orgID,
		Scopes: models.AccessTokenScopes{
			{Resource: string(authz.ResourceS3Bucket), Permission: permission},
		},
	}
}

func newTestResourcesService(t *testing.T) (*Service, sqlmock.Sqlmock, func()) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	limiter := ratelimit.New(nil)
	svc := NewService(db.NewS3BucketDB(sqlDB), db.NewRecordingConfigDB(sqlDB), db.NewPlaybackKeyPairDB(sqlDB),
		db.NewRecordingDB(sqlDB), limiter, TagLimits{MaxTagsPerRow: 10, MaxKeyLen: 32, MaxValueLen: 64})
	return svc, mock, func() { limiter.Close(); sqlDB.Close() }
}

func TestCreateS3BucketSetsOrganizationID(t *testing.T) {
	svc, mock, closeFn := newTestResourcesService(t)
	defer closeFn()

	orgID := ids.New()
	mock.ExpectQuery("INSERT INTO s3_buckets").
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "name", "region", "endpoint", "tags", "created_at", "updated_at"}).
			AddRow(ids.New().String(), orgID.String(), "bucket", "us-east-1", "https://s3.example.com", "{}", time.Now(), time.Now()))

	created, appErr := svc.CreateS3Bucket(context.Background(), bucketScopedToken(orgID, "*"),
		&models.S3Bucket{Name: "bucket", Region: "us-east-1", Endpoint: "https://s3.example.com"})
	require.Nil(t, appErr)
	assert.Equal(t, orgID, created.OrganizationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateS3BucketRejectsMissingScope(t *testing.T) {
	svc, _, closeFn := newTestResourcesService(t)
	defer closeFn()

	unscoped := &models.AccessToken{OrganizationID: ids.New()}
	_, appErr := svc.CreateS3Bucket(context.Background(), unscoped, &models.S3Bucket{Name: "bucket"})
	require.NotNil(t, appErr)
	assert.Equal(t, "PERMISSION_DENIED", appErr.Code)
}

// TestDeleteS3BucketsPartialMiss exercises newDeleteResult's reconciliation:
// a requested id the store didn't return ends up in FailedIDs, not dropped.
func TestDeleteS3BucketsPartialMiss(t *testing.T) {
	svc, mock, closeFn := newTestResourcesService(t)
	defer closeFn()

	orgID := ids.New()
	found, missing := ids.New(), ids.New()

	mock.ExpectQuery("DELETE FROM s3_buckets").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(found.String()))

	result, appErr := svc.DeleteS3Buckets(context.Background(), bucketScopedToken(orgID, "*"), []ids.ID{found, missing})
	require.Nil(t, appErr)
	assert.Equal(t, []ids.ID{found}, result.DeletedIDs)
	assert.Equal(t, []ids.ID{missing}, result.FailedIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetS3BucketsPropagatesNotFoundAsEmpty(t *testing.T) {
	svc, mock, closeFn := newTestResourcesService(t)
	defer closeFn()

	orgID := ids.New()
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "name", "region", "endpoint", "tags", "created_at", "updated_at"}))

	rows, appErr := svc.GetS3Buckets(context.Background(), bucketScopedToken(orgID, "*"), []ids.ID{ids.New()})
	require.Nil(t, appErr)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
