package querybuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scuffle-video/api/internal/ids"
)

func TestOrganizationIDFilterBindsArg(t *testing.T) {
	org := ids.New()
	b := New()
	b.Push("SELECT * FROM recordings WHERE ").OrganizationIDFilter(org)

	sql, args := b.Build()
	assert.Equal(t, "SELECT * FROM recordings WHERE organization_id = $1", sql)
	assert.Equal(t, []interface{}{org.String()}, args)
}

func TestIDsFilterUsesANY(t *testing.T) {
	a, c := ids.New(), ids.New()
	b := New()
	b.Push("SELECT * FROM recordings WHERE ").IDsFilter("id", []ids.ID{a, c})

	sql, args := b.Build()
	assert.Contains(t, sql, "id = ANY($1)")
	assert.Len(t, args, 1)
}

func TestApplySearchOptionsDefaultsAndCapsLimit(t *testing.T) {
	b := New()
	b.Push("SELECT * FROM recordings")
	_, err := b.ApplySearchOptions(SearchOptions{Limit: 5000})
	assert.Nil(t, err)

	sql, args := b.Build()
	assert.Contains(t, sql, "ORDER BY created_at ASC")
	assert.Contains(t, sql, "LIMIT $1")
	assert.Equal(t, []interface{}{1000}, args)
}

func TestApplySearchOptionsRejectsUnknownOrderColumn(t *testing.T) {
	b := New()
	b.Push("SELECT * FROM recordings")
	_, err := b.ApplySearchOptions(SearchOptions{OrderBy: "password_hash; DROP TABLE users"})
	assert.NotNil(t, err)
	assert.Equal(t, "INVALID_ARGUMENT", err.Code)
}

func TestReturningAppendsClause(t *testing.T) {
	b := New()
	b.Push("UPDATE recordings SET deleted_at = NOW()").Returning("id, s3_bucket_id")

	sql, _ := b.Build()
	assert.Contains(t, sql, "RETURNING id, s3_bucket_id")
}
