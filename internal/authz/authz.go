// Package authz holds the static authorization tables the dispatcher
// consults before touching the database: which (Resource, Permission) pair
// each request DTO requires, and which ratelimit.Resource bucket it draws
// from. An ordinary Go lookup table in place of per-request scope
// annotations.
package authz

import (
	"github.com/scuffle-video/api/internal/errors"
	"github.com/scuffle-video/api/internal/models"
	"github.com/scuffle-video/api/internal/ratelimit"
)

// Resource is a manageable resource kind.
type Resource string

const (
	ResourceRecording       Resource = "recording"
	ResourceRecordingConfig Resource = "recording_config"
	ResourceS3Bucket        Resource = "s3_bucket"
	ResourcePlaybackKeyPair Resource = "playback_key_pair"
)

// Permission is an action a caller may perform on a Resource.
type Permission string

const (
	PermissionGet    Permission = "get"
	PermissionCreate Permission = "create"
	PermissionModify Permission = "modify"
	PermissionDelete Permission = "delete"
	PermissionTag    Permission = "tag"
	PermissionUntag  Permission = "untag"
)

// RequestKind identifies one (resource, verb) request DTO, e.g.
// "recording.delete".
type RequestKind string

func Kind(resource Resource, permission Permission) RequestKind {
	return RequestKind(string(resource) + "." + string(permission))
}

type scopeEntry struct {
	resource      Resource
	permission    Permission
	rateLimitKind ratelimit.Resource
}

var scopeTable = map[RequestKind]scopeEntry{}

func register(resource Resource, permission Permission) {
	kind := Kind(resource, permission)
	scopeTable[kind] = scopeEntry{
		resource:      resource,
		permission:    permission,
		rateLimitKind: ratelimit.Resource(kind),
	}
}

func init() {
	for _, resource := range []Resource{ResourceRecording, ResourceRecordingConfig, ResourceS3Bucket, ResourcePlaybackKeyPair} {
		for _, permission := range []Permission{PermissionGet, PermissionCreate, PermissionModify, PermissionDelete, PermissionTag, PermissionUntag} {
			register(resource, permission)
		}
	}
}

// RateLimitResourceFor returns the ratelimit.Resource bucket a request kind
// draws from.
func RateLimitResourceFor(kind RequestKind) ratelimit.Resource {
	if entry, ok := scopeTable[kind]; ok {
		return entry.rateLimitKind
	}
	return ratelimit.Resource(kind)
}

// CheckScope verifies that auth carries the (resource, permission) pair a
// request kind requires, returning a PermissionDenied AppError if not.
func CheckScope(kind RequestKind, auth *models.AccessToken) *errors.AppError {
	entry, ok := scopeTable[kind]
	if !ok {
		return errors.InvalidArgument("unknown request kind: " + string(kind))
	}

	for _, scope := range auth.Scopes {
		if Resource(scope.Resource) == entry.resource && Permission(scope.Permission) == entry.permission {
			return nil
		}
		// A Permission of "*" on the matching resource grants every verb.
		if Resource(scope.Resource) == entry.resource && scope.Permission == "*" {
			return nil
		}
	}

	return errors.PermissionDenied(string(entry.resource), string(entry.permission))
}
