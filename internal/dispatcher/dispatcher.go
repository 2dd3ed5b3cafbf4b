// Package dispatcher implements the single path every resource
// Get/Create/Modify/Delete/Tag/Untag call for one of the manageable
// resource kinds goes through. Each call first checks the caller's
// AccessToken carries the (resource, permission) scope it needs
// (internal/authz.CheckScope), then consumes one unit of that
// organization's rate-limit budget (internal/ratelimit.Limiter.Allow), and
// only then reaches the database. The check-then-call order is an ordinary
// Go function composed once and reused across the resource-specific
// dispatchers below instead of being regenerated per resource.
package dispatcher

import (
	"context"

	"github.com/scuffle-video/api/internal/authz"
	"github.com/scuffle-video/api/internal/errors"
	"github.com/scuffle-video/api/internal/ids"
	"github.com/scuffle-video/api/internal/logger"
	"github.com/scuffle-video/api/internal/models"
	"github.com/scuffle-video/api/internal/ratelimit"
)

// authorize enforces scope then rate limit, in that order: a caller who
// lacks the scope entirely should see PermissionDenied rather than
// ResourceExhausted.
func authorize(kind authz.RequestKind, token *models.AccessToken, limiter *ratelimit.Limiter) *errors.AppError {
	if err := authz.CheckScope(kind, token); err != nil {
		return err
	}
	if !limiter.Allow(token.OrganizationID, authz.RateLimitResourceFor(kind)) {
		return errors.ResourceExhausted("rate limit exceeded for " + string(kind))
	}
	return nil
}

// maxDeleteIDs caps a single bulk delete request.
const maxDeleteIDs = 100

func checkDeleteLimit(idList []ids.ID) *errors.AppError {
	if len(idList) == 0 {
		return errors.InvalidArgument("no ids provided for delete")
	}
	if len(idList) > maxDeleteIDs {
		return errors.InvalidArgument("too many ids provided for delete: max 100")
	}
	return nil
}

// DeleteResult carries both the ids that were deleted and the ids that were
// not: a bulk operation against a mix of valid and invalid ids partially
// succeeds rather than failing the whole batch. No per-id failure reason is
// carried; FailedIDs lists only the ids.
type DeleteResult struct {
	DeletedIDs []ids.ID
	FailedIDs  []ids.ID
}

// newDeleteResult reconciles the ids a delete was asked to remove against
// the ids a store actually reports as removed.
func newDeleteResult(requested, deleted []ids.ID) DeleteResult {
	deletedSet := make(map[ids.ID]struct{}, len(deleted))
	for _, id := range deleted {
		deletedSet[id] = struct{}{}
	}
	failed := make([]ids.ID, 0, len(requested)-len(deleted))
	for _, id := range requested {
		if _, ok := deletedSet[id]; !ok {
			failed = append(failed, id)
		}
	}
	return DeleteResult{DeletedIDs: deleted, FailedIDs: failed}
}

// tagStore is implemented by each resource's *db.<Resource>DB for the
// Tag/Untag verbs. MutateTags runs the supplied function inside a
// row-locked transaction (SELECT ... FOR UPDATE, then UPDATE ... RETURNING
// in the same tx), so the read-modify-write is atomic at the database and
// two concurrent tag calls on the same row serialize instead of one losing
// its merge.
type tagStore[T models.Taggable] interface {
	MutateTags(ctx context.Context, orgID, id ids.ID, mutate func(models.Tags) (models.Tags, error)) (T, error)
}

// Tag merges incoming into one row's existing tags and persists the result.
func Tag[T models.Taggable](ctx context.Context, store tagStore[T], orgID, id ids.ID, incoming map[string]string, limits TagLimits) (T, *errors.AppError) {
	updated, err := store.MutateTags(ctx, orgID, id, func(existing models.Tags) (models.Tags, error) {
		merged, mergeErr := MergeTags(existing, incoming, limits)
		if mergeErr != nil {
			return nil, mergeErr
		}
		return merged, nil
	})
	if err != nil {
		var zero T
		return zero, toAppError("tag", orgID, 1, err)
	}
	return updated, nil
}

// Untag removes the named keys from one row's existing tags and persists
// the result.
func Untag[T models.Taggable](ctx context.Context, store tagStore[T], orgID, id ids.ID, keys []string) (T, *errors.AppError) {
	updated, err := store.MutateTags(ctx, orgID, id, func(existing models.Tags) (models.Tags, error) {
		return RemoveTags(existing, keys), nil
	})
	if err != nil {
		var zero T
		return zero, toAppError("untag", orgID, 1, err)
	}
	return updated, nil
}

// toAppError remaps a store-layer failure for the transport. Internal and
// unavailable errors are logged here, with enough context to find the
// failing call, and reach the client only as their short stable message.
func toAppError(op string, orgID ids.ID, idCount int, err error) *errors.AppError {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		appErr = errors.InternalServerErrorWrap(err)
	}
	if appErr.Code == errors.CodeInternalServerErr || appErr.Code == errors.CodeUnavailable {
		logger.Dispatch().Error().
			Str("op", op).
			Str("organization_id", orgID.String()).
			Int("id_count", idCount).
			Str("details", appErr.Details).
			Msg("resource request failed")
	}
	return appErr
}
