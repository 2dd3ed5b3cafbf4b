package dispatcher

import (
	"github.com/scuffle-video/api/internal/errors"
)

// TagLimits bounds how many tags a row may carry and how large each key/value
// may be.
type TagLimits struct {
	MaxTagsPerRow int
	MaxKeyLen     int
	MaxValueLen   int
}

// MergeTags merges incoming into existing, returning the new tag map.
// Untagging is handled separately by RemoveTags; a key present in both simply
// takes the incoming value (last-write-wins within the merge) rather than a
// full clobber.
func MergeTags(existing map[string]string, incoming map[string]string, limits TagLimits) (map[string]string, *errors.AppError) {
	merged := make(map[string]string, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range incoming {
		if limits.MaxKeyLen > 0 && len(k) > limits.MaxKeyLen {
			return nil, errors.InvalidArgument("tag key exceeds maximum length")
		}
		if limits.MaxValueLen > 0 && len(v) > limits.MaxValueLen {
			return nil, errors.InvalidArgument("tag value exceeds maximum length")
		}
		merged[k] = v
	}
	if limits.MaxTagsPerRow > 0 && len(merged) > limits.MaxTagsPerRow {
		return nil, errors.InvalidArgument("tag count exceeds maximum allowed per resource")
	}
	return merged, nil
}

// RemoveTags removes the named keys from existing. Removing a key that is
// not present is not an error; Untag is idempotent.
func RemoveTags(existing map[string]string, keys []string) map[string]string {
	result := make(map[string]string, len(existing))
	remove := make(map[string]bool, len(keys))
	for _, k := range keys {
		remove[k] = true
	}
	for k, v := range existing {
		if !remove[k] {
			result[k] = v
		}
	}
	return result
}
