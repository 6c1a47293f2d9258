package syncplan

import (
	"sort"

	"github.com/arthur-debert/rioship/pkg/errors"
)

// Merge combines the plans of several artifacts of one target. Two uploads
// to the same remote path are an error. A deletion of a path another plan
// uploads is dropped.
func Merge(plans ...*SyncPlan) (*SyncPlan, error) {
	merged := &SyncPlan{Uploads: []Transfer{}, Deletes: []string{}}
	owners := make(map[string]string)

	for _, p := range plans {
		if p == nil {
			continue
		}
		merged.DeleteStale = merged.DeleteStale || p.DeleteStale
		for _, u := range p.Uploads {
			if prev, ok := owners[u.Remote]; ok {
				return nil, errors.Newf(errors.ErrInvalidInput, "%s is uploaded from both %s and %s", u.Remote, prev, u.Local).
					WithDetail("remote", u.Remote)
			}
			owners[u.Remote] = u.Local
			merged.Uploads = append(merged.Uploads, u)
		}
	}

	seen := make(map[string]bool)
	for _, p := range plans {
		if p == nil {
			continue
		}
		for _, d := range p.Deletes {
			if _, uploaded := owners[d]; uploaded || seen[d] {
				continue
			}
			seen[d] = true
			merged.Deletes = append(merged.Deletes, d)
		}
	}
	sort.Strings(merged.Deletes)
	return merged, nil
}
