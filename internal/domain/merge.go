package domain

import "fmt"

// MergePolicy decides how conflicts and missing items are handled.
type MergePolicy string

const (
	// PolicyServerWins overwrites conflicting local entries and removes
	// non-default local entries missing from the server.
	PolicyServerWins MergePolicy = "server-wins"

	// PolicyManual records conflicts without applying them and removes nothing.
	PolicyManual MergePolicy = "manual"
)

// ParseMergePolicy validates a policy name. Blank selects server-wins.
func ParseMergePolicy(name string) (MergePolicy, error) {
	switch MergePolicy(name) {
	case "", PolicyServerWins:
		return PolicyServerWins, nil
	case PolicyManual:
		return PolicyManual, nil
	default:
		return "", NewValidationErrorWithValue("policy", fmt.Sprintf("unknown merge policy %q", name), name)
	}
}

// Resolution selects which side of a conflict to keep.
type Resolution string

const (
	KeepLocal  Resolution = "keep-local"
	KeepServer Resolution = "keep-server"
)

// ParseResolution validates a resolution name.
func ParseResolution(name string) (Resolution, error) {
	switch Resolution(name) {
	case KeepLocal, KeepServer:
		return Resolution(name), nil
	default:
		return "", NewValidationErrorWithValue("resolution", fmt.Sprintf("unknown resolution %q", name), name)
	}
}

// Conflict is an identity-matched pair whose text or category differ.
// LocalIndex refers to the position in the merged result.
type Conflict struct {
	Local      Quote `json:"local"`
	Server     Quote `json:"server"`
	LocalIndex int   `json:"localIndex"`
}

// Pick returns the quote selected by r.
func (c Conflict) Pick(r Resolution) Quote {
	if r == KeepServer {
		return c.Server
	}

	return c.Local
}

// MergeOptions configures Merge.
type MergeOptions struct {
	Policy MergePolicy

	// Match defaults to IdentityMatcher.
	Match Matcher

	// Protected reports quotes that must never be removed. Defaults to IsDefault.
	Protected func(Quote) bool
}

// MergeResult is the outcome of a merge.
type MergeResult struct {
	Quotes    []Quote
	Conflicts []Conflict
	Added     []Quote
	Removed   []Quote
}

// Merge reconciles local with a server snapshot. Neither input is modified.
//
// Each server quote is matched against the merged result at the lowest index.
// Unmatched server quotes are appended. A match with different text or category
// is a conflict and, under server-wins, is overwritten in place. Under server-wins,
// merged items with no server counterpart are removed unless protected.
func Merge(local, server []Quote, opts MergeOptions) MergeResult {
	if opts.Policy == "" {
		opts.Policy = PolicyServerWins
	}
	if opts.Match == nil {
		opts.Match = IdentityMatcher()
	}
	if opts.Protected == nil {
		opts.Protected = IsDefault
	}

	merged := make([]Quote, len(local), len(local)+len(server))
	copy(merged, local)

	var result MergeResult

	for _, raw := range server {
		s := raw.Normalize()

		idx := FindMatch(merged, s, opts.Match)
		if idx < 0 {
			merged = append(merged, s)
			result.Added = append(result.Added, s)

			continue
		}

		l := merged[idx]
		if !l.SameContent(s) {
			result.Conflicts = append(result.Conflicts, Conflict{Local: l, Server: s, LocalIndex: idx})
			if opts.Policy == PolicyServerWins {
				merged[idx] = s
			}

			continue
		}

		// Same content: adopt the server id so later syncs match on the id tier.
		if opts.Policy == PolicyServerWins && !l.HasID() && s.HasID() {
			merged[idx].ID = s.ID
		}
	}

	if opts.Policy != PolicyServerWins {
		result.Quotes = merged
		return result
	}

	kept := make([]Quote, 0, len(merged))
	shift := make([]int, len(merged))
	removed := 0

	for i, q := range merged {
		shift[i] = removed
		if opts.Protected(q) || FindMatch(server, q, normalizedMatcher(opts.Match)) >= 0 {
			kept = append(kept, q)
			continue
		}

		removed++
		result.Removed = append(result.Removed, q)
	}

	for i := range result.Conflicts {
		result.Conflicts[i].LocalIndex -= shift[result.Conflicts[i].LocalIndex]
	}

	result.Quotes = kept

	return result
}

// normalizedMatcher compares against normalized server items.
func normalizedMatcher(m Matcher) Matcher {
	return func(server, merged Quote) bool {
		return m(server.Normalize(), merged)
	}
}
