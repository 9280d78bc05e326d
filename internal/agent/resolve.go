package agent

import "strings"

// Candidate is a lightweight task projection borrowed from the task store
// for the duration of one resolution.
type Candidate struct {
	ID          string
	Title       string
	IsCompleted bool
}

// ShortID returns the 8-character display form of the candidate's ID.
func (c Candidate) ShortID() string {
	if len(c.ID) > 8 {
		return c.ID[:8]
	}
	return c.ID
}

// Resolve matches a user-supplied reference against the candidate set using
// three tiers, each short-circuiting when it finds results:
//
//  1. ID prefix: the reference equals the first 8 characters of an ID, or
//     the full ID. Authoritative, never ambiguous.
//  2. Exact title, case-insensitive.
//  3. Substring in either direction ("delete milk" matches "buy milk", and
//     the reverse). All such candidates are returned.
//
// The result may be empty, a singleton, or multiple candidates; prompting
// the user to disambiguate is the dialogue composer's job.
func Resolve(reference string, candidates []Candidate) []Candidate {
	ref := strings.ToLower(strings.TrimSpace(reference))
	if ref == "" || len(candidates) == 0 {
		return nil
	}

	for _, c := range candidates {
		id := strings.ToLower(c.ID)
		short := id
		if len(short) > 8 {
			short = short[:8]
		}
		if ref == short || ref == id {
			return []Candidate{c}
		}
	}

	for _, c := range candidates {
		if strings.ToLower(c.Title) == ref {
			return []Candidate{c}
		}
	}

	var matches []Candidate
	for _, c := range candidates {
		title := strings.ToLower(c.Title)
		if strings.Contains(title, ref) || strings.Contains(ref, title) {
			matches = append(matches, c)
		}
	}
	return matches
}
