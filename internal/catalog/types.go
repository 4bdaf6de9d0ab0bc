// Package catalog provides a client for remote CKAN-style catalog APIs:
// dataset search, spatial dataset search and group/organization lookup.
package catalog

import "fmt"

// SearchError represents a protocol-level failure of the search family:
// transport failure reaching the endpoint, a response that is not JSON, a
// missing envelope, or a pager that stopped advancing.
type SearchError struct {
	Reason string
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("remote search error: %s", e.Reason)
}

// RemoteResourceError represents a failed group or organization lookup:
// the resource could not be fetched or its payload could not be decoded.
type RemoteResourceError struct {
	Resource string
	Reason   string
}

func (e *RemoteResourceError) Error() string {
	return fmt.Sprintf("could not fetch/decode remote %s: %s", e.Resource, e.Reason)
}
