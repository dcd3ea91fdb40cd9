// Package publish pushes rendered calendar documents to a public host so
// calendar clients can subscribe to them.
package publish

import "context"

// Result describes where a published document can be fetched.
type Result struct {
	// RawURL serves the latest revision of the document over HTTPS.
	RawURL string `json:"raw_url"`
	// WebcalURL is RawURL with the webcal scheme, for one-click
	// subscription in calendar clients.
	WebcalURL string `json:"webcal_url"`
	// Skipped reports that the document matched the last successful
	// publish and no upload was made.
	Skipped bool `json:"skipped,omitempty"`
}

// Publisher uploads a calendar document to its public location.
type Publisher interface {
	Publish(ctx context.Context, document string) (*Result, error)
}
