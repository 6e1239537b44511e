package tokenstore

import "context"

// Store reads and writes the CLI's credential record.
//
// Load returns (nil, nil) when no usable record exists; only genuine I/O
// failures on write paths are surfaced as errors.
type Store interface {
	// Load returns the stored credentials, or nil if the record is missing
	// or unparseable.
	Load(ctx context.Context) (*Credentials, error)

	// Save persists the record, overwriting any previous one wholesale.
	Save(ctx context.Context, creds *Credentials) error

	// Clear deletes the record. Clearing an absent record is not an error.
	Clear(ctx context.Context) error
}
