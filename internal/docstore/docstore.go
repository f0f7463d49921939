// Package docstore pins property deed documents to external content-addressed
// storage. The ledger only holds the returned reference; document bytes never
// enter the transaction log.
package docstore

import (
	"context"
	"io"
)

// Pinned describes a stored document.
type Pinned struct {
	Ref  string // content-addressed reference, suitable for Property.DocumentRef
	Size int64
	URL  string // gateway URL for retrieval
}

// Store pins document content and resolves references to retrieval URLs.
type Store interface {
	Put(ctx context.Context, name string, content io.Reader) (*Pinned, error)
	ResolveURL(ref string) string
}
