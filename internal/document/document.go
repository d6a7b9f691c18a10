// Package document persists uploaded files as opaque blobs. The verification
// engine stores only the returned reference and never inspects file contents.
package document

import "context"

// Ref is an opaque handle to stored blob content. Callers must not parse it.
type Ref string

func (r Ref) String() string { return string(r) }

// Store is the blob persistence contract. Put must make the blob durable
// before returning: submission records are only created after Put succeeds,
// so a crash between the two leaves at worst an orphaned blob, never a
// record pointing at nothing.
type Store interface {
	Put(ctx context.Context, data []byte) (Ref, error)
	Get(ctx context.Context, ref Ref) ([]byte, error)
}
