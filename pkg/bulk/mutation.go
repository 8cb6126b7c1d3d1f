package bulk

// Kind is the type of write intent carried by a Mutation.
type Kind uint8

const (
	// KindUpsert creates the document or replaces it in place.
	KindUpsert Kind = iota
	// KindDelete removes the document.
	KindDelete
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUpsert:
		return "upsert"
	case KindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Mutation is a single write or delete intent against the sink.
// The ID is derived by the caller from resource content; Payload is the
// serialized document and is nil for deletes. A Mutation is immutable once
// constructed.
type Mutation struct {
	ID      string
	Kind    Kind
	Payload []byte
}
