package docstore

import (
	"context"
	"encoding/base64"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

// Document is a schemaless record as stored in a collection. Reads return the
// stored fields plus an "id" field carrying the document identifier.
type Document = map[string]interface{}

// ErrNotFound is returned when a document id does not exist.
var ErrNotFound = errors.New("document not found")

// FilterOp is a query comparison operator.
type FilterOp string

const (
	OpEq            FilterOp = "=="
	OpLt            FilterOp = "<"
	OpLte           FilterOp = "<="
	OpGt            FilterOp = ">"
	OpGte           FilterOp = ">="
	OpArrayContains FilterOp = "array-contains"
)

// Filter is a single field comparison.
type Filter struct {
	Field string
	Op    FilterOp
	Value interface{}
}

// Options control a Query call. StartAfter is an opaque cursor produced by a
// previous Query; when present the page resumes strictly after that document.
type Options struct {
	Filters    []Filter
	OrderBy    string
	Desc       bool
	Limit      int
	StartAfter string
}

// WriteKind enumerates batch-write operations.
type WriteKind int

const (
	WriteSet WriteKind = iota
	WriteUpdate
	WriteDelete
)

// WriteOp is one element of a batch write.
type WriteOp struct {
	Kind WriteKind
	ID   string
	Doc  Document
}

// Collection is the document-store surface used by the services. Both the
// Mongo-backed and the in-memory implementation satisfy it.
type Collection interface {
	Get(ctx context.Context, id string) (Document, error)
	Create(ctx context.Context, doc Document) (string, error)
	Set(ctx context.Context, id string, doc Document) error
	Update(ctx context.Context, id string, fields Document) error
	Delete(ctx context.Context, id string) error
	// Query returns a page of documents and the cursor for the next page
	// (empty when no more results exist).
	Query(ctx context.Context, opts Options) ([]Document, string, error)
	Count(ctx context.Context, filters []Filter) (int64, error)
	BatchWrite(ctx context.Context, ops []WriteOp) error
	RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Encode converts a struct into a Document via its bson tags.
func Encode(v interface{}) (Document, error) {
	b, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var d Document
	if err := bson.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	return d, nil
}

// Decode fills a struct from a Document via its bson tags.
func Decode(d Document, v interface{}) error {
	b, err := bson.Marshal(d)
	if err != nil {
		return err
	}
	return bson.Unmarshal(b, v)
}

// EncodeCursor wraps a document id into an opaque page token.
func EncodeCursor(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

// DecodeCursor unwraps an opaque page token; empty tokens are valid and mean
// "start from the beginning".
func DecodeCursor(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
