package vector

import (
	"fmt"
	"strings"
)

// EntityKind is the namespace of an entry in the vector index.
type EntityKind string

const (
	KindJob  EntityKind = "job"
	KindUser EntityKind = "user"
)

// Valid reports whether k is a known entity kind.
func (k EntityKind) Valid() bool {
	return k == KindJob || k == KindUser
}

// EntityRef identifies a job or user. Its String form is the only id written to the index.
type EntityRef struct {
	Kind EntityKind
	ID   string
}

// JobRef returns the reference of a job.
func JobRef(id string) EntityRef {
	return EntityRef{Kind: KindJob, ID: id}
}

// UserRef returns the reference of a user.
func UserRef(id string) EntityRef {
	return EntityRef{Kind: KindUser, ID: id}
}

// String returns the namespaced index id, "<kind>_<id>".
func (r EntityRef) String() string {
	return string(r.Kind) + "_" + r.ID
}

// ParseEntityRef parses a namespaced index id back into a reference.
func ParseEntityRef(indexID string) (EntityRef, error) {
	kind, id, ok := strings.Cut(indexID, "_")
	if !ok || id == "" {
		return EntityRef{}, fmt.Errorf("index id %q has no entity prefix", indexID)
	}
	ref := EntityRef{Kind: EntityKind(kind), ID: id}
	if !ref.Kind.Valid() {
		return EntityRef{}, fmt.Errorf("index id %q has unknown entity kind %q", indexID, kind)
	}
	return ref, nil
}
