package collection

import (
	"fmt"

	"github.com/roach88/lazyset/internal/ir"
	"github.com/roach88/lazyset/internal/model"
)

// Verdict is the outcome of a compatibility check.
type Verdict int

const (
	// Incompatible: the candidate's class differs from the collection's.
	Incompatible Verdict = iota
	// NoIdentity: the candidate was never persisted.
	NoIdentity
	// Compatible: the candidate may be a member; Key holds its identity.
	Compatible
)

func (v Verdict) String() string {
	switch v {
	case Incompatible:
		return "incompatible"
	case NoIdentity:
		return "no_identity"
	case Compatible:
		return "compatible"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// Compatibility is the result of CheckCompatible.
type Compatibility struct {
	Verdict       Verdict
	CandidateType string
	Key           ir.IRValue // set only for Compatible
}

// CheckCompatible classifies candidate against a collection over
// collectionType. It never touches the store.
//
// A candidate that does not implement model.Entity, is a nil entity, has an
// unregistered entity type, or carries a key that is not a scalar of the
// type's key kind fails with an invalid candidate error. Everything else
// is a valid verdict.
func CheckCompatible(reg *model.Registry, collectionType string, candidate any) (Compatibility, error) {
	entity, ok := candidate.(model.Entity)
	if !ok || isNilRecord(entity) {
		return Compatibility{}, invalidCandidate(fmt.Sprintf("%T", candidate), "candidate is not an entity")
	}

	typeName := entity.EntityType()
	t, registered := reg.Lookup(typeName)
	if !registered {
		return Compatibility{}, invalidCandidate(typeName, "candidate entity type is not registered")
	}

	result := Compatibility{CandidateType: typeName}
	if !reg.Compatible(collectionType, typeName) {
		result.Verdict = Incompatible
		return result, nil
	}

	key, persisted := entity.IdentityKey()
	if !persisted {
		result.Verdict = NoIdentity
		return result, nil
	}

	switch key.(type) {
	case ir.IRString, ir.IRInt, ir.IRBool:
	default:
		return Compatibility{}, invalidCandidate(typeName, fmt.Sprintf("identity key %T is not a scalar", key))
	}
	if !t.KeyKind.Accepts(key) {
		return Compatibility{}, invalidCandidate(typeName, fmt.Sprintf("identity key %v does not match key kind %s", key, t.KeyKind))
	}

	result.Verdict = Compatible
	result.Key = key
	return result, nil
}

// isNilRecord catches a typed nil *model.Record stored in the interface.
func isNilRecord(e model.Entity) bool {
	r, ok := e.(*model.Record)
	return ok && r == nil
}
