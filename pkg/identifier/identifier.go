// Package identifier implements the dual numeric/string identity used to
// address users, streams and topics, and the resource namespace hash used
// for shard placement.
package identifier

import (
	"strconv"

	"github.com/hadoop835/iggy/pkg/apperror"
)

// Kind distinguishes the two representations an Identifier can hold.
type Kind int

const (
	// KindNumeric means the Identifier holds a u32 id.
	KindNumeric Kind = iota
	// KindString means the Identifier holds a name.
	KindString
)

// MaxStringLength bounds the string form of an Identifier.
const MaxStringLength = 255

// Identifier is a tagged variant over a numeric id or a string name. It never
// exposes which representation it holds except through Kind()/AsU32()/AsString(),
// so callers of the engine can't accidentally branch on representation instead
// of identity.
type Identifier struct {
	kind   Kind
	number uint32
	name   string
}

// Numeric constructs a numeric Identifier.
func Numeric(id uint32) Identifier {
	return Identifier{kind: KindNumeric, number: id}
}

// Named constructs a string Identifier. The name is not normalized here —
// normalization (lowercasing) is a concern of the caller's domain (e.g. the
// user registry lowercases usernames before building an Identifier).
func Named(name string) (Identifier, error) {
	if name == "" || len(name) > MaxStringLength {
		return Identifier{}, apperror.Newf(apperror.KindInvalidIdentifier, "identifier name length must be in [1,%d]", MaxStringLength)
	}
	return Identifier{kind: KindString, name: name}, nil
}

// Kind reports which representation this Identifier holds.
func (id Identifier) Kind() Kind {
	return id.kind
}

// AsU32 returns the numeric value, failing with InvalidIdentifier if this
// Identifier is a string.
func (id Identifier) AsU32() (uint32, error) {
	if id.kind != KindNumeric {
		return 0, apperror.New(apperror.KindInvalidIdentifier, "identifier is not numeric")
	}
	return id.number, nil
}

// AsString returns the string value, failing with InvalidIdentifier if this
// Identifier is numeric.
func (id Identifier) AsString() (string, error) {
	if id.kind != KindString {
		return "", apperror.New(apperror.KindInvalidIdentifier, "identifier is not a string")
	}
	return id.name, nil
}

// String renders the Identifier for logging, regardless of kind.
func (id Identifier) String() string {
	switch id.kind {
	case KindNumeric:
		return strconv.FormatUint(uint64(id.number), 10)
	default:
		return id.name
	}
}
