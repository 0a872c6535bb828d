package value

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Node is a sealed interface over the value model.
// Only the types declared in this file implement it.
type Node interface {
	node() // Sealed - only these types implement it
}

// Kind identifies which member of the value model a Node is.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
	KindBytes
	KindTimestamp
	KindDuration
	KindUniqueID
	KindSequence
	KindTuple
	KindUniqueSet
	KindMapping
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindTimestamp:
		return "timestamp"
	case KindDuration:
		return "duration"
	case KindUniqueID:
		return "uuid"
	case KindSequence:
		return "list"
	case KindTuple:
		return "tuple"
	case KindUniqueSet:
		return "set"
	case KindMapping:
		return "map"
	case KindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Wire tags written into the "_type" field of non-primitive nodes.
// These are protocol constants shared with every other implementation.
const (
	TagTimestamp = "timestamp"
	TagDuration  = "duration"
	TagBytes     = "bytes"
	TagUniqueID  = "uuid"
	TagList      = "list"
	TagTuple     = "tuple"
	TagSet       = "set"
	TagMap       = "map"
)

// Reserved object keys of the wire form.
const (
	keyType      = "_type"
	keyNamespace = "_namespace"
	keyValue     = "value"
)

// Null represents the absence of a value.
type Null struct{}

// Bool is a boolean.
type Bool bool

// Int is an integer that fits in int64.
type Int int64

// BigInt is an integer outside the int64 range.
// Its Int field is never nil for nodes produced by this package.
type BigInt struct {
	Int *big.Int
}

// Float is a finite 64-bit float.
type Float float64

// Text is a UTF-8 string.
type Text string

// Bytes is a binary blob, written as lowercase hex.
type Bytes []byte

// Timestamp is an instant with its UTC offset.
type Timestamp struct {
	Time time.Time
}

// Duration is a signed span, written as float seconds.
type Duration time.Duration

// UniqueID is a 128-bit identifier.
type UniqueID uuid.UUID

// List is an ordered, variable-length sequence.
type List []Node

// Tuple is an ordered, fixed-arity sequence.
type Tuple []Node

// Set is an unordered collection. Marshal deduplicates it and writes the
// elements in canonical order, so element order here carries no meaning.
type Set []Node

// Pair is one key/value entry of a Map.
type Pair struct {
	Key   Node
	Value Node
}

// Map is an ordered sequence of key/value pairs. Keys may be any Node.
type Map []Pair

// Record is an instance of a registered user-defined type.
type Record struct {
	Name      string
	Namespace string
	Fields    map[string]Node
}

func (Null) node()      {}
func (Bool) node()      {}
func (Int) node()       {}
func (BigInt) node()    {}
func (Float) node()     {}
func (Text) node()      {}
func (Bytes) node()     {}
func (Timestamp) node() {}
func (Duration) node()  {}
func (UniqueID) node()  {}
func (List) node()      {}
func (Tuple) node()     {}
func (Set) node()       {}
func (Map) node()       {}
func (Record) node()    {}

// KindOf returns the kind of n. A nil Node is reported as KindNull.
func KindOf(n Node) Kind {
	switch n.(type) {
	case nil, Null:
		return KindNull
	case Bool:
		return KindBool
	case Int, BigInt:
		return KindInt
	case Float:
		return KindFloat
	case Text:
		return KindText
	case Bytes:
		return KindBytes
	case Timestamp:
		return KindTimestamp
	case Duration:
		return KindDuration
	case UniqueID:
		return KindUniqueID
	case List:
		return KindSequence
	case Tuple:
		return KindTuple
	case Set:
		return KindUniqueSet
	case Map:
		return KindMapping
	case Record:
		return KindRecord
	default:
		return KindNull
	}
}
