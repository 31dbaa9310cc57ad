package lock

import (
	"fmt"
	"math"
)

// Namespace is the constant added to every discriminator so that lock numbers
// taken by this module do not collide with advisory locks of unrelated
// applications sharing the database.
type Namespace int64

// Number is the 64-bit key passed to pg_try_advisory_xact_lock.
type Number int64

const maxTagLen = 6

// DefaultNamespace packs "Flyway", the tag Flyway's own migration runners use,
// so xactlock and Flyway serialize against each other on the same database.
var DefaultNamespace = MustPackTag("Flyway")

// PackTag packs an ASCII tag into the high bytes of a Namespace. The first
// byte lands at bits 40..47 and every following byte eight bits lower, so a
// tag shorter than six bytes leaves the low bytes free for discriminators.
func PackTag(tag string) (Namespace, error) {
	if len(tag) == 0 || len(tag) > maxTagLen {
		return 0, fmt.Errorf("namespace tag %q must be 1 to %d bytes", tag, maxTagLen)
	}
	var ns int64
	for i := 0; i < len(tag); i++ {
		b := tag[i]
		if b == 0 || b > 0x7f {
			return 0, fmt.Errorf("namespace tag %q must be printable ASCII", tag)
		}
		ns += int64(b) << (40 - 8*i)
	}
	return Namespace(ns), nil
}

// MustPackTag is PackTag for package-level constants.
func MustPackTag(tag string) Namespace {
	ns, err := PackTag(tag)
	if err != nil {
		panic(err)
	}
	return ns
}

// NumberFor derives the lock number for a discriminator. Callers coordinate
// the discriminator space: the same logical lock must always use the same
// discriminator and different logical locks different ones.
func NumberFor(ns Namespace, discriminator int32) Number {
	return Number(int64(ns) + int64(discriminator))
}

// Discriminator reverses NumberFor. ok is false when n cannot have been
// derived from ns.
func (n Number) Discriminator(ns Namespace) (d int32, ok bool) {
	diff := int64(n) - int64(ns)
	if diff < math.MinInt32 || diff > math.MaxInt32 {
		return 0, false
	}
	return int32(diff), true
}

// AttemptResult is the outcome of a single try-lock round trip.
type AttemptResult int

const (
	Acquired AttemptResult = iota + 1
	NotAcquired
	Failed
)

func (r AttemptResult) String() string {
	switch r {
	case Acquired:
		return "acquired"
	case NotAcquired:
		return "not_acquired"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ConnState is captured once per invocation and consulted on release.
// TxPreexisting means the caller (or an enclosing coordinator) owns the open
// transaction, so the coordinator must neither commit nor roll it back.
type ConnState struct {
	PriorAutoCommit bool
	TxPreexisting   bool
}
