package orders

import (
	"encoding/base32"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// referenceEncoding drops the easily-confused characters 0/1/8/9 by using
// the base32 alphabet without padding.
var referenceEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewReference generates a human-readable order identifier such as
// ORD-260831-K7QP2MWXAB. The suffix comes from a fresh uuid, so collisions
// are vanishingly unlikely even for orders created in the same millisecond.
func NewReference(now time.Time) string {
	id := uuid.New()
	suffix := referenceEncoding.EncodeToString(id[:])[:10]
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("060102"), suffix)
}
