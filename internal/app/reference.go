/**
 * @description
 * This file generates the human-facing payment reference and the unique
 * tracking key attached to every maintenance payment.
 *
 * The reference is what residents type into their bank transfer and is
 * intentionally short: house number, a code for the concepts being paid,
 * and a 3-digit discriminator. It is not unique and never used as a lookup
 * key. The tracking key is the opposite: an opaque identifier backed by a
 * unique index, generated here with enough random entropy that a collision
 * is practically impossible and recoverable with a single retry when it
 * does happen.
 */

package app

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
)

const base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// trackingKeyRandomLen is the number of random base36 characters appended to
// the timestamp tail. 36^8 keys per second makes collisions on the unique
// index vanishingly rare.
const trackingKeyRandomLen = 8

// ConceptFlags records which concept groups a breakdown includes, used to
// build the reference's middle segment.
type ConceptFlags struct {
	Maintenance bool // M: monthly maintenance, surcharge, or advance months
	Fines       bool // F: fines
	Agreements  bool // C: payment agreement installments
}

// FlagsForSelection derives the concept flags from a breakdown selection.
func FlagsForSelection(sel BreakdownSelection) ConceptFlags {
	return ConceptFlags{
		Maintenance: sel.Maintenance || sel.AdvanceMonths > 0,
		Fines:       len(sel.FineIDs) > 0,
		Agreements:  len(sel.AgreementIDs) > 0,
	}
}

// houseDigits extracts the unit fragment from a free-form house label.
var houseDigits = regexp.MustCompile(`\d+`)

// GenerateReference builds a bank transfer reference of the form
// "<unit>-<codes>-<nnn>", for example "42-MF-417". The unit is the first
// run of digits in the house label ("Calle 5 #42" yields "5"), or the last
// two characters when the label has no digits. The codes segment is ordered
// M, F, C and contains only the letters for selected concept groups; an
// empty selection still yields at least one letter because the caller
// rejects empty selections first.
func GenerateReference(houseNumber string, flags ConceptFlags) (string, error) {
	house := strings.TrimSpace(houseNumber)
	if house == "" {
		return "", fmt.Errorf("%w: house number is required", ErrValidation)
	}
	if digits := houseDigits.FindString(house); digits != "" {
		house = digits
	} else if len(house) > 2 {
		house = house[len(house)-2:]
	}

	var codes strings.Builder
	if flags.Maintenance {
		codes.WriteByte('M')
	}
	if flags.Fines {
		codes.WriteByte('F')
	}
	if flags.Agreements {
		codes.WriteByte('C')
	}
	if codes.Len() == 0 {
		return "", fmt.Errorf("%w: no payment concepts selected", ErrValidation)
	}

	// 100..999 keeps the discriminator fixed-width.
	n, err := rand.Int(rand.Reader, big.NewInt(900))
	if err != nil {
		return "", fmt.Errorf("failed to generate reference discriminator: %w", err)
	}

	return fmt.Sprintf("%s-%s-%03d", house, codes.String(), n.Int64()+100), nil
}

// GenerateTrackingKey builds an opaque payment identifier from the last six
// digits of the Unix millisecond clock plus random base36 characters. The
// store enforces uniqueness; callers retry once with a fresh key when the
// unique index fires.
func GenerateTrackingKey(now time.Time) (string, error) {
	millis := now.UnixMilli() % 1_000_000

	var random strings.Builder
	max := big.NewInt(int64(len(base36Alphabet)))
	for i := 0; i < trackingKeyRandomLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate tracking key: %w", err)
		}
		random.WriteByte(base36Alphabet[n.Int64()])
	}

	return fmt.Sprintf("%06d%s", millis, random.String()), nil
}
