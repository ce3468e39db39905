package booking

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownIntent = errors.New("unknown booking intent")

// Intent is the booking category currently being discussed.
type Intent string

const (
	IntentFlight        Intent = "FLIGHT"
	IntentAccommodation Intent = "ACCOMMODATION"
	IntentActivity      Intent = "ACTIVITY"
)

// Intents lists every booking intent in canonical order.
// Carryover sources and summaries are iterated in this order.
var Intents = []Intent{IntentFlight, IntentAccommodation, IntentActivity}

func (i Intent) String() string {
	return string(i)
}

func (i Intent) Valid() bool {
	switch i {
	case IntentFlight, IntentAccommodation, IntentActivity:
		return true
	default:
		return false
	}
}

// ParseIntent accepts canonical names and the BOOK_ prefixed aliases NLU
// models tend to emit (BOOK_FLIGHT, book_activity, ...).
func ParseIntent(raw string) (Intent, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	name = strings.TrimPrefix(name, "BOOK_")
	intent := Intent(name)
	if !intent.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownIntent, raw)
	}
	return intent, nil
}
