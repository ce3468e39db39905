package policy

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	bookingx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/booking"
	contractx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/contract"
	statex "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/state"
)

// confirmationSlot is the pseudo-slot some NLU prompts use for a yes/no answer.
const confirmationSlot = "confirmation"

var (
	affirmWords = []string{"yes", "y", "yeah", "yep", "sure", "ok", "okay", "correct", "right", "confirm", "true"}
	denyWords   = []string{"no", "n", "nope", "nah", "wrong", "change", "incorrect", "false"}
)

// Scope tells NormalizeInput which booking will receive a turn's slots.
type Scope struct {
	// Current is used when no intent is reported.
	Current *bookingx.Intent
	// Pending is the target of an open carryover offer; it takes every slot.
	Pending *bookingx.Intent
	// Asked is the current intent while its confirmation is asked; it takes
	// the slots of a yes or no answer.
	Asked *bookingx.Intent
}

// ScopeOf reads the open questions of tc.
func ScopeOf(tc *statex.TripContext) Scope {
	var s Scope
	if current, ok := tc.CurrentIntent(); ok {
		s.Current = &current
		if !tc.IsCompleted(current) && tc.Confirmation(current) == statex.ConfirmationAsked {
			s.Asked = &current
		}
	}
	if p, ok := tc.PendingCarryover(); ok {
		s.Pending = &p.Target
	}
	return s
}

// NormalizeInput validates a raw NLU result into an Input. Slot keys are
// restricted to the slots declared for the booking that receives them: an
// open question's booking, else the reported intent, else the current one.
// Unknown keys, empty values and non-scalar values are dropped and returned
// so the caller can log them.
func NormalizeInput(schema *bookingx.Schema, scope Scope, u contractx.Understanding) (Input, []string) {
	in := Input{
		OutOfDomain: u.OutOfDomain,
		Affirm:      u.Affirm,
		Slots:       make(map[string]string, len(u.Slots)),
	}
	var dropped []string

	if raw := strings.TrimSpace(u.Intent); raw != "" {
		if intent, err := bookingx.ParseIntent(raw); err == nil {
			in.Intent = &intent
		} else {
			dropped = append(dropped, "intent="+raw)
		}
	}

	if in.Affirm == nil {
		if raw, ok := u.Slots[confirmationSlot]; ok {
			in.Affirm = parseAffirm(raw)
		}
	}

	target := scope.Current
	switch {
	case scope.Pending != nil:
		target = scope.Pending
	case scope.Asked != nil && in.Affirm != nil:
		target = scope.Asked
	case in.Intent != nil:
		target = in.Intent
	}

	for _, key := range sortedKeys(u.Slots) {
		if key == confirmationSlot {
			continue
		}
		if target == nil || !schema.IsDeclared(*target, key) {
			dropped = append(dropped, key)
			continue
		}
		value, ok := slotString(u.Slots[key])
		if !ok {
			dropped = append(dropped, key)
			continue
		}
		if value == "" {
			continue
		}
		in.Slots[key] = value
	}
	return in, dropped
}

func sortedKeys(m map[string]any) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}

// slotString converts scalar JSON values to their string form. Booleans,
// objects and arrays are not slot values.
func slotString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return "", false
	}
}

func parseAffirm(v any) *bool {
	var word string
	switch t := v.(type) {
	case bool:
		return lo.ToPtr(t)
	case string:
		word = strings.ToLower(strings.TrimSpace(t))
	default:
		return nil
	}
	switch {
	case lo.Contains(affirmWords, word):
		return lo.ToPtr(true)
	case lo.Contains(denyWords, word):
		return lo.ToPtr(false)
	default:
		return nil
	}
}
