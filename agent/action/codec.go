package action

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	bookingx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/booking"
)

var ErrMalformedAction = errors.New("malformed action")

// MalformedActionError reports text that is not a valid TAG or TAG(arg) action.
type MalformedActionError struct {
	Text   string
	Reason string
}

func (e *MalformedActionError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrMalformedAction, e.Text, e.Reason)
}

func (e *MalformedActionError) Is(target error) bool {
	return target == ErrMalformedAction
}

func malformed(text, reason string) error {
	return &MalformedActionError{Text: text, Reason: reason}
}

func quote(s string) string {
	return strconv.Quote(s)
}

// Format encodes a as TAG, TAG(arg) or OFFER_SLOT_CARRYOVER(slot,value).
func Format(a Action) (string, error) {
	if err := a.Validate(); err != nil {
		return "", err
	}
	p, _ := a.Kind.payload()
	switch p {
	case payloadSlot:
		return string(a.Kind) + "(" + a.Slot + ")", nil
	case payloadSlotValue:
		return string(a.Kind) + "(" + a.Slot + "," + a.Value + ")", nil
	case payloadIntent:
		return string(a.Kind) + "(" + string(a.Intent) + ")", nil
	default:
		return string(a.Kind), nil
	}
}

// Parse is the inverse of Format. For OFFER_SLOT_CARRYOVER the value is
// everything between the first comma and the final ")", verbatim, so values
// may themselves contain commas and parentheses.
func Parse(text string) (Action, error) {
	tag, arg, hasArg := strings.Cut(text, "(")
	if hasArg {
		if !strings.HasSuffix(arg, ")") {
			return Action{}, malformed(text, "missing closing parenthesis")
		}
		arg = arg[:len(arg)-1]
	}

	kind := Kind(tag)
	p, ok := kind.payload()
	if !ok {
		return Action{}, malformed(text, "unknown action tag")
	}
	if hasArg != (p != payloadNone) {
		return Action{}, malformed(text, "wrong number of arguments")
	}

	var a Action
	switch p {
	case payloadNone:
		a = Action{Kind: kind}
	case payloadSlot:
		a = Action{Kind: kind, Slot: arg}
	case payloadSlotValue:
		slot, value, ok := strings.Cut(arg, ",")
		if !ok {
			return Action{}, malformed(text, "wrong number of arguments")
		}
		a = Action{Kind: kind, Slot: slot, Value: value}
	case payloadIntent:
		a = Action{Kind: kind, Intent: bookingx.Intent(arg)}
	}

	if err := a.Validate(); err != nil {
		var me *MalformedActionError
		if errors.As(err, &me) {
			me.Text = text
		}
		return Action{}, err
	}
	return a, nil
}

func (a Action) MarshalText() ([]byte, error) {
	text, err := Format(a)
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

func (a *Action) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
