// Package carryover finds slot values that can be reused when the
// conversation moves from one booking intent to another.
package carryover

import (
	bookingx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/booking"
)

// Candidate is a value that may be offered to the user for the target intent.
// Slot is the target-side slot name.
type Candidate struct {
	Source bookingx.Intent
	Target bookingx.Intent
	Slot   string
	Value  string
}

// Find walks the schema's carryover entries for from->to in declared order and
// returns the first one whose source slot is set and whose target slot is
// still empty. Only one candidate is ever returned.
func Find(schema *bookingx.Schema, from, to bookingx.Intent, fromBooking, toBooking *bookingx.Booking) (Candidate, bool) {
	if from == to {
		return Candidate{}, false
	}
	for _, pair := range schema.Carryover(from, to) {
		value, ok := fromBooking.Get(pair.From)
		if !ok {
			continue
		}
		if toBooking.IsSet(pair.To) {
			continue
		}
		return Candidate{Source: from, Target: to, Slot: pair.To, Value: value}, true
	}
	return Candidate{}, false
}

// Bookings gives read access to the booking of each intent.
type Bookings interface {
	GetBooking(intent bookingx.Intent) *bookingx.Booking
}

// FindAny tries every populated booking other than target as a source, in
// canonical intent order, and returns the first candidate found.
func FindAny(schema *bookingx.Schema, bookings Bookings, target bookingx.Intent) (Candidate, bool) {
	toBooking := bookings.GetBooking(target)
	for _, source := range bookingx.Intents {
		if source == target {
			continue
		}
		fromBooking := bookings.GetBooking(source)
		if !fromBooking.Populated() {
			continue
		}
		if c, ok := Find(schema, source, target, fromBooking, toBooking); ok {
			return c, true
		}
	}
	return Candidate{}, false
}
