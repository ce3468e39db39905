package booking

import (
	"encoding/json"

	"github.com/samber/lo"
)

// Booking holds the slot values collected for one intent.
// An unset slot is absent from the map; empty strings are never stored.
type Booking struct {
	Intent Intent
	slots  map[string]string
}

func NewBooking(intent Intent) *Booking {
	return &Booking{
		Intent: intent,
		slots:  make(map[string]string, 8),
	}
}

func (b *Booking) Get(slot string) (string, bool) {
	if b == nil {
		return "", false
	}
	v, ok := b.slots[slot]
	return v, ok
}

func (b *Booking) IsSet(slot string) bool {
	_, ok := b.Get(slot)
	return ok
}

// Populated reports whether at least one slot has a value.
func (b *Booking) Populated() bool {
	return b != nil && len(b.slots) > 0
}

// Values returns a copy of the filled slots.
func (b *Booking) Values() map[string]string {
	if b == nil {
		return map[string]string{}
	}
	return lo.Assign(b.slots)
}

// Set stores a value without schema checks. Conversation code goes through
// state.TripContext.SetSlot, which validates against the Schema.
func (b *Booking) Set(slot, value string) {
	if b.slots == nil {
		b.slots = make(map[string]string, 8)
	}
	b.slots[slot] = value
}

func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	return &Booking{
		Intent: b.Intent,
		slots:  lo.Assign(b.slots),
	}
}

type bookingJSON struct {
	Intent Intent            `json:"intent"`
	Slots  map[string]string `json:"slots,omitempty"`
}

func (b *Booking) MarshalJSON() ([]byte, error) {
	return json.Marshal(bookingJSON{Intent: b.Intent, Slots: b.slots})
}

func (b *Booking) UnmarshalJSON(data []byte) error {
	var raw bookingJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Intent = raw.Intent
	b.slots = make(map[string]string, len(raw.Slots))
	for k, v := range raw.Slots {
		if v != "" {
			b.slots[k] = v
		}
	}
	return nil
}
