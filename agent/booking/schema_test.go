package booking

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDefaultSchemaRequiredOrder(t *testing.T) {
	t.Parallel()

	s := DefaultSchema()
	got := s.Required(IntentActivity)
	want := []string{"destination", "activity_category", "budget_level"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Required(ACTIVITY) = %v, want %v", got, want)
	}
	if !s.IsDeclared(IntentFlight, "return_date") {
		t.Fatalf("return_date should be declared for FLIGHT")
	}
	if s.IsRequired(IntentFlight, "return_date") {
		t.Fatalf("return_date should be optional for FLIGHT")
	}
	if s.IsDeclared(IntentActivity, "origin") {
		t.Fatalf("origin should not be declared for ACTIVITY")
	}
}

func TestDefaultSchemaCarryoverOrder(t *testing.T) {
	t.Parallel()

	got := DefaultSchema().Carryover(IntentFlight, IntentAccommodation)
	want := []SlotPair{
		{From: "destination", To: "destination"},
		{From: "num_passengers", To: "num_guests"},
		{From: "budget_level", To: "budget_level"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Carryover(FLIGHT, ACCOMMODATION) = %v, want %v", got, want)
	}
	if pairs := DefaultSchema().Carryover(IntentFlight, IntentFlight); len(pairs) != 0 {
		t.Fatalf("Carryover(FLIGHT, FLIGHT) = %v, want empty", pairs)
	}
}

func TestSchemaRequiredReturnsCopy(t *testing.T) {
	t.Parallel()

	s := DefaultSchema()
	got := s.Required(IntentFlight)
	got[0] = "mutated"
	if s.Required(IntentFlight)[0] != "origin" {
		t.Fatalf("Required() leaked internal slice")
	}
}

func TestParseSchemaRejectsInvalid(t *testing.T) {
	t.Parallel()

	const base = `
slots:
  destination: { meaning: trip.destination }
  origin: { meaning: flight.origin }
  city: { meaning: activity.city }
  party: { meaning: party.size }
intents:
  - name: FLIGHT
    required: [origin, destination]
  - name: ACCOMMODATION
    required: [destination, party]
  - name: ACTIVITY
    required: [city]
`

	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{
			name: "different meanings",
			yaml: base + `
carryover:
  - from: FLIGHT
    to: ACTIVITY
    slots:
      - { from: destination, to: city }
`,
			wantMsg: "joins",
		},
		{
			name: "same intent",
			yaml: base + `
carryover:
  - from: FLIGHT
    to: FLIGHT
    slots:
      - { from: destination, to: destination }
`,
			wantMsg: "its own intent",
		},
		{
			name: "slot not declared on source",
			yaml: base + `
carryover:
  - from: ACTIVITY
    to: FLIGHT
    slots:
      - { from: destination, to: destination }
`,
			wantMsg: "is not a ACTIVITY slot",
		},
		{
			name: "duplicate entry",
			yaml: base + `
carryover:
  - from: FLIGHT
    to: ACCOMMODATION
    slots:
      - { from: destination, to: destination }
      - { from: destination, to: destination }
`,
			wantMsg: "repeats slot",
		},
		{
			name: "unknown intent",
			yaml: base + `
carryover:
  - from: CRUISE
    to: FLIGHT
`,
			wantMsg: "CRUISE",
		},
		{
			name: "missing intent",
			yaml: `
slots:
  destination: { meaning: trip.destination }
intents:
  - name: FLIGHT
    required: [destination]
`,
			wantMsg: "ACCOMMODATION is not declared",
		},
		{
			name: "undeclared slot",
			yaml: `
slots:
  destination: { meaning: trip.destination }
intents:
  - name: FLIGHT
    required: [destination, origin]
  - name: ACCOMMODATION
    required: [destination]
  - name: ACTIVITY
    required: [destination]
`,
			wantMsg: `undeclared slot "origin"`,
		},
		{
			name: "bad slot name",
			yaml: `
slots:
  Destination: { meaning: trip.destination }
`,
			wantMsg: "slot name",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseSchema([]byte(tt.yaml))
			if !errors.Is(err, ErrInvalidSchema) {
				t.Fatalf("ParseSchema() error = %v, want ErrInvalidSchema", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("ParseSchema() error = %q, want substring %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoadSchemaFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "schema.yaml")
	if err := os.WriteFile(path, defaultSchemaRaw, 0o600); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	s, err := LoadSchema(path)
	if err != nil {
		t.Fatalf("LoadSchema() error = %v", err)
	}
	if s.Meaning("num_guests") != "party.size" {
		t.Fatalf("Meaning(num_guests) = %q, want party.size", s.Meaning("num_guests"))
	}

	if _, err := LoadSchema(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("LoadSchema(missing) error = nil, want error")
	}
}

func TestParseIntent(t *testing.T) {
	t.Parallel()

	tests := map[string]Intent{
		"FLIGHT":             IntentFlight,
		" book_activity ":    IntentActivity,
		"BOOK_ACCOMMODATION": IntentAccommodation,
	}
	for raw, want := range tests {
		got, err := ParseIntent(raw)
		if err != nil || got != want {
			t.Fatalf("ParseIntent(%q) = %q, %v, want %q", raw, got, err, want)
		}
	}
	if _, err := ParseIntent("HOTEL"); !errors.Is(err, ErrUnknownIntent) {
		t.Fatalf("ParseIntent(HOTEL) error = %v, want ErrUnknownIntent", err)
	}
}
