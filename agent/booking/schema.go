package booking

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

var ErrInvalidSchema = errors.New("invalid booking schema")

//go:embed schema.yaml
var defaultSchemaRaw []byte

var slotNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidSlotName reports whether name is a well-formed slot identifier.
func ValidSlotName(name string) bool {
	return slotNamePattern.MatchString(name)
}

// SchemaFile is the YAML shape of the declared configuration.
type SchemaFile struct {
	Slots     map[string]SlotDef `yaml:"slots"`
	Intents   []IntentDef        `yaml:"intents"`
	Carryover []CarryoverRule    `yaml:"carryover"`
}

type SlotDef struct {
	Meaning string `yaml:"meaning"`
}

type IntentDef struct {
	Name     string   `yaml:"name"`
	Required []string `yaml:"required"`
	Optional []string `yaml:"optional"`
}

type CarryoverRule struct {
	From  string     `yaml:"from"`
	To    string     `yaml:"to"`
	Slots []SlotPair `yaml:"slots"`
}

// SlotPair maps a source-intent slot onto the equivalent target-intent slot.
type SlotPair struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type intentSpec struct {
	required []string
	declared []string
}

type intentPair struct {
	from Intent
	to   Intent
}

// Schema is the compiled, read-only slot declaration: required slots per
// intent and the CarryoverMap. Build it once at start-up and share it.
type Schema struct {
	meanings  map[string]string
	intents   map[Intent]intentSpec
	carryover map[intentPair][]SlotPair
}

// DefaultSchema returns the embedded schema. It panics if the embedded file
// is invalid, which only a broken build can cause.
func DefaultSchema() *Schema {
	s, err := ParseSchema(defaultSchemaRaw)
	if err != nil {
		panic(err)
	}
	return s
}

// LoadSchema reads a schema file, or returns the embedded default when path
// is empty.
func LoadSchema(path string) (*Schema, error) {
	if path == "" {
		return ParseSchema(defaultSchemaRaw)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %q: %w", path, err)
	}
	s, err := ParseSchema(data)
	if err != nil {
		return nil, fmt.Errorf("load schema %q: %w", path, err)
	}
	return s, nil
}

func ParseSchema(data []byte) (*Schema, error) {
	var file SchemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parse YAML: %v", ErrInvalidSchema, err)
	}
	return Compile(file)
}

// Compile validates a SchemaFile and builds the lookup tables.
func Compile(file SchemaFile) (*Schema, error) {
	s := &Schema{
		meanings:  make(map[string]string, len(file.Slots)),
		intents:   make(map[Intent]intentSpec, len(Intents)),
		carryover: make(map[intentPair][]SlotPair),
	}

	for name, def := range file.Slots {
		if !ValidSlotName(name) {
			return nil, fmt.Errorf("%w: slot name %q", ErrInvalidSchema, name)
		}
		if def.Meaning == "" {
			return nil, fmt.Errorf("%w: slot %q has no meaning", ErrInvalidSchema, name)
		}
		s.meanings[name] = def.Meaning
	}

	for _, def := range file.Intents {
		intent, err := ParseIntent(def.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
		}
		if _, dup := s.intents[intent]; dup {
			return nil, fmt.Errorf("%w: intent %s declared twice", ErrInvalidSchema, intent)
		}
		if len(def.Required) == 0 {
			return nil, fmt.Errorf("%w: intent %s has no required slots", ErrInvalidSchema, intent)
		}
		declared := append(append([]string{}, def.Required...), def.Optional...)
		if dups := lo.FindDuplicates(declared); len(dups) > 0 {
			return nil, fmt.Errorf("%w: intent %s repeats slots %v", ErrInvalidSchema, intent, dups)
		}
		for _, slot := range declared {
			if _, ok := s.meanings[slot]; !ok {
				return nil, fmt.Errorf("%w: intent %s uses undeclared slot %q", ErrInvalidSchema, intent, slot)
			}
		}
		s.intents[intent] = intentSpec{
			required: append([]string{}, def.Required...),
			declared: declared,
		}
	}
	for _, intent := range Intents {
		if _, ok := s.intents[intent]; !ok {
			return nil, fmt.Errorf("%w: intent %s is not declared", ErrInvalidSchema, intent)
		}
	}

	for _, rule := range file.Carryover {
		if err := s.addCarryover(rule); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Schema) addCarryover(rule CarryoverRule) error {
	from, err := ParseIntent(rule.From)
	if err != nil {
		return fmt.Errorf("%w: carryover: %v", ErrInvalidSchema, err)
	}
	to, err := ParseIntent(rule.To)
	if err != nil {
		return fmt.Errorf("%w: carryover: %v", ErrInvalidSchema, err)
	}
	if from == to {
		return fmt.Errorf("%w: carryover %s->%s targets its own intent", ErrInvalidSchema, from, to)
	}

	key := intentPair{from: from, to: to}
	for _, pair := range rule.Slots {
		if !s.IsDeclared(from, pair.From) {
			return fmt.Errorf("%w: carryover %s->%s: %q is not a %s slot", ErrInvalidSchema, from, to, pair.From, from)
		}
		if !s.IsDeclared(to, pair.To) {
			return fmt.Errorf("%w: carryover %s->%s: %q is not a %s slot", ErrInvalidSchema, from, to, pair.To, to)
		}
		if s.meanings[pair.From] != s.meanings[pair.To] {
			return fmt.Errorf("%w: carryover %s.%s->%s.%s joins %q with %q",
				ErrInvalidSchema, from, pair.From, to, pair.To, s.meanings[pair.From], s.meanings[pair.To])
		}
		if lo.ContainsBy(s.carryover[key], func(p SlotPair) bool { return p.From == pair.From || p.To == pair.To }) {
			return fmt.Errorf("%w: carryover %s->%s repeats slot %q", ErrInvalidSchema, from, to, pair.From)
		}
		s.carryover[key] = append(s.carryover[key], pair)
	}
	return nil
}

// Required returns the required slots of intent in declared order.
func (s *Schema) Required(intent Intent) []string {
	return append([]string{}, s.intents[intent].required...)
}

// Declared returns required followed by optional slots.
func (s *Schema) Declared(intent Intent) []string {
	return append([]string{}, s.intents[intent].declared...)
}

func (s *Schema) IsDeclared(intent Intent, slot string) bool {
	return lo.Contains(s.intents[intent].declared, slot)
}

func (s *Schema) IsRequired(intent Intent, slot string) bool {
	return lo.Contains(s.intents[intent].required, slot)
}

// Meaning returns the semantic label of slot, or "" for unknown slots.
func (s *Schema) Meaning(slot string) string {
	return s.meanings[slot]
}

// Carryover returns the CarryoverMap entries for from->to in priority order.
func (s *Schema) Carryover(from, to Intent) []SlotPair {
	return append([]SlotPair{}, s.carryover[intentPair{from: from, to: to}]...)
}
