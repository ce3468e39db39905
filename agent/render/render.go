// Package render is a deterministic NLG fallback: one text/template per
// action tag, filled from the trip summary.
package render

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"text/template"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	actionx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/action"
	contractx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/contract"
	statex "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/state"
)

//go:embed replies.yaml
var defaultReplies []byte

var funcs = template.FuncMap{
	"humanize": func(v any) string {
		return strings.ReplaceAll(fmt.Sprint(v), "_", " ")
	},
	"lower": func(v any) string {
		return strings.ToLower(fmt.Sprint(v))
	},
}

// SlotValue is one filled slot, for ordered iteration in templates.
type SlotValue struct {
	Slot  string
	Value string
}

type replyData struct {
	Action  actionx.Action
	Summary statex.Summary
	Filled  []SlotValue
	Booking *contractx.BookingOutcome
}

// Renderer implements contract.Generator.
type Renderer struct {
	templates map[actionx.Kind]*template.Template
}

func NewRenderer() (*Renderer, error) {
	return ParseReplies(defaultReplies)
}

// ParseReplies builds a Renderer from YAML mapping action tags to templates.
// Every action kind must have a template.
func ParseReplies(data []byte) (*Renderer, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse replies: %w", err)
	}

	r := &Renderer{templates: make(map[actionx.Kind]*template.Template, len(raw))}
	for tag, text := range raw {
		kind := actionx.Kind(tag)
		if !kind.Valid() {
			return nil, fmt.Errorf("parse replies: unknown action tag %q", tag)
		}
		tmpl, err := template.New(tag).Funcs(funcs).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse reply %s: %w", tag, err)
		}
		r.templates[kind] = tmpl
	}
	for _, kind := range actionx.Kinds {
		if _, ok := r.templates[kind]; !ok {
			return nil, fmt.Errorf("parse replies: no template for %s", kind)
		}
	}
	return r, nil
}

func (r *Renderer) Generate(ctx context.Context, req contractx.GenerateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tmpl, ok := r.templates[req.Action.Kind]
	if !ok {
		return "", fmt.Errorf("%w: no template for action %q", contractx.ErrGenerate, req.Action.Kind)
	}

	keys := lo.Keys(req.Summary.Filled)
	slices.Sort(keys)
	data := replyData{
		Action:  req.Action,
		Summary: req.Summary,
		Booking: req.Booking,
		Filled: lo.Map(keys, func(k string, _ int) SlotValue {
			return SlotValue{Slot: k, Value: req.Summary.Filled[k]}
		}),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: render %s: %v", contractx.ErrGenerate, req.Action, err)
	}
	return strings.Join(strings.Fields(buf.String()), " "), nil
}
