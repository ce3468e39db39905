// Package nlu provides a scripted Understander that replays pre-recorded NLU
// results, one per user turn. It stands in for a model-backed NLU in the CLI
// and in tests.
package nlu

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"strings"
	"sync"

	"github.com/samber/lo"

	contractx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/contract"
	logx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/pkg/logger"
)

// Turn is one line of a script:
//
//	{"text": "fly me to Rome", "nlu": {"intent": "FLIGHT", "slots": {"destination": "Rome"}}}
type Turn struct {
	Text string                  `json:"text"`
	NLU  contractx.Understanding `json:"nlu"`
}

// LoadScript reads JSON lines. Blank lines and lines starting with # are
// skipped. Numbers are kept as json.Number so slot values survive as written.
func LoadScript(r io.Reader) ([]Turn, error) {
	var turns []Turn
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		dec.DisallowUnknownFields()
		var t Turn
		if err := dec.Decode(&t); err != nil {
			return nil, fmt.Errorf("script line %d: %w", line, err)
		}
		if strings.TrimSpace(t.Text) == "" {
			return nil, fmt.Errorf("script line %d: text is empty", line)
		}
		turns = append(turns, t)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return turns, nil
}

func LoadScriptFile(path string) ([]Turn, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()
	return LoadScript(f)
}

// Scripted implements contract.Understander by handing out turns in order.
type Scripted struct {
	mu    sync.Mutex
	turns []Turn
	next  int
}

func NewScripted(turns []Turn) *Scripted {
	return &Scripted{turns: append([]Turn(nil), turns...)}
}

// Texts returns the user utterances of the script, in order.
func (s *Scripted) Texts() []string {
	return lo.Map(s.turns, func(t Turn, _ int) string { return t.Text })
}

func (s *Scripted) Understand(ctx context.Context, req contractx.UnderstandRequest) (contractx.Understanding, error) {
	if err := ctx.Err(); err != nil {
		return contractx.Understanding{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.turns) {
		return contractx.Understanding{}, fmt.Errorf("%w: %w after %d turns", contractx.ErrUnderstand, contractx.ErrScriptExhausted, len(s.turns))
	}
	t := s.turns[s.next]
	s.next++

	if strings.TrimSpace(req.Text) != strings.TrimSpace(t.Text) {
		logx.Warn().
			Int("turn", s.next).
			Str("got", req.Text).
			Str("scripted", t.Text).
			Msg("utterance does not match script")
	}
	logx.Debug().
		Int("turn", s.next).
		Str("phase", req.Hint.Phase.String()).
		Str("intent", t.NLU.Intent).
		Msg("scripted understanding")

	out := t.NLU
	out.Slots = maps.Clone(t.NLU.Slots)
	if t.NLU.Affirm != nil {
		v := *t.NLU.Affirm
		out.Affirm = &v
	}
	return out, nil
}
