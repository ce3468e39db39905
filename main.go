package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/agents/orchestrator"
	bookingx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/booking"
	"github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/nlu"
	"github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/policy"
	"github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/render"
	statex "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/state"
	configx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/pkg/config"
	logx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/pkg/logger"
	_ "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/pkg/logger/autoload"
)

type AppConfig struct {
	SchemaPath               string        `envconfig:"SCHEMA_PATH"`
	ScriptPath               string        `envconfig:"SCRIPT_PATH"`
	SessionTTL               time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	SessionKeyPrefix         string        `envconfig:"SESSION_KEY_PREFIX" default:"trip:session:"`
	SessionCleanupInterval   time.Duration `envconfig:"SESSION_CLEANUP_INTERVAL" default:"5m"`
	MaxHistory               int           `envconfig:"MAX_HISTORY" default:"20"`
	ReconfirmAfterCorrection bool          `envconfig:"RECONFIRM_AFTER_CORRECTION" default:"false"`
}

// flags must exist before configx parses the command line
var (
	scriptFlag  = flag.String("script", "", "JSON lines transcript to replay (overrides TRIP_SCRIPT_PATH)")
	sessionFlag = flag.String("session", "", "conversation id, random when empty")
)

func main() {
	appCfg := configx.MustNew[AppConfig]("TRIP")

	// the .env file is only exported now, after autoload ran
	logCfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *appCfg, os.Stdout); err != nil {
		logx.Fatal().Err(err).Msg("trip booking dialogue failed")
	}
}

func run(ctx context.Context, cfg AppConfig, out io.Writer) error {
	scriptPath := strings.TrimSpace(*scriptFlag)
	if scriptPath == "" {
		scriptPath = strings.TrimSpace(cfg.ScriptPath)
	}
	if scriptPath == "" {
		return errors.New("no transcript: pass -script or set TRIP_SCRIPT_PATH")
	}

	schema, err := bookingx.LoadSchema(strings.TrimSpace(cfg.SchemaPath))
	if err != nil {
		return err
	}
	turns, err := nlu.LoadScriptFile(scriptPath)
	if err != nil {
		return err
	}
	store, err := statex.NewMemoryStore(
		statex.WithTTL(cfg.SessionTTL),
		statex.WithKeyPrefix(cfg.SessionKeyPrefix),
		statex.WithCleanupInterval(cfg.SessionCleanupInterval),
	)
	if err != nil {
		return err
	}
	renderer, err := render.NewRenderer()
	if err != nil {
		return err
	}

	understander := nlu.NewScripted(turns)
	engine := policy.NewEngine(policy.WithReconfirmAfterCorrection(cfg.ReconfirmAfterCorrection))
	o, err := orchestrator.New(store, understander, renderer, nil, engine, orchestrator.Config{
		Schema:     schema,
		MaxHistory: cfg.MaxHistory,
	})
	if err != nil {
		return err
	}

	sessionID := strings.TrimSpace(*sessionFlag)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	logx.Info().
		Str("session_id", sessionID).
		Str("script", scriptPath).
		Int("turns", len(turns)).
		Msg("replaying transcript")

	for i, text := range understander.Texts() {
		res, err := o.HandleTurn(ctx, sessionID, text)
		if err != nil {
			return fmt.Errorf("turn %d: %w", i+1, err)
		}
		fmt.Fprintf(out, "user> %s\nbot>  %s\n      [%s -> %s]\n", text, res.Reply, res.Phase, res.Action)
	}
	return nil
}
