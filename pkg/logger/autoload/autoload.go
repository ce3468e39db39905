// Package autoload initialises the global logger from LOG_* environment
// variables when imported for side effects.
package autoload

import (
	"github.com/kelseyhightower/envconfig"

	logx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/pkg/logger"
)

func init() {
	var conf logx.Config
	if err := envconfig.Process("LOG", &conf); err != nil {
		logx.Init()
		logx.Warn().Err(err).Msg("invalid LOG_* environment, using default logger config")
		return
	}
	logx.Init(conf)
}
