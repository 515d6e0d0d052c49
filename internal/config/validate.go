package config

import (
	"errors"
	"fmt"
	"net"
)

// Validate checks the configuration for structural problems. All
// problems are reported at once via errors.Join.
func Validate(cfg *Config) error {
	var errs []error

	if _, err := net.ResolveTCPAddr("tcp", cfg.Server.Bind); err != nil {
		errs = append(errs, fmt.Errorf("config: invalid server.bind %q: %w", cfg.Server.Bind, err))
	}

	if cfg.Session.KeepLastTurns >= cfg.Session.TriggerTurns {
		errs = append(errs, fmt.Errorf(
			"config: session.keep_last_turns (%d) must be below session.trigger_turns (%d)",
			cfg.Session.KeepLastTurns, cfg.Session.TriggerTurns))
	}

	if cfg.Session.HistoryMaxMessages < cfg.Session.TriggerTurns {
		errs = append(errs, fmt.Errorf(
			"config: session.history_max_messages (%d) must be at least session.trigger_turns (%d)",
			cfg.Session.HistoryMaxMessages, cfg.Session.TriggerTurns))
	}

	if cfg.Sweep.BatchLimit > 1000 {
		errs = append(errs, fmt.Errorf(
			"config: sweep.batch_limit (%d) must not exceed 1000", cfg.Sweep.BatchLimit))
	}

	return errors.Join(errs...)
}
