package config

import (
	"log/slog"
	"os"
)

// Required pairs an env key with the value Load read for it.
type Required struct {
	Env   string
	Value string
}

// Missing lists the env keys whose value is blank, in the order given.
func Missing(reqs ...Required) []string {
	var out []string
	for _, r := range reqs {
		if r.Value == "" {
			out = append(out, r.Env)
		}
	}
	return out
}

// MustNonEmpty stops the process when a required setting is blank.
func MustNonEmpty(l *slog.Logger, reqs ...Required) {
	if missing := Missing(reqs...); len(missing) > 0 {
		l.Error("config_invalid", "reason", "missing required env", "missing", missing)
		os.Exit(1)
	}
}
