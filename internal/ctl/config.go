package ctl

import (
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"

	"github.com/eurec4a/twinotter/internal/config"
)

// Config prints a configuration as TOML, the format it is loaded from.
func Config(w io.Writer, cfg config.Config, jsonOutput bool) error {
	if jsonOutput {
		return PrintJSON(w, cfg)
	}
	b, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, string(b))
	return err
}

// DaemonConfig fetches the running daemon's configuration.
func DaemonConfig(w io.Writer, baseURL string, jsonOutput bool) error {
	var cfg config.Config
	if err := getJSON(baseURL, "/api/config", &cfg); err != nil {
		return err
	}
	return Config(w, cfg, jsonOutput)
}
