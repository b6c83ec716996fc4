package ctl

import (
	"encoding/json"
	"fmt"
)

// Reload tells the daemon to re-read its config file and rebuild the
// registry. A rejected dataset leaves the daemon serving the old one, which
// surfaces here as an error.
func Reload(baseURL string, f Format) error {
	var raw json.RawMessage
	if err := postJSON(baseURL, "/api/reload", nil, &raw); err != nil {
		return err
	}
	if f != FormatText {
		return emitRaw(f, raw)
	}

	var result struct {
		Message string      `json:"message"`
		Dataset DatasetInfo `json:"dataset"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\n  %s  %s\n", colorize(green, "RELOADED"), result.Message)
	fmt.Fprintf(stdout, "  %s %d stations, %d antennas\n\n",
		colorize(dim, "contents:"), result.Dataset.Stations, result.Dataset.Antennas)
	return nil
}
