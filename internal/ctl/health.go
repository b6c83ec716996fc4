package ctl

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Health checks daemon liveness via GET /healthz, asking for the detailed
// JSON form.
func Health(baseURL string, f Format) error {
	baseURL = strings.TrimRight(baseURL, "/")

	status, body, err := getRaw(baseURL, "/healthz", "application/json")
	if err != nil {
		if f != FormatText {
			return emit(f, map[string]any{"healthy": false, "url": baseURL, "error": err.Error()})
		}
		return err
	}

	var detail struct {
		Healthy bool                      `json:"healthy"`
		Checks  map[string]map[string]any `json:"checks"`
	}
	_ = json.Unmarshal(body, &detail)
	healthy := status == 200

	if f != FormatText {
		return emit(f, map[string]any{"healthy": healthy, "url": baseURL, "checks": detail.Checks})
	}

	fmt.Fprintln(stdout)
	if healthy {
		fmt.Fprintf(stdout, "  %s  antposd is reachable at %s\n", colorize(green, "HEALTHY"), colorize(dim, baseURL))
	} else {
		fmt.Fprintf(stdout, "  %s  antposd returned HTTP %d at %s\n", colorize(red, "UNHEALTHY"), status, colorize(dim, baseURL))
	}

	names := make([]string, 0, len(detail.Checks))
	for name := range detail.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := detail.Checks[name]
		mark := colorize(green, "ok  ")
		if ok, _ := c["ok"].(bool); !ok {
			mark = colorize(red, "FAIL")
		}
		extra := ""
		if e, ok := c["error"].(string); ok {
			extra = e
		} else if o, ok := c["origin"].(string); ok {
			extra = o
		} else if p, ok := c["path"].(string); ok {
			extra = p
		}
		fmt.Fprintf(stdout, "    %s %-14s %s\n", mark, name, colorize(dim, extra))
	}
	fmt.Fprintln(stdout)

	return nil
}
