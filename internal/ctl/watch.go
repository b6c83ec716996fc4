package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// WatchOptions controls the watch command behavior.
type WatchOptions struct {
	Filter []string // event types to show (empty = all)
	Format Format   // JSON prints each raw event on its own line
	Limit  int      // stop after this many events (0 = until cancelled)
}

// Watch connects to the daemon's WebSocket endpoint and streams events to
// the terminal in a human-readable format until ctx is cancelled.
func Watch(ctx context.Context, baseURL string, opts WatchOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	u, err := url.Parse(baseURL)
	if err != nil {
		return err
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	u.Path = "/ws"
	u.RawQuery = ""

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	text := opts.Format == FormatText
	if text {
		fmt.Fprintln(stdout)
		fmt.Fprintf(stdout, "  %s %s\n", colorize(green, "connected"), colorize(dim, u.String()))
		if len(opts.Filter) > 0 {
			fmt.Fprintf(stdout, "  %s %s\n", colorize(dim, "filter:"), colorize(dim, strings.Join(opts.Filter, ", ")))
		}
		fmt.Fprintln(stdout, rule(50))
		fmt.Fprintln(stdout)
	}

	// Build a filter set for O(1) lookup.
	filterSet := make(map[string]bool, len(opts.Filter))
	for _, f := range opts.Filter {
		filterSet[f] = true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		seen := 0
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}

			// Apply event type filter.
			if len(filterSet) > 0 {
				var ev map[string]any
				if err := json.Unmarshal(msg, &ev); err == nil {
					evType, _ := ev["type"].(string)
					if !filterSet[evType] {
						continue
					}
				}
			}

			switch opts.Format {
			case FormatJSON:
				fmt.Fprintln(stdout, string(msg))
			case FormatYAML:
				fmt.Fprintln(stdout, "---")
				_ = emitRaw(FormatYAML, msg)
			default:
				renderEvent(msg)
			}

			seen++
			if opts.Limit > 0 && seen >= opts.Limit {
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		if text {
			fmt.Fprintln(stdout)
			fmt.Fprintln(stdout, colorize(dim, "  disconnecting..."))
		}
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(1*time.Second),
		)
		return nil
	case <-done:
		return nil
	}
}

// renderEvent parses a JSON event and prints it in a human-friendly format.
// Falls back to raw JSON for unrecognized event types.
func renderEvent(raw []byte) {
	var ev map[string]any
	if err := json.Unmarshal(raw, &ev); err != nil {
		fmt.Fprintf(stdout, "  %s\n", string(raw))
		return
	}

	evType, _ := ev["type"].(string)
	ts := formatEventTime(ev)

	switch evType {
	case "heartbeat":
		// Heartbeats are noisy, so show them dimmed on a single line.
		state, _ := ev["state"].(string)
		uptime, _ := ev["uptime_seconds"].(float64)
		gen, _ := ev["generation"].(float64)
		uptimeStr := formatDuration(time.Duration(uptime) * time.Second)
		fmt.Fprintf(stdout, "  %s %s  %s  up %s  gen %.0f\n",
			colorize(dim, ts),
			colorize(dim, "heartbeat"),
			colorize(stateColor(state), state),
			colorize(dim, uptimeStr),
			gen,
		)

	case "state":
		from, _ := ev["from"].(string)
		to, _ := ev["to"].(string)
		fmt.Fprintf(stdout, "  %s %s  %s %s %s\n",
			colorize(dim, ts),
			colorize(bold, "STATE"),
			colorize(stateColor(from), from),
			colorize(dim, "->"),
			colorize(stateColor(to), to),
		)

	case "log":
		level, _ := ev["level"].(string)
		message, _ := ev["message"].(string)
		component, _ := ev["component"].(string)
		levelStr := formatLogLevel(level)
		src := ""
		if component != "" {
			src = colorize(dim, "["+component+"] ")
		}
		fmt.Fprintf(stdout, "  %s %s  %s%s%s\n", colorize(dim, ts), levelStr, src, message, formatAttrs(ev["attrs"]))

	case "dataset_loaded":
		gen, _ := ev["generation"].(float64)
		origin, _ := ev["origin"].(string)
		stations, _ := ev["stations"].(float64)
		antennas, _ := ev["antennas"].(float64)
		ms, _ := ev["duration_ms"].(float64)
		fmt.Fprintf(stdout, "  %s %s  generation %.0f from %s  %s\n",
			colorize(dim, ts),
			colorize(green, "LOADED"),
			gen,
			origin,
			colorize(dim, fmt.Sprintf("%.0f stations, %.0f antennas, %.1f ms", stations, antennas, ms)),
		)

	case "reload_failed":
		gen, _ := ev["generation"].(float64)
		msg, _ := ev["error"].(string)
		fmt.Fprintf(stdout, "  %s %s  %s  %s\n",
			colorize(dim, ts),
			colorize(red, "RELOAD FAILED"),
			msg,
			colorize(dim, fmt.Sprintf("still serving generation %.0f", gen)),
		)

	default:
		// Unknown event type: dump as indented JSON so nothing is lost.
		pretty, err := json.MarshalIndent(ev, "  ", "  ")
		if err != nil {
			fmt.Fprintf(stdout, "  %s\n", string(raw))
			return
		}
		fmt.Fprintf(stdout, "  %s\n", string(pretty))
	}
}

// formatEventTime extracts and shortens the timestamp from an event.
func formatEventTime(ev map[string]any) string {
	tsRaw, ok := ev["ts"].(string)
	if !ok {
		return "          "
	}
	t, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return padRight(tsRaw, 10)[:10]
	}
	return t.Local().Format("15:04:05")
}

// formatLogLevel returns a colored, fixed-width log level label.
func formatLogLevel(level string) string {
	switch strings.ToLower(level) {
	case "debug":
		return colorize(dim, "DEBUG")
	case "info":
		return colorize(green, "INFO ")
	case "warn":
		return colorize(yellow, "WARN ")
	case "error":
		return colorize(red, "ERROR")
	default:
		return padRight(level, 5)
	}
}

// formatAttrs renders a log event's attributes as sorted key=value pairs.
func formatAttrs(v any) string {
	attrs, ok := v.(map[string]any)
	if !ok || len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, attrs[k])
	}
	return "  " + colorize(dim, strings.Join(parts, " "))
}
