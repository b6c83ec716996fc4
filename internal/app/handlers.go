package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/large-farva/antpos/internal/geo"
	"github.com/large-farva/antpos/internal/registry"
)

func (a *App) routes() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern, route string, h http.HandlerFunc) {
		mux.Handle(pattern, a.metrics.instrument(route, h))
	}

	handle("GET /healthz", "healthz", a.handleHealthz)
	handle("GET /api/status", "status", a.handleStatus)
	handle("GET /api/version", "version", a.handleVersion)
	handle("GET /api/config", "config", a.handleConfig)
	handle("POST /api/reload", "reload", a.handleReload)

	handle("GET /api/stations", "stations", a.handleStations)
	handle("GET /api/stations/{name}", "station", a.handleStation)
	handle("GET /api/stations/{name}/fields/{field}/antennas", "antennas", a.handleAntennas)
	handle("GET /api/stations/{name}/fields/{field}/phase-centre", "phase_centre", a.handlePhaseCentre)
	handle("GET /api/stations/{name}/fields/{field}/hba-dipoles", "hba_dipoles", a.handleHBADipoles)

	handle("GET /api/geographic", "geographic", a.handleGeographic)
	handle("GET /api/ecef", "ecef", a.handleECEF)
	handle("GET /api/local", "local", a.handleLocal)
	handle("GET /api/look-angle", "look_angle", a.handleLookAngle)
	handle("GET /api/baseline", "baseline", a.handleBaseline)

	if cfg := a.getConfig(); cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, a.metrics.handler())
	}
	mux.Handle("GET /ws", a.wsHub.Handler())
	return mux
}

// ---------------------------------------------------------------------------
// Core handlers
// ---------------------------------------------------------------------------

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	// If the client asks for JSON, return component-level health checks.
	if r.Header.Get("Accept") == "application/json" {
		a.handleHealthDetailed(w, r)
		return
	}
	if a.current.Load() == nil {
		http.Error(w, "dataset not loaded", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *App) handleHealthDetailed(w http.ResponseWriter, _ *http.Request) {
	checks := map[string]any{}
	allOK := true

	if g := a.current.Load(); g == nil {
		checks["dataset"] = map[string]any{"ok": false, "error": "not loaded"}
		allOK = false
	} else {
		checks["dataset"] = map[string]any{
			"ok":         g.origin.FallbackReason == "",
			"generation": g.number,
			"origin":     g.origin.String(),
		}
		if g.origin.FallbackReason != "" {
			allOK = false
		}
	}

	if a.configPath != "" {
		if _, err := os.Stat(a.configPath); err != nil {
			checks["config_file"] = map[string]any{"ok": false, "error": err.Error()}
			allOK = false
		} else {
			checks["config_file"] = map[string]any{"ok": true, "path": a.configPath}
		}
	}

	status := http.StatusOK
	if !allOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"healthy": allOK,
		"checks":  checks,
	})
}

func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"name":           "antpos",
		"state":          a.state.Load().(string),
		"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
		"ws_clients":     a.wsHub.Clients(),
	}
	if g := a.current.Load(); g != nil {
		resp["dataset"] = g.info()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":    Version,
		"go_version": GoVersion,
		"built_at":   BuiltAt,
		"runtime":    runtime.Version(),
	})
}

func (a *App) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.getConfig())
}

func (a *App) handleReload(w http.ResponseWriter, r *http.Request) {
	info, err := a.Reload(r.Context())
	if err != nil {
		jsonError(w, "reload failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": fmt.Sprintf("dataset generation %d loaded from %s", info.Generation, info.Origin),
		"dataset": info,
	})
}

// ---------------------------------------------------------------------------
// Registry queries
// ---------------------------------------------------------------------------

type stationListEntry struct {
	Name     string               `json:"name"`
	Frame    registry.FrameSource `json:"frame"`
	Position geo.Vec3             `json:"position"`
	Fields   []string             `json:"fields"`
}

func (a *App) handleStations(w http.ResponseWriter, _ *http.Request) {
	reg, ok := a.registryOr503(w)
	if !ok {
		return
	}
	out := make([]stationListEntry, 0, reg.Len())
	for name := range reg.StationNames() {
		ref, _ := reg.StationReference(name)
		fields, _ := reg.Fields(name)
		out = append(out, stationListEntry{Name: name, Frame: ref.Frame, Position: ref.Position, Fields: fields})
	}
	writeJSON(w, http.StatusOK, map[string]any{"stations": out})
}

func (a *App) handleStation(w http.ResponseWriter, r *http.Request) {
	reg, ok := a.registryOr503(w)
	if !ok {
		return
	}
	s, err := reg.Summary(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (a *App) handleAntennas(w http.ResponseWriter, r *http.Request) {
	reg, ok := a.registryOr503(w)
	if !ok {
		return
	}
	name, field := r.PathValue("name"), r.PathValue("field")
	ants, err := reg.AntennaPositions(name, field)
	if err != nil {
		writeError(w, err)
		return
	}

	frame := r.URL.Query().Get("frame")
	resp := map[string]any{
		"station":  strings.ToUpper(name),
		"field":    strings.ToUpper(field),
		"antennas": ants,
	}
	switch frame {
	case "", "local":
		resp["frame"] = "local"
	case "pqr":
		pqr, err := reg.AntennaPQR(name, field)
		if err != nil {
			writeError(w, err)
			return
		}
		resp["frame"] = "pqr"
		resp["pqr"] = pqr
	default:
		writeError(w, badRequest("frame must be local or pqr"))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handlePhaseCentre(w http.ResponseWriter, r *http.Request) {
	reg, ok := a.registryOr503(w)
	if !ok {
		return
	}
	name, field := r.PathValue("name"), r.PathValue("field")
	pc, err := reg.PhaseCentre(name, field)
	if err != nil {
		writeError(w, err)
		return
	}
	g, err := geo.GeographicFromECEF(pc, reg.Ellipsoid())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"station":    strings.ToUpper(name),
		"field":      strings.ToUpper(field),
		"ecef":       pc,
		"geographic": geographicJSON(g),
	})
}

func (a *App) handleHBADipoles(w http.ResponseWriter, r *http.Request) {
	reg, ok := a.registryOr503(w)
	if !ok {
		return
	}
	name, field := r.PathValue("name"), r.PathValue("field")

	var (
		dipoles []geo.Vec3
		err     error
	)
	frame := r.URL.Query().Get("frame")
	switch frame {
	case "", "pqr":
		frame = "pqr"
		dipoles, err = reg.HBADipolePQR(name, field)
	case "etrs", "ecef":
		frame = "etrs"
		dipoles, err = reg.HBADipoleETRS(name, field)
	default:
		err = badRequest("frame must be pqr or etrs")
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"station": strings.ToUpper(name),
		"field":   strings.ToUpper(field),
		"frame":   frame,
		"count":   len(dipoles),
		"dipoles": dipoles,
	})
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

func (a *App) handleGeographic(w http.ResponseWriter, r *http.Request) {
	reg, ok := a.registryOr503(w)
	if !ok {
		return
	}
	v, err := queryVec(r, "x", "y", "z")
	if err != nil {
		writeError(w, err)
		return
	}
	g, err := geo.GeographicFromECEF(v, reg.Ellipsoid())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, geographicJSON(g))
}

func (a *App) handleECEF(w http.ResponseWriter, r *http.Request) {
	reg, ok := a.registryOr503(w)
	if !ok {
		return
	}
	ll, err := queryVec(r, "lon", "lat", "h")
	if err != nil {
		writeError(w, err)
		return
	}
	if r.URL.Query().Get("deg") == "true" {
		ll[0], ll[1] = ll[0]*degToRad, ll[1]*degToRad
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ecef": geo.ECEFFromGeographic(ll[0], ll[1], ll[2], reg.Ellipsoid()),
	})
}

func (a *App) handleLocal(w http.ResponseWriter, r *http.Request) {
	reg, ok := a.registryOr503(w)
	if !ok {
		return
	}
	ref, err := reg.StationReference(r.URL.Query().Get("station"))
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := queryVec(r, "x", "y", "z")
	if err != nil {
		writeError(w, err)
		return
	}
	if r.URL.Query().Get("inverse") == "true" {
		writeJSON(w, http.StatusOK, map[string]any{
			"station": ref.Name,
			"ecef":    geo.LocalToECEF(v, ref.Position, ref.Rotation),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"station": ref.Name,
		"local":   geo.ECEFToLocal(v, ref.Position, ref.Rotation),
	})
}

func (a *App) handleLookAngle(w http.ResponseWriter, r *http.Request) {
	reg, ok := a.registryOr503(w)
	if !ok {
		return
	}
	ref, err := reg.StationReference(r.URL.Query().Get("station"))
	if err != nil {
		writeError(w, err)
		return
	}
	target, err := resolvePoint(reg, r.URL.Query().Get("target"))
	if err != nil {
		writeError(w, err)
		return
	}
	la, err := geo.LookAngle(ref.Position, target, reg.Ellipsoid())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"station":       ref.Name,
		"target":        target,
		"azimuth_rad":   la.Azimuth,
		"elevation_rad": la.Elevation,
		"azimuth_deg":   la.AzimuthDeg(),
		"elevation_deg": la.ElevationDeg(),
		"range_m":       la.Range,
	})
}

func (a *App) handleBaseline(w http.ResponseWriter, r *http.Request) {
	reg, ok := a.registryOr503(w)
	if !ok {
		return
	}
	from, err := reg.StationReference(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := reg.StationReference(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":       from.Name,
		"to":         to.Name,
		"distance_m": geo.Distance(from.Position, to.Position),
		"ecef":       to.Position.Sub(from.Position),
		"local":      geo.ECEFToLocal(to.Position, from.Position, from.Rotation),
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const degToRad = 3.141592653589793 / 180

type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

func (a *App) registryOr503(w http.ResponseWriter) (*registry.Registry, bool) {
	g := a.current.Load()
	if g == nil {
		jsonError(w, "dataset not loaded", http.StatusServiceUnavailable)
		return nil, false
	}
	return g.reg, true
}

// statusFor maps library errors onto HTTP status codes.
func statusFor(err error) int {
	var br *badRequestError
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, geo.ErrDomain):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	jsonError(w, err.Error(), statusFor(err))
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]any{
		"ok":    false,
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func queryVec(r *http.Request, keys ...string) (geo.Vec3, error) {
	var v geo.Vec3
	q := r.URL.Query()
	for i, k := range keys {
		raw := q.Get(k)
		if raw == "" {
			return geo.Vec3{}, badRequest("missing query parameter %q", k)
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return geo.Vec3{}, badRequest("query parameter %q: not a number", k)
		}
		v[i] = f
	}
	return v, nil
}

// resolvePoint accepts a station name or an "x,y,z" ECEF triple.
func resolvePoint(reg *registry.Registry, s string) (geo.Vec3, error) {
	if s == "" {
		return geo.Vec3{}, badRequest("missing query parameter %q", "target")
	}
	parts := strings.Split(s, ",")
	if len(parts) == 3 {
		var v geo.Vec3
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return geo.Vec3{}, badRequest("target %q: not a station or x,y,z", s)
			}
			v[i] = f
		}
		return v, nil
	}
	ref, err := reg.StationReference(s)
	if err != nil {
		return geo.Vec3{}, err
	}
	return ref.Position, nil
}

func geographicJSON(g geo.Geographic) map[string]any {
	return map[string]any{
		"lon_rad":  g.Lon,
		"lat_rad":  g.Lat,
		"lon_deg":  g.LonDeg(),
		"lat_deg":  g.LatDeg(),
		"height_m": g.Height,
	}
}
