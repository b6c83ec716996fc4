package ctl

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var httpClient = &http.Client{Timeout: 5 * time.Second}

// Format selects how a command renders its result.
type Format int

const (
	FormatText Format = iota
	FormatJSON
	FormatYAML
)

// ParseFormat maps the --json and --yaml flags onto a Format.
func ParseFormat(jsonOut, yamlOut bool) (Format, error) {
	switch {
	case jsonOut && yamlOut:
		return FormatText, errors.New("--json and --yaml are mutually exclusive")
	case jsonOut:
		return FormatJSON, nil
	case yamlOut:
		return FormatYAML, nil
	default:
		return FormatText, nil
	}
}

// apiError extracts the daemon's {"error": "..."} message from a failed
// response, falling back to the raw body.
func apiError(resp *http.Response, path string) error {
	b, _ := io.ReadAll(resp.Body)
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &body) == nil && body.Error != "" {
		return fmt.Errorf("HTTP %s: %s", resp.Status, body.Error)
	}
	msg := strings.TrimSpace(string(b))
	if msg != "" {
		return fmt.Errorf("HTTP %s: %s", resp.Status, msg)
	}
	return fmt.Errorf("HTTP %s from %s", resp.Status, path)
}

// getJSON sends a GET request and decodes the JSON response into dst.
func getJSON(baseURL, path string, dst any) error {
	url := strings.TrimRight(baseURL, "/") + path
	resp, err := httpClient.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp, path)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// getRaw sends a GET request and returns the raw response body.
func getRaw(baseURL, path string, accept string) (int, []byte, error) {
	url := strings.TrimRight(baseURL, "/") + path
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// postJSON sends a POST request with a JSON body and decodes the response.
func postJSON(baseURL, path string, body, dst any) error {
	url := strings.TrimRight(baseURL, "/") + path
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(b)
	}
	resp, err := httpClient.Post(url, "application/json", reqBody)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp, path)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// query GETs path. For structured formats the response is printed as-is and
// query returns false; for text it is decoded into dst and the caller renders
// it.
func query(baseURL, path string, f Format, dst any) (bool, error) {
	var raw json.RawMessage
	if err := getJSON(baseURL, path, &raw); err != nil {
		return false, err
	}
	if f != FormatText {
		return false, emitRaw(f, raw)
	}
	return true, json.Unmarshal(raw, dst)
}

// emit prints v in the requested structured format.
func emit(f Format, v any) error {
	if f == FormatYAML {
		return printYAML(v)
	}
	return printJSON(v)
}

// emitRaw re-encodes a JSON document. YAML goes through a generic decode so
// the output keeps the daemon's field names.
func emitRaw(f Format, raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return emit(f, v)
}

// printJSON prints v as indented JSON to stdout.
func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, string(b))
	return nil
}

// printYAML prints v as a YAML document to stdout.
func printYAML(v any) error {
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
