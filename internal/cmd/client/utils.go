package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// postJSON posts body to path and decodes the JSON response. Non-2xx
// responses become errors carrying the server's error message.
func postJSON(baseURL BaseURLFunc, path string, body any) (map[string]any, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(baseURL()+path, "application/json", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	return decodeResponse(resp)
}

// getJSON fetches path and decodes the JSON response.
func getJSON(baseURL BaseURLFunc, path string) (map[string]any, error) {
	resp, err := http.Get(baseURL() + path)
	if err != nil {
		return nil, err
	}
	return decodeResponse(resp)
}

func decodeResponse(resp *http.Response) (map[string]any, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("unexpected response (%s): %s", resp.Status, string(data))
		}
	}
	if resp.StatusCode >= 300 {
		if msg, ok := out["error"].(string); ok && msg != "" {
			return nil, fmt.Errorf("%s: %s", resp.Status, msg)
		}
		return nil, fmt.Errorf("request failed: %s", resp.Status)
	}
	return out, nil
}

// printJSON writes v to w as indented JSON.
func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
