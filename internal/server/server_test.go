package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/professor93/tgconfig/internal/api"
	"github.com/professor93/tgconfig/internal/config"
)

type fakeStore struct {
	err error
}

func (f fakeStore) Ping() error { return f.err }

func doRequest(t *testing.T, s *Server, method, path string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	resp, err := s.GetApp().Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	return resp, body
}

func decodeResponse(t *testing.T, body []byte) api.APIResponse {
	t.Helper()

	var apiResp api.APIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		t.Fatalf("Failed to parse response: %v\n%s", err, body)
	}
	return apiResp
}

func TestNew(t *testing.T) {
	server := New(nil, config.Default())
	if server == nil {
		t.Fatal("Server is nil")
	}
	if server.app == nil {
		t.Error("Fiber app is nil")
	}
	if server.port != 8090 {
		t.Errorf("Expected default port 8090, got %d", server.port)
	}
}

func TestNew_CustomConfig(t *testing.T) {
	cfg := &Config{
		Port:               9090,
		MaxConcurrentConns: 200,
		ReadTimeout:        60 * time.Second,
	}

	server := New(cfg, config.Default())
	if server.port != 9090 {
		t.Errorf("Expected port 9090, got %d", server.port)
	}
	if server.config.MaxConcurrentConns != 200 {
		t.Errorf("Expected max conns 200, got %d", server.config.MaxConcurrentConns)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := New(nil, config.Default())

	resp, body := doRequest(t, server, "GET", "/health")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}

	apiResp := decodeResponse(t, body)
	if !apiResp.OK || apiResp.Code != api.CodeSuccess {
		t.Errorf("Unexpected response: %+v", apiResp)
	}

	result := apiResp.Result.(map[string]interface{})
	if result["healthy"] != true || result["config_ok"] != true {
		t.Errorf("Expected healthy result, got %v", result)
	}
}

func TestHealthEndpoint_StoreDown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store = fakeStore{err: errors.New("disk gone")}
	server := New(cfg, config.Default())

	_, body := doRequest(t, server, "GET", "/health")
	apiResp := decodeResponse(t, body)

	result := apiResp.Result.(map[string]interface{})
	if result["healthy"] != false || result["database_ok"] != false {
		t.Errorf("Expected degraded result, got %v", result)
	}
}

func TestGetAllEndpoint(t *testing.T) {
	server := New(nil, config.Default())

	resp, body := doRequest(t, server, "GET", "/api/config")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	apiResp := decodeResponse(t, body)
	if apiResp.Code != api.CodeDataRetrieved {
		t.Errorf("Expected code %d, got %d", api.CodeDataRetrieved, apiResp.Code)
	}

	result := apiResp.Result.(map[string]interface{})
	for _, app := range []string{"admin", "kds", "pos"} {
		if _, ok := result[app]; !ok {
			t.Errorf("Missing %s record", app)
		}
	}

	kds := result["kds"].(map[string]interface{})
	if kds["api_base"] != "http://192.168.0.100:8080" {
		t.Errorf("Expected resolved KDS api_base, got %v", kds["api_base"])
	}
}

func TestGetAppEndpoint(t *testing.T) {
	testCases := []struct {
		name    string
		mode    config.Mode
		apiBase string
		wsURL   interface{}
	}{
		{"local", config.ModeLocal, "http://192.168.0.100:8080", "ws://192.168.0.100:8080/ws"},
		{"cloud", config.ModeCloud, "https://api.tgcommerce.io/v1", "wss://api.tgcommerce.io/v1/kds/ws"},
		{"dev", config.ModeDev, "http://localhost:8001", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			set := config.Default()
			set.KDS.Mode = tc.mode
			server := New(nil, set)

			resp, body := doRequest(t, server, "GET", "/api/config/kds")
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", resp.StatusCode)
			}

			apiResp := decodeResponse(t, body)
			if apiResp.Code != api.CodeConfigResolved {
				t.Errorf("Expected code %d, got %d", api.CodeConfigResolved, apiResp.Code)
			}

			result := apiResp.Result.(map[string]interface{})
			if result["api_base"] != tc.apiBase {
				t.Errorf("Expected api_base %q, got %v", tc.apiBase, result["api_base"])
			}
			if result["ws_url"] != tc.wsURL {
				t.Errorf("Expected ws_url %v, got %v", tc.wsURL, result["ws_url"])
			}

			meta := apiResp.Meta.(map[string]interface{})
			if meta["app"] != "kds" {
				t.Errorf("Expected meta app kds, got %v", meta["app"])
			}
		})
	}
}

func TestGetAppEndpoint_AdminAndPOS(t *testing.T) {
	server := New(nil, config.Default())

	_, body := doRequest(t, server, "GET", "/api/config/admin")
	result := decodeResponse(t, body).Result.(map[string]interface{})
	if result["app_name"] != "TG-Admin" {
		t.Errorf("Expected TG-Admin, got %v", result["app_name"])
	}

	_, body = doRequest(t, server, "GET", "/api/config/pos")
	result = decodeResponse(t, body).Result.(map[string]interface{})
	if result["default_store_id"] != float64(1) {
		t.Errorf("Expected default_store_id 1, got %v", result["default_store_id"])
	}
}

func TestGetAppEndpoint_UnknownApp(t *testing.T) {
	server := New(nil, config.Default())

	resp, body := doRequest(t, server, "GET", "/api/config/kiosk")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}

	apiResp := decodeResponse(t, body)
	if apiResp.OK || apiResp.Code != api.CodeErrorUnknownApp {
		t.Errorf("Unexpected response: %+v", apiResp)
	}
}

func TestScriptEndpoint(t *testing.T) {
	server := New(nil, config.Default())

	for _, app := range []string{"admin", "kds", "pos"} {
		t.Run(app, func(t *testing.T) {
			resp, body := doRequest(t, server, "GET", "/"+app+"/config.js")
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/javascript") {
				t.Errorf("Expected javascript content type, got %q", ct)
			}
			if resp.Header.Get("Cache-Control") != "no-store" {
				t.Error("Expected Cache-Control: no-store")
			}
			if !strings.Contains(string(body), "const CONFIG = {") {
				t.Errorf("Body does not define CONFIG:\n%s", body)
			}
		})
	}

	_, body := doRequest(t, server, "GET", "/kds/config.js")
	for _, want := range []string{`"MODE": "local"`, `"LOCAL_POS_IP": "192.168.0.100"`, "get WS_URL() {"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("KDS script missing %s:\n%s", want, body)
		}
	}
}

func TestScriptEndpoint_UnknownApp(t *testing.T) {
	server := New(nil, config.Default())

	resp, _ := doRequest(t, server, "GET", "/kiosk/config.js")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	server := New(nil, config.Default())

	resp, body := doRequest(t, server, "GET", "/nonexistent")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}

	apiResp := decodeResponse(t, body)
	if apiResp.OK {
		t.Error("Expected OK to be false for 404")
	}
	if apiResp.Code >= 0 {
		t.Errorf("Expected negative error code, got %d", apiResp.Code)
	}
}

func TestServerSnapshotsSet(t *testing.T) {
	set := config.Default()
	server := New(nil, set)

	set.KDS.LocalPOSIP = "10.9.9.9"

	_, body := doRequest(t, server, "GET", "/api/config/kds")
	result := decodeResponse(t, body).Result.(map[string]interface{})
	if result["local_pos_ip"] != "192.168.0.100" {
		t.Errorf("Server observed caller mutation: %v", result["local_pos_ip"])
	}
}

func TestSwap(t *testing.T) {
	server := New(nil, config.Default())

	next := config.Default()
	next.KDS.Mode = config.ModeCloud
	next.KDS.CloudAPI = "http://cloud.internal:8001"
	server.Swap(next)

	if server.Current() != next {
		t.Error("Current does not return the swapped set")
	}

	_, body := doRequest(t, server, "GET", "/api/config/kds")
	result := decodeResponse(t, body).Result.(map[string]interface{})
	if result["ws_url"] != "ws://cloud.internal:8001/kds/ws" {
		t.Errorf("Expected swapped ws_url, got %v", result["ws_url"])
	}
}

func TestAPIResponseFormat(t *testing.T) {
	server := New(nil, config.Default())

	for _, path := range []string{"/health", "/api/config", "/api/config/admin", "/api/config/kds", "/api/config/pos", "/api/config/nope"} {
		t.Run(path, func(t *testing.T) {
			_, body := doRequest(t, server, "GET", path)
			apiResp := decodeResponse(t, body)

			if apiResp.Message == "" {
				t.Error("Message field is empty")
			}
			if apiResp.OK && apiResp.Code <= 0 {
				t.Errorf("Success response has non-positive code: %d", apiResp.Code)
			}
			if !apiResp.OK && apiResp.Code >= 0 {
				t.Errorf("Error response has non-negative code: %d", apiResp.Code)
			}
		})
	}
}

func TestGracefulShutdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 18899
	cfg.DisableStartupMessage = true
	server := New(cfg, config.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.StartWithContext(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not shut down")
	}
}

func BenchmarkScriptEndpoint(b *testing.B) {
	server := New(nil, config.Default())
	app := server.GetApp()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest("GET", "/kds/config.js", nil)
		app.Test(req)
	}
}
