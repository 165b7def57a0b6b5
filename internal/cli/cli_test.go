package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/professor93/tgconfig/internal/config"
	"github.com/professor93/tgconfig/internal/reload"
	"github.com/professor93/tgconfig/internal/server"
	"github.com/professor93/tgconfig/internal/settings"
	"github.com/professor93/tgconfig/pkg/constants"
)

func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	machineID = func(string, *zap.Logger) (string, error) { return "test-machine-0001", nil }
	showJS, showRemote, listAllKeys = false, "", false
	configFile, logLevel = "", "error"

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--data-dir", dir, "--log-level", "error"}, args...))

	err := rootCmd.Execute()
	return out.String(), err
}

func TestSettingsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "settings", "set", "kds.mode", "cloud")
	if err != nil {
		t.Fatalf("settings set failed: %v", err)
	}
	if strings.TrimSpace(out) != "kds.mode = cloud" {
		t.Errorf("Unexpected set output %q", out)
	}

	out, err = runCLI(t, dir, "settings", "get", "kds.mode")
	if err != nil {
		t.Fatalf("settings get failed: %v", err)
	}
	if strings.TrimSpace(out) != "cloud" {
		t.Errorf("Expected cloud, got %q", out)
	}

	if _, err := runCLI(t, dir, "settings", "unset", "kds.mode"); err != nil {
		t.Fatalf("settings unset failed: %v", err)
	}

	_, err = runCLI(t, dir, "settings", "get", "kds.mode")
	if !errors.Is(err, settings.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after unset, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "store.key")); err != nil {
		t.Errorf("Store key was not created: %v", err)
	}
}

func TestSettingsSet_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	if _, err := runCLI(t, dir, "settings", "set", "kds.local_port", "9090"); err != nil {
		t.Fatalf("settings set failed: %v", err)
	}

	_, err := runCLI(t, dir, "settings", "set", "kds.local_port", "70000")
	if err == nil {
		t.Fatal("Expected out-of-range port to be rejected")
	}
	if !strings.Contains(err.Error(), `rejected kds.local_port="70000"`) {
		t.Errorf("Unexpected rejection message: %v", err)
	}

	out, err := runCLI(t, dir, "settings", "get", "kds.local_port")
	if err != nil {
		t.Fatalf("settings get failed: %v", err)
	}
	if strings.TrimSpace(out) != "9090" {
		t.Errorf("Expected previous value 9090 restored, got %q", out)
	}

	if _, err := runCLI(t, dir, "settings", "set", "pos.default_store_id", "zero"); err == nil {
		t.Fatal("Expected non-numeric store id to be rejected")
	}
	if _, err := runCLI(t, dir, "settings", "get", "pos.default_store_id"); !errors.Is(err, settings.ErrNotFound) {
		t.Errorf("Expected rejected override to be removed, got %v", err)
	}
}

func TestSettingsSet_UnknownKey(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "settings", "set", "kds.api_base", "http://x")
	if !errors.Is(err, settings.ErrUnknownKey) {
		t.Errorf("Expected ErrUnknownKey, got %v", err)
	}
}

func TestSettingsGetUnset_UnknownKey(t *testing.T) {
	dir := t.TempDir()

	if _, err := runCLI(t, dir, "settings", "get", "bogus.key"); !errors.Is(err, settings.ErrUnknownKey) {
		t.Errorf("get: expected ErrUnknownKey, got %v", err)
	}
	if _, err := runCLI(t, dir, "settings", "unset", "bogus.key"); !errors.Is(err, settings.ErrUnknownKey) {
		t.Errorf("unset: expected ErrUnknownKey, got %v", err)
	}
}

func TestServeFlagDefaults(t *testing.T) {
	for _, cmd := range []*cobra.Command{serveCmd, serviceRunCmd} {
		flags := cmd.Flags()
		if got := flags.Lookup("port").DefValue; got != strconv.Itoa(constants.DefaultPort) {
			t.Errorf("%s --port default = %s, want %d", cmd.CommandPath(), got, constants.DefaultPort)
		}
		if got := flags.Lookup("reload").DefValue; got != reload.DefaultSchedule {
			t.Errorf("%s --reload default = %q, want %q", cmd.CommandPath(), got, reload.DefaultSchedule)
		}
	}

	// Parsing one command's flags leaves the other's options alone
	if err := serviceRunCmd.ParseFlags([]string{"--port", "9191", "--reload", "off"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	defer func() {
		runOpts.port, runOpts.reload = constants.DefaultPort, reload.DefaultSchedule
	}()

	if runOpts.port != 9191 || runOpts.reload != "off" {
		t.Errorf("service run options not parsed: %+v", runOpts)
	}
	if serveOpts.port != constants.DefaultPort || serveOpts.reload != reload.DefaultSchedule {
		t.Errorf("serve options changed: %+v", serveOpts)
	}
	if runOpts.logDir != "logs" {
		t.Errorf("service run should log to the data directory, got %q", runOpts.logDir)
	}
}

func TestSettingsList(t *testing.T) {
	dir := t.TempDir()
	runCLI(t, dir, "settings", "set", "pos.version", "2.1.0")

	out, err := runCLI(t, dir, "settings", "list")
	if err != nil {
		t.Fatalf("settings list failed: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 1 || !strings.Contains(lines[0], "2.1.0") {
		t.Errorf("Unexpected list output:\n%s", out)
	}

	out, err = runCLI(t, dir, "settings", "list", "--all")
	if err != nil {
		t.Fatalf("settings list --all failed: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != len(config.KnownKeys()) {
		t.Errorf("Expected %d lines, got %d:\n%s", len(config.KnownKeys()), len(lines), out)
	}
}

func TestShow(t *testing.T) {
	dir := t.TempDir()
	runCLI(t, dir, "settings", "set", "kds.mode", "cloud")

	out, err := runCLI(t, dir, "show", "KDS")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}

	var view map[string]interface{}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("show output is not JSON: %v\n%s", err, out)
	}
	if view["api_base"] != "https://api.tgcommerce.io/v1" {
		t.Errorf("Unexpected api_base %v", view["api_base"])
	}
	if view["ws_url"] != "wss://api.tgcommerce.io/v1/kds/ws" {
		t.Errorf("Unexpected ws_url %v", view["ws_url"])
	}

	out, err = runCLI(t, dir, "show")
	if err != nil {
		t.Fatalf("show all failed: %v", err)
	}
	var all map[string]interface{}
	if err := json.Unmarshal([]byte(out), &all); err != nil || len(all) != 3 {
		t.Errorf("Expected three records, got %v (%v)", all, err)
	}
}

func TestShow_JS(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "show", "pos", "--js")
	if err != nil {
		t.Fatalf("show --js failed: %v", err)
	}
	if !strings.HasPrefix(out, "// TG-WebPOS Configuration\nconst CONFIG = {") {
		t.Errorf("Unexpected script:\n%s", out)
	}

	if _, err := runCLI(t, dir, "show", "--js"); err == nil {
		t.Error("Expected --js without an application to fail")
	}
	if _, err := runCLI(t, dir, "show", "kiosk"); !errors.Is(err, config.ErrUnknownApp) {
		t.Errorf("Expected ErrUnknownApp, got %v", err)
	}
}

func TestShow_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.json")
	os.WriteFile(path, []byte(`{"pos": {"default_store_id": 9}}`), 0644)

	out, err := runCLI(t, dir, "--config", path, "show", "pos")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out, `"default_store_id": 9`) {
		t.Errorf("File layer not applied:\n%s", out)
	}

	if _, err := runCLI(t, dir, "--config", filepath.Join(dir, "missing.json"), "show"); err == nil {
		t.Error("Expected missing explicit config file to fail")
	}
}

func TestShow_Remote(t *testing.T) {
	set := config.Default()
	set.Admin.Version = "3.0.0"
	ts := httptest.NewServer(adaptor.FiberApp(server.New(nil, set).GetApp()))
	defer ts.Close()

	out, err := runCLI(t, t.TempDir(), "show", "admin", "--remote", ts.URL)
	if err != nil {
		t.Fatalf("show --remote failed: %v", err)
	}
	if !strings.Contains(out, `"version": "3.0.0"`) {
		t.Errorf("Unexpected remote record:\n%s", out)
	}

	if _, err := runCLI(t, t.TempDir(), "show", "kiosk", "--remote", ts.URL); !errors.Is(err, config.ErrUnknownApp) {
		t.Errorf("Expected ErrUnknownApp from remote show, got %v", err)
	}

	out, err = runCLI(t, t.TempDir(), "show", "kds", "--js", "--remote", ts.URL)
	if err != nil {
		t.Fatalf("show --js --remote failed: %v", err)
	}
	if !strings.Contains(out, "const CONFIG") {
		t.Errorf("Unexpected remote script:\n%s", out)
	}
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "tgconfig v"+Version) {
		t.Errorf("Unexpected version output %q", out)
	}
}

func TestTitleCase(t *testing.T) {
	if got := titleCase("restart"); got != "Restart" {
		t.Errorf("Expected Restart, got %s", got)
	}
}
