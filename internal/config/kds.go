package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/professor93/tgconfig/pkg/constants"
)

// Mode selects how a KDS screen reaches its backend
type Mode string

const (
	// ModeLocal talks straight to the POS PC acting as the store server
	ModeLocal Mode = "local"
	// ModeCloud talks to the central API (chain stores)
	ModeCloud Mode = "cloud"
	// ModeDev talks to the development API. Any value other than local or
	// cloud behaves like ModeDev.
	ModeDev Mode = "dev"
)

// APIBase returns the effective API base URL for k:
//
//	local: http://<LocalPOSIP>:<LocalPort>
//	cloud: CloudAPI unchanged
//	other: DevAPI
func APIBase(k KdsConfig) string {
	switch k.Mode {
	case ModeLocal:
		return fmt.Sprintf("http://%s:%d", k.LocalPOSIP, k.LocalPort)
	case ModeCloud:
		return k.CloudAPI
	default:
		return k.DevAPI
	}
}

// WebSocketURL returns the effective real-time endpoint for k.
// The second result is false when the mode has no websocket endpoint.
func WebSocketURL(k KdsConfig) (string, bool) {
	switch k.Mode {
	case ModeLocal:
		return fmt.Sprintf("ws://%s:%d%s", k.LocalPOSIP, k.LocalPort, constants.KDSWebSocketPath), true
	case ModeCloud:
		u := strings.Replace(k.CloudAPI, "https://", "wss://", 1)
		u = strings.Replace(u, "http://", "ws://", 1)
		return u + constants.KDSCloudWSSuffix, true
	default:
		return "", false
	}
}

// APIBase is shorthand for APIBase(k)
func (k KdsConfig) APIBase() string {
	return APIBase(k)
}

// WebSocketURL is shorthand for WebSocketURL(k)
func (k KdsConfig) WebSocketURL() (string, bool) {
	return WebSocketURL(k)
}

// RefreshEvery returns the polling interval as a duration
func (k KdsConfig) RefreshEvery() time.Duration {
	return time.Duration(k.RefreshInterval) * time.Millisecond
}

// KdsView is the KDS record with its derived endpoints resolved.
// ResolvedWSURL is nil when the mode has no websocket endpoint.
type KdsView struct {
	KdsConfig
	ResolvedAPIBase string  `json:"api_base"`
	ResolvedWSURL   *string `json:"ws_url"`
}

// View resolves the derived endpoints of k at call time
func (k KdsConfig) View() KdsView {
	v := KdsView{KdsConfig: k, ResolvedAPIBase: APIBase(k)}
	if ws, ok := WebSocketURL(k); ok {
		v.ResolvedWSURL = &ws
	}
	return v
}
