package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/professor93/tgconfig/pkg/constants"
)

// Globals are the upper-case CONFIG objects the browser bundles read.

type adminGlobals struct {
	APIBase string `json:"API_BASE"`
	AppName string `json:"APP_NAME"`
	Version string `json:"VERSION"`
}

type posGlobals struct {
	APIBase        string `json:"API_BASE"`
	AppName        string `json:"APP_NAME"`
	Version        string `json:"VERSION"`
	DefaultStoreID int    `json:"DEFAULT_STORE_ID"`
}

type kdsGlobals struct {
	Mode            Mode   `json:"MODE"`
	LocalPOSIP      string `json:"LOCAL_POS_IP"`
	LocalPort       int    `json:"LOCAL_PORT"`
	CloudAPI        string `json:"CLOUD_API"`
	DevAPI          string `json:"DEV_API"`
	AppName         string `json:"APP_NAME"`
	Version         string `json:"VERSION"`
	RefreshInterval int    `json:"REFRESH_INTERVAL"`
	DefaultStoreID  int    `json:"DEFAULT_STORE_ID"`
	UseWebSocket    bool   `json:"USE_WEBSOCKET"`
}

// kdsGetters derive API_BASE and WS_URL from MODE inside the browser, so a
// bundle that switches CONFIG.MODE at runtime follows it. The rules match
// APIBase and WebSocketURL.
var kdsGetters = fmt.Sprintf(strings.Join([]string{
	"    get API_BASE() {",
	"        if (this.MODE === '%[1]s') {",
	"            return `http://${this.LOCAL_POS_IP}:${this.LOCAL_PORT}`;",
	"        } else if (this.MODE === '%[2]s') {",
	"            return this.CLOUD_API;",
	"        }",
	"        return this.DEV_API;",
	"    },",
	"    get WS_URL() {",
	"        if (this.MODE === '%[1]s') {",
	"            return `ws://${this.LOCAL_POS_IP}:${this.LOCAL_PORT}%[3]s`;",
	"        } else if (this.MODE === '%[2]s') {",
	"            return this.CLOUD_API.replace('https://', 'wss://').replace('http://', 'ws://') + '%[4]s';",
	"        }",
	"        return null;",
	"    }",
}, "\n"), ModeLocal, ModeCloud, constants.KDSWebSocketPath, constants.KDSCloudWSSuffix)

// Script renders the record for app as a browser script defining CONFIG,
// with the CommonJS export guard the bundles expect. The KDS object carries
// API_BASE and WS_URL as getters over its own fields.
func (s Set) Script(app string) ([]byte, error) {
	var (
		title   string
		globals any
		getters string
	)

	switch strings.ToLower(app) {
	case constants.AppAdmin:
		title = s.Admin.AppName
		globals = adminGlobals{
			APIBase: s.Admin.APIBase,
			AppName: s.Admin.AppName,
			Version: s.Admin.Version,
		}
	case constants.AppPOS:
		title = s.POS.AppName
		globals = posGlobals{
			APIBase:        s.POS.APIBase,
			AppName:        s.POS.AppName,
			Version:        s.POS.Version,
			DefaultStoreID: s.POS.DefaultStoreID,
		}
	case constants.AppKDS:
		v := s.KDS.View()
		title = s.KDS.AppName
		getters = kdsGetters
		globals = kdsGlobals{
			Mode:            v.Mode,
			LocalPOSIP:      v.LocalPOSIP,
			LocalPort:       v.LocalPort,
			CloudAPI:        v.CloudAPI,
			DevAPI:          v.DevAPI,
			AppName:         v.AppName,
			Version:         v.Version,
			RefreshInterval: v.RefreshInterval,
			DefaultStoreID:  v.DefaultStoreID,
			UseWebSocket:    v.UseWebSocket,
		}
	default:
		return nil, errors.Wrapf(ErrUnknownApp, "%q", app)
	}

	body, err := json.MarshalIndent(globals, "", "    ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal globals")
	}
	if getters != "" {
		fields := bytes.TrimSuffix(body, []byte("\n}"))
		body = append(append(fields, ",\n"...), getters+"\n}"...)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// %s Configuration\n", strings.Join(strings.Fields(title), " "))
	fmt.Fprintf(&buf, "const CONFIG = %s;\n\n", body)
	buf.WriteString("if (typeof module !== 'undefined') {\n    module.exports = CONFIG;\n}\n")
	return buf.Bytes(), nil
}
