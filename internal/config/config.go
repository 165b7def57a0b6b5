package config

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/professor93/tgconfig/pkg/constants"
)

// ErrUnknownApp is returned when an application name is not admin, kds or pos.
var ErrUnknownApp = errors.New("unknown application")

// AdminConfig is the TG-Admin configuration record
type AdminConfig struct {
	APIBase string `koanf:"api_base" json:"api_base" validate:"required,http_url"`
	AppName string `koanf:"app_name" json:"app_name" validate:"required"`
	Version string `koanf:"version" json:"version" validate:"required"`
}

// PosConfig is the TG-WebPOS configuration record
type PosConfig struct {
	APIBase        string `koanf:"api_base" json:"api_base" validate:"required,http_url"`
	AppName        string `koanf:"app_name" json:"app_name" validate:"required"`
	Version        string `koanf:"version" json:"version" validate:"required"`
	DefaultStoreID int    `koanf:"default_store_id" json:"default_store_id" validate:"min=1"`
}

// KdsConfig is the TG-KDS configuration record.
// The effective API base and websocket endpoint are not fields: they are
// derived from Mode and the URL fields on every call (see APIBase and
// WebSocketURL).
type KdsConfig struct {
	Mode            Mode   `koanf:"mode" json:"mode"`
	LocalPOSIP      string `koanf:"local_pos_ip" json:"local_pos_ip" validate:"required,ip|hostname"`
	LocalPort       int    `koanf:"local_port" json:"local_port" validate:"min=1,max=65535"`
	CloudAPI        string `koanf:"cloud_api" json:"cloud_api" validate:"required,http_url"`
	DevAPI          string `koanf:"dev_api" json:"dev_api" validate:"required,http_url"`
	AppName         string `koanf:"app_name" json:"app_name" validate:"required"`
	Version         string `koanf:"version" json:"version" validate:"required"`
	RefreshInterval int    `koanf:"refresh_interval" json:"refresh_interval" validate:"min=100"` // milliseconds
	DefaultStoreID  int    `koanf:"default_store_id" json:"default_store_id" validate:"min=1"`
	UseWebSocket    bool   `koanf:"use_websocket" json:"use_websocket"`
}

// Set holds the three front-end records. It is a plain value: copies are
// independent and nothing in this package mutates a Set after Load returns.
type Set struct {
	Admin AdminConfig `koanf:"admin" json:"admin"`
	KDS   KdsConfig   `koanf:"kds" json:"kds"`
	POS   PosConfig   `koanf:"pos" json:"pos"`
}

// Default returns the shipped configuration for all three applications
func Default() Set {
	return Set{
		Admin: AdminConfig{
			APIBase: constants.DevAPIBase,
			AppName: constants.AdminAppName,
			Version: constants.DefaultVersion,
		},
		KDS: KdsConfig{
			Mode:            Mode(constants.KDSDefaultMode),
			LocalPOSIP:      constants.KDSLocalPOSIP,
			LocalPort:       constants.KDSLocalPort,
			CloudAPI:        constants.ProductionAPIBase,
			DevAPI:          constants.DevAPIBase,
			AppName:         constants.KDSAppName,
			Version:         constants.DefaultVersion,
			RefreshInterval: constants.KDSRefreshInterval,
			DefaultStoreID:  constants.DefaultStoreID,
			UseWebSocket:    constants.KDSUseWebSocket,
		},
		POS: PosConfig{
			APIBase:        constants.DevAPIBase,
			AppName:        constants.POSAppName,
			Version:        constants.DefaultVersion,
			DefaultStoreID: constants.DefaultStoreID,
		},
	}
}

// Apps lists the application names in a stable order
func Apps() []string {
	return []string{constants.AppAdmin, constants.AppKDS, constants.AppPOS}
}

// Get returns the raw record for an application name
func (s Set) Get(app string) (any, error) {
	switch strings.ToLower(app) {
	case constants.AppAdmin:
		return s.Admin, nil
	case constants.AppKDS:
		return s.KDS, nil
	case constants.AppPOS:
		return s.POS, nil
	}
	return nil, errors.Wrapf(ErrUnknownApp, "%q", app)
}

// View returns the record as served to clients. For KDS this includes
// the resolved endpoints.
func (s Set) View(app string) (any, error) {
	if strings.EqualFold(app, constants.AppKDS) {
		return s.KDS.View(), nil
	}
	return s.Get(app)
}

// toMap flattens the set into the nested map layout koanf works with
func (s Set) toMap() map[string]interface{} {
	return map[string]interface{}{
		constants.AppAdmin: map[string]interface{}{
			"api_base": s.Admin.APIBase,
			"app_name": s.Admin.AppName,
			"version":  s.Admin.Version,
		},
		constants.AppKDS: map[string]interface{}{
			"mode":             string(s.KDS.Mode),
			"local_pos_ip":     s.KDS.LocalPOSIP,
			"local_port":       s.KDS.LocalPort,
			"cloud_api":        s.KDS.CloudAPI,
			"dev_api":          s.KDS.DevAPI,
			"app_name":         s.KDS.AppName,
			"version":          s.KDS.Version,
			"refresh_interval": s.KDS.RefreshInterval,
			"default_store_id": s.KDS.DefaultStoreID,
			"use_websocket":    s.KDS.UseWebSocket,
		},
		constants.AppPOS: map[string]interface{}{
			"api_base":         s.POS.APIBase,
			"app_name":         s.POS.AppName,
			"version":          s.POS.Version,
			"default_store_id": s.POS.DefaultStoreID,
		},
	}
}

// KnownKeys returns every "<app>.<key>" path a record understands, sorted
func KnownKeys() []string {
	var keys []string
	for app, fields := range Default().toMap() {
		for key := range fields.(map[string]interface{}) {
			keys = append(keys, app+"."+key)
		}
	}
	sort.Strings(keys)
	return keys
}

// IsKnownKey reports whether path names a record field
func IsKnownKey(path string) bool {
	app, key, ok := strings.Cut(path, ".")
	if !ok {
		return false
	}
	fields, ok := Default().toMap()[app].(map[string]interface{})
	if !ok {
		return false
	}
	_, ok = fields[key]
	return ok
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		return name
	})
	return v
}

// Validate checks every record and reports all violations at once
func (s Set) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validate config")
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace is "Set.kds.local_port"; drop the root type name.
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", path, tagWithParam(fe), fe.Value()))
	}
	return errors.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func tagWithParam(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
