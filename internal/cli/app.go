package cli

import (
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/professor93/tgconfig/internal/config"
	"github.com/professor93/tgconfig/internal/logging"
	"github.com/professor93/tgconfig/internal/security"
	"github.com/professor93/tgconfig/internal/settings"
	"github.com/professor93/tgconfig/pkg/constants"
)

// machineID is swapped in tests
var machineID = security.MachineIDForDir

// application is the wiring shared by every command that touches local
// state: logger, data directory and settings store
type application struct {
	logger  *zap.Logger
	dataDir string
	store   *settings.Store
}

// openApp opens the settings store under the data directory. logDir, when
// set, receives daily log files.
func openApp(logDir string) (*application, error) {
	dir := dataDir
	if dir == "" {
		dir = settings.DefaultDataDir()
	}

	if logDir != "" && !filepath.IsAbs(logDir) {
		logDir = filepath.Join(dir, logDir)
	}

	logger, err := logging.New(logging.Options{Debug: debug, Level: logLevel, Dir: logDir})
	if err != nil {
		return nil, err
	}

	id, err := machineID(dir, logger)
	if err != nil {
		return nil, errors.Wrap(err, "get machine ID")
	}

	key, err := security.LoadOrCreateStoreKey(filepath.Join(dir, constants.StoreKeyFileName), id)
	if err != nil {
		return nil, errors.Wrap(err, "load store key")
	}

	store, err := settings.Open(&settings.Config{
		StoreKey: key,
		DataDir:  dir,
		Logger:   logger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open settings store")
	}

	return &application{logger: logger, dataDir: dir, store: store}, nil
}

// Close releases the store and flushes the logger
func (a *application) Close() error {
	err := a.store.Close()
	a.logger.Sync()
	return err
}

// loader builds the layered loader for this data directory
func (a *application) loader() *config.Loader {
	opts := []config.Option{
		config.WithOverrides(a.store),
		config.WithLogger(a.logger),
	}
	if configFile != "" {
		opts = append(opts, config.WithFile(configFile))
	} else {
		opts = append(opts, config.WithOptionalFile(filepath.Join(a.dataDir, constants.ConfigFileName)))
	}
	return config.NewLoader(opts...)
}

// load runs the loader once
func (a *application) load() (config.Set, error) {
	return a.loader().Load()
}
