// Package cli implements the tgconfig command line
package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/professor93/tgconfig/pkg/constants"
)

var (
	// dataDir holds the settings database, store key, config file and logs
	dataDir string

	// configFile is an explicit JSON config file; it must exist when set
	configFile string

	debug    bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "tgconfig",
	Short: constants.AppDescription,
	Long: `tgconfig owns the configuration records of TG-Admin, TG-KDS and
TG-WebPOS and serves them as JSON and as drop-in config.js files.

Records are built from shipped defaults, an optional JSON file, local
overrides kept in an encrypted settings store, and TG_* environment
variables, in increasing order of precedence.

Common workflow:

  tgconfig settings set kds.mode cloud   # store a local override
  tgconfig show kds                      # print the resolved record
  tgconfig show kds --js                 # print the config.js a browser gets
  tgconfig serve                         # run the HTTP server in the foreground
  tgconfig service install               # install and start the OS service`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "Data directory (default: platform data directory)")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "JSON config file (default: <data-dir>/tgconfig.json if present)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", constants.DefaultLogLevel, "Log level (debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return errors.Wrap(err, "cli error")
	}
	return nil
}
