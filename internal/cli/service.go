package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/professor93/tgconfig/internal/reload"
	"github.com/professor93/tgconfig/internal/service"
	"github.com/professor93/tgconfig/pkg/constants"
)

var runOpts = serveOptions{
	port:   constants.DefaultPort,
	reload: reload.DefaultSchedule,
	logDir: "logs",
}

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Install and control the tgconfig OS service",
}

var serviceRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run under the service manager (used by the installed service)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := newServiceManager()
		if err != nil {
			return err
		}
		return manager.GetProgram().Run()
	},
}

var serviceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the service status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := newServiceManager()
		if err != nil {
			return err
		}

		status, _, err := manager.GetStatus()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), status)
		return nil
	},
}

func init() {
	for _, action := range []string{
		service.ActionInstall,
		service.ActionUninstall,
		service.ActionStart,
		service.ActionStop,
		service.ActionRestart,
	} {
		serviceCmd.AddCommand(controlCommand(action))
	}

	serviceRunCmd.Flags().IntVar(&runOpts.port, "port", constants.DefaultPort, "HTTP listen port")
	serviceRunCmd.Flags().StringVar(&runOpts.reload, "reload", reload.DefaultSchedule, `Reload schedule ("off" disables)`)

	serviceCmd.AddCommand(serviceRunCmd, serviceStatusCmd)
	rootCmd.AddCommand(serviceCmd)
}

func controlCommand(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: fmt.Sprintf("%s the service", titleCase(action)),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newServiceManager()
			if err != nil {
				return err
			}
			return manager.Control(action)
		},
	}
}

// newServiceManager wires the HTTP server into the service lifecycle. The
// installed service re-runs this binary as "service run" with the same
// data directory and config file.
func newServiceManager() (*service.Manager, error) {
	arguments := []string{"service", "run"}
	if dataDir != "" {
		arguments = append(arguments, "--data-dir", dataDir)
	}
	if configFile != "" {
		arguments = append(arguments, "--config", configFile)
	}

	return service.NewManager(&service.Config{
		Arguments: arguments,
		OnStart:   func(ctx context.Context) error { return runServer(ctx, runOpts) },
	})
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
