package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/professor93/tgconfig/internal/config"
	"github.com/professor93/tgconfig/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage local overrides in the encrypted settings store",
	Long: `Overrides are keyed "<app>.<field>", for example kds.local_pos_ip or
pos.default_store_id. They sit above the config file and below TG_*
environment variables. A running server picks them up on its next reload.`,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one override",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("")
		if err != nil {
			return err
		}
		defer a.Close()

		value, err := a.store.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store an override",
	Long: `Stores an override and checks that the records still load and
validate with it. An override that breaks validation is rolled back.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("")
		if err != nil {
			return err
		}
		defer a.Close()

		key, value := args[0], args[1]

		previous, err := a.store.Get(key)
		hadPrevious := err == nil
		if err != nil && !errors.Is(err, settings.ErrNotFound) {
			return err
		}

		if err := a.store.Set(key, value); err != nil {
			return err
		}

		if _, loadErr := a.load(); loadErr != nil {
			if hadPrevious {
				err = a.store.Set(key, previous)
			} else {
				err = a.store.Delete(key)
			}
			if err != nil {
				a.logger.Error("Failed to roll back override", zap.String("key", key), zap.Error(err))
			}
			return errors.Wrapf(loadErr, "rejected %s=%q", key, value)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
		return nil
	},
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove an override",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.store.Delete(args[0])
	},
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored overrides, or every known key with --all",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("")
		if err != nil {
			return err
		}
		defer a.Close()

		all, err := a.store.All()
		if err != nil {
			return err
		}

		keys := config.KnownKeys()
		if !listAllKeys {
			keys, err = a.store.Keys()
			if err != nil {
				return err
			}
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, k := range keys {
			value, ok := all[k]
			if !ok {
				value = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\n", k, value)
		}
		return tw.Flush()
	},
}

var listAllKeys bool

func init() {
	settingsListCmd.Flags().BoolVar(&listAllKeys, "all", false, "Include keys without an override")

	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd, settingsUnsetCmd, settingsListCmd)
	rootCmd.AddCommand(settingsCmd)
}
