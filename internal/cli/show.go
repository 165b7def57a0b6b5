package cli

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/professor93/tgconfig/internal/client"
	"github.com/professor93/tgconfig/internal/config"
	"github.com/professor93/tgconfig/pkg/constants"
)

var (
	showJS     bool
	showRemote string
)

var showCmd = &cobra.Command{
	Use:   "show [admin|kds|pos]",
	Short: "Print resolved configuration records",
	Long: `Prints the records as JSON. Without an application all three are
printed keyed by name. The KDS record includes its resolved api_base and
ws_url. --js prints the config.js a browser would receive instead.

With --remote the records are fetched from a running server rather than
loaded from the local data directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := ""
		if len(args) == 1 {
			app = strings.ToLower(args[0])
		}
		if showJS && app == "" {
			return errors.New("--js needs an application")
		}

		if showRemote != "" {
			return showFromServer(cmd.Context(), cmd.OutOrStdout(), app)
		}
		return showLocal(cmd.OutOrStdout(), app)
	},
}

func init() {
	showCmd.Flags().BoolVar(&showJS, "js", false, "Render as config.js")
	showCmd.Flags().StringVar(&showRemote, "remote", "", "Fetch from a running server (e.g. http://192.168.0.100:8090)")
	rootCmd.AddCommand(showCmd)
}

func showLocal(w io.Writer, app string) error {
	a, err := openApp("")
	if err != nil {
		return err
	}
	defer a.Close()

	set, err := a.load()
	if err != nil {
		return err
	}

	if showJS {
		script, err := set.Script(app)
		if err != nil {
			return err
		}
		_, err = w.Write(script)
		return err
	}

	if app != "" {
		view, err := set.View(app)
		if err != nil {
			return err
		}
		return printJSON(w, view)
	}

	all := make(map[string]interface{}, 3)
	for _, name := range config.Apps() {
		all[name], _ = set.View(name)
	}
	return printJSON(w, all)
}

func showFromServer(ctx context.Context, w io.Writer, app string) error {
	c := client.New(showRemote)

	if showJS {
		script, err := c.Script(ctx, app)
		if err != nil {
			return err
		}
		_, err = w.Write(script)
		return err
	}

	fetch := map[string]func() (interface{}, error){
		constants.AppAdmin: func() (interface{}, error) { return c.Admin(ctx) },
		constants.AppKDS:   func() (interface{}, error) { return c.KDS(ctx) },
		constants.AppPOS:   func() (interface{}, error) { return c.POS(ctx) },
	}

	if app != "" {
		f, ok := fetch[app]
		if !ok {
			return errors.Wrapf(config.ErrUnknownApp, "%q", app)
		}
		record, err := f()
		if err != nil {
			return err
		}
		return printJSON(w, record)
	}

	all := make(map[string]interface{}, 3)
	for _, name := range config.Apps() {
		record, err := fetch[name]()
		if err != nil {
			return err
		}
		all[name] = record
	}
	return printJSON(w, all)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
