package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/matthewbaird/sitecontent/internal/crud"
	"github.com/matthewbaird/sitecontent/internal/store/httpstore"
	"github.com/matthewbaird/sitecontent/internal/types"
	"github.com/matthewbaird/sitecontent/internal/validate"
)

const envPrefix = "SITECTL"

// Config keys.
const (
	cfgAPIURL  = "api_url"
	cfgTimeout = "timeout"
	cfgOutput  = "output"
)

// app carries what every subcommand needs once configuration is resolved.
type app struct {
	v          *viper.Viper
	configFile string

	client    *httpstore.Client
	validator *validate.Validator
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	a.v.SetDefault(cfgAPIURL, "http://localhost:8080")
	a.v.SetDefault(cfgTimeout, 10*time.Second)
	a.v.SetDefault(cfgOutput, "table")

	root := &cobra.Command{
		Use:   "sitectl",
		Short: "Manage site content elements",
		Long: `sitectl lists, creates, edits, deletes and reorders the statistics,
pillars, policies, services and projects shown on the public site.

Kinds may be given singular or plural: "pillar" and "pillars" are the same.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configFile, "config", "", "config file (default: ~/.sitectl.yaml)")
	f.String("api-url", "http://localhost:8080", "base URL of the site content API")
	f.Duration(cfgTimeout, 10*time.Second, "per-request timeout")
	f.StringP(cfgOutput, "o", "table", "output format (table, json)")
	_ = a.v.BindPFlag(cfgAPIURL, f.Lookup("api-url"))
	_ = a.v.BindPFlag(cfgTimeout, f.Lookup(cfgTimeout))
	_ = a.v.BindPFlag(cfgOutput, f.Lookup(cfgOutput))

	root.AddCommand(
		a.kindsCmd(),
		a.listCmd(),
		a.createCmd(),
		a.updateCmd(),
		a.deleteCmd(),
		a.moveCmd(),
		a.reorderCmd(),
		a.watchCmd(),
	)
	return root
}

// setup loads config and builds the API client.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.AutomaticEnv()
	if a.configFile != "" {
		a.v.SetConfigFile(a.configFile)
	} else {
		a.v.SetConfigName(".sitectl")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath("$HOME")
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	switch out := a.v.GetString(cfgOutput); out {
	case "table", "json":
	default:
		return fmt.Errorf("invalid output %q: want table or json", out)
	}

	client, err := httpstore.New(a.v.GetString(cfgAPIURL), httpstore.WithTimeout(a.v.GetDuration(cfgTimeout)))
	if err != nil {
		return err
	}
	validator, err := validate.Default()
	if err != nil {
		return fmt.Errorf("loading registry: %w", err)
	}
	a.client, a.validator = client, validator
	return nil
}

// manager returns the loaded collection for the kind named by arg.
func (a *app) manager(cmd *cobra.Command, arg string) (crud.Manager, error) {
	k, err := types.ParseKind(arg)
	if err != nil {
		return nil, fmt.Errorf("%w (want one of %s)", err, kindNames())
	}
	m, err := crud.NewDashboard(a.client, a.validator).Manager(k)
	if err != nil {
		return nil, err
	}
	if err := m.Load(cmd.Context()); err != nil {
		return nil, fmt.Errorf("loading %s: %w", k.Resource(), err)
	}
	return m, nil
}

func (a *app) jsonOutput() bool { return a.v.GetString(cfgOutput) == "json" }

func kindNames() string {
	names := make([]string, len(types.Kinds))
	for i, k := range types.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
