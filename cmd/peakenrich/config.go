package main

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inodb/peakenrich/internal/errs"
)

// configKeys lists the settings read from the config file, in flag order.
func configKeys() []string {
	keys := make([]string, len(configuredFlags))
	for i, name := range configuredFlags {
		keys[i] = "enrich." + name
	}
	return keys
}

func checkConfigKey(key string) error {
	if !slices.Contains(configKeys(), key) {
		return errs.Preconditionf("unknown config key %q (known: %s)", key, strings.Join(configKeys(), ", "))
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage peakenrich configuration",
		Long: fmt.Sprintf(`Show, get, or set defaults for enrich flags. Config is stored in
~/.peakenrich.yaml. Known keys: %s.`, strings.Join(configKeys(), ", ")),
		Example: `  peakenrich config                          # show all config
  peakenrich config set enrich.workers 8       # test genesets on 8 workers
  peakenrich config set enrich.out-dir results # default directory for --out-prefix
  peakenrich config get enrich.genome          # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd.OutOrStdout(), args[0])
		},
	}
}

// runConfigShow prints the known keys that have a value.
func runConfigShow(w io.Writer) error {
	settings := make(map[string]any)
	for _, key := range configKeys() {
		if v := viper.Get(key); v != nil {
			settings[key] = v
		}
	}
	if len(settings) == 0 {
		fmt.Fprintf(w, "# No configuration set. Config file: ~/.peakenrich.yaml\n# Known keys: %s\n",
			strings.Join(configKeys(), ", "))
		return nil
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(w, string(out))
	return nil
}

func runConfigSet(w io.Writer, key, value string) error {
	if err := checkConfigKey(key); err != nil {
		return err
	}
	viper.Set(key, value)

	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		dir := filepath.Dir(defaultDataDir())
		if dir == "." {
			return fmt.Errorf("cannot determine home directory")
		}
		cfgFile = filepath.Join(dir, configName+".yaml")
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(w, "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(w io.Writer, key string) error {
	if err := checkConfigKey(key); err != nil {
		return err
	}
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(w, val)
	return nil
}
