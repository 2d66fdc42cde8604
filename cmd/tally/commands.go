package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/tally/internal/config"
	"github.com/kalambet/tally/internal/counter"
)

// --- counter ---

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current counter value",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Println(a.counter.Value())
		return nil
	},
}

var incCmd = &cobra.Command{
	Use:   "inc",
	Short: "Increment the counter by the configured step",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMutation((*counter.Store).Increment)
	},
}

var decCmd = &cobra.Command{
	Use:   "dec",
	Short: "Decrement the counter by the configured step",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMutation((*counter.Store).Decrement)
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the counter to the configured default value",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMutation((*counter.Store).Reset)
	},
}

var setCmd = &cobra.Command{
	Use:   "set <n>",
	Short: "Overwrite the counter, ignoring step and bounds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid counter value %q: %w", args[0], err)
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.counter.Set(v); err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	},
}

func runMutation(op func(*counter.Store) (int, error)) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	v, err := op(a.counter)
	if err != nil {
		return err
	}
	fmt.Println(v)
	return nil
}

// --- settings ---

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the counter settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the counter settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		asJSON, _ := cmd.Flags().GetBool("json")
		s := a.settings.Settings()
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}

		for _, f := range settingsFields {
			fmt.Printf("  %s = %s\n", colorize(styleBold, f.name), f.show(s))
		}
		warnInvalid(s)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set a settings field (use \"none\" to clear min or max)",
	Long: `Set a settings field.

Fields:
  ` + strings.Join(settingsFieldNames(), "\n  ") + `

Examples:
  tally settings set step 5
  tally settings set max 12
  tally settings set min none
  tally settings set allow-negative false`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		next, err := applySettingsField(a.settings.Settings(), args[0], args[1])
		if err != nil {
			return err
		}
		if err := a.settings.SetSettings(next); err != nil {
			return err
		}

		printSuccess("Set %s = %s", args[0], args[1])
		warnInvalid(next)
		return nil
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.settings.ResetSettings(); err != nil {
			return err
		}
		printSuccess("Settings restored to defaults")
		return nil
	},
}

func init() {
	settingsShowCmd.Flags().Bool("json", false, "print the stored JSON record")
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsResetCmd)
}

// warnInvalid prints the inconsistencies Validate finds. They are stored anyway.
func warnInvalid(s counter.Settings) {
	if err := s.Validate(); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			printWarning("%s", line)
		}
	}
}

type settingsField struct {
	name string
	show func(counter.Settings) string
	set  func(*counter.Settings, string) error
}

var settingsFields = []settingsField{
	{
		name: "step",
		show: func(s counter.Settings) string { return strconv.Itoa(s.StepValue) },
		set: func(s *counter.Settings, v string) (err error) {
			s.StepValue, err = strconv.Atoi(v)
			return err
		},
	},
	{
		name: "max",
		show: func(s counter.Settings) string { return showBound(s.MaxValue) },
		set: func(s *counter.Settings, v string) (err error) {
			s.MaxValue, err = parseBound(v)
			return err
		},
	},
	{
		name: "min",
		show: func(s counter.Settings) string { return showBound(s.MinValue) },
		set: func(s *counter.Settings, v string) (err error) {
			s.MinValue, err = parseBound(v)
			return err
		},
	},
	{
		name: "allow-negative",
		show: func(s counter.Settings) string { return strconv.FormatBool(s.AllowNegative) },
		set: func(s *counter.Settings, v string) (err error) {
			s.AllowNegative, err = strconv.ParseBool(v)
			return err
		},
	},
	{
		name: "default",
		show: func(s counter.Settings) string { return strconv.Itoa(s.DefaultValue) },
		set: func(s *counter.Settings, v string) (err error) {
			s.DefaultValue, err = strconv.Atoi(v)
			return err
		},
	},
	{
		name: "haptic",
		show: func(s counter.Settings) string { return strconv.FormatBool(s.HapticEnabled) },
		set: func(s *counter.Settings, v string) (err error) {
			s.HapticEnabled, err = strconv.ParseBool(v)
			return err
		},
	},
	{
		name: "sound",
		show: func(s counter.Settings) string { return strconv.FormatBool(s.SoundEnabled) },
		set: func(s *counter.Settings, v string) (err error) {
			s.SoundEnabled, err = strconv.ParseBool(v)
			return err
		},
	},
}

func settingsFieldNames() []string {
	names := make([]string, 0, len(settingsFields))
	for _, f := range settingsFields {
		names = append(names, f.name)
	}
	return names
}

// applySettingsField returns a copy of s with one field changed. s is not modified.
func applySettingsField(s counter.Settings, field, value string) (counter.Settings, error) {
	for _, f := range settingsFields {
		if f.name != field {
			continue
		}
		next := s.Clone()
		if err := f.set(&next, value); err != nil {
			return s, fmt.Errorf("invalid value for %s: %w", field, err)
		}
		return next, nil
	}
	return s, fmt.Errorf("unknown settings field %q (valid: %s)", field, strings.Join(settingsFieldNames(), ", "))
}

func parseBound(v string) (*int, error) {
	if strings.EqualFold(v, "none") {
		return nil, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return nil, err
	}
	return counter.Bound(i), nil
}

func showBound(b *int) string {
	if b == nil {
		return "none"
	}
	return strconv.Itoa(*b)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s  (%s)\n", colorize(styleBold, k.Key), k.Value, k.EnvVar)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

Keys:
  ` + strings.Join(config.ValidKeys(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// --- store ---

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect the shared store",
}

var storeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the raw keys in the shared store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		printStatus("Backend", "%s", a.cfg.Storage.Backend)
		if a.sqlite == nil {
			printStatus("Suite", "%s", a.cfg.Storage.Suite)
			for _, key := range []string{counter.CounterKey, counter.SettingsKey} {
				v, ok, err := a.backend.GetString(key)
				switch {
				case err != nil:
					printError("%s: %v", key, err)
				case ok:
					fmt.Printf("%s  %s\n", colorize(styleBold, key), v)
				}
			}
			return nil
		}

		printStatus("Data dir", "%s", a.cfg.Storage.DataDir)
		entries, err := a.sqlite.Entries()
		if err != nil {
			return fmt.Errorf("listing entries: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("Store is empty.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %s  %s\n",
				colorize(styleBold, e.Key),
				e.UpdatedAt.Local().Format(time.DateTime),
				e.Value,
			)
		}
		return nil
	},
}

func init() {
	storeCmd.AddCommand(storeShowCmd)
}
