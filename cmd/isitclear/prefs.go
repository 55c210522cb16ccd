package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nibzard/isitclear"
	"github.com/spf13/cobra"
)

func newPrefsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change preferences",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the current preferences",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := c.preferenceStore().Load()
				if err != nil {
					return err
				}
				return printPreferences(cmd.OutOrStdout(), p)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the preferences file path",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), c.preferenceStore().Path())
			},
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Change one preference",
			Long: `Change one preference and save the file.

Keys:
  activationMode        auto, shortcut or manual
  shortcut              key binding such as Ctrl+Shift+C
  autoActivateMinWords  1 to 100
  preferredTone         formal, neutral or casual
  showChangeDetails     true or false
  enabledDomains        comma-separated domain patterns
  disabledDomains       comma-separated domain patterns`,
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				store := c.preferenceStore()
				p, err := store.Load()
				if err != nil {
					return err
				}
				if err := setPreference(p, args[0], args[1]); err != nil {
					return err
				}
				if err := store.Save(p); err != nil {
					return err
				}
				return printPreferences(cmd.OutOrStdout(), p)
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Restore the default preferences",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.preferenceStore().Save(isitclear.DefaultPreferences())
			},
		},
	)
	return cmd
}

// setPreference applies one KEY VALUE pair through the validating setters.
func setPreference(p *isitclear.Preferences, key, value string) error {
	switch key {
	case "activationMode":
		return p.SetActivationMode(isitclear.ActivationMode(value))
	case "shortcut":
		return p.SetShortcut(value)
	case "autoActivateMinWords":
		n, err := strconv.Atoi(value)
		if err != nil {
			return isitclear.Errorf(isitclear.CodeInvalidPreference, "autoActivateMinWords: %q is not a number", value)
		}
		return p.SetAutoActivateMinWords(n)
	case "preferredTone":
		return p.SetPreferredTone(isitclear.Tone(value))
	case "showChangeDetails":
		show, err := strconv.ParseBool(value)
		if err != nil {
			return isitclear.Errorf(isitclear.CodeInvalidPreference, "showChangeDetails: %q is not a boolean", value)
		}
		p.SetShowChangeDetails(show)
		return nil
	case "enabledDomains":
		return p.SetEnabledDomains(splitList(value))
	case "disabledDomains":
		return p.SetDisabledDomains(splitList(value))
	}
	return isitclear.Errorf(isitclear.CodeInvalidPreference, "unknown preference %q", key)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printPreferences(w io.Writer, p *isitclear.Preferences) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
