package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newAliasCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alias",
		Short: "Name vault entities, e.g. \"web\" for s#12",
		Long: `Aliases are stored in the config file and are accepted wherever an
entity reference is, so "sflvault show web" works after
"sflvault alias set web s#12".`,
	}

	set := &cobra.Command{
		Use:   "set <name> <target>",
		Short: "Create or replace an alias",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			if err := store.SetAlias(args[0], args[1]); err != nil {
				return err
			}
			a.printf("%s %s → %s\n", color.GreenString("✓"), color.YellowString(args[0]), args[1])
			return nil
		},
	}

	get := &cobra.Command{
		Use:   "get <name>",
		Short: "Print an alias target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			target, ok, err := store.ResolveAlias(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no alias named %q", args[0])
			}
			a.printf("%s\n", target)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "del <name>",
		Short: "Remove an alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			found, err := store.DelAlias(args[0])
			if err != nil {
				return err
			}
			if !found {
				a.log.Warnf("No alias named %q", args[0])
				return nil
			}
			a.printf("%s Removed %s\n", color.GreenString("✓"), color.YellowString(args[0]))
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			aliases, err := store.Aliases()
			if err != nil {
				return err
			}
			for _, al := range aliases {
				a.printf("%s\t%s\n", al.Name, al.Target)
			}
			return nil
		},
	}

	cmd.AddCommand(set, get, del, list)
	return cmd
}
