package main

import (
	"context"

	"github.com/fatih/color"
	"github.com/sflvault/client-go"
	"github.com/spf13/cobra"
)

func newGroupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage groups and their members and services",
	}
	cmd.AddCommand(
		newGroupAddCmd(a),
		newGroupListCmd(a),
		newGroupDelCmd(a),
		newGroupAddUserCmd(a),
		newGroupDelUserCmd(a),
		newGroupAddServiceCmd(a),
		newGroupDelServiceCmd(a),
	)
	return cmd
}

func newGroupAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Create a group with you as its first member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				id, err := c.GroupAdd(ctx, args[0])
				if err != nil {
					return err
				}
				a.printf("%s Added group %s\n", color.GreenString("✓"), color.CyanString(sflvault.FormatVaultID(sflvault.KindGroup, id)))
				return nil
			})
		},
	}
}

func newGroupListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				groups, err := c.GroupList(ctx)
				if err != nil {
					return err
				}
				for _, g := range groups {
					line := color.CyanString(sflvault.FormatVaultID(sflvault.KindGroup, g.ID)) + " " + g.Name
					switch {
					case g.Admin:
						line += color.GreenString(" (admin)")
					case g.Member:
						line += color.GreenString(" (member)")
					}
					a.printf("%s\n", line)
				}
				return nil
			})
		},
	}
}

func newGroupDelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "del <group>",
		Short: "Delete an empty group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				id, err := c.ResolveID(args[0], sflvault.KindGroup)
				if err != nil {
					return err
				}
				if err := c.GroupDel(ctx, id); err != nil {
					return err
				}
				a.printf("%s Deleted %s\n", color.GreenString("✓"), sflvault.FormatVaultID(sflvault.KindGroup, id))
				return nil
			})
		},
	}
}

func newGroupAddUserCmd(a *app) *cobra.Command {
	var admin bool
	cmd := &cobra.Command{
		Use:   "add-user <group> <username>",
		Short: "Give a user access to a group",
		Long: `Unlocks your copy of the group key and seals it to the new member's
public key. You must already be a member of the group.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				gid, err := c.ResolveID(args[0], sflvault.KindGroup)
				if err != nil {
					return err
				}
				if err := c.GroupAddUser(ctx, gid, args[1], admin); err != nil {
					return err
				}
				a.printf("%s %s added to %s\n", color.GreenString("✓"), color.YellowString(args[1]), sflvault.FormatVaultID(sflvault.KindGroup, gid))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&admin, "admin", "a", false, "make the user a group admin")
	return cmd
}

func newGroupDelUserCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "del-user <group> <username>",
		Short: "Remove a user from a group",
		Long: `Removes the user's copy of the group key from the vault.

The group key is not rotated. Anything the user already decrypted, or a
key they kept, stays readable to them.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				gid, err := c.ResolveID(args[0], sflvault.KindGroup)
				if err != nil {
					return err
				}
				if err := c.GroupDelUser(ctx, gid, args[1]); err != nil {
					return err
				}
				a.printf("%s %s removed from %s\n", color.GreenString("✓"), color.YellowString(args[1]), sflvault.FormatVaultID(sflvault.KindGroup, gid))
				a.log.Warnf("The group key was not rotated")
				return nil
			})
		},
	}
}

func newGroupAddServiceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add-service <group> <service>",
		Short: "Let a group read a service's secret",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				gid, err := c.ResolveID(args[0], sflvault.KindGroup)
				if err != nil {
					return err
				}
				sid, err := c.ResolveID(args[1], sflvault.KindService)
				if err != nil {
					return err
				}
				if err := c.GroupAddService(ctx, gid, sid); err != nil {
					return err
				}
				a.printf("%s %s added to %s\n", color.GreenString("✓"),
					sflvault.FormatVaultID(sflvault.KindService, sid), sflvault.FormatVaultID(sflvault.KindGroup, gid))
				return nil
			})
		},
	}
}

func newGroupDelServiceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "del-service <group> <service>",
		Short: "Stop a group from reading a service's secret",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				gid, err := c.ResolveID(args[0], sflvault.KindGroup)
				if err != nil {
					return err
				}
				sid, err := c.ResolveID(args[1], sflvault.KindService)
				if err != nil {
					return err
				}
				if err := c.GroupDelService(ctx, gid, sid); err != nil {
					return err
				}
				a.printf("%s %s removed from %s\n", color.GreenString("✓"),
					sflvault.FormatVaultID(sflvault.KindService, sid), sflvault.FormatVaultID(sflvault.KindGroup, gid))
				return nil
			})
		},
	}
}
