package main

import (
	"context"
	"errors"

	"github.com/fatih/color"
	"github.com/sflvault/client-go"
	"github.com/sflvault/client-go/internal/crypto"
	"github.com/spf13/cobra"
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <service>",
		Short: "Show a service, its parents and their decrypted secrets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				id, err := c.ResolveID(args[0], sflvault.KindService)
				if err != nil {
					return err
				}
				services, err := c.ServiceTree(ctx, id)
				if err != nil {
					return err
				}
				defer func() {
					for i := range services {
						crypto.Zero(services[i].Secret)
					}
				}()

				for _, svc := range services {
					a.printf("%s %s\n", color.CyanString(sflvault.FormatVaultID(sflvault.KindService, svc.ID)), svc.URL)
					if svc.ParentServiceID != 0 {
						a.printf("  parent:  %s\n", sflvault.FormatVaultID(sflvault.KindService, svc.ParentServiceID))
					}
					if svc.Notes != "" {
						a.printf("  notes:   %s\n", svc.Notes)
					}
					if svc.Denied {
						a.log.Debugf("s#%d: %s", svc.ID, svc.DeniedReason)
						a.printf("  secret:  %s\n", color.RedString("[access denied]"))
						continue
					}
					a.printf("  secret:  %s\n", svc.Secret)
				}
				return nil
			})
		},
	}
}

func newConnectCmd(a *app) *cobra.Command {
	var reveal bool
	cmd := &cobra.Command{
		Use:   "connect <service>",
		Short: "Print the chain of services needed to reach a service",
		Long: `Fetches the service and every parent it is reached through, decrypts
each secret, and prints the hops from the outermost one inwards.

The command fails without printing anything if any hop cannot be
decrypted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				id, err := c.ResolveID(args[0], sflvault.KindService)
				if err != nil {
					return err
				}
				hops, err := c.ConnectionPlan(ctx, id)
				if err != nil {
					return err
				}
				for i, h := range hops {
					line := color.CyanString(sflvault.FormatVaultID(sflvault.KindService, h.ServiceID)) + " " + h.URL
					if reveal {
						line += " " + color.YellowString(string(h.Secret))
					}
					a.printf("%d. %s\n", i+1, line)
					crypto.Zero(h.Secret)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&reveal, "show-secrets", false, "print each hop's secret")
	return cmd
}

func newServiceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Add, edit and delete services",
	}
	cmd.AddCommand(
		newServiceAddCmd(a),
		newServiceEditCmd(a),
		newServicePasswdCmd(a),
		newServiceDelCmd(a),
	)
	return cmd
}

func newServiceAddCmd(a *app) *cobra.Command {
	var (
		machine string
		parent  string
		notes   string
		groups  []string
	)
	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Add a service and encrypt its secret for the given groups",
		Example: `  sflvault service add --machine m#3 --group g#1 ssh://root@web1
  sflvault service add --machine m#3 --parent s#12 --group g#1 --group g#4 mysql://admin@localhost`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				svc := sflvault.NewService{URL: args[0], Notes: notes}

				var err error
				if svc.MachineID, err = c.ResolveID(machine, sflvault.KindMachine); err != nil {
					return err
				}
				if parent != "" {
					if svc.ParentServiceID, err = c.ResolveID(parent, sflvault.KindService); err != nil {
						return err
					}
				}
				if svc.GroupIDs, err = resolveAll(c, groups, sflvault.KindGroup); err != nil {
					return err
				}

				svc.Secret, err = a.passphrase().Passphrase(ctx, "Enter the service's password: ")
				if err != nil {
					return err
				}
				defer crypto.Zero(svc.Secret)

				id, err := c.ServiceAdd(ctx, svc)
				if err != nil {
					return err
				}
				a.printf("%s Added service %s\n", color.GreenString("✓"), color.CyanString(sflvault.FormatVaultID(sflvault.KindService, id)))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&machine, "machine", "m", "", "machine the service runs on (required)")
	cmd.Flags().StringVarP(&parent, "parent", "p", "", "service this one is reached through")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "free-form notes")
	cmd.Flags().StringArrayVarP(&groups, "group", "g", nil, "group that may read the secret (repeatable, required)")
	_ = cmd.MarkFlagRequired("machine")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}

func newServiceEditCmd(a *app) *cobra.Command {
	var (
		url    string
		notes  string
		parent string
	)
	cmd := &cobra.Command{
		Use:   "edit <service>",
		Short: "Change a service's URL, notes or parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				id, err := c.ResolveID(args[0], sflvault.KindService)
				if err != nil {
					return err
				}
				data := sflvault.ServiceData{URL: url, Notes: notes}
				if parent != "" {
					if data.ParentServiceID, err = c.ResolveID(parent, sflvault.KindService); err != nil {
						return err
					}
				}
				if err := c.ServicePut(ctx, id, data); err != nil {
					return err
				}
				a.log.Infof("Saved %s", sflvault.FormatVaultID(sflvault.KindService, id))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "new URL")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "new notes")
	cmd.Flags().StringVarP(&parent, "parent", "p", "", "new parent service")
	return cmd
}

func newServicePasswdCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <service>",
		Short: "Replace a service's secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				id, err := c.ResolveID(args[0], sflvault.KindService)
				if err != nil {
					return err
				}
				secret, err := a.passphrase().Passphrase(ctx, "Enter the new password: ")
				if err != nil {
					return err
				}
				defer crypto.Zero(secret)

				if err := c.ServicePasswd(ctx, id, secret); err != nil {
					return err
				}
				a.printf("%s Password changed for %s\n", color.GreenString("✓"), color.CyanString(sflvault.FormatVaultID(sflvault.KindService, id)))
				return nil
			})
		},
	}
}

func newServiceDelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "del <service>",
		Short: "Delete a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				id, err := c.ResolveID(args[0], sflvault.KindService)
				if err != nil {
					return err
				}
				err = c.ServiceDel(ctx, id)
				var vaultErr *sflvault.VaultError
				if errors.As(err, &vaultErr) && len(vaultErr.Dependents) > 0 {
					a.log.Warnf("%s is still used by:", sflvault.FormatVaultID(sflvault.KindService, id))
					for _, d := range vaultErr.Dependents {
						a.log.Warnf("  %s %s", sflvault.FormatVaultID(sflvault.KindService, d.ID), d.URL)
					}
				}
				if err != nil {
					return err
				}
				a.printf("%s Deleted %s\n", color.GreenString("✓"), sflvault.FormatVaultID(sflvault.KindService, id))
				return nil
			})
		},
	}
}
