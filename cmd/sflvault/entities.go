package main

import (
	"context"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/sflvault/client-go"
	"github.com/spf13/cobra"
)

func newCustomerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customer",
		Short: "Manage customers",
	}

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				id, err := c.CustomerAdd(ctx, args[0])
				if err != nil {
					return err
				}
				a.printf("%s Added customer %s\n", color.GreenString("✓"), color.CyanString(sflvault.FormatVaultID(sflvault.KindCustomer, id)))
				return nil
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List customers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				customers, err := c.CustomerList(ctx)
				if err != nil {
					return err
				}
				for _, cu := range customers {
					a.printf("%s %s\n", color.CyanString(sflvault.FormatVaultID(sflvault.KindCustomer, cu.ID)), cu.Name)
				}
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "del <customer>",
		Short: "Delete a customer with all its machines and services",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				id, err := c.ResolveID(args[0], sflvault.KindCustomer)
				if err != nil {
					return err
				}
				if err := c.CustomerDel(ctx, id); err != nil {
					return err
				}
				a.printf("%s Deleted %s\n", color.GreenString("✓"), sflvault.FormatVaultID(sflvault.KindCustomer, id))
				return nil
			})
		},
	}

	cmd.AddCommand(add, list, del)
	return cmd
}

func newMachineCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "machine",
		Short: "Manage machines",
	}

	var m sflvault.Machine
	var customer string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				var err error
				if m.CustomerID, err = c.ResolveID(customer, sflvault.KindCustomer); err != nil {
					return err
				}
				m.Name = args[0]
				id, err := c.MachineAdd(ctx, m)
				if err != nil {
					return err
				}
				a.printf("%s Added machine %s\n", color.GreenString("✓"), color.CyanString(sflvault.FormatVaultID(sflvault.KindMachine, id)))
				return nil
			})
		},
	}
	add.Flags().StringVarP(&customer, "customer", "C", "", "customer owning the machine (required)")
	add.Flags().StringVar(&m.FQDN, "fqdn", "", "fully qualified domain name")
	add.Flags().StringVar(&m.IP, "ip", "", "IP address")
	add.Flags().StringVar(&m.Location, "location", "", "physical location")
	add.Flags().StringVarP(&m.Notes, "notes", "n", "", "free-form notes")
	_ = add.MarkFlagRequired("customer")

	var listCustomer string
	list := &cobra.Command{
		Use:   "list",
		Short: "List machines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				var customerID int64
				if listCustomer != "" {
					var err error
					if customerID, err = c.ResolveID(listCustomer, sflvault.KindCustomer); err != nil {
						return err
					}
				}
				machines, err := c.MachineList(ctx, customerID)
				if err != nil {
					return err
				}
				for _, m := range machines {
					a.printf("%s %s", color.CyanString(sflvault.FormatVaultID(sflvault.KindMachine, m.ID)), m.Name)
					if m.FQDN != "" {
						a.printf(" (%s)", m.FQDN)
					}
					a.printf("\n")
				}
				return nil
			})
		},
	}
	list.Flags().StringVarP(&listCustomer, "customer", "C", "", "only this customer's machines")

	del := &cobra.Command{
		Use:   "del <machine>",
		Short: "Delete a machine and its services",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				id, err := c.ResolveID(args[0], sflvault.KindMachine)
				if err != nil {
					return err
				}
				if err := c.MachineDel(ctx, id); err != nil {
					return err
				}
				a.printf("%s Deleted %s\n", color.GreenString("✓"), sflvault.FormatVaultID(sflvault.KindMachine, id))
				return nil
			})
		},
	}

	cmd.AddCommand(add, list, del)
	return cmd
}

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage vault users",
	}

	var admin bool
	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a user, who then runs user-setup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				id, err := c.UserAdd(ctx, args[0], admin)
				if err != nil {
					return err
				}
				a.printf("%s Added user %s (%s)\n", color.GreenString("✓"), color.YellowString(args[0]), sflvault.FormatVaultID(sflvault.KindUser, id))
				a.printf("%s They must now run: sflvault user-setup %s <url>\n", color.CyanString("→"), args[0])
				return nil
			})
		},
	}
	add.Flags().BoolVarP(&admin, "admin", "a", false, "make the user a vault admin")

	del := &cobra.Command{
		Use:   "del <username>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				if err := c.UserDel(ctx, args[0]); err != nil {
					return err
				}
				a.printf("%s Deleted user %s\n", color.GreenString("✓"), color.YellowString(args[0]))
				return nil
			})
		},
	}

	var withGroups bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				users, err := c.UserList(ctx, withGroups)
				if err != nil {
					return err
				}
				for _, u := range users {
					line := color.CyanString(sflvault.FormatVaultID(sflvault.KindUser, u.ID)) + " " + u.Username
					if u.IsAdmin {
						line += color.GreenString(" (admin)")
					}
					if u.WaitingSetup {
						line += color.YellowString(" (waiting setup)")
					}
					a.printf("%s\n", line)
					for _, g := range u.Groups {
						a.printf("    %s %s\n", sflvault.FormatVaultID(sflvault.KindGroup, g.ID), g.Name)
					}
				}
				return nil
			})
		},
	}
	list.Flags().BoolVarP(&withGroups, "groups", "g", false, "include group memberships")

	cmd.AddCommand(add, del, list)
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		groups  []string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "search <term>...",
		Short: "Find customers, machines and services",
		Long: `Every term is a case-insensitive regular expression. A service matches
when each term matches one of its fields or those of its machine or
customer.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, c *sflvault.Client) error {
				groupIDs, err := resolveAll(c, groups, sflvault.KindGroup)
				if err != nil {
					return err
				}
				results, err := c.Search(ctx, args, groupIDs, verbose)
				if err != nil {
					return err
				}
				printSearch(a, results)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVarP(&groups, "group", "g", nil, "only services in this group (repeatable)")
	cmd.Flags().BoolVar(&verbose, "details", false, "include notes and locations")
	return cmd
}

func printSearch(a *app, results sflvault.SearchResults) {
	for _, cid := range sortedKeys(results) {
		cu := results[cid]
		a.printf("%s %s\n", color.CyanString("c#"+cid), cu.Name)
		for _, mid := range sortedKeys(cu.Machines) {
			m := cu.Machines[mid]
			a.printf("  %s %s\n", color.CyanString("m#"+mid), m.Name)
			for _, sid := range sortedKeys(m.Services) {
				s := m.Services[sid]
				a.printf("    %s %s\n", color.CyanString("s#"+sid), s.URL)
				if s.Notes != "" {
					a.printf("      %s\n", s.Notes)
				}
			}
		}
	}
}

// sortedKeys orders numeric string keys by value.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(x, y string) int {
		if len(x) != len(y) {
			return len(x) - len(y)
		}
		return strings.Compare(x, y)
	})
	return keys
}
