package sflvault

import (
	"context"

	"github.com/sflvault/client-go/internal/api"
)

// Records returned by listing and get operations.
type (
	Customer      = api.Customer
	Machine       = api.Machine
	Group         = api.Group
	User          = api.User
	UserGroup     = api.UserGroup
	CustomerData  = api.CustomerData
	MachineData   = api.MachineData
	GroupData     = api.GroupData
	SearchResults = map[string]api.SearchCustomer
)

// UserAdd creates a user who must then run user setup.
func (c *Client) UserAdd(ctx context.Context, username string, isAdmin bool) (int64, error) {
	var id int64
	err := c.protected(ctx, "user_add", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		reply, err := c.api.UserAdd(ctx, token, username, isAdmin)
		if err != nil {
			return err
		}
		id = reply.UserID
		return nil
	})
	return id, err
}

// UserDel removes a user and all their wrapped keys.
func (c *Client) UserDel(ctx context.Context, username string) error {
	return c.protected(ctx, "user_del", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		_, err := c.api.UserDel(ctx, token, username)
		return err
	})
}

// UserList lists users, with their groups when withGroups is set.
func (c *Client) UserList(ctx context.Context, withGroups bool) ([]User, error) {
	var out []User
	err := c.protected(ctx, "user_list", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		reply, err := c.api.UserList(ctx, token, withGroups)
		if err != nil {
			return err
		}
		out = reply.List
		return nil
	})
	return out, err
}

// CustomerAdd creates a customer.
func (c *Client) CustomerAdd(ctx context.Context, name string) (int64, error) {
	var id int64
	err := c.protected(ctx, "customer_add", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		reply, err := c.api.CustomerAdd(ctx, token, name)
		if err != nil {
			return err
		}
		id = reply.CustomerID
		return nil
	})
	return id, err
}

// CustomerGet fetches a customer.
func (c *Client) CustomerGet(ctx context.Context, id int64) (*Customer, error) {
	var out *Customer
	err := c.protected(ctx, "customer_get", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		reply, err := c.api.CustomerGet(ctx, token, id)
		if err != nil {
			return err
		}
		out = &reply.Customer
		return nil
	})
	return out, err
}

// CustomerPut saves edited customer fields.
func (c *Client) CustomerPut(ctx context.Context, id int64, data CustomerData) error {
	return c.protected(ctx, "customer_put", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		_, err := c.api.CustomerPut(ctx, token, id, data)
		return err
	})
}

// CustomerDel deletes a customer with its machines and services. The
// vault refuses with Dependents when services elsewhere rely on them.
func (c *Client) CustomerDel(ctx context.Context, id int64) error {
	return c.protected(ctx, "customer_del", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		_, err := c.api.CustomerDel(ctx, token, id)
		return err
	})
}

// CustomerList lists customers.
func (c *Client) CustomerList(ctx context.Context) ([]Customer, error) {
	var out []Customer
	err := c.protected(ctx, "customer_list", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		reply, err := c.api.CustomerList(ctx, token)
		if err != nil {
			return err
		}
		out = reply.List
		return nil
	})
	return out, err
}

// MachineAdd creates a machine. CustomerID is required.
func (c *Client) MachineAdd(ctx context.Context, m Machine) (int64, error) {
	var id int64
	err := c.protected(ctx, "machine_add", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		reply, err := c.api.MachineAdd(ctx, token, m)
		if err != nil {
			return err
		}
		id = reply.MachineID
		return nil
	})
	return id, err
}

// MachineGet fetches a machine.
func (c *Client) MachineGet(ctx context.Context, id int64) (*Machine, error) {
	var out *Machine
	err := c.protected(ctx, "machine_get", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		reply, err := c.api.MachineGet(ctx, token, id)
		if err != nil {
			return err
		}
		out = &reply.Machine
		return nil
	})
	return out, err
}

// MachinePut saves edited machine fields.
func (c *Client) MachinePut(ctx context.Context, id int64, data MachineData) error {
	return c.protected(ctx, "machine_put", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		_, err := c.api.MachinePut(ctx, token, id, data)
		return err
	})
}

// MachineDel deletes a machine and its services.
func (c *Client) MachineDel(ctx context.Context, id int64) error {
	return c.protected(ctx, "machine_del", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		_, err := c.api.MachineDel(ctx, token, id)
		return err
	})
}

// MachineList lists machines, for one customer when customerID is non-zero.
func (c *Client) MachineList(ctx context.Context, customerID int64) ([]Machine, error) {
	var out []Machine
	err := c.protected(ctx, "machine_list", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		reply, err := c.api.MachineList(ctx, token, customerID)
		if err != nil {
			return err
		}
		out = reply.List
		return nil
	})
	return out, err
}

// GroupGet fetches a group.
func (c *Client) GroupGet(ctx context.Context, id int64) (*Group, error) {
	var out *Group
	err := c.protected(ctx, "group_get", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		reply, err := c.api.GroupGet(ctx, token, id)
		if err != nil {
			return err
		}
		out = &reply.Group
		return nil
	})
	return out, err
}

// GroupPut saves edited group fields.
func (c *Client) GroupPut(ctx context.Context, id int64, data GroupData) error {
	return c.protected(ctx, "group_put", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		_, err := c.api.GroupPut(ctx, token, id, data)
		return err
	})
}

// GroupDel deletes a group. The vault refuses while services remain in it.
func (c *Client) GroupDel(ctx context.Context, id int64) error {
	return c.protected(ctx, "group_del", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		_, err := c.api.GroupDel(ctx, token, id)
		return err
	})
}

// GroupList lists groups.
func (c *Client) GroupList(ctx context.Context) ([]Group, error) {
	var out []Group
	err := c.protected(ctx, "group_list", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		reply, err := c.api.GroupList(ctx, token)
		if err != nil {
			return err
		}
		out = reply.List
		return nil
	})
	return out, err
}

// Search matches every query term as a regular expression. groupIDs, when
// given, restricts results to services in those groups.
func (c *Client) Search(ctx context.Context, query []string, groupIDs []int64, verbose bool) (SearchResults, error) {
	var out SearchResults
	err := c.protected(ctx, "search", false, func(ctx context.Context, token string, _ *IdentityKey) error {
		reply, err := c.api.Search(ctx, token, query, groupIDs, verbose)
		if err != nil {
			return err
		}
		out = reply.Results
		return nil
	})
	return out, err
}
