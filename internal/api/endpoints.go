package api

import "context"

// Login starts the challenge exchange for username.
func (c *Client) Login(ctx context.Context, username string) (*LoginReply, error) {
	var result LoginReply
	if err := c.call(ctx, "login", &result, username); err != nil {
		return nil, err
	}
	return &result, nil
}

// Authenticate answers a challenge with the base64 plaintext token.
func (c *Client) Authenticate(ctx context.Context, username, token string) (*AuthenticateReply, error) {
	var result AuthenticateReply
	if err := c.call(ctx, "authenticate", &result, username, token); err != nil {
		return nil, err
	}
	return &result, nil
}

// UserSetup registers the public key of a user created by an admin.
func (c *Client) UserSetup(ctx context.Context, username, pubkey string) (*Reply, error) {
	var result Reply
	if err := c.call(ctx, "user_setup", &result, username, pubkey); err != nil {
		return nil, err
	}
	return &result, nil
}

// UserAdd creates a user that must then complete user_setup.
func (c *Client) UserAdd(ctx context.Context, token, username string, isAdmin bool) (*UserAddReply, error) {
	var result UserAddReply
	if err := c.call(ctx, "user_add", &result, token, username, isAdmin); err != nil {
		return nil, err
	}
	return &result, nil
}

// UserDel removes a user.
func (c *Client) UserDel(ctx context.Context, token, username string) (*Reply, error) {
	var result Reply
	if err := c.call(ctx, "user_del", &result, token, username); err != nil {
		return nil, err
	}
	return &result, nil
}

// UserList lists users, with their group memberships when withGroups is set.
func (c *Client) UserList(ctx context.Context, token string, withGroups bool) (*UserListReply, error) {
	var result UserListReply
	if err := c.call(ctx, "user_list", &result, token, withGroups); err != nil {
		return nil, err
	}
	return &result, nil
}

// CustomerAdd creates a customer.
func (c *Client) CustomerAdd(ctx context.Context, token, name string) (*CustomerAddReply, error) {
	var result CustomerAddReply
	if err := c.call(ctx, "customer_add", &result, token, name); err != nil {
		return nil, err
	}
	return &result, nil
}

// CustomerGet fetches a customer.
func (c *Client) CustomerGet(ctx context.Context, token string, id int64) (*CustomerReply, error) {
	var result CustomerReply
	if err := c.call(ctx, "customer_get", &result, token, id); err != nil {
		return nil, err
	}
	return &result, nil
}

// CustomerPut saves edited customer fields.
func (c *Client) CustomerPut(ctx context.Context, token string, id int64, data CustomerData) (*Reply, error) {
	var result Reply
	if err := c.call(ctx, "customer_put", &result, token, id, data); err != nil {
		return nil, err
	}
	return &result, nil
}

// CustomerDel deletes a customer. The vault refuses with dependents when
// services outside the customer rely on its services.
func (c *Client) CustomerDel(ctx context.Context, token string, id int64) (*Reply, error) {
	var result Reply
	if err := c.call(ctx, "customer_del", &result, token, id); err != nil {
		return nil, err
	}
	return &result, nil
}

// CustomerList lists customers.
func (c *Client) CustomerList(ctx context.Context, token string) (*CustomerListReply, error) {
	var result CustomerListReply
	if err := c.call(ctx, "customer_list", &result, token); err != nil {
		return nil, err
	}
	return &result, nil
}

// MachineAdd creates a machine under a customer.
func (c *Client) MachineAdd(ctx context.Context, token string, m Machine) (*MachineAddReply, error) {
	var result MachineAddReply
	err := c.call(ctx, "machine_add", &result, token, m.CustomerID, m.Name, m.FQDN, m.IP, m.Location, m.Notes)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// MachineGet fetches a machine.
func (c *Client) MachineGet(ctx context.Context, token string, id int64) (*MachineReply, error) {
	var result MachineReply
	if err := c.call(ctx, "machine_get", &result, token, id); err != nil {
		return nil, err
	}
	return &result, nil
}

// MachinePut saves edited machine fields.
func (c *Client) MachinePut(ctx context.Context, token string, id int64, data MachineData) (*Reply, error) {
	var result Reply
	if err := c.call(ctx, "machine_put", &result, token, id, data); err != nil {
		return nil, err
	}
	return &result, nil
}

// MachineDel deletes a machine.
func (c *Client) MachineDel(ctx context.Context, token string, id int64) (*Reply, error) {
	var result Reply
	if err := c.call(ctx, "machine_del", &result, token, id); err != nil {
		return nil, err
	}
	return &result, nil
}

// MachineList lists machines, restricted to one customer when customerID
// is non-zero.
func (c *Client) MachineList(ctx context.Context, token string, customerID int64) (*MachineListReply, error) {
	var result MachineListReply
	if err := c.call(ctx, "machine_list", &result, token, customerID); err != nil {
		return nil, err
	}
	return &result, nil
}

// ServiceAdd creates a service. secret is already encrypted under the
// session key and keys holds that session key sealed to each group.
func (c *Client) ServiceAdd(ctx context.Context, token string, data ServiceData, keys []ServiceGroupKey, secret string) (*ServiceAddReply, error) {
	var result ServiceAddReply
	err := c.call(ctx, "service_add", &result, token, data.MachineID, data.ParentServiceID, data.URL, keys, secret, data.Notes)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ServiceGet fetches a service with the caller's ciphertexts.
func (c *Client) ServiceGet(ctx context.Context, token string, id int64) (*ServiceReply, error) {
	var result ServiceReply
	if err := c.call(ctx, "service_get", &result, token, id); err != nil {
		return nil, err
	}
	return &result, nil
}

// ServiceGetTree fetches a service and all of its parents.
func (c *Client) ServiceGetTree(ctx context.Context, token string, id int64) (*ServiceTreeReply, error) {
	var result ServiceTreeReply
	if err := c.call(ctx, "service_get_tree", &result, token, id); err != nil {
		return nil, err
	}
	return &result, nil
}

// ServicePut saves edited service fields. The secret is changed with
// ServicePasswd.
func (c *Client) ServicePut(ctx context.Context, token string, id int64, data ServiceData) (*Reply, error) {
	var result Reply
	if err := c.call(ctx, "service_put", &result, token, id, data); err != nil {
		return nil, err
	}
	return &result, nil
}

// ServiceDel deletes a service.
func (c *Client) ServiceDel(ctx context.Context, token string, id int64) (*Reply, error) {
	var result Reply
	if err := c.call(ctx, "service_del", &result, token, id); err != nil {
		return nil, err
	}
	return &result, nil
}

// ServicePasswd replaces the secret ciphertext of a service.
func (c *Client) ServicePasswd(ctx context.Context, token string, id int64, secret string) (*ServicePasswdReply, error) {
	var result ServicePasswdReply
	if err := c.call(ctx, "service_passwd", &result, token, id, secret); err != nil {
		return nil, err
	}
	return &result, nil
}

// GroupAdd creates a group from a client-generated keypair. cryptGroupKey
// is the group secret key sealed to the creator.
func (c *Client) GroupAdd(ctx context.Context, token, name, pubkey, cryptGroupKey string) (*GroupAddReply, error) {
	var result GroupAddReply
	if err := c.call(ctx, "group_add", &result, token, name, pubkey, cryptGroupKey); err != nil {
		return nil, err
	}
	return &result, nil
}

// GroupGet fetches a group, including its public key.
func (c *Client) GroupGet(ctx context.Context, token string, id int64) (*GroupReply, error) {
	var result GroupReply
	if err := c.call(ctx, "group_get", &result, token, id); err != nil {
		return nil, err
	}
	return &result, nil
}

// GroupPut saves edited group fields.
func (c *Client) GroupPut(ctx context.Context, token string, id int64, data GroupData) (*Reply, error) {
	var result Reply
	if err := c.call(ctx, "group_put", &result, token, id, data); err != nil {
		return nil, err
	}
	return &result, nil
}

// GroupDel deletes an empty group.
func (c *Client) GroupDel(ctx context.Context, token string, id int64) (*Reply, error) {
	var result Reply
	if err := c.call(ctx, "group_del", &result, token, id); err != nil {
		return nil, err
	}
	return &result, nil
}

// GroupList lists groups.
func (c *Client) GroupList(ctx context.Context, token string) (*GroupListReply, error) {
	var result GroupListReply
	if err := c.call(ctx, "group_list", &result, token); err != nil {
		return nil, err
	}
	return &result, nil
}

// GroupAddUser is the first group_add_user call. The reply carries the
// material needed to build the new member's wrapped group key.
func (c *Client) GroupAddUser(ctx context.Context, token string, groupID int64, username string) (*GroupAddUserReply, error) {
	var result GroupAddUserReply
	if err := c.call(ctx, "group_add_user", &result, token, groupID, username); err != nil {
		return nil, err
	}
	return &result, nil
}

// GroupAddUserKey is the second group_add_user call. It submits the group
// key sealed to the new member.
func (c *Client) GroupAddUserKey(ctx context.Context, token string, groupID int64, username string, isAdmin bool, cryptGroupKey string) (*Reply, error) {
	var result Reply
	if err := c.call(ctx, "group_add_user", &result, token, groupID, username, isAdmin, cryptGroupKey); err != nil {
		return nil, err
	}
	return &result, nil
}

// GroupDelUser removes a member's wrapped group key.
func (c *Client) GroupDelUser(ctx context.Context, token string, groupID int64, username string) (*Reply, error) {
	var result Reply
	if err := c.call(ctx, "group_del_user", &result, token, groupID, username); err != nil {
		return nil, err
	}
	return &result, nil
}

// GroupAddService submits a service's session key sealed to the group.
func (c *Client) GroupAddService(ctx context.Context, token string, groupID, serviceID int64, cryptSymKey string) (*Reply, error) {
	var result Reply
	if err := c.call(ctx, "group_add_service", &result, token, groupID, serviceID, cryptSymKey); err != nil {
		return nil, err
	}
	return &result, nil
}

// GroupDelService removes a group's wrapped session key for a service.
func (c *Client) GroupDelService(ctx context.Context, token string, groupID, serviceID int64) (*Reply, error) {
	var result Reply
	if err := c.call(ctx, "group_del_service", &result, token, groupID, serviceID); err != nil {
		return nil, err
	}
	return &result, nil
}

// Search matches every query term as a regular expression against
// customers, machines and services.
func (c *Client) Search(ctx context.Context, token string, query []string, groupIDs []int64, verbose bool) (*SearchReply, error) {
	if query == nil {
		query = []string{}
	}
	var result SearchReply
	if err := c.call(ctx, "search", &result, token, query, groupIDs, verbose); err != nil {
		return nil, err
	}
	return &result, nil
}
