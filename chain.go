package sflvault

import (
	"context"

	"github.com/sflvault/client-go/internal/crypto"
)

// Hop is one step of a connection plan.
type Hop struct {
	ServiceID int64
	URL       string
	Secret    []byte
}

// ConnectionPlan returns the hops needed to reach a service, starting at
// the outermost parent and ending at the service itself, each with its
// decrypted secret. A hop whose secret cannot be recovered yields a
// *RemotingError naming it.
func (c *Client) ConnectionPlan(ctx context.Context, serviceID int64) ([]Hop, error) {
	services, err := c.ServiceTree(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if len(services) == 0 {
		return nil, &RemotingError{ServiceID: serviceID, Reason: "vault returned no services"}
	}

	return planFromServices(services)
}

// planFromServices turns a root-first service tree into hops. On a denied
// hop every secret in services is zeroed before the error is returned.
func planFromServices(services []Service) ([]Hop, error) {
	hops := make([]Hop, 0, len(services))
	for _, s := range services {
		if s.Denied {
			for i := range services {
				crypto.Zero(services[i].Secret)
			}
			return nil, &RemotingError{ServiceID: s.ID, URL: s.URL, Reason: s.DeniedReason}
		}
		hops = append(hops, Hop{ServiceID: s.ID, URL: s.URL, Secret: s.Secret})
	}
	return hops, nil
}
