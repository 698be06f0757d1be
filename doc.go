// Package sflvault is a Go client for an SFLvault secrets vault.
//
// The vault stores credentials for machines and services without ever
// seeing a private key or a plaintext secret. Each secret is encrypted
// under a per-service session key, each session key is sealed to the
// public key of every group that may read it, and each group's private
// key is sealed to every member's identity key. Keys are encapsulated
// with ML-KEM-768.
//
// Basic usage:
//
//	store, err := sflvault.DefaultFileStore()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := sflvault.New(sflvault.WithIdentityStore(store))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Unlocks the identity and logs in on first use.
//	svc, err := client.ServiceGet(ctx, 12)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if svc.Denied {
//	    log.Fatal(svc.DeniedReason)
//	}
//
//	fmt.Println(svc.URL, string(svc.Secret))
package sflvault
