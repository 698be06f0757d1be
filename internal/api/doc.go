// Package api provides the remote surface of the sflvault vault. Every
// operation is a JSON-RPC style POST to a single endpoint:
//
//	{"method": "sflvault.service_get", "params": ["<token>", 12]}
//
// and every reply is wrapped as {"result": {"error": bool, "message": ...}}
// with the operation's payload fields alongside.
//
// # Transport
//
// [Client] delegates to a [Caller]. The default is [HTTPCaller], created by
// [NewClient] from a [Config]. Tests and alternate transports set
// [Config.Caller].
//
// # Retry Behavior
//
// Read-only methods (*_get, *_list, service_get_tree, search) are retried
// with exponential backoff on network failures and on these statuses:
//
//   - 408 Request Timeout
//   - 429 Too Many Requests
//   - 500, 502, 503, 504
//
// Mutating methods and logins are sent once.
//
// # Error Handling
//
//   - [*APIError]: non-2xx HTTP status. 401 matches [ErrUnauthorized].
//   - [*VaultError]: a reply with error set. Delete refusals list the
//     services that depend on the target in Dependents.
//   - [*NetworkError]: the request never produced a response.
//
// # Thread Safety
//
// [Client] is safe for concurrent use.
package api
