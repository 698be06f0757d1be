package api

// Reply holds the fields every vault reply carries.
type Reply struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// ServiceRef names a service in listings such as delete dependents.
type ServiceRef struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

// LoginReply is the first half of the challenge exchange.
type LoginReply struct {
	Reply
	// CryptToken is the challenge sealed to the user's public key.
	CryptToken string `json:"cryptok"`
}

// AuthenticateReply carries the session token on success.
type AuthenticateReply struct {
	Reply
	AuthToken string `json:"authtok"`
}

// Service is a service record as returned by service_get and
// service_get_tree. CryptGroupKey and CryptSymKey are the caller's own
// fan-out entries and are empty when the caller has no access.
type Service struct {
	ID              int64  `json:"id"`
	MachineID       int64  `json:"machine_id"`
	ParentServiceID int64  `json:"parent_service_id,omitempty"`
	GroupID         int64  `json:"group_id,omitempty"`
	URL             string `json:"url"`
	Notes           string `json:"notes,omitempty"`
	CryptGroupKey   string `json:"cryptgroupkey,omitempty"`
	CryptSymKey     string `json:"cryptsymkey,omitempty"`
	Secret          string `json:"secret,omitempty"`
}

// ServiceReply is the reply to service_get.
type ServiceReply struct {
	Reply
	Service Service `json:"service"`
}

// ServiceTreeReply is the reply to service_get_tree, ordered from the
// root of the parent chain to the requested service.
type ServiceTreeReply struct {
	Reply
	Services []Service `json:"services"`
}

// ServiceAddReply is the reply to service_add.
type ServiceAddReply struct {
	Reply
	ServiceID int64 `json:"service_id"`
}

// ServicePasswdReply is the reply to service_passwd.
type ServicePasswdReply struct {
	Reply
	ServiceID int64 `json:"service_id"`
}

// ServiceGroupKey is one fan-out entry submitted with service_add.
type ServiceGroupKey struct {
	GroupID     int64  `json:"group_id"`
	CryptSymKey string `json:"cryptsymkey"`
}

// ServiceData holds the editable fields of a service.
type ServiceData struct {
	MachineID       int64  `json:"machine_id,omitempty"`
	ParentServiceID int64  `json:"parent_service_id,omitempty"`
	URL             string `json:"url,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// Group is a group record. PubKey is the group's public key.
type Group struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	PubKey string `json:"pubkey,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
	Member bool   `json:"member,omitempty"`
	Admin  bool   `json:"admin,omitempty"`
}

// GroupReply is the reply to group_get.
type GroupReply struct {
	Reply
	Group Group `json:"group"`
}

// GroupListReply is the reply to group_list.
type GroupListReply struct {
	Reply
	List []Group `json:"list"`
}

// GroupAddReply is the reply to group_add.
type GroupAddReply struct {
	Reply
	GroupID int64 `json:"group_id"`
}

// GroupAddUserReply is the reply to the first group_add_user call. It
// carries the caller's own wrapped group key and the new member's public
// key so the caller can re-seal the group key.
type GroupAddUserReply struct {
	Reply
	CryptGroupKey string `json:"cryptgroupkey,omitempty"`
	UserPubKey    string `json:"userpubkey,omitempty"`
}

// GroupData holds the editable fields of a group.
type GroupData struct {
	Name   string `json:"name,omitempty"`
	Hidden *bool  `json:"hidden,omitempty"`
}

// Customer is a customer record.
type Customer struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CustomerReply is the reply to customer_get.
type CustomerReply struct {
	Reply
	Customer Customer `json:"customer"`
}

// CustomerListReply is the reply to customer_list.
type CustomerListReply struct {
	Reply
	List []Customer `json:"list"`
}

// CustomerAddReply is the reply to customer_add.
type CustomerAddReply struct {
	Reply
	CustomerID int64 `json:"customer_id"`
}

// CustomerData holds the editable fields of a customer.
type CustomerData struct {
	Name string `json:"name,omitempty"`
}

// Machine is a machine record.
type Machine struct {
	ID           int64  `json:"id"`
	CustomerID   int64  `json:"customer_id"`
	CustomerName string `json:"customer_name,omitempty"`
	Name         string `json:"name"`
	FQDN         string `json:"fqdn,omitempty"`
	IP           string `json:"ip,omitempty"`
	Location     string `json:"location,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// MachineReply is the reply to machine_get.
type MachineReply struct {
	Reply
	Machine Machine `json:"machine"`
}

// MachineListReply is the reply to machine_list.
type MachineListReply struct {
	Reply
	List []Machine `json:"list"`
}

// MachineAddReply is the reply to machine_add.
type MachineAddReply struct {
	Reply
	MachineID int64 `json:"machine_id"`
}

// MachineData holds the editable fields of a machine.
type MachineData struct {
	CustomerID int64  `json:"customer_id,omitempty"`
	Name       string `json:"name,omitempty"`
	FQDN       string `json:"fqdn,omitempty"`
	IP         string `json:"ip,omitempty"`
	Location   string `json:"location,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// UserGroup is a group membership listed with a user.
type UserGroup struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin,omitempty"`
}

// User is a user record.
type User struct {
	ID           int64       `json:"id"`
	Username     string      `json:"username"`
	CreatedStamp string      `json:"created_stamp,omitempty"`
	IsAdmin      bool        `json:"is_admin,omitempty"`
	WaitingSetup bool        `json:"waiting_setup,omitempty"`
	SetupExpired bool        `json:"setup_expired,omitempty"`
	Groups       []UserGroup `json:"groups,omitempty"`
}

// UserListReply is the reply to user_list.
type UserListReply struct {
	Reply
	List []User `json:"list"`
}

// UserAddReply is the reply to user_add.
type UserAddReply struct {
	Reply
	UserID int64 `json:"user_id"`
}

// SearchService is a service entry in search results.
type SearchService struct {
	URL             string `json:"url"`
	Notes           string `json:"notes,omitempty"`
	ParentServiceID int64  `json:"parent_service_id,omitempty"`
}

// SearchMachine is a machine entry in search results, keyed by id.
type SearchMachine struct {
	Name     string                   `json:"name"`
	FQDN     string                   `json:"fqdn,omitempty"`
	IP       string                   `json:"ip,omitempty"`
	Location string                   `json:"location,omitempty"`
	Notes    string                   `json:"notes,omitempty"`
	Services map[string]SearchService `json:"services"`
}

// SearchCustomer is a customer entry in search results, keyed by id.
type SearchCustomer struct {
	Name     string                   `json:"name"`
	Machines map[string]SearchMachine `json:"machines"`
}

// SearchReply is the reply to search.
type SearchReply struct {
	Reply
	Results map[string]SearchCustomer `json:"results"`
}
