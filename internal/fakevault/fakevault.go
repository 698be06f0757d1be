// Package fakevault is an in-memory vault server for tests. It speaks the
// same JSON-RPC protocol as a real vault: it issues sealed login challenges,
// hands out session tokens, and stores the wrapped keys of every group
// member and every service. Like a real vault it never holds a private key
// or a plaintext secret.
package fakevault

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/sflvault/client-go/internal/api"
	"github.com/sflvault/client-go/internal/crypto"
)

const challengeSize = 32

type user struct {
	id        int64
	name      string
	pubkey    []byte
	admin     bool
	challenge []byte
}

type member struct {
	cryptGroupKey string
	admin         bool
}

type group struct {
	id      int64
	name    string
	pubkey  []byte
	hidden  bool
	members map[string]member
}

type service struct {
	id        int64
	machineID int64
	parentID  int64
	url       string
	notes     string
	secret    string
	keys      map[int64]string // group id → cryptsymkey
}

// Vault is the fake server. Create one with New and point a client at URL.
type Vault struct {
	mu        sync.Mutex
	server    *httptest.Server
	nextID    int64
	users     map[string]*user
	tokens    map[string]string
	groups    map[int64]*group
	services  map[int64]*service
	customers map[int64]*api.Customer
	machines  map[int64]*api.Machine
	calls     []string
	failures  []int

	// TamperChallenge, when set, alters each sealed challenge before it
	// is sent.
	TamperChallenge func(sealed []byte) []byte
	// RejectLogins makes every authenticate call fail.
	RejectLogins bool
}

// New starts a vault on a local listener.
func New() *Vault {
	v := &Vault{
		users:     make(map[string]*user),
		tokens:    make(map[string]string),
		groups:    make(map[int64]*group),
		services:  make(map[int64]*service),
		customers: make(map[int64]*api.Customer),
		machines:  make(map[int64]*api.Machine),
	}
	v.server = httptest.NewServer(http.HandlerFunc(v.serveHTTP))
	return v
}

// URL is the RPC endpoint.
func (v *Vault) URL() string {
	return v.server.URL
}

// Close shuts the server down.
func (v *Vault) Close() {
	v.server.Close()
}

// Calls returns the methods received so far, without the "sflvault."
// prefix, in arrival order.
func (v *Vault) Calls() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.calls...)
}

// CallCount counts received calls to method.
func (v *Vault) CallCount(method string) int {
	n := 0
	for _, c := range v.Calls() {
		if c == method {
			n++
		}
	}
	return n
}

// FailNext makes the next len(statuses) requests fail with the given HTTP
// statuses, in order.
func (v *Vault) FailNext(statuses ...int) {
	v.mu.Lock()
	v.failures = append(v.failures, statuses...)
	v.mu.Unlock()
}

// RevokeTokens invalidates every issued session token.
func (v *Vault) RevokeTokens() {
	v.mu.Lock()
	clear(v.tokens)
	v.mu.Unlock()
}

// AddUser registers a user. A nil pubkey leaves the user waiting for
// user_setup.
func (v *Vault) AddUser(name string, pubkey []byte, admin bool) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nextID++
	v.users[name] = &user{id: v.nextID, name: name, pubkey: pubkey, admin: admin}
	return v.nextID
}

// UserPubKey returns a user's registered public key.
func (v *Vault) UserPubKey(name string) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	if u, ok := v.users[name]; ok {
		return u.pubkey
	}
	return nil
}

// AddGroup creates a group with the given public key and no members.
func (v *Vault) AddGroup(name string, pubkey []byte) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nextID++
	v.groups[v.nextID] = &group{id: v.nextID, name: name, pubkey: pubkey, members: make(map[string]member)}
	return v.nextID
}

// SetMember stores a member's wrapped group key.
func (v *Vault) SetMember(groupID int64, username string, cryptGroupKey []byte, admin bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.groups[groupID].members[username] = member{cryptGroupKey: crypto.ToBase64(cryptGroupKey), admin: admin}
}

// MemberKey returns a member's wrapped group key, or nil.
func (v *Vault) MemberKey(groupID int64, username string) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	g, ok := v.groups[groupID]
	if !ok {
		return nil
	}
	m, ok := g.members[username]
	if !ok {
		return nil
	}
	b, _ := crypto.FromBase64(m.cryptGroupKey)
	return b
}

// Service describes a service to seed. Keys maps group ids to the session
// key sealed to that group.
type Service struct {
	MachineID       int64
	ParentServiceID int64
	URL             string
	Notes           string
	Secret          []byte
	Keys            map[int64][]byte
}

// AddService stores a service.
func (v *Vault) AddService(s Service) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nextID++
	svc := &service{
		id:        v.nextID,
		machineID: s.MachineID,
		parentID:  s.ParentServiceID,
		url:       s.URL,
		notes:     s.Notes,
		secret:    crypto.ToBase64(s.Secret),
		keys:      make(map[int64]string, len(s.Keys)),
	}
	for gid, k := range s.Keys {
		svc.keys[gid] = crypto.ToBase64(k)
	}
	v.services[svc.id] = svc
	return svc.id
}

// ServiceSecret returns the stored secret ciphertext.
func (v *Vault) ServiceSecret(id int64) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.services[id]; ok {
		b, _ := crypto.FromBase64(s.secret)
		return b
	}
	return nil
}

// ServiceKey returns a group's wrapped session key for a service, or nil.
func (v *Vault) ServiceKey(serviceID, groupID int64) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.services[serviceID]; ok {
		if k, ok := s.keys[groupID]; ok {
			b, _ := crypto.FromBase64(k)
			return b
		}
	}
	return nil
}

// AddCustomer stores a customer.
func (v *Vault) AddCustomer(name string) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.addCustomer(name)
}

func (v *Vault) addCustomer(name string) int64 {
	v.nextID++
	v.customers[v.nextID] = &api.Customer{ID: v.nextID, Name: name}
	return v.nextID
}

// AddMachine stores a machine.
func (v *Vault) AddMachine(m api.Machine) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.addMachine(m)
}

func (v *Vault) addMachine(m api.Machine) int64 {
	v.nextID++
	m.ID = v.nextID
	v.machines[m.ID] = &m
	return m.ID
}

type request struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type fields map[string]any

// errUnauthorized is answered with HTTP 401.
var errUnauthorized = errors.New("unauthorized")

func (v *Vault) serveHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
		return
	}

	v.mu.Lock()
	method := strings.TrimPrefix(req.Method, "sflvault.")
	v.calls = append(v.calls, method)
	if len(v.failures) > 0 {
		status := v.failures[0]
		v.failures = v.failures[1:]
		v.mu.Unlock()
		http.Error(w, `{"error":"injected failure"}`, status)
		return
	}

	result, err := v.dispatch(method, params(req.Params))
	v.mu.Unlock()

	if errors.Is(err, errUnauthorized) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid session token"}`))
		return
	}
	if err != nil {
		result = fields{"error": true, "message": err.Error()}
		var dep *dependentsError
		if errors.As(err, &dep) {
			result["childs"] = dep.childs
		}
	} else {
		result["error"] = false
		if _, ok := result["message"]; !ok {
			result["message"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
}

type dependentsError struct {
	msg    string
	childs []api.ServiceRef
}

func (e *dependentsError) Error() string { return e.msg }

type params []json.RawMessage

func (p params) decode(i int, v any) error {
	if i >= len(p) {
		return fmt.Errorf("missing parameter %d", i)
	}
	if err := json.Unmarshal(p[i], v); err != nil {
		return fmt.Errorf("parameter %d: %v", i, err)
	}
	return nil
}

func (p params) str(i int) (string, error) {
	var s string
	return s, p.decode(i, &s)
}

func (p params) int(i int) (int64, error) {
	var n int64
	return n, p.decode(i, &n)
}

// session resolves the token in the first parameter.
func (v *Vault) session(p params) (*user, error) {
	tok, err := p.str(0)
	if err != nil {
		return nil, errUnauthorized
	}
	name, ok := v.tokens[tok]
	if !ok {
		return nil, errUnauthorized
	}
	u, ok := v.users[name]
	if !ok {
		return nil, errUnauthorized
	}
	return u, nil
}

func (v *Vault) dispatch(method string, p params) (fields, error) {
	switch method {
	case "login":
		return v.login(p)
	case "authenticate":
		return v.authenticate(p)
	case "user_setup":
		return v.userSetup(p)
	}

	caller, err := v.session(p)
	if err != nil {
		return nil, err
	}

	switch method {
	case "user_add", "user_del", "user_list":
		return v.userOp(method, caller, p)
	case "customer_add", "customer_get", "customer_put", "customer_del", "customer_list":
		return v.customer(method, p)
	case "machine_add", "machine_get", "machine_put", "machine_del", "machine_list":
		return v.machine(method, p)
	case "service_add":
		return v.serviceAdd(p)
	case "service_get":
		return v.serviceGet(caller, p)
	case "service_get_tree":
		return v.serviceGetTree(caller, p)
	case "service_put", "service_del", "service_passwd":
		return v.serviceEdit(method, p)
	case "group_add":
		return v.groupAdd(caller, p)
	case "group_get", "group_put", "group_del", "group_list":
		return v.group(method, caller, p)
	case "group_add_user":
		return v.groupAddUser(caller, p)
	case "group_del_user":
		return v.groupDelUser(p)
	case "group_add_service", "group_del_service":
		return v.groupService(method, p)
	case "search":
		return v.search(p)
	}
	return nil, fmt.Errorf("unknown method %s", method)
}

func (v *Vault) login(p params) (fields, error) {
	name, err := p.str(0)
	if err != nil {
		return nil, err
	}
	u, ok := v.users[name]
	if !ok || u.pubkey == nil {
		return nil, fmt.Errorf("user %s does not exist or has not completed setup", name)
	}

	challenge := make([]byte, challengeSize)
	if _, err := rand.Read(challenge); err != nil {
		return nil, err
	}
	sealed, err := crypto.Seal(u.pubkey, crypto.LabelChallenge, challenge)
	if err != nil {
		return nil, err
	}
	if v.TamperChallenge != nil {
		sealed = v.TamperChallenge(sealed)
	}
	u.challenge = challenge
	return fields{"cryptok": crypto.ToBase64(sealed)}, nil
}

func (v *Vault) authenticate(p params) (fields, error) {
	name, err := p.str(0)
	if err != nil {
		return nil, err
	}
	answer, err := p.str(1)
	if err != nil {
		return nil, err
	}

	u, ok := v.users[name]
	if !ok || u.challenge == nil {
		return nil, fmt.Errorf("no pending challenge for %s", name)
	}
	expected := u.challenge
	u.challenge = nil

	got, err := crypto.FromBase64(answer)
	if err != nil || v.RejectLogins || subtle.ConstantTimeCompare(got, expected) != 1 {
		return nil, fmt.Errorf("invalid authentication token")
	}

	token := uuid.NewString()
	v.tokens[token] = name
	return fields{"authtok": token}, nil
}

func (v *Vault) userSetup(p params) (fields, error) {
	name, err := p.str(0)
	if err != nil {
		return nil, err
	}
	pub, err := p.str(1)
	if err != nil {
		return nil, err
	}

	u, ok := v.users[name]
	if !ok {
		return nil, fmt.Errorf("user %s was not added by an admin", name)
	}
	if u.pubkey != nil {
		return nil, fmt.Errorf("user %s is already set up", name)
	}
	key, err := crypto.FromBase64(pub)
	if err != nil || crypto.ValidatePublicKey(key) != nil {
		return nil, fmt.Errorf("invalid public key")
	}
	u.pubkey = key
	return fields{}, nil
}

func (v *Vault) userOp(method string, caller *user, p params) (fields, error) {
	if method != "user_list" && !caller.admin {
		return nil, fmt.Errorf("admin privileges required")
	}
	switch method {
	case "user_add":
		name, err := p.str(1)
		if err != nil {
			return nil, err
		}
		var admin bool
		_ = p.decode(2, &admin)
		if _, exists := v.users[name]; exists {
			return nil, fmt.Errorf("user %s already exists", name)
		}
		v.nextID++
		v.users[name] = &user{id: v.nextID, name: name, admin: admin}
		return fields{"user_id": v.nextID}, nil

	case "user_del":
		name, err := p.str(1)
		if err != nil {
			return nil, err
		}
		if _, ok := v.users[name]; !ok {
			return nil, fmt.Errorf("user %s not found", name)
		}
		delete(v.users, name)
		for _, g := range v.groups {
			delete(g.members, name)
		}
		return fields{}, nil
	}

	var withGroups bool
	_ = p.decode(1, &withGroups)
	list := make([]api.User, 0, len(v.users))
	for _, u := range v.users {
		out := api.User{ID: u.id, Username: u.name, IsAdmin: u.admin, WaitingSetup: u.pubkey == nil}
		if withGroups {
			for _, g := range v.sortedGroups() {
				if m, ok := g.members[u.name]; ok {
					out.Groups = append(out.Groups, api.UserGroup{ID: g.id, Name: g.name, IsAdmin: m.admin})
				}
			}
		}
		list = append(list, out)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return fields{"list": list}, nil
}

func (v *Vault) sortedGroups() []*group {
	out := make([]*group, 0, len(v.groups))
	for _, g := range v.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (v *Vault) customer(method string, p params) (fields, error) {
	if method == "customer_list" {
		list := make([]api.Customer, 0, len(v.customers))
		for _, c := range v.customers {
			list = append(list, *c)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
		return fields{"list": list}, nil
	}
	if method == "customer_add" {
		name, err := p.str(1)
		if err != nil {
			return nil, err
		}
		return fields{"customer_id": v.addCustomer(name)}, nil
	}

	id, err := p.int(1)
	if err != nil {
		return nil, err
	}
	c, ok := v.customers[id]
	if !ok {
		return nil, fmt.Errorf("customer not found")
	}
	switch method {
	case "customer_get":
		return fields{"customer": c}, nil
	case "customer_put":
		var data api.CustomerData
		if err := p.decode(2, &data); err != nil {
			return nil, err
		}
		if data.Name != "" {
			c.Name = data.Name
		}
		return fields{}, nil
	}

	var machines []int64
	for _, m := range v.machines {
		if m.CustomerID == id {
			machines = append(machines, m.ID)
		}
	}
	if err := v.removeMachines(machines); err != nil {
		return nil, err
	}
	delete(v.customers, id)
	return fields{}, nil
}

func (v *Vault) machine(method string, p params) (fields, error) {
	switch method {
	case "machine_list":
		var customerID int64
		_ = p.decode(1, &customerID)
		list := make([]api.Machine, 0, len(v.machines))
		for _, m := range v.machines {
			if customerID == 0 || m.CustomerID == customerID {
				list = append(list, *m)
			}
		}
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
		return fields{"list": list}, nil

	case "machine_add":
		var m api.Machine
		if err := p.decode(1, &m.CustomerID); err != nil {
			return nil, err
		}
		if _, ok := v.customers[m.CustomerID]; !ok {
			return nil, fmt.Errorf("customer not found")
		}
		for i, dst := range []*string{&m.Name, &m.FQDN, &m.IP, &m.Location, &m.Notes} {
			_ = p.decode(i+2, dst)
		}
		return fields{"machine_id": v.addMachine(m)}, nil
	}

	id, err := p.int(1)
	if err != nil {
		return nil, err
	}
	m, ok := v.machines[id]
	if !ok {
		return nil, fmt.Errorf("machine not found")
	}
	switch method {
	case "machine_get":
		out := *m
		if c, ok := v.customers[m.CustomerID]; ok {
			out.CustomerName = c.Name
		}
		return fields{"machine": out}, nil
	case "machine_put":
		var data api.MachineData
		if err := p.decode(2, &data); err != nil {
			return nil, err
		}
		patch(&m.Name, data.Name)
		patch(&m.FQDN, data.FQDN)
		patch(&m.IP, data.IP)
		patch(&m.Location, data.Location)
		patch(&m.Notes, data.Notes)
		if data.CustomerID != 0 {
			m.CustomerID = data.CustomerID
		}
		return fields{}, nil
	}

	if err := v.removeMachines([]int64{id}); err != nil {
		return nil, err
	}
	return fields{}, nil
}

// removeMachines deletes machines and their services, refusing when a
// service elsewhere has one of them as parent.
func (v *Vault) removeMachines(ids []int64) error {
	doomed := make(map[int64]bool)
	for _, s := range v.services {
		for _, id := range ids {
			if s.machineID == id {
				doomed[s.id] = true
			}
		}
	}
	if childs := v.childrenOutside(doomed); len(childs) > 0 {
		return &dependentsError{msg: "services from other machines depend on these services", childs: childs}
	}
	for id := range doomed {
		delete(v.services, id)
	}
	for _, id := range ids {
		delete(v.machines, id)
	}
	return nil
}

func (v *Vault) childrenOutside(doomed map[int64]bool) []api.ServiceRef {
	var out []api.ServiceRef
	for _, s := range v.services {
		if !doomed[s.id] && doomed[s.parentID] {
			out = append(out, api.ServiceRef{ID: s.id, URL: s.url})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func patch(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func (v *Vault) serviceAdd(p params) (fields, error) {
	s := &service{keys: make(map[int64]string)}
	if err := p.decode(1, &s.machineID); err != nil {
		return nil, err
	}
	_ = p.decode(2, &s.parentID)
	if err := p.decode(3, &s.url); err != nil {
		return nil, err
	}
	var keys []api.ServiceGroupKey
	if err := p.decode(4, &keys); err != nil {
		return nil, err
	}
	if err := p.decode(5, &s.secret); err != nil {
		return nil, err
	}
	_ = p.decode(6, &s.notes)

	if _, ok := v.machines[s.machineID]; !ok {
		return nil, fmt.Errorf("machine not found")
	}
	if s.parentID != 0 {
		if _, ok := v.services[s.parentID]; !ok {
			return nil, fmt.Errorf("parent service not found")
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("a service needs at least one group")
	}
	for _, k := range keys {
		if _, ok := v.groups[k.GroupID]; !ok {
			return nil, fmt.Errorf("group %d not found", k.GroupID)
		}
		s.keys[k.GroupID] = k.CryptSymKey
	}

	v.nextID++
	s.id = v.nextID
	v.services[s.id] = s
	return fields{"service_id": s.id}, nil
}

// view renders a service as seen by caller: the ciphertexts of the first
// group, by id, through which caller has access.
func (v *Vault) view(caller *user, s *service) api.Service {
	out := api.Service{
		ID:              s.id,
		MachineID:       s.machineID,
		ParentServiceID: s.parentID,
		URL:             s.url,
		Notes:           s.notes,
		Secret:          s.secret,
	}

	gids := make([]int64, 0, len(s.keys))
	for gid := range s.keys {
		gids = append(gids, gid)
	}
	sort.Slice(gids, func(i, j int) bool { return gids[i] < gids[j] })

	for _, gid := range gids {
		g, ok := v.groups[gid]
		if !ok {
			continue
		}
		if m, ok := g.members[caller.name]; ok {
			out.GroupID = gid
			out.CryptGroupKey = m.cryptGroupKey
			out.CryptSymKey = s.keys[gid]
			break
		}
	}
	return out
}

func (v *Vault) serviceGet(caller *user, p params) (fields, error) {
	id, err := p.int(1)
	if err != nil {
		return nil, err
	}
	s, ok := v.services[id]
	if !ok {
		return nil, fmt.Errorf("service not found")
	}
	return fields{"service": v.view(caller, s)}, nil
}

func (v *Vault) serviceGetTree(caller *user, p params) (fields, error) {
	id, err := p.int(1)
	if err != nil {
		return nil, err
	}

	var chain []api.Service
	seen := make(map[int64]bool)
	for id != 0 {
		s, ok := v.services[id]
		if !ok {
			return nil, fmt.Errorf("service not found")
		}
		if seen[id] {
			return nil, fmt.Errorf("service parent loop at s#%d", id)
		}
		seen[id] = true
		chain = append(chain, v.view(caller, s))
		id = s.parentID
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return fields{"services": chain}, nil
}

func (v *Vault) serviceEdit(method string, p params) (fields, error) {
	id, err := p.int(1)
	if err != nil {
		return nil, err
	}
	s, ok := v.services[id]
	if !ok {
		return nil, fmt.Errorf("service not found")
	}

	switch method {
	case "service_put":
		var data api.ServiceData
		if err := p.decode(2, &data); err != nil {
			return nil, err
		}
		patch(&s.url, data.URL)
		patch(&s.notes, data.Notes)
		if data.MachineID != 0 {
			s.machineID = data.MachineID
		}
		if data.ParentServiceID != 0 {
			s.parentID = data.ParentServiceID
		}
		return fields{}, nil

	case "service_passwd":
		if err := p.decode(2, &s.secret); err != nil {
			return nil, err
		}
		return fields{"service_id": id}, nil
	}

	if childs := v.childrenOutside(map[int64]bool{id: true}); len(childs) > 0 {
		return nil, &dependentsError{msg: "other services depend on this service", childs: childs}
	}
	delete(v.services, id)
	return fields{}, nil
}

func (v *Vault) groupAdd(caller *user, p params) (fields, error) {
	name, err := p.str(1)
	if err != nil {
		return nil, err
	}
	pub, err := p.str(2)
	if err != nil {
		return nil, err
	}
	wrapped, err := p.str(3)
	if err != nil {
		return nil, err
	}
	key, err := crypto.FromBase64(pub)
	if err != nil || crypto.ValidatePublicKey(key) != nil {
		return nil, fmt.Errorf("invalid group public key")
	}

	v.nextID++
	v.groups[v.nextID] = &group{
		id:      v.nextID,
		name:    name,
		pubkey:  key,
		members: map[string]member{caller.name: {cryptGroupKey: wrapped, admin: true}},
	}
	return fields{"group_id": v.nextID}, nil
}

func (v *Vault) groupView(caller *user, g *group) api.Group {
	m, ok := g.members[caller.name]
	return api.Group{
		ID:     g.id,
		Name:   g.name,
		PubKey: crypto.ToBase64(g.pubkey),
		Hidden: g.hidden,
		Member: ok,
		Admin:  ok && m.admin,
	}
}

func (v *Vault) group(method string, caller *user, p params) (fields, error) {
	if method == "group_list" {
		list := make([]api.Group, 0, len(v.groups))
		for _, g := range v.sortedGroups() {
			if g.hidden && !caller.admin {
				if _, ok := g.members[caller.name]; !ok {
					continue
				}
			}
			list = append(list, v.groupView(caller, g))
		}
		return fields{"list": list}, nil
	}

	id, err := p.int(1)
	if err != nil {
		return nil, err
	}
	g, ok := v.groups[id]
	if !ok {
		return nil, fmt.Errorf("group not found")
	}

	switch method {
	case "group_get":
		return fields{"group": v.groupView(caller, g)}, nil
	case "group_put":
		var data api.GroupData
		if err := p.decode(2, &data); err != nil {
			return nil, err
		}
		patch(&g.name, data.Name)
		if data.Hidden != nil {
			g.hidden = *data.Hidden
		}
		return fields{}, nil
	}

	var childs []api.ServiceRef
	for _, s := range v.services {
		if _, ok := s.keys[id]; ok {
			childs = append(childs, api.ServiceRef{ID: s.id, URL: s.url})
		}
	}
	if len(childs) > 0 {
		sort.Slice(childs, func(i, j int) bool { return childs[i].ID < childs[j].ID })
		return nil, &dependentsError{msg: "group still holds services", childs: childs}
	}
	delete(v.groups, id)
	return fields{}, nil
}

func (v *Vault) groupAddUser(caller *user, p params) (fields, error) {
	gid, err := p.int(1)
	if err != nil {
		return nil, err
	}
	name, err := p.str(2)
	if err != nil {
		return nil, err
	}
	g, ok := v.groups[gid]
	if !ok {
		return nil, fmt.Errorf("group not found")
	}
	u, ok := v.users[name]
	if !ok || u.pubkey == nil {
		return nil, fmt.Errorf("user %s not found or not set up", name)
	}
	own, ok := g.members[caller.name]
	if !ok {
		return nil, fmt.Errorf("you are not a member of this group")
	}

	if len(p) < 5 {
		if _, exists := g.members[name]; exists {
			return nil, fmt.Errorf("user %s is already in the group", name)
		}
		return fields{
			"cryptgroupkey": own.cryptGroupKey,
			"userpubkey":    crypto.ToBase64(u.pubkey),
		}, nil
	}

	var admin bool
	_ = p.decode(3, &admin)
	wrapped, err := p.str(4)
	if err != nil {
		return nil, err
	}
	g.members[name] = member{cryptGroupKey: wrapped, admin: admin}
	return fields{}, nil
}

func (v *Vault) groupDelUser(p params) (fields, error) {
	gid, err := p.int(1)
	if err != nil {
		return nil, err
	}
	name, err := p.str(2)
	if err != nil {
		return nil, err
	}
	g, ok := v.groups[gid]
	if !ok {
		return nil, fmt.Errorf("group not found")
	}
	if _, ok := g.members[name]; !ok {
		return nil, fmt.Errorf("user %s is not in the group", name)
	}
	delete(g.members, name)
	return fields{}, nil
}

func (v *Vault) groupService(method string, p params) (fields, error) {
	gid, err := p.int(1)
	if err != nil {
		return nil, err
	}
	sid, err := p.int(2)
	if err != nil {
		return nil, err
	}
	if _, ok := v.groups[gid]; !ok {
		return nil, fmt.Errorf("group not found")
	}
	s, ok := v.services[sid]
	if !ok {
		return nil, fmt.Errorf("service not found")
	}

	if method == "group_add_service" {
		wrapped, err := p.str(3)
		if err != nil {
			return nil, err
		}
		s.keys[gid] = wrapped
		return fields{}, nil
	}

	if _, ok := s.keys[gid]; !ok {
		return nil, fmt.Errorf("service is not in the group")
	}
	if len(s.keys) == 1 {
		return nil, fmt.Errorf("a service must stay in at least one group")
	}
	delete(s.keys, gid)
	return fields{}, nil
}

func (v *Vault) search(p params) (fields, error) {
	var query []string
	if err := p.decode(1, &query); err != nil {
		return nil, err
	}
	var groupIDs []int64
	_ = p.decode(2, &groupIDs)

	match, err := matcher(query)
	if err != nil {
		return nil, err
	}

	results := make(map[string]api.SearchCustomer)
	for _, s := range v.services {
		if len(groupIDs) > 0 && !inAnyGroup(s, groupIDs) {
			continue
		}
		m, ok := v.machines[s.machineID]
		if !ok {
			continue
		}
		c, ok := v.customers[m.CustomerID]
		if !ok {
			continue
		}
		if !match(s.url, s.notes, m.Name, m.FQDN, m.IP, m.Location, m.Notes, c.Name) {
			continue
		}

		ck, mk, sk := fmt.Sprint(c.ID), fmt.Sprint(m.ID), fmt.Sprint(s.id)
		cust, ok := results[ck]
		if !ok {
			cust = api.SearchCustomer{Name: c.Name, Machines: make(map[string]api.SearchMachine)}
		}
		mach, ok := cust.Machines[mk]
		if !ok {
			mach = api.SearchMachine{Name: m.Name, FQDN: m.FQDN, IP: m.IP, Location: m.Location, Notes: m.Notes, Services: make(map[string]api.SearchService)}
		}
		mach.Services[sk] = api.SearchService{URL: s.url, Notes: s.notes, ParentServiceID: s.parentID}
		cust.Machines[mk] = mach
		results[ck] = cust
	}
	return fields{"results": results}, nil
}

func inAnyGroup(s *service, ids []int64) bool {
	for _, id := range ids {
		if _, ok := s.keys[id]; ok {
			return true
		}
	}
	return false
}

// matcher returns a predicate that holds when every query term matches at
// least one of the given fields.
func matcher(query []string) (func(fields ...string) bool, error) {
	res := make([]*regexp.Regexp, 0, len(query))
	for _, q := range query {
		m, err := regexp.Compile("(?i)" + q)
		if err != nil {
			return nil, fmt.Errorf("invalid search term %q: %v", q, err)
		}
		res = append(res, m)
	}
	return func(fields ...string) bool {
		for _, re := range res {
			found := false
			for _, f := range fields {
				if re.MatchString(f) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}, nil
}

// Handler exposes the RPC handler for tests that mount it themselves.
func (v *Vault) Handler() http.Handler {
	return http.HandlerFunc(v.serveHTTP)
}

