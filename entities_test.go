package sflvault

import (
	"errors"
	"strconv"
	"testing"
)

func TestEntities(t *testing.T) {
	tv := newTestVault(t)
	admin := newTestIdentity(t, "admin", "p@ss1")
	tv.register(admin, true)
	c := tv.client(admin)
	ctx := t.Context()

	t.Run("customers", func(t *testing.T) {
		id, err := c.CustomerAdd(ctx, "globex")
		if err != nil {
			t.Fatalf("CustomerAdd() error = %v", err)
		}
		if err := c.CustomerPut(ctx, id, CustomerData{Name: "Globex Corp"}); err != nil {
			t.Fatalf("CustomerPut() error = %v", err)
		}
		got, err := c.CustomerGet(ctx, id)
		if err != nil {
			t.Fatalf("CustomerGet() error = %v", err)
		}
		if got.Name != "Globex Corp" {
			t.Errorf("Name = %q", got.Name)
		}
		list, err := c.CustomerList(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 2 {
			t.Errorf("len(list) = %d, want 2", len(list))
		}
		if err := c.CustomerDel(ctx, id); err != nil {
			t.Fatalf("CustomerDel() error = %v", err)
		}
		if _, err := c.CustomerGet(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("CustomerGet() after delete error = %v, want ErrNotFound", err)
		}
	})

	t.Run("machines", func(t *testing.T) {
		cid, err := c.CustomerAdd(ctx, "initech")
		if err != nil {
			t.Fatal(err)
		}
		id, err := c.MachineAdd(ctx, Machine{CustomerID: cid, Name: "db1", IP: "10.0.0.5"})
		if err != nil {
			t.Fatalf("MachineAdd() error = %v", err)
		}
		if err := c.MachinePut(ctx, id, MachineData{Location: "rack 4"}); err != nil {
			t.Fatalf("MachinePut() error = %v", err)
		}
		m, err := c.MachineGet(ctx, id)
		if err != nil {
			t.Fatalf("MachineGet() error = %v", err)
		}
		if m.Name != "db1" || m.Location != "rack 4" || m.CustomerName != "initech" {
			t.Errorf("machine = %+v", m)
		}
		list, err := c.MachineList(ctx, cid)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 1 || list[0].ID != id {
			t.Errorf("MachineList() = %+v", list)
		}
		if err := c.MachineDel(ctx, id); err != nil {
			t.Fatalf("MachineDel() error = %v", err)
		}
	})

	t.Run("groups", func(t *testing.T) {
		gid, err := c.GroupAdd(ctx, "ops")
		if err != nil {
			t.Fatal(err)
		}
		hidden := true
		if err := c.GroupPut(ctx, gid, GroupData{Name: "operations", Hidden: &hidden}); err != nil {
			t.Fatalf("GroupPut() error = %v", err)
		}
		list, err := c.GroupList(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 1 || list[0].Name != "operations" || !list[0].Hidden {
			t.Errorf("GroupList() = %+v", list)
		}
		if err := c.GroupDel(ctx, gid); err != nil {
			t.Fatalf("GroupDel() error = %v", err)
		}
	})

	t.Run("users", func(t *testing.T) {
		if _, err := c.UserAdd(ctx, "dave", false); err != nil {
			t.Fatalf("UserAdd() error = %v", err)
		}
		users, err := c.UserList(ctx, true)
		if err != nil {
			t.Fatal(err)
		}
		var dave *User
		for i := range users {
			if users[i].Username == "dave" {
				dave = &users[i]
			}
		}
		if dave == nil || !dave.WaitingSetup {
			t.Errorf("dave = %+v, want waiting for setup", dave)
		}
		if err := c.UserDel(ctx, "dave"); err != nil {
			t.Fatalf("UserDel() error = %v", err)
		}
	})
}

func TestUserAdd_RequiresAdmin(t *testing.T) {
	tv := newTestVault(t)
	alice := newTestIdentity(t, "alice", "p@ss1")
	tv.register(alice, false)

	_, err := tv.client(alice).UserAdd(t.Context(), "eve", true)
	var vErr *VaultError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want *VaultError", err)
	}
	if vErr.Operation != "user_add" {
		t.Errorf("Operation = %q, want user_add", vErr.Operation)
	}
}

func TestSearch(t *testing.T) {
	tv := newTestVault(t)
	alice := newTestIdentity(t, "alice", "p@ss1")
	tv.register(alice, false)
	ops, k := tv.group("ops", alice)
	sid := tv.service("ssh://root@web1", 0, "hunter2", map[int64]*GroupKey{ops: k})
	tv.service("postgres://db1", 0, "x", map[int64]*GroupKey{ops: k})

	results, err := tv.client(alice).Search(t.Context(), []string{"ssh", "acme"}, nil, false)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	var urls []string
	for _, cust := range results {
		for _, m := range cust.Machines {
			for id, s := range m.Services {
				urls = append(urls, s.URL)
				if id != strconv.FormatInt(sid, 10) {
					t.Errorf("unexpected service id %s", id)
				}
			}
		}
	}
	if len(urls) != 1 || urls[0] != "ssh://root@web1" {
		t.Errorf("matched %v, want only ssh://root@web1", urls)
	}
}
