package state

import "testing"

func TestSetGetMove(t *testing.T) {
	m := New[string]()
	m.Set("a", "pending")
	m.Set("b", "pending")
	m.Set("a", "running")

	if b, _ := m.Get("a"); b != "running" {
		t.Errorf("a bucket = %q, want running", b)
	}
	if got := m.Count("pending"); got != 1 {
		t.Errorf("pending count = %d, want 1", got)
	}
	if got := m.Count("running"); got != 1 {
		t.Errorf("running count = %d, want 1", got)
	}
}

func TestContainsAllNone(t *testing.T) {
	m := New[int]()
	m.Set(1, "pending")
	m.Set(2, "pending")

	if m.ContainsAll("finished") {
		t.Error("empty bucket should not ContainsAll")
	}
	if !m.ContainsNone("finished", "errored") {
		t.Error("expected ContainsNone true before any finish")
	}

	m.Set(1, "finished")
	m.Set(2, "finished")
	if !m.ContainsAll("finished") {
		t.Error("expected ContainsAll true once every item finished")
	}
	if m.ContainsNone("finished") {
		t.Error("expected ContainsNone false once items present")
	}
}

func TestSnapshotRestore(t *testing.T) {
	m := New[string]()
	m.Set("a", "pending")
	m.Set("b", "running")

	snap := m.Snapshot()

	m2 := New[string]()
	m2.Restore(snap)

	if got, _ := m2.Get("a"); got != "pending" {
		t.Errorf("restored a = %q", got)
	}
	if got := m2.Count("running"); got != 1 {
		t.Errorf("restored running count = %d", got)
	}
}

func TestRemove(t *testing.T) {
	m := New[string]()
	m.Set("a", "pending")
	m.Remove("a")
	if _, ok := m.Get("a"); ok {
		t.Error("expected a to be removed")
	}
	if m.Count("pending") != 0 {
		t.Error("expected pending bucket empty after remove")
	}
}
