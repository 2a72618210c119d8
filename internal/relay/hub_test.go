package relay

import (
	"strconv"
	"sync"
	"testing"

	"github.com/coder/websocket"
)

func TestHubJoinLeave(t *testing.T) {
	hub := NewHub()
	conn := &websocket.Conn{}

	hub.Join(42, "conn-a", conn)
	hub.Join(42, "conn-b", conn)
	if got := hub.GroupSize(42); got != 2 {
		t.Errorf("expected group size 2, got %d", got)
	}

	hub.Leave("conn-a")
	if got := hub.GroupSize(42); got != 1 {
		t.Errorf("expected group size 1 after leave, got %d", got)
	}

	hub.Leave("conn-b")
	if got := hub.GroupSize(42); got != 0 {
		t.Errorf("expected empty group, got %d", got)
	}
}

func TestHubLeaveRemovesFromAllGroups(t *testing.T) {
	hub := NewHub()
	conn := &websocket.Conn{}

	hub.Join(1, "conn-a", conn)
	hub.Join(2, "conn-a", conn)
	hub.Leave("conn-a")

	if hub.GroupSize(1) != 0 || hub.GroupSize(2) != 0 {
		t.Error("disconnect must remove the connection from every group")
	}
}

func TestHubLeaveReportsEmptiedGroups(t *testing.T) {
	hub := NewHub()
	conn := &websocket.Conn{}

	hub.Join(7, "conn-a", conn)
	hub.Join(7, "conn-b", conn)
	hub.Join(9, "conn-b", conn)

	if emptied := hub.Leave("conn-a"); len(emptied) != 0 {
		t.Errorf("group 7 still has a member, got emptied groups %v", emptied)
	}

	emptied := hub.Leave("conn-b")
	seen := make(map[int64]bool, len(emptied))
	for _, id := range emptied {
		seen[id] = true
	}
	if len(emptied) != 2 || !seen[7] || !seen[9] {
		t.Errorf("expected groups 7 and 9 reported emptied, got %v", emptied)
	}
}

func TestHubLeaveUnknownConn(t *testing.T) {
	hub := NewHub()
	hub.Join(1, "conn-a", &websocket.Conn{})

	// Leaving an unknown connection is a no-op.
	hub.Leave("ghost")
	if got := hub.GroupSize(1); got != 1 {
		t.Errorf("expected group untouched, got %d", got)
	}
}

func TestHubConcurrentAccess(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		id := "conn-" + strconv.Itoa(i)
		go func() {
			defer wg.Done()
			hub.Join(int64(i%5), id, &websocket.Conn{})
		}()
		go func() {
			defer wg.Done()
			hub.Leave(id)
		}()
	}
	wg.Wait()

	for i := int64(0); i < 5; i++ {
		hub.GroupSize(i)
	}
}
