package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"pulse/domain/event"
)

// fakeConn records delivered events and can simulate a broken transport.
type fakeConn struct {
	mu     sync.Mutex
	events []event.ChatEvent
	fail   bool
}

func (c *fakeConn) Send(_ context.Context, e event.ChatEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return fmt.Errorf("send failed")
	}
	c.events = append(c.events, e)
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) received() []event.ChatEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.ChatEvent(nil), c.events...)
}

func testEvent() event.ChatEvent {
	return event.Typing{Type: event.TypeTypingStart, ConversationID: "conv1", SenderID: "alice"}
}

func TestRegistry_Register_And_Broadcast_Includes_Sender(t *testing.T) {
	req := require.New(t)
	registry := NewConnectionRegistry(slog.Default())
	alice, bob := &fakeConn{}, &fakeConn{}

	// Given two users connected to the same conversation
	registry.Register("conv1", "alice", alice)
	registry.Register("conv1", "bob", bob)

	// When an event is broadcast
	registry.Broadcast(context.Background(), "conv1", testEvent())

	// Then both connections observe it, sender included
	req.Len(alice.received(), 1)
	req.Len(bob.received(), 1)
}

func TestRegistry_BroadcastExcept_Skips_All_Of_A_Users_Connections(t *testing.T) {
	req := require.New(t)
	registry := NewConnectionRegistry(slog.Default())
	alicePhone, aliceLaptop, bob := &fakeConn{}, &fakeConn{}, &fakeConn{}

	registry.Register("conv1", "alice", alicePhone)
	registry.Register("conv1", "alice", aliceLaptop)
	registry.Register("conv1", "bob", bob)

	registry.BroadcastExcept(context.Background(), "conv1", testEvent(), "alice")

	req.Empty(alicePhone.received())
	req.Empty(aliceLaptop.received())
	req.Len(bob.received(), 1)
}

func TestRegistry_Broadcast_Is_Scoped_To_The_Conversation(t *testing.T) {
	req := require.New(t)
	registry := NewConnectionRegistry(slog.Default())
	inConv, elsewhere := &fakeConn{}, &fakeConn{}

	registry.Register("conv1", "alice", inConv)
	registry.Register("conv2", "bob", elsewhere)

	registry.Broadcast(context.Background(), "conv1", testEvent())

	req.Len(inConv.received(), 1)
	req.Empty(elsewhere.received())
}

func TestRegistry_Deregister_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewConnectionRegistry(slog.Default())
	conn := &fakeConn{}

	registry.Register("conv1", "alice", conn)
	req.Equal(1, registry.ConnectionCount("alice"))

	// When deregistering twice
	req.Equal(0, registry.Deregister("conv1", "alice", conn))
	req.Equal(0, registry.Deregister("conv1", "alice", conn))

	// Then the second call is a clean no-op and the maps are pruned
	req.Equal(0, registry.ConnectionCount("alice"))
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	req.Empty(registry.conversations)
}

func TestRegistry_Register_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewConnectionRegistry(slog.Default())
	conn := &fakeConn{}

	req.Equal(0, registry.Register("conv1", "alice", conn))
	req.Equal(1, registry.Register("conv1", "alice", conn))

	req.Equal(1, registry.ConnectionCount("alice"))
}

func TestRegistry_Register_Reports_Prior_Count_Across_Conversations(t *testing.T) {
	req := require.New(t)
	registry := NewConnectionRegistry(slog.Default())
	phone, laptop := &fakeConn{}, &fakeConn{}

	req.Equal(0, registry.Register("conv1", "alice", phone))
	req.Equal(1, registry.Register("conv2", "alice", laptop))

	req.Equal(1, registry.Deregister("conv2", "alice", laptop))
	req.Equal(0, registry.Deregister("conv1", "alice", phone))
}

func TestRegistry_Concurrent_First_Connections_Observe_One_Zero(t *testing.T) {
	req := require.New(t)
	registry := NewConnectionRegistry(slog.Default())

	const connections = 16
	var wg sync.WaitGroup
	var sawZero atomic.Int32
	conns := make([]*fakeConn, connections)
	for i := range conns {
		conns[i] = &fakeConn{}
	}

	// When many connections of the same user register at once
	for _, conn := range conns {
		wg.Add(1)
		go func(conn *fakeConn) {
			defer wg.Done()
			if registry.Register("conv1", "alice", conn) == 0 {
				sawZero.Add(1)
			}
		}(conn)
	}
	wg.Wait()

	// Then exactly one of them observed the 0->1 transition
	req.Equal(int32(1), sawZero.Load())
	req.Equal(connections, registry.ConnectionCount("alice"))

	// And exactly one of the concurrent disconnections observes 1->0
	sawZero.Store(0)
	for _, conn := range conns {
		wg.Add(1)
		go func(conn *fakeConn) {
			defer wg.Done()
			if registry.Deregister("conv1", "alice", conn) == 0 {
				sawZero.Add(1)
			}
		}(conn)
	}
	wg.Wait()

	req.Equal(int32(1), sawZero.Load())
	req.Equal(0, registry.ConnectionCount("alice"))
}

func TestRegistry_ConnectionCount_Spans_Conversations(t *testing.T) {
	req := require.New(t)
	registry := NewConnectionRegistry(slog.Default())

	registry.Register("conv1", "alice", &fakeConn{})
	registry.Register("conv2", "alice", &fakeConn{})

	req.Equal(2, registry.ConnectionCount("alice"))
}

func TestRegistry_Failed_Send_Deregisters_Without_Aborting_Delivery(t *testing.T) {
	req := require.New(t)
	registry := NewConnectionRegistry(slog.Default())
	broken := &fakeConn{fail: true}
	healthy := &fakeConn{}

	registry.Register("conv1", "alice", broken)
	registry.Register("conv1", "bob", healthy)

	registry.Broadcast(context.Background(), "conv1", testEvent())

	// The healthy connection still got the event
	req.Len(healthy.received(), 1)
	// The broken one was collected and deregistered after the pass
	req.Equal(0, registry.ConnectionCount("alice"))
	req.Equal(1, registry.ConnectionCount("bob"))
}

func TestRegistry_Concurrent_Register_Broadcast_Deregister(t *testing.T) {
	req := require.New(t)
	registry := NewConnectionRegistry(slog.Default())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			conn := &fakeConn{}
			user := fmt.Sprintf("user-%d", n)
			registry.Register("conv1", user, conn)
			registry.Broadcast(context.Background(), "conv1", testEvent())
			registry.Deregister("conv1", user, conn)
		}(i)
	}
	wg.Wait()

	registry.mu.RLock()
	defer registry.mu.RUnlock()
	req.Empty(registry.conversations)
}
