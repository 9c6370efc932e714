package modelstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_Broadcast(t *testing.T) {
	n := NewNotifier()
	a := n.Subscribe()
	b := n.Subscribe()
	defer n.Unsubscribe(a)
	defer n.Unsubscribe(b)

	n.Publish(Change{Table: "users", Keys: []any{"u1"}})

	for _, ch := range []chan Change{a, b} {
		select {
		case c := <-ch:
			assert.Equal(t, "users", c.Table)
			assert.Equal(t, []any{"u1"}, c.Keys)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the change")
		}
	}
}

func TestNotifier_UnsubscribeClosesChannel(t *testing.T) {
	n := NewNotifier()
	ch := n.Subscribe()
	n.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic on the closed channel.
	n.Publish(Change{Table: "users", Keys: []any{"u1"}})
}

func TestNotifier_FullSubscriberDoesNotBlock(t *testing.T) {
	n := NewNotifier()
	ch := n.Subscribe()
	defer n.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		// More events than the channel buffers; Publish must not block.
		for i := 0; i < 100; i++ {
			n.Publish(Change{Table: "users", Keys: []any{int64(i)}})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}

func TestNotifier_DefaultSinkReceivesWrites(t *testing.T) {
	db, err := Open(t.TempDir()+"/app.db", WithLogger(newTestLogger(t)))
	require.NoError(t, err)
	defer db.Close()

	ch := db.Notifier().Subscribe()
	defer db.Notifier().Unsubscribe(ch)

	require.NoError(t, db.WriteSync(userRecord("u1", "Alice", 30)))

	select {
	case c := <-ch:
		assert.Equal(t, "users", c.Table)
		assert.Equal(t, []any{"u1"}, c.Keys)
	case <-time.After(time.Second):
		t.Fatal("no change event after committed write")
	}
}

func TestNotifier_OrderingFollowsExecution(t *testing.T) {
	db, err := Open(t.TempDir()+"/app.db", WithLogger(newTestLogger(t)))
	require.NoError(t, err)
	defer db.Close()

	ch := db.Notifier().Subscribe()
	defer db.Notifier().Unsubscribe(ch)

	ids := []string{"u1", "u2", "u3"}
	for _, id := range ids {
		require.NoError(t, db.WriteSync(NewRecord(usersTable(), map[string]any{"id": id})))
	}

	for _, want := range ids {
		select {
		case c := <-ch:
			assert.Equal(t, []any{want}, c.Keys)
		case <-time.After(time.Second):
			t.Fatalf("missing change event for %s", want)
		}
	}
}
