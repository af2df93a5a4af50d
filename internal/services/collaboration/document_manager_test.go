package collaboration

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"collabdocs/internal/collab"
	"collabdocs/internal/models"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	content map[string]string
}

func (p *stubProvider) GetContent(ctx context.Context, documentID string) (string, error) {
	return p.content[documentID], nil
}

// startHub boots a hub behind a real HTTP server and returns the websocket
// endpoint base URL.
func startHub(t *testing.T, provider ContentProvider) (*DocumentManager, string) {
	t.Helper()

	hub := NewDocumentManager(provider)
	hub.Start()
	t.Cleanup(hub.Shutdown)

	handler := NewWebSocketHandler(hub)
	r := mux.NewRouter()
	r.HandleFunc("/ws/documents/{id}", handler.HandleDocumentConnection)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/documents"
}

func openClient(t *testing.T, url, doc, userID, userName string, onContent func(string)) *collab.Session {
	t.Helper()
	session, err := collab.Open(collab.Options{
		URL:        url,
		DocumentID: doc,
		UserID:     userID,
		UserName:   userName,
		OnContent:  onContent,
	})
	require.NoError(t, err)
	t.Cleanup(session.Close)
	return session
}

func TestHubSeedsInitFromStore(t *testing.T) {
	provider := &stubProvider{content: map[string]string{"d1": "persisted draft"}}
	hub, url := startHub(t, provider)

	contents := make(chan string, 8)
	session := openClient(t, url, "d1", "alice", "Alice", func(c string) { contents <- c })

	select {
	case c := <-contents:
		assert.Equal(t, "persisted draft", c)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for init snapshot")
	}

	require.Eventually(t, func() bool { return session.ActiveUsers() == 1 },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, hub.ActiveUsers("d1"))
}

func TestHubUpdatePropagation(t *testing.T) {
	provider := &stubProvider{content: map[string]string{"d1": "v1"}}
	hub, url := startHub(t, provider)

	aContents := make(chan string, 8)
	bContents := make(chan string, 8)
	a := openClient(t, url, "d1", "alice", "Alice", func(c string) { aContents <- c })
	b := openClient(t, url, "d1", "bob", "Bob", func(c string) { bContents <- c })

	// Both joiners get the snapshot; the count converges to 2 on both sides.
	assert.Equal(t, "v1", <-aContents)
	assert.Equal(t, "v1", <-bContents)
	require.Eventually(t, func() bool {
		return a.ActiveUsers() == 2 && b.ActiveUsers() == 2
	}, 2*time.Second, 5*time.Millisecond)

	a.SendContentUpdate("v2")

	select {
	case c := <-bContents:
		assert.Equal(t, "v2", c)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update broadcast")
	}

	// The author never sees their own edit come back.
	select {
	case c := <-aContents:
		t.Fatalf("author received echo %q", c)
	case <-time.After(100 * time.Millisecond):
	}

	// The room's in-memory content moved, so a late joiner sees v2.
	cContents := make(chan string, 8)
	openClient(t, url, "d1", "carol", "Carol", func(c string) { cContents <- c })
	assert.Equal(t, "v2", <-cContents)
	assert.Equal(t, 3, hub.ActiveUsers("d1"))
}

func TestHubCursorBroadcast(t *testing.T) {
	provider := &stubProvider{content: map[string]string{}}
	_, url := startHub(t, provider)

	a := openClient(t, url, "d1", "alice", "Alice", nil)
	b := openClient(t, url, "d1", "bob", "Bob", nil)

	require.Eventually(t, func() bool {
		return a.ActiveUsers() == 2 && b.ActiveUsers() == 2
	}, 2*time.Second, 5*time.Millisecond)

	a.SendCursorPosition(json.RawMessage(`{"x":12,"y":34}`))

	require.Eventually(t, func() bool {
		_, ok := b.RemoteCursors()["alice"]
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	cursor := b.RemoteCursors()["alice"]
	assert.Equal(t, "Alice", cursor.UserName)
	assert.Equal(t, colorFor("alice"), cursor.Color, "hub stamps the stable per-user color")
	assert.JSONEq(t, `{"x":12,"y":34}`, string(cursor.Position))

	// The sender's own map stays empty.
	assert.Empty(t, a.RemoteCursors())

	a.SendSelection(collab.SelectionRange{Start: 2, End: 8, Text: "llo wo"})
	require.Eventually(t, func() bool {
		sel, ok := b.RemoteSelections()["alice"]
		return ok && sel.Selection.Start == 2 && sel.Selection.End == 8
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHubDepartureTeardown(t *testing.T) {
	provider := &stubProvider{content: map[string]string{}}
	hub, url := startHub(t, provider)

	a := openClient(t, url, "d1", "alice", "Alice", nil)
	b := openClient(t, url, "d1", "bob", "Bob", nil)

	require.Eventually(t, func() bool {
		return a.ActiveUsers() == 2 && b.ActiveUsers() == 2
	}, 2*time.Second, 5*time.Millisecond)

	a.SendCursorPosition(json.RawMessage(`{"x":1,"y":1}`))
	require.Eventually(t, func() bool {
		return len(b.RemoteCursors()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	// A clean departure removes the cursor immediately, no TTL wait, and the
	// remaining peer's count drops to the server's new truth.
	a.Close()

	require.Eventually(t, func() bool {
		return b.ActiveUsers() == 1 && len(b.RemoteCursors()) == 0
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, hub.ActiveUsers("d1"))

	sessions := hub.Sessions("d1")
	require.Len(t, sessions, 1)
	assert.Equal(t, "bob", sessions[0].UserID)
}

func TestHubRoomIsolation(t *testing.T) {
	provider := &stubProvider{content: map[string]string{}}
	hub, url := startHub(t, provider)

	aContents := make(chan string, 8)
	a := openClient(t, url, "d1", "alice", "Alice", func(c string) { aContents <- c })
	other := openClient(t, url, "d2", "bob", "Bob", nil)
	<-aContents // init

	require.Eventually(t, func() bool {
		return a.Connected() && other.Connected()
	}, 2*time.Second, 5*time.Millisecond)

	other.SendContentUpdate("different document")

	select {
	case c := <-aContents:
		t.Fatalf("update leaked across rooms: %q", c)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, 1, hub.ActiveUsers("d1"))
	assert.Equal(t, 1, hub.ActiveUsers("d2"))
}

func TestHubDropsSlowConsumerWithoutStalling(t *testing.T) {
	hub := NewDocumentManager(nil)
	hub.Start()
	defer hub.Shutdown()

	sender := &Session{
		LiveSession: models.NewLiveSession("d1", "fast", "Fast", colorFor("fast")),
		Send:        make(chan []byte, 16),
		Manager:     hub,
	}
	// A session whose outbound queue is already saturated: the init frame
	// fills the single slot and nothing ever drains it.
	slow := &Session{
		LiveSession: models.NewLiveSession("d1", "slow", "Slow", colorFor("slow")),
		Send:        make(chan []byte, 1),
		Manager:     hub,
	}

	hub.register <- sender
	hub.register <- slow

	require.Eventually(t, func() bool { return hub.ActiveUsers("d1") == 2 },
		2*time.Second, 5*time.Millisecond)

	// A broadcast the slow session cannot absorb must drop that session,
	// not wedge the hub.
	hub.HandleFrame(sender, &collab.Frame{Type: collab.FrameUpdate, Content: "v2"})

	require.Eventually(t, func() bool { return hub.ActiveUsers("d1") == 1 },
		2*time.Second, 5*time.Millisecond)

	// The event loop must still be serving registrations after the drop.
	third := &Session{
		LiveSession: models.NewLiveSession("d1", "late", "Late", colorFor("late")),
		Send:        make(chan []byte, 16),
		Manager:     hub,
	}
	select {
	case hub.register <- third:
	case <-time.After(2 * time.Second):
		t.Fatal("hub event loop stalled after dropping a slow consumer")
	}

	require.Eventually(t, func() bool { return hub.ActiveUsers("d1") == 2 },
		2*time.Second, 5*time.Millisecond)

	sessions := hub.Sessions("d1")
	require.Len(t, sessions, 2)
	assert.ElementsMatch(t, []string{"fast", "late"},
		[]string{sessions[0].UserID, sessions[1].UserID})
}

func TestColorForIsStable(t *testing.T) {
	assert.Equal(t, colorFor("alice"), colorFor("alice"))
	assert.Contains(t, cursorPalette, colorFor("anyone"))
}
