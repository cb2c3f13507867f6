package server

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pongonline/internal/net"
)

// newTestConn builds a Connection with no websocket behind it; SendMessage
// only touches the send queue, so handler logic is fully testable offline.
func newTestConn() *Connection {
	return &Connection{send: make(chan []byte, 64)}
}

// recvAll empties c's send queue.
func recvAll(t *testing.T, c *Connection) [][]byte {
	t.Helper()
	var frames [][]byte
	for {
		select {
		case f := <-c.send:
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func kindsOf(t *testing.T, frames [][]byte) []string {
	t.Helper()
	kinds := make([]string, 0, len(frames))
	for _, f := range frames {
		kind, ok := net.Kind(f)
		if !ok {
			t.Fatalf("unparseable frame: %s", f)
		}
		kinds = append(kinds, kind)
	}
	return kinds
}

// lastStatus returns the last lobby_status frame in frames, decoded.
func lastStatus(t *testing.T, frames [][]byte) (net.LobbyStatusMessage, bool) {
	t.Helper()
	var msg net.LobbyStatusMessage
	found := false
	for _, f := range frames {
		if kind, _ := net.Kind(f); kind == net.TypeLobbyStatus {
			require.NoError(t, json.Unmarshal(f, &msg))
			found = true
		}
	}
	return msg, found
}

// lastList returns the last lobby_list frame in frames, decoded.
func lastList(t *testing.T, frames [][]byte) (net.LobbyListMessage, bool) {
	t.Helper()
	var msg net.LobbyListMessage
	found := false
	for _, f := range frames {
		if kind, _ := net.Kind(f); kind == net.TypeLobbyList {
			require.NoError(t, json.Unmarshal(f, &msg))
			found = true
		}
	}
	return msg, found
}

func countKind(kinds []string, kind string) int {
	n := 0
	for _, k := range kinds {
		if k == kind {
			n++
		}
	}
	return n
}

func TestCreateLobby_StatusAndBroadcast(t *testing.T) {
	reg := NewRegistry()
	c := newTestConn()
	reg.Connect(c)

	reg.CreateLobby(c, "owner-1")

	frames := recvAll(t, c)
	status, ok := lastStatus(t, frames)
	require.True(t, ok, "expected a lobby_status reply")
	require.NotNil(t, status.ID)
	require.NotNil(t, status.Name)
	assert.Len(t, *status.ID, 8)

	list, ok := lastList(t, frames)
	require.True(t, ok, "expected a lobby_list broadcast")
	require.Len(t, list.Lobbies, 1)
	assert.Equal(t, *status.ID, list.Lobbies[0].ID)
	assert.Equal(t, 1, list.Lobbies[0].Players)
	assert.Equal(t, LobbyCapacity, list.Lobbies[0].MaxPlayers)
}

func TestCreateThenList_RoundTrip(t *testing.T) {
	reg := NewRegistry()
	c := newTestConn()
	reg.Connect(c)

	reg.CreateLobby(c, "owner-1")
	recvAll(t, c)

	reg.ListLobbies(c)
	frames := recvAll(t, c)

	list, ok := lastList(t, frames)
	require.True(t, ok)
	require.Len(t, list.Lobbies, 1)
	assert.Equal(t, 1, list.Lobbies[0].Players)

	// list_lobbies also answers with the requester's own status
	status, ok := lastStatus(t, frames)
	require.True(t, ok)
	require.NotNil(t, status.ID)
}

func TestCreateWhileInLobby_Error(t *testing.T) {
	reg := NewRegistry()
	c := newTestConn()
	reg.Connect(c)

	reg.CreateLobby(c, "owner-1")
	recvAll(t, c)

	reg.CreateLobby(c, "owner-1")
	frames := recvAll(t, c)

	require.Len(t, frames, 1)
	var msg net.ErrorMessage
	require.NoError(t, json.Unmarshal(frames[0], &msg))
	assert.Equal(t, net.TypeError, msg.Type)
	assert.Equal(t, net.ErrAlreadyInLobby, msg.Message)

	// no second lobby appeared
	assert.Len(t, reg.lobbies, 1)
}

func TestJoinWhileInLobby_Error(t *testing.T) {
	reg := NewRegistry()
	c1, c2 := newTestConn(), newTestConn()
	reg.Connect(c1)
	reg.Connect(c2)

	reg.CreateLobby(c1, "a")
	reg.CreateLobby(c2, "b")
	recvAll(t, c1)
	status, _ := lastStatus(t, recvAll(t, c2))

	reg.JoinLobby(c1, *status.ID)
	frames := recvAll(t, c1)

	var msg net.ErrorMessage
	require.Len(t, frames, 1)
	require.NoError(t, json.Unmarshal(frames[0], &msg))
	assert.Equal(t, net.ErrAlreadyInLobby, msg.Message)
}

func TestJoinNonexistent_NoOp(t *testing.T) {
	reg := NewRegistry()
	c := newTestConn()
	reg.Connect(c)

	reg.JoinLobby(c, "no-such-id")

	assert.Empty(t, recvAll(t, c))
	assert.Empty(t, reg.sessions[c].lobbyID)
}

func TestJoinFull_NoOp(t *testing.T) {
	reg := NewRegistry()
	c1, c2, c3 := newTestConn(), newTestConn(), newTestConn()
	reg.Connect(c1)
	reg.Connect(c2)
	reg.Connect(c3)

	reg.CreateLobby(c1, "a")
	status, _ := lastStatus(t, recvAll(t, c1))
	id := *status.ID

	reg.JoinLobby(c2, id)
	recvAll(t, c1)
	recvAll(t, c2)
	recvAll(t, c3)

	reg.JoinLobby(c3, id)

	assert.Empty(t, recvAll(t, c3), "join on a full lobby must stay silent")
	assert.Empty(t, reg.sessions[c3].lobbyID)
	assert.Len(t, reg.lobbies[id].members, LobbyCapacity)
}

func TestAutoStart_ExactMemberSet(t *testing.T) {
	reg := NewRegistry()
	c1, c2, c3 := newTestConn(), newTestConn(), newTestConn()
	reg.Connect(c1)
	reg.Connect(c2)
	reg.Connect(c3)

	reg.CreateLobby(c1, "a")
	status, _ := lastStatus(t, recvAll(t, c1))
	recvAll(t, c2)
	recvAll(t, c3)

	reg.JoinLobby(c2, *status.ID)

	assert.Equal(t, 1, countKind(kindsOf(t, recvAll(t, c1)), net.TypeStartGame))
	assert.Equal(t, 1, countKind(kindsOf(t, recvAll(t, c2)), net.TypeStartGame))
	assert.Equal(t, 0, countKind(kindsOf(t, recvAll(t, c3)), net.TypeStartGame),
		"bystanders must not receive start_game")
}

func TestLeave_DeletesEmptyLobby(t *testing.T) {
	reg := NewRegistry()
	c := newTestConn()
	reg.Connect(c)

	reg.CreateLobby(c, "a")
	recvAll(t, c)

	reg.LeaveLobby(c)
	frames := recvAll(t, c)

	status, ok := lastStatus(t, frames)
	require.True(t, ok)
	assert.Nil(t, status.ID)
	assert.Nil(t, status.Name)

	list, ok := lastList(t, frames)
	require.True(t, ok)
	assert.Empty(t, list.Lobbies)
	assert.Empty(t, reg.lobbies)
}

func TestDisconnect_SameEndStateAsLeave(t *testing.T) {
	// Scenario A: explicit leave, then disconnect
	regA := NewRegistry()
	a := newTestConn()
	regA.Connect(a)
	regA.CreateLobby(a, "a")
	regA.LeaveLobby(a)
	regA.Disconnect(a)

	// Scenario B: disconnect with an active membership
	regB := NewRegistry()
	b := newTestConn()
	regB.Connect(b)
	regB.CreateLobby(b, "b")
	regB.Disconnect(b)

	assert.Empty(t, regA.lobbies)
	assert.Empty(t, regA.sessions)
	assert.Empty(t, regB.lobbies)
	assert.Empty(t, regB.sessions)
}

func TestDisconnect_FreesSeatForOthers(t *testing.T) {
	reg := NewRegistry()
	c1, c2, c3 := newTestConn(), newTestConn(), newTestConn()
	reg.Connect(c1)
	reg.Connect(c2)
	reg.Connect(c3)

	reg.CreateLobby(c1, "a")
	status, _ := lastStatus(t, recvAll(t, c1))
	id := *status.ID

	reg.JoinLobby(c2, id)
	reg.Disconnect(c2)

	reg.JoinLobby(c3, id)
	joined, ok := lastStatus(t, recvAll(t, c3))
	require.True(t, ok)
	require.NotNil(t, joined.ID)
	assert.Equal(t, id, *joined.ID)
}

// TestInvariants_RandomOps hammers the registry with arbitrary operation
// sequences and checks the two structural invariants after every step:
// member counts never exceed capacity, and no connection sits in more than
// one lobby.
func TestInvariants_RandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	reg := NewRegistry()
	conns := make([]*Connection, 5)
	for i := range conns {
		conns[i] = &Connection{send: make(chan []byte, 1024)}
		reg.Connect(conns[i])
	}

	lobbyIDs := func() []string {
		ids := make([]string, 0, len(reg.lobbies))
		for id := range reg.lobbies {
			ids = append(ids, id)
		}
		return ids
	}

	for step := 0; step < 500; step++ {
		c := conns[rng.Intn(len(conns))]
		switch rng.Intn(4) {
		case 0:
			reg.CreateLobby(c, "fuzz")
		case 1:
			if ids := lobbyIDs(); len(ids) > 0 {
				reg.JoinLobby(c, ids[rng.Intn(len(ids))])
			}
		case 2:
			reg.LeaveLobby(c)
		case 3:
			reg.ListLobbies(c)
		}

		// Drain so queues never clog
		for _, cc := range conns {
			recvAll(t, cc)
		}

		seen := make(map[*Connection]int)
		for id, lb := range reg.lobbies {
			require.LessOrEqual(t, len(lb.members), LobbyCapacity,
				"step %d: lobby %s over capacity", step, id)
			require.NotEmpty(t, lb.members, "step %d: empty lobby %s retained", step, id)
			for _, member := range lb.members {
				seen[member]++
				require.Equal(t, id, reg.sessions[member].lobbyID,
					"step %d: membership out of sync", step)
			}
		}
		for cc, n := range seen {
			require.Equal(t, 1, n, "step %d: conn %p in %d lobbies", step, cc, n)
		}
	}
}
