package server

import (
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"

	"pongonline/internal/net"
)

// LobbyCapacity is the member limit of every lobby. Filling a lobby starts
// the game immediately, there is no ready step.
const LobbyCapacity = 2

var lobbyWords = []string{
	"PONG", "BALL", "WHAM", "SPIN", "GAME", "PLAY", "MISS", "BEEP",
	"DING", "BUMP", "WALL", "NETS", "EDGE", "ZONE", "DUEL", "COOP",
	"MODE", "FAST", "SLOW", "HOST", "JOIN",
}

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type session struct {
	lobbyID string // "" when not in a lobby
}

type lobby struct {
	id      string
	name    string
	owner   string
	members []*Connection // ordered, join order
}

// Registry is the single owner of all connection and lobby state. Every
// mutation goes through one of its methods under the mutex, so a connection
// is never in more than one lobby and no lobby exceeds LobbyCapacity.
type Registry struct {
	mu       sync.Mutex
	sessions map[*Connection]*session
	lobbies  map[string]*lobby
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[*Connection]*session),
		lobbies:  make(map[string]*lobby),
	}
}

// Connect registers a freshly accepted connection with no lobby membership.
func (r *Registry) Connect(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[c] = &session{}
}

// Disconnect is the implicit leave_lobby: any cause of disconnect ends with
// the same state as a clean leave followed by session removal.
func (r *Registry) Disconnect(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeFromLobby(c)
	delete(r.sessions, c)
	r.broadcastLobbies()
}

// ListLobbies answers with the global list to everyone plus the requester's
// own status, so a fresh client learns both in one round trip.
func (r *Registry) ListLobbies(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLobbies()
	r.sendStatus(c)
}

func (r *Registry) CreateLobby(c *Connection, owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess := r.sessions[c]
	if sess == nil {
		return
	}
	if sess.lobbyID != "" {
		c.SendMessage(net.ErrorMessage{Type: net.TypeError, Message: net.ErrAlreadyInLobby})
		return
	}

	lb := &lobby{
		id:      randID(8),
		name:    randLobbyName(),
		owner:   owner,
		members: []*Connection{c},
	}
	r.lobbies[lb.id] = lb
	sess.lobbyID = lb.id
	log.Printf("CreateLobby: %s (%s) by %s", lb.id, lb.name, owner)

	r.sendStatus(c)
	r.broadcastLobbies()
}

func (r *Registry) JoinLobby(c *Connection, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess := r.sessions[c]
	if sess == nil {
		return
	}
	if sess.lobbyID != "" {
		c.SendMessage(net.ErrorMessage{Type: net.TypeError, Message: net.ErrAlreadyInLobby})
		return
	}

	lb := r.lobbies[id]
	if lb == nil {
		return
	}
	if len(lb.members) >= LobbyCapacity {
		return
	}

	lb.members = append(lb.members, c)
	sess.lobbyID = lb.id

	r.sendStatus(c)
	r.broadcastLobbies()

	// Auto-start when full
	if len(lb.members) == LobbyCapacity {
		log.Printf("JoinLobby: %s full, starting game", lb.id)
		for _, member := range lb.members {
			member.SendMessage(net.StartGameMessage{Type: net.TypeStartGame})
		}
	}
}

func (r *Registry) LeaveLobby(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeFromLobby(c)
	r.sendStatus(c)
	r.broadcastLobbies()
}

// removeFromLobby detaches c from its lobby, deleting the lobby once empty.
// Callers hold the mutex.
func (r *Registry) removeFromLobby(c *Connection) {
	sess := r.sessions[c]
	if sess == nil || sess.lobbyID == "" {
		return
	}
	lb := r.lobbies[sess.lobbyID]
	if lb == nil {
		sess.lobbyID = ""
		return
	}

	for i, member := range lb.members {
		if member == c {
			lb.members = append(lb.members[:i], lb.members[i+1:]...)
			break
		}
	}
	if len(lb.members) == 0 {
		delete(r.lobbies, lb.id)
	}
	sess.lobbyID = ""
}

// broadcastLobbies sends the current lobby list to every connection. Sends
// are non-blocking, so one slow peer never stalls the rest. Callers hold
// the mutex.
func (r *Registry) broadcastLobbies() {
	msg := net.LobbyListMessage{Type: net.TypeLobbyList, Lobbies: r.snapshot()}
	for c := range r.sessions {
		c.SendMessage(msg)
	}
}

// sendStatus reports c's own membership to c alone. Callers hold the mutex.
func (r *Registry) sendStatus(c *Connection) {
	msg := net.LobbyStatusMessage{Type: net.TypeLobbyStatus}
	if sess := r.sessions[c]; sess != nil && sess.lobbyID != "" {
		if lb := r.lobbies[sess.lobbyID]; lb != nil {
			msg.ID = &lb.id
			msg.Name = &lb.name
		}
	}
	c.SendMessage(msg)
}

// snapshot builds the wire form of the lobby table, ordered by id so every
// broadcast lists lobbies in the same order. Callers hold the mutex.
func (r *Registry) snapshot() []net.LobbyInfo {
	infos := make([]net.LobbyInfo, 0, len(r.lobbies))
	for _, lb := range r.lobbies {
		infos = append(infos, net.LobbyInfo{
			ID:         lb.id,
			Name:       lb.name,
			Players:    len(lb.members),
			MaxPlayers: LobbyCapacity,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

func randID(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = idCharset[rand.Intn(len(idCharset))]
	}
	return string(b)
}

func randLobbyName() string {
	word := lobbyWords[rand.Intn(len(lobbyWords))]
	return fmt.Sprintf("%s-%d", word, 1000+rand.Intn(9000))
}
