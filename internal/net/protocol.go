package net

import "encoding/json"

// Message type strings carried in the "type" field of every envelope.
const (
	TypeListLobbies = "list_lobbies"
	TypeCreateLobby = "create_lobby"
	TypeJoinLobby   = "join_lobby"
	TypeLeaveLobby  = "leave_lobby"

	TypeLobbyList   = "lobby_list"
	TypeLobbyStatus = "lobby_status"
	TypeStartGame   = "start_game"
	TypeError       = "error"

	// Injected by hosting edge infrastructure, never sent by our server.
	TypeRateLimited = "rate_limited"
)

// ErrAlreadyInLobby is the error payload for create/join while already a member.
const ErrAlreadyInLobby = "already_in_lobby"

// Client → Server messages

type ListLobbiesMessage struct {
	Type string `json:"type"`
}

type CreateLobbyMessage struct {
	Type  string `json:"type"`
	Owner string `json:"owner"`
}

type JoinLobbyMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type LeaveLobbyMessage struct {
	Type string `json:"type"`
}

// Server → Client messages

type LobbyInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"max_players"`
}

type LobbyListMessage struct {
	Type    string      `json:"type"`
	Lobbies []LobbyInfo `json:"lobbies"`
}

// LobbyStatusMessage reports the receiver's own membership. Both fields are
// null when the receiver is not in a lobby.
type LobbyStatusMessage struct {
	Type string  `json:"type"`
	ID   *string `json:"id"`
	Name *string `json:"name"`
}

type StartGameMessage struct {
	Type string `json:"type"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Kind extracts the "type" discriminator from a raw frame. Frames that do
// not begin with '{' or fail to parse report ok=false; callers drop them
// silently.
func Kind(raw []byte) (string, bool) {
	if len(raw) == 0 || raw[0] != '{' {
		return "", false
	}
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", false
	}
	if env.Type == "" {
		return "", false
	}
	return env.Type, true
}
