package client

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"pongonline/internal/game"
	"pongonline/internal/net"
)

const (
	FrameRate = 60

	netTimeoutSec      = 60
	coldBootTimeoutSec = 150
	retryIntervalSec   = 15
	lostGraceTicks     = 240

	menuDebounce  = 190 * time.Millisecond
	lobbyDebounce = 200 * time.Millisecond

	ellipsisPeriod = 30 // ticks between ellipsis updates (2 Hz)

	transCellsPerFrame = 14

	goalHaltTicks = 180
	winScore      = 3
)

// Mode is the client's top-level state. Entry work that the mode needs to
// run exactly once lives in setMode; the per-tick handlers run every frame
// until a transition fires.
type Mode int

const (
	ModeMenu Mode = iota
	ModeOnlineConnect
	ModeOnlineWaiting
	ModeOnlineOffline
	ModeLobbyBrowser
	ModeTransOnline
	ModeTransOffline
	ModeOnlineGame
	ModeOfflineGame
	ModeLost
)

func (m Mode) String() string {
	switch m {
	case ModeMenu:
		return "menu"
	case ModeOnlineConnect:
		return "online-connect"
	case ModeOnlineWaiting:
		return "online-waiting"
	case ModeOnlineOffline:
		return "online-offline"
	case ModeLobbyBrowser:
		return "lobby-browser"
	case ModeTransOnline:
		return "trans-online"
	case ModeTransOffline:
		return "trans-offline"
	case ModeOnlineGame:
		return "online-game"
	case ModeOfflineGame:
		return "offline-game"
	case ModeLost:
		return "lost"
	default:
		return "unknown"
	}
}

var menuItems = []string{"SOLO", "ONLINE", "SCREEN", "QUIT"}

// Machine drives the whole client: one Tick per frame consumes the input
// snapshot and the connection state and produces a UI string plus an entity
// list for the render layer. It never blocks; all network traffic moves
// through the worker's queues.
type Machine struct {
	worker *Worker
	now    func() time.Time

	clientID string
	mode     Mode

	// menu
	menuTick  int
	menuIndex int
	menuEpoch time.Time
	demo      *game.Pong

	// settings consumed by the shells (audio, window)
	Volume        float64
	onScreenCycle func()
	quit          bool

	// network bookkeeping
	wasConnected  bool
	coldBootStart time.Time
	lastRetrySec  int

	rateLimited     bool
	rateLimitedPrev bool

	// per-mode tick counters
	connectTick int
	waitingTick int
	browserTick int
	lostTick    int
	onlineTick  int

	// lobby browser
	lobbies    []net.LobbyInfo
	lobbyIndex int
	lobbyID    string
	lobbyName  string
	lobbyEpoch time.Time

	// scripted transition
	transTick   int
	transRows   int
	transCols   int
	transCells  []game.Entity
	transTarget Mode

	// offline match
	pong       *game.Pong
	scores     [2]int
	playTick   int
	haltTicks  int
	goalScored bool
	goalDir    int
	drawLine   bool
	drawnLines int
	dashes     []game.Entity

	// ui
	ellipse int
	dots    string
	ui      string
}

func NewMachine(w *Worker, clientID string) *Machine {
	m := &Machine{
		worker:   w,
		now:      time.Now,
		clientID: clientID,
		Volume:   1,
	}
	m.setMode(ModeMenu)
	return m
}

func (m *Machine) Mode() Mode               { return m.mode }
func (m *Machine) UI() string               { return m.ui }
func (m *Machine) QuitRequested() bool      { return m.quit }
func (m *Machine) SetScreenCycle(fn func()) { m.onScreenCycle = fn }

// Entities returns the drawable state for the current mode.
func (m *Machine) Entities() []game.Entity {
	switch m.mode {
	case ModeMenu:
		return m.demo.Entities()
	case ModeTransOnline, ModeTransOffline:
		return m.transCells
	case ModeOfflineGame:
		ents := append([]game.Entity{}, m.dashes...)
		return append(ents, m.pong.Entities()...)
	default:
		return nil
	}
}

// Tick runs one frame. The connection-loss guard runs first, independent
// of mode: a true loss (was connected, now isn't, not already in a
// disconnect-handling mode, and not the cold-boot signature) always wins
// over whatever the mode handler would do.
func (m *Machine) Tick(in Input) {
	if m.connected() {
		m.wasConnected = true
	}

	if m.wasConnected && !m.connected() &&
		m.mode != ModeLost && m.mode != ModeOnlineWaiting && m.mode != ModeOnlineOffline &&
		m.lastError() != ErrHandshakeTimeout {
		m.setMode(ModeLost)
	}

	switch m.mode {
	case ModeMenu:
		m.updateMenu(in)
	case ModeOnlineConnect:
		m.updateOnlineConnect()
	case ModeOnlineWaiting:
		m.updateOnlineWaiting()
	case ModeOnlineOffline:
		m.updateOnlineOffline(in)
	case ModeLobbyBrowser:
		m.updateLobbyBrowser(in)
	case ModeTransOnline, ModeTransOffline:
		m.updateTransition()
	case ModeOnlineGame:
		m.updateOnlineGame()
	case ModeOfflineGame:
		m.updateOfflineGame(in)
	case ModeLost:
		m.updateLost()
	}
}

// setMode switches modes and runs the new mode's one-shot entry work.
func (m *Machine) setMode(mode Mode) {
	m.mode = mode
	m.ui = ""

	switch mode {
	case ModeMenu:
		m.menuTick = 0
		m.demo = game.NewPong(true)
	case ModeOnlineConnect:
		m.connectTick = 0
	case ModeOnlineWaiting:
		m.waitingTick = 0
	case ModeOnlineOffline:
		// nothing beyond the cleared ui
	case ModeLobbyBrowser:
		m.browserTick = 0
	case ModeTransOnline, ModeTransOffline:
		m.transTick = 0
		m.transRows = 0
		m.transCols = 0
		m.transCells = nil
		if mode == ModeTransOnline {
			m.transTarget = ModeOnlineGame
		} else {
			m.transTarget = ModeOfflineGame
		}
	case ModeOnlineGame:
		m.onlineTick = 0
	case ModeOfflineGame:
		m.playTick = 0
		m.scores = [2]int{}
		m.haltTicks = 0
		m.goalScored = false
		m.drawLine = true
		m.drawnLines = 0
		m.dashes = nil
		m.pong = game.NewPong(false)
	case ModeLost:
		m.lostTick = 0
	}
}

// ---- connection helpers ----

func (m *Machine) conn() *Conn { return m.worker.State() }

func (m *Machine) connected() bool {
	c := m.conn()
	return c != nil && c.Connected()
}

func (m *Machine) lastError() ErrorKind {
	c := m.conn()
	if c == nil {
		return ErrNone
	}
	return c.LastError()
}

func (m *Machine) send(v interface{}) {
	c := m.conn()
	if c == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Send(data)
}

// ---- menu ----

func (m *Machine) updateMenu(in Input) {
	m.menuTick++
	now := m.now()

	// Demo rally behind the menu
	if out := m.demo.Step(false, false); out != game.OutcomeNone {
		dir := 1
		if out == game.OutcomeGoalRight {
			dir = -1
		}
		m.demo.Respawn(dir)
	}

	if now.Sub(m.menuEpoch) > menuDebounce {
		switch {
		case in.Pressed(ActionUp):
			m.menuIndex = (m.menuIndex - 1 + len(menuItems)) % len(menuItems)
			m.menuEpoch = now
		case in.Pressed(ActionDown):
			m.menuIndex = (m.menuIndex + 1) % len(menuItems)
			m.menuEpoch = now
		case in.Pressed(ActionSelect):
			// Push both epochs past now so the press can't leak into
			// the next screen and join a lobby by accident.
			m.menuEpoch = now.Add(100 * time.Millisecond)
			m.lobbyEpoch = now.Add(100 * time.Millisecond)
			m.selectMenuItem(menuItems[m.menuIndex])
			return
		case in.Pressed(ActionVolDown):
			m.Volume = clampVolume(m.Volume - 0.1)
			m.menuEpoch = now
		case in.Pressed(ActionVolUp):
			m.Volume = clampVolume(m.Volume + 0.1)
			m.menuEpoch = now
		}
	}

	m.ui = m.menuText()
}

func (m *Machine) selectMenuItem(item string) {
	switch item {
	case "SOLO":
		m.setMode(ModeTransOffline)
	case "ONLINE":
		m.lobbyID, m.lobbyName = "", ""
		m.lobbyIndex = 0
		m.setMode(ModeOnlineConnect)
		m.worker.Start()
	case "SCREEN":
		if m.onScreenCycle != nil {
			m.onScreenCycle()
		}
	case "QUIT":
		m.quit = true
	}
}

func (m *Machine) menuText() string {
	var b strings.Builder
	b.WriteString("\nPONG ONLINE\n\n")
	for i, item := range menuItems {
		cursor := "  "
		if i == m.menuIndex {
			cursor = "> "
		}
		fmt.Fprintf(&b, "%s%s\n", cursor, item)
	}
	fmt.Fprintf(&b, "\nVOLUME %.0f%%\n", m.Volume*100)
	return b.String()
}

// ---- online connect / waiting / offline ----

func (m *Machine) updateOnlineConnect() {
	m.connectTick++

	// Cold boot: escalate to the waiting screen and its retry loop
	if m.lastError() == ErrHandshakeTimeout {
		m.coldBootStart = m.now()
		m.lastRetrySec = 0
		m.setMode(ModeOnlineWaiting)
		return
	}

	// Dev: the server isn't reachable at all. Permanent until restart.
	if m.lastError() == ErrConnectionRefused {
		m.ui = "\n\n(DEV) Server settings failed\n\nThis screen is permanent\nuntil restart."
		return
	}

	if m.connectTick%ellipsisPeriod == 0 {
		m.advanceEllipsis()
	}

	if m.connected() {
		m.send(net.ListLobbiesMessage{Type: net.TypeListLobbies})
		m.setMode(ModeLobbyBrowser)
		return
	}

	// Failsafe eject
	if m.connectTick >= FrameRate*netTimeoutSec/2 {
		m.setMode(ModeLost)
		return
	}

	m.ui = fmt.Sprintf("\n\nCONNECTING TO\nSERVER%s", m.dots)
}

func (m *Machine) updateOnlineWaiting() {
	m.waitingTick++

	// Success: connection came up while waiting
	if m.connected() {
		m.lastRetrySec = 0
		m.send(net.ListLobbiesMessage{Type: net.TypeListLobbies})
		m.setMode(ModeLobbyBrowser)
		return
	}

	elapsed := int(m.now().Sub(m.coldBootStart).Seconds())

	if m.waitingTick%ellipsisPeriod == 0 {
		m.advanceEllipsis()
		m.ui = fmt.Sprintf(
			"\nSERVER IS COLD BOOTING\n\nTHIS MAY TAKE UP TO %d SECONDS.\nBUT USUALLY TAKES 60\n\n(%d)\n%s\n\nYou're the only player online.\nThanks for playing!",
			coldBootTimeoutSec, coldBootTimeoutSec-elapsed, m.dots)

		// Throttled retry, prevents reconnect storms
		if elapsed-m.lastRetrySec >= retryIntervalSec {
			m.lastRetrySec = elapsed
			m.worker.Start()
		}

		if elapsed >= coldBootTimeoutSec && !m.connected() {
			m.setMode(ModeOnlineOffline)
		}
	}
}

func (m *Machine) updateOnlineOffline(in Input) {
	m.ui = "\n\n(SERVER)\n\nPLEASE TRY AGAIN LATER\n\nESC BACK TO MENU"

	if in.Pressed(ActionBack) {
		m.setMode(ModeMenu)
	}
}

// ---- lobby browser ----

func (m *Machine) updateLobbyBrowser(in Input) {
	m.browserTick++
	now := m.now()

	// Drain everything queued this frame; these are small control events,
	// processed in arrival order.
	for c := m.conn(); c != nil; {
		raw, ok := c.TryRecv()
		if !ok {
			break
		}
		kind, ok := net.Kind(raw)
		if !ok {
			continue
		}

		// The hosting edge throttles abusive clients; while throttled,
		// lobby traffic is untrustworthy and sends are held back.
		m.rateLimited = strings.Contains(kind, net.TypeRateLimited)
		if m.rateLimitedPrev != m.rateLimited {
			m.rateLimitedPrev = m.rateLimited
			log.Printf("lobby-browser: rate limited: %v", m.rateLimited)
		}
		if m.rateLimited {
			continue
		}

		switch kind {
		case net.TypeLobbyList:
			var msg net.LobbyListMessage
			if err := json.Unmarshal(raw, &msg); err == nil {
				m.lobbies = msg.Lobbies
				if m.lobbyIndex >= len(m.lobbies) {
					m.lobbyIndex = 0
				}
			}

		case net.TypeLobbyStatus:
			var msg net.LobbyStatusMessage
			if err := json.Unmarshal(raw, &msg); err == nil {
				m.lobbyID = deref(msg.ID)
				m.lobbyName = deref(msg.Name)
			}

		case net.TypeStartGame:
			m.setMode(ModeTransOnline)
		}
	}

	if m.mode != ModeLobbyBrowser {
		return
	}

	if now.Sub(m.lobbyEpoch) > lobbyDebounce {
		switch {
		case in.Pressed(ActionCreate) && m.lobbyID == "" && !m.rateLimited:
			m.send(net.CreateLobbyMessage{Type: net.TypeCreateLobby, Owner: m.clientID})
			m.lobbyEpoch = now

		case in.Pressed(ActionLeave) && m.lobbyID != "" && !m.rateLimited:
			m.send(net.LeaveLobbyMessage{Type: net.TypeLeaveLobby})
			m.lobbyEpoch = now

		case in.Pressed(ActionBack):
			m.setMode(ModeMenu)
			return

		case m.lobbyID != "":
			// In a lobby: no browsing until we leave.

		case in.Pressed(ActionUp):
			if m.lobbyIndex > 0 {
				m.lobbyIndex--
			}
			m.lobbyEpoch = now

		case in.Pressed(ActionDown):
			if m.lobbyIndex < len(m.lobbies)-1 {
				m.lobbyIndex++
			}
			m.lobbyEpoch = now

		case in.Pressed(ActionSelect):
			if len(m.lobbies) > 0 {
				m.send(net.JoinLobbyMessage{Type: net.TypeJoinLobby, ID: m.lobbies[m.lobbyIndex].ID})
			}
			m.lobbyEpoch = now
		}
	}

	m.ui = m.lobbyText()
}

func (m *Machine) lobbyText() string {
	var b strings.Builder
	b.WriteString("\nLOBBIES\n\n")
	if m.rateLimited {
		b.WriteString("RATE LIMITED - HOLD ON\n\n")
	}
	if len(m.lobbies) == 0 {
		b.WriteString("  no lobbies yet\n")
	}
	for i, lb := range m.lobbies {
		cursor := "  "
		if i == m.lobbyIndex && m.lobbyID == "" {
			cursor = "> "
		}
		marker := ""
		if lb.ID == m.lobbyID {
			marker = " *"
		}
		fmt.Fprintf(&b, "%s%s %d/%d%s\n", cursor, lb.Name, lb.Players, lb.MaxPlayers, marker)
	}
	b.WriteString("\n")
	if m.lobbyID == "" {
		b.WriteString("C create  ENTER join  ESC back\n")
	} else {
		fmt.Fprintf(&b, "waiting in %s\nL leave\n", m.lobbyName)
	}
	return b.String()
}

// ---- scripted transition ----

// updateTransition fills the grid with cells a fixed batch per frame, then
// empties it again, then switches to the target mode. Purely cosmetic.
func (m *Machine) updateTransition() {
	m.transTick++

	for i := 0; i < transCellsPerFrame; i++ {
		// Spawn phase
		if m.transRows < game.Rows {
			m.transCells = append(m.transCells, game.Entity{
				Kind: game.KindCell,
				Row:  m.transRows,
				Col:  m.transCols,
			})
			m.transCols++
			if m.transCols >= game.Cols {
				m.transCols = 0
				m.transRows++
			}
			continue
		}

		// Delete phase
		if len(m.transCells) == 0 {
			target := m.transTarget
			log.Printf("transition: switching to %v", target)
			m.setMode(target)
			return
		}
		m.transCells = m.transCells[1:]
	}
}

// ---- online game ----

func (m *Machine) updateOnlineGame() {
	m.onlineTick++
	m.ui = fmt.Sprintf("\n   %d   %d\n\n(P1) YOU   RIVAL (P2)", m.scores[0], m.scores[1])
}

// ---- offline game ----

func (m *Machine) updateOfflineGame(in Input) {
	m.playTick++

	if in.Pressed(ActionBack) {
		m.setMode(ModeMenu)
		return
	}

	// Goal halt
	if m.haltTicks > 0 {
		m.haltTicks--
		return
	}

	if m.goalScored {
		m.goalScored = false
		if m.scores[0] >= winScore || m.scores[1] >= winScore {
			m.setMode(ModeMenu)
			return
		}
		m.pong.Respawn(m.goalDir)
	}

	// The match only starts once the center line has been drawn.
	if m.drawLine {
		if m.playTick%5 == 0 {
			m.dashes = append(m.dashes, game.Entity{Kind: game.KindDash, Row: m.drawnLines, Col: game.Cols / 2})
			m.drawnLines++
			if m.drawnLines >= game.Rows {
				m.drawLine = false
			}
		}
		return
	}

	switch m.pong.Step(in.Pressed(ActionUp), in.Pressed(ActionDown)) {
	case game.OutcomeGoalLeft:
		// Crossed the left edge: right side scores, serve back left.
		m.scores[1]++
		m.goalScored = true
		m.goalDir = -1
		m.haltTicks = goalHaltTicks
	case game.OutcomeGoalRight:
		m.scores[0]++
		m.goalScored = true
		m.goalDir = 1
		m.haltTicks = goalHaltTicks
	}

	m.ui = fmt.Sprintf("\n   %d   %d", m.scores[0], m.scores[1])
}

// ---- lost connection ----

func (m *Machine) updateLost() {
	m.lostTick++
	m.ui = "\n\nConnection lost. Sorry!\n"

	if m.lostTick >= lostGraceTicks {
		m.wasConnected = false
		m.setMode(ModeMenu)
	}
}

// ---- helpers ----

func (m *Machine) advanceEllipsis() {
	m.ellipse++
	m.dots = strings.Repeat(".", m.ellipse%3+1)
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
