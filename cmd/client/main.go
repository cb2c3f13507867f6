package main

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"pongonline/internal/client"
	"pongonline/internal/game"
)

const ServerAddr = "wss://pongonline.onrender.com/ws"

// const ServerAddr = "ws://localhost:8080/ws" // local testing

type Game struct {
	machine  *client.Machine
	renderer *client.Renderer
	keys     *client.Keyboard
}

func (g *Game) Update() error {
	g.keys.Refresh()
	g.machine.Tick(g.keys)

	if g.machine.QuitRequested() {
		return ebiten.Termination
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	g.renderer.Draw(screen, g.machine.UI(), g.machine.Entities())
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return game.ScreenW, game.ScreenH
}

// clientID derives a stable opaque id from the hostname, used as the lobby
// owner tag.
func clientID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "anon"
	}
	sum := sha256.Sum256([]byte(host))
	return hex.EncodeToString(sum[:])
}

func main() {
	addr := os.Getenv("PONG_SERVER")
	if addr == "" {
		addr = ServerAddr
	}

	worker := client.NewWorker(addr)
	machine := client.NewMachine(worker, clientID())

	scale := 3
	ebiten.SetWindowSize(game.ScreenW*scale, game.ScreenH*scale)
	ebiten.SetWindowTitle("PongOnline")

	machine.SetScreenCycle(func() {
		scale++
		if scale > 5 {
			scale = 1
		}
		ebiten.SetWindowSize(game.ScreenW*scale, game.ScreenH*scale)
	})

	g := &Game{
		machine:  machine,
		renderer: client.NewRenderer(),
		keys:     &client.Keyboard{},
	}

	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
