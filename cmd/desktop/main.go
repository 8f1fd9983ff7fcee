package main

import (
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/mkchaos/rsc/pkg/asm"
	"github.com/mkchaos/rsc/pkg/compiler"
	"github.com/mkchaos/rsc/pkg/utils"
	"github.com/mkchaos/rsc/pkg/vm"
)

const (
	screenWidth  = 960
	screenHeight = 540
	statusHeight = 20
)

type Game struct {
	st      *Stepper
	running bool
	dirty   bool
	canvas  *ebiten.Image // panels, rebuilt only after the machine moved
}

func (g *Game) Update() error {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyBackspace):
		if err := g.st.Reset(); err != nil {
			return err
		}
		g.running = false
		g.dirty = true
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		g.running = true
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		g.running = false
		g.st.Step()
		g.dirty = true
	}

	if g.running {
		g.running = g.st.RunFrame()
		g.dirty = true
	}
	return nil
}

func (g *Game) panels() []Panel {
	listing := g.st.ListingLines()
	focus := -1
	for i, l := range listing {
		if len(l) > 0 && l[0] == '>' {
			focus = i
			break
		}
	}
	return []Panel{
		{Title: "CODE", Lines: listing, Focus: focus},
		{Title: "STACK", Lines: g.st.StackLines(), Focus: 0},
		{Title: "OUTPUT", Lines: g.st.OutputLines(), Focus: len(g.st.OutputLines()) - 1},
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.canvas == nil || g.dirty {
		img := RenderPanels(screenWidth, screenHeight-statusHeight, g.panels())
		if g.canvas != nil {
			g.canvas.Deallocate()
		}
		g.canvas = ebiten.NewImageFromImage(img)
		g.dirty = false
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(0, statusHeight)
	screen.DrawImage(g.canvas, op)
	ebitenutil.DebugPrintAt(screen, g.st.Status(), 4, 2)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func load(path string) (*vm.Program, error) {
	_, src, err := utils.ReadSource(path)
	if err != nil {
		return nil, err
	}
	if utils.IsListing(path) {
		return asm.Assemble(src)
	}
	return compiler.Compile(src)
}

func main() {
	stackSize := flag.Int("stack", 4096, "VM capacity in cells")
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatal("usage: desktop [-stack n] <file.c|file.rsa>")
	}

	prog, err := load(flag.Arg(0))
	if err != nil {
		log.Fatalf("Compilation failed: %v", err)
	}
	st, err := NewStepper(prog, *stackSize)
	if err != nil {
		log.Fatalf("VM setup failed: %v", err)
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("rsc stepper")

	if err := ebiten.RunGame(&Game{st: st, dirty: true}); err != nil {
		log.Fatal(err)
	}
}
