package main

import (
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/milk9111/trileshift/prefabs"
)

func main() {
	debug := flag.Bool("debug", false, "draw overlap links")
	mute := flag.Bool("mute", false, "do not play sound cues")
	baseMonitor := flag.Bool("m", false, "use base monitor instead of primary (for multi-monitor setups)")
	levelName := flag.String("level", "harbor", "level name in levels/ (basename, .json optional)")
	prefabsDir := flag.String("prefabs", prefabs.Dir, "prefabs directory checked before the embedded copy")
	flag.Parse()

	if *baseMonitor {
		ebiten.SetMonitor(ebiten.AppendMonitors(nil)[0])
	}
	prefabs.Dir = *prefabsDir

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(1280, 720)
	ebiten.SetWindowTitle("trileshift")

	game, err := NewGame(*levelName, *debug, *mute)
	if err != nil {
		log.Fatal(err)
	}

	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
