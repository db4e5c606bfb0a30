package obj

import "github.com/milk9111/trileshift/trile"

// Player is a scripted stand-in for the real player controller: tools and
// tests set its contacts directly.
type Player struct {
	grounded    bool
	ground      []*trile.Instance
	carried     *trile.Instance
	freeFalling bool
}

func NewPlayer() *Player {
	return &Player{}
}

// NewPlayerIn places the player as the level authored it.
func NewPlayerIn(l *Level) *Player {
	p := NewPlayer()
	p.PlaceIn(l)
	return p
}

// PlaceIn resets the player to the authored placement of l.
func (p *Player) PlaceIn(l *Level) {
	*p = Player{}
	if l == nil || l.def == nil || l.def.Player == nil {
		return
	}
	var ground []*trile.Instance
	for _, id := range l.def.Player.StandsOn {
		if inst, ok := l.Instance(id); ok {
			ground = append(ground, inst)
		}
	}
	p.StandOn(ground...)
	if inst, ok := l.Instance(l.def.Player.Carries); ok {
		p.Carry(inst)
	}
}

func (p *Player) Grounded() bool { return p.grounded }

func (p *Player) Ground() []*trile.Instance {
	return append([]*trile.Instance(nil), p.ground...)
}

func (p *Player) Carried() *trile.Instance { return p.carried }

func (p *Player) FreeFalling() bool { return p.freeFalling }

// StandOn grounds the player on the given instances. No instance means
// standing on static ground.
func (p *Player) StandOn(insts ...*trile.Instance) {
	p.grounded = true
	p.freeFalling = false
	p.ground = append(p.ground[:0], insts...)
}

// Jump leaves the ground. A free fall blocks pickup respawns.
func (p *Player) Jump(freeFall bool) {
	p.grounded = false
	p.ground = p.ground[:0]
	p.freeFalling = freeFall
}

func (p *Player) Carry(inst *trile.Instance) {
	p.carried = inst
}

// Drop releases the carried instance and returns it.
func (p *Player) Drop() *trile.Instance {
	inst := p.carried
	p.carried = nil
	return inst
}
