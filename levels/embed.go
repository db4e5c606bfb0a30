// Package levels holds the authored levels and their JSON schema.
package levels

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed *.json
var LevelsFS embed.FS

//go:embed schema/level.schema.json
var schemaJSON []byte

const schemaURL = "https://trileshift.local/level.schema.json"

type Level struct {
	Name        string            `json:"name"`
	Size        [3]int            `json:"size"`
	Loops       bool              `json:"loops,omitempty"`
	ViewHeight  float32           `json:"view_height,omitempty"`
	Liquid      *Liquid           `json:"liquid,omitempty"`
	Solids      [][3]int          `json:"solids,omitempty"`
	SolidBoxes  []Box             `json:"solid_boxes,omitempty"`
	Pickups     []Pickup          `json:"pickups"`
	Decorations []Decoration      `json:"decorations,omitempty"`
	BreakSounds map[string]string `json:"break_sounds,omitempty"`
	Player      *Player           `json:"player,omitempty"`
}

type Liquid struct {
	Type   string  `json:"type"`
	Height float32 `json:"height"`
}

// Box is an inclusive range of solid cells.
type Box struct {
	Min [3]int `json:"min"`
	Max [3]int `json:"max"`
}

type Pickup struct {
	ID    int    `json:"id"`
	Kind  string `json:"kind"`
	Cell  [3]int `json:"cell"`
	Group int    `json:"group,omitempty"`
}

type Decoration struct {
	Pickup int        `json:"pickup"`
	Name   string     `json:"name"`
	Offset [3]float32 `json:"offset"`
}

// Player is the scripted stand-in state a level starts with.
type Player struct {
	StandsOn []int `json:"stands_on,omitempty"`
	Carries  int   `json:"carries,omitempty"`
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("levels: add schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("levels: compile schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// Names lists the embedded levels without their extension.
func Names() []string {
	entries, err := fs.Glob(LevelsFS, "*.json")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e, ".json"))
	}
	sort.Strings(out)
	return out
}

// Load reads an embedded level by name, with or without extension.
func Load(name string) (*Level, error) {
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	data, err := fs.ReadFile(LevelsFS, name)
	if err != nil {
		return nil, fmt.Errorf("levels: read %s: %w", name, err)
	}
	return Parse(name, data)
}

// LoadFile reads a level from disk.
func LoadFile(p string) (*Level, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("levels: read %s: %w", p, err)
	}
	return Parse(path.Base(p), data)
}

// Parse validates data against the level schema and the cross-references
// the schema cannot express, then decodes it.
func Parse(name string, data []byte) (*Level, error) {
	s, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("levels: unmarshal %s: %w", name, err)
	}
	if err := s.Validate(doc); err != nil {
		return nil, fmt.Errorf("levels: validate %s: %w", name, err)
	}

	var lvl Level
	if err := json.Unmarshal(data, &lvl); err != nil {
		return nil, fmt.Errorf("levels: unmarshal %s: %w", name, err)
	}
	if err := lvl.check(); err != nil {
		return nil, fmt.Errorf("levels: %s: %w", name, err)
	}
	return &lvl, nil
}

func (l *Level) check() error {
	ids := make(map[int]bool, len(l.Pickups))
	for _, p := range l.Pickups {
		if ids[p.ID] {
			return fmt.Errorf("duplicate pickup id %d", p.ID)
		}
		ids[p.ID] = true
		if !l.inBounds(p.Cell) {
			return fmt.Errorf("pickup %d outside the level at %v", p.ID, p.Cell)
		}
	}
	for _, d := range l.Decorations {
		if !ids[d.Pickup] {
			return fmt.Errorf("decoration %q references unknown pickup %d", d.Name, d.Pickup)
		}
	}
	if l.Player != nil {
		for _, id := range l.Player.StandsOn {
			if !ids[id] {
				return fmt.Errorf("player stands on unknown pickup %d", id)
			}
		}
		if l.Player.Carries != 0 && !ids[l.Player.Carries] {
			return fmt.Errorf("player carries unknown pickup %d", l.Player.Carries)
		}
	}
	for _, b := range l.SolidBoxes {
		for i := 0; i < 3; i++ {
			if b.Min[i] > b.Max[i] {
				return fmt.Errorf("solid box %v..%v is inverted", b.Min, b.Max)
			}
		}
	}
	return nil
}

func (l *Level) inBounds(c [3]int) bool {
	for i := 0; i < 3; i++ {
		if c[i] < 0 || c[i] >= l.Size[i] {
			return false
		}
	}
	return true
}
