// Package trace records pickup simulation frames as zstd-compressed JSON
// lines, one file per run.
package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/klauspost/compress/zstd"
	"github.com/milk9111/trileshift/common"
	"github.com/milk9111/trileshift/ecs/component"
)

// Pickup is the recorded state of one pickup.
type Pickup struct {
	ID       int        `json:"id"`
	Kind     string     `json:"kind"`
	Center   mgl32.Vec3 `json:"center"`
	Velocity mgl32.Vec3 `json:"velocity"`
	Grounded bool       `json:"grounded,omitempty"`
	Floating bool       `json:"floating,omitempty"`
	Hidden   bool       `json:"hidden,omitempty"`
	Paused   bool       `json:"paused,omitempty"`
	Puppet   bool       `json:"puppet,omitempty"`
	Follows  int        `json:"follows,omitempty"`
	Removed  bool       `json:"removed,omitempty"`
}

type Effect struct {
	Kind   string     `json:"kind"`
	Pickup int        `json:"pickup"`
	At     mgl32.Vec3 `json:"at"`
}

// Entry is one recorded frame.
type Entry struct {
	Frame     int      `json:"frame"`
	Time      float32  `json:"time"`
	Viewpoint string   `json:"viewpoint"`
	Gravity   float32  `json:"gravity"`
	Pickups   []Pickup `json:"pickups"`
	Effects   []Effect `json:"effects,omitempty"`
	Sounds    []string `json:"sounds,omitempty"`
}

// Capture builds an entry from the live pickups.
func Capture(frame int, now float32, vp common.Viewpoint, gravity float32, ps []*component.Pickup) Entry {
	e := Entry{
		Frame:     frame,
		Time:      now,
		Viewpoint: vp.String(),
		Gravity:   gravity,
		Pickups:   make([]Pickup, 0, len(ps)),
	}
	for _, p := range ps {
		rec := Pickup{
			ID:      p.ID,
			Kind:    string(p.Instance.Kind),
			Center:  p.Center(),
			Hidden:  p.Instance.Hidden,
			Removed: p.Removed,
		}
		if p.VisibleOverlapper != nil {
			rec.Follows = p.VisibleOverlapper.ID
		}
		if st := p.Physics(); st != nil {
			rec.Velocity = st.Velocity
			rec.Grounded = st.Grounded
			rec.Floating = st.Floating
			rec.Paused = st.Paused
			rec.Puppet = st.Puppet
		}
		e.Pickups = append(e.Pickups, rec)
	}
	return e
}

// Recorder appends entries to a .jsonl.zst file.
type Recorder struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
	n   int
}

// Create opens a new trace file, creating parent directories.
func Create(path string) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("trace: create %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("trace: create %s: %w", path, err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("trace: create %s: %w", path, err)
	}
	return &Recorder{
		path: path,
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

func (r *Recorder) Path() string { return r.path }

// Len reports how many entries were written.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

func (r *Recorder) Write(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return fmt.Errorf("trace: write %s: recorder closed", r.path)
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("trace: write frame %d: %w", e.Frame, err)
	}
	if _, err := r.w.Write(b); err != nil {
		return err
	}
	if err := r.w.WriteByte('\n'); err != nil {
		return err
	}
	r.n++
	return nil
}

// Close flushes the encoder and closes the file. It is safe to call twice.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	if r.w != nil {
		err = r.w.Flush()
		r.w = nil
	}
	if r.enc != nil {
		if cerr := r.enc.Close(); err == nil {
			err = cerr
		}
		r.enc = nil
	}
	if r.f != nil {
		if cerr := r.f.Close(); err == nil {
			err = cerr
		}
		r.f = nil
	}
	return err
}

// ReadFile decodes every entry of a trace file.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	var out []Entry
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", filepath.Base(path), len(out)+1, err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return out, nil
}
