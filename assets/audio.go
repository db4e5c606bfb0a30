// Package assets synthesizes the short audio cues the viewer plays for
// pickup sounds and effects.
package assets

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
)

const sampleRate = 44100

var (
	audioOnce    sync.Once
	audioContext *audio.Context

	mu    sync.Mutex
	cache = make(map[string][]byte)
)

func audioCtx() *audio.Context {
	audioOnce.Do(func() {
		audioContext = audio.CurrentContext()
		if audioContext == nil {
			audioContext = audio.NewContext(sampleRate)
		}
	})
	return audioContext
}

// Tone describes a decaying sine blip.
type Tone struct {
	Freq     float64
	Duration float64
	Volume   float64
}

// ToneFor derives a stable tone from a cue name so every cue sounds
// different without shipping files.
func ToneFor(cue string) Tone {
	h := fnv.New32a()
	_, _ = h.Write([]byte(cue))
	n := h.Sum32()
	return Tone{
		Freq:     220 + float64(n%24)*30,
		Duration: 0.08 + float64((n>>8)%8)*0.02,
		Volume:   0.35,
	}
}

// PCM renders t as 16-bit little-endian stereo samples.
func PCM(t Tone) []byte {
	n := int(t.Duration * sampleRate)
	if n <= 0 {
		return nil
	}
	out := make([]byte, n*4)
	for i := 0; i < n; i++ {
		p := float64(i) / sampleRate
		env := 1 - float64(i)/float64(n)
		v := math.Sin(2*math.Pi*t.Freq*p) * env * t.Volume
		s := uint16(int16(v * math.MaxInt16))
		binary.LittleEndian.PutUint16(out[i*4:], s)
		binary.LittleEndian.PutUint16(out[i*4+2:], s)
	}
	return out
}

// Play starts the blip for cue. Rendered cues are cached.
func Play(cue string) {
	mu.Lock()
	b, ok := cache[cue]
	if !ok {
		b = PCM(ToneFor(cue))
		cache[cue] = b
	}
	mu.Unlock()
	if len(b) == 0 {
		return
	}
	audioCtx().NewPlayerFromBytes(b).Play()
}
