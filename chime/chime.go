package chime

import (
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/hatstand/dashwatch/dash"
	"github.com/projectdiscovery/gologger"
)

const (
	SampleRate      = 44100
	framesPerBuffer = 1024
	// fade keeps each tone from clicking at its edges.
	fade = 10 * time.Millisecond
)

type Tone struct {
	Freq     float64
	Duration time.Duration
}

var DingDong = []Tone{
	{Freq: 659.25, Duration: 400 * time.Millisecond},
	{Freq: 523.25, Duration: 700 * time.Millisecond},
}

// Samples renders tones as mono float32 samples in [-0.5, 0.5].
func Samples(tones []Tone, sampleRate int) []float32 {
	var out []float32
	ramp := int(fade.Seconds() * float64(sampleRate))
	for _, tone := range tones {
		n := int(tone.Duration.Seconds() * float64(sampleRate))
		for i := 0; i < n; i++ {
			gain := 0.5
			if i < ramp {
				gain *= float64(i) / float64(ramp)
			} else if n-i < ramp {
				gain *= float64(n-i) / float64(ramp)
			}
			v := gain * math.Sin(2*math.Pi*tone.Freq*float64(i)/float64(sampleRate))
			out = append(out, float32(v))
		}
	}
	return out
}

// Chime plays a ding-dong on the default output device for every press.
type Chime struct {
	lock    sync.Mutex
	samples []float32
	log     *gologger.Logger
	play    func(samples []float32) error
	wg      sync.WaitGroup
}

// Open initialises PortAudio. The returned Chime must be closed.
func Open(log *gologger.Logger) (*Chime, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	return newChime(play, log), nil
}

func newChime(play func([]float32) error, log *gologger.Logger) *Chime {
	if log == nil {
		log = gologger.DefaultLogger
	}
	return &Chime{samples: Samples(DingDong, SampleRate), log: log, play: play}
}

// Play blocks until the chime has finished.
func (c *Chime) Play() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.play(c.samples)
}

func (c *Chime) HandleButtonPress(ev dash.Event) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.Play(); err != nil {
			c.log.Warning().Msgf("Error playing chime: %s", err)
		}
	}()
}

// Close waits for chimes in progress and terminates PortAudio.
func (c *Chime) Close() error {
	c.wg.Wait()
	return portaudio.Terminate()
}

func play(samples []float32) error {
	out := make([]float32, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, SampleRate, len(out), &out)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return err
	}
	for len(samples) > 0 {
		n := copy(out, samples)
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
		samples = samples[n:]
		if err := stream.Write(); err != nil {
			return err
		}
	}
	return stream.Stop()
}
