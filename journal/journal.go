package journal

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/hatstand/dashwatch/dash"
	"github.com/projectdiscovery/gologger"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Entry is one line of the journal.
type Entry struct {
	ID  string    `json:"id"`
	MAC string    `json:"mac"`
	IP  string    `json:"ip,omitempty"`
	At  time.Time `json:"at"`
}

type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Journal appends every press to a JSON lines file.
type Journal struct {
	mu  sync.Mutex
	w   io.Writer
	enc *json.Encoder
	log *gologger.Logger
}

// Open writes to path, rotating it with lumberjack.
func Open(path string, r Rotation, log *gologger.Logger) *Journal {
	return New(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    r.MaxSizeMB,
		MaxBackups: r.MaxBackups,
		MaxAge:     r.MaxAgeDays,
		Compress:   true,
	}, log)
}

func New(w io.Writer, log *gologger.Logger) *Journal {
	if log == nil {
		log = gologger.DefaultLogger
	}
	return &Journal{w: w, enc: json.NewEncoder(w), log: log}
}

func (j *Journal) Write(ev dash.Event) error {
	e := Entry{ID: ev.ID, MAC: ev.Addr.String(), At: ev.At}
	if ev.Record.SenderProtocolAddr != nil {
		e.IP = ev.Record.SenderProtocolAddr.String()
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(e)
}

func (j *Journal) HandleButtonPress(ev dash.Event) {
	if err := j.Write(ev); err != nil {
		j.log.Warning().Msgf("Error writing journal: %s", err)
	}
}

func (j *Journal) Close() error {
	if c, ok := j.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
