package journal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hatstand/dashwatch/dash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2018, time.November, 17, 9, 30, 0, 0, time.UTC)

func press(t *testing.T, id string, ip net.IP) dash.Event {
	addr, err := dash.ParseHardwareAddr("68:37:e9:99:de:58")
	require.NoError(t, err)
	return dash.Event{ID: id, Addr: addr, At: at, Record: dash.Record{SenderProtocolAddr: ip}}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	j := New(&buf, nil)
	require.NoError(t, j.Write(press(t, "one", net.IP{192, 168, 1, 20})))
	j.HandleButtonPress(press(t, "two", nil))
	require.NoError(t, j.Close())
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte(`"ip"`)))

	var entries []Entry
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{ID: "one", MAC: "68:37:e9:99:de:58", IP: "192.168.1.20", At: at}, entries[0])
	assert.Equal(t, "", entries[1].IP)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presses.log")
	j := Open(path, Rotation{MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1}, nil)
	j.HandleButtonPress(press(t, "one", nil))
	require.NoError(t, j.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"one"`)
}
