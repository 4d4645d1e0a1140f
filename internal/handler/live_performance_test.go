package handler_test

import (
	"math"
	"net/http"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/huddle-api/internal/models"
	"github.com/noah-isme/huddle-api/internal/service"
)

func TestLiveHandler_HandshakeP95Under250ms(t *testing.T) {
	if testing.Short() {
		t.Skip("latency check skipped in short mode")
	}

	general := models.Target{ChannelID: 1}
	live := service.NewLiveService(nil, "", nil, testLogger())
	url := startLiveServer(t, live, &authorizerStub{allowed: map[string]bool{general.Key(): true}})

	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	clients := 200
	durations := make([]time.Duration, 0, clients)

	for i := 0; i < clients; i++ {
		header := http.Header{}
		header.Set("X-Test-User", strconv.Itoa(i+1))

		start := time.Now()
		conn, resp, err := dialer.Dial(url+"?channel_id=1", header)
		require.NoError(t, err, "client %d", i)
		durations = append(durations, time.Since(start))
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		_ = conn.Close()
	}

	p95 := percentile(durations, 0.95)
	require.LessOrEqual(t, p95, 250*time.Millisecond, "websocket handshake P95 %s", p95)
}

func percentile(samples []time.Duration, p float64) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}
