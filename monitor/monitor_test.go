package monitor

import (
	"context"
	"io/ioutil"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sbd/gogroup"
	"sbd/iridium"
	"sbd/storage/memory"
	"sbd/util/clock"

	"github.com/armon/go-metrics"
	"github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := get(t, New(nil, nil), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestMetrics(t *testing.T) {
	sink := metrics.NewInmemSink(time.Minute, time.Hour)
	sink.IncrCounter([]string{"directip", "sessions", "accepted"}, 2)

	w := get(t, New(sink, nil), "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "directip.sessions.accepted")

	w = get(t, New(nil, nil), "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMessages(t *testing.T) {
	store := memory.New(&clock.Mock{})
	m, err := iridium.NewMessage(
		iridium.MOHeader{
			IMEI:          iridium.MustParseIMEI("300234010123450"),
			MOMSN:         7,
			TimeOfSession: time.Date(2019, 3, 4, 10, 11, 12, 0, time.UTC),
		},
		iridium.MOPayload{Data: []byte("hi")},
	)
	require.NoError(t, err)
	require.NoError(t, store.Store(context.Background(), "s1", m))

	mon := New(nil, store)
	w := get(t, mon, "/messages/300234010123450")
	require.Equal(t, http.StatusOK, w.Code)
	var got []map[string]interface{}
	require.NoError(t, jsoniter.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0]["id"])
	assert.Equal(t, "300234010123450", got[0]["imei"])
	assert.Equal(t, "MO", got[0]["direction"])
	assert.Equal(t, "2019-03-04T10:11:12Z", got[0]["received"])
	assert.Equal(t, float64(7), got[0]["momsn"])
	assert.Equal(t, "aGk=", got[0]["payload"])
	assert.Equal(t, m.String(), got[0]["elements"])

	w = get(t, mon, "/messages/300234010123451")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	w = get(t, New(nil, nil), "/messages/300234010123450")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest("POST", "/healthz", nil)
	w := httptest.NewRecorder()
	New(nil, nil).ServeHTTP(w, req)
	assert.NotEqual(t, http.StatusOK, w.Code)
}

func TestServe(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	g := gogroup.New(nil, "monitor")
	g.Go(func(g gogroup.GoGroup) error {
		return New(nil, nil).Serve(g, l)
	})

	resp, err := http.Get("http://" + l.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, err := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	g.Cancel(nil)
	assert.Empty(t, g.Wait())
}
