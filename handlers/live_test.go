package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irisdrone/moviedb/events"
	"github.com/irisdrone/moviedb/natsserver"
	"github.com/irisdrone/moviedb/services"
)

func readLive(t *testing.T, conn *websocket.Conn) services.LiveMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg services.LiveMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestLiveRatingsFeed(t *testing.T) {
	cfg := natsserver.DefaultConfig()
	cfg.Port = -1
	ns, err := natsserver.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(ns.Shutdown)

	hub := services.NewRatingHub(ns.Conn(), zerolog.Nop())
	t.Cleanup(hub.Close)
	s := newTestServerWith(t, events.NewNATSPublisher(ns.Conn()), hub)

	admin := s.admin(t)
	user := s.register(t, "jack")
	movieID := s.createMovie(t, admin, "Tampopo")

	srv := httptest.NewServer(s.router)
	t.Cleanup(srv.Close)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/ratings"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.WriteJSON(services.LiveMessage{Type: "subscribe"}))
	msg := readLive(t, conn)
	assert.Equal(t, "error", msg.Type)

	require.NoError(t, conn.WriteJSON(services.LiveMessage{Type: "subscribe", MovieID: movieID}))
	// pong proves the subscribe above has been processed
	require.NoError(t, conn.WriteJSON(services.LiveMessage{Type: "ping"}))
	require.Equal(t, "pong", readLive(t, conn).Type)

	rec := s.do(t, http.MethodPost, "/api/reviews", gin.H{"movie_id": movieID, "rating": 7}, user)
	require.Equal(t, http.StatusCreated, rec.Code)

	msg = readLive(t, conn)
	require.Equal(t, "rating", msg.Type)
	assert.Equal(t, movieID, msg.MovieID)
	var evt events.RatingChanged
	require.NoError(t, json.Unmarshal(msg.Data, &evt))
	assert.Equal(t, 7.0, evt.Rating)
	assert.Equal(t, 1, evt.ReviewCount)
	assert.Equal(t, events.ReasonReviewCreated, evt.Reason)

	stats := hub.Stats()
	assert.Equal(t, 1, stats.Clients)
	assert.Equal(t, []uint{movieID}, stats.ActiveMovies)

	require.NoError(t, conn.WriteJSON(services.LiveMessage{Type: "unsubscribe", MovieID: movieID}))
	require.NoError(t, conn.WriteJSON(services.LiveMessage{Type: "ping"}))
	require.Equal(t, "pong", readLive(t, conn).Type)
	assert.Empty(t, hub.Stats().ActiveMovies)
}

func TestLiveRejectsForeignOrigin(t *testing.T) {
	cfg := natsserver.DefaultConfig()
	cfg.Port = -1
	ns, err := natsserver.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(ns.Shutdown)

	hub := services.NewRatingHub(ns.Conn(), zerolog.Nop())
	t.Cleanup(hub.Close)
	s := newTestServerWith(t, events.Nop{}, hub)

	srv := httptest.NewServer(s.router)
	t.Cleanup(srv.Close)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/ratings"

	header := http.Header{}
	header.Set("Origin", "http://evil.example.com")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
