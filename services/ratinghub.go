package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/irisdrone/moviedb/events"
)

// maxMoviesPerClient bounds the subscriptions a single websocket may hold
const maxMoviesPerClient = 50

var errTooManySubscriptions = errors.New("too many subscriptions")

// LiveMessage is a message sent to/from live feed clients
type LiveMessage struct {
	Type    string          `json:"type"` // subscribe, unsubscribe, ping, rating, pong, error
	MovieID uint            `json:"movie_id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// RatingHub fans rating events out from NATS to websocket viewers. A NATS
// subscription exists only while a movie has at least one viewer.
type RatingHub struct {
	natsConn *nats.Conn
	log      zerolog.Logger

	mu      sync.Mutex
	clients map[*RatingClient]struct{}
	movies  map[uint]*movieSubscription
}

type movieSubscription struct {
	natsSub *nats.Subscription
	viewers map[*RatingClient]struct{}
}

// NewRatingHub creates a hub reading from natsConn
func NewRatingHub(natsConn *nats.Conn, log zerolog.Logger) *RatingHub {
	return &RatingHub{
		natsConn: natsConn,
		log:      log.With().Str("component", "ratinghub").Logger(),
		clients:  make(map[*RatingClient]struct{}),
		movies:   make(map[uint]*movieSubscription),
	}
}

// Register adds a client to the hub
func (h *RatingHub) Register(client *RatingClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.log.Debug().Str("remote", client.remoteAddr).Msg("live client connected")
}

// Unregister drops every subscription of the client and closes its send queue
func (h *RatingHub) Unregister(client *RatingClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	for movieID := range client.movies {
		h.removeViewer(client, movieID)
	}
	delete(h.clients, client)
	close(client.send)
	h.log.Debug().Str("remote", client.remoteAddr).Msg("live client disconnected")
}

// Subscribe starts delivering rating events of movieID to the client
func (h *RatingHub) Subscribe(client *RatingClient, movieID uint) error {
	if movieID == 0 {
		return Invalid("movie_id", "required", "movie_id is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return fmt.Errorf("client not registered")
	}
	if _, ok := client.movies[movieID]; ok {
		return nil
	}
	if len(client.movies) >= maxMoviesPerClient {
		return errTooManySubscriptions
	}

	sub, exists := h.movies[movieID]
	if !exists {
		natsSub, err := h.natsConn.Subscribe(events.RatingSubject(movieID), func(msg *nats.Msg) {
			h.broadcast(movieID, msg.Data)
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to ratings: %w", err)
		}
		sub = &movieSubscription{natsSub: natsSub, viewers: make(map[*RatingClient]struct{})}
		h.movies[movieID] = sub
		h.log.Debug().Uint("movie_id", movieID).Msg("created rating subscription")
	}

	sub.viewers[client] = struct{}{}
	client.movies[movieID] = struct{}{}
	return nil
}

// Unsubscribe stops delivering rating events of movieID to the client
func (h *RatingHub) Unsubscribe(client *RatingClient, movieID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeViewer(client, movieID)
}

// removeViewer requires h.mu
func (h *RatingHub) removeViewer(client *RatingClient, movieID uint) {
	delete(client.movies, movieID)

	sub, ok := h.movies[movieID]
	if !ok {
		return
	}
	delete(sub.viewers, client)
	if len(sub.viewers) > 0 {
		return
	}
	if err := sub.natsSub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		h.log.Warn().Err(err).Uint("movie_id", movieID).Msg("failed to drop rating subscription")
	}
	delete(h.movies, movieID)
	h.log.Debug().Uint("movie_id", movieID).Msg("removed rating subscription (no viewers)")
}

// broadcast sends an event to all viewers of a movie. Slow viewers miss it.
func (h *RatingHub) broadcast(movieID uint, data []byte) {
	if !json.Valid(data) {
		h.log.Warn().Uint("movie_id", movieID).Msg("dropping malformed rating event")
		return
	}
	msg, err := json.Marshal(LiveMessage{Type: "rating", MovieID: movieID, Data: data})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.movies[movieID]
	if !ok {
		return
	}
	for client := range sub.viewers {
		select {
		case client.send <- msg:
		default:
		}
	}
}

// Close drops every NATS subscription and disconnects all clients
func (h *RatingHub) Close() {
	h.mu.Lock()
	clients := make([]*RatingClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.Unregister(c)
	}
}

// HubStats summarizes the live feed
type HubStats struct {
	Clients      int    `json:"clients"`
	Subscribed   int    `json:"subscriptions"`
	ActiveMovies []uint `json:"active_movies"`
}

func (h *RatingHub) Stats() HubStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	movies := make([]uint, 0, len(h.movies))
	for id := range h.movies {
		movies = append(movies, id)
	}
	sort.Slice(movies, func(i, j int) bool { return movies[i] < movies[j] })
	return HubStats{
		Clients:      len(h.clients),
		Subscribed:   len(movies),
		ActiveMovies: movies,
	}
}
