// Package natsserver runs an in-process NATS server so a single binary can
// carry rating events without an external broker
package natsserver

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// EmbeddedNATS wraps an embedded NATS server with a client connection
type EmbeddedNATS struct {
	server *server.Server
	conn   *nats.Conn
	log    zerolog.Logger
}

// Config holds configuration for the embedded NATS server
type Config struct {
	Host            string
	Port            int   // -1 picks a random free port
	MaxPayload      int32 // Max message size in bytes
	MaxPendingBytes int64 // Max pending bytes per slow consumer
}

// DefaultConfig returns defaults sized for small JSON events
func DefaultConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            4233,
		MaxPayload:      64 * 1024,
		MaxPendingBytes: 8 * 1024 * 1024,
	}
}

// New creates and starts an embedded NATS server and connects to it
func New(cfg Config, log zerolog.Logger) (*EmbeddedNATS, error) {
	def := DefaultConfig()
	if cfg.Host == "" {
		cfg.Host = def.Host
	}
	if cfg.MaxPayload <= 0 {
		cfg.MaxPayload = def.MaxPayload
	}
	if cfg.MaxPendingBytes <= 0 {
		cfg.MaxPendingBytes = def.MaxPendingBytes
	}
	port := cfg.Port
	if port < 0 {
		port = server.RANDOM_PORT
	}

	opts := &server.Options{
		Host:          cfg.Host,
		Port:          port,
		NoLog:         true,
		NoSigs:        true,
		MaxPayload:    cfg.MaxPayload,
		WriteDeadline: 10 * time.Second,
		// disconnect slow consumers instead of buffering without bound
		MaxPending: cfg.MaxPendingBytes,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready after 5 seconds")
	}

	nc, err := nats.Connect(
		ns.ClientURL(),
		nats.Name("moviedb-internal"),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("failed to connect to embedded NATS: %w", err)
	}

	log = log.With().Str("component", "nats").Logger()
	log.Info().Str("url", ns.ClientURL()).Msg("embedded NATS server started")

	return &EmbeddedNATS{
		server: ns,
		conn:   nc,
		log:    log,
	}, nil
}

// Conn returns the internal client connection
func (e *EmbeddedNATS) Conn() *nats.Conn {
	return e.conn
}

// ClientURL is the address other processes can connect to
func (e *EmbeddedNATS) ClientURL() string {
	return e.server.ClientURL()
}

// Stats holds NATS server statistics
type Stats struct {
	Clients       int    `json:"clients"`
	Subscriptions uint32 `json:"subscriptions"`
	InMsgs        int64  `json:"in_msgs"`
	OutMsgs       int64  `json:"out_msgs"`
	SlowConsumers int64  `json:"slow_consumers"`
}

// GetStats returns current server statistics
func (e *EmbeddedNATS) GetStats() Stats {
	stats := Stats{
		Clients:       e.server.NumClients(),
		Subscriptions: e.server.NumSubscriptions(),
	}
	if varz, err := e.server.Varz(nil); err == nil && varz != nil {
		stats.InMsgs = varz.InMsgs
		stats.OutMsgs = varz.OutMsgs
		stats.SlowConsumers = varz.SlowConsumers
	}
	return stats
}

// Shutdown drains the client connection and stops the server
func (e *EmbeddedNATS) Shutdown() {
	if e.conn != nil {
		e.conn.Close()
	}
	if e.server != nil {
		e.server.Shutdown()
		e.server.WaitForShutdown()
	}
	e.log.Info().Msg("NATS server shut down")
}
