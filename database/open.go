package database

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/irisdrone/moviedb/database/memory"
	"github.com/irisdrone/moviedb/services"
)

// MemoryURL selects the in-process store
const MemoryURL = "memory://"

// OpenStore returns the store behind databaseURL and a function releasing it
func OpenStore(databaseURL string, log zerolog.Logger, verbose bool) (services.Store, func() error, error) {
	if strings.HasPrefix(databaseURL, MemoryURL) {
		log.Warn().Msg("using in-memory store, data is lost on exit")
		return memory.New(), func() error { return nil }, nil
	}

	db, err := Connect(databaseURL, log, verbose)
	if err != nil {
		return nil, nil, err
	}
	return NewStore(db), func() error { return Close(db) }, nil
}
