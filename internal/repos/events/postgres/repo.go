package events

import (
	"database/sql"

	"github.com/fastprodman/vaultd/internal/repos/events"
)

var _ events.Events = (*eventsRepo)(nil)

type eventsRepo struct{ db *sql.DB }

func New(db *sql.DB) *eventsRepo {
	return &eventsRepo{db: db}
}
