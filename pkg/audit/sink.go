// Package audit keeps an append-only trail of inbound signals, outbound
// attempts and phone engine logs. Appending never blocks and never fails.
package audit

import (
	"time"

	"github.com/google/uuid"

	"softphone-governor/pkg/models"
)

type Sink interface {
	Append(rec models.Record)
}

// NewRecord stamps a record with an id and the current time.
func NewRecord(kind models.RecordKind) models.Record {
	return models.Record{
		ID:   uuid.New().String(),
		Time: time.Now().UTC(),
		Kind: kind,
	}
}

// Fanout appends every record to each sink in order.
type Fanout []Sink

func (f Fanout) Append(rec models.Record) {
	for _, s := range f {
		s.Append(rec)
	}
}

// Discard drops everything.
type Discard struct{}

func (Discard) Append(models.Record) {}
