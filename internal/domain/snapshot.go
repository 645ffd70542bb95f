package domain

import "time"

// BookSnapshot is a read-only copy of one instrument's book, bids and
// offers in priority order.
type BookSnapshot struct {
	Instrument Instrument
	Bids       []Order
	Offers     []Order
	Timestamp  time.Time
}

func (s *BookSnapshot) DeepCopy() *BookSnapshot {
	c := &BookSnapshot{Instrument: s.Instrument, Timestamp: s.Timestamp}
	c.Bids = append(c.Bids, s.Bids...)
	c.Offers = append(c.Offers, s.Offers...)
	return c
}
