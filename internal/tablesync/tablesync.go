// Package tablesync keeps the attribute row set of each dataset and
// discards query results that a newer query has superseded.
package tablesync

import (
	"errors"

	"github.com/joeblew999/plat-paser/internal/dataset"
	"github.com/joeblew999/plat-paser/internal/layer"
	"github.com/joeblew999/plat-paser/internal/metrics"
)

// ErrStale is returned by Apply for a ticket that is no longer current.
var ErrStale = errors.New("stale table query result")

// Ticket identifies one issued query.
type Ticket struct {
	Dataset    dataset.Kind
	Generation uint64
}

// Sync holds the row set and generation counter per dataset. It is not
// safe for concurrent use.
type Sync struct {
	gen  map[dataset.Kind]uint64
	rows map[dataset.Kind][]layer.Row
	done map[dataset.Kind]bool
}

// New returns an empty Sync.
func New() *Sync {
	return &Sync{
		gen:  make(map[dataset.Kind]uint64, 2),
		rows: make(map[dataset.Kind][]layer.Row, 2),
		done: make(map[dataset.Kind]bool, 2),
	}
}

// Begin starts a new query for k, superseding any outstanding one.
func (s *Sync) Begin(k dataset.Kind) Ticket {
	s.gen[k]++
	return Ticket{Dataset: k, Generation: s.gen[k]}
}

// Current reports whether t is the latest query issued for its dataset.
func (s *Sync) Current(t Ticket) bool {
	return s.gen[t.Dataset] == t.Generation
}

// Apply records the completion of t. A stale ticket returns ErrStale and
// changes nothing. A failed query returns its error and keeps the previous
// rows. Otherwise rows replace the dataset's row set.
func (s *Sync) Apply(t Ticket, rows []layer.Row, err error) error {
	label := string(t.Dataset)
	if !s.Current(t) {
		metrics.TableQueriesTotal.WithLabelValues(label, metrics.OutcomeStale).Inc()
		return ErrStale
	}
	if err != nil {
		metrics.TableQueriesTotal.WithLabelValues(label, metrics.OutcomeFailed).Inc()
		return err
	}
	if rows == nil {
		rows = []layer.Row{}
	}
	s.rows[t.Dataset] = rows
	s.done[t.Dataset] = true
	metrics.TableQueriesTotal.WithLabelValues(label, metrics.OutcomeApplied).Inc()
	return nil
}

// Rows returns k's row set. Callers must not modify it.
func (s *Sync) Rows(k dataset.Kind) []layer.Row {
	return s.rows[k]
}

// Generation returns the latest generation issued for k.
func (s *Sync) Generation(k dataset.Kind) uint64 { return s.gen[k] }

// Loaded reports whether k has received at least one row set.
func (s *Sync) Loaded(k dataset.Kind) bool { return s.done[k] }
