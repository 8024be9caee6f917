// Package memory is an in-process spreadsheet source for tests and local
// development.
package memory

import (
	"context"
	"sync"

	ports "kosh/internal/sheets"
)

type Store struct {
	mu         sync.Mutex
	rawFlows   []ports.RawFlowRow
	valuations []ports.ValuationRow
}

func New(rawFlows []ports.RawFlowRow, valuations []ports.ValuationRow) *Store {
	return &Store{rawFlows: rawFlows, valuations: valuations}
}

var (
	_ ports.RawFlowReader   = (*Store)(nil)
	_ ports.ValuationReader = (*Store)(nil)
)

func (s *Store) ReadRawFlows(_ context.Context) ([]ports.RawFlowRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.RawFlowRow(nil), s.rawFlows...), nil
}

func (s *Store) ReadValuations(_ context.Context) ([]ports.ValuationRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.ValuationRow(nil), s.valuations...), nil
}
