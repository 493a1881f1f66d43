package audit

import (
	"context"
	"fmt"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
)

// MultiSink saves a run to every sink in order, stopping at the first failure
type MultiSink []contracts.ResultSink

// SaveRun implements contracts.ResultSink
func (m MultiSink) SaveRun(ctx context.Context, run *contracts.RunRecord) error {
	for i, sink := range m {
		if err := sink.SaveRun(ctx, run); err != nil {
			return fmt.Errorf("sink %d: %w", i, err)
		}
	}
	return nil
}
