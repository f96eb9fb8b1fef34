package intake

import (
	"context"

	"memorial_intake_backend/platform/logger"
)

// step is one orchestration step. Critical steps halt the run on failure
// and surface the error to the handler; every other failure is logged once
// and the run continues.
type step struct {
	name     string
	critical bool
	run      func(ctx context.Context) error
}

// runSteps executes steps strictly in order. It returns the first critical
// failure, or nil once every step has been attempted.
func runSteps(ctx context.Context, log *logger.Logger, steps []step) error {
	for _, s := range steps {
		err := s.run(ctx)
		if err == nil {
			continue
		}
		if s.critical {
			return err
		}
		log.IntegrationError(s.name, err)
	}
	return nil
}
