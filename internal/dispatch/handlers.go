package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-actuation/internal/actuation"
)

// intakeTimeout bounds pattern generation for requests received over MQTT.
const intakeTimeout = 10 * time.Second

// HandleDispatch is the MQTT handler for the dispatch topic. Rejected
// requests are published to the rejection topic and returned for logging.
func (s *Service) HandleDispatch(_ string, payload []byte) error {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		s.reject("", err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), intakeTimeout)
	defer cancel()

	if _, err := s.Dispatch(ctx, req); err != nil {
		s.reject(req.RequestID, err)
		return err
	}
	return nil
}

// HandleStop is the MQTT handler for the stop topic.
func (s *Service) HandleStop(_ string, payload []byte) error {
	var req StopRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	switch {
	case req.All:
		ctx, cancel := context.WithTimeout(context.Background(), intakeTimeout)
		defer cancel()
		return s.StopAll(ctx)
	case req.Handle != 0:
		return s.Stop(actuation.Handle(req.Handle))
	default:
		return fmt.Errorf("%w: stop needs a handle or all", ErrInvalidRequest)
	}
}
