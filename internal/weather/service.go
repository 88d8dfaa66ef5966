package weather

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Service orchestrates the two upstream adapters and the merge engine.
type Service struct {
	regional RegionalSource
	global   GlobalSource
	engine   *Engine
	logger   *zap.SugaredLogger
}

// NewService creates a new Service.
func NewService(regional RegionalSource, global GlobalSource, engine *Engine, logger *zap.SugaredLogger) *Service {
	return &Service{
		regional: regional,
		global:   global,
		engine:   engine,
		logger:   logger,
	}
}

// Fetch runs both upstream fetches concurrently, waits for both to settle,
// downgrades each failure to an absent input, and merges. Only when both
// sources failed does the error reach the caller.
func (s *Service) Fetch(ctx context.Context, coord Coordinate) (*NormalizedWeather, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	var (
		wg   sync.WaitGroup
		reg  *RegionalResult
		glob *GlobalResult
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		r, err := s.regional.Fetch(ctx, coord)
		if err != nil {
			s.logger.Warnw("regional fetch failed",
				"source", s.regional.Name(), "coord", coord.Key(), "error", err)
			return
		}
		reg = r
	}()
	go func() {
		defer wg.Done()
		g, err := s.global.Fetch(ctx, coord)
		if err != nil {
			s.logger.Warnw("global fetch failed",
				"source", s.global.Name(), "coord", coord.Key(), "error", err)
			return
		}
		glob = g
	}()
	wg.Wait()

	return s.engine.Merge(coord, reg, glob)
}
