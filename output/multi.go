package output

import (
	"errors"

	"github.com/forest-guardian/tidalflat-cli/internal/pipeline"
	"github.com/forest-guardian/tidalflat-cli/internal/pixel"
)

// MultiSink fans every call out to its sinks in order. Close reaches every
// sink and joins their errors.
type MultiSink []pipeline.Sink

func (m MultiSink) Open(grid pixel.Grid) error {
	for i, s := range m {
		if err := s.Open(grid); err != nil {
			for _, opened := range m[:i] {
				opened.Close()
			}
			return err
		}
	}
	return nil
}

func (m MultiSink) WriteTile(t pixel.Tile, labels []pixel.Label) error {
	for _, s := range m {
		if err := s.WriteTile(t, labels); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
