package trackfx

import (
	"sync"
)

// Pool is a simple pool holding multiple instances of the same Model so
// inference can be run concurrently, eg: detection on one goroutine whilst
// another services single frame detection requests
type Pool struct {
	// pool of models
	models chan *Model
	// size of pool
	size  int
	close sync.Once
}

// NewPool creates a new model pool of the given size.  The model file is
// loaded size times as the DNN backend is not safe for concurrent Forward
// calls on a single network.
func NewPool(size int, modelFile string, modelType ModelType, inputSize int,
	classNames []string) (*Pool, error) {

	p := &Pool{
		models: make(chan *Model, size),
		size:   size,
	}

	for i := 0; i < size; i++ {
		m, err := LoadModel(modelFile, modelType, inputSize, classNames)

		if err != nil {
			// close any instances that may have been created before receiving
			// the error
			p.Close()
			return nil, err
		}

		// attach to pool
		p.Return(m)
	}

	return p, nil
}

// Get a model from the pool
func (p *Pool) Get() *Model {
	return <-p.models
}

// Return a model to the pool
func (p *Pool) Return(m *Model) {
	select {
	case p.models <- m:
	default:
		// pool is full or closed
	}
}

// Close the pool and all models in it
func (p *Pool) Close() {
	p.close.Do(func() {
		// close channel
		close(p.models)

		// close all models
		for next := range p.models {
			_ = next.Close()
		}
	})
}
