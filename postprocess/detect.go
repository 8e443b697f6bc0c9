// Package postprocess turns raw detection model output tensors into
// de-duplicated, labeled bounding boxes.
package postprocess

import "sync"

// Rect is a corner format bounding box in the pixel space of the network
// input tensor (origin top left, y down)
type Rect struct {
	X      float32
	Y      float32
	Width  float32
	Height float32
}

// DetectResult defines the attributes of a single object detected
type DetectResult struct {
	// Class is the line number in the labels file the Model was trained on
	// defining the Class of the detected object
	Class int
	// Box are the bounding box dimensions of the object location in network
	// input pixel space, corner format
	Box Rect
	// Probability is the confidence score of the object detected, the
	// product of the slot objectness and the best class score
	Probability float32
	// ID is a unique ID assigned to the detection result
	ID int64
	// MaskCoef are the segmentation mask coefficients for the detection
	// when the model emits them, otherwise nil
	MaskCoef []float32
}

// idGenerator holds a counter for generating the next incremental ID number
type idGenerator struct {
	id int64
	sync.Mutex
}

func newIDGenerator() *idGenerator {
	return &idGenerator{}
}

// GetNext incremental number
func (g *idGenerator) GetNext() int64 {
	g.Lock()
	defer g.Unlock()
	g.id++
	return g.id
}
