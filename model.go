package trackfx

import (
	"errors"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
)

// ErrModelLoad is returned when a model artifact cannot be located, read,
// or is structurally incompatible with the DNN backend.
var ErrModelLoad = errors.New("model load failed")

// ModelType defines the family of detection model loaded.  The type
// selects the output tensor layout the post processor expects.
type ModelType int

const (
	// ModelYOLOv8 is a YOLOv8 style model with a single output tensor of
	// layout [1, 4+1+classes+maskcoefs, anchors]
	ModelYOLOv8 ModelType = iota
)

// Model wraps a detection network loaded through the OpenCV DNN backend
type Model struct {
	net gocv.Net
	// modelType of the loaded network
	modelType ModelType
	// inputSize is the square tensor input size of the model, eg: 640x640
	inputSize image.Point
	// classNames the model was trained on, one per class index
	classNames []string
	loaded     bool
}

// LoadModel reads an ONNX model from the given file path.  inputSize is the
// square input tensor dimension, eg: 640.  classNames may be nil in which
// case the built in COCO labels are used.
func LoadModel(file string, modelType ModelType, inputSize int,
	classNames []string) (*Model, error) {

	if _, err := os.Stat(file); err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", ErrModelLoad, file, err)
	}

	net := gocv.ReadNetFromONNX(file)

	if net.Empty() {
		return nil, fmt.Errorf("%w: %s is not a readable ONNX network",
			ErrModelLoad, file)
	}

	if classNames == nil {
		classNames = COCOLabels()
	}

	return &Model{
		net:        net,
		modelType:  modelType,
		inputSize:  image.Pt(inputSize, inputSize),
		classNames: classNames,
		loaded:     true,
	}, nil
}

// InputSize returns the square tensor input dimensions of the model
func (m *Model) InputSize() image.Point {
	return m.inputSize
}

// Type returns the model family
func (m *Model) Type() ModelType {
	return m.modelType
}

// ClassNames returns the class label set the model was loaded with
func (m *Model) ClassNames() []string {
	return m.classNames
}

// ClassName returns the label for a class index, or the index rendered as
// a string when it falls outside the label set
func (m *Model) ClassName(class int) string {
	if class < 0 || class >= len(m.classNames) {
		return fmt.Sprintf("%d", class)
	}
	return m.classNames[class]
}

// Forward runs inference on a preprocessed input blob and returns the raw
// output tensor.  The caller owns the returned Mat and must Close it.
func (m *Model) Forward(blob gocv.Mat) (gocv.Mat, error) {

	if !m.loaded {
		return gocv.NewMat(), fmt.Errorf("%w: model is closed", ErrModelLoad)
	}

	m.net.SetInput(blob, "")
	out := m.net.Forward("")

	if out.Empty() {
		return out, fmt.Errorf("inference produced an empty output tensor")
	}

	return out, nil
}

// Close releases the network
func (m *Model) Close() error {
	if !m.loaded {
		return nil
	}
	m.loaded = false
	return m.net.Close()
}
