package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the tunable pipeline settings.  Zero values are replaced
// with defaults by Validate, so a partial YAML file is fine.
type Config struct {
	// Model settings
	Model struct {
		// File is the path to the ONNX model
		File string `yaml:"file"`
		// InputSize is the square tensor input dimension, eg: 640
		InputSize int `yaml:"input_size"`
		// LabelsFile optionally overrides the built in COCO label set
		LabelsFile string `yaml:"labels_file"`
		// Classes is the trained class count
		Classes int `yaml:"classes"`
		// Anchors is the anchor slot count of the output tensor
		Anchors int `yaml:"anchors"`
	} `yaml:"model"`

	// Detect settings
	Detect struct {
		// ObjThreshold gates anchor slots by objectness before class
		// scores are scanned
		ObjThreshold float32 `yaml:"obj_threshold"`
		// BoxThreshold is the minimum final confidence reported
		BoxThreshold float32 `yaml:"box_threshold"`
		// NMSThreshold is the IoU ceiling for duplicate suppression
		NMSThreshold float32 `yaml:"nms_threshold"`
		// Interval runs detection every N frames during tracking
		Interval int `yaml:"interval"`
		// ClaimIoU is the minimum IoU for a detection to re-anchor an
		// existing track instead of spawning a new one
		ClaimIoU float32 `yaml:"claim_iou"`
	} `yaml:"detect"`

	// Track settings
	Track struct {
		// LossThreshold is the advance confidence floor
		LossThreshold float32 `yaml:"loss_threshold"`
		// MaxMisses is the consecutive failed advances before a track is
		// retired
		MaxMisses int `yaml:"max_misses"`
		// SearchFactor inflates the predicted box into the search window
		SearchFactor float32 `yaml:"search_factor"`
		// RefreshThreshold is the confidence needed to refresh the
		// appearance template
		RefreshThreshold float32 `yaml:"refresh_threshold"`
	} `yaml:"track"`
}

// DefaultConfig returns a Config with every field at its default
func DefaultConfig() Config {
	var c Config
	c.Validate()
	return c
}

// LoadConfig reads a YAML config file and applies defaults to any field
// left unset
func LoadConfig(file string) (Config, error) {

	var c Config

	data, err := os.ReadFile(file)

	if err != nil {
		return c, fmt.Errorf("error reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("error parsing config: %w", err)
	}

	c.Validate()

	return c, nil
}

// Validate replaces unset values with defaults
func (c *Config) Validate() {

	if c.Model.InputSize <= 0 {
		c.Model.InputSize = 640
	}

	if c.Model.Classes <= 0 {
		c.Model.Classes = 80
	}

	if c.Model.Anchors <= 0 {
		c.Model.Anchors = 8400
	}

	if c.Detect.ObjThreshold <= 0 {
		c.Detect.ObjThreshold = 0.1
	}

	if c.Detect.BoxThreshold <= 0 {
		c.Detect.BoxThreshold = 0.1
	}

	if c.Detect.NMSThreshold <= 0 {
		c.Detect.NMSThreshold = 0.45
	}

	if c.Detect.Interval <= 0 {
		c.Detect.Interval = 10
	}

	if c.Detect.ClaimIoU <= 0 {
		c.Detect.ClaimIoU = 0.5
	}

	if c.Track.LossThreshold <= 0 {
		c.Track.LossThreshold = 0.3
	}

	if c.Track.MaxMisses <= 0 {
		c.Track.MaxMisses = 1
	}

	if c.Track.SearchFactor <= 0 {
		c.Track.SearchFactor = 2.5
	}

	if c.Track.RefreshThreshold <= 0 {
		c.Track.RefreshThreshold = 0.8
	}
}
