package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log"
	"strings"
	"sync"

	trackfx "github.com/swdee/go-trackfx"
	"github.com/swdee/go-trackfx/coords"
	"github.com/swdee/go-trackfx/pipeline"
	"github.com/swdee/go-trackfx/postprocess"
	"github.com/swdee/go-trackfx/render"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

func main() {

	modelFile := flag.String("m", "yolov8n.onnx", "ONNX model file")
	videoFile := flag.String("v", "video.mp4", "Video file to process")
	configFile := flag.String("c", "", "Optional YAML config file")
	outFile := flag.String("o", "out.mp4", "Output video file")
	mode := flag.String("mode", "track", "Mode: track or scan")
	className := flag.String("class", "person", "Class name to track")
	interval := flag.Int("interval", 10, "Run detection every N frames")
	rotation := flag.Int("rotate", 0, "Container rotation: 0, 90, 180, 270")
	effectName := flag.String("effect", "blur", "Effect: blur, mosaic, color, none")
	colorHex := flag.String("color", "#000000", "Fill color for the color effect")
	poolSize := flag.Int("pool", 3, "Model pool size for scan mode")
	snapFile := flag.String("snap", "", "Optional annotated snapshot image file")

	flag.Parse()

	cfg := pipeline.DefaultConfig()

	if *configFile != "" {
		var err error
		cfg, err = pipeline.LoadConfig(*configFile)

		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
	}

	switch *mode {
	case "scan":
		runScan(cfg, *modelFile, *videoFile, *poolSize, *snapFile)
	case "track":
		runTrack(cfg, *modelFile, *videoFile, *outFile, *className,
			*interval, coords.Rotation(*rotation), *effectName, *colorHex,
			*snapFile)
	default:
		log.Fatalf("Unknown mode %q", *mode)
	}
}

// runTrack follows every instance of the target class through the video
// and writes a copy with the chosen effect burned into each object region
func runTrack(cfg pipeline.Config, modelFile, videoFile, outFile,
	className string, interval int, rot coords.Rotation, effectName,
	colorHex, snapFile string) {

	logger, err := zap.NewDevelopment()

	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}

	defer logger.Sync()

	p := pipeline.NewPipeline(cfg, logger)
	defer p.Close()

	if err := p.LoadModel(modelFile); err != nil {
		log.Fatalf("Error loading model: %v", err)
	}

	src, err := pipeline.OpenVideoFile(videoFile, rot)

	if err != nil {
		log.Fatalf("Error opening video: %v", err)
	}

	defer src.Close()

	ctx := context.Background()

	results, err := p.DetectAndTrackObjects(ctx, src, pipeline.TrackOptions{
		TargetClassName:   className,
		DetectionInterval: interval,
	})

	if err != nil {
		log.Fatalf("Error tracking objects: %v", err)
	}

	log.Printf("Produced %d result rows", len(results))

	effect := makeEffect(effectName, colorHex)

	if effect == nil {
		return
	}

	// apply the same effect to every object that was tracked
	effects := make(map[string]render.Effect)

	for _, row := range results {
		effects[row.ObjectID] = effect
	}

	log.Printf("Exporting %d objects with %s effect", len(effects),
		effectName)

	if err := pipeline.ExportWithEffects(ctx, src, results, effects,
		outFile, pipeline.ExportOptions{Padding: 4}, logger); err != nil {
		log.Fatalf("Error exporting video: %v", err)
	}

	if snapFile != "" {
		saveTrailSnapshot(p, src, snapFile)
	}

	log.Printf("Wrote %s", outFile)
}

// saveTrailSnapshot draws the surviving tracks and their motion trails on
// the final frame
func saveTrailSnapshot(p *pipeline.Pipeline, src pipeline.FrameSource,
	snapFile string) {

	frame, err := src.Frame(context.Background(), src.Frames()-1)

	if err != nil {
		log.Printf("Snapshot skipped: %v", err)
		return
	}

	defer frame.Close()

	tracks := p.ActiveTracks()
	boxes := make([]render.Box, 0, len(tracks))

	for seq, track := range tracks {
		boxes = append(boxes, render.Box{
			Rect:  track.PixelRect(),
			Label: render.LabelFor(track.ClassName(), track.Score()),
			Seq:   seq,
		})
	}

	render.Boxes(&frame, boxes, render.DefaultFont(), 2)
	render.Trail(&frame, tracks, p.Trail(), render.DefaultTrailStyle())

	if ok := gocv.IMWrite(snapFile, frame); !ok {
		log.Printf("Error writing snapshot %s", snapFile)
		return
	}

	log.Printf("Wrote %s", snapFile)
}

// runScan detects objects on a sample of frames concurrently using a model
// pool and prints what it finds
func runScan(cfg pipeline.Config, modelFile, videoFile string,
	poolSize int, snapFile string) {

	pool, err := trackfx.NewPool(poolSize, modelFile, trackfx.ModelYOLOv8,
		cfg.Model.InputSize, nil)

	if err != nil {
		log.Fatalf("Error creating model pool: %v", err)
	}

	defer pool.Close()

	src, err := pipeline.OpenVideoFile(videoFile, coords.RotationNone)

	if err != nil {
		log.Fatalf("Error opening video: %v", err)
	}

	defer src.Close()

	// sample ten frames spread across the video
	step := src.Frames() / 10

	if step < 1 {
		step = 1
	}

	params := postprocess.YOLOv8COCOParams()
	params.ObjectClassNum = cfg.Model.Classes
	params.AnchorCount = cfg.Model.Anchors

	type frameResult struct {
		index int
		dets  []pipeline.Detection
	}

	var wg sync.WaitGroup
	resCh := make(chan frameResult, src.Frames())

	for i := 0; i < src.Frames(); i += step {

		frame, err := src.Frame(context.Background(), i)

		if err != nil {
			log.Printf("Skipping frame %d: %v", i, err)
			continue
		}

		wg.Add(1)

		go func(index int, frame gocv.Mat) {
			defer wg.Done()
			defer frame.Close()

			model := pool.Get()
			defer pool.Return(model)

			det := pipeline.NewYOLODetector(model, params, nil)
			defer det.Close()

			resCh <- frameResult{index: index, dets: det.Detect(frame, nil)}
		}(i, frame)
	}

	wg.Wait()
	close(resCh)

	var first *frameResult

	for res := range resCh {

		names := make([]string, 0, len(res.dets))

		for _, d := range res.dets {
			names = append(names, fmt.Sprintf("%s %.2f", d.ClassName,
				d.Confidence))
		}

		log.Printf("Frame %d: %s", res.index, strings.Join(names, ", "))

		if first == nil || res.index < first.index {
			r := res
			first = &r
		}
	}

	if snapFile != "" && first != nil {
		saveScanSnapshot(src, first.index, first.dets, snapFile)
	}
}

// saveScanSnapshot draws detection boxes on one frame and writes it out
func saveScanSnapshot(src pipeline.FrameSource, index int,
	dets []pipeline.Detection, snapFile string) {

	frame, err := src.Frame(context.Background(), index)

	if err != nil {
		log.Printf("Snapshot skipped: %v", err)
		return
	}

	defer frame.Close()

	boxes := make([]render.Box, 0, len(dets))

	for seq, det := range dets {

		pix := coords.Denormalize(det.Box, frame.Cols(), frame.Rows())

		boxes = append(boxes, render.Box{
			Rect: image.Rect(int(pix.X), int(pix.Y),
				int(pix.X+pix.Width), int(pix.Y+pix.Height)),
			Label: render.LabelFor(det.ClassName, det.Confidence),
			Seq:   seq,
		})
	}

	render.Boxes(&frame, boxes, render.DefaultFont(), 2)

	if ok := gocv.IMWrite(snapFile, frame); !ok {
		log.Printf("Error writing snapshot %s", snapFile)
		return
	}

	log.Printf("Wrote %s", snapFile)
}

// makeEffect builds the requested effect, nil for "none"
func makeEffect(name, colorHex string) render.Effect {

	switch name {
	case "blur":
		return render.NewBlurEffect(12)

	case "mosaic":
		return render.NewMosaicEffect(16)

	case "color":
		e, err := render.NewColorEffect(colorHex, 1.0)

		if err != nil {
			log.Fatalf("Error parsing color: %v", err)
		}

		return e

	case "none":
		return nil

	default:
		log.Fatalf("Unknown effect %q", name)
		return nil
	}
}
