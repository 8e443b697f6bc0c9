package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/swdee/go-trackfx/coords"
	"github.com/swdee/go-trackfx/render"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// ExportOptions configure ExportWithEffects
type ExportOptions struct {
	// Codec is the four character code for the output container, default
	// mp4v
	Codec string
	// Padding expands each effect region outward by this many pixels
	// before the effect is applied
	Padding int
	// EmojiFont is the path to a font file with emoji glyphs, required
	// when any EmojiEffect is used
	EmojiFont string
}

// ExportWithEffects re-encodes the source video with the configured effect
// burned into each object's region on every frame it was observed in.
// Frames are written in effective display orientation, so a sideways
// recorded clip comes out upright.  Objects without an entry in effects
// are left untouched.
func ExportWithEffects(ctx context.Context, src FrameSource,
	results []TrackingResult, effects map[string]render.Effect,
	outFile string, opts ExportOptions, log *zap.Logger) error {

	if log == nil {
		log = zap.NewNop()
	}

	if outFile == "" {
		return fmt.Errorf("%w: no output file given", ErrInvalidInput)
	}

	codec := opts.Codec

	if codec == "" {
		codec = "mp4v"
	}

	effW, effH := src.Resolution()
	fps := src.FPS()

	writer, err := gocv.VideoWriterFile(outFile, codec, fps, effW, effH, true)

	if err != nil {
		return fmt.Errorf("%w: %s", ErrExportFailed, err)
	}

	defer writer.Close()

	if !writer.IsOpened() {
		return fmt.Errorf("%w: encoder for %s did not open",
			ErrExportFailed, outFile)
	}

	renderer := render.NewRenderer()
	renderer.Padding = opts.Padding

	if opts.EmojiFont != "" {
		if err := renderer.SetEmojiFont(opts.EmojiFont); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidInput, err)
		}
	}

	byFrame := groupByFrame(results, effects)

	total := src.Frames()
	written := 0

	for i := 0; i < total; i++ {

		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := src.Frame(ctx, i)

		if err != nil {
			if errors.Is(err, ErrFrameUnavailable) {
				log.Warn("skipping undecodable frame during export",
					zap.Int("frame", i))
				continue
			}
			return err
		}

		upright := rotateToEffective(frame, src.Rotation())
		frame.Close()

		for _, row := range byFrame[i] {

			box := pixelRect(row.Box)

			if err := renderer.Apply(&upright, box, effects[row.ObjectID]); err != nil {
				log.Warn("effect failed", zap.String("objectId", row.ObjectID),
					zap.Int("frame", i), zap.Error(err))
			}
		}

		if err := writer.Write(upright); err != nil {
			upright.Close()
			return fmt.Errorf("%w: frame %d: %s", ErrExportFailed, i, err)
		}

		upright.Close()
		written++
	}

	if written == 0 {
		return fmt.Errorf("%w: no frames written to %s", ErrExportFailed,
			outFile)
	}

	log.Info("export complete", zap.String("file", outFile),
		zap.Int("frames", written))

	return nil
}

// groupByFrame indexes rows by frame, keeping one row per object per frame
// with tracking rows preferred over detection rows so an effect is applied
// once per object per frame
func groupByFrame(results []TrackingResult,
	effects map[string]render.Effect) map[int][]TrackingResult {

	byFrame := make(map[int][]TrackingResult)

	for _, row := range results {

		if _, has := effects[row.ObjectID]; !has {
			continue
		}

		rows := byFrame[row.FrameIndex]
		replaced := false

		for n := range rows {
			if rows[n].ObjectID == row.ObjectID {
				if row.Source == SourceTracking {
					rows[n] = row
				}
				replaced = true
				break
			}
		}

		if !replaced {
			byFrame[row.FrameIndex] = append(rows, row)
		}
	}

	return byFrame
}

// rotateToEffective rotates a raw frame buffer into display orientation.
// Unknown rotations pass the frame through unchanged.
func rotateToEffective(frame gocv.Mat, rot coords.Rotation) gocv.Mat {

	out := gocv.NewMat()

	switch rot {
	case coords.Rotation90:
		gocv.Rotate(frame, &out, gocv.Rotate90Clockwise)
	case coords.Rotation180:
		gocv.Rotate(frame, &out, gocv.Rotate180Clockwise)
	case coords.Rotation270:
		gocv.Rotate(frame, &out, gocv.Rotate90CounterClockwise)
	default:
		out.Close()
		return frame.Clone()
	}

	return out
}

// pixelRect converts an effective space pixel box to an image.Rectangle
func pixelRect(b coords.Box) image.Rectangle {
	return image.Rect(int(b.X), int(b.Y), int(b.X+b.Width),
		int(b.Y+b.Height))
}
