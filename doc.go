/*
go-trackfx detects, tracks, and visually edits objects in video.

Given a frame region selected by a caller, or objects found by a YOLO
detection model run through OpenCV's DNN backend, the pipeline propagates
each object's bounding box across subsequent frames with an appearance
based tracker and composites a visual effect (blur, mosaic, emoji, or
solid color) over the tracked region of every frame.

The pipeline subdirectory contains the public entry points.  See the
preprocess, postprocess, coords, tracker, and render subdirectories for
the individual stages.
*/
package trackfx
