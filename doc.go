/*
Package facecam captures camera frames, detects the faces on each frame and
outlines them over the displayed video in real time.

Every captured frame goes through the same cycle: the raw RGBA buffer is
rotated and mirrored according to the camera mounting, converted to luma,
handed to the face detector, and the resulting rectangles are mapped into the
coordinate space of the render surface. The completed render state is posted
to a single slot mailbox which the render loop drains once per tick. A frame
arriving while a cycle is still running is dropped.

The package provides a command line interface. To check the supported options type:

	$ facecam --help

In case you wish to integrate the pipeline in a self constructed environment here is a simple example:

	package main

	import (
		"fmt"
		"log"

		"github.com/esimov/facecam"
	)

	func main() {
		det, err := facecam.LoadPigoDetector("cascade/facefinder", facecam.DefaultPigoParams())
		if err != nil {
			log.Fatal(err)
		}
		mailbox := facecam.NewMailbox()
		canvas := facecam.NewCanvas(640, 480)
		proc := facecam.NewProcessor(det, mailbox, canvas)

		// The frame is normally delivered by a camera.
		frame := facecam.RawFrame{Pix: make([]uint8, 640*480*4), Width: 640, Height: 480}
		if err := proc.HandleFrame(frame, 0); err != nil {
			fmt.Printf("Error processing the frame: %s", err.Error())
		}
		facecam.Drain(mailbox, canvas)
		fmt.Println(canvas.Status())
	}
*/
package facecam
