package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"justapengu.in/livemap/internal/racesim"
	"justapengu.in/livemap/pkg/ai"
	"justapengu.in/livemap/pkg/trackdata"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

var (
	trackPath   string
	scaleFactor float64
	offsetX     float64
	numSectors  int
	laneOffset  float64
)

func init() {
	flag.StringVar(&trackPath, "f", "fast_lane.ai", "track file to inspect (.ai, .json, .yml)")
	flag.Float64Var(&scaleFactor, "scale", 0, "scale factor applied to the track points")
	flag.Float64Var(&offsetX, "offset-x", 0, "offset subtracted from every x coordinate")
	flag.IntVar(&numSectors, "sectors", racesim.DefaultNumSectors, "number of sectors to split the lap into")
	flag.Float64Var(&laneOffset, "lane", 0, "lateral lane offset to inspect")
	flag.Parse()
}

var (
	heading = color.New(color.FgCyan, color.Bold)
	bad     = color.New(color.FgRed)
)

func main() {
	waypoints, err := trackdata.Load(trackPath, scaleFactor, offsetX)

	if err != nil {
		bad.Println(err)
		os.Exit(1)
	}

	track, err := racesim.NewTrack(waypoints)

	if err != nil {
		bad.Println(err)
		os.Exit(1)
	}

	if laneOffset != 0 {
		track, err = track.Offset(laneOffset)

		if err != nil {
			bad.Println(err)
			os.Exit(1)
		}
	}

	heading.Println(trackPath)
	fmt.Printf("  waypoints:    %s\n", humanize.Comma(int64(track.Len())))
	fmt.Printf("  lap distance: %.3f\n", track.LapDistance())
	fmt.Printf("  start:        %.3f, %.3f, %.3f\n", track.Start().X, track.Start().Y, track.Start().Z)

	if spline, err := ai.ReadSpline(trackPath); err == nil {
		x, z := spline.Dimensions()

		fmt.Printf("  spline:       %d points, %.1f x %.1f, recorded lap %s\n", spline.NumPoints, x, z, time.Duration(spline.LapTime)*time.Millisecond)
	}

	shortest, longest := 0, 0

	for i := 0; i < track.Len(); i++ {
		if track.SegmentLength(i) < track.SegmentLength(shortest) {
			shortest = i
		}

		if track.SegmentLength(i) > track.SegmentLength(longest) {
			longest = i
		}
	}

	fmt.Printf("  segments:     shortest %.3f (%s), longest %.3f (%s)\n", track.SegmentLength(shortest), humanize.Ordinal(shortest+1), track.SegmentLength(longest), humanize.Ordinal(longest+1))

	heading.Println("sectors")

	for i, sector := range racesim.EvenSectors(numSectors) {
		fmt.Printf("  %d: %.3f - %.3f\n", i, sector.Start*track.LapDistance(), sector.End*track.LapDistance())
	}
}
