package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"path/filepath"
	"strings"

	lasertrainer "lasertrainer"

	"go.viam.com/rdk/rimage"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <input.jpg> [output.jpg]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  If output is not specified, it will be <input>_output.jpg\n")
		os.Exit(1)
	}

	inputFile := os.Args[1]

	var outputFile string
	if len(os.Args) >= 3 {
		outputFile = os.Args[2]
	} else {
		ext := filepath.Ext(inputFile)
		base := strings.TrimSuffix(inputFile, ext)
		outputFile = base + "_output" + ext
	}

	input, err := rimage.ReadImageFromFile(inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading image: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Image size: %dx%d\n", input.Bounds().Dx(), input.Bounds().Dy())

	source := lasertrainer.NewCVCandidateSource()
	defer source.Close()

	sighting, err := lasertrainer.FindTarget(context.Background(), source, input, 0.05)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error finding target: %v\n", err)
		os.Exit(1)
	}

	output := image.NewRGBA(input.Bounds())
	draw.Draw(output, input.Bounds(), input, image.Point{}, draw.Src)

	green := color.RGBA{0, 255, 0, 255}
	yellow := color.RGBA{255, 255, 0, 255}
	red := color.RGBA{255, 0, 0, 255}

	if sighting.HasFound() {
		corners := sighting.Found.Corners()
		names := []string{"Top-left", "Top-right", "Bottom-right", "Bottom-left"}
		fmt.Printf("Found target quadrilateral:\n")
		for i, c := range corners {
			fmt.Printf("  %-13s (%.0f, %.0f)\n", names[i]+":", c.X, c.Y)
			drawCircle(output, int(c.X), int(c.Y), 10, green)
			drawCross(output, int(c.X), int(c.Y), 15, green)
		}
	} else if len(sighting.Potential) > 0 {
		fmt.Printf("Potential target with %d vertices (not a quadrilateral)\n", len(sighting.Potential))
		for _, p := range sighting.Potential {
			drawCircle(output, int(p.X), int(p.Y), 6, yellow)
		}
	} else {
		fmt.Println("No target candidate found")
	}

	rgba := image.NewRGBA(input.Bounds())
	draw.Draw(rgba, input.Bounds(), input, image.Point{}, draw.Src)
	if pt, ok := lasertrainer.FindLaser(rgba, lasertrainer.DefaultSettings()); ok {
		fmt.Printf("Laser point: (%d, %d)\n", pt.X, pt.Y)
		drawCross(output, pt.X, pt.Y, 15, red)
	}

	err = rimage.WriteImageToFile(outputFile, output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output image: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Saved output image to %s\n", outputFile)
}

func drawCircle(img *image.RGBA, cx, cy, radius int, c color.Color) {
	for angle := 0.0; angle < 360; angle += 1 {
		x := cx + int(float64(radius)*math.Cos(angle*math.Pi/180))
		y := cy + int(float64(radius)*math.Sin(angle*math.Pi/180))
		if x >= 0 && x < img.Bounds().Max.X && y >= 0 && y < img.Bounds().Max.Y {
			img.Set(x, y, c)
		}
	}
}

func drawCross(img *image.RGBA, cx, cy, size int, c color.Color) {
	for d := -size; d <= size; d++ {
		x := cx + d
		if x >= 0 && x < img.Bounds().Max.X && cy >= 0 && cy < img.Bounds().Max.Y {
			img.Set(x, cy, c)
		}
		y := cy + d
		if cx >= 0 && cx < img.Bounds().Max.X && y >= 0 && y < img.Bounds().Max.Y {
			img.Set(cx, y, c)
		}
	}
}
