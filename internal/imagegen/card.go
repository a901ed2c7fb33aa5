package imagegen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	cardWidth  = 480
	cardHeight = 280
	headerH    = 64
)

var (
	cardBackground = color.RGBA{0x1A, 0x1A, 0x1A, 0xFF}
	cardText       = color.RGBA{0xEE, 0xEE, 0xEE, 0xFF}
	cardLabel      = color.RGBA{0x9A, 0x9A, 0x9A, 0xFF}

	categoryColors = map[string]color.RGBA{
		"VFR":  {0x01, 0x71, 0x00, 0xFF},
		"MVFR": {0xDC, 0x58, 0x2A, 0xFF},
		"IFR":  {0xB5, 0x17, 0x00, 0xFF},
		"LIFR": {0xB5, 0x17, 0x00, 0xFF},
	}
	categoryUnknown = color.RGBA{0x5E, 0x5E, 0x5E, 0xFF}
)

// CardData holds the pre-formatted weather fields for the status card.
type CardData struct {
	Station     string
	City        string
	Category    string
	ObservedAt  time.Time
	Wind        string
	Visibility  string
	Ceiling     string
	Altimeter   string
	Temperature string
}

// CategoryColor returns the banner color for a flight category.
func CategoryColor(category string) color.RGBA {
	if c, ok := categoryColors[category]; ok {
		return c
	}
	return categoryUnknown
}

// RenderCard draws a compact station status card and returns it as PNG
// bytes. Rendering is local; no network access.
func RenderCard(data CardData) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, cardWidth, cardHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(cardBackground), image.Point{}, draw.Src)

	header := image.Rect(0, 0, cardWidth, headerH)
	draw.Draw(img, header, image.NewUniform(CategoryColor(data.Category)), image.Point{}, draw.Src)

	drawString(img, 16, 26, fmt.Sprintf("%s  %s", data.Station, data.Category), cardText)
	drawString(img, 16, 46, data.City, cardText)

	rows := []struct {
		label string
		value string
	}{
		{"WIND", data.Wind},
		{"VIS", data.Visibility},
		{"CEILING", data.Ceiling},
		{"ALTIMETER", data.Altimeter},
		{"TEMP", data.Temperature},
	}

	y := headerH + 32
	for _, row := range rows {
		drawString(img, 16, y, row.label, cardLabel)
		drawString(img, 140, y, row.value, cardText)
		y += 28
	}

	if !data.ObservedAt.IsZero() {
		drawString(img, 16, cardHeight-16, "observed "+data.ObservedAt.Format("1504Z 02 Jan"), cardLabel)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode card: %w", err)
	}
	return buf.Bytes(), nil
}

func drawString(img *image.RGBA, x, y int, s string, c color.RGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
