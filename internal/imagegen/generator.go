package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Condition keys a banner image: flight category plus time of day, e.g.
// "vfr_day" or "lifr_night".
type Condition string

// TimeOfDay buckets the local hour for banner scenery.
type TimeOfDay string

const (
	TimeDawn  TimeOfDay = "dawn"
	TimeDay   TimeOfDay = "day"
	TimeDusk  TimeOfDay = "dusk"
	TimeNight TimeOfDay = "night"
)

// TimeOfDayFor buckets a local timestamp.
func TimeOfDayFor(t time.Time) TimeOfDay {
	switch h := t.Hour(); {
	case h >= 5 && h < 8:
		return TimeDawn
	case h >= 8 && h < 17:
		return TimeDay
	case h >= 17 && h < 20:
		return TimeDusk
	default:
		return TimeNight
	}
}

// ConditionFor builds the cache key for a flight category at a local time.
func ConditionFor(category string, tod TimeOfDay) Condition {
	return Condition(strings.ToLower(category) + "_" + string(tod))
}

var categoryScenes = map[string]string{
	"vfr":  "clear skies with excellent visibility, a few distant fair-weather clouds",
	"mvfr": "a moderate cloud deck with hazy visibility beneath it",
	"ifr":  "low overcast clouds and reduced visibility, runway lights glowing through mist",
	"lifr": "dense fog with the airfield barely visible, approach lights haloed in the murk",
}

var todScenes = map[TimeOfDay]string{
	TimeDawn:  "at dawn with soft orange light on the horizon",
	TimeDay:   "in bright daylight",
	TimeDusk:  "at dusk with the last light fading and airfield lighting coming on",
	TimeNight: "at night under a dark sky with the airport lit up",
}

// BuildPrompt renders the image prompt for a condition.
func BuildPrompt(category string, tod TimeOfDay) string {
	scene, ok := categoryScenes[strings.ToLower(category)]
	if !ok {
		scene = categoryScenes["vfr"]
	}
	return fmt.Sprintf(
		"A wide painterly landscape view of a coastal airport approach path, %s, %s. "+
			"An airliner on final approach in the distance. No text, no people, no logos.",
		scene, todScenes[tod])
}

// Generator produces banner images through OpenAI's image API.
type Generator struct {
	client openai.Client
	model  string
}

// NewGenerator reads OPENAI_API_KEY for authentication.
func NewGenerator() (*Generator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &Generator{
		client: client,
		model:  "gpt-image-1",
	}, nil
}

// Generate creates a banner for the given flight category and time of day
// and returns it as PNG bytes.
func (g *Generator) Generate(ctx context.Context, category string, tod TimeOfDay) ([]byte, error) {
	prompt := BuildPrompt(category, tod)
	condition := ConditionFor(category, tod)

	log.Printf("imagegen: generating banner for %s", condition)

	resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Model:        g.model,
		Prompt:       prompt,
		Size:         openai.ImageGenerateParamsSize1536x1024,
		Quality:      openai.ImageGenerateParamsQualityLow,
		OutputFormat: openai.ImageGenerateParamsOutputFormatPNG,
	})
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no image data returned")
	}

	imageData := resp.Data[0].B64JSON
	if imageData == "" {
		return nil, errors.New("empty image data returned")
	}

	imageBytes, err := base64.StdEncoding.DecodeString(imageData)
	if err != nil {
		return nil, fmt.Errorf("decode image data: %w", err)
	}

	log.Printf("imagegen: generated banner for %s (%d bytes)", condition, len(imageBytes))
	return imageBytes, nil
}
