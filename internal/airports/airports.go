// Package airports maps IATA codes to display city names for the arrivals
// board. The list is embedded so the display works offline.
package airports

import (
	"embed"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/lexpierrot/plane-display/internal/models"
)

//go:embed airports.csv
var dataFS embed.FS

// Load parses the embedded airport list.
func Load() ([]models.Airport, error) {
	f, err := dataFS.Open("airports.csv")
	if err != nil {
		return nil, fmt.Errorf("open airport list: %w", err)
	}
	defer f.Close()
	return parse(f)
}

func parse(r io.Reader) ([]models.Airport, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 || header[0] != "key" || header[1] != "city" {
		return nil, fmt.Errorf("unexpected header %v", header)
	}

	var airports []models.Airport
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		code := strings.ToUpper(strings.TrimSpace(rec[0]))
		if code == "" {
			continue
		}
		airports = append(airports, models.Airport{IATA: code, City: strings.TrimSpace(rec[1])})
	}
	return airports, nil
}
