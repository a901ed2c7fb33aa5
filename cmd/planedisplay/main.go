package main

import (
	"context"
	"database/sql"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/lexpierrot/plane-display/internal/airports"
	"github.com/lexpierrot/plane-display/internal/api"
	"github.com/lexpierrot/plane-display/internal/ingest"
	"github.com/lexpierrot/plane-display/internal/store"
)

type CLI struct {
	DB           string  `help:"Path to SQLite database." default:"data/planedisplay.db"`
	Port         string  `help:"HTTP server port." default:"8080"`
	Airport      string  `help:"IATA code of the watched airport." default:"SAN"`
	Station      string  `help:"METAR station identifier." default:"KSAN"`
	Timezone     string  `help:"Local timezone for banner scenery." default:"America/Los_Angeles"`
	Bounds       string  `help:"Bounding box for the positions query (north,south,west,east)." default:"33.5,32.5,-118.0,-116.0"`
	AltCeilingFt int     `help:"Ignore flights above this altitude in feet." default:"10000"`
	DescentFpm   float64 `help:"Assumed descent rate in feet per minute." default:"800"`
	TdzeFt       float64 `help:"Touchdown zone elevation in feet." default:"17"`
	FlightAPIKey string  `help:"Flightradar24 API token." env:"FR24_API_KEY" required:""`
	NoPoll       bool    `help:"Disable polling (server only, for local dev)."`
	Once         bool    `help:"Poll each source once and exit."`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("planedisplay"),
		kong.Description("Airport arrivals and weather display server."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	db, err := sql.Open("sqlite", cli.DB)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	loc, err := time.LoadLocation(cli.Timezone)
	if err != nil {
		log.Printf("Warning: could not load timezone %s, using UTC: %v", cli.Timezone, err)
		loc = time.UTC
	}

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("database migrated")

	seed, err := airports.Load()
	if err != nil {
		log.Fatalf("load airports: %v", err)
	}
	for _, a := range seed {
		if err := st.UpsertAirport(a); err != nil {
			log.Fatalf("upsert airport %s: %v", a.IATA, err)
		}
	}
	log.Printf("%d airports seeded", len(seed))

	flights := ingest.NewFlightClient(cli.FlightAPIKey, cli.Airport, cli.Bounds, cli.AltCeilingFt)
	metarSource := ingest.NewMetarSource()
	tracker := ingest.NewTracker(cli.TdzeFt, cli.DescentFpm)
	scheduler := ingest.NewScheduler(st, flights, metarSource, tracker, cli.Station)
	server := api.NewServer(st, tracker, cli.Station, cli.Airport, cli.Port, loc)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cli.Once {
		log.Println("running single poll")
		scheduler.RunOnce(ctx)
		log.Println("done")
		return
	}

	if !cli.NoPoll {
		go scheduler.Run(ctx)
	} else {
		log.Println("polling disabled (--no-poll)")
	}

	log.Printf("starting server on :%s", cli.Port)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
