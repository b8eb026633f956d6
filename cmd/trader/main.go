package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"stockfighter/internal/api"
	"stockfighter/internal/engine"
	"stockfighter/internal/gm"
	"stockfighter/internal/journal"
	"stockfighter/internal/obs"
	"stockfighter/internal/ops"
	"stockfighter/internal/risk"
	"stockfighter/internal/strategy"
	"stockfighter/pkg/conn"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to JSON config")
	profileAddr := flag.String("profile", "", "Pyroscope server address (empty=disabled)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if *profileAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "stockfighter/trader",
			ServerAddress:   *profileAddr,
			Logger:          emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	if err := run(ctx, loaded); err != nil {
		log.Fatalf("trader failed: %v", err)
	}
}

func run(ctx context.Context, loaded ops.Loaded) error {
	client, err := api.NewClient(loaded.API.Key, api.Option{
		BaseURL:   loaded.API.BaseURL,
		BaseWsURL: loaded.API.BaseWsURL,
	})
	if err != nil {
		return err
	}
	if _, err := client.Heartbeat(ctx); err != nil {
		return err
	}

	level, err := resolveLevel(ctx, loaded)
	if err != nil {
		return err
	}
	logs.Infof("trader: account %s on venue %s for stock %s",
		level.Account, level.Venue, level.Ticker)

	venue := client.Venue(level.Account, level.Venue)
	if _, err := venue.Heartbeat(ctx); err != nil {
		return err
	}

	var fills *journal.Journal
	if loaded.Journal.Enabled {
		pg, err := conn.New(conn.Option{
			Host:     loaded.Journal.Host,
			Port:     loaded.Journal.Port,
			User:     loaded.Journal.User,
			Password: loaded.Journal.Password,
			Database: loaded.Journal.Database,
			SSLMode:  loaded.Journal.SSLMode,
		})
		if err != nil {
			return err
		}
		defer pg.Close()
		fills, err = journal.New(pg.DB(), loaded.Journal.QueueSize)
		if err != nil {
			return err
		}
	}

	eng, err := engine.New(engine.Config{
		Account:      level.Account,
		Venue:        level.Venue,
		Gateway:      venue,
		Feeds:        engine.VenueFeeds(venue),
		Risk:         risk.NewEngine(loaded.Risk),
		Metrics:      obs.NewMetrics(),
		Journal:      fills,
		SnapshotPath: loaded.Engine.SnapshotPath,
		HistorySize:  loaded.Engine.HistorySize,
	})
	if err != nil {
		return err
	}
	defer eng.Close()

	strat, err := strategy.FromSpec(loaded.Strategy, eng, level.Ticker)
	if err != nil {
		return err
	}

	logs.Infof("trader: running %s", strat.Name())
	if err := strat.Run(ctx); err != nil {
		return err
	}

	if nav, ok := eng.NetAssetValue(); ok {
		logs.Infof("trader: done, balance: %d, nav: %d", eng.Balance(), nav)
	} else {
		logs.Infof("trader: done, balance: %d", eng.Balance())
	}
	return nil
}

type resolvedLevel struct {
	Account string
	Venue   string
	Ticker  string
}

// resolveLevel uses the pinned venue from the config when present, otherwise
// asks the game master to start the named level.
func resolveLevel(ctx context.Context, loaded ops.Loaded) (resolvedLevel, error) {
	if loaded.Level.Pinned {
		return resolvedLevel{
			Account: loaded.Level.Account,
			Venue:   loaded.Level.Venue,
			Ticker:  loaded.Level.Ticker,
		}, nil
	}

	master, err := gm.NewClient(loaded.API.Key, "")
	if err != nil {
		return resolvedLevel{}, err
	}
	level, err := master.StartLevel(ctx, loaded.Level.Name)
	if err != nil {
		return resolvedLevel{}, err
	}
	venueName, err := level.Venue()
	if err != nil {
		return resolvedLevel{}, err
	}
	ticker, err := level.Ticker()
	if err != nil {
		return resolvedLevel{}, err
	}
	return resolvedLevel{
		Account: level.Account,
		Venue:   venueName,
		Ticker:  ticker,
	}, nil
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}
