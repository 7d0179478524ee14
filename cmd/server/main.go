package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/cmdbeacon/cmdbeacon/internal/config"
	"github.com/cmdbeacon/cmdbeacon/internal/feed"
	"github.com/cmdbeacon/cmdbeacon/internal/journal"
	"github.com/cmdbeacon/cmdbeacon/internal/server"
	"github.com/cmdbeacon/cmdbeacon/internal/session"
)

func main() {
	configPath := flag.String("config", "cmdbeacon.yaml", "Path to config file")
	host := flag.String("host", "", "Override listen host")
	port := flag.Int("port", 0, "Override server port")
	feedOn := flag.Bool("feed", false, "Serve the live feed regardless of config")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *feedOn {
		cfg.Feed.Enabled = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	j, err := openJournal(ctx, cfg.Journal)
	if err != nil {
		log.Fatalf("Failed to open journal: %v", err)
	}
	defer j.Close()

	store := session.NewStore()
	mdns := ""
	if cfg.Discovery.MDNS {
		mdns = cfg.Discovery.MDNSService
	}
	srv := server.New(server.Options{
		Addr:           cfg.ListenAddr(),
		ReadBuffer:     cfg.Server.ReadBuffer,
		BeaconTarget:   cfg.BroadcastAddr(),
		BeaconInterval: cfg.Discovery.Interval,
		MDNSService:    mdns,
	}, j, store)

	if err := srv.Listen(ctx); err != nil {
		color.Red("[ERROR] %v", err)
		os.Exit(1)
	}

	snap := srv.State().Snapshot()
	banner(snap.Addr(), cfg)

	if cfg.Feed.Enabled {
		b := feed.NewBroadcaster(store, srv.State(), cfg.Feed.BroadcastThrottle, cfg.Feed.SnapshotInterval)
		defer b.Stop()
		store.Observe(b.HandleEvent)
		j.Observe(b.HandleRecord)

		fsrv := feed.NewServer(store, srv.State(), b, j)
		go func() {
			if err := feed.ListenAndServe(ctx, cfg.Feed.Host, cfg.Feed.Port, fsrv.Router()); err != nil {
				log.Printf("feed stopped: %v", err)
			}
		}()
	}

	if err := srv.Serve(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Shutting down...")
}

func openJournal(ctx context.Context, cfg config.JournalConfig) (*journal.Journal, error) {
	var (
		sinks  []journal.Sink
		source journal.Source
	)
	closeAll := func() {
		for _, s := range sinks {
			s.Close()
		}
	}

	if cfg.XMLPath != "" {
		xf := journal.NewXMLFile(cfg.XMLPath)
		sinks = append(sinks, xf)
		source = xf
	}
	if cfg.BoltPath != "" {
		bs, err := journal.OpenBolt(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, bs)
		if source == nil {
			source = bs
		}
	}
	if cfg.RedisAddr != "" {
		rs, err := journal.DialRedis(ctx, cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, rs)
	}
	if cfg.PostgresURL != "" {
		ps, err := journal.OpenPostgres(ctx, cfg.PostgresURL)
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, ps)
		if source == nil {
			source = ps
		}
	}

	j := journal.New(sinks...)
	if cfg.HTMLPath != "" && source != nil {
		j.SetReport(cfg.HTMLPath, source)
	}
	return j, nil
}

func banner(addr string, cfg *config.Config) {
	rule := "============================================================"
	info := color.New(color.FgBlue)

	color.Cyan(rule)
	color.New(color.FgBlue, color.Bold).Println("TCP COMMAND SERVER WITH AUTO-DISCOVERY")
	color.Cyan(rule)
	info.Printf("Listening on %s\n", addr)
	info.Printf("Broadcasting discovery on UDP %s every %s\n", cfg.BroadcastAddr(), cfg.Discovery.Interval)
	if cfg.Discovery.MDNS {
		info.Printf("Registered mDNS service %s\n", cfg.Discovery.MDNSService)
	}
	if cfg.Journal.XMLPath != "" {
		info.Printf("Journal: %s\n", cfg.Journal.XMLPath)
	}
	if cfg.Feed.Enabled {
		info.Printf("Live feed: http://%s:%d/report\n", cfg.Feed.Host, cfg.Feed.Port)
	}
	color.Green("Waiting for connections...")
}
