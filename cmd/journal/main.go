package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/cmdbeacon/cmdbeacon/internal/config"
	"github.com/cmdbeacon/cmdbeacon/internal/journal"
)

func main() {
	configPath := flag.String("config", "cmdbeacon.yaml", "Path to config file")
	xmlPath := flag.String("xml", "", "Read records from this XML journal (default from config)")
	boltPath := flag.String("bolt", "", "Read records from this bbolt journal instead of XML")
	htmlOut := flag.String("html", "", "Write the HTML report to this path instead of printing")
	width := flag.Int("width", 100, "Wrap width for terminal output")
	follow := flag.Bool("follow", false, "Stream live activity from the configured Redis channel")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *follow {
		if err := followRedis(ctx, cfg.Journal); err != nil {
			log.Fatalf("Follow failed: %v", err)
		}
		return
	}

	src, closeSrc, err := openSource(*xmlPath, *boltPath, cfg.Journal)
	if err != nil {
		log.Fatalf("Failed to open journal: %v", err)
	}
	defer closeSrc()

	recs, err := src.Records(ctx)
	if err != nil {
		log.Fatalf("Failed to read journal: %v", err)
	}

	if *htmlOut != "" {
		if err := journal.WriteHTMLReport(*htmlOut, recs); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}
		color.Green("Wrote %d records to %s", len(recs), *htmlOut)
		return
	}

	style := "notty"
	if isatty.IsTerminal(os.Stdout.Fd()) {
		style = "dark"
	}
	out, err := journal.RenderTerminal(recs, style, *width)
	if err != nil {
		log.Fatalf("Failed to render journal: %v", err)
	}
	fmt.Print(out)
}

func openSource(xmlPath, boltPath string, cfg config.JournalConfig) (journal.Source, func(), error) {
	if boltPath != "" {
		bs, err := journal.OpenBolt(boltPath)
		if err != nil {
			return nil, nil, err
		}
		return bs, func() { bs.Close() }, nil
	}
	if xmlPath == "" {
		xmlPath = cfg.XMLPath
	}
	xf := journal.NewXMLFile(xmlPath)
	return xf, func() {}, nil
}

func followRedis(ctx context.Context, cfg config.JournalConfig) error {
	if cfg.RedisAddr == "" {
		return fmt.Errorf("journal.redis_addr is not configured")
	}
	rs, err := journal.DialRedis(ctx, cfg.RedisAddr, cfg.RedisChannel)
	if err != nil {
		return err
	}
	defer rs.Close()

	color.Cyan("Following %s on %s (Ctrl+C to stop)", cfg.RedisChannel, cfg.RedisAddr)
	tags := map[journal.Sender]*color.Color{
		journal.Client: color.New(color.FgBlue),
		journal.Server: color.New(color.FgGreen),
	}
	for rec := range rs.Subscribe(ctx) {
		tag := tags[rec.Sender].Sprintf("[%s]", rec.Sender)
		fmt.Printf("%s %s %s --> %s\n", rec.Timestamp.Format(journal.TimestampLayout), tag, rec.Peer, rec.Content)
	}
	return nil
}
