package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/cmdbeacon/cmdbeacon/internal/client"
	"github.com/cmdbeacon/cmdbeacon/internal/config"
	"github.com/cmdbeacon/cmdbeacon/internal/discovery"
	"github.com/cmdbeacon/cmdbeacon/internal/tui"
)

func main() {
	configPath := flag.String("config", "cmdbeacon.yaml", "Path to config file")
	host := flag.String("host", "", "Server IP; skips discovery when set")
	port := flag.Int("port", 0, "Server port (default 12345)")
	useMDNS := flag.Bool("mdns", false, "Browse mDNS instead of listening for UDP broadcasts")
	timeout := flag.Duration("timeout", 0, "Discovery timeout (default from config)")
	retries := flag.Uint64("retries", 0, "Extra connection attempts")
	plain := flag.Bool("plain", false, "Line-oriented prompt instead of the full-screen UI")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		color.Red("[ERROR] Failed to load config: %v", err)
		os.Exit(1)
	}
	if *timeout > 0 {
		cfg.Discovery.Timeout = *timeout
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rule := strings.Repeat("=", 60)
	color.Cyan(rule)
	color.New(color.FgBlue).Println("TCP CLIENT WITH AUTO-DISCOVERY")
	color.Cyan(rule)
	fmt.Println()

	in := bufio.NewReader(os.Stdin)
	addr := ""
	if *host != "" {
		p := *port
		if p == 0 {
			p = client.DefaultPort
		}
		addr = client.Addr(*host, p)
	} else {
		ann, err := discover(ctx, cfg, *useMDNS)
		if err != nil {
			color.Yellow("Discovery failed: enter the server IP and port manually")
			addr, err = prompt(in)
			if err != nil {
				color.Red("[ERROR] %v", err)
				os.Exit(1)
			}
		} else {
			addr = ann.Addr()
		}
	}

	color.Blue("\nConnecting to %s...", addr)
	conn, err := client.Dial(ctx, addr, *retries)
	if err != nil {
		color.Red("[ERROR] Unable to connect to %s", addr)
		if client.IsRefused(err) {
			color.Blue("Check that:")
			color.Cyan("    1. The server is running")
			color.Cyan("    2. The firewall allows the connection")
		} else {
			color.Red("%v", err)
		}
		os.Exit(1)
	}
	defer conn.Close()
	color.Green("Connected to the server!\n")

	if *plain || !isatty.IsTerminal(os.Stdin.Fd()) {
		err = runPlain(in, conn)
	} else {
		err = runTUI(conn)
	}
	if err != nil {
		color.Red("[ERROR] %v", err)
	}
	color.Yellow("\nClient closed.")
}

func discover(ctx context.Context, cfg *config.Config, useMDNS bool) (discovery.Announcement, error) {
	color.Cyan("Searching for the server on the local network...")
	if useMDNS {
		color.Cyan("    Browsing mDNS for %s", cfg.Discovery.MDNSService)
	} else {
		color.Cyan("    Listening for broadcasts on port %d", cfg.Discovery.Port)
	}
	color.Yellow("    Timeout: %s\n", cfg.Discovery.Timeout)

	var (
		ann discovery.Announcement
		err error
	)
	if useMDNS {
		ann, err = discovery.Browse(ctx, cfg.Discovery.MDNSService, cfg.Discovery.Timeout)
	} else {
		ann, err = discovery.Discover(ctx, fmt.Sprintf(":%d", cfg.Discovery.Port), cfg.Discovery.Timeout)
	}
	if err != nil {
		if errors.Is(err, discovery.ErrNotFound) {
			color.Yellow("Timeout: no server found on the network.")
		} else {
			color.Red("[ERROR] Discovery failed: %v", err)
		}
		return ann, err
	}

	color.Green("Server found!")
	fmt.Printf("%s %s\n", color.BlueString("    IP:"), ann.IP)
	fmt.Printf("%s %d\n\n", color.BlueString("    Port:"), ann.Port)
	return ann, nil
}

func prompt(in *bufio.Reader) (string, error) {
	ask := color.New(color.FgMagenta)

	ask.Print("Server IP: ")
	ip, err := readLine(in)
	if err != nil {
		return "", err
	}
	if ip == "" {
		return "", errors.New("no server IP given")
	}

	ask.Printf("Server port (default %d): ", client.DefaultPort)
	raw, err := readLine(in)
	if err != nil {
		return "", err
	}
	port := client.DefaultPort
	if raw != "" {
		port, err = strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return "", fmt.Errorf("invalid port %q", raw)
		}
	}
	return client.Addr(ip, port), nil
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func runPlain(in *bufio.Reader, conn *client.Conn) error {
	clientTag := color.New(color.FgBlue).Sprint("[CLIENT]")
	serverTag := color.New(color.FgGreen).Sprint("[SERVER]")
	for {
		fmt.Printf("%s --> Enter a message to send: ", clientTag)
		msg, err := readLine(in)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if msg == "" {
			continue
		}

		resp, err := conn.Send(msg)
		if err != nil {
			return err
		}
		if resp == client.ExitResponse {
			fmt.Printf("%s --> Disconnect requested by server\n", color.YellowString("[SERVER]"))
			return nil
		}
		fmt.Printf("%s --> %s\n", serverTag, resp)
	}
}

func runTUI(conn *client.Conn) error {
	p := tea.NewProgram(tui.New(conn), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(tui.Model); ok && m.Ended() {
		color.Yellow("[SERVER] --> %s", m.Reason())
	}
	return nil
}
