package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"murmur/audio"
	"murmur/clipboard"
	"murmur/config"
	"murmur/log"
	"murmur/pipeline"
	"murmur/transcriber"
)

var version = "dev"

func main() {
	configFlag := flag.String("config", config.DefaultPath(), "Path to murmur.toml")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	langFlag := flag.String("lang", "", "Language code for transcription (e.g., en, es, fr); overrides config")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI (otherwise stdin-driven)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("murmur %s\n", version)
		os.Exit(0)
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	keys := transcriber.KeysFromEnv("GROQ_API_KEY")
	ring, err := transcriber.NewKeyRing(keys, transcriber.DefaultCooldown)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: no GROQ_API_KEY* environment variables set")
		os.Exit(1)
	}
	client := transcriber.NewGroq(ring)
	lang := cfg.Transcription.Language
	if *langFlag != "" {
		lang = *langFlag
	}
	client.SetLanguage(lang)

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		os.Exit(1)
	}
	defer actx.Close()

	deviceName := cfg.Recording.Device
	if *deviceFlag != "" {
		deviceName = *deviceFlag
	}
	var device *audio.DeviceInfo
	if deviceName != "" {
		device, err = findDevice(actx, deviceName)
		if err != nil {
			log.Warnf("device lookup failed: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: %v, falling back to default device\n", err)
		}
	} else if *setupFlag {
		device, err = selectDevice(actx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: device selection failed: %v, falling back to default device\n", err)
			device = nil
		}
	}
	if device != nil && audio.IsBluetooth(device.Name) {
		fmt.Fprintf(os.Stderr, "Warning: %s looks like a bluetooth device; expect degraded capture quality\n", device.Name)
	}

	pcfg := pipeline.Config{
		Gap:             cfg.Gap(),
		SegmentDuration: cfg.SegmentDuration(),
		MaxRetries:      cfg.Transcription.MaxRetries,
		TranscriptPath:  cfg.Transcription.TranscriptPath,
	}
	ctl := pipeline.NewController(actx, device, client, pcfg)

	log.SessionStart(client.Name(), ring.Len(), cfg.Recording.GapSeconds, cfg.Recording.DurationSeconds)

	finish := func(raw string, prompt bool) (string, bool) {
		system := correctorPrompt
		if prompt {
			system = generatorPrompt
		}
		formatted, err := client.Complete(system, raw)
		if err != nil || formatted == "" {
			log.Warnf("formatting failed, keeping raw transcript: %v", err)
			formatted = raw
		}
		appendFormattedLog(formatted)
		copied := clipboard.Copy(formatted) == nil
		return formatted, copied
	}

	deviceLine := "default device"
	if device != nil {
		deviceLine = device.Name
	}
	modeLine := fmt.Sprintf("[%s | flac | gap %.0fs/%.0fs | %d keys]",
		client.Name(), cfg.Recording.GapSeconds, cfg.Recording.DurationSeconds, ring.Len())

	if *tuiFlag {
		p := tea.NewProgram(newTUIModel(ctl, finish, deviceLine, modeLine), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			log.Errorf("TUI error: %v", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	runHeadless(ctl, finish)
}

// appendFormattedLog keeps a running history of post-processed output next
// to the other log files.
func appendFormattedLog(text string) {
	path := filepath.Join(log.Dir(), "formatted.log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Warnf("formatted log open failed: %v", err)
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s\n\n", text)
}

// runHeadless drives the session from stdin, one command per line. SIGINT
// cancels any active session before exiting.
func runHeadless(ctl *pipeline.Controller, finish func(string, bool) (string, bool)) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		ctl.Cancel()
		log.Close()
		os.Exit(0)
	}()

	fmt.Println("Commands: r=record g=record(prompt) p=pause s=stop c=cancel q=quit")
	promptMode := false
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "r", "g":
			if ctl.State() == pipeline.Idle {
				promptMode = scanner.Text() == "g"
			}
			if err := ctl.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			fmt.Printf("[%s] recording\n", time.Now().Format("15:04:05"))
		case "p":
			if err := ctl.Pause(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			fmt.Println("paused")
		case "s":
			text, err := ctl.Stop()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			if text == "" {
				fmt.Println("(no speech)")
				continue
			}
			formatted, copied := finish(text, promptMode)
			promptMode = false
			fmt.Println(formatted)
			if copied {
				fmt.Println("[copied to clipboard]")
			}
		case "c":
			if err := ctl.Cancel(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			promptMode = false
			fmt.Println("cancelled")
		case "q":
			ctl.Cancel()
			return
		case "":
		default:
			fmt.Println("Commands: r=record g=record(prompt) p=pause s=stop c=cancel q=quit")
		}
	}
}
