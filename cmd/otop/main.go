package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mrf/otop/internal/config"
	"github.com/mrf/otop/internal/detail"
	"github.com/mrf/otop/internal/handles"
	"github.com/mrf/otop/internal/procfact"
	"github.com/mrf/otop/internal/snapshot"
	"github.com/mrf/otop/internal/status"
	"github.com/mrf/otop/internal/store"
	"github.com/mrf/otop/internal/tmux"
	"github.com/mrf/otop/internal/tui"
	"github.com/mrf/otop/internal/view"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (defaults to ~/.config/otop/config.yaml)")
	flag.Parse()

	home, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("resolve home directory: %v", err)
	}

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	reader := store.New(store.DefaultPath(home))
	if !reader.Exists() {
		fmt.Fprintln(os.Stderr, "otop: host session database not found; is opencode installed and has it been run at least once?")
		os.Exit(1)
	}

	thresholds := status.Thresholds{
		CPUActive:       cfg.Status.CPUActiveThreshold,
		StaleAfter:      cfg.Status.StaleAfter,
		ToolWaitWindow:  cfg.Status.ToolWaitWindow,
		UserThinkWindow: cfg.Status.UserThinkWindow,
	}

	assembler := snapshot.New(
		procfact.New(),
		handles.New(),
		reader,
		config.NewMCPReader(config.DefaultMCPConfigPath(home)),
		thresholds,
	)
	detailer := detail.New(reader, tmux.NewResolver())

	initialPolicy := view.Policy{
		Filter:             "",
		SortKey:            view.SortKeyFromString(cfg.View.DefaultSortKey),
		Descending:         cfg.View.DefaultDescending,
		ShowToolProcesses:  cfg.View.ShowToolProcesses,
		ShowNoSession:      cfg.View.ShowNoSessionDefault,
		ShowNonInteractive: cfg.View.ShowNonInteractive,
	}

	model := tui.New(assembler, detailer, cfg.Refresh.TickInterval, initialPolicy)

	program := tea.NewProgram(model, tea.WithAltScreen())

	// SIGTERM and SIGHUP trigger the same clean exit as SIGINT: quit
	// the program so it restores terminal state, then exit with
	// 128+signum per the convention for signal termination.
	var caughtSignal atomic.Int32
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		sig := <-sigCh
		if n, ok := sig.(syscall.Signal); ok {
			caughtSignal.Store(int32(n))
		}
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "otop: %v\n", err)
		os.Exit(1)
	}

	if n := caughtSignal.Load(); n != 0 {
		os.Exit(128 + int(n))
	}
}
