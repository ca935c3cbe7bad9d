// Package main is the statewatch command: it observes a JSON state file and
// prints classified change events for watched keypaths as the file evolves.
//
// Watch mode keeps running, reloading the file on every change:
//
//	statewatch -state app.json -watch users.42:any -watch counters:update
//
// Set mode edits one keypath in the file and exits, so a watching instance
// (or any other consumer) sees the change:
//
//	statewatch -state app.json -set users.42.name=ada
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tidwall/sjson"

	"github.com/dshills/statewatch/config"
	"github.com/dshills/statewatch/keypath"
	"github.com/dshills/statewatch/observe"
	"github.com/dshills/statewatch/tree"
)

func main() {
	os.Exit(run())
}

// watchFlags collects repeated -watch values.
type watchFlags []string

func (w *watchFlags) String() string { return strings.Join(*w, ",") }

func (w *watchFlags) Set(value string) error {
	*w = append(*w, value)
	return nil
}

func run() int {
	var (
		statePath  = flag.String("state", "", "JSON state file to observe (required)")
		configPath = flag.String("config", "statewatch.toml", "TOML settings file")
		setExpr    = flag.String("set", "", "one-shot edit: keypath=value, then exit")
		watches    watchFlags
	)
	flag.Var(&watches, "watch", "keypath:event to observe (repeatable); event defaults to any")
	flag.Parse()

	if *statePath == "" {
		fmt.Fprintln(os.Stderr, "Error: -state is required")
		flag.Usage()
		return 2
	}

	if *setExpr != "" {
		if err := applySet(*statePath, *setExpr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	data, err := os.ReadFile(*statePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: reading state file: %v\n", err)
		return 1
	}
	structure, err := observe.FromJSON(data, observe.WithSettings(settings))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if len(watches) == 0 {
		watches = watchFlags{":any"} // whole tree
	}
	for _, w := range watches {
		if err := subscribe(structure, w); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Live-reload dispatch settings alongside the state file.
	err = config.Watch(ctx, *configPath, func(s config.Settings) {
		structure.ApplySettings(s)
		fmt.Println("reloaded settings")
	}, func(err error) {
		fmt.Fprintf(os.Stderr, "config reload: %v\n", err)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: watching config: %v\n", err)
		return 1
	}

	if err := watchState(ctx, *statePath, structure); err != nil {
		fmt.Fprintf(os.Stderr, "Error: watching state file: %v\n", err)
		return 1
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals

	stats := structure.Stats()
	fmt.Printf("dispatches=%d deliveries=%d nodes=%d\n",
		stats.Dispatches, stats.Deliveries, stats.NodesVisited)
	return 0
}

// subscribe parses "keypath:event" and registers a printing listener.
func subscribe(structure *observe.Structure, spec string) error {
	path, event := spec, "any"
	if idx := strings.LastIndex(spec, ":"); idx >= 0 {
		path, event = spec[:idx], spec[idx+1:]
	}

	cursor := structure.Cursor(keypath.Parse(path)...)
	_, err := cursor.On(event, func(ch observe.Change) {
		fmt.Printf("%s %s: %s -> %s\n", ch.Event, ch.Path, render(ch.Old, ch.HasOld), render(ch.New, ch.HasNew))
	})
	if err != nil {
		return fmt.Errorf("watch %q: %w", spec, err)
	}
	return nil
}

// render formats a change value for display.
func render(v any, present bool) string {
	if !present {
		return "<absent>"
	}
	if m, ok := v.(*tree.Map); ok {
		if out, err := tree.ToJSON(m); err == nil {
			return string(out)
		}
	}
	return fmt.Sprint(v)
}

// watchState reloads the JSON state file whenever it changes and swaps it in
// as the new root, letting the dispatcher report exactly what changed.
func watchState(ctx context.Context, path string, structure *observe.Structure) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		var timerC <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(100 * time.Millisecond)
					timerC = timer.C
				} else {
					timer.Reset(100 * time.Millisecond)
				}

			case <-timerC:
				timer = nil
				timerC = nil
				data, err := os.ReadFile(abs)
				if err != nil {
					fmt.Fprintf(os.Stderr, "state reload: %v\n", err)
					continue
				}
				root, err := tree.FromJSON(data)
				if err != nil {
					fmt.Fprintf(os.Stderr, "state reload: %v\n", err)
					continue
				}
				structure.SetRoot(root)
			}
		}
	}()

	return nil
}

// applySet edits one keypath in the JSON file in place. The value is parsed
// as JSON when possible and treated as a string otherwise.
func applySet(path, expr string) error {
	key, raw, found := strings.Cut(expr, "=")
	if !found || key == "" {
		return fmt.Errorf("invalid -set expression %q, want keypath=value", expr)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading state file: %w", err)
	}

	var value any = raw
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		value = parsed
	}

	updated, err := sjson.SetBytes(data, key, value)
	if err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	return os.WriteFile(path, updated, 0o644)
}
