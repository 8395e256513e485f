// simkernel loads an instrument configuration, binds a hal.Bus (real
// hardware if present, the mock otherwise), and runs the tick loop
// until interrupted. It is a demonstration harness, not the process
// that would expose the plant over HTTP/WebSocket to an operator UI -
// that surface is built on top of the adapter package, elsewhere.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/theckman/yacspin"

	"github.jpl.nasa.gov/bdube/plcsim/adapter"
	"github.jpl.nasa.gov/bdube/plcsim/config"
	"github.jpl.nasa.gov/bdube/plcsim/engine"
	"github.jpl.nasa.gov/bdube/plcsim/hal"
)

// ConfigFileName is the default configuration document path, looked
// up relative to the working directory the same way multiserver looks
// up its own yaml file.
var ConfigFileName = "simkernel.yml"

func main() {
	if len(os.Args) > 1 {
		ConfigFileName = os.Args[1]
	}

	doc, err := config.Load(ConfigFileName)
	if err != nil {
		log.Fatalf("simkernel: %v", err)
	}

	reg, err := config.Build(doc)
	if err != nil {
		log.Fatalf("simkernel: %v", err)
	}
	log.Printf("simkernel: built %d instruments from %s", reg.Len(), ConfigFileName)

	bus := hal.NewBus()
	if bus.IsMock() {
		log.Printf("simkernel: no real hardware bound, running against the mock bus")
	}

	eng := engine.New(reg, bus, 100*time.Millisecond)
	if err := eng.InitializeHardware(); err != nil {
		log.Fatalf("simkernel: hardware setup failed: %v", err)
	}
	a := adapter.New(eng)

	watcher, err := config.NewWatcher(ConfigFileName)
	if err != nil {
		log.Printf("simkernel: hot reload disabled, could not watch %s: %v", ConfigFileName, err)
	} else {
		go func() {
			for doc := range watcher.Changes() {
				eng.Reconfigure(doc)
			}
		}()
		defer watcher.Close()
	}

	a.Start()
	defer a.Stop()
	defer func() {
		if err := eng.Cleanup(); err != nil {
			log.Printf("simkernel: cleanup: %v", err)
		}
	}()

	spinner, err := yacspin.New(yacspin.Config{
		Frequency:       200 * time.Millisecond,
		CharSet:         yacspin.CharSets[9],
		Suffix:          " ticking",
		SuffixAutoColon: true,
		Message:         "simkernel running",
		StopCharacter:   "✓",
		StopColors:      []string{"fgGreen"},
	})
	if err == nil {
		spinner.Start()
		defer spinner.Stop()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-sig:
			log.Println("simkernel: received interrupt, shutting down")
			return
		case <-ticker.C:
			printStatus(eng.Statistics())
		}
	}
}

const statusColumnWidth = 22

// label right-pads s to a fixed column width, measuring by display
// width rather than byte or rune count so a wide-glyph instrument
// label would still align.
func label(s string) string {
	w := statusColumnWidth - runewidth.StringWidth(s)
	if w < 1 {
		w = 1
	}
	return s + fmt.Sprintf("%*s", w, "")
}

func printStatus(stats map[string]interface{}) {
	fmt.Printf("%s%v\n", label("updates"), stats["total_updates"])
	fmt.Printf("%s%.2f\n", label("measured rate (Hz)"), stats["measured_rate_hz"])
	fmt.Printf("%s%v\n", label("instruments"), stats["instrument_count"])
}
