// This file is part of gbacore.
//
// gbacore is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// gbacore is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with gbacore.  If not, see <https://www.gnu.org/licenses/>.

// Command headless runs a cartridge with no display attached, for
// profiling and quicksave round-trip testing. It has no GUI, no audio
// output and no input device - it exists to drive the scheduler/bus/
// prefetch/quicksave core hard enough to measure it.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bradleyjkemp/memviz"

	"github.com/jetsetilly/gbacore"
	"github.com/jetsetilly/gbacore/hardware/backup"
	"github.com/jetsetilly/gbacore/logger"
	"github.com/jetsetilly/gbacore/romdb"
	"github.com/jetsetilly/gbacore/statsview"
)

func main() {
	bios := flag.String("bios", "", "path to the 16K BIOS image")
	dbPath := flag.String("db", "romdb.csv", "path to the ROM auto-detection database")
	duration := flag.String("duration", "5s", "run duration")
	stats := flag.Bool("stats", false, "launch the statsview HTTP server")
	dumpScheduler := flag.String("dump-scheduler", "", "write a dot graph of the scheduler event store to this path and exit")
	log := flag.Bool("log", false, "echo the central log to stdout")
	flag.Parse()

	if *log {
		logger.SetEcho(os.Stdout, false)
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "* a ROM file is required")
		os.Exit(10)
	}

	if err := run(flag.Arg(0), *bios, *dbPath, *duration, *stats, *dumpScheduler); err != nil {
		fmt.Fprintf(os.Stderr, "* %s\n", err)
		os.Exit(20)
	}
}

func run(romPath, biosPath, dbPath, durationStr string, stats bool, dumpScheduler string) error {
	rom, err := os.ReadFile(romPath)
	if err != nil {
		return fmt.Errorf("reading rom: %w", err)
	}

	var bios []byte
	if biosPath != "" {
		bios, err = os.ReadFile(biosPath)
		if err != nil {
			return fmt.Errorf("reading bios: %w", err)
		}
	}

	db, err := romdb.StartSession(dbPath)
	if err != nil {
		return fmt.Errorf("opening romdb: %w", err)
	}
	defer db.EndSession(false)

	backupType, gpioKind, detected := db.Lookup(romCodeOf(rom))
	if detected {
		fmt.Printf("* detected backup=%s gpio=%s\n", backupType, gpioKind)
	} else {
		fmt.Println("* no romdb entry, backup storage disabled")
	}

	var chip backup.Chip
	if backupType != backup.None {
		chip = backup.New(backupType)
	}

	g := gbacore.New(rom, bios, chip, nil)

	if dumpScheduler != "" {
		f, err := os.Create(dumpScheduler)
		if err != nil {
			return fmt.Errorf("creating scheduler dump: %w", err)
		}
		defer f.Close()
		memviz.Map(f, g.Sched)
		fmt.Printf("* wrote scheduler graph to %s\n", dumpScheduler)
		return nil
	}

	if stats {
		statsview.Launch(os.Stdout)
	}

	dur, err := time.ParseDuration(durationStr)
	if err != nil {
		return fmt.Errorf("parsing duration: %w", err)
	}

	done := make(chan struct{})
	go func() {
		g.Run(placeholderStep)
		close(done)
	}()

	reportStats(g, dur)
	g.Post(gbacore.Message{Kind: gbacore.MessageExit})
	<-done

	return nil
}

// reportStats polls the shared frame counter every 5ms for dur, printing a
// running FPS line - the same poll/report loop the original headless port
// used against its shared-data frame counter.
func reportStats(g *gbacore.GBA, dur time.Duration) {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	deadline := time.Now().Add(dur)
	startFrames := g.Shared.FrameCounter()
	startTime := time.Now()

	for now := range ticker.C {
		if now.After(deadline) {
			break
		}
		frames := g.Shared.FrameCounter() - startFrames
		elapsed := now.Sub(startTime).Seconds()
		if elapsed > 0 {
			fmt.Printf("\r%d frames, %.1f fps", frames, float64(frames)/elapsed)
		}
	}
	fmt.Println()
}

// placeholderStep stands in for the CPU decoder, an external collaborator
// per spec §1. It idles the scheduler forward a fixed number of cycles per
// call so the scheduler/bus/prefetch/quicksave core can be exercised
// end-to-end without a real instruction stream.
func placeholderStep(g *gbacore.GBA) uint32 {
	return 1
}

func romCodeOf(rom []byte) uint32 {
	if len(rom) < 0xC0 {
		return 0
	}
	return uint32(rom[0xAC]) | uint32(rom[0xAD])<<8 | uint32(rom[0xAE])<<16 | uint32(rom[0xAF])<<24
}
