package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/padloop/padloop/cmd"
	"github.com/padloop/padloop/engine"
	"github.com/padloop/padloop/oto"
	"github.com/padloop/padloop/rpc"
	"github.com/padloop/padloop/version"
)

var (
	cpuprofile  = flag.String("cpuprofile", "", "write cpu profile to `file`")
	memprofile  = flag.String("memprofile", "", "write memory profile to `file`")
	midiInput   = flag.String("midi-input", "", "connect MIDI input to matching device name prefix")
	midiFirst   = flag.Bool("midi-first", false, "connect to the first available MIDI input device")
	metronome   = flag.Bool("metronome", false, "enable the metronome")
	record      = flag.Bool("record", false, "start recording pad hits into the armed pattern")
	patternMode = flag.Bool("pattern", false, "loop the first pattern instead of playing the arrangement")
	bank        = flag.Int("bank", 0, "bank to play (0-3)")
	syncAddress = flag.String("sync", "", "stream the transport position to a padloop-sync receiver at `address`")
	savePath    = flag.String("save", "", "save the project to `file` when exiting")
	versionFlag = flag.Bool("v", false, "print version and exit")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	var f *os.File
	if *cpuprofile != "" {
		var err error
		f, err = os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
	}

	broker := engine.NewBroker()
	backend, err := oto.NewBackend(broker)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not open audio backend: %v\n", err)
		os.Exit(1)
	}
	midiContext := cmd.NewMidiContext(broker)
	defer midiContext.Close()
	if *midiInput != "" || *midiFirst {
		if !midiContext.TryToOpenBy(*midiInput, *midiFirst) {
			log.Printf("no MIDI input device found with prefix %q", *midiInput)
		}
	}

	recoveryFile := ""
	if configDir, err := os.UserConfigDir(); err == nil {
		recoveryFile = filepath.Join(configDir, "padloop", "padloop-play-recovery")
	}
	model := engine.NewModel(broker, recoveryFile)
	player := engine.NewPlayer(broker, backend, nil)
	detector := engine.NewDetector(broker)
	go player.Run()
	go detector.Run()

	if a := flag.Args(); len(a) > 0 {
		model.LoadProjectFile(a[0])
	} else {
		model.LoadRecovery()
	}
	model.Song().Bank().SetValue(*bank)
	if *patternMode {
		model.Song().Mode().SetValue(int(engine.ModePattern))
	}
	if *metronome {
		model.Song().Metronome().SetValue(true)
	}

	var syncSender chan<- rpc.State
	if *syncAddress != "" {
		syncSender, err = rpc.Sender(*syncAddress)
		if err != nil {
			log.Printf("could not connect position sync: %v", err)
		}
	}

	model.Transport().Recording().SetValue(*record)
	if !*record {
		model.Transport().Playing().SetValue(true)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	status := time.NewTicker(250 * time.Millisecond)
	defer status.Stop()
	recovery := time.NewTicker(30 * time.Second)
	defer recovery.Stop()

loop:
	for {
		select {
		case msg := <-broker.ToModel:
			model.ProcessMsg(msg)
		case <-status.C:
			printStatus(model)
			if syncSender != nil {
				ps := model.PlayState()
				engine.TrySend(syncSender, rpc.State{
					Playing:   ps.Transport != engine.TransportStopped,
					Bank:      model.Song().Bank().Value(),
					StepIndex: ps.StepIndex,
					Pass:      ps.Pass,
					Beat:      ps.Beat,
					Progress:  float32(ps.Progress),
					SongPos:   float32(ps.SongPos),
				})
			}
		case <-recovery.C:
			if err := model.SaveRecovery(); err != nil {
				log.Printf("could not save recovery file: %v", err)
			}
		case <-quit:
			break loop
		}
	}
	fmt.Println()
	model.Transport().Playing().SetValue(false)
	if *savePath != "" {
		model.SaveProjectFile(*savePath)
	}
	model.Close()
	backend.Close()
	if *cpuprofile != "" {
		pprof.StopCPUProfile()
		f.Close()
	}
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatal("could not create memory profile: ", err)
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal("could not write memory profile: ", err)
		}
	}
}

func printStatus(model *engine.Model) {
	model.Alerts().Iterate(func(a engine.Alert) bool {
		if a.Priority >= engine.Warning {
			fmt.Println()
			log.Println(a.Message)
		}
		return true
	})
	ps := model.PlayState()
	bar := progressBar(ps.Progress, 16)
	line := fmt.Sprintf("%-9s %s  step %d pass %d beat %2d  [%s]  %s / %s",
		ps.Transport, model.Song().Bank().String(), ps.StepIndex+1, ps.Pass+1, ps.Beat+1,
		bar, clock(ps.SongPos), clock(ps.TotalDur))
	if res, ok := model.DetectorResult(); ok {
		line += fmt.Sprintf("  %5.1f dB", max(res.Volume[0], res.Volume[1]))
	}
	fmt.Printf("\r%-79s", line)
}

func progressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	if filled > width {
		filled = width
	}
	return strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
}

func clock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds * float64(time.Second))
	return fmt.Sprintf("%02d:%04.1f", int(d.Minutes()), d.Seconds()-60*float64(int(d.Minutes())))
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Plays and records padloop projects without a UI.\nUsage: %s [flags] [project file]\n", os.Args[0])
	flag.PrintDefaults()
}
