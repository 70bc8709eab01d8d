package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/padloop/padloop/rpc"
	"github.com/padloop/padloop/version"
)

func main() {
	versionFlag := flag.Bool("v", false, "print version and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Receives padloop transport sync and prints it; a stand-in for a lighting or projection rig.\nUsage: %s\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	states, err := rpc.Receiver()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not start sync receiver: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("waiting for transport sync...")
	for state := range states {
		transport := "stopped"
		if state.Playing {
			transport = "playing"
		}
		fmt.Printf("\r%-8s bank %d step %d pass %d beat %2d  %5.1f%%  %6.1fs",
			transport, state.Bank, state.StepIndex+1, state.Pass+1, state.Beat+1,
			state.Progress*100, state.SongPos)
	}
	fmt.Println()
}
