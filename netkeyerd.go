package main

import (
	"fmt"

	"github.com/NetKeyer/NetKeyer/core"
	"github.com/NetKeyer/NetKeyer/midi"
	"github.com/NetKeyer/NetKeyer/server"
)

const version = "1.2.0"

func main() {
	options := parseFlags()

	if options.versionFlag {
		fmt.Printf("netkeyerd version %s\n", version)
		return
	}

	stderrWriter, stderrLogger, shortMemoryWriter, longMemoryWriter := initLoggers(
		options.logfile, options.verbose,
	)

	stderrLogger.Print("netkeyerd is starting.")

	var engines []core.Engine
	if options.withMidi {
		longMemoryWriter.Log("initing hardware midi")
		h, err := midi.InitHardware(longMemoryWriter)
		if err != nil {
			stderrLogger.Fatalf("hardware midi: %s", err)
		}
		defer h.Close()
		engines = append(engines, h)
	}

	longMemoryWriter.Log(fmt.Sprintf("UDP port count - %d", len(options.ports)))

	if len(options.ports) > 0 {
		e, err := midi.InitEmulator(options.ports, options.emulateBlindSpot, longMemoryWriter)
		if err != nil {
			stderrLogger.Fatalf("emulator: %s", err)
		}
		engines = append(engines, e)
	}

	if len(engines) == 0 {
		stderrLogger.Fatalf("No input engines enabled")
	}

	b := midi.Init(engines...)

	longMemoryWriter.Log("creating core")
	c := core.New(b, longMemoryWriter)
	defer c.Close()

	longMemoryWriter.Log("creating HTTP server")
	s, err := server.New(c, stderrWriter, shortMemoryWriter, longMemoryWriter, version)
	if err != nil {
		stderrLogger.Fatalf("https: %s", err)
	}

	longMemoryWriter.Log("running HTTP server")
	err = s.Run()
	if err != nil {
		stderrLogger.Fatalf("https: %s", err)
	}

	longMemoryWriter.Log("main ended successfully")
}
