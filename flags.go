package main

import (
	"flag"
	"strconv"
)

type udpPorts []int

func (i *udpPorts) String() string {
	res := ""
	for i, p := range *i {
		if i > 0 {
			res += ","
		}
		res += strconv.Itoa(p)
	}
	return res
}

func (i *udpPorts) Set(value string) error {
	p, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	*i = append(*i, p)
	return nil
}

type initOptions struct {
	logfile          string
	ports            udpPorts
	withMidi         bool
	emulateBlindSpot bool
	verbose          bool
	versionFlag      bool
}

func parseFlags() initOptions {
	var options initOptions
	flag.StringVar(
		&(options.logfile),
		"l",
		"",
		"Log into a file, rotating after 20MB",
	)
	flag.Var(
		&(options.ports),
		"e",
		"Use UDP port for emulated MIDI input. Can be repeated for more ports. Example: netkeyerd -e 21328 -e 21329",
	)
	flag.BoolVar(
		&(options.withMidi),
		"m",
		true,
		"Use hardware MIDI devices. Can be disabled for testing environments. Example: netkeyerd -e 21328 -m=false",
	)
	flag.BoolVar(
		&(options.emulateBlindSpot),
		"eb",
		false,
		"Emulated ports are only visible to the fallback backend, "+
			"simulating a default backend with an enumeration blind spot. "+
			"For testing the fallback path.",
	)
	flag.BoolVar(
		&(options.verbose),
		"v",
		false,
		"Write verbose logs to either stderr or logfile",
	)
	flag.BoolVar(
		&(options.versionFlag),
		"version",
		false,
		"Write version",
	)
	flag.Parse()
	return options
}
