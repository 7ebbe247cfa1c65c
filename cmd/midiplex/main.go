package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	midiplex "github.com/cjbrigato/go-midiplex"
	"github.com/cjbrigato/go-midiplex/midiin"
	"github.com/cjbrigato/go-midiplex/plex"
	"github.com/cjbrigato/go-midiplex/sink"
	"github.com/cjbrigato/go-midiplex/synth"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  midiplex [flags] udp HOST:PORT...
  midiplex [flags] port NAME...
  midiplex [flags] synth [COUNT]

Reads note events from a MIDI input port and multiplexes them across the
given outputs, giving louder notes more outputs.

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	input := flag.String("input", "", "MIDI input port name (default: first available)")
	poolSize := flag.Int("input-pool-size", midiin.DefaultPoolSize, "input event pool size")
	maxAllocation := flag.Int("max-allocation", 0, "max outputs per note (0 = uncapped)")
	wave := flag.String("wave", "square", "synth waveform: square, saw, triangle or sine")
	record := flag.String("record", "", "synth: also capture the rendered audio to a WAV file")
	rate := flag.Int("rate", midiplex.DefaultSampleRate, "synth sample rate")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	var sinks []plex.Sink
	var audio *sink.Audio

	switch args[0] {
	case "udp":
		if len(args) < 2 {
			fatal("udp: at least one HOST:PORT required")
		}
		for _, addr := range args[1:] {
			u, err := sink.NewUDP(addr)
			if err != nil {
				fatal(err)
			}
			sinks = append(sinks, u)
		}

	case "port":
		if len(args) < 2 {
			fatal("port: at least one NAME required")
		}
		drv, err := rtmididrv.New()
		if err != nil {
			fatal(err)
		}
		for _, name := range args[1:] {
			p, err := sink.NewPort(drv, name)
			if err != nil {
				fatal(err)
			}
			sinks = append(sinks, p)
		}

	case "synth":
		count := 4
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				fatal(fmt.Sprintf("synth: bad voice count %q", args[1]))
			}
			count = n
		}
		waveType, err := synth.ParseWave(*wave)
		if err != nil {
			fatal(err)
		}
		audio, err = sink.NewAudio(*rate, *record)
		if err != nil {
			fatal(err)
		}
		for i := 0; i < count; i++ {
			sinks = append(sinks, audio.NewSynth(waveType))
		}
		audio.Start()

	default:
		usage()
		os.Exit(2)
	}

	session, err := midiplex.NewSession(sinks, midiplex.Options{
		Input:         *input,
		InputPoolSize: *poolSize,
		MaxAllocation: *maxAllocation,
	})
	if err != nil {
		fatal(err)
	}

	if session.MaxAllocation() > 0 {
		fmt.Printf("midiplex: %d outputs, at most %d per note\n", session.NumOutputs(), session.MaxAllocation())
	} else {
		fmt.Printf("midiplex: %d outputs\n", session.NumOutputs())
	}
	fmt.Println("Playing... (Press Ctrl+C to stop)")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	fmt.Fprintln(os.Stderr, "signal received, stopping")

	if err := session.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "midiplex: %v\n", err)
	}
	if audio != nil {
		if err := audio.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "midiplex: %v\n", err)
		}
	}
	midi.CloseDriver()
}

func fatal(v any) {
	fmt.Fprintf(os.Stderr, "midiplex: %v\n", v)
	os.Exit(1)
}
