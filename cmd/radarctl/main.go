package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"radarlink/pkg/config"
	"radarlink/pkg/logger"
	"radarlink/pkg/transport"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}

	switch args[0] {
	case "fft":
		return runFFT(args[1:], stdout, stderr)
	case "targets":
		return runTargets(args[1:], stdout, stderr)
	case "imu":
		return runIMU(args[1:], stdout, stderr)
	case "playback":
		return runPlayback(args[1:], stdout, stderr)
	case "watch":
		return runWatch(args[1:], stderr)
	case "-h", "--help", "help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintln(stderr, "unknown command:", args[0])
		printUsage(stderr)
		return 2
	}
}

// commonFlags carries the options every subcommand accepts.
type commonFlags struct {
	ipaddress string
	port      uint
	loglevel  string
	file      string
	config    string
}

func addCommonFlags(fs *flag.FlagSet, cf *commonFlags) {
	fs.StringVar(&cf.ipaddress, "ipaddress", "", "radar IP address")
	fs.StringVar(&cf.ipaddress, "i", "", "radar IP address (shorthand)")
	fs.UintVar(&cf.port, "port", 0, "radar port")
	fs.UintVar(&cf.port, "p", 0, "radar port (shorthand)")
	fs.StringVar(&cf.loglevel, "loglevel", "", "log level: debug, info, error, off")
	fs.StringVar(&cf.loglevel, "l", "", "log level (shorthand)")
	fs.StringVar(&cf.file, "file", "", "recording file path")
	fs.StringVar(&cf.file, "f", "", "recording file path (shorthand)")
	fs.StringVar(&cf.config, "config", "", "TOML configuration file")
}

// loadConfig merges the config file with flag overrides.
func loadConfig(cf commonFlags, stderr io.Writer) (config.Config, *logger.Log, error) {
	cfg := config.Default()
	if cf.config != "" {
		loaded, _, err := config.LoadOrDefault(cf.config)
		if err != nil {
			return config.Config{}, nil, err
		}
		cfg = loaded
	}
	if cf.ipaddress != "" {
		cfg.Radar.IPAddress = cf.ipaddress
	}
	if cf.port != 0 {
		cfg.Radar.Port = uint16(cf.port)
	}
	if cf.loglevel != "" {
		cfg.Log.Level = cf.loglevel
	}
	if cf.file != "" {
		cfg.Playback.File = cf.file
	}

	log := logger.New(stderr, logger.ParseLevel(cfg.Log.Level))
	return cfg, log, nil
}

func radarEndpoint(cfg config.Config) (transport.Endpoint, error) {
	return transport.MakeEndpoint(cfg.Radar.IPAddress, cfg.Radar.Port)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  radarctl fft      [-i addr] [-p port] [-l level] [--record file]   stream FFT spokes")
	fmt.Fprintln(w, "  radarctl targets  [-i addr] [-p port] [--config file]              CFAR target extraction")
	fmt.Fprintln(w, "  radarctl imu      [-i addr] [-p port]                              print IMU samples")
	fmt.Fprintln(w, "  radarctl playback -f file [--fast]                                 replay a recording")
	fmt.Fprintln(w, "  radarctl watch    [-i addr] [-p port]                              live dashboard")
}
