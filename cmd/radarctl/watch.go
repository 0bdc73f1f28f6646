package main

import (
	"flag"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"radarlink/pkg/colossus"
	"radarlink/pkg/navigation"
)

// runWatch shows a live terminal dashboard of the FFT stream.
func runWatch(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var cf commonFlags
	addCommonFlags(fs, &cf)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, log, err := loadConfig(cf, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer log.Close()

	endpoint, err := radarEndpoint(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	program := tea.NewProgram(newWatchModel(endpoint.String()))

	var rotations navigation.RotationCounter
	var sweeps navigation.SweepTracker

	client := colossus.NewClient(endpoint, colossus.WithLogger(log))
	client.Ignore(colossus.TypeKeepAlive)
	client.SetHandler(colossus.TypeConfiguration, func(c *colossus.Client, msg *colossus.Message) {
		radarCfg, err := colossus.DecodeConfiguration(msg)
		if err != nil {
			return
		}
		program.Send(configMsg{cfg: radarCfg})
		_ = c.SendType(colossus.TypeStartFFTData)
	})
	client.SetHandler(colossus.TypeFFTData, func(_ *colossus.Client, msg *colossus.Message) {
		fft, err := colossus.DecodeFFTData(msg)
		if err != nil {
			return
		}
		lost, _ := sweeps.Update(fft.SweepCounter)
		update := spokeMsg{
			azimuth: int(fft.Azimuth),
			sweep:   fft.SweepCounter,
			lost:    lost,
		}
		if rotations.Update(int(fft.Azimuth)) {
			update.rotations = rotations.Rotations()
		}
		program.Send(update)
	})

	if err := client.Start(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer client.Stop()

	if _, err := program.Run(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

type configMsg struct {
	cfg colossus.Configuration
}

type spokeMsg struct {
	azimuth   int
	sweep     uint16
	lost      bool
	rotations int
}

type rateTickMsg time.Time

type watchModel struct {
	endpoint  string
	haveCfg   bool
	cfg       colossus.Configuration
	azimuth   int
	sweep     uint16
	spokes    int
	lost      int
	rotations int

	lastCount int
	rate      float64
}

func newWatchModel(endpoint string) watchModel {
	return watchModel{endpoint: endpoint}
}

func rateTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return rateTickMsg(t)
	})
}

func (m watchModel) Init() tea.Cmd {
	return rateTick()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case configMsg:
		m.haveCfg = true
		m.cfg = msg.cfg
	case spokeMsg:
		m.spokes++
		m.azimuth = msg.azimuth
		m.sweep = msg.sweep
		if msg.lost {
			m.lost++
		}
		if msg.rotations > 0 {
			m.rotations = msg.rotations
		}
	case rateTickMsg:
		m.rate = float64(m.spokes - m.lastCount)
		m.lastCount = m.spokes
		return m, rateTick()
	}
	return m, nil
}

func (m watchModel) View() string {
	s := fmt.Sprintf("radarlink watch — %s\n\n", m.endpoint)
	if m.haveCfg {
		s += fmt.Sprintf("  azimuth samples  %d\n", m.cfg.AzimuthSamples)
		s += fmt.Sprintf("  range in bins    %d\n", m.cfg.RangeInBins)
		s += fmt.Sprintf("  bin size         %.4f m\n", m.cfg.RangeResolution())
		s += fmt.Sprintf("  packet rate      %d\n\n", m.cfg.PacketRate)
	} else {
		s += "  waiting for configuration...\n\n"
	}
	s += fmt.Sprintf("  spokes           %d (%.0f/s)\n", m.spokes, m.rate)
	s += fmt.Sprintf("  azimuth          %d\n", m.azimuth)
	s += fmt.Sprintf("  sweep counter    %d\n", m.sweep)
	s += fmt.Sprintf("  rotations        %d\n", m.rotations)
	s += fmt.Sprintf("  lost packets     %d\n", m.lost)
	s += "\n  q to quit\n"
	return s
}
