package cmd

import (
	"log"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gaugeworks/elmgauge"
	"github.com/gaugeworks/elmgauge/pkg/bar"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "connect to the adapter and drive the gauge cluster",
	Args:  cobra.NoArgs,
	RunE:  runGauges,
}

func init() {
	runCmd.Flags().BoolP("verbose", "v", false, "log every needle movement")
	rootCmd.AddCommand(runCmd)
}

func runGauges(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}

	port, err := resolvePort(cfg.Port)
	if err != nil {
		return err
	}
	cfg.Port = port

	var pb *progressbar.ProgressBar
	cfg.OnProgress = func(step, total int, command string) {
		if pb == nil {
			pb = bar.New(total, "initializing adapter")
		}
		pb.Describe(command)
		pb.Add(1)
	}

	events := make(chan elmgauge.MainEvent, cfg.QueueDepth)
	display := make(chan elmgauge.DisplayEvent, cfg.QueueDepth)
	gauge := make(chan elmgauge.GaugeEvent, cfg.QueueDepth)

	session := elmgauge.NewSession(cfg, events)
	if err := session.Open(cmd.Context()); err != nil {
		return err
	}
	defer session.Close()

	router := elmgauge.NewRouter(cfg, events, display, gauge)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error { return session.Run(ctx) })
	g.Go(func() error { return router.Run(ctx) })
	g.Go(func() error {
		return elmgauge.RunDisplay(ctx, display, elmgauge.NewTermDisplay(os.Stdout), events)
	})
	g.Go(func() error {
		return elmgauge.RunGauge(ctx, gauge, &elmgauge.LogActuator{Verbose: verbose}, events)
	})
	go func() {
		for ev := range router.Events() {
			log.Println(ev.String())
		}
	}()

	return g.Wait()
}

// loadConfig reads the YAML file named by --config (if any) and lets the
// command-line flags win over it.
func loadConfig(cmd *cobra.Command) (*elmgauge.Config, error) {
	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, err
	}
	cfg, err := elmgauge.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed(flagPort) {
		if cfg.Port, err = cmd.Flags().GetString(flagPort); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed(flagBaudrate) {
		if cfg.Baudrate, err = cmd.Flags().GetInt(flagBaudrate); err != nil {
			return nil, err
		}
	}
	debug, err := cmd.Flags().GetBool(flagDebug)
	if err != nil {
		return nil, err
	}
	cfg.Debug = cfg.Debug || debug

	return cfg, nil
}
