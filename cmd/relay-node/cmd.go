package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/relay-node/internal/config"
	"github.com/sweeney/relay-node/internal/link"
	"github.com/sweeney/relay-node/internal/logging"
	"github.com/sweeney/relay-node/internal/logic"
	"github.com/sweeney/relay-node/internal/sensor"
)

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:          "relay-node",
		Short:        "MQTT relay and climate sensor node",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, cfgPath)
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")

	root.AddCommand(&cobra.Command{
		Use:   "print-config",
		Short: "Print the effective configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printConfig(cmd.OutOrStdout(), cfgPath)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "print-state",
		Short: "Read the sensor and network link once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			s := sensor.NewIIOReader(cfg.Sensor.Device, log)
			l := link.NewInterface(cfg.Link.Interface, log)
			printState(cmd.OutOrStdout(), s, l)
			return nil
		},
	})
	return root
}

func printConfig(w io.Writer, path string) error {
	if _, err := config.Load(path); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	tree, err := config.Effective(path)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(tree); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

func printState(w io.Writer, s sensor.Reader, l link.Link) {
	r := logic.Reading{Temperature: s.ReadTemperature(), Humidity: s.ReadHumidity()}
	if r.Valid() {
		fmt.Fprintf(w, "sensor: %s\n", logic.FormatReading(r))
	} else {
		fmt.Fprintln(w, "sensor: unavailable")
	}
	info := l.Info()
	linkState := "DOWN"
	if info.Up {
		linkState = "UP"
	}
	fmt.Fprintf(w, "link: %s %s %s\n", info.Interface, linkState, info.IP)
}
