/*
Copyright © 2017 the SPHERLS authors.
This file is part of SPHERLS.

SPHERLS is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

SPHERLS is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with SPHERLS.  If not, see <http://www.gnu.org/licenses/>.
*/

// Command spherls runs the stellar-envelope hydrodynamics engine on one
// of the built-in test problems or a configuration file.
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/cpmech/gosl/mpi"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stellarmodel/spherls"
)

type runConfig struct {
	Problem   string  `toml:"problem"` // uniform | sod | sedov
	Zones     int     `toml:"zones"`
	Steps     int     `toml:"steps"`
	EndTime   float64 `toml:"end_time"`
	Courant   float64 `toml:"courant"`
	PerChange float64 `toml:"per_change"`
	InitialDt float64 `toml:"initial_dt"`
	// ConstantDt disables the adaptive controller when set.
	ConstantDt float64 `toml:"constant_dt"`
	Watch     []int   `toml:"watch_zones"`
	Snapshot  string  `toml:"snapshot"`

	Engine spherls.Config `toml:"engine"`
}

func defaultRunConfig() *runConfig {
	return &runConfig{
		Problem:   "uniform",
		Zones:     100,
		Steps:     100,
		Courant:   0.5,
		PerChange: 0.05,
		InitialDt: 1e-4,
		Engine:    *spherls.DefaultConfig(),
	}
}

func main() {
	var configFile string

	root := &cobra.Command{
		Use:   "spherls",
		Short: "SPHERLS is a spherical stellar-envelope hydrodynamics solver.",
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Advance the model from its initial state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := defaultRunConfig()
			if configFile != "" {
				if _, err := toml.DecodeFile(configFile, cfg); err != nil {
					return fmt.Errorf("reading configuration %s: %v", configFile, err)
				}
			}
			return runModel(cfg)
		},
	}
	run.Flags().StringVarP(&configFile, "config", "c", "", "path to TOML configuration file")
	root.AddCommand(run)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runModel(cfg *runConfig) error {
	var msg spherls.Messenger = spherls.Solo{}
	mpi.Start(false)
	defer mpi.Stop(false)
	if mpi.Size() > 1 {
		msg = spherls.NewClusterMessenger()
	}

	im, err := buildProblem(cfg)
	if err != nil {
		return err
	}
	t := &spherls.TimeState{
		DtNMHalf:      cfg.InitialDt,
		DtNPHalf:      cfg.InitialDt,
		DtN:           cfg.InitialDt,
		CourantFactor: cfg.Courant,
		PerChange:     cfg.PerChange,
		VariableDt:    cfg.ConstantDt == 0,
		ConstDt:       cfg.ConstantDt,
	}

	m, err := spherls.New(im, &cfg.Engine, nil, msg, t)
	if err != nil {
		return err
	}
	if cfg.Steps > 0 {
		m.RunFuncs = append(m.RunFuncs, spherls.MaxSteps(cfg.Steps))
	}
	if cfg.EndTime > 0 {
		m.RunFuncs = append(m.RunFuncs, spherls.EndTime(cfg.EndTime))
	}
	if len(cfg.Watch) > 0 {
		m.RunFuncs = append(m.RunFuncs, spherls.WatchZones(os.Stdout, cfg.Watch))
	}
	m.RunFuncs = append(m.RunFuncs, spherls.Log(os.Stderr))
	if cfg.Snapshot != "" {
		m.CleanupFuncs = append(m.CleanupFuncs, func(m *spherls.SPHERLS) error {
			f, err := os.Create(cfg.Snapshot)
			if err != nil {
				return err
			}
			defer f.Close()
			return spherls.WriteModel(f)(m)
		})
	}

	if err := m.Init(); err != nil {
		return err
	}
	if err := m.Run(); err != nil {
		return err
	}
	if err := m.Cleanup(); err != nil {
		return err
	}
	logrus.Infof("run finished at t=%g after %d steps", m.Time.T, m.Time.Step)
	return nil
}

// buildProblem constructs the initial model for a built-in test problem.
func buildProblem(cfg *runConfig) (*spherls.InitialModel, error) {
	n := cfg.Zones
	im := &spherls.InitialModel{
		NDim:        1,
		RInterfaces: make([]float64, n+1),
		Density:     make([]float64, n),
		Energy:      make([]float64, n),
	}
	gam := cfg.Engine.Gamma
	for i := 0; i <= n; i++ {
		im.RInterfaces[i] = 0.1 + float64(i)/float64(n)
	}
	switch cfg.Problem {
	case "uniform":
		for i := 0; i < n; i++ {
			im.Density[i] = 1.
			im.Energy[i] = 1.
		}
	case "sod":
		for i := 0; i < n; i++ {
			if i < n/2 {
				im.Density[i] = 1.
				im.Energy[i] = 1. / ((gam - 1.) * 1.)
			} else {
				im.Density[i] = 0.125
				im.Energy[i] = 0.1 / ((gam - 1.) * 0.125)
			}
		}
	case "sedov":
		cfg.Engine.InnerBoundary = spherls.InnerReflecting
		vol := 4. / 3. * math.Pi *
			(math.Pow(im.RInterfaces[1], 3) - math.Pow(im.RInterfaces[0], 3))
		for i := 0; i < n; i++ {
			im.Density[i] = 1.
			im.Energy[i] = 1e-8
		}
		im.Energy[0] = 1. / vol // point energy in the innermost zone
	default:
		return nil, fmt.Errorf("unknown problem %q", cfg.Problem)
	}
	return im, nil
}
