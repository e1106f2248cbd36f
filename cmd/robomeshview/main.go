// Copyright 2023 The robomesh authors. All rights reserved.

// Command robomeshview serves the viewer relay and shows
// robot description files.
package main

import (
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robomesh/robomesh"
	"github.com/robomesh/robomesh/kinematics"
	"github.com/robomesh/robomesh/meshcat"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfgFile string
	verbose bool
	cfg     config
	log     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "robomeshview",
		Short:         "Visualize robots in a web-based 3D viewer",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				a.log.Sync()
			}
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (yaml)")
	pf.StringVarP(&a.cfg.Address, "address", "a", "", "listen address")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newServeCmd(a), newShowCmd(a))
	return root
}

func (a *app) setup() error {
	flagAddr := a.cfg.Address
	if err := a.cfg.load(a.cfgFile); err != nil {
		return err
	}
	// Flags win over the config file.
	if flagAddr != "" {
		a.cfg.Address = flagAddr
	}

	zcfg := zap.NewDevelopmentConfig()
	if !a.verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	log, err := zcfg.Build()
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the viewer relay without a scene",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := meshcat.NewServer(a.log)
			defer srv.Close()
			a.log.Info("relay listening", zap.String("address", a.cfg.Address))
			return http.ListenAndServe(a.cfg.Address, srv.Handler(a.cfg.ViewerDir))
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	var (
		spin      float64
		fps       float64
		collision bool
	)
	cmd := &cobra.Command{
		Use:   "show <urdf>",
		Short: "Load a robot description and serve it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.show(args[0], spin, fps, collision)
		},
	}
	cmd.Flags().Float64Var(&spin, "spin", 0, "sweep joints through their limits at this rate (rad/s)")
	cmd.Flags().Float64Var(&fps, "fps", 30, "render rate while spinning")
	cmd.Flags().BoolVar(&collision, "collision", false, "show collision geometries")
	return cmd
}

func (a *app) show(path string, spin, fps float64, collision bool) error {
	ropts := []robomesh.RobotOption{}
	if a.cfg.MeshDir != "" {
		ropts = append(ropts, robomesh.WithMeshDir(a.cfg.MeshDir))
	}
	if collision {
		ropts = append(ropts, robomesh.WithCollisionModels())
	}
	robot, err := robomesh.NewRobotFromURDF(path, ropts...)
	if err != nil {
		return err
	}

	scene, err := robomesh.NewScene(
		robomesh.WithLogger(a.log),
		robomesh.WithAddress(a.cfg.Address),
		robomesh.WithViewerDir(a.cfg.ViewerDir),
	)
	if err != nil {
		return err
	}
	defer scene.Close()

	a.cfg.applyCamera(scene)
	if err := scene.Add(robot); err != nil {
		return err
	}
	if err := scene.Render(); err != nil {
		return err
	}
	fmt.Println("viewer:", scene.URL())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	if spin == 0 {
		<-stop
		return nil
	}

	// Sweep every joint through its range with phase-shifted
	// sines so the motion stays inside the limits.
	joints := robot.Model().Joints()
	tick := time.NewTicker(time.Duration(float64(time.Second) / fps))
	defer tick.Stop()
	start := time.Now()
	for {
		select {
		case <-stop:
			return nil
		case <-tick.C:
		}
		t := time.Since(start).Seconds() * spin
		for i, j := range joints {
			robot.SetJointAt(i, jointSweep(&j, t+float64(i)))
		}
		if err := scene.Render(); err != nil {
			return err
		}
	}
}

// jointSweep maps an unbounded phase to a value inside the
// joint's limits.
func jointSweep(j *kinematics.Joint, phase float64) float64 {
	s := math.Sin(phase)
	if j.Limit == nil {
		return s * math.Pi
	}
	mid := (j.Limit.Upper + j.Limit.Lower) / 2
	amp := (j.Limit.Upper - j.Limit.Lower) / 2
	return mid + amp*s
}
