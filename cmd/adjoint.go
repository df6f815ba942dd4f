/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/pkg/profile"

	"github.com/notargets/goadjoint/InputParameters"
	"github.com/notargets/goadjoint/adjoint"
	"github.com/notargets/goadjoint/flow"
	"github.com/notargets/goadjoint/geometry"
	"github.com/notargets/goadjoint/readfiles"
	"github.com/notargets/goadjoint/types"
	"github.com/notargets/goadjoint/utils"
	"github.com/spf13/cobra"
)

type ModelAdjoint struct {
	GridFile string
	ICFile   string
	Graph    bool
	Delay    time.Duration
	Profile  bool
}

// solveCmd represents the solve command
var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solves the adjoint equations and outputs surface sensitivities",
	Long:  `Solves the adjoint equations and outputs surface sensitivities`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		ma := &ModelAdjoint{}
		if ma.GridFile, err = cmd.Flags().GetString("gridFile"); err != nil {
			panic(err)
		}
		if ma.ICFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			panic(err)
		}
		ma.Graph, _ = cmd.Flags().GetBool("graph")
		ma.Profile, _ = cmd.Flags().GetBool("profile")
		dr, _ := cmd.Flags().GetInt("delay")
		ma.Delay = time.Duration(dr) * time.Millisecond
		ap := processAdjointInput(ma)
		RunAdjoint(ma, ap)
	},
}

func processAdjointInput(ma *ModelAdjoint) (ap *InputParameters.AdjointParameters) {
	var (
		err      error
		willExit bool
	)
	if len(ma.GridFile) == 0 {
		err := fmt.Errorf("must supply a grid file (-F, --gridFile) in .su2 format")
		fmt.Printf("error: %s\n", err.Error())
		willExit = true
	}
	if len(ma.ICFile) == 0 {
		err := fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile) in YAML format")
		fmt.Printf("error: %s\n", err.Error())
		exampleFile := `
########################################
Title: "NACA 0012 drag adjoint"
CFL: 4.
Minf: 0.8
Alpha: 1.25
Objective: drag
AdjointMode: continuous
SpaceScheme: centered-jst
TimeIntegration: implicit-euler
MaxIterations: 500
########################################
`
		fmt.Printf("Example File:%s\n", exampleFile)
		willExit = true
	}
	if willExit {
		os.Exit(1)
	}
	var data []byte
	if data, err = ioutil.ReadFile(ma.ICFile); err != nil {
		panic(err)
	}
	ap = &InputParameters.AdjointParameters{}
	if err = ap.Parse(data); err != nil {
		panic(err)
	}
	return
}

func init() {
	rootCmd.AddCommand(solveCmd)
	solveCmd.Flags().StringP("gridFile", "F", "", "Grid file to read in SU2 (.su2) format")
	solveCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- CFL\n\t- Minf\n\t- Objective")
	solveCmd.Flags().BoolP("graph", "g", false, "display the surface sensitivity after the solve")
	solveCmd.Flags().IntP("delay", "d", 10000, "milliseconds to keep the sensitivity plot up")
	solveCmd.Flags().Bool("profile", false, "write a CPU profile of the solve")
}

func RunAdjoint(ma *ModelAdjoint, ap *InputParameters.AdjointParameters) {
	var (
		err error
	)
	if ma.Profile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}
	ap.Print()
	_, VX, VY, EToV, bcEdges := readfiles.ReadSU2(ma.GridFile, true)
	dm := geometry.NewDualMesh(VX, VY, EToV, bcEdges)
	fs := flow.NewFreeStream(dm.NDim, ap.Gamma, ap.Minf, ap.Alpha, ap.Beta, ap.Pinf, ap.Rhoinf)
	fsol := flow.NewFlowSolution(dm, fs, ap.Incompressible)
	if ap.RestartFlow {
		if err = fsol.ReadRestart(ap.FlowFileName, dm); err != nil {
			panic(err)
		}
	}
	exch := adjoint.NewExchanger(1)
	s, err := adjoint.NewSolver(dm, fsol, fs, ap, 0, exch)
	if err != nil {
		panic(err)
	}
	s.Solve()
	if err = s.WriteRestart(ap.AdjFileName); err != nil {
		panic(err)
	}
	if ma.Graph {
		plotSensitivity(s, ma.Delay)
	}
}

// plotSensitivity draws the surface sensitivity of each wall marker against
// the x coordinate of its vertices.
func plotSensitivity(s *adjoint.Solver, delay time.Duration) {
	var (
		dm      = s.Mesh
		plotted bool
	)
	for im, marker := range dm.Markers {
		if marker.Kind != types.BC_EulerWall && marker.Kind != types.BC_NSWall {
			continue
		}
		x := make([]float64, len(marker.Vertices))
		for iv, vtx := range marker.Vertices {
			x[iv] = dm.Points[vtx.Node].Coord[0]
		}
		f := s.CSensitivity[im]
		xmin, xmax := minMax(x)
		fmin, fmax := minMax(f)
		if fmax == fmin {
			fmax = fmin + 1
		}
		lc := utils.NewLineChart(1920, 1080, xmin, xmax, fmin, fmax)
		lc.Plot(delay, x, f, 0.7, marker.Label)
		plotted = true
	}
	if plotted {
		utils.SleepFor(int(delay.Milliseconds()))
	}
}

func minMax(f []float64) (fmin, fmax float64) {
	fmin, fmax = f[0], f[0]
	for _, val := range f {
		if val < fmin {
			fmin = val
		}
		if val > fmax {
			fmax = val
		}
	}
	return
}
