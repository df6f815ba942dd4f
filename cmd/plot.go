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
	"os"

	"github.com/notargets/goadjoint/readfiles"
	"github.com/notargets/goadjoint/utils"
	"github.com/spf13/cobra"
)

// plotCmd represents the plot command
var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plots a grid file",
	Long:  `Reads an SU2 grid file and displays the triangulation`,
	Run: func(cmd *cobra.Command, args []string) {
		gridFile, _ := cmd.Flags().GetString("gridFile")
		if len(gridFile) == 0 {
			fmt.Printf("error: must supply a grid file (-F, --gridFile) in .su2 format\n")
			os.Exit(1)
		}
		plotPoints, _ := cmd.Flags().GetBool("points")
		dr, _ := cmd.Flags().GetInt("delay")
		_, VX, VY, EToV, _ := readfiles.ReadSU2(gridFile, true)
		readfiles.PlotMesh(VX, VY, EToV, nil, plotPoints)
		utils.SleepFor(dr)
	},
}

func init() {
	rootCmd.AddCommand(plotCmd)
	plotCmd.Flags().StringP("gridFile", "F", "", "Grid file to read in SU2 (.su2) format")
	plotCmd.Flags().BoolP("points", "p", false, "overlay the mesh vertices")
	plotCmd.Flags().IntP("delay", "d", 10000, "milliseconds to keep the plot up")
}
