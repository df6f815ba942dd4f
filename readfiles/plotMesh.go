package readfiles

import (
	"github.com/notargets/avs/chart2d"
	graphics2D "github.com/notargets/avs/geometry"
	utils2 "github.com/notargets/avs/utils"

	"github.com/notargets/goadjoint/utils"
)

// PlotMesh renders the triangle mesh with the avs plotter. A non-nil field
// colors the vertices, for example with the adjoint density or the surface
// sensitivity mapped onto the mesh points.
func PlotMesh(VX, VY utils.Vector, EToV utils.Matrix, field []float64,
	plotPoints bool) (chart *chart2d.Chart2D) {
	var (
		points  []graphics2D.Point
		trimesh graphics2D.TriMesh
		K, _    = EToV.Dims()
	)
	points = make([]graphics2D.Point, VX.Len())
	for i := range points {
		points[i].X[0] = float32(VX.AtVec(i))
		points[i].X[1] = float32(VY.AtVec(i))
	}
	fMin, fMax := float32(0), float32(1)
	if field != nil {
		fMin, fMax = float32(field[0]), float32(field[0])
		for _, f := range field {
			if float32(f) < fMin {
				fMin = float32(f)
			}
			if float32(f) > fMax {
				fMax = float32(f)
			}
		}
		if fMax == fMin {
			fMax = fMin + 1
		}
	}
	trimesh.Triangles = make([]graphics2D.Triangle, K)
	colorMap := utils2.NewColorMap(fMin, fMax, 1)
	trimesh.Attributes = make([][]float32, K) // One attribute per vertex
	for k := 0; k < K; k++ {
		trimesh.Attributes[k] = make([]float32, 3)
		for i := 0; i < 3; i++ {
			node := int(EToV.At(k, i))
			trimesh.Triangles[k].Nodes[i] = int32(node)
			if field != nil {
				trimesh.Attributes[k][i] = float32(field[node])
			}
		}
	}
	trimesh.Geometry = points
	box := graphics2D.NewBoundingBox(trimesh.GetGeometry())
	box = box.Scale(1.5)
	chart = chart2d.NewChart2D(1920, 1920, box.XMin[0], box.XMax[0], box.XMin[1], box.XMax[1])
	chart.AddColorMap(colorMap)
	go chart.Plot()
	if err := chart.AddTriMesh("TriMesh", trimesh,
		chart2d.CrossGlyph, chart2d.Solid, utils.GetColor(utils.White)); err != nil {
		panic("unable to add graph series")
	}
	var ptsGlyph chart2d.GlyphType
	ptsGlyph = chart2d.NoGlyph
	if plotPoints {
		ptsGlyph = chart2d.CircleGlyph
	}
	if err := chart.AddSeries("Points", VX.DataP, VY.DataP,
		ptsGlyph, chart2d.NoLine, utils.GetColor(utils.Black)); err != nil {
		panic(err)
	}

	return
}
