package adjoint

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/goadjoint/InputParameters"
	"github.com/notargets/goadjoint/flow"
	"github.com/notargets/goadjoint/geometry"
	"github.com/notargets/goadjoint/types"
	"github.com/notargets/goadjoint/utils"
)

func TestRotationMatrixIdentity(t *testing.T) {
	rot := rotationMatrix([]float64{0, 0, 0})
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(t, want, rot[i][j], 1e-15)
		}
	}
}

// Without send-receive markers an exchange leaves the solution untouched.
func TestExchangeNoHalo(t *testing.T) {
	s := testCase(t, nil)
	for i := range s.Psi {
		s.Psi[i] = float64(i)
	}
	before := append([]float64{}, s.Psi...)
	s.ExchangeSolution()
	assert.Equal(t, before, s.Psi)
}

// exchangePartition builds one solver of a two-partition pair with the
// given send-receive markers appended to the square mesh.
func exchangePartition(t *testing.T, part int, exch *Exchanger,
	markers []geometry.Marker) *Solver {
	t.Helper()
	VX := utils.NewVector(5, []float64{0, 1, 1, 0, 0.5})
	VY := utils.NewVector(5, []float64{0, 0, 1, 1, 0.5})
	EToV := utils.NewMatrix(4, 3, []float64{
		0, 1, 4,
		1, 2, 4,
		2, 3, 4,
		3, 0, 4,
	})
	bcEdges := map[string][][2]int{
		"wall":     {{0, 1}},
		"farfield": {{1, 2}, {2, 3}, {3, 0}},
	}
	dm := geometry.NewDualMesh(VX, VY, EToV, bcEdges)
	dm.Markers = append(dm.Markers, markers...)
	ap := &InputParameters.AdjointParameters{}
	assert.NoError(t, ap.Parse([]byte("Minf: 0.8")))
	ap.CFL = 2
	fs := flow.NewFreeStream(dm.NDim, ap.Gamma, ap.Minf, ap.Alpha, ap.Beta, ap.Pinf, ap.Rhoinf)
	fsol := flow.NewFlowSolution(dm, fs, false)
	s, err := NewSolver(dm, fsol, fs, ap, part, exch)
	assert.NoError(t, err)
	return s
}

func haloMarker(label string, sendRecv int, nodes ...int) geometry.Marker {
	m := geometry.Marker{Label: label, Kind: types.BC_SendReceive, SendRecv: sendRecv}
	for _, n := range nodes {
		m.Vertices = append(m.Vertices, geometry.Vertex{Node: n})
	}
	return m
}

// Two send markers addressed to the same partner must land on that
// partner's matching receive markers in order, without mixing payloads.
func TestExchangeMultipleMarkersPerPartner(t *testing.T) {
	exch := NewExchanger(2)
	s0 := exchangePartition(t, 0, exch, []geometry.Marker{
		haloMarker("send_a", 2, 0, 1),
		haloMarker("send_b", 2, 2),
		haloMarker("recv_a", -2, 3),
		haloMarker("recv_b", -2, 4),
	})
	s1 := exchangePartition(t, 1, exch, []geometry.Marker{
		haloMarker("send_a", 1, 0),
		haloMarker("send_b", 1, 1),
		haloMarker("recv_a", -1, 2, 3),
		haloMarker("recv_b", -1, 4),
	})
	var (
		nVar = s0.NVar
		val  = func(part, node, comp int) float64 {
			return float64(part*1000 + node*10 + comp)
		}
	)
	for _, s := range []*Solver{s0, s1} {
		for iPoint := 0; iPoint < s.NPoint; iPoint++ {
			for iVar := 0; iVar < nVar; iVar++ {
				s.Psi[iPoint*nVar+iVar] = val(s.PartitionIndex, iPoint, iVar)
			}
		}
	}
	var wg sync.WaitGroup
	wg.Add(2)
	for _, s := range []*Solver{s0, s1} {
		go func(s *Solver) {
			defer wg.Done()
			s.ExchangeSolution()
		}(s)
	}
	wg.Wait()

	// Partition 1 halo: recv_a carries send_a's nodes 0,1 and recv_b
	// carries send_b's node 2
	wantFrom0 := map[int]int{2: 0, 3: 1, 4: 2}
	for node, donor := range wantFrom0 {
		for iVar := 0; iVar < nVar; iVar++ {
			assert.Equal(t, val(0, donor, iVar), s1.Psi[node*nVar+iVar])
		}
	}
	// Partition 0 halo mirrors partition 1's two single-node send markers
	wantFrom1 := map[int]int{3: 0, 4: 1}
	for node, donor := range wantFrom1 {
		for iVar := 0; iVar < nVar; iVar++ {
			assert.Equal(t, val(1, donor, iVar), s0.Psi[node*nVar+iVar])
		}
	}
	// Interior points keep their own values
	for iVar := 0; iVar < nVar; iVar++ {
		assert.Equal(t, val(0, 0, iVar), s0.Psi[iVar])
		assert.Equal(t, val(1, 0, iVar), s1.Psi[iVar])
	}
}
