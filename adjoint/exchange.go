package adjoint

import (
	"math"

	"github.com/notargets/goadjoint/geometry"
	"github.com/notargets/goadjoint/types"
	"github.com/notargets/goadjoint/utils"
)

// Exchanger synchronizes per-point quantities across the send-receive
// markers of the partitions. One message per marker; the first two buffer
// slots carry the sending partition and the marker ordinal within that
// partner pair, so the receiver can match its counterpart marker. A barrier
// brackets every exchange so all partitions finish posting before any
// receives.
type Exchanger struct {
	MailBox *utils.MailBox[[]float64]
	Barrier *utils.Barrier
}

func NewExchanger(np int) *Exchanger {
	return &Exchanger{
		MailBox: utils.NewMailBox[[]float64](np),
		Barrier: utils.NewBarrier(np),
	}
}

// rotationMatrix builds the periodic rotation, x-axis then y-axis then
// z-axis, transposed relative to the preprocessing convention.
func rotationMatrix(angles []float64) (rot [3][3]float64) {
	var theta, phi, psi float64
	if len(angles) > 0 {
		theta = angles[0]
	}
	if len(angles) > 1 {
		phi = angles[1]
	}
	if len(angles) > 2 {
		psi = angles[2]
	}
	cosTheta, sinTheta := math.Cos(theta), math.Sin(theta)
	cosPhi, sinPhi := math.Cos(phi), math.Sin(phi)
	cosPsi, sinPsi := math.Cos(psi), math.Sin(psi)
	rot[0][0] = cosPhi * cosPsi
	rot[1][0] = sinTheta*sinPhi*cosPsi - cosTheta*sinPsi
	rot[2][0] = cosTheta*sinPhi*cosPsi + sinTheta*sinPsi
	rot[0][1] = cosPhi * sinPsi
	rot[1][1] = sinTheta*sinPhi*sinPsi + cosTheta*cosPsi
	rot[2][1] = cosTheta*sinPhi*sinPsi - sinTheta*cosPsi
	rot[0][2] = -sinPhi
	rot[1][2] = sinTheta * cosPhi
	rot[2][2] = cosTheta * cosPhi
	return
}

func (s *Solver) periodicAngles(rotationType int) []float64 {
	if rotationType >= 0 && rotationType < len(s.IP.PeriodicAngles) {
		return s.IP.PeriodicAngles[rotationType]
	}
	return []float64{0, 0, 0}
}

// exchangeVector sends nComp values per vertex for every send marker and
// stores the received buffers through the store callback. Buffer layout is
// iVar*nVertex+iVertex inside each marker message.
func (s *Solver) exchangeVector(nComp int,
	load func(iPoint, iComp int) float64,
	store func(vtx *geometry.Vertex, buf []float64, nVertex int)) {
	var (
		mb   = s.Exch.MailBox
		me   = s.PartitionIndex
		bar  = s.Exch.Barrier
		mesh = s.Mesh
	)
	sendOrd := map[int]int{}
	for _, marker := range mesh.Markers {
		if marker.Kind != types.BC_SendReceive || marker.SendRecv <= 0 {
			continue
		}
		var (
			sendTo  = marker.SendRecv - 1
			nVertex = len(marker.Vertices)
			buf     = make([]float64, 2+nComp*nVertex)
		)
		// header: sending partition plus the ordinal of this marker among
		// the markers addressed to the same partition, so several markers
		// per partner pair up with their counterparts on the receive side
		buf[0] = float64(me)
		buf[1] = float64(sendOrd[sendTo])
		sendOrd[sendTo]++
		for iVertex, vtx := range marker.Vertices {
			for iComp := 0; iComp < nComp; iComp++ {
				buf[2+iComp*nVertex+iVertex] = load(vtx.Node, iComp)
			}
		}
		mb.PostMessage(me, sendTo, buf)
	}
	mb.DeliverMyMessages(me)
	bar.Wait()
	mb.ReceiveMyMessages(me)
	received := map[[2]int][]float64{}
	for _, msg := range mb.ReceiveMsgQs[me].Cells() {
		received[[2]int{int(msg[0]), int(msg[1])}] = msg[2:]
	}
	mb.ClearMyMessages(me)
	recvOrd := map[int]int{}
	for im := range mesh.Markers {
		marker := &mesh.Markers[im]
		if marker.Kind != types.BC_SendReceive || marker.SendRecv >= 0 {
			continue
		}
		var (
			from    = -marker.SendRecv - 1
			nVertex = len(marker.Vertices)
			buf     = received[[2]int{from, recvOrd[from]}]
		)
		recvOrd[from]++
		if buf == nil {
			continue
		}
		for iVertex := range marker.Vertices {
			vtx := &marker.Vertices[iVertex]
			vtxBuf := make([]float64, nComp)
			for iComp := 0; iComp < nComp; iComp++ {
				vtxBuf[iComp] = buf[iComp*nVertex+iVertex]
			}
			store(vtx, vtxBuf, nVertex)
		}
	}
	bar.Wait()
}

// ExchangeSolution synchronizes the adjoint state on the halo points,
// rotating the momentum components of periodic vertices.
func (s *Solver) ExchangeSolution() {
	nVar := s.NVar
	s.exchangeVector(nVar,
		func(iPoint, iComp int) float64 { return s.Psi[iPoint*nVar+iComp] },
		func(vtx *geometry.Vertex, buf []float64, _ int) {
			s.rotateMomentum(vtx.RotationType, buf)
			copy(s.PsiAt(vtx.Node), buf)
		})
}

func (s *Solver) rotateMomentum(rotationType int, v []float64) {
	rot := rotationMatrix(s.periodicAngles(rotationType))
	if s.NDim == 2 {
		m1 := rot[0][0]*v[1] + rot[0][1]*v[2]
		m2 := rot[1][0]*v[1] + rot[1][1]*v[2]
		v[1], v[2] = m1, m2
		return
	}
	m1 := rot[0][0]*v[1] + rot[0][1]*v[2] + rot[0][2]*v[3]
	m2 := rot[1][0]*v[1] + rot[1][1]*v[2] + rot[1][2]*v[3]
	m3 := rot[2][0]*v[1] + rot[2][1]*v[2] + rot[2][2]*v[3]
	v[1], v[2], v[3] = m1, m2, m3
}

func (s *Solver) ExchangeUndividedLaplacian() {
	nVar := s.NVar
	s.exchangeVector(nVar,
		func(iPoint, iComp int) float64 { return s.UndivLapl[iPoint*nVar+iComp] },
		func(vtx *geometry.Vertex, buf []float64, _ int) {
			s.rotateMomentum(vtx.RotationType, buf)
			copy(s.UndivLapl[vtx.Node*nVar:(vtx.Node+1)*nVar], buf)
		})
}

func (s *Solver) ExchangeSensor() {
	s.exchangeVector(1,
		func(iPoint, _ int) float64 { return s.Sensor[iPoint] },
		func(vtx *geometry.Vertex, buf []float64, _ int) {
			s.Sensor[vtx.Node] = buf[0]
		})
}

func (s *Solver) ExchangeLimiter() {
	nVar := s.NVar
	s.exchangeVector(nVar,
		func(iPoint, iComp int) float64 { return s.Limiter[iPoint*nVar+iComp] },
		func(vtx *geometry.Vertex, buf []float64, _ int) {
			copy(s.Limiter[vtx.Node*nVar:(vtx.Node+1)*nVar], buf)
		})
}

// ExchangeGradient moves the full nVar x nDim gradient per vertex and
// rotates every variable's spatial components.
func (s *Solver) ExchangeGradient() {
	var (
		nVar = s.NVar
		nDim = s.NDim
	)
	s.exchangeVector(nVar*nDim,
		func(iPoint, iComp int) float64 {
			iDim, iVar := iComp/nVar, iComp%nVar
			return s.Gradient[(iPoint*nVar+iVar)*nDim+iDim]
		},
		func(vtx *geometry.Vertex, buf []float64, _ int) {
			rot := rotationMatrix(s.periodicAngles(vtx.RotationType))
			grad := s.GradientAt(vtx.Node)
			for iVar := 0; iVar < nVar; iVar++ {
				for iDim := 0; iDim < nDim; iDim++ {
					var g float64
					for jDim := 0; jDim < nDim; jDim++ {
						g += rot[iDim][jDim] * buf[jDim*nVar+iVar]
					}
					grad[iVar*nDim+iDim] = g
				}
			}
		})
}
