package network

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary condenses a network into a few figures for logs and reports.
type Summary struct {
	NumPores           int     `json:"numPores"`
	NumThroats         int     `json:"numThroats"`
	Isolated           int     `json:"isolated"`
	BoundaryPores      int     `json:"boundaryPores"`
	MeanCoordination   float64 `json:"meanCoordination"`
	TotalPoreVolume    float64 `json:"totalPoreVolume"`
	MeanPoreDiameter   float64 `json:"meanPoreDiameter"`
	StdPoreDiameter    float64 `json:"stdPoreDiameter"`
	MeanThroatDiameter float64 `json:"meanThroatDiameter"`
	StdThroatDiameter  float64 `json:"stdThroatDiameter"`
}

// Summarize computes a Summary. Missing attributes leave their figures at zero.
func (n *Network) Summarize() Summary {
	s := Summary{NumPores: n.NumPores(), NumThroats: n.NumThroats()}
	z := n.CoordinationNumbers()
	for _, v := range z {
		if v == 0 {
			s.Isolated++
		}
	}
	if len(z) > 0 {
		s.MeanCoordination = stat.Mean(z, nil)
	}
	if v := n.Pore.Scalars(PoreVolume); v != nil {
		s.TotalPoreVolume = floats.Sum(v)
	}
	if b := n.Pore.Scalars(PoreBoundary); b != nil {
		s.BoundaryPores = int(floats.Sum(b))
	}
	if d := n.Pore.Scalars(PoreInscribedDiameter); len(d) > 1 {
		s.MeanPoreDiameter, s.StdPoreDiameter = stat.MeanStdDev(d, nil)
	} else if len(d) == 1 {
		s.MeanPoreDiameter = d[0]
	}
	if d := n.Throat.Scalars(ThroatInscribedDiameter); len(d) > 1 {
		s.MeanThroatDiameter, s.StdThroatDiameter = stat.MeanStdDev(d, nil)
	} else if len(d) == 1 {
		s.MeanThroatDiameter = d[0]
	}
	return s
}
