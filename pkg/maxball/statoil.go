package maxball

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"porenet/pkg/errs"
	"porenet/pkg/network"
)

// Reservoir indices used in link and node files.
const (
	inletReservoir  = -1
	outletReservoir = 0
)

// outputSuffixes are the Statoil files written by the extractor.
var outputSuffixes = []string{"_node1.dat", "_node2.dat", "_link1.dat", "_link2.dat"}

type statoilPore struct {
	x, y, z       float64
	inlet, outlet bool
	volume        float64
	radius        float64
	shapeFactor   float64
}

type statoilLink struct {
	p1, p2      int // 1-based, or a reservoir index
	radius      float64
	shapeFactor float64
	total       float64
	length      float64
	volume      float64
}

// readRows returns the whitespace separated fields of every non-blank line.
func readRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var rows [][]string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if fields := strings.Fields(sc.Text()); len(fields) > 0 {
			rows = append(rows, fields)
		}
	}
	return rows, sc.Err()
}

type fieldReader struct {
	file string
	line int
	err  error
}

func (r *fieldReader) number(fields []string, i int) float64 {
	if r.err != nil {
		return 0
	}
	if i < 0 || i >= len(fields) {
		r.err = fmt.Errorf("%s line %d: expected at least %d fields, got %d", r.file, r.line, i+1, len(fields))
		return 0
	}
	v, err := strconv.ParseFloat(fields[i], 64)
	if err != nil {
		r.err = fmt.Errorf("%s line %d: %w", r.file, r.line, err)
	}
	return v
}

func (r *fieldReader) integer(fields []string, i int) int {
	v := r.number(fields, i)
	if r.err == nil && v != math.Trunc(v) {
		r.err = fmt.Errorf("%s line %d: field %d is not an integer", r.file, r.line, i+1)
	}
	return int(v)
}

// parseStatoil reads {prefix}_node1/_node2/_link1/_link2.dat from dir.
func parseStatoil(dir, prefix string) ([]statoilPore, []statoilLink, error) {
	const op = "maxball.parseStatoil"
	load := func(suffix string) ([][]string, *fieldReader, error) {
		name := prefix + suffix
		rows, err := readRows(filepath.Join(dir, name))
		if err != nil {
			return nil, nil, errs.Wrap(errs.Parse, op, err)
		}
		if len(rows) == 0 {
			return nil, nil, errs.New(errs.Parse, op, "%s is empty", name)
		}
		return rows, &fieldReader{file: name}, nil
	}

	// node1: "Np Lx Ly Lz", then "id x y z cn n1..ncn inlet outlet t1..tcn"
	rows, r, err := load("_node1.dat")
	if err != nil {
		return nil, nil, err
	}
	r.line = 1
	np := r.integer(rows[0], 0)
	if r.err == nil && (np < 0 || len(rows)-1 < np) {
		r.err = fmt.Errorf("%s: header announces %d pores, found %d rows", r.file, np, len(rows)-1)
	}
	if r.err != nil {
		return nil, nil, errs.Wrap(errs.Parse, op, r.err)
	}
	pores := make([]statoilPore, np)
	for i := 0; i < np; i++ {
		row := rows[i+1]
		r.line = i + 2
		if id := r.integer(row, 0); r.err == nil && id != i+1 {
			r.err = fmt.Errorf("%s line %d: pore id %d out of order", r.file, r.line, id)
		}
		p := &pores[i]
		p.x, p.y, p.z = r.number(row, 1), r.number(row, 2), r.number(row, 3)
		cn := r.integer(row, 4)
		p.inlet = r.integer(row, 5+cn) != 0
		p.outlet = r.integer(row, 6+cn) != 0
		if r.err != nil {
			return nil, nil, errs.Wrap(errs.Parse, op, r.err)
		}
	}

	// node2: "id volume radius shapeFactor clay"
	rows, r, err = load("_node2.dat")
	if err != nil {
		return nil, nil, err
	}
	if len(rows) < np {
		return nil, nil, errs.New(errs.Parse, op, "%s has %d rows for %d pores", r.file, len(rows), np)
	}
	for i := 0; i < np; i++ {
		r.line = i + 1
		p := &pores[i]
		p.volume = r.number(rows[i], 1)
		p.radius = r.number(rows[i], 2)
		p.shapeFactor = r.number(rows[i], 3)
	}
	if r.err != nil {
		return nil, nil, errs.Wrap(errs.Parse, op, r.err)
	}

	// link1: "Nt", then "id p1 p2 radius shapeFactor totalLength"
	rows, r, err = load("_link1.dat")
	if err != nil {
		return nil, nil, err
	}
	r.line = 1
	nt := r.integer(rows[0], 0)
	if r.err == nil && (nt < 0 || len(rows)-1 < nt) {
		r.err = fmt.Errorf("%s: header announces %d throats, found %d rows", r.file, nt, len(rows)-1)
	}
	if r.err != nil {
		return nil, nil, errs.Wrap(errs.Parse, op, r.err)
	}
	links := make([]statoilLink, nt)
	for i := 0; i < nt; i++ {
		row := rows[i+1]
		r.line = i + 2
		l := &links[i]
		l.p1, l.p2 = r.integer(row, 1), r.integer(row, 2)
		l.radius, l.shapeFactor, l.total = r.number(row, 3), r.number(row, 4), r.number(row, 5)
		for _, p := range []int{l.p1, l.p2} {
			if r.err == nil && (p < inletReservoir || p > np) {
				r.err = fmt.Errorf("%s line %d: pore %d out of range", r.file, r.line, p)
			}
		}
	}
	if r.err != nil {
		return nil, nil, errs.Wrap(errs.Parse, op, r.err)
	}

	// link2: "id p1 p2 p1Length p2Length throatLength volume clay"
	rows, r, err = load("_link2.dat")
	if err != nil {
		return nil, nil, err
	}
	if len(rows) < nt {
		return nil, nil, errs.New(errs.Parse, op, "%s has %d rows for %d throats", r.file, len(rows), nt)
	}
	for i := 0; i < nt; i++ {
		r.line = i + 1
		links[i].length = r.number(rows[i], 5)
		links[i].volume = r.number(rows[i], 6)
	}
	if r.err != nil {
		return nil, nil, errs.Wrap(errs.Parse, op, r.err)
	}
	return pores, links, nil
}

// toNetwork maps parsed Statoil records onto the standard schema. Links to the
// reservoirs become pore flags; repeated pore pairs keep their first link.
func toNetwork(pores []statoilPore, links []statoilLink) (*network.Network, error) {
	const op = "maxball.toNetwork"
	np := len(pores)
	inlet := make([]float64, np)
	outlet := make([]float64, np)
	for i, p := range pores {
		if p.inlet {
			inlet[i] = 1
		}
		if p.outlet {
			outlet[i] = 1
		}
	}

	var conns [][2]int
	var kept []statoilLink
	seen := map[[2]int]bool{}
	for _, l := range links {
		a, b := l.p1, l.p2
		if a > b {
			a, b = b, a
		}
		switch {
		case a == inletReservoir && b > 0:
			inlet[b-1] = 1
			continue
		case a == outletReservoir && b > 0:
			outlet[b-1] = 1
			continue
		case a <= 0:
			// reservoir to reservoir
			continue
		}
		k := [2]int{a - 1, b - 1}
		if a == b || seen[k] {
			continue
		}
		seen[k] = true
		conns = append(conns, k)
		kept = append(kept, l)
	}

	coords := make([]float64, 0, 3*np)
	vol := make([]float64, np)
	insd := make([]float64, np)
	eqd := make([]float64, np)
	sf := make([]float64, np)
	boundary := make([]float64, np)
	for i, p := range pores {
		coords = append(coords, p.x, p.y, p.z)
		vol[i] = p.volume
		insd[i] = 2 * p.radius
		eqd[i] = math.Cbrt(6 * p.volume / math.Pi)
		sf[i] = p.shapeFactor
		if inlet[i] == 1 || outlet[i] == 1 {
			boundary[i] = 1
		}
	}
	pore := network.NewTable("pore", np)
	pore.MustSet(network.PoreCoords, network.Vectors(3, coords))
	pore.MustSet(network.PoreVolume, network.Scalars(vol))
	pore.MustSet(network.PoreInscribedDiameter, network.Scalars(insd))
	pore.MustSet(network.PoreEquivalentDiameter, network.Scalars(eqd))
	pore.MustSet(network.PoreShapeFactor, network.Scalars(sf))
	pore.MustSet(network.PoreInlet, network.Scalars(inlet))
	pore.MustSet(network.PoreOutlet, network.Scalars(outlet))
	pore.MustSet(network.PoreBoundary, network.Scalars(boundary))

	nt := len(kept)
	tinsd := make([]float64, nt)
	tsf := make([]float64, nt)
	area := make([]float64, nt)
	teqd := make([]float64, nt)
	total := make([]float64, nt)
	conduit := make([]float64, nt)
	tvol := make([]float64, nt)
	for i, l := range kept {
		tinsd[i] = 2 * l.radius
		tsf[i] = l.shapeFactor
		if l.shapeFactor > 0 {
			// G = A / P^2 with the inscribed radius
			area[i] = l.radius * l.radius / (4 * l.shapeFactor)
		}
		teqd[i] = math.Sqrt(4 * area[i] / math.Pi)
		total[i] = l.total
		conduit[i] = l.length
		tvol[i] = l.volume
	}
	throat := network.NewTable("throat", nt)
	throat.MustSet(network.ThroatInscribedDiameter, network.Scalars(tinsd))
	throat.MustSet(network.ThroatShapeFactor, network.Scalars(tsf))
	throat.MustSet(network.ThroatCrossSectionalArea, network.Scalars(area))
	throat.MustSet(network.ThroatEquivalentDiameter, network.Scalars(teqd))
	throat.MustSet(network.ThroatTotalLength, network.Scalars(total))
	throat.MustSet(network.ThroatConduitLength, network.Scalars(conduit))
	throat.MustSet(network.ThroatVolume, network.Scalars(tvol))

	net, err := network.New(pore, throat, conns)
	if err != nil {
		return nil, errs.Wrap(errs.Parse, op, err)
	}
	if err := net.Validate(); err != nil {
		return nil, errs.Wrap(errs.Parse, op, err)
	}
	return net, nil
}
