package extraction

import "porenet/internal/models"

type unionFind struct {
	parent []int
	rank   []uint8
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{parent: make([]int, n), rank: make([]uint8, n)}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(x, y int) {
	rx, ry := u.find(x), u.find(y)
	if rx == ry {
		return
	}
	switch {
	case u.rank[rx] < u.rank[ry]:
		u.parent[rx] = ry
	case u.rank[rx] > u.rank[ry]:
		u.parent[ry] = rx
	default:
		u.parent[ry] = rx
		u.rank[rx]++
	}
}

// splitPatches groups the faces of one region pair into connected contact
// patches. Two faces belong to the same patch when their voxels touch through
// a face on the same side of the boundary. Patches are ordered by their first
// face.
func splitPatches(lbl *models.Labels, faces []face) [][]face {
	if len(faces) <= 1 {
		return [][]face{faces}
	}
	id := make(map[int]int, 2*len(faces))
	slot := func(v int) int {
		if s, ok := id[v]; ok {
			return s
		}
		id[v] = len(id)
		return id[v]
	}
	for _, f := range faces {
		slot(f.p)
		slot(f.q)
	}

	u := newUnionFind(len(id))
	for _, f := range faces {
		u.union(id[f.p], id[f.q])
	}
	var buf []int
	for v, s := range id {
		buf = lbl.FaceNeighbors(v, buf[:0])
		for _, w := range buf {
			if t, ok := id[w]; ok && lbl.Data[w] == lbl.Data[v] {
				u.union(s, t)
			}
		}
	}

	index := map[int]int{}
	var out [][]face
	for _, f := range faces {
		root := u.find(id[f.p])
		k, ok := index[root]
		if !ok {
			k = len(out)
			index[root] = k
			out = append(out, nil)
		}
		out[k] = append(out[k], f)
	}
	return out
}
