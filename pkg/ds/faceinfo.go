package ds

import (
	"slices"
	"sync"
)

// EdgeRange is the portion of an edge lying inside a face.
type EdgeRange struct {
	Edge  int
	Range [2]float64
}

// FaceInfo collects what other arguments leave on a face: vertices inside it,
// edge portions lying in it, and section edges cut by other faces.
type FaceInfo struct {
	mu           sync.Mutex
	verticesIn   []int
	edgesIn      []EdgeRange
	sections     []int
	paveBlocksIn []*PaveBlock
	paveBlocksSc []*PaveBlock
}

// FaceInfo returns the info of face f, creating it on first use.
func (d *DS) FaceInfo(f int) *FaceInfo {
	d.fmu.Lock()
	defer d.fmu.Unlock()
	fi, ok := d.faceInfo[f]
	if !ok {
		fi = &FaceInfo{}
		d.faceInfo[f] = fi
	}
	return fi
}

// AddVertexIn records a vertex lying inside the face.
func (fi *FaceInfo) AddVertexIn(v int) {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	if !slices.Contains(fi.verticesIn, v) {
		fi.verticesIn = append(fi.verticesIn, v)
	}
}

// VerticesIn returns the vertices recorded inside the face.
func (fi *FaceInfo) VerticesIn() []int {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	return slices.Clone(fi.verticesIn)
}

// AddEdgeIn records an edge portion lying in the face.
func (fi *FaceInfo) AddEdgeIn(r EdgeRange) {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	fi.edgesIn = append(fi.edgesIn, r)
}

// EdgesIn returns the edge portions lying in the face.
func (fi *FaceInfo) EdgesIn() []EdgeRange {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	return slices.Clone(fi.edgesIn)
}

// AddSection records a section edge of the face.
func (fi *FaceInfo) AddSection(e int) {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	if !slices.Contains(fi.sections, e) {
		fi.sections = append(fi.sections, e)
	}
}

// Sections returns the section edges of the face.
func (fi *FaceInfo) Sections() []int {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	return slices.Clone(fi.sections)
}

// AddPaveBlockIn records a split block lying inside the face.
func (fi *FaceInfo) AddPaveBlockIn(pb *PaveBlock) {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	if !slices.Contains(fi.paveBlocksIn, pb) {
		fi.paveBlocksIn = append(fi.paveBlocksIn, pb)
	}
}

// PaveBlocksIn returns the split blocks lying inside the face.
func (fi *FaceInfo) PaveBlocksIn() []*PaveBlock {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	return slices.Clone(fi.paveBlocksIn)
}

// AddPaveBlockSc records a split block of a section edge of the face.
func (fi *FaceInfo) AddPaveBlockSc(pb *PaveBlock) {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	if !slices.Contains(fi.paveBlocksSc, pb) {
		fi.paveBlocksSc = append(fi.paveBlocksSc, pb)
	}
}

// PaveBlocksSc returns the split blocks of the section edges of the face.
func (fi *FaceInfo) PaveBlocksSc() []*PaveBlock {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	return slices.Clone(fi.paveBlocksSc)
}
