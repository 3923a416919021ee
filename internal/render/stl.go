package render

import (
	"encoding/binary"
	"errors"
	"io"

	sdfrender "github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"

	"github.com/funvibe/solidscript/internal/geometry"
)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 200

// WriteSTL meshes the solid payloads of nodes with marching cubes and
// writes one binary STL to w. The scene is meshed as a single union so
// overlapping solids produce a watertight surface. Nodes without a
// solid payload are skipped; if nothing remains an error is returned
// rather than an empty file. cells <= 0 selects the default
// resolution. Returns the number of triangles written.
func WriteSTL(w io.Writer, nodes []*geometry.Node, cells int) (int, error) {
	if cells <= 0 {
		cells = defaultMeshCells
	}

	solids := make([]sdf.SDF3, 0, len(nodes))
	for _, node := range nodes {
		if node == nil || node.Payload == nil || node.Payload.Solid == nil {
			continue
		}
		solids = append(solids, node.Payload.Solid)
	}
	if len(solids) == 0 {
		return 0, errors.New("no solid geometry to mesh")
	}
	combined := solids[0]
	if len(solids) > 1 {
		combined = sdf.Union3D(solids...)
	}

	renderer := sdfrender.NewMarchingCubesUniform(cells)
	triangles := sdfrender.ToTriangles(combined, renderer)

	// 80-byte header, uint32 triangle count, then 50 bytes per
	// triangle. The header must not start with "solid" or readers
	// would sniff the file as ASCII STL.
	header := make([]byte, 80)
	copy(header, "made with solidscript")
	if _, err := w.Write(header); err != nil {
		return 0, err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(triangles))); err != nil {
		return 0, err
	}

	record := make([]float32, 0, 12)
	for _, tri := range triangles {
		n := tri.Normal()
		record = record[:0]
		record = append(record, float32(n.X), float32(n.Y), float32(n.Z))
		for j := 0; j < 3; j++ {
			v := tri[j]
			record = append(record, float32(v.X), float32(v.Y), float32(v.Z))
		}
		if err := binary.Write(w, binary.LittleEndian, record); err != nil {
			return 0, err
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(0)); err != nil {
			return 0, err
		}
	}
	return len(triangles), nil
}
