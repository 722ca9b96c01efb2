package main

// txStride is the number of float32 values per packed array element:
//
//	0-2   position
//	3-5   normal
//	6-8   tangent (element x-axis)
//	9     amplitude
//	10    phase
//	11    directivity phase, linear coefficient
//	12-14 directivity amplitude, polynomial coefficients c0..c2
//	15    enabled flag
const txStride = 16

// txElement is one transducer of the array. Directivity is a polynomial in
// the angle off the element normal.
type txElement struct {
	Position           vec3
	Normal             vec3
	Tangent            vec3
	Amplitude          float64
	Phase              float64
	DirectivityPhaseC1 float64
	DirectivityAmp     [3]float64
	Enabled            bool
}

// txArray is the ordered element list handed to the kernels. The core
// never mutates it.
type txArray struct {
	Name     string
	Elements []txElement
}

// elementDrive is a per-element amplitude/phase setting, as produced by the
// solvers.
type elementDrive struct {
	Amplitude float64
	Phase     float64
}

// Len returns the element count.
func (a *txArray) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Elements)
}

// pack lays the elements out in the device record format.
func (a *txArray) pack() []float32 {
	if a == nil {
		return nil
	}
	buf := make([]float32, len(a.Elements)*txStride)
	for i, e := range a.Elements {
		rec := buf[i*txStride : (i+1)*txStride]
		rec[0], rec[1], rec[2] = float32(e.Position.X), float32(e.Position.Y), float32(e.Position.Z)
		rec[3], rec[4], rec[5] = float32(e.Normal.X), float32(e.Normal.Y), float32(e.Normal.Z)
		rec[6], rec[7], rec[8] = float32(e.Tangent.X), float32(e.Tangent.Y), float32(e.Tangent.Z)
		rec[9] = float32(e.Amplitude)
		rec[10] = float32(e.Phase)
		rec[11] = float32(e.DirectivityPhaseC1)
		rec[12] = float32(e.DirectivityAmp[0])
		rec[13] = float32(e.DirectivityAmp[1])
		rec[14] = float32(e.DirectivityAmp[2])
		if e.Enabled {
			rec[15] = 1
		}
	}
	return buf
}

// withDrive returns a copy of the array with amplitude and phase replaced
// element by element.
func (a *txArray) withDrive(drive []elementDrive) (*txArray, error) {
	if len(drive) != a.Len() {
		return nil, &ShapeMismatchError{Kernel: "drive", What: "element count", Want: a.Len(), Got: len(drive)}
	}
	out := &txArray{Name: a.Name, Elements: make([]txElement, len(a.Elements))}
	copy(out.Elements, a.Elements)
	for i, d := range drive {
		out.Elements[i].Amplitude = d.Amplitude
		out.Elements[i].Phase = d.Phase
	}
	return out, nil
}

// newOmniElement returns an enabled element at p facing +z with flat
// directivity.
func newOmniElement(p vec3, amplitude float64) txElement {
	return txElement{
		Position:       p,
		Normal:         vec3{Z: 1},
		Tangent:        vec3{X: 1},
		Amplitude:      amplitude,
		DirectivityAmp: [3]float64{1, 0, 0},
		Enabled:        true,
	}
}

// newRectArray builds a flat nx by ny array in the z=0 plane, centred on
// the origin, all elements driven in phase at unit amplitude.
func newRectArray(nx, ny int, pitch float64) *txArray {
	arr := &txArray{Name: "rect", Elements: make([]txElement, 0, nx*ny)}
	ox := -0.5 * float64(nx-1) * pitch
	oy := -0.5 * float64(ny-1) * pitch
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			p := vec3{X: ox + float64(i)*pitch, Y: oy + float64(j)*pitch}
			arr.Elements = append(arr.Elements, newOmniElement(p, 1))
		}
	}
	return arr
}
