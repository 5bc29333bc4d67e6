package tensor

import (
	"github.com/samcharles93/pseudocpp/internal/safetensors"
)

// LoadSafetensorsMat loads a 2D tensor and checks it is r x c.
func LoadSafetensorsMat(st *safetensors.File, name string, r, c int) (*Mat, error) {
	data, err := st.ReadShaped(name, r, c)
	if err != nil {
		return nil, err
	}
	m := NewMatFromData(r, c, data)
	return &m, nil
}

// LoadSafetensorsVec loads a 1D tensor and checks it has n elements.
func LoadSafetensorsVec(st *safetensors.File, name string, n int) ([]float32, error) {
	return st.ReadShaped(name, n)
}
