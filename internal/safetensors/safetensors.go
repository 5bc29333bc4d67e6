// Package safetensors reads and writes the safetensors weight format.
package safetensors

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"slices"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ErrShapeMismatch is returned when a tensor does not have the shape the
// caller expects.
var ErrShapeMismatch = errors.New("tensor shape mismatch")

const (
	headerLenSize = 8
	maxHeaderSize = 100 << 20
	metadataKey   = "__metadata__"
)

type TensorInfo struct {
	DType string
	Shape []int
	Start int64
	End   int64
}

// File is an opened safetensors file. Data holds the tensor payload that
// follows the header, either memory-mapped or read into memory.
type File struct {
	Path     string
	Tensors  map[string]TensorInfo
	Metadata map[string]string
	Size     int64

	data    []byte
	mapping []byte
}

type tensorHeader struct {
	DType       string  `json:"dtype"`
	Shape       []int   `json:"shape"`
	DataOffsets []int64 `json:"data_offsets"`
}

// Open maps path read-only and parses its header. If mmap is unavailable it
// falls back to reading the file into memory. Close releases the mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := stat.Size()
	if size < headerLenSize || size > int64(int(^uint(0)>>1)) {
		return nil, errors.Errorf("%s: file size %d is not a valid safetensors file", path, size)
	}

	var (
		data   []byte
		mapped bool
	)
	data, err = unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		mapped = true
	} else {
		data = make([]byte, size)
		if _, err := f.ReadAt(data, 0); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrapf(err, "read %s", path)
		}
	}

	sf, err := parse(path, data)
	if err != nil {
		if mapped {
			_ = unix.Munmap(data)
		}
		return nil, err
	}
	if mapped {
		sf.mapping = data
	}
	return sf, nil
}

func parse(path string, data []byte) (*File, error) {
	headerLen := binary.LittleEndian.Uint64(data[:headerLenSize])
	if headerLen > maxHeaderSize || headerLen > uint64(len(data)-headerLenSize) {
		return nil, errors.Errorf("%s: header length %d exceeds file", path, headerLen)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data[headerLenSize:headerLenSize+headerLen], &raw); err != nil {
		return nil, errors.Wrapf(err, "%s: parse header", path)
	}

	sf := &File{
		Path:    path,
		Tensors: make(map[string]TensorInfo, len(raw)),
		Size:    int64(len(data)),
		data:    data[headerLenSize+headerLen:],
	}
	if meta, ok := raw[metadataKey]; ok {
		if err := json.Unmarshal(meta, &sf.Metadata); err != nil {
			return nil, errors.Wrapf(err, "%s: parse metadata", path)
		}
		delete(raw, metadataKey)
	}
	for name, msg := range raw {
		var th tensorHeader
		if err := json.Unmarshal(msg, &th); err != nil {
			return nil, errors.Wrapf(err, "parse tensor %s", name)
		}
		if len(th.DataOffsets) != 2 {
			return nil, errors.Errorf("tensor %s: invalid data_offsets", name)
		}
		sf.Tensors[name] = TensorInfo{
			DType: th.DType,
			Shape: th.Shape,
			Start: th.DataOffsets[0],
			End:   th.DataOffsets[1],
		}
	}
	return sf, nil
}

// Close releases the memory mapping, if any. Slices returned by ReadTensor
// must not be used afterwards.
func (f *File) Close() error {
	if f.mapping == nil {
		return nil
	}
	m := f.mapping
	f.mapping = nil
	f.data = nil
	return unix.Munmap(m)
}

func (f *File) Tensor(name string) (TensorInfo, bool) {
	t, ok := f.Tensors[name]
	return t, ok
}

// Names returns the tensor names in sorted order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Tensors))
	for name := range f.Tensors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ReadTensor returns the raw bytes of a tensor. The slice aliases the file
// data and is only valid until Close.
func (f *File) ReadTensor(name string) ([]byte, TensorInfo, error) {
	t, ok := f.Tensors[name]
	if !ok {
		return nil, TensorInfo{}, errors.Errorf("tensor not found: %s", name)
	}
	if t.End < t.Start || t.Start < 0 {
		return nil, TensorInfo{}, errors.Errorf("tensor %s: invalid offsets", name)
	}
	if t.End > int64(len(f.data)) {
		return nil, TensorInfo{}, errors.Errorf("tensor %s: offsets past end of data (%d > %d)", name, t.End, len(f.data))
	}
	return f.data[t.Start:t.End], t, nil
}

func (f *File) ReadTensorF32(name string) ([]float32, TensorInfo, error) {
	raw, info, err := f.ReadTensor(name)
	if err != nil {
		return nil, TensorInfo{}, err
	}
	n, err := numElements(info.Shape)
	if err != nil {
		return nil, TensorInfo{}, errors.Wrapf(err, "tensor %s", name)
	}
	switch info.DType {
	case "F32":
		if len(raw) != n*4 {
			return nil, TensorInfo{}, errors.Errorf("tensor %s: invalid f32 data size", name)
		}
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		return out, info, nil
	case "BF16":
		if len(raw) != n*2 {
			return nil, TensorInfo{}, errors.Errorf("tensor %s: invalid bf16 data size", name)
		}
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			out[i] = bf16ToF32(binary.LittleEndian.Uint16(raw[i*2:]))
		}
		return out, info, nil
	case "F16":
		if len(raw) != n*2 {
			return nil, TensorInfo{}, errors.Errorf("tensor %s: invalid f16 data size", name)
		}
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			out[i] = fp16ToFloat32(binary.LittleEndian.Uint16(raw[i*2:]))
		}
		return out, info, nil
	default:
		return nil, TensorInfo{}, errors.Errorf("unsupported dtype %s", info.DType)
	}
}

// ReadShaped reads a tensor as float32 and checks that its shape equals want.
func (f *File) ReadShaped(name string, want ...int) ([]float32, error) {
	info, ok := f.Tensors[name]
	if !ok {
		return nil, errors.Errorf("tensor not found: %s", name)
	}
	if !slices.Equal(info.Shape, want) {
		return nil, errors.Wrapf(ErrShapeMismatch, "tensor %s: got %v, want %v", name, info.Shape, want)
	}
	out, _, err := f.ReadTensorF32(name)
	return out, err
}

func numElements(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, errors.New("empty shape")
	}
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return 0, errors.Errorf("invalid dim %d", d)
		}
		if n > (int(^uint(0)>>1))/d {
			return 0, errors.New("tensor too large")
		}
		n *= d
	}
	return n, nil
}

func bf16ToF32(u uint16) float32 {
	return math.Float32frombits(uint32(u) << 16)
}

func fp16ToFloat32(h uint16) float32 {
	sign := uint32(h>>15) & 0x1
	exp := uint32(h>>10) & 0x1F
	frac := uint32(h & 0x3FF)
	var f uint32
	switch exp {
	case 0:
		if frac == 0 {
			f = sign << 31
		} else {
			e := uint32(127 - 15 + 1)
			for (frac & 0x400) == 0 {
				frac <<= 1
				e--
			}
			frac &= 0x3FF
			f = (sign << 31) | (e << 23) | (frac << 13)
		}
	case 0x1F:
		f = (sign << 31) | 0x7F800000 | (frac << 13)
	default:
		e := exp + (127 - 15)
		f = (sign << 31) | (e << 23) | (frac << 13)
	}
	return math.Float32frombits(f)
}
