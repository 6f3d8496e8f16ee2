package device

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/achilleasa/raybench/asset/scene"
	"github.com/achilleasa/raybench/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDevices(t *testing.T) {
	type spec struct {
		mask     DeviceType
		expNames []string
	}
	specs := []spec{
		{AllDevices, []string{"host", "unified"}},
		{CpuDevice, []string{"host"}},
		{UnifiedDevice, []string{"unified"}},
	}

	for specIndex, s := range specs {
		devices := GetDevices(s.mask)
		if len(devices) != len(s.expNames) {
			t.Fatalf("[spec %d] expected %d devices; got %d", specIndex, len(s.expNames), len(devices))
		}
		for i, dev := range devices {
			if dev.Name != s.expNames[i] {
				t.Fatalf("[spec %d] expected device %d to be %q; got %q", specIndex, i, s.expNames[i], dev.Name)
			}
		}
	}

	dev, err := GetDevices(AllDevices).Select("HOST")
	require.NoError(t, err)
	assert.Equal(t, CpuDevice, dev.Type)
	assert.Contains(t, dev.String(), "Type: CPU")

	_, err = GetDevices(AllDevices).Select("gpu")
	assert.True(t, errors.Is(err, ErrNoSuchDevice))
}

func TestBufferWriteData(t *testing.T) {
	dev := &Device{Name: "test", Type: CpuDevice}
	data := make([]float64, 128)
	data[3] = 42

	buf := dev.Buffer("test")
	require.NoError(t, buf.WriteData(data))

	expSize := len(data) * int(unsafe.Sizeof(data[0]))
	if buf.Size() != expSize {
		t.Fatalf("expected buffer size to be %d; got %d", expSize, buf.Size())
	}
	assert.Equal(t, expSize, dev.Used())

	// The device holds its own copy.
	copied := buf.Data().([]float64)
	data[3] = 0
	assert.Equal(t, float64(42), copied[3])

	buf.Release()
	assert.Equal(t, 0, dev.Used())
	assert.Nil(t, buf.Data())

	assert.True(t, errors.Is(buf.WriteData(42), ErrNotASlice))
}

func TestUnifiedBufferAliasesHostData(t *testing.T) {
	dev := &Device{Name: "test", Type: UnifiedDevice}
	data := []int32{1, 2, 3}

	buf := dev.Buffer("test")
	require.NoError(t, buf.WriteData(data))
	data[0] = 7
	assert.Equal(t, int32(7), buf.Data().([]int32)[0])
}

func TestBufferMemLimit(t *testing.T) {
	dev := &Device{Name: "test", Type: CpuDevice, MemLimit: 16}

	buf1 := dev.Buffer("a")
	require.NoError(t, buf1.WriteData(make([]uint32, 3)))

	buf2 := dev.Buffer("b")
	err := buf2.WriteData(make([]uint32, 2))
	assert.True(t, errors.Is(err, ErrOutOfMemory))

	buf1.Release()
	require.NoError(t, buf2.WriteData(make([]uint32, 4)))
}

func TestUploadAccel(t *testing.T) {
	accel := &scene.Accel{
		Kind:     scene.KindBVH,
		BvhNodes: make([]scene.BvhNode, 2),
		Vertices: make([]types.Vec4, 6),
	}

	dev := &Device{Name: "test", Type: CpuDevice}
	uploaded, err := UploadAccel(dev, accel)
	require.NoError(t, err)
	require.Len(t, uploaded.Buffers, 2)
	assert.Equal(t, accel.Digest(), uploaded.Accel.Digest())
	assert.Equal(t, 2*64+6*16, dev.Used())

	uploaded.Release()
	assert.Equal(t, 0, dev.Used())

	// A failed upload releases everything allocated so far.
	dev.MemLimit = 100
	_, err = UploadAccel(dev, accel)
	assert.True(t, errors.Is(err, ErrOutOfMemory))
	assert.Equal(t, 0, dev.Used())

	_, err = UploadAccel(dev, &scene.Accel{Kind: scene.KindGrid})
	assert.Error(t, err)
}
