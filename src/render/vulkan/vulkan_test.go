package vulkan

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/epsilon/src/render"
)

func TestPick(t *testing.T) {
	_, ok := pick(nil)
	require.False(t, ok)

	for _, tc := range []struct {
		name  string
		cands []candidate
		want  string
	}{
		{"discrete first", []candidate{
			{name: "cpu", kind: vk.PhysicalDeviceTypeCpu},
			{name: "igpu", kind: vk.PhysicalDeviceTypeIntegratedGpu},
			{name: "dgpu", kind: vk.PhysicalDeviceTypeDiscreteGpu},
		}, "dgpu"},
		{"integrated over virtual", []candidate{
			{name: "virtual", kind: vk.PhysicalDeviceTypeVirtualGpu},
			{name: "igpu", kind: vk.PhysicalDeviceTypeIntegratedGpu},
		}, "igpu"},
		{"virtual over cpu", []candidate{
			{name: "cpu", kind: vk.PhysicalDeviceTypeCpu},
			{name: "virtual", kind: vk.PhysicalDeviceTypeVirtualGpu},
		}, "virtual"},
		{"cpu over other", []candidate{
			{name: "other", kind: vk.PhysicalDeviceTypeOther},
			{name: "cpu", kind: vk.PhysicalDeviceTypeCpu},
		}, "cpu"},
		{"ties keep enumeration order", []candidate{
			{name: "first", kind: vk.PhysicalDeviceTypeDiscreteGpu},
			{name: "second", kind: vk.PhysicalDeviceTypeDiscreteGpu},
		}, "first"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, ok := pick(tc.cands)
			require.True(t, ok)
			require.Equal(t, tc.want, c.name)
		})
	}
}

func spirv(extra ...uint32) []byte {
	code := binary.LittleEndian.AppendUint32(nil, spirvMagic)
	for _, w := range extra {
		code = binary.LittleEndian.AppendUint32(code, w)
	}
	return code
}

func TestWords(t *testing.T) {
	w, err := words(spirv(0x00010000, 7))
	require.NoError(t, err)
	require.Equal(t, []uint32{spirvMagic, 0x00010000, 7}, w)

	for name, code := range map[string][]byte{
		"empty":     nil,
		"unaligned": append(spirv(), 1),
		"bad magic": {1, 2, 3, 4},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := words(code)
			require.ErrorIs(t, err, ErrShaderCode)
		})
	}
}

func TestImageCount(t *testing.T) {
	caps := render.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 3}
	require.Equal(t, uint32(2), imageCount(0, caps))
	require.Equal(t, uint32(3), imageCount(3, caps))
	require.Equal(t, uint32(3), imageCount(8, caps))

	caps.MaxImageCount = 0
	require.Equal(t, uint32(8), imageCount(8, caps))
}

func TestPresentMode(t *testing.T) {
	require.Equal(t, vk.PresentModeFifo, presentMode(render.PresentModeDefault))
	require.Equal(t, vk.PresentModeMailbox, presentMode(render.PresentMode(vk.PresentModeMailbox)))
}

func TestTimeoutNanos(t *testing.T) {
	require.Equal(t, uint64(vk.MaxUint64), timeoutNanos(-1))
	require.Equal(t, uint64(0), timeoutNanos(0))
	require.Equal(t, uint64(2_000_000), timeoutNanos(2*time.Millisecond))
}

func TestUsageFlags(t *testing.T) {
	require.Equal(t, vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit), usageFlags(render.UsageOneTime))
	require.Zero(t, usageFlags(render.UsageMultipleSubmit))
}

func TestCStrings(t *testing.T) {
	require.Equal(t, "VK_KHR_surface\x00", cstring("VK_KHR_surface"))
	require.Equal(t, "VK_KHR_surface\x00", cstring("VK_KHR_surface\x00"))
	require.Equal(t, []string{"a\x00", "b\x00"}, cstrings([]string{"a", "b\x00"}))

	require.True(t, hasLayer([]string{"VK_LAYER_other", validationLayer}, validationLayer))
	require.True(t, hasLayer([]string{validationLayer + "\x00"}, validationLayer))
	require.False(t, hasLayer(nil, validationLayer))
}

func TestCapabilities(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		MinImageCount:           2,
		MaxImageCount:           8,
		CurrentExtent:           vk.Extent2D{Width: 800, Height: 600},
		MinImageExtent:          vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent:          vk.Extent2D{Width: 4096, Height: 4096},
		SupportedCompositeAlpha: vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit | vk.CompositeAlphaInheritBit),
	}
	got := capabilities(&caps)
	require.Equal(t, render.Extent{Width: 800, Height: 600}, got.CurrentExtent)
	require.Equal(t, render.Extent{Width: 4096, Height: 4096}, got.MaxImageExtent)
	require.Equal(t, uint32(2), got.MinImageCount)
	require.Equal(t, render.CompositeAlpha(vk.CompositeAlphaOpaqueBit), got.SupportedCompositeAlpha.First())
}

func TestResult(t *testing.T) {
	require.Equal(t, render.StatusOK, result(vk.Success).Status)
	require.Equal(t, render.StatusSuboptimal, result(vk.Suboptimal).Status)
	require.Equal(t, render.StatusOutOfDate, result(vk.ErrorOutOfDate).Status)

	res := result(vk.ErrorDeviceLost)
	require.Equal(t, render.StatusFailed, res.Status)
	require.Error(t, res.Err)
}

func TestNewError(t *testing.T) {
	require.NoError(t, NewError(vk.Success))
	require.False(t, IsError(vk.Success))
	require.True(t, IsError(vk.ErrorDeviceLost))

	err := NewError(vk.ErrorDeviceLost)
	require.Error(t, err)
	require.Contains(t, err.Error(), "vulkan error")
	require.Contains(t, err.Error(), "TestNewError")
}

func TestOrPanic(t *testing.T) {
	require.NotPanics(t, func() { OrPanic(nil) })

	var finalized bool
	boom := errors.New("boom")
	require.PanicsWithError(t, "boom", func() {
		OrPanic(boom, func() { finalized = true })
	})
	require.True(t, finalized)
}

func TestCheckError(t *testing.T) {
	boom := errors.New("boom")
	run := func(v any) (err error) {
		defer CheckError(&err)
		panic(v)
	}
	require.ErrorIs(t, run(boom), boom)
	require.EqualError(t, run("lost"), "lost")
}

func TestNewVertexBufferPartialVertex(t *testing.T) {
	for _, verts := range [][]float32{nil, {0.5}, {0, 0.5, 1}} {
		vb, err := (&Device{}).NewVertexBuffer(verts)
		require.Error(t, err)
		require.Nil(t, vb)
	}
}

func TestCheckErrorLeavesResultUnset(t *testing.T) {
	boom := errors.New("boom")
	var finalized bool
	build := func() (_ *VertexBuffer, err error) {
		defer CheckError(&err)
		v := &VertexBuffer{n: 3}
		OrPanic(boom, func() { finalized = true })
		return v, nil
	}
	vb, err := build()
	require.ErrorIs(t, err, boom)
	require.Nil(t, vb)
	require.True(t, finalized)
}

func TestUnsubmitted(t *testing.T) {
	sc := &Swapchain{}
	sem := vk.Semaphore(vk.NullHandle)

	res := unsubmitted(sc, sem, 1, errors.New("out of host memory"))
	require.Equal(t, render.StatusOutOfDate, res.Status)
	require.Len(t, sc.stranded, 1)
	require.Empty(t, sc.free, "a semaphore still signaled must not be acquired with again")
	require.Empty(t, sc.acquired)
}
