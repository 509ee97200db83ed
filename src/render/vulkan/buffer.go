package vulkan

import (
	"errors"
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
	"github.com/xlab/linmath"
)

const (
	// vertexComponents is the number of floats per vertex position.
	vertexComponents = 2
	vertexStride     = vertexComponents * 4
)

// Triangle is the vertex data drawn by default.
var Triangle = []float32{
	-0.5, -0.5,
	0.0, 0.5,
	0.5, -0.25,
}

// VertexBuffer is a host-visible buffer of vec2 positions.
// It implements render.VertexBuffer.
type VertexBuffer struct {
	dev vk.Device
	buf vk.Buffer
	mem vk.DeviceMemory
	n   int
}

// NewVertexBuffer uploads verts, two floats per vertex.
func (d *Device) NewVertexBuffer(verts []float32) (_ *VertexBuffer, err error) {
	if len(verts) == 0 || len(verts)%vertexComponents != 0 {
		return nil, fmt.Errorf("vulkan: %d floats is not a whole number of vertices", len(verts))
	}
	defer CheckError(&err)

	data := linmath.ArrayFloat32(verts)
	size := vk.DeviceSize(data.Sizeof())

	v := &VertexBuffer{dev: d.dev, n: len(verts) / vertexComponents}
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
		SharingMode: vk.SharingModeExclusive,
	}
	OrPanic(NewError(vk.CreateBuffer(d.dev, &info, nil, &v.buf)))

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.dev, v.buf, &req)
	req.Deref()
	typeIndex, ok := vk.FindMemoryTypeIndex(d.gpu, req.MemoryTypeBits,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if !ok {
		OrPanic(errors.New("vulkan: no host-visible memory for vertex buffer"), v.Destroy)
	}
	alloc := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIndex,
	}
	OrPanic(NewError(vk.AllocateMemory(d.dev, &alloc, nil, &v.mem)), v.Destroy)

	var ptr unsafe.Pointer
	OrPanic(NewError(vk.MapMemory(d.dev, v.mem, 0, size, 0, &ptr)), v.Destroy)
	n := vk.Memcopy(ptr, data.Data())
	vk.UnmapMemory(d.dev, v.mem)
	if n != data.Sizeof() {
		OrPanic(fmt.Errorf("vulkan: copied %d of %d vertex bytes", n, data.Sizeof()), v.Destroy)
	}

	OrPanic(NewError(vk.BindBufferMemory(d.dev, v.buf, v.mem, 0)), v.Destroy)
	return v, nil
}

// Len returns the vertex count.
func (v *VertexBuffer) Len() int { return v.n }

func (v *VertexBuffer) Destroy() {
	if v.buf != vk.Buffer(vk.NullHandle) {
		vk.DestroyBuffer(v.dev, v.buf, nil)
		v.buf = vk.Buffer(vk.NullHandle)
	}
	if v.mem != vk.DeviceMemory(vk.NullHandle) {
		vk.FreeMemory(v.dev, v.mem, nil)
		v.mem = vk.DeviceMemory(vk.NullHandle)
	}
}
