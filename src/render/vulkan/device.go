package vulkan

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/epsilon/src/render"
)

// ErrNoDevice means no physical device can present to the surface.
var ErrNoDevice = errors.New("vulkan: no suitable physical device")

// Device is the device context: the selected GPU, its logical device, the
// graphics queue and the command pool every command buffer comes from.
// It implements render.Device.
type Device struct {
	inst    *Instance
	surface vk.Surface
	gpu     vk.PhysicalDevice
	name    string
	kind    vk.PhysicalDeviceType
	family  uint32

	dev   vk.Device
	pool  vk.CommandPool
	queue *Queue
}

// candidate is a physical device that can serve the surface.
type candidate struct {
	gpu    vk.PhysicalDevice
	name   string
	kind   vk.PhysicalDeviceType
	family uint32
}

// rank orders device types from most to least preferred.
func rank(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 0
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 1
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 2
	case vk.PhysicalDeviceTypeCpu:
		return 3
	}
	return 4
}

// pick returns the best ranked candidate, keeping enumeration order among
// equals.
func pick(cands []candidate) (candidate, bool) {
	if len(cands) == 0 {
		return candidate{}, false
	}
	sorted := slices.Clone(cands)
	slices.SortStableFunc(sorted, func(a, b candidate) int {
		return cmp.Compare(rank(a.kind), rank(b.kind))
	})
	return sorted[0], true
}

// NewDevice selects a physical device able to present to surface, creates
// the logical device with one graphics queue and the swapchain extension,
// and a resettable command pool. The device takes ownership of surface and
// destroys it, on failure too.
func NewDevice(inst *Instance, surface vk.Surface) (*Device, error) {
	d := &Device{inst: inst, surface: surface}
	if err := d.selectGPU(); err != nil {
		d.Destroy()
		return nil, err
	}
	if err := d.createDevice(); err != nil {
		d.Destroy()
		return nil, err
	}
	Logger().Info("device selected",
		slog.String("name", d.name),
		slog.Int("rank", rank(d.kind)),
		slog.Uint64("queue family", uint64(d.family)))
	return d, nil
}

func (d *Device) selectGPU() error {
	var count uint32
	if err := NewError(vk.EnumeratePhysicalDevices(d.inst.inst, &count, nil)); err != nil {
		return fmt.Errorf("vulkan: enumerate physical devices: %w", err)
	}
	if count == 0 {
		return ErrNoDevice
	}
	gpus := make([]vk.PhysicalDevice, count)
	if err := NewError(vk.EnumeratePhysicalDevices(d.inst.inst, &count, gpus)); err != nil {
		return fmt.Errorf("vulkan: enumerate physical devices: %w", err)
	}

	var cands []candidate
	for _, gpu := range gpus {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(gpu, &props)
		props.Deref()
		name := vk.ToString(props.DeviceName[:])

		if !hasSwapchain(gpu) {
			Logger().Debug("device skipped: no swapchain support", slog.String("name", name))
			continue
		}
		family, ok := d.graphicsFamily(gpu)
		if !ok {
			Logger().Debug("device skipped: no queue can draw and present", slog.String("name", name))
			continue
		}
		cands = append(cands, candidate{gpu: gpu, name: name, kind: props.DeviceType, family: family})
	}
	c, ok := pick(cands)
	if !ok {
		return ErrNoDevice
	}
	d.gpu, d.name, d.kind, d.family = c.gpu, c.name, c.kind, c.family
	return nil
}

// graphicsFamily finds a queue family that supports graphics and can
// present to the surface.
func (d *Device) graphicsFamily(gpu vk.PhysicalDevice) (uint32, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, families)
	for i, family := range families {
		family.Deref()
		if family.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			continue
		}
		var present vk.Bool32
		if IsError(vk.GetPhysicalDeviceSurfaceSupport(gpu, uint32(i), d.surface, &present)) {
			continue
		}
		if present.B() {
			return uint32(i), true
		}
	}
	return 0, false
}

func hasSwapchain(gpu vk.PhysicalDevice) bool {
	var count uint32
	if IsError(vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil)) {
		return false
	}
	exts := make([]vk.ExtensionProperties, count)
	if IsError(vk.EnumerateDeviceExtensionProperties(gpu, "", &count, exts)) {
		return false
	}
	for _, ext := range exts {
		ext.Deref()
		if vk.ToString(ext.ExtensionName[:]) == vk.KhrSwapchainExtensionName {
			return true
		}
	}
	return false
}

func (d *Device) createDevice() (err error) {
	defer CheckError(&err)

	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: d.family,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}
	exts := cstrings([]string{vk.KhrSwapchainExtensionName})
	createInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: exts,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
	}
	if layers := d.inst.layers; len(layers) > 0 {
		createInfo.EnabledLayerCount = uint32(len(layers))
		createInfo.PpEnabledLayerNames = layers
	}
	var dev vk.Device
	OrPanic(NewError(vk.CreateDevice(d.gpu, &createInfo, nil, &dev)))
	d.dev = dev

	var q vk.Queue
	vk.GetDeviceQueue(d.dev, d.family, 0, &q)
	d.queue = &Queue{dev: d, q: q}

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: d.family,
	}
	var pool vk.CommandPool
	OrPanic(NewError(vk.CreateCommandPool(d.dev, &poolInfo, nil, &pool)))
	d.pool = pool
	return nil
}

// Name returns the selected GPU's name.
func (d *Device) Name() string { return d.name }

func (d *Device) SurfaceCapabilities() (render.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := NewError(vk.GetPhysicalDeviceSurfaceCapabilities(d.gpu, d.surface, &caps)); err != nil {
		return render.SurfaceCapabilities{}, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return capabilities(&caps), nil
}

func capabilities(caps *vk.SurfaceCapabilities) render.SurfaceCapabilities {
	return render.SurfaceCapabilities{
		MinImageCount:           caps.MinImageCount,
		MaxImageCount:           caps.MaxImageCount,
		CurrentExtent:           extent(caps.CurrentExtent),
		MinImageExtent:          extent(caps.MinImageExtent),
		MaxImageExtent:          extent(caps.MaxImageExtent),
		SupportedCompositeAlpha: render.CompositeAlpha(caps.SupportedCompositeAlpha),
	}
}

func (d *Device) SurfaceFormats() ([]render.SurfaceFormat, error) {
	var count uint32
	if err := NewError(vk.GetPhysicalDeviceSurfaceFormats(d.gpu, d.surface, &count, nil)); err != nil {
		return nil, err
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := NewError(vk.GetPhysicalDeviceSurfaceFormats(d.gpu, d.surface, &count, formats)); err != nil {
		return nil, err
	}
	out := make([]render.SurfaceFormat, 0, count)
	for _, f := range formats[:count] {
		f.Deref()
		out = append(out, render.SurfaceFormat{
			Format:     render.Format(f.Format),
			ColorSpace: render.ColorSpace(f.ColorSpace),
		})
	}
	return out, nil
}

func (d *Device) Queue() render.Queue { return d.queue }

func (d *Device) WaitIdle() error {
	if err := NewError(vk.DeviceWaitIdle(d.dev)); err != nil {
		return fmt.Errorf("vulkan: wait idle: %w", err)
	}
	return nil
}

// Destroy releases the queue's fences, the command pool, the device and
// the surface. Everything created from the device must be gone already.
func (d *Device) Destroy() {
	if d.dev != nil {
		d.queue.destroy()
		if d.pool != vk.CommandPool(vk.NullHandle) {
			vk.DestroyCommandPool(d.dev, d.pool, nil)
		}
		vk.DestroyDevice(d.dev, nil)
		d.dev = nil
	}
	if d.surface != vk.NullSurface {
		vk.DestroySurface(d.inst.inst, d.surface, nil)
		d.surface = vk.NullSurface
	}
}

func extent(e vk.Extent2D) render.Extent {
	return render.Extent{Width: e.Width, Height: e.Height}
}

func extent2D(e render.Extent) vk.Extent2D {
	return vk.Extent2D{Width: e.Width, Height: e.Height}
}
