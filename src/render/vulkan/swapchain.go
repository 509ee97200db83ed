package vulkan

import (
	"fmt"
	"log/slog"

	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/epsilon/src/render"
)

// Image is one swapchain image and its color view.
type Image struct {
	img   vk.Image
	view  vk.ImageView
	index int
}

// Swapchain implements render.Swapchain.
//
// Each image owns the semaphore its last acquire signaled and a semaphore
// its rendering signals for presentation. Acquire semaphores rotate through
// a free list: the one an image held is only reused once the image is
// submitted again, by which time the previous submission has finished.
type Swapchain struct {
	dev    *Device
	sc     vk.Swapchain
	format render.Format
	extent render.Extent
	images []render.Image

	acquired []vk.Semaphore
	rendered []vk.Semaphore
	free     []vk.Semaphore
	// stranded holds acquire semaphores that were signaled but never
	// waited on. They are only safe to destroy with the swapchain.
	stranded []vk.Semaphore
}

// presentMode maps the device-default sentinel to FIFO, the one mode every
// implementation supports.
func presentMode(m render.PresentMode) vk.PresentMode {
	if m == render.PresentModeDefault {
		return vk.PresentModeFifo
	}
	return vk.PresentMode(m)
}

// imageCount clamps the requested count to what the surface allows.
func imageCount(want uint32, caps render.SurfaceCapabilities) uint32 {
	if want < caps.MinImageCount {
		want = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && want > caps.MaxImageCount {
		want = caps.MaxImageCount
	}
	return want
}

// NewSwapchain creates a swapchain for desc, retiring old when it is set.
// An extent outside the surface's current limits yields
// render.ErrExtentNotSupported without touching the device.
func (d *Device) NewSwapchain(desc *render.SwapchainDesc, old render.Swapchain) (render.Swapchain, error) {
	var caps vk.SurfaceCapabilities
	if err := NewError(vk.GetPhysicalDeviceSurfaceCapabilities(d.gpu, d.surface, &caps)); err != nil {
		return nil, fmt.Errorf("vulkan: query surface capabilities: %w", err)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	c := capabilities(&caps)
	if desc.Extent.Empty() || !desc.Extent.Within(c.MinImageExtent, c.MaxImageExtent) {
		return nil, fmt.Errorf("%w: %s not within [%s, %s]",
			render.ErrExtentNotSupported, desc.Extent, c.MinImageExtent, c.MaxImageExtent)
	}

	oldSC := vk.NullSwapchain
	if old != nil {
		oldSC = old.(*Swapchain).sc
	}
	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          d.surface,
		MinImageCount:    imageCount(desc.MinImageCount, c),
		ImageFormat:      vk.Format(desc.Format),
		ImageColorSpace:  vk.ColorSpace(desc.ColorSpace),
		ImageExtent:      extent2D(desc.Extent),
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaFlagBits(desc.CompositeAlpha),
		PresentMode:      presentMode(desc.PresentMode),
		Clipped:          vk.True,
		OldSwapchain:     oldSC,
	}
	var sc vk.Swapchain
	if err := NewError(vk.CreateSwapchain(d.dev, &createInfo, nil, &sc)); err != nil {
		return nil, fmt.Errorf("vulkan: create swapchain: %w", err)
	}
	s := &Swapchain{dev: d, sc: sc, format: desc.Format, extent: desc.Extent}
	if err := s.init(); err != nil {
		s.Destroy()
		return nil, err
	}
	Logger().Info("swapchain created",
		slog.String("extent", desc.Extent.String()),
		slog.Int("images", len(s.images)))
	return s, nil
}

func (s *Swapchain) init() error {
	dev := s.dev.dev
	var count uint32
	if err := NewError(vk.GetSwapchainImages(dev, s.sc, &count, nil)); err != nil {
		return fmt.Errorf("vulkan: get swapchain images: %w", err)
	}
	imgs := make([]vk.Image, count)
	if err := NewError(vk.GetSwapchainImages(dev, s.sc, &count, imgs)); err != nil {
		return fmt.Errorf("vulkan: get swapchain images: %w", err)
	}

	s.acquired = make([]vk.Semaphore, count)
	for i, img := range imgs[:count] {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   vk.Format(s.format),
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		var view vk.ImageView
		if err := NewError(vk.CreateImageView(dev, &viewInfo, nil, &view)); err != nil {
			return fmt.Errorf("vulkan: create image view %d: %w", i, err)
		}
		s.images = append(s.images, &Image{img: img, view: view, index: i})

		sem, err := s.dev.newSemaphore()
		if err != nil {
			return err
		}
		s.rendered = append(s.rendered, sem)
	}
	return nil
}

func (s *Swapchain) Images() []render.Image { return s.images }
func (s *Swapchain) Format() render.Format  { return s.format }
func (s *Swapchain) Extent() render.Extent  { return s.extent }

// Acquire waits without bound for the next image.
func (s *Swapchain) Acquire() (int, render.Semaphore, render.Result) {
	sem, err := s.semaphore()
	if err != nil {
		return -1, nil, render.Failed(err)
	}
	var idx uint32
	ret := vk.AcquireNextImage(s.dev.dev, s.sc, vk.MaxUint64, sem, vk.Fence(vk.NullHandle), &idx)
	res := result(ret)
	if !res.Usable() {
		s.free = append(s.free, sem)
		return -1, nil, res
	}
	return int(idx), sem, res
}

func (s *Swapchain) semaphore() (vk.Semaphore, error) {
	if n := len(s.free); n > 0 {
		sem := s.free[n-1]
		s.free = s.free[:n-1]
		return sem, nil
	}
	return s.dev.newSemaphore()
}

// retire records sem as the acquire semaphore of image idx, recycling the
// one it replaces.
func (s *Swapchain) retire(idx int, sem vk.Semaphore) {
	if old := s.acquired[idx]; old != vk.Semaphore(vk.NullHandle) {
		s.free = append(s.free, old)
	}
	s.acquired[idx] = sem
}

// strand parks the acquire semaphore of an image that will never be
// submitted. The image stays acquired until the swapchain is replaced.
func (s *Swapchain) strand(sem vk.Semaphore) {
	s.stranded = append(s.stranded, sem)
}

// Destroy releases the views, the semaphores and the swapchain. The device
// must be idle.
func (s *Swapchain) Destroy() {
	if s.sc == vk.NullSwapchain {
		return
	}
	dev := s.dev.dev
	for _, img := range s.images {
		vk.DestroyImageView(dev, img.(*Image).view, nil)
	}
	for _, sems := range [][]vk.Semaphore{s.acquired, s.rendered, s.free, s.stranded} {
		for _, sem := range sems {
			if sem != vk.Semaphore(vk.NullHandle) {
				vk.DestroySemaphore(dev, sem, nil)
			}
		}
	}
	vk.DestroySwapchain(dev, s.sc, nil)
	s.sc = vk.NullSwapchain
	s.images, s.acquired, s.rendered, s.free, s.stranded = nil, nil, nil, nil, nil
}

func (d *Device) newSemaphore() (vk.Semaphore, error) {
	info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	var sem vk.Semaphore
	if err := NewError(vk.CreateSemaphore(d.dev, &info, nil, &sem)); err != nil {
		return sem, fmt.Errorf("vulkan: create semaphore: %w", err)
	}
	return sem, nil
}
