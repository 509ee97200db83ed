package vulkan

import (
	"fmt"
	"log/slog"
	"strings"

	vk "github.com/vulkan-go/vulkan"
)

const validationLayer = "VK_LAYER_KHRONOS_validation"

// Instance is a Vulkan instance.
type Instance struct {
	inst   vk.Instance
	layers []string
}

// NewInstance creates an instance enabling extensions, which are usually
// the ones the window system requires. When validation is set and the
// Khronos validation layer is installed it is enabled too; a missing layer
// is logged and ignored.
func NewInstance(name string, extensions []string, validation bool) (*Instance, error) {
	log := Logger()
	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   cstring(name),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        cstring("epsilon"),
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.ApiVersion10,
	}

	exts := cstrings(extensions)
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: exts,
	}

	var layers []string
	if validation {
		if hasLayer(instanceLayers(), validationLayer) {
			layers = cstrings([]string{validationLayer})
			createInfo.EnabledLayerCount = uint32(len(layers))
			createInfo.PpEnabledLayerNames = layers
		} else {
			log.Warn("validation layer not available", slog.String("layer", validationLayer))
		}
	}

	var inst vk.Instance
	if err := NewError(vk.CreateInstance(&createInfo, nil, &inst)); err != nil {
		return nil, fmt.Errorf("vulkan: create instance: %w", err)
	}
	if err := vk.InitInstance(inst); err != nil {
		vk.DestroyInstance(inst, nil)
		return nil, fmt.Errorf("vulkan: init instance: %w", err)
	}
	log.Info("instance created",
		slog.Any("extensions", extensions),
		slog.Bool("validation", len(layers) > 0))
	return &Instance{inst: inst, layers: layers}, nil
}

// Handle returns the raw instance handle.
func (i *Instance) Handle() vk.Instance { return i.inst }

func (i *Instance) Destroy() {
	if i.inst == nil {
		return
	}
	vk.DestroyInstance(i.inst, nil)
	i.inst = nil
}

func instanceLayers() []string {
	var count uint32
	if vk.EnumerateInstanceLayerProperties(&count, nil) != vk.Success {
		return nil
	}
	props := make([]vk.LayerProperties, count)
	if vk.EnumerateInstanceLayerProperties(&count, props) != vk.Success {
		return nil
	}
	names := make([]string, 0, count)
	for _, p := range props {
		p.Deref()
		names = append(names, vk.ToString(p.LayerName[:]))
	}
	return names
}

func hasLayer(available []string, name string) bool {
	for _, l := range available {
		if strings.TrimRight(l, "\x00") == name {
			return true
		}
	}
	return false
}

// cstring returns s NUL-terminated, as the binding expects.
func cstring(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

func cstrings(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = cstring(s)
	}
	return out
}
