package vkcontext

import (
	"fmt"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// ErrNoDevice is returned when no physical device can render to the surface.
var ErrNoDevice = errors.New("no suitable vulkan device")

// Heap is one memory heap of a physical device.
type Heap struct {
	Size        uint64
	DeviceLocal bool
}

// QueueFamilyInfo describes one queue family of a physical device.
type QueueFamilyInfo struct {
	Index    int
	Count    uint32
	Graphics bool
	Compute  bool
	Transfer bool
}

// DeviceInfo is a summary of a physical device, for logs and tools.
type DeviceInfo struct {
	Name          string
	Type          string
	APIVersion    string
	DriverVersion uint32
	Heaps         []Heap
	QueueFamilies []QueueFamilyInfo
}

func versionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v>>22, (v>>12)&0x3ff, v&0xfff)
}

func deviceTypeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	}
	return "other"
}

// deviceRank orders device types by preference, lower is better.
func deviceRank(t vk.PhysicalDeviceType) int {
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

type physicalDevice struct {
	native     vk.PhysicalDevice
	properties vk.PhysicalDeviceProperties
	memory     vk.PhysicalDeviceMemoryProperties
	families   []vk.QueueFamilyProperties
}

func (p *physicalDevice) name() string {
	return vk.ToString(p.properties.DeviceName[:])
}

func (p *physicalDevice) info() DeviceInfo {
	info := DeviceInfo{
		Name:          p.name(),
		Type:          deviceTypeName(p.properties.DeviceType),
		APIVersion:    versionString(p.properties.ApiVersion),
		DriverVersion: p.properties.DriverVersion,
	}
	for i := uint32(0); i < p.memory.MemoryHeapCount; i++ {
		heap := p.memory.MemoryHeaps[i]
		info.Heaps = append(info.Heaps, Heap{
			Size:        uint64(heap.Size),
			DeviceLocal: heap.Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0,
		})
	}
	for i, family := range p.families {
		flags := vk.QueueFlagBits(family.QueueFlags)
		info.QueueFamilies = append(info.QueueFamilies, QueueFamilyInfo{
			Index:    i,
			Count:    family.QueueCount,
			Graphics: flags&vk.QueueGraphicsBit != 0,
			Compute:  flags&vk.QueueComputeBit != 0,
			Transfer: flags&vk.QueueTransferBit != 0,
		})
	}
	return info
}

// enumeratePhysicalDevices loads every physical device with its properties
// dereferenced.
func enumeratePhysicalDevices(inst vk.Instance) ([]*physicalDevice, error) {
	var count uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(inst, &count, nil)); err != nil {
		return nil, errors.Wrap(err, "enumerate physical devices")
	}
	natives := make([]vk.PhysicalDevice, count)
	if err := vk.Error(vk.EnumeratePhysicalDevices(inst, &count, natives)); err != nil {
		return nil, errors.Wrap(err, "enumerate physical devices")
	}

	devices := make([]*physicalDevice, 0, count)
	for _, native := range natives {
		p := &physicalDevice{native: native}

		vk.GetPhysicalDeviceProperties(native, &p.properties)
		p.properties.Deref()

		vk.GetPhysicalDeviceMemoryProperties(native, &p.memory)
		p.memory.Deref()
		for i := range p.memory.MemoryTypes {
			p.memory.MemoryTypes[i].Deref()
		}
		for i := range p.memory.MemoryHeaps {
			p.memory.MemoryHeaps[i].Deref()
		}

		var families uint32
		vk.GetPhysicalDeviceQueueFamilyProperties(native, &families, nil)
		p.families = make([]vk.QueueFamilyProperties, families)
		vk.GetPhysicalDeviceQueueFamilyProperties(native, &families, p.families)
		for i := range p.families {
			p.families[i].Deref()
		}

		devices = append(devices, p)
	}
	return devices, nil
}

// pickQueueFamilies finds a graphics family and a present family, preferring
// one family that does both.
func pickQueueFamilies(families []vk.QueueFamilyProperties, presents func(int) bool) (graphics, present int, ok bool) {
	graphics, present = -1, -1
	for i, family := range families {
		isGraphics := family.QueueCount > 0 && vk.QueueFlagBits(family.QueueFlags)&vk.QueueGraphicsBit != 0
		canPresent := presents(i)
		if isGraphics && canPresent {
			return i, i, true
		}
		if isGraphics && graphics < 0 {
			graphics = i
		}
		if canPresent && present < 0 {
			present = i
		}
	}
	return graphics, present, graphics >= 0 && present >= 0
}

type deviceCandidate struct {
	device   *physicalDevice
	graphics int
	present  int
}

// selectPhysicalDevice picks the most preferred device type that can render
// and present to surface.
func selectPhysicalDevice(devices []*physicalDevice, surface vk.Surface) (deviceCandidate, error) {
	var candidates []deviceCandidate
	for _, p := range devices {
		graphics, present, ok := pickQueueFamilies(p.families, func(i int) bool {
			var supported vk.Bool32
			vk.GetPhysicalDeviceSurfaceSupport(p.native, uint32(i), surface, &supported)
			return supported == vk.True
		})
		if ok {
			candidates = append(candidates, deviceCandidate{device: p, graphics: graphics, present: present})
		}
	}
	if len(candidates) == 0 {
		return deviceCandidate{}, ErrNoDevice
	}
	slices.SortStableFunc(candidates, func(a, b deviceCandidate) int {
		return deviceRank(a.device.properties.DeviceType) - deviceRank(b.device.properties.DeviceType)
	})
	return candidates[0], nil
}

type device struct {
	physical      *physicalDevice
	native        vk.Device
	graphicsIndex uint32
	presentIndex  uint32
	graphicsQueue vk.Queue
	presentQueue  vk.Queue
}

func createDevice(c deviceCandidate, log *slog.Logger) (*device, error) {
	indices := []uint32{uint32(c.graphics)}
	if c.present != c.graphics {
		indices = append(indices, uint32(c.present))
	}
	queueInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(c.device.native, &features)
	features.Deref()
	enabled := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy: features.SamplerAnisotropy,
		WideLines:         features.WideLines,
		FillModeNonSolid:  features.FillModeNonSolid,
	}

	extensions := safeStrings([]string{swapchainDeviceExt})
	createInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{enabled},
	}

	d := &device{
		physical:      c.device,
		graphicsIndex: uint32(c.graphics),
		presentIndex:  uint32(c.present),
	}
	if err := vk.Error(vk.CreateDevice(c.device.native, &createInfo, nil, &d.native)); err != nil {
		return nil, errors.Wrapf(err, "create device on %s", c.device.name())
	}
	vk.GetDeviceQueue(d.native, d.graphicsIndex, 0, &d.graphicsQueue)
	vk.GetDeviceQueue(d.native, d.presentIndex, 0, &d.presentQueue)

	log.Info("created device",
		slog.String("name", c.device.name()),
		slog.String("type", deviceTypeName(c.device.properties.DeviceType)),
		slog.Int("graphics_queue", c.graphics),
		slog.Int("present_queue", c.present))
	return d, nil
}

func (d *device) waitIdle() error {
	return errors.Wrap(vk.Error(vk.DeviceWaitIdle(d.native)), "wait for device")
}

func (d *device) destroy() {
	vk.DestroyDevice(d.native, nil)
}

// Probe lists the physical devices of a headless instance. InitHeadless must
// have been called first.
func Probe(cfg Config, log *slog.Logger) ([]DeviceInfo, error) {
	inst, err := createInstance(cfg, nil, log)
	if err != nil {
		return nil, err
	}
	defer inst.destroy()

	devices, err := enumeratePhysicalDevices(inst.native)
	if err != nil {
		return nil, err
	}
	infos := make([]DeviceInfo, 0, len(devices))
	for _, p := range devices {
		infos = append(infos, p.info())
	}
	return infos, nil
}
