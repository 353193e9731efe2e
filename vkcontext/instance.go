package vkcontext

import (
	"context"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

const (
	validationLayer    = "VK_LAYER_KHRONOS_validation"
	debugReportExt     = "VK_EXT_debug_report"
	swapchainDeviceExt = "VK_KHR_swapchain"
	defaultEngineName  = "vkgc"
	waitForever        = vk.MaxUint64
)

func safeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != 0 {
		return s + "\x00"
	}
	return s
}

func safeStrings(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, safeString(s))
	}
	return out
}

// InitHeadless points the Vulkan loader at the system library, for tools
// that enumerate devices without opening a window.
func InitHeadless() error {
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return errors.Wrap(err, "locate vulkan loader")
	}
	if err := vk.Init(); err != nil {
		return errors.Wrap(err, "initialize vulkan loader")
	}
	return nil
}

// SupportedLayers lists the instance layers the loader offers.
func SupportedLayers() ([]string, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, errors.Wrap(err, "enumerate instance layers")
	}
	props := make([]vk.LayerProperties, count)
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&count, props)); err != nil {
		return nil, errors.Wrap(err, "enumerate instance layers")
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, vk.ToString(props[i].LayerName[:]))
	}
	return names, nil
}

// SupportedExtensions lists the instance extensions the loader offers.
func SupportedExtensions() ([]string, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &count, nil)); err != nil {
		return nil, errors.Wrap(err, "enumerate instance extensions")
	}
	props := make([]vk.ExtensionProperties, count)
	if err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &count, props)); err != nil {
		return nil, errors.Wrap(err, "enumerate instance extensions")
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, vk.ToString(props[i].ExtensionName[:]))
	}
	return names, nil
}

type instance struct {
	native        vk.Instance
	debugCallback vk.DebugReportCallback
}

// createInstance enables extensions, plus validation when asked for and
// available. A missing validation layer only produces a warning.
func createInstance(cfg Config, extensions []string, log *slog.Logger) (*instance, error) {
	var layers []string
	if cfg.Validation {
		supported, err := SupportedLayers()
		if err == nil && slices.Contains(supported, validationLayer) {
			layers = append(layers, validationLayer)
			extensions = append(slices.Clone(extensions), debugReportExt)
		} else {
			log.Warn("validation requested but not available", slog.String("layer", validationLayer))
		}
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   safeString(cfg.ApplicationName),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        safeString(defaultEngineName),
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.MakeVersion(1, 0, 0),
	}

	names := safeStrings(extensions)
	layerNames := safeStrings(layers)
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(names)),
		PpEnabledExtensionNames: names,
		EnabledLayerCount:       uint32(len(layerNames)),
		PpEnabledLayerNames:     layerNames,
	}

	inst := &instance{}
	if err := vk.Error(vk.CreateInstance(&createInfo, nil, &inst.native)); err != nil {
		return nil, errors.Wrap(err, "create instance")
	}
	if err := vk.InitInstance(inst.native); err != nil {
		vk.DestroyInstance(inst.native, nil)
		return nil, errors.Wrap(err, "load instance functions")
	}

	if len(layers) > 0 {
		if err := inst.setDebugCallback(log); err != nil {
			log.Warn("debug report callback unavailable", slog.Any("error", err))
		}
	}

	log.Debug("created instance",
		slog.Any("extensions", extensions),
		slog.Any("layers", layers))
	return inst, nil
}

func (i *instance) setDebugCallback(log *slog.Logger) error {
	createInfo := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: func(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
			object uint64, location uint, messageCode int32, layerPrefix string,
			message string, userData unsafe.Pointer) vk.Bool32 {
			log.Log(context.Background(), debugReportLevel(flags), message,
				slog.String("layer", layerPrefix),
				slog.Int("code", int(messageCode)))
			return vk.False
		},
	}
	return vk.Error(vk.CreateDebugReportCallback(i.native, &createInfo, nil, &i.debugCallback))
}

func debugReportLevel(flags vk.DebugReportFlags) slog.Level {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		return slog.LevelError
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		return slog.LevelWarn
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func (i *instance) destroy() {
	if i.debugCallback != nil {
		vk.DestroyDebugReportCallback(i.native, i.debugCallback, nil)
	}
	vk.DestroyInstance(i.native, nil)
}
