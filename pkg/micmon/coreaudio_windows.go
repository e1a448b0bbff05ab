package micmon

import (
	"fmt"
	"runtime"
	"syscall"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	wca "github.com/moutend/go-wca"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

// Property store identity of the "Listen" tab: one GUID, two property IDs.
var listenSettingGUID = ole.NewGUID("{24DBB0FC-9311-4B3D-9CF0-18FF155639D4}")

const (
	listenCheckboxPID = 1 // "Listen to this device" checkbox
	listenTargetPID   = 0 // "Playback through this device" dropdown
)

// The wca bindings only surface STGM_READ.
const stgmReadWrite = 0x00000002

// VARIANT_BOOL truth value.
const variantTrue = 0xffff

// propertyKey matches the Windows PROPERTYKEY layout.
type propertyKey struct {
	fmtid ole.GUID
	pid   uint32
}

// propVariant matches the 64-bit PROPVARIANT layout: an 8-byte header
// followed by the 16-byte value union. Laid out explicitly here because the
// listen properties need encodings (VT_BOOL, VT_LPWSTR, VT_EMPTY) the wca
// bindings don't construct.
type propVariant struct {
	vt       uint16
	reserved [6]byte
	val      uint64
	_        uint64
}

func listenKey(pid uint32) *propertyKey {
	return &propertyKey{fmtid: *listenSettingGUID, pid: pid}
}

// coreAudio is the Windows implementation of both the device catalog and the
// listen-property accessor, backed by one MMDevice enumerator whose lifetime
// spans the invocation.
type coreAudio struct {
	logger     *zap.SugaredLogger
	enumerator *wca.IMMDeviceEnumerator
}

func newCoreAudio(logger *zap.SugaredLogger) (*coreAudio, error) {
	logger = logger.Named("coreaudio")

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		logger.Errorw("Failed to initialize COM", "error", err)
		return nil, &EnumerationError{Reason: "initialize COM", Err: err}
	}

	var enumerator *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(wca.CLSID_MMDeviceEnumerator, 0, wca.CLSCTX_ALL, wca.IID_IMMDeviceEnumerator, &enumerator); err != nil {
		ole.CoUninitialize()
		logger.Errorw("Failed to create device enumerator", "error", err)
		return nil, &EnumerationError{Reason: "create device enumerator", Err: err}
	}

	logger.Debug("Created core audio bindings")

	return &coreAudio{logger: logger, enumerator: enumerator}, nil
}

// Release frees the enumerator and tears down COM. Call exactly once.
func (c *coreAudio) Release() error {
	c.logger.Debug("Releasing core audio bindings")

	c.enumerator.Release()
	ole.CoUninitialize()

	return nil
}

func dataFlow(kind EndpointKind) uint32 {
	if kind == RenderEndpoint {
		return uint32(wca.ERender)
	}
	return uint32(wca.ECapture)
}

// Endpoints enumerates the currently active endpoints of the requested kind.
// Queried fresh on every call: device topology can change between calls.
func (c *coreAudio) Endpoints(kind EndpointKind) ([]AudioEndpoint, error) {
	var collection *wca.IMMDeviceCollection
	if err := c.enumerator.EnumAudioEndpoints(dataFlow(kind), uint32(wca.DEVICE_STATE_ACTIVE), &collection); err != nil {
		c.logger.Warnw("Failed to enumerate audio endpoints", "kind", kind, "error", err)
		return nil, &EnumerationError{Reason: fmt.Sprintf("enumerate %s endpoints", kind), Err: err}
	}
	defer collection.Release()

	var count uint32
	if err := collection.GetCount(&count); err != nil {
		return nil, &EnumerationError{Reason: "count endpoints", Err: err}
	}

	endpoints := make([]AudioEndpoint, 0, count)
	for i := uint32(0); i < count; i++ {
		endpoint, err := c.describeEndpoint(collection, i, kind)
		if err != nil {
			// a device disappearing mid-walk shouldn't fail the whole listing
			c.logger.Warnw("Failed to describe endpoint, skipping", "index", i, "error", err)
			continue
		}

		endpoints = append(endpoints, endpoint)
	}

	return endpoints, nil
}

func (c *coreAudio) describeEndpoint(collection *wca.IMMDeviceCollection, index uint32, kind EndpointKind) (AudioEndpoint, error) {
	var device *wca.IMMDevice
	if err := collection.Item(index, &device); err != nil {
		return AudioEndpoint{}, fmt.Errorf("get collection item %d: %w", index, err)
	}
	defer device.Release()

	var id string
	if err := device.GetId(&id); err != nil {
		return AudioEndpoint{}, fmt.Errorf("get device id: %w", err)
	}

	var store *wca.IPropertyStore
	if err := device.OpenPropertyStore(wca.STGM_READ, &store); err != nil {
		return AudioEndpoint{}, fmt.Errorf("open property store: %w", err)
	}
	defer store.Release()

	var name wca.PROPVARIANT
	if err := store.GetValue(&wca.PKEY_Device_FriendlyName, &name); err != nil {
		return AudioEndpoint{}, fmt.Errorf("get friendly name: %w", err)
	}

	return AudioEndpoint{
		ID:           EndpointID(id),
		FriendlyName: name.String(),
		Kind:         kind,
		Active:       true,
	}, nil
}

// device reopens the IMMDevice for a previously resolved endpoint. Walks a
// fresh enumeration and matches on the endpoint ID rather than trusting an
// index: topology can change between resolution and access.
func (c *coreAudio) device(endpoint AudioEndpoint) (*wca.IMMDevice, error) {
	var collection *wca.IMMDeviceCollection
	if err := c.enumerator.EnumAudioEndpoints(dataFlow(endpoint.Kind), uint32(wca.DEVICE_STATE_ACTIVE), &collection); err != nil {
		return nil, fmt.Errorf("enumerate endpoints: %w", err)
	}
	defer collection.Release()

	var count uint32
	if err := collection.GetCount(&count); err != nil {
		return nil, fmt.Errorf("count endpoints: %w", err)
	}

	for i := uint32(0); i < count; i++ {
		var device *wca.IMMDevice
		if err := collection.Item(i, &device); err != nil {
			continue
		}

		var id string
		if err := device.GetId(&id); err != nil {
			device.Release()
			continue
		}

		if EndpointID(id) == endpoint.ID {
			return device, nil
		}

		device.Release()
	}

	return nil, fmt.Errorf("endpoint %q is no longer present", endpoint.FriendlyName)
}

// ReadState decodes the two listen properties from the endpoint's property
// store. An absent or empty-typed value decodes to disabled / no target.
func (c *coreAudio) ReadState(endpoint AudioEndpoint) (ListenState, error) {
	device, err := c.device(endpoint)
	if err != nil {
		return ListenState{}, &PropertyReadError{Device: endpoint.FriendlyName, Err: err}
	}
	defer device.Release()

	var store *wca.IPropertyStore
	if err := device.OpenPropertyStore(wca.STGM_READ, &store); err != nil {
		return ListenState{}, &PropertyReadError{Device: endpoint.FriendlyName, Err: err}
	}
	defer store.Release()

	var state ListenState

	checkbox, err := getValue(store, listenKey(listenCheckboxPID))
	if err != nil {
		return ListenState{}, &PropertyReadError{Device: endpoint.FriendlyName, Err: err}
	}
	if checkbox.vt == uint16(ole.VT_BOOL) && checkbox.val != 0 {
		state.Enabled = true
	}

	target, err := getValue(store, listenKey(listenTargetPID))
	if err != nil {
		return ListenState{}, &PropertyReadError{Device: endpoint.FriendlyName, Err: err}
	}
	if target.vt == uint16(ole.VT_LPWSTR) && target.val != 0 {
		ptr := (*uint16)(unsafe.Pointer(uintptr(target.val)))
		state.PlaybackTarget = EndpointID(windows.UTF16PtrToString(ptr))
		ole.CoTaskMemFree(uintptr(target.val))
	}

	c.logger.Debugw("Read listen state",
		"device", endpoint.FriendlyName,
		"enabled", state.Enabled,
		"playbackTarget", state.PlaybackTarget)

	return state, nil
}

// WriteState commits one mutation of the two listen properties. IPropertyStore
// has no multi-property transaction: the checkbox is written first, then the
// playback target, then a single Commit. A failure between the two writes
// leaves the checkbox updated and the target unchanged, in that order.
func (c *coreAudio) WriteState(endpoint AudioEndpoint, write StateWrite) error {
	device, err := c.device(endpoint)
	if err != nil {
		return &PropertyWriteError{Device: endpoint.FriendlyName, Err: err}
	}
	defer device.Release()

	var store *wca.IPropertyStore
	if err := device.OpenPropertyStore(stgmReadWrite, &store); err != nil {
		return &PropertyWriteError{Device: endpoint.FriendlyName, Err: err}
	}
	defer store.Release()

	checkbox := propVariant{vt: uint16(ole.VT_BOOL)}
	if write.Enabled {
		checkbox.val = variantTrue
	}
	if err := setValue(store, listenKey(listenCheckboxPID), &checkbox); err != nil {
		return &PropertyWriteError{Device: endpoint.FriendlyName, Err: err}
	}

	switch write.TargetMode {
	case TargetSet:
		wide, err := syscall.UTF16PtrFromString(string(write.Target))
		if err != nil {
			return &PropertyWriteError{Device: endpoint.FriendlyName, Err: err}
		}

		target := propVariant{
			vt:  uint16(ole.VT_LPWSTR),
			val: uint64(uintptr(unsafe.Pointer(wide))),
		}
		err = setValue(store, listenKey(listenTargetPID), &target)
		runtime.KeepAlive(wide)
		if err != nil {
			return &PropertyWriteError{Device: endpoint.FriendlyName, Err: err}
		}

	case TargetDefault:
		target := propVariant{vt: uint16(ole.VT_EMPTY)}
		if err := setValue(store, listenKey(listenTargetPID), &target); err != nil {
			return &PropertyWriteError{Device: endpoint.FriendlyName, Err: err}
		}

	case TargetKeep:
		// stored target stays as-is
	}

	if err := commit(store); err != nil {
		return &PropertyWriteError{Device: endpoint.FriendlyName, Err: err}
	}

	c.logger.Debugw("Committed listen state",
		"device", endpoint.FriendlyName,
		"enabled", write.Enabled,
		"targetMode", write.TargetMode)

	return nil
}

// IPropertyStore vtable slots past IUnknown: GetCount 3, GetAt 4, GetValue 5,
// SetValue 6, Commit 7. The wca bindings model the read side with their own
// PROPVARIANT; reads and writes of the listen properties go through the
// vtable directly so both use the explicit layouts above.

func getValue(store *wca.IPropertyStore, key *propertyKey) (propVariant, error) {
	var value propVariant

	vtbl := *(**[8]uintptr)(unsafe.Pointer(store))
	hr, _, _ := syscall.SyscallN(
		vtbl[5],
		uintptr(unsafe.Pointer(store)),
		uintptr(unsafe.Pointer(key)),
		uintptr(unsafe.Pointer(&value)),
	)
	if hr != 0 {
		return propVariant{}, ole.NewError(hr)
	}

	return value, nil
}

func setValue(store *wca.IPropertyStore, key *propertyKey, value *propVariant) error {
	vtbl := *(**[8]uintptr)(unsafe.Pointer(store))
	hr, _, _ := syscall.SyscallN(
		vtbl[6],
		uintptr(unsafe.Pointer(store)),
		uintptr(unsafe.Pointer(key)),
		uintptr(unsafe.Pointer(value)),
	)
	if hr != 0 {
		return ole.NewError(hr)
	}

	return nil
}

func commit(store *wca.IPropertyStore) error {
	vtbl := *(**[8]uintptr)(unsafe.Pointer(store))
	hr, _, _ := syscall.SyscallN(vtbl[7], uintptr(unsafe.Pointer(store)))
	if hr != 0 {
		return ole.NewError(hr)
	}

	return nil
}
