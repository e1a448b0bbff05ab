package micmon

import (
	"github.com/thoas/go-funk"
)

// resolveEndpoint maps a friendly name to exactly one active endpoint of the
// given kind. Matching is a case-sensitive exact comparison: friendly names
// come straight out of the listing output and a partial match could select a
// device the user never named.
func resolveEndpoint(catalog DeviceCatalog, name string, kind EndpointKind) (AudioEndpoint, error) {
	endpoints, err := catalog.Endpoints(kind)
	if err != nil {
		return AudioEndpoint{}, err
	}

	matches := funk.Filter(endpoints, func(ep AudioEndpoint) bool {
		return ep.FriendlyName == name
	}).([]AudioEndpoint)

	switch len(matches) {
	case 0:
		return AudioEndpoint{}, &DeviceNotFoundError{Name: name, Kind: kind}
	case 1:
		return matches[0], nil
	default:
		ids := funk.Map(matches, func(ep AudioEndpoint) string {
			return string(ep.ID)
		}).([]string)

		return AudioEndpoint{}, &AmbiguousDeviceError{Name: name, Kind: kind, IDs: ids}
	}
}
