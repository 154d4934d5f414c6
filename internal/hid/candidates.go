package hid

import "sort"

// uniqueDevices deduplicates enumeration results by (interface number, path).
// Entries without a path cannot be addressed and are discarded. The first
// occurrence of a key wins.
func uniqueDevices(devices []DeviceInfo) []DeviceInfo {
	type key struct {
		iface int
		path  string
	}

	seen := make(map[key]struct{}, len(devices))
	uniq := make([]DeviceInfo, 0, len(devices))
	for _, d := range devices {
		if d.Path == "" {
			continue
		}
		k := key{iface: d.Interface, path: d.Path}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		uniq = append(uniq, d)
	}
	return uniq
}

// sortCandidates orders device interfaces by likelihood of being the panel's
// output interface: vendor-defined usage pages (>= 0xFF00) first, then higher
// interface numbers. Coolers typically expose a keyboard-like interface at a
// low interface number and the vendor output interface above it; no HID field
// definitively labels the display interface, so the ordering is best-effort
// and each candidate is validated with a real write on open.
func sortCandidates(devices []DeviceInfo) []DeviceInfo {
	sorted := make([]DeviceInfo, len(devices))
	copy(sorted, devices)

	sort.SliceStable(sorted, func(i, j int) bool {
		iv := sorted[i].UsagePage >= vendorUsagePageMin
		jv := sorted[j].UsagePage >= vendorUsagePageMin
		if iv != jv {
			return iv
		}
		return sorted[i].Interface > sorted[j].Interface
	})
	return sorted
}

// Candidates returns the deduplicated, priority-ordered device interfaces
// reported by the enumerator for the given vendor/product pair.
func Candidates(enumerate Enumerator, vendorID, productID uint16) ([]DeviceInfo, error) {
	devices, err := enumerate(vendorID, productID)
	if err != nil {
		return nil, err
	}
	return sortCandidates(uniqueDevices(devices)), nil
}
