//go:build windows

package winregistry

// Open returns the registry of host (the local machine when empty) in the given view.
func Open(host, arch string) Store {
	return LiveStore{Host: host, Arch: arch}
}
