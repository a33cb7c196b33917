//go:build !unix

package alloc

import "fmt"

func newMmapPlatform() (Platform, error) {
	return nil, fmt.Errorf("alloc: %s backend is only available on unix", BackendMmap)
}
