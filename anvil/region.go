package anvil

import (
	"fmt"
	"strconv"
	"strings"
)

// RegionFileName returns the name of the region file holding chunk (cx, cz). Regions group 32x32 chunks, so the
// coordinates are shifted right by five; the arithmetic shift floors negative coordinates towards -infinity.
func RegionFileName(cx, cz int) string {
	return fmt.Sprintf("r.%d.%d.mca", cx>>5, cz>>5)
}

// ParseRegionFileName extracts the region coordinates from a name of the form r.<x>.<z>.mca.
func ParseRegionFileName(name string) (x, z int, err error) {
	parts := strings.Split(name, ".")
	if len(parts) != 4 || parts[0] != "r" || parts[3] != "mca" {
		return 0, 0, fmt.Errorf("anvil: %q is not a region file name", name)
	}
	if x, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("anvil: region x in %q: %w", name, err)
	}
	if z, err = strconv.Atoi(parts[2]); err != nil {
		return 0, 0, fmt.Errorf("anvil: region z in %q: %w", name, err)
	}
	return x, z, nil
}
