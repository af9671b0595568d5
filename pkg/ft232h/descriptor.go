package ft232h

import (
	"fmt"
	"strconv"

	"github.com/yunginnanet/ft232h"
)

// Descriptor selects which FT232H to open when more than one is attached.
type Descriptor struct {
	Index  int
	Serial string
	mask   *ft232h.Mask
}

// Validate checks if [Descriptor] identifies a device at all.
func (ftd Descriptor) Validate() error {
	if ftd.Index < 0 && ftd.Serial == "" && emptyMask(ftd.mask) {
		return ErrBadDescriptor
	}
	return nil
}

// Mask builds the [ft232h.Mask] used to match the device. The descriptor's
// own mask, if any, is copied rather than modified.
func (ftd Descriptor) Mask() *ft232h.Mask {
	mask := new(ft232h.Mask)
	if ftd.mask != nil {
		*mask = *ftd.mask
	}
	if ftd.Serial != "" {
		mask.Serial = ftd.Serial
	}
	if ftd.Index >= 0 {
		mask.Index = strconv.Itoa(ftd.Index)
	}
	return mask
}

func (ftd Descriptor) String() string {
	return fmt.Sprintf("Descriptor{Index:%d, Serial:%s, mask:%v}", ftd.Index, ftd.Serial, ftd.mask)
}

func ByIndex(index int) Descriptor {
	return Descriptor{Index: index}
}

func BySerial(serial string) Descriptor {
	return Descriptor{Serial: serial, Index: -1}
}

func ByMask(mask *ft232h.Mask) Descriptor {
	return Descriptor{mask: mask, Index: -1}
}

// Select prefers a serial number over an index, the way the CLI takes them.
// An empty serial and negative index select the first device.
func Select(index int, serial string) []Descriptor {
	switch {
	case serial != "":
		return []Descriptor{BySerial(serial)}
	case index >= 0:
		return []Descriptor{ByIndex(index)}
	default:
		return nil
	}
}
