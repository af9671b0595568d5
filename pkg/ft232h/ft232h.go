// Package ft232h exposes the C-bus GPIO pins of an FTDI FT232H as HX711 clock and data lines.
package ft232h

import (
	"errors"
	"fmt"
	"sync"

	"github.com/yunginnanet/ft232h"
)

// DeviceInfo represents a snapshot of the device information for the [FT232H] device.
type DeviceInfo struct {
	Index       int
	Serial      string
	Description string
	ProductID   string
	VendorID    string
	IsOpen      bool
	IsHighSpeed bool
}

func (ft DeviceInfo) String() string {
	return fmt.Sprintf(
		"DeviceInfo{Index:%d, Serial:%s, Description:%s, ProductID:%s, VendorID:%s, IsOpen:%t, IsHighSpeed:%t}",
		ft.Index, ft.Serial, ft.Description, ft.ProductID, ft.VendorID, ft.IsOpen, ft.IsHighSpeed,
	)
}

var (
	ErrBadDescriptor = fmt.Errorf("invalid FT232H descriptor provided")
	ErrPinInUse      = errors.New("FT232H pin already claimed")
)

// FT232H represents an FT232H device.
type FT232H struct {
	*ft232h.FT232H
	info DeviceInfo

	mu      sync.Mutex
	claimed uint8 // C-bus pins handed out as lines
}

// Info returns a snapshot of the device information for the FT232H device. Read-only.
func (ft *FT232H) Info() DeviceInfo {
	vid, pid := ft.vidPid()
	return DeviceInfo{
		Index:       ft.Index(),
		Serial:      ft.Serial(),
		Description: ft.Desc(),
		ProductID:   pid,
		VendorID:    vid,
		IsOpen:      ft.IsOpen(),
		IsHighSpeed: ft.IsHiSpeed(),
	}
}

// String returns a string representation of the FT232H device. It includes the vendor ID, product ID, and description.
func (ft *FT232H) String() string {
	s := fmt.Sprintf("FT232H[%s:%s]: %s", ft.info.VendorID, ft.info.ProductID, ft.Desc())
	return s
}

// Close closes the underlying device. Lines obtained from [FT232H.Lines]
// should be closed first.
func (ft *FT232H) Close() error {
	return ft.FT232H.Close()
}

// ConnectFT232h opens the first FT232H, or the one matching choice.
func ConnectFT232h(choice ...Descriptor) (ft *FT232H, err error) {
	ft = &FT232H{}

	switch len(choice) {
	case 0:
		ft.FT232H, err = ft232h.New()
	case 1:
		desc := choice[0]
		if err = desc.Validate(); err != nil {
			return nil, ErrBadDescriptor
		}
		ft.FT232H, err = ft232h.OpenMask(desc.Mask())
	default:
		return nil, fmt.Errorf("invalid number of arguments")
	}

	if err != nil {
		return nil, err
	}

	ft.info = ft.Info()
	return ft, nil
}
