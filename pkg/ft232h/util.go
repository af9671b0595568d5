package ft232h

import (
	"fmt"

	"github.com/yunginnanet/ft232h"
)

func (ft *FT232H) vidPid() (vid string, pid string) {
	return fmt.Sprintf("%04x", ft.VID()), fmt.Sprintf("%04x", ft.PID())
}

func emptyMask(mask *ft232h.Mask) bool {
	return mask == nil || (mask.Serial == "" && mask.PID == "" && mask.VID == "" && mask.Desc == "" && mask.Index == "")
}

// cPin maps a C-bus position (0 for C0 through 7 for C7) to its pin.
func cPin(pos uint) (ft232h.CPin, error) {
	pin := ft232h.C(pos)
	if pin == 0 {
		return 0, fmt.Errorf("invalid C-bus pin C%d", pos)
	}
	return pin, nil
}
