package instrulink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// ListPorts returns the serial ports currently present on the host,
// sorted. This is the same enumeration ScanPorts walks when the link
// uses the default serial driver.
func ListPorts() ([]string, error) {
	return serialDriver{}.Enumerate()
}

// PortInfo describes one serial port, with USB metadata when the port
// hangs off a USB adapter.
type PortInfo struct {
	Name         string
	Path         string
	Description  string
	VendorID     string
	ProductID    string
	SerialNumber string
	BusNumber    string
	DeviceNumber string
	Accessible   bool // current process may open the port read/write
}

// ListPortInfo returns detailed information for every available port.
func ListPortInfo() ([]*PortInfo, error) {
	ports, err := ListPorts()
	if err != nil {
		return nil, err
	}
	infos := make([]*PortInfo, 0, len(ports))
	for _, port := range ports {
		info, err := GetPortInfo(port)
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// GetPortInfo returns detailed information about a specific port.
func GetPortInfo(portPath string) (*PortInfo, error) {
	if !isCharacterDevice(portPath) {
		return nil, fmt.Errorf("%s: %w", portPath, ErrPortNotFound)
	}

	name := filepath.Base(portPath)
	info := &PortInfo{
		Name:        name,
		Path:        portPath,
		Description: portDescription(name),
		Accessible:  unix.Access(portPath, unix.R_OK|unix.W_OK) == nil,
	}

	if strings.HasPrefix(name, "ttyUSB") || strings.HasPrefix(name, "ttyACM") {
		enrichUSBInfo(info)
	}

	return info, nil
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	stat, err := os.Stat(path)
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice != 0
}

// portDescription provides human-readable descriptions for different port types
func portDescription(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	default:
		return "Serial Port"
	}
}

// enrichUSBInfo fills in USB metadata from sysfs. The device symlink
// under /sys/class/tty/<name>/ lands inside the USB interface; the
// directory that carries idVendor is the USB device itself, a level
// or two up depending on the driver.
func enrichUSBInfo(info *PortInfo) {
	devLink := filepath.Join("/sys/class/tty", info.Name, "device")
	dir, err := filepath.EvalSymlinks(devLink)
	if err != nil {
		return
	}

	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "idVendor")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
	if _, err := os.Stat(filepath.Join(dir, "idVendor")); err != nil {
		return
	}

	info.VendorID = sysfsAttr(dir, "idVendor")
	info.ProductID = sysfsAttr(dir, "idProduct")
	info.SerialNumber = sysfsAttr(dir, "serial")
	info.BusNumber = sysfsAttr(dir, "busnum")
	info.DeviceNumber = sysfsAttr(dir, "devnum")

	product := sysfsAttr(dir, "product")
	manufacturer := sysfsAttr(dir, "manufacturer")
	switch {
	case product != "" && manufacturer != "":
		info.Description = manufacturer + " " + product
	case product != "":
		info.Description = product
	}
}

func sysfsAttr(dir, name string) string {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
