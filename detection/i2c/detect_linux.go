// go-st25r
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-st25r.
//
// go-st25r is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-st25r is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-st25r; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

//go:build linux

package i2c

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"unsafe"

	"github.com/ZaparooProject/go-st25r/detection"
	"github.com/ZaparooProject/go-st25r/internal/chip"
	"golang.org/x/sys/unix"
)

const (
	// i2cFuncs is the ioctl command to get adapter functionality
	i2cFuncs = 0x0705
	// i2cRdwr runs combined transactions with a repeated start
	i2cRdwr = 0x0707

	// i2cFuncI2C indicates plain I2C support
	i2cFuncI2C = 0x00000001
	// i2cMsgRead marks the read half of a combined transaction
	i2cMsgRead = 0x0001
)

// i2cMsg mirrors struct i2c_msg
type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   unsafe.Pointer
}

// i2cRdwrData mirrors struct i2c_rdwr_ioctl_data
type i2cRdwrData struct {
	msgs  unsafe.Pointer
	nmsgs uint32
}

// detectLinux searches for ST25R devices on Linux I2C buses
func detectLinux(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	buses, err := findI2CBuses()
	if err != nil {
		return nil, err
	}
	if len(buses) == 0 {
		return nil, detection.ErrNoDevicesFound
	}

	var devices []detection.DeviceInfo
	for _, bus := range buses {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}
		for _, addr := range candidateAddresses {
			path := fmt.Sprintf("%s:0x%02X", bus, addr)
			if detection.IsPathIgnored(path, opts.IgnorePaths) {
				continue
			}

			var id byte
			var probeErr error
			if opts.Mode != detection.Passive {
				id, probeErr = readIdentity(bus, addr)
			}
			if device, keep := deviceInfo(bus, addr, id, probeErr, opts.Mode); keep {
				devices = append(devices, device)
			}
		}
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// findI2CBuses lists the /dev/i2c-* adapters that support plain I2C
func findI2CBuses() ([]string, error) {
	matches, err := filepath.Glob("/dev/i2c-*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan for I2C devices: %w", err)
	}

	buses := make([]string, 0, len(matches))
	for _, path := range matches {
		fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
		if err != nil {
			continue
		}
		funcs, err := unix.IoctlGetUint32(fd, i2cFuncs)
		_ = unix.Close(fd)
		if err != nil || funcs&i2cFuncI2C == 0 {
			continue
		}
		buses = append(buses, path)
	}
	return buses, nil
}

// readIdentity reads the IC identity register with a write of the read
// mode byte followed by a repeated start read
func readIdentity(busPath string, addr uint16) (byte, error) {
	fd, err := unix.Open(busPath, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", busPath, err)
	}
	defer func() { _ = unix.Close(fd) }()

	w := []byte{chip.ModeReadReg | chip.RegICIdentity}
	r := make([]byte, 1)
	msgs := []i2cMsg{
		{addr: addr, len: uint16(len(w)), buf: unsafe.Pointer(&w[0])},
		{addr: addr, flags: i2cMsgRead, len: uint16(len(r)), buf: unsafe.Pointer(&r[0])},
	}
	data := i2cRdwrData{msgs: unsafe.Pointer(&msgs[0]), nmsgs: uint32(len(msgs))}

	// #nosec G103 -- unsafe pointer required for ioctl system call
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), i2cRdwr, uintptr(unsafe.Pointer(&data)))
	runtime.KeepAlive(w)
	runtime.KeepAlive(r)
	runtime.KeepAlive(msgs)
	if errno != 0 {
		return 0, fmt.Errorf("identity read at 0x%02X on %s: %w", addr, busPath, errno)
	}
	return r[0], nil
}
