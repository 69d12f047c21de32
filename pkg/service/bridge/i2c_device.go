// Copyright 2026 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package bridge

import (
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	// From /usr/include/linux/i2c-dev.h
	i2cSlave = 0x0703
	i2cFuncs = 0x0705
	i2cSMBus = 0x0720

	i2cSMBusRead  = 1
	i2cSMBusWrite = 0

	// From /usr/include/linux/i2c.h
	i2cFuncSMBusReadByteData  = 0x00080000
	i2cFuncSMBusWriteByteData = 0x00100000

	i2cSMBusByteData = 2
)

type i2cSMBusIoctlData struct {
	readWrite byte
	command   byte
	size      uint32
	data      uintptr
}

type i2cDevice struct {
	address uint8
	file    *os.File
	funcs   uint64 // adapter functionality mask
}

// newI2CDevice opens the device with given address on the bus at given location.
func newI2CDevice(location string, address uint8) (*i2cDevice, error) {
	f, err := os.OpenFile(location, os.O_RDWR, os.ModeDevice)
	if err != nil {
		return nil, maskAny(err)
	}
	d := &i2cDevice{
		address: address,
		file:    f,
	}
	if err := d.ioctl(i2cFuncs, uintptr(unsafe.Pointer(&d.funcs))); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "querying functionality failed")
	}
	if err := d.ioctl(i2cSlave, uintptr(address)); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "setting address 0x%02x failed", address)
	}
	return d, nil
}

func (d *i2cDevice) closeFile() error {
	return d.file.Close()
}

// ReadByteReg reads a byte from given register
func (d *i2cDevice) ReadByteReg(reg uint8) (uint8, error) {
	if d.funcs&i2cFuncSMBusReadByteData == 0 {
		return 0, errors.New("SMBus read byte data not supported")
	}
	var data uint8
	if err := d.smbusAccess(i2cSMBusRead, reg, uintptr(unsafe.Pointer(&data))); err != nil {
		return 0, errors.Wrapf(err, "readByteData[0x%02x](0x%02x) failed", d.address, reg)
	}
	return data, nil
}

// WriteByteReg writes a byte to given register
func (d *i2cDevice) WriteByteReg(reg uint8, val uint8) error {
	if d.funcs&i2cFuncSMBusWriteByteData == 0 {
		return errors.New("SMBus write byte data not supported")
	}
	data := val
	if err := d.smbusAccess(i2cSMBusWrite, reg, uintptr(unsafe.Pointer(&data))); err != nil {
		return errors.Wrapf(err, "writeByteData[0x%02x](0x%02x, 0x%02x) failed", d.address, reg, val)
	}
	return nil
}

func (d *i2cDevice) smbusAccess(readWrite, command byte, data uintptr) error {
	req := &i2cSMBusIoctlData{
		readWrite: readWrite,
		command:   command,
		size:      i2cSMBusByteData,
		data:      data,
	}
	return d.ioctl(i2cSMBus, uintptr(unsafe.Pointer(req)))
}

func (d *i2cDevice) ioctl(request, arg uintptr) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.file.Fd(), request, arg); errno != 0 {
		return errno
	}
	return nil
}
