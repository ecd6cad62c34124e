//go:build linux

package i2cdev

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	ioctlRdwr = 0x0707 // I2C_RDWR
	flagRead  = 0x0001 // I2C_M_RD
)

// i2cMsg mirrors struct i2c_msg from <linux/i2c.h>.
type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   uintptr
}

// rdwrData mirrors struct i2c_rdwr_ioctl_data.
type rdwrData struct {
	msgs  uintptr
	nmsgs uint32
}

// Bus is an open /dev/i2c-N device. Transactions are serialized.
type Bus struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// Open opens the bus device, e.g. /dev/i2c-1.
func Open(path string) (*Bus, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("i2cdev: open %s: %w", path, err)
	}

	return &Bus{f: f, path: path}, nil
}

// Tx writes w and then reads into r using a repeated start, as a single
// combined transaction.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	msgs := make([]i2cMsg, 0, 2)
	if len(w) > 0 {
		msgs = append(msgs, i2cMsg{addr: addr, len: uint16(len(w)), buf: uintptr(unsafe.Pointer(&w[0]))})
	}
	if len(r) > 0 {
		msgs = append(msgs, i2cMsg{addr: addr, flags: flagRead, len: uint16(len(r)), buf: uintptr(unsafe.Pointer(&r[0]))})
	}
	if len(msgs) == 0 {
		return nil
	}

	data := rdwrData{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: uint32(len(msgs))}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.f == nil {
		return fmt.Errorf("i2cdev: %s: %w", b.path, os.ErrClosed)
	}

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, b.f.Fd(), ioctlRdwr, uintptr(unsafe.Pointer(&data)))
	runtime.KeepAlive(w)
	runtime.KeepAlive(r)
	runtime.KeepAlive(msgs)
	if errno != 0 {
		return fmt.Errorf("i2cdev: tx to 0x%02x on %s: %w", addr, b.path, errno)
	}

	return nil
}

// Close releases the device.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.f == nil {
		return nil
	}
	err := b.f.Close()
	b.f = nil

	return err
}
