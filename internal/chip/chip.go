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

// Package chip implements the ST25R register protocol on top of a raw bus
// and exposes it as a st25r.Transport. The SPI and I2C adapters only differ
// in how a frame travels over the wire.
package chip

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	st25r "github.com/ZaparooProject/go-st25r"
	"github.com/ZaparooProject/go-st25r/internal/frame"
	"github.com/ZaparooProject/go-st25r/internal/transport"
)

// Bus carries one exchange with the chip. The first byte of w is the mode
// byte; r receives the bytes transferred after w.
type Bus interface {
	Tx(w, r []byte) error
	String() string
}

// ResetLine drives the optional hardware reset input
type ResetLine interface {
	Pulse(ctx context.Context) error
}

// InterruptLine is the optional IRQ output of the chip
type InterruptLine interface {
	WaitForInterrupt(timeout time.Duration) bool
}

// Default timings
const (
	DefaultResponseTimeout = 20 * time.Millisecond
	DefaultIRQPollInterval = 500 * time.Microsecond
	DefaultFieldGuardTime  = 5 * time.Millisecond
	DefaultFieldResetTime  = 5 * time.Millisecond

	identityRetries = 3
)

// Chip talks to an ST25R front end over a Bus
type Chip struct {
	bus             Bus
	reset           ResetLine
	irq             InterruptLine
	info            st25r.ChipInfo
	transportType   st25r.TransportType
	selected        []byte
	responseTimeout time.Duration
	pollInterval    time.Duration
	fieldGuard      time.Duration
	fieldReset      time.Duration
	mu              sync.Mutex
	keepField       bool
	fieldOn         bool
	resetPending    bool
}

// Option configures a Chip
type Option func(*Chip)

// WithResetLine pulses line at the start of every Reset
func WithResetLine(line ResetLine) Option {
	return func(c *Chip) {
		c.reset = line
	}
}

// WithInterruptLine waits on line instead of sleeping between interrupt
// register reads
func WithInterruptLine(line InterruptLine) Option {
	return func(c *Chip) {
		c.irq = line
	}
}

// WithResponseTimeout sets how long to wait for a tag answer
func WithResponseTimeout(timeout time.Duration) Option {
	return func(c *Chip) {
		if timeout > 0 {
			c.responseTimeout = timeout
		}
	}
}

// WithFieldTiming sets the guard time after switching the field on and the
// off time used to reset tags between cycles
func WithFieldTiming(guard, reset time.Duration) Option {
	return func(c *Chip) {
		c.fieldGuard = guard
		c.fieldReset = reset
	}
}

// WithTransportType sets the value reported by Type
func WithTransportType(t st25r.TransportType) Option {
	return func(c *Chip) {
		c.transportType = t
	}
}

// New creates a chip driver on bus. Nothing is sent until Reset.
func New(bus Bus, opts ...Option) *Chip {
	c := &Chip{
		bus:             bus,
		transportType:   st25r.TransportMock,
		responseTimeout: DefaultResponseTimeout,
		pollInterval:    DefaultIRQPollInterval,
		fieldGuard:      DefaultFieldGuardTime,
		fieldReset:      DefaultFieldResetTime,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reset restores the chip defaults, checks the IC identity and configures
// the receiver for ISO14443A
func (c *Chip) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reset != nil {
		if err := c.reset.Pulse(ctx); err != nil {
			return fmt.Errorf("reset pulse: %w", err)
		}
	}

	if err := c.command(CmdSetDefault); err != nil {
		return err
	}

	id, err := transport.WithRetry(ctx, transport.RetryConfig{
		Description: "identity",
		Port:        c.bus.String(),
		MaxRetries:  identityRetries,
		RetryDelay:  time.Millisecond,
	}, func() (byte, bool, error) {
		id, err := c.readReg(RegICIdentity)
		if err != nil {
			return 0, false, err
		}
		return id, id == 0x00 || id == 0xFF, nil
	})
	if err != nil {
		if errors.Is(err, st25r.ErrNoResponse) {
			return st25r.NewTransportError("identity", c.bus.String(), st25r.ErrChipNotFound, st25r.ErrorTypePermanent)
		}
		return err
	}
	c.info = Identify(id)
	st25r.Debugf("chip %s identity 0x%02X on %s", c.info.Model, id, c.bus.String())

	if err := c.writeRegs(
		RegOpCtrl, OpEnable|OpRXEnable,
		RegModeDef, ModeISO14443A,
		RegBitRate, 0x00,
		RegISO14443AConf, 0x00,
		RegNoResponseTimer1, 0x00,
		RegNoResponseTimer2, 0x23,
		RegMaskMainIntr, 0x00,
		RegMaskTimerIntr, 0x00,
		RegMaskErrorIntr, 0x00,
		RegMaskPassiveIntr, 0x00,
	); err != nil {
		return err
	}
	c.fieldOn = false
	c.selected = nil
	c.resetPending = false

	if c.keepField {
		return c.fieldOnLocked(ctx)
	}
	return nil
}

// Identify decodes an IC identity register value
func Identify(id byte) st25r.ChipInfo {
	info := st25r.ChipInfo{Identity: id, Revision: id & ICRevisionMask}
	switch id & ICTypeMask {
	case ICTypeST25R3911:
		info.Model = "ST25R3911"
	case ICTypeST25R3916:
		info.Model = "ST25R3916"
	case ICTypeST25R3916B:
		info.Model = "ST25R3916B"
	default:
		info.Model = "unknown"
	}
	return info
}

// ChipIdentity returns the identity read during the last Reset
func (c *Chip) ChipIdentity(_ context.Context) (st25r.ChipInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.info.Identity == 0 {
		return st25r.ChipInfo{}, st25r.ErrNotInitialized
	}
	return c.info, nil
}

// SetPower sets the RF driver output resistance; 15 is the strongest field
func (c *Chip) SetPower(_ context.Context, level int) error {
	if err := st25r.ValidatePowerLevel(level); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.readReg(RegTXDriver)
	if err != nil {
		return err
	}
	value := current&^TXDriverResMask | byte(st25r.MaxPowerLevel-level)&TXDriverResMask
	return c.writeReg(RegTXDriver, value)
}

// SetFieldEnabled keeps the RF field on between cycles when enabled.
// Otherwise the field is only switched on while looking for a tag.
func (c *Chip) SetFieldEnabled(ctx context.Context, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.keepField = enabled
	if enabled {
		return c.fieldOnLocked(ctx)
	}
	return c.fieldOffLocked()
}

func (c *Chip) fieldOnLocked(ctx context.Context) error {
	if c.fieldOn {
		return nil
	}
	if err := c.writeReg(RegOpCtrl, OpEnable|OpRXEnable|OpTXEnable); err != nil {
		return err
	}
	c.fieldOn = true
	return sleep(ctx, c.fieldGuard)
}

func (c *Chip) fieldOffLocked() error {
	if err := c.writeReg(RegOpCtrl, OpEnable|OpRXEnable); err != nil {
		return err
	}
	c.fieldOn = false
	c.selected = nil
	return nil
}

// ReadFieldStrength measures the RF amplitude and scales it to 0..1
func (c *Chip) ReadFieldStrength(ctx context.Context) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.fieldOnLocked(ctx); err != nil {
		return 0, err
	}
	if _, err := c.interrupts(); err != nil {
		return 0, err
	}
	if err := c.command(CmdMeasureAmplitude); err != nil {
		return 0, err
	}
	if _, err := c.waitIRQ(ctx, IRQDCT); err != nil {
		return 0, err
	}
	raw, err := c.readReg(RegADConvOut)
	if err != nil {
		return 0, err
	}
	return float64(raw) / 255, nil
}

// ReadFieldPresence looks for a tag and selects it. Tags left selected by
// the previous cycle are returned to IDLE by briefly dropping the field.
func (c *Chip) ReadFieldPresence(ctx context.Context) (st25r.Presence, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected != nil || c.resetPending {
		c.resetPending = false
		if err := c.fieldOffLocked(); err != nil {
			return st25r.NoTag, err
		}
		if err := sleep(ctx, c.fieldReset); err != nil {
			return st25r.NoTag, err
		}
	}
	if err := c.fieldOnLocked(ctx); err != nil {
		return st25r.NoTag, err
	}

	uid, err := c.selectTag(ctx)
	if err != nil {
		// A tag stuck halfway through anticollision ignores REQA
		if errors.Is(err, st25r.ErrPartialUID) {
			c.resetPending = true
		}
		if errors.Is(err, st25r.ErrNoResponse) {
			err = nil
		}
		if !c.keepField {
			if offErr := c.fieldOffLocked(); offErr != nil && err == nil {
				err = offErr
			}
		}
		return st25r.NoTag, err
	}

	c.selected = uid
	return st25r.TagPresence(uid), nil
}

func (c *Chip) selectTag(ctx context.Context) ([]byte, error) {
	if _, err := c.transceive(ctx, CmdTransmitREQA, nil, false); err != nil {
		return nil, err
	}

	var uid []byte
	for level := 1; level <= frame.MaxLevels; level++ {
		anticoll, err := frame.AnticollisionFrame(level)
		if err != nil {
			return nil, err
		}
		resp, err := c.transceive(ctx, CmdTransmitWithoutCRC, anticoll, true)
		if err != nil {
			return nil, c.partial(level, err)
		}
		part, err := frame.ParseAnticollision(resp)
		if err != nil {
			return nil, c.partial(level, err)
		}

		sel, err := frame.SelectFrame(level, part)
		if err != nil {
			return nil, err
		}
		resp, err = c.transceive(ctx, CmdTransmitWithCRC, sel, false)
		if err != nil {
			return nil, c.partial(level, err)
		}
		if len(resp) < 1 {
			return nil, c.partial(level, frame.ErrShortFrame)
		}

		cascade := resp[0]&frame.SAKCascade != 0
		uid = frame.AppendUIDPart(uid, part, cascade)
		if !cascade {
			st25r.Debugf("selected tag %X (SAK 0x%02X)", uid, resp[0])
			return uid, nil
		}
	}
	return nil, c.partial(frame.MaxLevels, errors.New("cascade beyond level 3"))
}

// partial reports a tag that answered REQA but dropped out during
// anticollision. It is a failed read, not an empty field.
func (c *Chip) partial(level int, err error) error {
	st25r.Debugf("anticollision level %d failed: %v", level, err)
	return st25r.NewTransportError(fmt.Sprintf("anticollision level %d", level), c.bus.String(),
		fmt.Errorf("%w: %v", st25r.ErrPartialUID, err), st25r.ErrorTypeTransient)
}

// WriteBlock writes one Type 2 page to the tag selected by the last
// presence read. Blocks shorter than a page are zero padded.
func (c *Chip) WriteBlock(ctx context.Context, address byte, data []byte) error {
	if len(data) > frame.T2TBlockSize {
		return st25r.NewTransportError("WriteBlock", c.bus.String(),
			fmt.Errorf("block of %d bytes exceeds page size %d", len(data), frame.T2TBlockSize),
			st25r.ErrorTypePermanent)
	}
	page := make([]byte, frame.T2TBlockSize)
	copy(page, data)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected == nil {
		return st25r.NewNoResponseError("WriteBlock", c.bus.String())
	}

	cmd, err := frame.WriteFrame(address, page)
	if err != nil {
		return err
	}
	resp, err := c.transceive(ctx, CmdTransmitWithCRC, cmd, false)
	if err != nil {
		if errors.Is(err, st25r.ErrNoResponse) {
			c.selected = nil
		}
		return err
	}
	if !frame.IsACK(resp) {
		return st25r.NewTransportError("WriteBlock", c.bus.String(),
			fmt.Errorf("%w: page %d answer %X", st25r.ErrWriteNAK, address, resp), st25r.ErrorTypePermanent)
	}
	return nil
}

// Close switches the field and the oscillator off. The bus itself belongs
// to the adapter.
func (c *Chip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fieldOn = false
	c.selected = nil
	return c.writeReg(RegOpCtrl, 0x00)
}

// Type implements st25r.Transport
func (c *Chip) Type() st25r.TransportType {
	return c.transportType
}

// transceive sends tx with the given transmit command and returns the
// FIFO content of the answer
func (c *Chip) transceive(ctx context.Context, cmd byte, tx []byte, anticollision bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.command(CmdClearFIFO); err != nil {
		return nil, err
	}
	if _, err := c.interrupts(); err != nil {
		return nil, err
	}

	var conf byte
	if anticollision {
		conf = ISO14443AAnticollision
	}
	if err := c.writeReg(RegISO14443AConf, conf); err != nil {
		return nil, err
	}

	if len(tx) > 0 {
		if err := c.writeRegs(
			RegNumTX1, byte(len(tx)>>5),
			RegNumTX2, byte(len(tx)&0x1F)<<3,
		); err != nil {
			return nil, err
		}
		if err := c.bus.Tx(append([]byte{LoadFIFO}, tx...), nil); err != nil {
			return nil, c.busError("load FIFO", err)
		}
	}

	if err := c.command(cmd); err != nil {
		return nil, err
	}

	irq, err := c.waitIRQ(ctx, IRQRXEnd|IRQNoResponse|IRQErrors)
	if err != nil {
		return nil, err
	}
	switch {
	case irq&IRQNoResponse != 0 && irq&IRQRXEnd == 0:
		return nil, st25r.NewNoResponseError(fmt.Sprintf("transceive 0x%02X", cmd), c.bus.String())
	case irq&IRQErrors != 0:
		return nil, st25r.NewTransportError(fmt.Sprintf("transceive 0x%02X", cmd), c.bus.String(),
			fmt.Errorf("%w: interrupt status 0x%08X", st25r.ErrTransportRead, irq), st25r.ErrorTypeTransient)
	}

	return c.readFIFO()
}

func (c *Chip) readFIFO() ([]byte, error) {
	status, err := c.readRegs(RegFIFOStatus1, 2)
	if err != nil {
		return nil, err
	}
	n := int(status[1]&FIFOStatus2HighMask)<<2 | int(status[0])
	if status[1]&FIFOStatus2Overflow != 0 {
		return nil, st25r.NewTransportError("read FIFO", c.bus.String(),
			fmt.Errorf("%w: FIFO overflow", st25r.ErrTransportRead), st25r.ErrorTypeTransient)
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if err := c.bus.Tx([]byte{ReadFIFO}, buf); err != nil {
		return nil, c.busError("read FIFO", err)
	}
	return buf, nil
}

// waitIRQ collects interrupt bits until one in want is set. The interrupt
// registers clear on read, so bits are accumulated across reads.
func (c *Chip) waitIRQ(ctx context.Context, want uint32) (uint32, error) {
	var seen uint32
	first := true
	interval := c.pollInterval
	if c.irq != nil {
		interval = 0
	}

	irq, err := transport.TimeoutRetry(ctx, c.responseTimeout, interval, func() (uint32, bool, error) {
		if c.irq != nil && !first {
			c.irq.WaitForInterrupt(c.pollInterval)
		}
		first = false

		irq, err := c.interrupts()
		if err != nil {
			return 0, false, err
		}
		seen |= irq
		return seen, seen&want == 0, nil
	})
	if err != nil {
		var te *st25r.TransportError
		if errors.As(err, &te) && te.Port == "" {
			te.Port = c.bus.String()
		}
		return 0, err
	}
	return irq, nil
}

func (c *Chip) interrupts() (uint32, error) {
	regs, err := c.readRegs(RegMainIntr, 4)
	if err != nil {
		return 0, err
	}
	return uint32(regs[0]) | uint32(regs[1])<<8 | uint32(regs[2])<<16 | uint32(regs[3])<<24, nil
}

func (c *Chip) readReg(reg byte) (byte, error) {
	regs, err := c.readRegs(reg, 1)
	if err != nil {
		return 0, err
	}
	return regs[0], nil
}

func (c *Chip) readRegs(reg byte, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := c.bus.Tx([]byte{ModeReadReg | reg&RegMask}, buf); err != nil {
		return nil, c.busError(fmt.Sprintf("read register 0x%02X", reg), err)
	}
	return buf, nil
}

func (c *Chip) writeReg(reg, value byte) error {
	if err := c.bus.Tx([]byte{ModeWriteReg | reg&RegMask, value}, nil); err != nil {
		return c.busError(fmt.Sprintf("write register 0x%02X", reg), err)
	}
	return nil
}

// writeRegs writes (register, value) pairs
func (c *Chip) writeRegs(pairs ...byte) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := c.writeReg(pairs[i], pairs[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chip) command(cmd byte) error {
	if err := c.bus.Tx([]byte{cmd}, nil); err != nil {
		return c.busError(fmt.Sprintf("command 0x%02X", cmd), err)
	}
	return nil
}

func (c *Chip) busError(op string, err error) error {
	var te *st25r.TransportError
	if errors.As(err, &te) {
		return err
	}
	return st25r.NewTransportError(op, c.bus.String(), fmt.Errorf("%w: %w", st25r.ErrTransportWrite, err),
		st25r.ErrorTypeTransient)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var (
	_ st25r.Transport      = (*Chip)(nil)
	_ st25r.FieldSwitcher  = (*Chip)(nil)
	_ st25r.ChipIdentifier = (*Chip)(nil)
)
