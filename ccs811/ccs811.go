// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ccs811

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

const (
	// DefaultAddress is the address with the ADDR pin low. 0x5B when high.
	DefaultAddress uint16 = 0x5A
	// ExpectedHardwareID is the content of the HW_ID register on every CCS811.
	ExpectedHardwareID byte = 0x81
)

const (
	regStatus     byte = 0x00
	regMeasMode   byte = 0x01
	regAlgResult  byte = 0x02
	regRawData    byte = 0x03
	regEnvData    byte = 0x05
	regBaseline   byte = 0x11
	regHardwareID byte = 0x20
	regErrorID    byte = 0xE0
	regAppStart   byte = 0xF4
)

const (
	maxECO2 = 8192
	maxTVOC = 1187
	// ENV_DATA temperature is stored with a +25°C offset so that it is never
	// negative.
	temperatureOffset = 25.0
)

// Register reads. All of them are a one byte select frame followed by a
// fixed size response, sized by the caller's buffer.
type command struct {
	reg byte
	// True if the bus is left to settle before the select frame.
	settle bool
}

var cmdHardwareID = command{reg: regHardwareID}
var cmdStatus = command{reg: regStatus, settle: true}
var cmdErrorID = command{reg: regErrorID, settle: true}
var cmdMeasMode = command{reg: regMeasMode, settle: true}
var cmdRawData = command{reg: regRawData, settle: true}
var cmdAlgResult = command{reg: regAlgResult, settle: true}
var cmdBaseline = command{reg: regBaseline, settle: true}

// PPM is an eCO2 concentration in parts per million.
type PPM uint16

func (p PPM) String() string {
	return strconv.Itoa(int(p)) + "ppm"
}

// PPB is a TVOC concentration in parts per billion.
type PPB uint16

func (p PPB) String() string {
	return strconv.Itoa(int(p)) + "ppb"
}

// Baseline is the opaque calibration value of the algorithm.
type Baseline uint16

func (b Baseline) String() string {
	return fmt.Sprintf("0x%04x", uint16(b))
}

// Status is the content of the STATUS register.
type Status byte

const (
	StatusError     Status = 1 << 0
	StatusDataReady Status = 1 << 3
	// A valid application firmware is loaded.
	StatusAppValid Status = 1 << 4
	// Set once the device switched from boot to application mode.
	StatusFirmwareMode Status = 1 << 7
)

// HasError is true when ERROR_ID holds an error.
func (s Status) HasError() bool {
	return s&StatusError != 0
}

// DataReady is true when a new algorithm result is available.
func (s Status) DataReady() bool {
	return s&StatusDataReady != 0
}

// AppValid is true when a valid application firmware is loaded.
func (s Status) AppValid() bool {
	return s&StatusAppValid != 0
}

// FirmwareMode is true in application mode, false in boot mode.
func (s Status) FirmwareMode() bool {
	return s&StatusFirmwareMode != 0
}

func (s Status) String() string {
	return fmt.Sprintf("0b%08b", byte(s))
}

// ErrorCode is the decoded ERROR_ID register.
type ErrorCode byte

const (
	WriteRegInvalid ErrorCode = iota
	ReadRegInvalid
	MeasModeInvalid
	MaxResistance
	HeaterFault
	HeaterSupply
)

var errorCodeNames = [...]string{
	"WRITE_REG_INVALID",
	"READ_REG_INVALID",
	"MEASMODE_INVALID",
	"MAX_RESISTANCE",
	"HEATER_FAULT",
	"HEATER_SUPPLY",
}

func (e ErrorCode) String() string {
	if int(e) < len(errorCodeNames) {
		return errorCodeNames[e]
	}
	return fmt.Sprintf("ErrorCode(%d)", byte(e))
}

func decodeErrorCode(b byte) (ErrorCode, error) {
	if int(b) >= len(errorCodeNames) {
		return 0, &InvalidErrorCodeError{Code: b}
	}
	return ErrorCode(b), nil
}

// DriveMode selects the sampling period of the sensor.
type DriveMode byte

const (
	DriveModeIdle DriveMode = iota
	DriveMode1s
	DriveMode10s
	DriveMode60s
	// Raw data only, the algorithm result is not updated.
	DriveMode250ms
)

// MeasMode is the content of the MEAS_MODE register. It is written verbatim
// by Configure.
type MeasMode byte

// NewMeasMode builds a MeasMode from its fields.
func NewMeasMode(drive DriveMode, intDataReady, intThreshold bool) MeasMode {
	m := MeasMode(drive&0x07) << 4
	if intDataReady {
		m |= 1 << 3
	}
	if intThreshold {
		m |= 1 << 2
	}
	return m
}

// DriveMode returns the sampling period field.
func (m MeasMode) DriveMode() DriveMode {
	return DriveMode(m>>4) & 0x07
}

// InterruptDataReady is true when nINT is asserted on new data.
func (m MeasMode) InterruptDataReady() bool {
	return m&(1<<3) != 0
}

// InterruptThreshold is true when nINT only fires on threshold crossing.
func (m MeasMode) InterruptThreshold() bool {
	return m&(1<<2) != 0
}

func (m MeasMode) String() string {
	return fmt.Sprintf("0b%b", byte(m))
}

// RawData is the RAW_DATA register: the current through the sensor in bits
// 15:10 and the voltage across it in bits 9:0.
type RawData uint16

// Current returns the sensor current, 0 to 63µA.
func (r RawData) Current() physic.ElectricCurrent {
	return physic.ElectricCurrent(r>>10) * physic.MicroAmpere
}

// Voltage returns the voltage across the sensor, 1.65V full scale.
func (r RawData) Voltage() physic.ElectricPotential {
	return physic.ElectricPotential(float64(r&0x3ff) * 1.65 / 1023 * float64(physic.Volt))
}

// Result is a decoded ALG_RESULT_DATA read.
type Result struct {
	ECO2      PPM
	ECO2Valid bool
	TVOC      PPB
	TVOCValid bool
	Status    Status
	ErrorID   ErrorCode
	Raw       RawData
}

// Err returns an InvalidMeasurementError per out of range field, or nil.
func (r *Result) Err() error {
	var errs []error
	if !r.ECO2Valid {
		errs = append(errs, &InvalidMeasurementError{Field: "eCO2", Value: uint16(r.ECO2), Max: maxECO2})
	}
	if !r.TVOCValid {
		errs = append(errs, &InvalidMeasurementError{Field: "TVOC", Value: uint16(r.TVOC), Max: maxTVOC})
	}
	return errors.Join(errs...)
}

func (r *Result) String() string {
	eco2, tvoc := r.ECO2.String(), r.TVOC.String()
	if !r.ECO2Valid {
		eco2 = "ERROR"
	}
	if !r.TVOCValid {
		tvoc = "ERROR"
	}
	return fmt.Sprintf("eCO2: %s TVOC: %s status: %s error: %s raw: %d", eco2, tvoc, r.Status, r.ErrorID, r.Raw)
}

func decodeResult(b []byte) (*Result, error) {
	code, err := decodeErrorCode(b[5])
	if err != nil {
		return nil, err
	}
	r := &Result{
		ECO2:    PPM(binary.BigEndian.Uint16(b[0:2])),
		TVOC:    PPB(binary.BigEndian.Uint16(b[2:4])),
		Status:  Status(b[4]),
		ErrorID: code,
		Raw:     RawData(binary.BigEndian.Uint16(b[6:8])),
	}
	r.ECO2Valid = r.ECO2 <= maxECO2
	r.TVOCValid = r.TVOC <= maxTVOC
	return r, nil
}

// EncodeCompensation converts a temperature in °C and a relative humidity in
// % to the four ENV_DATA bytes: humidity then temperature, each as an integer
// part in units of 0.5 followed by the remainder in units of 1/512.
func EncodeCompensation(temperature, humidity float64) ([4]byte, error) {
	var out [4]byte
	h1, h2, err := encodeFraction(round2(humidity))
	if err != nil {
		return out, err
	}
	t1, t2, err := encodeFraction(round2(temperature) + temperatureOffset)
	if err != nil {
		return out, err
	}
	out[0], out[1], out[2], out[3] = h1, h2, t1, t2
	return out, nil
}

func encodeFraction(v float64) (byte, byte, error) {
	if !(v >= 0 && v < 128) {
		return 0, 0, ErrCompensationRange
	}
	hi := math.Floor(v / 0.5)
	lo := math.Trunc(v*512 - hi*256)
	return byte(hi), byte(lo), nil
}

// round2 rounds to 2 decimals, ties to even.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// Opts holds the configuration options for the device.
type Opts struct {
	// MaxAttempts is the number of consecutive failed transactions after which
	// ErrExhaustedRetries is returned. Default is 10.
	MaxAttempts int
	// SettleDelay is waited twice after (re)opening the channel and before
	// most register selects. Default is 15ms.
	SettleDelay time.Duration
	// ResponseDelay is waited between a register select and its read.
	// Default is 62.5ms.
	ResponseDelay time.Duration
	// Logger receives reconnection and decode messages. Defaults to the
	// logrus standard logger.
	Logger logrus.FieldLogger
}

// DefaultOpts holds the default configuration options for the device.
var DefaultOpts = Opts{
	MaxAttempts:   10,
	SettleDelay:   15 * time.Millisecond,
	ResponseDelay: 62500 * time.Microsecond,
}

// Dev is a handle to a CCS811. Operations are serialized; the device keeps
// the selected register between a write and the following read so
// transactions must never interleave.
type Dev struct {
	opener Opener
	bus    int
	addr   uint16
	opts   Opts

	mu       sync.Mutex
	c        Conn
	attempts int
	closed   bool
}

// New opens the device at addr on bus number bus through o. Use Devfs{} for
// the kernel i2c-dev interface or BusOpener{} for the periph registry.
// The Opts can be nil.
func New(o Opener, bus int, addr uint16, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{opener: o, bus: bus, addr: addr, opts: *opts}
	if d.opts.MaxAttempts <= 0 {
		d.opts.MaxAttempts = DefaultOpts.MaxAttempts
	}
	if d.opts.Logger == nil {
		d.opts.Logger = logrus.StandardLogger()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.connect(); err != nil {
		return nil, err
	}
	return d, nil
}

// NewI2C returns a Dev on an already opened bus. Reconnecting rebinds the
// address on the same bus and Close leaves the bus open.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	return New(sharedBus{b: b}, -1, addr, opts)
}

func (d *Dev) String() string {
	if d.bus < 0 {
		return fmt.Sprintf("ccs811{0x%02x}", d.addr)
	}
	return fmt.Sprintf("ccs811{bus %d, 0x%02x}", d.bus, d.addr)
}

// HardwareID returns the HW_ID register.
func (d *Dev) HardwareID() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b [1]byte
	if err := d.readRegister(cmdHardwareID, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// CheckHardwareID returns a HardwareIDError when the device is not a CCS811.
func (d *Dev) CheckHardwareID() error {
	id, err := d.HardwareID()
	if err != nil {
		return err
	}
	if id != ExpectedHardwareID {
		return &HardwareIDError{Got: id, Want: ExpectedHardwareID}
	}
	return nil
}

// ReadStatus returns the STATUS register.
func (d *Dev) ReadStatus() (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b [1]byte
	if err := d.readRegister(cmdStatus, b[:]); err != nil {
		return 0, err
	}
	return Status(b[0]), nil
}

// CheckError reads ERROR_ID when s has its error flag set. It returns false,
// without any transaction, otherwise.
func (d *Dev) CheckError(s Status) (ErrorCode, bool, error) {
	if !s.HasError() {
		return 0, false, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var b [1]byte
	if err := d.readRegister(cmdErrorID, b[:]); err != nil {
		return 0, false, err
	}
	code, err := decodeErrorCode(b[0])
	if err != nil {
		return 0, false, err
	}
	return code, true, nil
}

// CheckDataReady is true when s signals a new algorithm result.
func CheckDataReady(s Status) bool {
	return s.DataReady()
}

// Configure switches the device from boot to application mode and writes m to
// MEAS_MODE.
func (d *Dev) Configure(m MeasMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.write([]byte{regAppStart}); err != nil {
		return err
	}
	time.Sleep(d.opts.ResponseDelay)
	if err := d.write([]byte{regMeasMode, byte(m), 0x00}); err != nil {
		return err
	}
	time.Sleep(d.opts.SettleDelay)
	return nil
}

// ReadMeasMode returns the MEAS_MODE register.
func (d *Dev) ReadMeasMode() (MeasMode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b [1]byte
	if err := d.readRegister(cmdMeasMode, b[:]); err != nil {
		return 0, err
	}
	return MeasMode(b[0]), nil
}

// ReadRaw returns the RAW_DATA register.
func (d *Dev) ReadRaw() (RawData, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b [2]byte
	if err := d.readRegister(cmdRawData, b[:]); err != nil {
		return 0, err
	}
	return RawData(binary.BigEndian.Uint16(b[:])), nil
}

// ReadAlgorithmResult reads and decodes ALG_RESULT_DATA. Out of range eCO2 or
// TVOC values are flagged in the Result, see Result.Err. An out of range error
// id returns an InvalidErrorCodeError and no Result.
func (d *Dev) ReadAlgorithmResult() (*Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b [8]byte
	if err := d.readRegister(cmdAlgResult, b[:]); err != nil {
		return nil, err
	}
	r, err := decodeResult(b[:])
	if err != nil {
		d.opts.Logger.Error(err)
		return nil, err
	}
	if err := r.Err(); err != nil {
		d.opts.Logger.Error(err)
	}
	return r, nil
}

// ReadBaseline returns the BASELINE register.
func (d *Dev) ReadBaseline() (Baseline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b [2]byte
	if err := d.readRegister(cmdBaseline, b[:]); err != nil {
		return 0, err
	}
	return Baseline(binary.BigEndian.Uint16(b[:])), nil
}

// SetBaseline writes a value previously returned by ReadBaseline.
func (d *Dev) SetBaseline(v Baseline) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opts.Logger.Infof("ccs811: setting baseline to %s", v)
	w := []byte{regBaseline, 0, 0, 0x00}
	binary.BigEndian.PutUint16(w[1:3], uint16(v))
	if err := d.write(w); err != nil {
		return err
	}
	time.Sleep(d.opts.SettleDelay)
	return nil
}

// SetCompensation feeds the ambient temperature and humidity to the
// algorithm. Both are rounded to 2 decimals first.
func (d *Dev) SetCompensation(t physic.Temperature, h physic.RelativeHumidity) error {
	celsius := t.Celsius()
	percent := float64(h) / float64(physic.PercentRH)
	env, err := EncodeCompensation(celsius, percent)
	if err != nil {
		return fmt.Errorf("%w: %.2f°C %.2f%%rH", err, celsius, percent)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opts.Logger.Debugf("ccs811: setting compensation to %.2f°C and %.2f%%", celsius, percent)
	return d.write([]byte{regEnvData, env[0], env[1], env[2], env[3], 0x00})
}

// Halt puts the sensor in idle mode. Implements conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write([]byte{regMeasMode, byte(NewMeasMode(DriveModeIdle, false, false)), 0x00})
}

// Close releases the channel. The Dev cannot be used afterward.
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.c == nil {
		return nil
	}
	err := d.c.Close()
	d.c = nil
	return err
}

// readRegister selects cmd.reg and reads len(r) bytes back. d.mu must be held.
func (d *Dev) readRegister(cmd command, r []byte) error {
	if cmd.settle {
		time.Sleep(d.opts.SettleDelay)
	}
	if err := d.write([]byte{cmd.reg}); err != nil {
		return err
	}
	time.Sleep(d.opts.ResponseDelay)
	return d.read(r)
}
