package config

import (
	"encoding/json"
	"errors"
	"strconv"

	"sigreplay/core"
)

// PinConfig holds GPIO numbers. Optional pins use -1 for "not wired".
type PinConfig struct {
	SignalInput  int `json:"signal_input"`
	SignalOutput int `json:"signal_output"`
	LED          int `json:"led"`
	ListenButton int `json:"listen_button"`
	ReplayButton int `json:"replay_button"`
}

// StoreConfig describes the EEPROM the signal is persisted to
type StoreConfig struct {
	Capacity    int    `json:"capacity"`     // bytes
	Start       int    `json:"start"`        // record offset
	I2CAddress  uint16 `json:"i2c_address"`  // AT24Cxx address
	PageSize    uint16 `json:"page_size"`    // AT24Cxx page size
	I2CFreqHz   uint32 `json:"i2c_freq_hz"`  // bus frequency
	SDA         int    `json:"sda"`          // I2C data pin
	SCL         int    `json:"scl"`          // I2C clock pin
	FallbackRAM bool   `json:"fallback_ram"` // use RAM if the EEPROM is absent
}

// BlinkConfig is an LED blink sequence in milliseconds
type BlinkConfig struct {
	Times int    `json:"times"`
	OnMS  uint32 `json:"on_ms"`
	OffMS uint32 `json:"off_ms"`
}

// Config is the complete firmware configuration
type Config struct {
	Pins             PinConfig   `json:"pins"`
	ButtonsActiveLow *bool       `json:"buttons_active_low"`
	ButtonDebounceMS uint32      `json:"button_debounce_ms"` // ignore button edges closer than this
	BufferSize       int         `json:"buffer_size"`        // max samples per recording
	Store            StoreConfig `json:"store"`

	ReplayRepeat int         `json:"replay_repeat"`
	ReplayGapMS  uint32      `json:"replay_gap_ms"`
	SaveBlink    BlinkConfig `json:"save_blink"`
	ReplayBlink  BlinkConfig `json:"replay_blink"`

	Debug bool `json:"debug"`
	Comms bool `json:"comms"`
}

// LoadConfig parses a JSON configuration and applies defaults
func LoadConfig(jsonData []byte) (*Config, error) {
	var config Config

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyDefaults fills in missing configuration values
func applyDefaults(config *Config) {
	if config.ButtonsActiveLow == nil {
		activeLow := true
		config.ButtonsActiveLow = &activeLow
	}

	if config.ButtonDebounceMS == 0 {
		config.ButtonDebounceMS = 50
	}

	if config.BufferSize == 0 {
		config.BufferSize = 32
	}

	// AT24C32 on the default I2C0 pins
	if config.Store.Capacity == 0 {
		config.Store.Capacity = 4096
	}
	if config.Store.I2CAddress == 0 {
		config.Store.I2CAddress = 0x50
	}
	if config.Store.PageSize == 0 {
		config.Store.PageSize = 32
	}
	if config.Store.I2CFreqHz == 0 {
		config.Store.I2CFreqHz = 400000
	}

	if config.ReplayRepeat == 0 {
		config.ReplayRepeat = 6
	}
	if config.ReplayGapMS == 0 {
		config.ReplayGapMS = 100
	}
	if config.SaveBlink == (BlinkConfig{}) {
		config.SaveBlink = BlinkConfig{Times: 2, OnMS: 250, OffMS: 250}
	}
	if config.ReplayBlink == (BlinkConfig{}) {
		config.ReplayBlink = BlinkConfig{Times: 6, OnMS: 15, OffMS: 15}
	}
}

var (
	errBufferSize = errors.New("buffer_size must be positive")
	errRepeat     = errors.New("replay_repeat must be positive")
)

// Validate checks pins are distinct and the record fits the store
func (c *Config) Validate() error {
	if c.BufferSize <= 0 {
		return errBufferSize
	}
	if c.ReplayRepeat <= 0 {
		return errRepeat
	}
	if c.Pins.SignalInput < 0 || c.Pins.SignalOutput < 0 {
		return errors.New("signal_input and signal_output are required")
	}

	seen := make(map[int]string)
	pins := []struct {
		name string
		pin  int
	}{
		{"signal_input", c.Pins.SignalInput},
		{"signal_output", c.Pins.SignalOutput},
		{"led", c.Pins.LED},
		{"listen_button", c.Pins.ListenButton},
		{"replay_button", c.Pins.ReplayButton},
	}
	for _, p := range pins {
		if p.pin < 0 {
			continue
		}
		if other, dup := seen[p.pin]; dup {
			return errors.New("pin " + strconv.Itoa(p.pin) + " used by both " + other + " and " + p.name)
		}
		seen[p.pin] = p.name
	}

	if c.Store.Start < 0 {
		return errors.New("store start must not be negative")
	}
	need := c.Store.Start + core.SpaceNeeded(c.BufferSize)
	if need > c.Store.Capacity {
		return errors.New("store capacity " + strconv.Itoa(c.Store.Capacity) +
			" too small for " + strconv.Itoa(c.BufferSize) + " samples (need " + strconv.Itoa(need) + ")")
	}
	if c.Store.Capacity > 0xFFFF {
		return errors.New("store capacity exceeds 16-bit EEPROM address space")
	}
	return nil
}

// RecorderConfig maps the configuration onto the core recorder settings
func (c *Config) RecorderConfig() core.RecorderConfig {
	return core.RecorderConfig{
		SignalInput:      core.GPIOPin(c.Pins.SignalInput),
		SignalOutput:     core.GPIOPin(c.Pins.SignalOutput),
		LED:              optionalPin(c.Pins.LED),
		ListenButton:     optionalPin(c.Pins.ListenButton),
		ReplayButton:     optionalPin(c.Pins.ReplayButton),
		ButtonsActiveLow: c.ButtonsActiveLow == nil || *c.ButtonsActiveLow,
		ReplayRepeat:     c.ReplayRepeat,
		ReplayGapMS:      c.ReplayGapMS,
		SaveBlink:        blinkPattern(c.SaveBlink),
		ReplayBlink:      blinkPattern(c.ReplayBlink),
	}
}

// AT24Config maps the store section onto the EEPROM driver settings
func (c *Config) AT24Config() core.AT24Config {
	return core.AT24Config{
		Address:  c.Store.I2CAddress,
		PageSize: c.Store.PageSize,
		Size:     c.Store.Capacity,
	}
}

func optionalPin(pin int) core.GPIOPin {
	if pin < 0 {
		return core.NoPin
	}
	return core.GPIOPin(pin)
}

func blinkPattern(b BlinkConfig) core.BlinkPattern {
	times := b.Times
	if times < 0 {
		times = 0
	}
	if times > 255 {
		times = 255
	}
	return core.BlinkPattern{Times: uint8(times), OnMS: b.OnMS, OffMS: b.OffMS}
}

// DefaultConfig returns the wiring of the reference board:
// Pico with an AT24C32 module on I2C0 (GP4/GP5)
func DefaultConfig() *Config {
	activeLow := true
	return &Config{
		Pins: PinConfig{
			SignalInput:  10,
			SignalOutput: 6,
			LED:          25,
			ListenButton: 14,
			ReplayButton: 15,
		},
		ButtonsActiveLow: &activeLow,
		ButtonDebounceMS: 50,
		BufferSize:       32,
		Store: StoreConfig{
			Capacity:    4096,
			Start:       0,
			I2CAddress:  0x50,
			PageSize:    32,
			I2CFreqHz:   400000,
			SDA:         4,
			SCL:         5,
			FallbackRAM: true,
		},
		ReplayRepeat: 6,
		ReplayGapMS:  100,
		SaveBlink:    BlinkConfig{Times: 2, OnMS: 250, OffMS: 250},
		ReplayBlink:  BlinkConfig{Times: 6, OnMS: 15, OffMS: 15},
		Debug:        true,
		Comms:        true,
	}
}
