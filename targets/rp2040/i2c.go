//go:build rp2040 || rp2350

package main

import (
	"machine"

	"sigreplay/config"
	"sigreplay/core"
)

// openStore brings up I2C0 and the AT24Cxx behind it. If the bus or the
// chip does not respond and the config allows it, a RAM store is returned
// instead so capture and replay still work until power-off.
func openStore(cfg *config.Config) (core.ByteStore, error) {
	i2c := machine.I2C0
	err := i2c.Configure(machine.I2CConfig{
		Frequency: cfg.Store.I2CFreqHz,
		SDA:       machine.Pin(cfg.Store.SDA),
		SCL:       machine.Pin(cfg.Store.SCL),
	})
	if err == nil {
		store := core.NewAT24Store(i2c, cfg.AT24Config())
		if err = store.Begin(cfg.Store.Capacity); err == nil {
			return store, nil
		}
	}

	if !cfg.Store.FallbackRAM {
		return nil, err
	}
	core.DebugPrintln("EEPROM unavailable, using RAM store: " + err.Error())

	ram := core.NewRAMStore()
	ram.Begin(cfg.Store.Capacity)
	return ram, nil
}
