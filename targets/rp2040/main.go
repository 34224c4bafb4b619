//go:build rp2040 || rp2350

package main

import (
	"machine"
	"time"

	"sigreplay/config"
	"sigreplay/core"
)

var loopErrors uint32

func main() {
	// Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()

	cfg := config.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		// Nothing sensible to run; report and idle
		for {
			usbPrintln("config error: " + err.Error())
			time.Sleep(time.Second)
		}
	}

	core.SetDebugWriter(usbPrintln)
	core.SetCommsWriter(usbPrintln)
	core.SetDebugEnabled(cfg.Debug)
	core.SetCommsEnabled(cfg.Comms)
	core.InitAsyncDebug()

	clock := HardwareClock{}
	gpio := NewRPGPIODriver(clock)
	rc := cfg.RecorderConfig()
	debounceUS := cfg.ButtonDebounceMS * 1000
	if rc.ListenButton != core.NoPin {
		gpio.SetDebounce(rc.ListenButton, debounceUS)
	}
	if rc.ReplayButton != core.NoPin {
		gpio.SetDebounce(rc.ReplayButton, debounceUS)
	}

	store, err := openStore(cfg)
	for err != nil {
		core.DebugPrintln("store error: " + err.Error())
		time.Sleep(time.Second)
		store, err = openStore(cfg)
	}

	recorder := core.NewRecorder(rc, core.Hardware{
		GPIO:    gpio,
		Clock:   clock,
		Sleeper: core.BusyWait{Clock: clock},
		Memory:  core.NewSignalMemory(store, cfg.Store.Start),
		Buffer:  core.NewSignalBuffer(cfg.BufferSize),
		Machine: core.NewStateMachine(),
	})
	if err := recorder.Configure(); err != nil {
		core.DebugPrintln("configure failed: " + err.Error())
	}

	core.DebugPrintln("Signal replay ready")

	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					loopErrors++
					core.DumpTimingRing()
					recorder.Request(core.StateIdle)
				}
			}()

			recorder.Step()
		}()

		// Yield to the async debug writer
		time.Sleep(time.Millisecond)
	}
}
