//go:build rp2040 || rp2350

package main

import (
	"machine"
)

// InitUSB initializes USB serial communication
// TinyGo sets up USB CDC-ACM; machine.Serial is the CDC endpoint.
func InitUSB() {
	err := machine.Serial.Configure(machine.UARTConfig{BaudRate: 9600})
	if err != nil {
		return
	}
}

// usbPrintln writes one CRLF-terminated line to the host
func usbPrintln(s string) {
	machine.Serial.Write([]byte(s))
	machine.Serial.Write([]byte("\r\n"))
}
