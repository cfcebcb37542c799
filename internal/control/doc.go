// Package control provides cursor drivers for the contact proxy.
//
// A [Driver] decides where the spherical cursor is at simulation time t:
//
//   - [None]: parked far from the cloth, no contact
//   - [Manual]: positioned by the user (mouse, websocket client)
//   - [Press]: oscillates vertically through a point
//   - [Sweep]: moves along a segment and repeats
//   - [Hold]: PID on the cursor depth to hold a target contact force
//
// # Usage
//
//	d, _ := control.NewDriver(control.Path{Kind: "press", Start: center, Amplitude: 0.5, Period: 2})
//	proxy := contact.New(contact.DefaultParams(), d)
//
// Drivers implementing [Feedback] receive the device force after each tick.
package control
