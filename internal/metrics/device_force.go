package metrics

import "github.com/san-kum/clothsim/internal/sim"

// DeviceForce is the mean magnitude of the force fed back to the cursor.
type DeviceForce struct {
	name    string
	sum     float64
	peak    float64
	samples int
}

func NewDeviceForce() *DeviceForce {
	return &DeviceForce{
		name: "device_force",
	}
}

func (d *DeviceForce) Name() string {
	return d.name
}

func (d *DeviceForce) Observe(f *sim.Frame) {
	m := f.DeviceForce.Len()
	d.sum += m
	if m > d.peak {
		d.peak = m
	}
	d.samples++
}

func (d *DeviceForce) Value() float64 {
	if d.samples == 0 {
		return 0
	}
	return d.sum / float64(d.samples)
}

// Peak returns the largest magnitude observed.
func (d *DeviceForce) Peak() float64 { return d.peak }

func (d *DeviceForce) Reset() {
	d.sum = 0
	d.peak = 0
	d.samples = 0
}
