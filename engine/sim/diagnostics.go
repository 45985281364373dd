package sim

// Diagnostics is the small (≤4 KiB on the GPU side) scalar diagnostic
// buffer any pass may write named values into, drained once per tick
// in debug builds and logged (§6.6). The CPU mirror stores values in a
// plain map rather than a fixed byte buffer since it never crosses a
// device boundary; gpu.go's real buffer is what the 4 KiB bound
// applies to.
type Diagnostics struct {
	values map[string]float64
}

func newDiagnostics() *Diagnostics {
	return &Diagnostics{values: make(map[string]float64)}
}

// Set records a named scalar diagnostic value, overwriting any value
// already recorded this tick under the same name.
func (d *Diagnostics) Set(name string, value float64) {
	d.values[name] = value
}

func (d *Diagnostics) drain() map[string]float64 {
	out := d.values
	d.values = make(map[string]float64)
	return out
}
