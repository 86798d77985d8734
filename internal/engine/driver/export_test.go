package driver

// SetIDGenerator replaces the unit-of-work id generator.
func (d *Driver) SetIDGenerator(fn func() string) {
	d.newID = fn
}
