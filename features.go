package voltex

// DeviceFeatures describes what the rendering device can consume.
type DeviceFeatures struct {
	// HasNanoVDB requests compact encoding. It only takes effect when a
	// compact encoder is available in the build.
	HasNanoVDB bool
}
