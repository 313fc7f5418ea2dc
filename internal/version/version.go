// ABOUTME: Version and product identification
// ABOUTME: Reported in logs and the client login banner
package version

const (
	// Version is the release version
	Version = "0.3.0"

	// Product is the client product name
	Product = "snapline"

	// Manufacturer identifies who ships the build
	Manufacturer = "snapline contributors"
)
