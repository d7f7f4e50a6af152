package audit

import (
	"regexp"

	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
)

// Checked in order; the first match wins. Android without "mobile" is a tablet.
var (
	phonePattern   = regexp.MustCompile(`(?i)mobile|iphone|ipod|android.*mobile|windows phone|blackberry|opera mini|iemobile`)
	tabletPattern  = regexp.MustCompile(`(?i)ipad|tablet|kindle|silk|playbook|android`)
	desktopPattern = regexp.MustCompile(`(?i)windows nt|macintosh|mac os x|x11|linux|cros`)
)

// ClassifyDevice maps a User-Agent string to a coarse device class.
func ClassifyDevice(userAgent string) models.DeviceClass {
	switch {
	case userAgent == "":
		return models.DeviceUnknown
	case phonePattern.MatchString(userAgent):
		return models.DevicePhone
	case tabletPattern.MatchString(userAgent):
		return models.DeviceTablet
	case desktopPattern.MatchString(userAgent):
		return models.DeviceDesktop
	default:
		return models.DeviceUnknown
	}
}
