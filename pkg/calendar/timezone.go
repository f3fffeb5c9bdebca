package calendar

import (
	"os"
	"strings"
	"time"
)

// Map of common Windows timezone names to IANA timezone names
var windowsToIANA = map[string]string{
	"Pacific Standard Time":        "America/Los_Angeles",
	"Mountain Standard Time":       "America/Denver",
	"Central Standard Time":        "America/Chicago",
	"Eastern Standard Time":        "America/New_York",
	"Atlantic Standard Time":       "America/Halifax",
	"Alaskan Standard Time":        "America/Anchorage",
	"Hawaiian Standard Time":       "Pacific/Honolulu",
	"GMT Standard Time":            "Europe/London",
	"W. Europe Standard Time":      "Europe/Berlin",
	"Central Europe Standard Time": "Europe/Budapest",
	"Romance Standard Time":        "Europe/Paris",
	"China Standard Time":          "Asia/Shanghai",
	"Tokyo Standard Time":          "Asia/Tokyo",
	"India Standard Time":          "Asia/Kolkata",
	"AUS Eastern Standard Time":    "Australia/Sydney",
}

const zoneinfoDir = "zoneinfo/"

// LocalZoneName returns the IANA name of the host's current zone, checking
// TZ, then the /etc/localtime link, then time.Local. Falls back to "UTC".
func LocalZoneName() string {
	return zoneName(os.Getenv("TZ"), func() (string, error) { return os.Readlink("/etc/localtime") }, time.Local)
}

func zoneName(env string, link func() (string, error), local *time.Location) string {
	if name := normalizeZone(strings.TrimPrefix(env, ":")); name != "" {
		return name
	}
	if target, err := link(); err == nil {
		if i := strings.LastIndex(target, zoneinfoDir); i >= 0 {
			if name := normalizeZone(target[i+len(zoneinfoDir):]); name != "" {
				return name
			}
		}
	}
	if local != nil && local.String() != "Local" {
		if name := normalizeZone(local.String()); name != "" {
			return name
		}
	}
	return "UTC"
}

// normalizeZone maps Windows zone names to IANA, leaves other names alone
func normalizeZone(name string) string {
	name = strings.TrimSpace(name)
	if ianaName, ok := windowsToIANA[name]; ok {
		return ianaName
	}
	return name
}
