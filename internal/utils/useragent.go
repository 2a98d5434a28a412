package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"
)

// ClientInfo is what the presence feed needs from a User-Agent
type ClientInfo struct {
	DeviceType string `json:"device_type"` // mobile, tablet, desktop, unknown
	Browser    string `json:"browser"`
	OS         string `json:"os"`
	IsBot      bool   `json:"is_bot"`
}

// Mobile reports whether the client is a phone or tablet
func (c ClientInfo) Mobile() bool {
	return c.DeviceType == "mobile" || c.DeviceType == "tablet"
}

var tabletMarkers = []string{"ipad", "tablet", "kindle", "playbook", "nexus 7", "nexus 9", "nexus 10", "sm-t"}

// ParseClient parses a User-Agent string
func ParseClient(userAgent string) ClientInfo {
	if userAgent == "" || userAgent == "Unknown" {
		return ClientInfo{DeviceType: "unknown", Browser: "Unknown", OS: "Unknown"}
	}

	parser := ua.New(userAgent)
	info := ClientInfo{
		DeviceType: "desktop",
		Browser:    "Unknown",
		OS:         "Unknown",
		IsBot:      parser.Bot(),
	}

	if name, _ := parser.Browser(); name != "" {
		info.Browser = name
	}
	if os := parser.OSInfo(); os.Name != "" {
		info.OS = strings.TrimSpace(os.Name + " " + os.Version)
	}

	if parser.Mobile() {
		info.DeviceType = "mobile"
		lower := strings.ToLower(userAgent)
		for _, marker := range tabletMarkers {
			if strings.Contains(lower, marker) {
				info.DeviceType = "tablet"
				break
			}
		}
	}

	return info
}
