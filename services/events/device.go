package events

import (
	"github.com/mileusna/useragent"
)

func DeviceInfo(userAgentString string) map[string]any {
	if userAgentString == "" {
		return map[string]any{
			"browser":     "Unknown Browser",
			"os":          "Unknown OS",
			"device_type": "Unknown",
			"device":      "Unknown Device",
			"mobile":      false,
			"bot":         false,
		}
	}

	ua := useragent.Parse(userAgentString)

	deviceType := "Desktop"
	switch {
	case ua.Mobile:
		deviceType = "Mobile"
	case ua.Tablet:
		deviceType = "Tablet"
	case ua.Bot:
		deviceType = "Bot"
	}

	browser := "Unknown Browser"
	if ua.Name != "" {
		browser = ua.Name
		if ua.Version != "" {
			browser += " " + ua.Version
		}
	}

	os := "Unknown OS"
	if ua.OS != "" {
		os = ua.OS
		if ua.OSVersion != "" {
			os += " " + ua.OSVersion
		}
	}

	device := ua.Device
	if device == "" {
		device = deviceType
	}

	return map[string]any{
		"browser":     browser,
		"os":          os,
		"device_type": deviceType,
		"device":      device,
		"mobile":      ua.Mobile,
		"bot":         ua.Bot,
	}
}
