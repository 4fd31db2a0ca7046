package domain

// SupportedProtocolVersions lists the protocol revisions this client can
// talk to, newest first. DefaultProtocolVersion is what we request; a
// backend may negotiate down to any listed version.
var SupportedProtocolVersions = []string{
	"2025-11-25",
	"2025-06-18",
	"2025-03-26",
}

func IsSupportedProtocolVersion(version string) bool {
	for _, candidate := range SupportedProtocolVersions {
		if version == candidate {
			return true
		}
	}
	return false
}
