package domain

// ProviderType names the calendar backend a busy source reads from.
type ProviderType string

const (
	// ProviderGoogle is Google Calendar, queried through the FreeBusy API.
	ProviderGoogle ProviderType = "google"
	// ProviderApple is iCloud Calendar over CalDAV with an app-specific password.
	ProviderApple ProviderType = "apple"
	// ProviderCalDAV is any other CalDAV server (Fastmail, Nextcloud, self-hosted).
	ProviderCalDAV ProviderType = "caldav"
)

func (p ProviderType) String() string {
	return string(p)
}

// DisplayName is the name shown to users when a source fails.
func (p ProviderType) DisplayName() string {
	switch p {
	case ProviderGoogle:
		return "Google Calendar"
	case ProviderApple:
		return "iCloud Calendar"
	case ProviderCalDAV:
		return "CalDAV"
	default:
		return string(p)
	}
}
