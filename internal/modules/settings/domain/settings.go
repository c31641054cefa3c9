package domain

// Settings holds credentials and browser behaviour for the scan executor.
type Settings struct {
	VFSEmail       string `json:"vfs_email"`
	VFSPassword    string `json:"vfs_password"`
	TelegramToken  string `json:"telegram_token"`
	TelegramChatID string `json:"telegram_chat_id"`

	Headless           bool `json:"headless"`
	AntiDetection      bool `json:"anti_detection"`
	SessionPersistence bool `json:"session_persistence"`
}

// Set assigns a credential field.
func (s *Settings) Set(field CredentialField, value string) {
	switch field {
	case CredentialFieldVfsEmail:
		s.VFSEmail = value
	case CredentialFieldVfsPassword:
		s.VFSPassword = value
	case CredentialFieldTelegramToken:
		s.TelegramToken = value
	case CredentialFieldTelegramChatId:
		s.TelegramChatID = value
	}
}

// SetFlag assigns a browser flag.
func (s *Settings) SetFlag(flag BrowserFlag, enabled bool) {
	switch flag {
	case BrowserFlagHeadless:
		s.Headless = enabled
	case BrowserFlagAntiDetection:
		s.AntiDetection = enabled
	case BrowserFlagSessionPersistence:
		s.SessionPersistence = enabled
	}
}

// HasTelegramCredentials reports whether both token and chat id are set.
func (s Settings) HasTelegramCredentials() bool {
	return s.TelegramToken != "" && s.TelegramChatID != ""
}

// Masked returns a copy safe to display: secrets are replaced by a marker.
func (s Settings) Masked() Settings {
	s.VFSPassword = mask(s.VFSPassword)
	s.TelegramToken = mask(s.TelegramToken)
	return s
}

func mask(v string) string {
	if v == "" {
		return ""
	}
	return "********"
}
