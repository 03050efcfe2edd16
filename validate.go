package cozebridge

import (
	"regexp"
	"strings"
)

var botIDPattern = regexp.MustCompile(`^\d+$`)

// Validate runs the synchronous gates a translation must pass before any
// network call, in order: API key, bot ID, text.
func Validate(q Query, creds Credentials) error {
	if creds.APIKey == "" || !strings.HasPrefix(creds.APIKey, APIKeyPrefix) {
		return &ConfigError{
			Field:   "api_key",
			Message: "invalid API key: must start with '" + APIKeyPrefix + "'",
		}
	}

	if creds.BotID == "" || !botIDPattern.MatchString(strings.TrimSpace(creds.BotID)) {
		return &ConfigError{
			Field:   "bot_id",
			Message: "invalid bot ID: must be numeric",
		}
	}

	if strings.TrimSpace(q.Text) == "" {
		return &ParamError{Message: "no text to translate"}
	}

	return nil
}
