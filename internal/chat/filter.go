package chat

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"matchchat/backend/internal/apperr"
	"matchchat/backend/internal/config"

	"github.com/pkg/errors"
)

var (
	urlPattern = regexp.MustCompile(`(?i)https?://`)
	tagPattern = regexp.MustCompile(`</?[a-zA-Z][^<>]*>`)
)

// ValidateContent accepts plain text and emoji only.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.Wrap(apperr.ErrInvalidOperation, "message is empty")
	}
	if utf8.RuneCountInString(content) > config.MaxMessageLength {
		return errors.Wrapf(apperr.ErrInvalidOperation, "message exceeds %d characters", config.MaxMessageLength)
	}
	if urlPattern.MatchString(content) {
		return errors.Wrap(apperr.ErrInvalidOperation, "links are not allowed")
	}
	if tagPattern.MatchString(content) {
		return errors.Wrap(apperr.ErrInvalidOperation, "markup is not allowed")
	}
	return nil
}
