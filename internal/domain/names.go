package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxRoomIDLength bounds room identifiers accepted from clients
const MaxRoomIDLength = 32

// NormalizeUsername trims and NFC-normalises a username so that visually
// identical names map to the same roster key
func NormalizeUsername(name string, maxLen int) (string, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return "", ErrInvalidUsername
	}
	if maxLen > 0 && utf8.RuneCountInString(name) > maxLen {
		return "", ErrInvalidUsername
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", ErrInvalidUsername
		}
	}
	return name, nil
}

// NormalizeRoomID trims and upper-cases a room code
func NormalizeRoomID(id string) (string, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" || len(id) > MaxRoomIDLength {
		return "", ErrInvalidRoomID
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", ErrInvalidRoomID
		}
	}
	return id, nil
}
