package repository

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// AuthorizedUsers answers authorization checks against a flat file holding
// one chat ID per line. The file is re-read on every check so the list can be
// edited without restarting the bot.
type AuthorizedUsers struct {
	filePath string
}

// NewAuthorizedUsers creates an AuthorizedUsers store backed by the given file.
func NewAuthorizedUsers(filePath string) *AuthorizedUsers {
	return &AuthorizedUsers{filePath: filePath}
}

// IsAuthorized reports whether the chat ID is present in the list.
// A missing list file denies everyone.
func (a *AuthorizedUsers) IsAuthorized(chatID int64) bool {
	file, err := os.Open(a.filePath)
	if err != nil {
		logrus.WithError(err).Warnf("Authorized users file %s not readable", a.filePath)
		return false
	}
	defer func() {
		if err = file.Close(); err != nil {
			logrus.WithError(err).Errorf("Failed to close file %s", a.filePath)
		}
	}()

	want := strconv.FormatInt(chatID, 10)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == want {
			return true
		}
	}
	if err = scanner.Err(); err != nil {
		logrus.WithError(err).Warnf("Failed to scan authorized users file %s", a.filePath)
	}
	return false
}
