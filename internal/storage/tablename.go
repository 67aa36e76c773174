// ABOUTME: Derives the physical table name backing a study.
// ABOUTME: Only alphanumerics survive, so names are safe to interpolate into DDL.
package storage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sidewalklabs/commonspace-sub000/internal/models"
)

const (
	studyTablePrefix = "study_"
	// Keeps derived index names under the 63 byte PostgreSQL identifier limit.
	maxStudyIDChars = 48
)

var studyTablePattern = regexp.MustCompile(`^study_[a-z0-9]+$`)

// TableNameFor maps a study id to its table name. Hyphens and underscores are
// stripped and letters lowercased; any other non-alphanumeric character is
// rejected rather than silently dropped. Ids that normalize alike, such as
// "Ab-1" and "ab1", share a table name, so the second study fails to provision.
func TableNameFor(studyID string) (string, error) {
	if studyID == "" {
		return "", &models.InvalidIdentifierError{ID: studyID, Reason: "empty"}
	}

	var b strings.Builder
	for _, r := range studyID {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r == '-' || r == '_':
		default:
			return "", &models.InvalidIdentifierError{
				ID:     studyID,
				Reason: fmt.Sprintf("character %q not allowed", r),
			}
		}
	}

	if b.Len() == 0 {
		return "", &models.InvalidIdentifierError{ID: studyID, Reason: "no alphanumeric characters"}
	}
	if b.Len() > maxStudyIDChars {
		return "", &models.InvalidIdentifierError{
			ID:     studyID,
			Reason: fmt.Sprintf("longer than %d alphanumeric characters", maxStudyIDChars),
		}
	}

	return studyTablePrefix + b.String(), nil
}

// isStudyTableName reports whether name has the shape TableNameFor produces.
func isStudyTableName(name string) bool {
	return studyTablePattern.MatchString(name)
}
