package documents

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"loandesk-backend/internal/shared/util"
)

const loanIDPrefix = "BIZLN-"

// newUploadID generates the collision-avoidance prefix for storage file
// names. Tests stub it out to make keys deterministic.
var newUploadID = uuid.NewString

// LegacyIdentity carries the customer identity used by the pre-existing flat
// storage convention.
type LegacyIdentity struct {
	CustomerID   string
	CustomerName string
}

// BuildKey derives the object-store key for a file. With a legacy identity the
// key follows the flat customer-folder convention; otherwise the structured
// documents/{loanId}/... layout is used. fileName and folderPath must not
// contain traversal segments or absolute-path markers.
func BuildKey(loanID, fileName, folderPath string, legacy *LegacyIdentity) (string, error) {
	safeName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	if legacy != nil {
		return buildLegacyKey(loanID, legacy, safeName)
	}

	safeFolder, err := util.SanitizeFolderPath(folderPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	if safeFolder != "" {
		return fmt.Sprintf("documents/%s/%s/%s", loanID, safeFolder, safeName), nil
	}
	return fmt.Sprintf("documents/%s/%s", loanID, safeName), nil
}

func buildLegacyKey(loanID string, legacy *LegacyIdentity, fileName string) (string, error) {
	customerID := strings.TrimSpace(legacy.CustomerID)
	if customerID == "" {
		customerID = NumericLoanID(loanID)
	}
	if customerID == "" {
		return "", fmt.Errorf("%w: customer id required for legacy key", ErrInvalidInput)
	}

	customerName := strings.ToUpper(strings.TrimSpace(legacy.CustomerName))
	if customerName == "" {
		return "", fmt.Errorf("%w: customer name required for legacy key", ErrInvalidInput)
	}
	if strings.Contains(customerName, "..") || strings.ContainsAny(customerName, "/\\") {
		return "", fmt.Errorf("%w: invalid customer name", ErrInvalidInput)
	}

	return fmt.Sprintf("%s_%s/%s", customerID, customerName, fileName), nil
}

// SafeFileName produces a storage-safe name for an uploaded file: a unique
// prefix plus the original name with spaces replaced by hyphens, so
// independently uploaded files with identical user-facing names never collide.
func SafeFileName(originalName string) (string, error) {
	sanitized, err := util.SanitizeFileName(originalName)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	hyphenated := strings.ReplaceAll(sanitized, " ", "-")
	return newUploadID() + "-" + hyphenated, nil
}

// NumericLoanID strips the business prefix from a loan id, leaving the bare
// numeric identifier used by the legacy folder convention.
func NumericLoanID(loanID string) string {
	return strings.TrimPrefix(strings.TrimSpace(loanID), loanIDPrefix)
}

var folderDigits = regexp.MustCompile(`\d+`)

// DeriveLoanID infers a loan id from an upload's source folder name, e.g.
// "4189_SANTRAM" yields "BIZLN-4189". When the folder carries no digits a
// timestamp-derived placeholder keeps the batch addressable.
func DeriveLoanID(folderName string) string {
	if digits := folderDigits.FindString(folderName); digits != "" {
		return loanIDPrefix + digits
	}
	return fmt.Sprintf("%s%d", loanIDPrefix, time.Now().UTC().Unix())
}

// DeriveFullName infers a customer name from an upload's source folder name by
// dropping the leading numeric token and upper-casing the remainder.
func DeriveFullName(folderName string) string {
	parts := strings.Split(folderName, "_")
	if len(parts) < 2 {
		return ""
	}
	rest := strings.Join(parts[1:], " ")
	return strings.ToUpper(strings.TrimSpace(rest))
}
