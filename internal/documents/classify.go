package documents

import "strings"

// Document type labels. The classifier is a best-effort categorizer; anything
// it cannot place lands in TypeOther.
const (
	TypeKYC           = "KYC"
	TypeIncomeProof   = "Income Proof"
	TypeBankStatement = "Bank Statement"
	TypeAgreement     = "Agreement"
	TypePhoto         = "Photo"
	TypeOther         = "Other"
)

// ClassifyFunc maps an original file name to a document type label.
type ClassifyFunc func(fileName string) string

// ClassifyByName is the default classifier: filename-substring matching with
// an explicit Other fallback. It carries no confidence; callers treat the
// result as a display hint, never as a gate.
func ClassifyByName(fileName string) string {
	name := strings.ToLower(fileName)

	switch {
	case containsAny(name, "aadhar", "aadhaar", "pan", "passport", "voter", "kyc"):
		return TypeKYC
	case containsAny(name, "salary", "payslip", "pay_slip", "itr", "income"):
		return TypeIncomeProof
	case containsAny(name, "bank", "statement", "passbook"):
		return TypeBankStatement
	case containsAny(name, "agreement", "sanction", "contract", "loan_doc"):
		return TypeAgreement
	case containsAny(name, ".jpg", ".jpeg", ".png", ".gif", ".webp", "photo", "selfie"):
		return TypePhoto
	default:
		return TypeOther
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
