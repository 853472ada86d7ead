package extract

// Agreement classifies how the regex and model extractions of a title relate.
type Agreement string

const (
	AgreementCorrect       Agreement = "Correct"
	AgreementConflict      Agreement = "Conflict"
	AgreementFailedRegex   Agreement = "Failed Regex"
	AgreementFailedNER     Agreement = "Failed NER"
	AgreementNotIdentified Agreement = "Not Identified"
)

// Classify compares the two team pairs.
func Classify(regexHome, regexAway, nerHome, nerAway string) Agreement {
	regexPair := regexHome != "" && regexAway != ""
	nerPair := nerHome != "" && nerAway != ""
	switch {
	case regexPair && nerPair && regexHome == nerHome && regexAway == nerAway:
		return AgreementCorrect
	case regexPair && nerPair:
		return AgreementConflict
	case nerPair:
		return AgreementFailedRegex
	case regexPair:
		return AgreementFailedNER
	default:
		return AgreementNotIdentified
	}
}
