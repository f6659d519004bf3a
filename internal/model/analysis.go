package model

// Field names the extraction client fills for every analyzed message.
// The price fields carry digits only once sanitized.
const (
	FieldPriceUSD       = "price_usd"
	FieldPriceUSDCasino = "price_usd_casino"
	FieldImportantInfo  = "important_info"
	FieldComments       = "comments"
)

// RequiredAnalysisFields lists the fields present in every analysis
// result, filled with empty strings when extraction could not produce
// a value.
var RequiredAnalysisFields = []string{
	FieldPriceUSD,
	FieldPriceUSDCasino,
	FieldImportantInfo,
	FieldComments,
}

// AnalysisResult is the outcome of one extraction call for one message.
type AnalysisResult struct {
	// Fields maps extraction field names to their string values.
	Fields map[string]string `json:"fields"`

	// Err describes the extraction failure, empty on success.
	Err string `json:"error,omitempty"`
}

// Failed reports whether the extraction produced no usable result.
func (r AnalysisResult) Failed() bool {
	return r.Err != ""
}

// EmptyAnalysisResult returns a result whose required fields are all
// present but blank, tagged with the given failure description.
func EmptyAnalysisResult(errMsg string) AnalysisResult {
	fields := make(map[string]string, len(RequiredAnalysisFields))
	for _, f := range RequiredAnalysisFields {
		fields[f] = ""
	}
	return AnalysisResult{Fields: fields, Err: errMsg}
}

// MatchCandidate points at a tabular row matched for a thread.
type MatchCandidate struct {
	// Row is the zero-based data row index in the tabular store.
	Row int `json:"row"`

	// Address is the normalized row address that caused the match.
	Address string `json:"address"`
}
