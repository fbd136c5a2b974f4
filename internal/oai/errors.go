package oai

// Protocol error codes from the OAI-PMH 2.0 specification.
const (
	CodeBadVerb                 = "badVerb"
	CodeBadArgument             = "badArgument"
	CodeBadResumptionToken      = "badResumptionToken"
	CodeCannotDisseminateFormat = "cannotDisseminateFormat"
	CodeIDDoesNotExist          = "idDoesNotExist"
	CodeNoRecordsMatch          = "noRecordsMatch"
	CodeNoSetHierarchy          = "noSetHierarchy"
)

// Error is a protocol-level error carried inside a well-formed OAI-PMH
// response rather than an HTTP failure.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func badResumptionToken(message string) *Error {
	return &Error{Code: CodeBadResumptionToken, Message: message}
}

func cannotDisseminateFormat(prefix string) *Error {
	return &Error{
		Code:    CodeCannotDisseminateFormat,
		Message: "metadataPrefix '" + prefix + "' is not supported by this repository",
	}
}

func idDoesNotExist(identifier string) *Error {
	return &Error{
		Code:    CodeIDDoesNotExist,
		Message: "identifier '" + identifier + "' is unknown to this repository",
	}
}

func noRecordsMatch() *Error {
	return &Error{
		Code:    CodeNoRecordsMatch,
		Message: "no records match the request arguments",
	}
}

func noSetHierarchy() *Error {
	return &Error{
		Code:    CodeNoSetHierarchy,
		Message: "this repository does not support sets",
	}
}
