package drafts

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func errDraftNotFound() *Error {
	return &Error{Status: 404, Code: "DRAFT_NOT_FOUND", Message: "draft not found"}
}

func errValidation(message string, details map[string]any) *Error {
	return &Error{Status: 422, Code: "VALIDATION_ERROR", Message: message, Details: details}
}

func errTourNotFound() *Error {
	return &Error{Status: 404, Code: "TOUR_NOT_FOUND", Message: "tour not found"}
}
