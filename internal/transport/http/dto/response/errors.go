package response

var (
	ErrInvalidRequestFormat = ErrorResponse{
		Status:  "error",
		Error:   "invalid_request",
		Details: "Invalid request format",
	}

	ErrInvalidID = ErrorResponse{
		Status:  "error",
		Error:   "invalid_id",
		Details: "Identifier must be a UUID",
	}

	ErrMissingFile = ErrorResponse{
		Status:  "error",
		Error:   "missing_file",
		Details: "Multipart field 'file' is required",
	}

	ErrInternal = ErrorResponse{
		Status: "error",
		Error:  "internal_error",
	}
)
