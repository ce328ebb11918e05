package core

// error_messages.go turns technical errors into user-facing messages with a
// code support staff can look up.
//
// # Workbook Errors (WB001-WB099)
//
//	WB001 - Unreadable workbook: The file could not be opened as a spreadsheet
//	        Action: Upload an .xlsx file saved from Excel or a compatible tool
//	WB002 - Sheet not found: The requested sheet is not in the workbook
//	        Action: Pick one of the available sheets
//	WB003 - No data: The sheet has no header row
//	        Action: Check the sheet name and header rows to skip
//
// # Selection Errors (CFG001-CFG099)
//
//	CFG001 - Column missing: The selected column does not exist
//	CFG002 - Group column: The group-by column must be a text column
//	CFG003 - Value column: The value column must be a numeric column
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - System busy: Too many runs in progress
//	RUN002 - Session expired: Dataset not found
//	RUN003 - Download expired: Run not found
//	RUN004 - Request cancelled or timed out
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - No file selected
//	FILE003 - Empty file
//	FILE004 - Invalid form submission
//
// # Rate Limiting (RATE001)
//
// # Default Error (ERR000)
//
// Typed errors are matched first with errors.As; everything else is matched
// by case-insensitive substring against errorPatterns.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage is a user-friendly error with a suggested action.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code,omitempty"`
}

// errorPattern maps a substring of an error message to a UserMessage.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Workbook
	{
		pattern: "unreadable workbook",
		msg: UserMessage{
			Message: "The file could not be read as a spreadsheet",
			Action:  "Upload an .xlsx file saved from Excel or a compatible tool",
			Code:    "WB001",
		},
	},
	{
		pattern: "no header row",
		msg: UserMessage{
			Message: "The sheet has no header row",
			Action:  "Check the sheet name and the number of header rows to skip",
			Code:    "WB003",
		},
	},

	// Run and session
	{
		pattern: "too many concurrent runs",
		msg: UserMessage{
			Message: "Too many reports are being generated right now",
			Action:  "Please wait a moment and try again",
			Code:    "RUN001",
		},
	},
	{
		pattern: "dataset not found",
		msg: UserMessage{
			Message: "Your upload has expired",
			Action:  "Please upload the file again",
			Code:    "RUN002",
		},
	},
	{
		pattern: "run not found",
		msg: UserMessage{
			Message: "This download has expired",
			Action:  "Generate the report again",
			Code:    "RUN003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "RUN004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "RUN004",
		},
	},

	// File
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Remove unused sheets or rows and try again",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Remove unused sheets or rows and try again",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select an Excel file to upload",
			Code:    "FILE002",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a workbook with data rows",
			Code:    "FILE003",
		},
	},
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The form submission was incomplete",
			Action:  "Check the highlighted fields and submit again",
			Code:    "FILE004",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
// Support staff should check the logs for the technical error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// A *UserError anywhere in the chain supplies its own message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.User
	}

	var sheetErr *SheetNotFoundError
	if errors.As(err, &sheetErr) {
		action := "Check the sheet name"
		if len(sheetErr.Available) > 0 {
			action = "Available sheets: " + strings.Join(sheetErr.Available, ", ")
		}
		return UserMessage{
			Message: fmt.Sprintf("Sheet %q was not found in the workbook", sheetErr.Sheet),
			Action:  action,
			Code:    "WB002",
		}
	}

	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return configurationMessage(cfgErr)
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func configurationMessage(e *ConfigurationError) UserMessage {
	switch e.Reason {
	case ReasonColumnMissing:
		return UserMessage{
			Message: fmt.Sprintf("Column %q does not exist", e.Column),
			Action:  "Select a column from the list",
			Code:    "CFG001",
		}
	case ReasonGroupNotText:
		return UserMessage{
			Message: fmt.Sprintf("Column %q is numeric and cannot be used to group rows", e.Column),
			Action:  "Select a text column to group by, or exclude this column from numeric treatment",
			Code:    "CFG002",
		}
	case ReasonValueNotNumber:
		return UserMessage{
			Message: fmt.Sprintf("Column %q is not numeric and cannot be summed", e.Column),
			Action:  "Select a numeric column, or force-include this column as numeric",
			Code:    "CFG003",
		}
	default:
		return UserMessage{
			Message: e.Error(),
			Action:  "Adjust the settings and try again",
			Code:    "CFG001",
		}
	}
}

// FormatUserError creates a display string: "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
