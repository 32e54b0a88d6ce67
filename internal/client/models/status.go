package models

// StatusLevel tags the operator-facing status line.
type StatusLevel string

const (
	StatusNone        StatusLevel = ""
	StatusInfo        StatusLevel = "info"
	StatusSuccess     StatusLevel = "success"
	StatusWarning     StatusLevel = "warning"
	StatusError       StatusLevel = "error"
	StatusDestruction StatusLevel = "destruction"
)

// Status is the message shown after the last action.
type Status struct {
	Level   StatusLevel
	Message string
}

// Operator-facing messages.
const (
	MsgMissingFileOrKey   = "Missing file or key."
	MsgMissingSecret      = "Missing secret message."
	MsgProcessing         = "Processing cryptographic operations..."
	MsgEncodeSuccess      = "Encrypted & Downloaded."
	MsgDecodeSuccess      = "Decryption Successful."
	MsgOperationFailed    = "Operation failed."
	MsgConnectionFailed   = "Server connection failed."
	MsgKeysGenerated      = "Keys generated successfully."
	MsgKeysFailed         = "Failed to generate keys."
	MsgKeysConnection     = "Connection error."
	MsgFileDestroyed      = "File destroyed. Reset the session to continue."
	MsgAuthFailureDefault = "Decryption failed."
	MsgUnsupportedMedia   = "Unsupported media type."
	MsgSaveFailed         = "Encrypted, but the result could not be saved."
)
