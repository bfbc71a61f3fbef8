package shared

// Domain error codes. The HTTP layer maps each to a status.
const (
	CodeNotFound       = "NOT_FOUND"
	CodeInvalidInput   = "INVALID_INPUT"
	CodeInvalidState   = "INVALID_STATE"
	CodeSessionBusy    = "SESSION_BUSY"
	CodeSchemaMismatch = "SCHEMA_MISMATCH"
)

// DomainError is an error a client can act on. Message is shown to the operator as is.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// ErrSessionBusy is returned while another archive, clear or batch holds the owner's session
var ErrSessionBusy = NewDomainError(CodeSessionBusy, "Another operation is running for this session")
