package chat

// Core chat entities independent of frameworks and vendors

// Roles accepted on inbound messages. The system role is reserved for the
// persona prompt injected by the relay; caller-supplied system messages are
// dropped before the upstream call.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// DefaultPersona is the system prompt used when the request carries none.
const DefaultPersona = "You are a helpful assistant."

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the inbound chat request. Persona, Temperature and Model are
// optional overrides; Temperature is a pointer so an explicit 0.0 can be told
// apart from "not set".
type Request struct {
	Messages    []Message `json:"messages"`
	Persona     string    `json:"persona,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	Model       string    `json:"model,omitempty"`
}

// UpstreamMessage is the wire shape sent to the completion provider.
type UpstreamMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Detail carries the human-readable failure message and, for upstream HTTP
// failures, the provider's raw error payload.
type Detail struct {
	Message string `json:"message"`
	Error   any    `json:"error,omitempty"`
}

// Response is the uniform outbound envelope. Every outcome of the chat
// operation maps onto it: Error=false implies Reply is non-empty, Error=true
// implies Status and Detail are set and the HTTP status equals Status.
type Response struct {
	Error  bool    `json:"error"`
	Reply  string  `json:"reply,omitempty"`
	Status int     `json:"status,omitempty"`
	Detail *Detail `json:"detail,omitempty"`
}

// NewErrorResponse builds an error envelope for the given status and message.
func NewErrorResponse(status int, message string) *Response {
	return &Response{
		Error:  true,
		Status: status,
		Detail: &Detail{Message: message},
	}
}

// Completion is the decoded upstream payload. Only the parts the relay reads
// are modeled; the assistant content keeps its loose wire shape (see Content).
type Completion struct {
	ID      string   `json:"id,omitempty"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Index        int           `json:"index"`
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason,omitempty"`
}

type ChoiceMessage struct {
	Role    string  `json:"role,omitempty"`
	Content Content `json:"content"`
}
