package domain

// Response messages shared by the HTTP layer and the CLI.
const (
	MessageOK             = "ok"
	MessageCannotFetch    = "cannot fetch data"
	MessageInvalidRequest = "invalid request"
	MessageHealthy        = "Everything is working fine"
	MessageInternalError  = "internal server error"
)

// ResponseBody is the envelope every API response is wrapped in.
type ResponseBody[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
}
