package api

// TranslationRequest is the body of POST /v1/translations.
type TranslationRequest struct {
	Direction string `json:"direction"`
	Text      string `json:"text"`
}

// CodeRequest is the body of POST /v1/code.
type CodeRequest struct {
	Pseudocode string `json:"pseudocode"`
}

// PseudocodeRequest is the body of POST /v1/pseudocode.
type PseudocodeRequest struct {
	Code string `json:"code"`
}

type CodeResponse struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

type PseudocodeResponse struct {
	ID         string `json:"id"`
	Pseudocode string `json:"pseudocode"`
}

const (
	StatusCompleted = "completed"
	StatusTruncated = "truncated"
	StatusFailed    = "failed"
)

// Translation is the stored and returned form of one translation.
type Translation struct {
	ID        string         `json:"id"`
	Object    string         `json:"object"`
	CreatedAt int64          `json:"created_at"`
	Direction string         `json:"direction"`
	Status    string         `json:"status"`
	Text      string         `json:"text"`
	Truncated bool           `json:"truncated"`
	Usage     Usage          `json:"usage"`
	Error     *ResponseError `json:"error,omitempty"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type ResponseError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

type DeleteTranslationResp struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// DirectionInfo describes one configured direction.
type DirectionInfo struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Title     string `json:"title"`
	Loaded    bool   `json:"loaded"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

type DirectionList struct {
	Object string          `json:"object"`
	Data   []DirectionInfo `json:"data"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
