package isitclear

// MessageType discriminates channel requests.
type MessageType string

// Message types.
const (
	MessageAnalyzeText  MessageType = "ANALYZE_TEXT"
	MessageUserAction   MessageType = "USER_ACTION"
	MessageGetAnalytics MessageType = "GET_ANALYTICS"
)

// Request is a channel request. Which fields are set depends on Type.
type Request struct {
	Type MessageType `json:"type"`

	// ANALYZE_TEXT
	Text         string       `json:"text,omitempty"`
	FieldKind    FieldKind    `json:"fieldKind,omitempty"`
	FieldContext string       `json:"fieldContext,omitempty"`
	Preferences  *Preferences `json:"preferences,omitempty"`
	Backend      BackendKind  `json:"backend,omitempty"`

	// USER_ACTION
	Action         UserAction             `json:"action,omitempty"`
	AnalysisResult *ImprovementResultView `json:"analysisResult,omitempty"`
}

// ImprovementResultView is the presentation-facing form of an ImprovementResult.
type ImprovementResultView struct {
	OriginalText     string         `json:"originalText"`
	ImprovedText     string         `json:"improvedText"`
	Changes          []ChangeRecord `json:"changes"`
	Confidence       float64        `json:"confidence"`
	ProcessingTimeMs float64        `json:"processingTimeMs"`
	BackendKind      BackendKind    `json:"backendKind"`
}

// AnalyzeResponse answers ANALYZE_TEXT.
type AnalyzeResponse struct {
	Success   bool                   `json:"success"`
	Result    *ImprovementResultView `json:"result,omitempty"`
	Quality   *Quality               `json:"quality,omitempty"`
	Error     string                 `json:"error,omitempty"`
	ErrorCode Code                   `json:"errorCode,omitempty"`
}

// ActionResponse answers USER_ACTION.
type ActionResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// AnalyticsResponse answers GET_ANALYTICS.
type AnalyticsResponse struct {
	AnalysisCount           int     `json:"analysisCount"`
	AcceptanceRate          float64 `json:"acceptanceRate"`
	AverageProcessingTimeMs float64 `json:"averageProcessingTimeMs"`
}

// ErrorResponse answers a request that could not be dispatched.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
