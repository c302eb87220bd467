package gateway

// FileInfo is a single uploaded note as reported by the backend inventory.
type FileInfo struct {
	Filename   string `json:"filename"`
	UploadedAt string `json:"uploaded_at"`
}

// UploadResult is the backend's summary of an accepted upload.
type UploadResult struct {
	Message    string `json:"message"`
	Filename   string `json:"filename"`
	UploadedAt string `json:"uploaded_at"`
	Chunks     int    `json:"chunks"`
	// Action is "added" for a new note or "replaced" when an existing note
	// with the same name was overwritten.
	Action string `json:"action"`
}

// AskRequest is the question payload sent to the backend.
type AskRequest struct {
	Question string `json:"question"`
	UserID   string `json:"user_id"`
	Mode     string `json:"mode"`
}

// SourceRef is a retrieval source attached to an answer. Source is the note
// filename the passage came from; it may be empty for web results.
type SourceRef struct {
	Source     string `json:"source,omitempty"`
	UploadedAt string `json:"uploaded_at,omitempty"`
	Page       int    `json:"page,omitempty"`
}

// AskResponse is the backend's answer to a question.
type AskResponse struct {
	Answer  string      `json:"answer"`
	Sources []SourceRef `json:"sources"`
	UsedWeb bool        `json:"used_web"`
}

// DeleteResult is the backend's response to a note deletion.
type DeleteResult struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Files   []FileInfo `json:"files"`
}

// filesResponse is the wire shape of GET /api/files.
type filesResponse struct {
	Files []FileInfo `json:"files"`
}

// errorResponse is the backend's error envelope.
type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}
