package model

type IngestionJob struct {
	ImportID  int64  `json:"import_id"`
	S3Path    string `json:"s3_path"`
	FileName  string `json:"file_name"`
	Mode      Mode   `json:"mode"`
	StartDate string `json:"start_date,omitempty"`
}

type ImportAccepted struct {
	ImportID int64        `json:"import_id"`
	Status   ImportStatus `json:"status"`
}

// ImportProgress carries the counters written alongside a status change.
type ImportProgress struct {
	RecordCount  int
	SkippedCount int
	HTTPStatus   int
}

type AuthTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
