package models

import "encoding/json"

// DataExport represents the GDPR_DATA_EXPORT table
type DataExport struct {
	ExportID         string  `db:"EXPORT_ID" json:"exportId"`
	UserID           string  `db:"USER_ID" json:"userId"`
	Token            string  `db:"TOKEN" json:"token"`
	Format           string  `db:"FORMAT" json:"format"`
	Categories       JSON    `db:"CATEGORIES" json:"categories"`
	Status           string  `db:"STATUS" json:"status"`
	Progress         int     `db:"PROGRESS" json:"progress"`
	FilePath         *string `db:"FILE_PATH" json:"-"`
	FileSize         *int64  `db:"FILE_SIZE" json:"fileSize,omitempty"`
	Error            *string `db:"ERROR" json:"error,omitempty"`
	DownloadCount    int     `db:"DOWNLOAD_COUNT" json:"downloadCount"`
	LastDownloadTime *int64  `db:"LAST_DOWNLOAD_TIME" json:"lastDownloadTime,omitempty"`
	CreatedTime      int64   `db:"CREATED_TIME" json:"createdTime"`
	UpdatedTime      int64   `db:"UPDATED_TIME" json:"updatedTime"`
	CompletedTime    *int64  `db:"COMPLETED_TIME" json:"completedTime,omitempty"`
	ExpiresTime      *int64  `db:"EXPIRES_TIME" json:"expiresTime,omitempty"`
}

// Export lifecycle statuses
const (
	ExportStatusPending    = "PENDING"
	ExportStatusProcessing = "PROCESSING"
	ExportStatusCompleted  = "COMPLETED"
	ExportStatusFailed     = "FAILED"
	ExportStatusExpired    = "EXPIRED"
)

// IsInFlight reports whether the export is still being produced
func (e *DataExport) IsInFlight() bool {
	return e.Status == ExportStatusPending || e.Status == ExportStatusProcessing
}

// IsDownloadable reports whether the export file can be served
func (e *DataExport) IsDownloadable() bool {
	return e.Status == ExportStatusCompleted
}

// CategoryList decodes the stored category scope of the export
func (e *DataExport) CategoryList() []string {
	if e.Categories == nil {
		return nil
	}
	var cats []string
	if err := json.Unmarshal(e.Categories, &cats); err != nil {
		return nil
	}
	return cats
}

// ExportRequestAPIRequest represents the API payload for requesting a data export
type ExportRequestAPIRequest struct {
	Format     string   `json:"format" binding:"required"`
	Categories []string `json:"categories,omitempty"`
}

// ExportRequestAPIResponse is returned for a new or deduplicated export request
type ExportRequestAPIResponse struct {
	ExportID    string   `json:"exportId"`
	Token       string   `json:"token"`
	Status      string   `json:"status"`
	Format      string   `json:"format"`
	Categories  []string `json:"categories"`
	Existing    bool     `json:"existing"`
	ExpiresTime *int64   `json:"expiresTime,omitempty"`
}

// ExportStatusAPIResponse describes the progress of one export
type ExportStatusAPIResponse struct {
	ExportID      string `json:"exportId"`
	Token         string `json:"token"`
	Status        string `json:"status"`
	Progress      int    `json:"progress"`
	Format        string `json:"format"`
	FileSize      *int64 `json:"fileSize,omitempty"`
	Error         *string `json:"error,omitempty"`
	DownloadCount int    `json:"downloadCount"`
	CreatedTime   int64  `json:"createdTime"`
	CompletedTime *int64 `json:"completedTime,omitempty"`
	ExpiresTime   *int64 `json:"expiresTime,omitempty"`
}

// ToStatusResponse converts a DataExport row to its API status view
func (e *DataExport) ToStatusResponse() *ExportStatusAPIResponse {
	return &ExportStatusAPIResponse{
		ExportID:      e.ExportID,
		Token:         e.Token,
		Status:        e.Status,
		Progress:      e.Progress,
		Format:        e.Format,
		FileSize:      e.FileSize,
		Error:         e.Error,
		DownloadCount: e.DownloadCount,
		CreatedTime:   e.CreatedTime,
		CompletedTime: e.CompletedTime,
		ExpiresTime:   e.ExpiresTime,
	}
}

// ExportCategoryInfo describes one exportable data category as exposed over the API
type ExportCategoryInfo struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
