// Package store defines the contract between the publish pipeline and a
// content-addressed asset store.
package store

import "context"

// Status is the existence state of a storage key.
type Status string

const (
	StatusExists  Status = "EXISTS"
	StatusMissing Status = "DOES_NOT_EXIST"
)

// AssetStatus is the store's answer for one storage key.
type AssetStatus struct {
	StorageKey string `json:"storageKey"`
	Status     Status `json:"status"`
}

// UploadRequest asks for one upload destination.
type UploadRequest struct {
	StorageKey  string
	ContentType string
}

// UploadSpecification is a short-lived signed destination for a single-shot
// multipart POST: every field is sent before the file part.
type UploadSpecification struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

// AssetStore is the remote asset store.
//
// CheckExistence must be side-effect free and reflect the latest server state.
// NegotiateUploads returns one specification per request, in request order.
type AssetStore interface {
	CheckExistence(ctx context.Context, storageKeys []string) ([]AssetStatus, error)
	NegotiateUploads(ctx context.Context, requests []UploadRequest) ([]UploadSpecification, error)
	AssetLimit(ctx context.Context, projectID string) (int, error)
}

// Transport moves one file to a negotiated destination, retrying transient
// failures internally before returning a terminal error.
type Transport interface {
	Upload(ctx context.Context, path string, spec UploadSpecification) error
}
