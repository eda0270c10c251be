// Package settings implements the synchronized key-value configuration store
// and the typed service that resolves defaults at its boundary.
package settings

import "context"

// Store is raw key-value access. Keys are plain strings, values JSON
// documents. Writes are last-write-wins; there is no versioning.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Storage keys. These match the extension's sync-storage keys so an exported
// settings blob round-trips between the two.
const (
	KeyAuthToken         = "pcloud_auth_token"
	KeyDefaultFolderID   = "default_upload_folder_id"
	KeyDefaultFolderPath = "default_upload_folder_path"
	KeyDomainRules       = "domain_upload_rules"
	KeyImageTemplate     = "filename_config"
	KeyTextTemplate      = "text_filename_config"
	KeyDocTemplate       = "doc_filename_config"
	KeyDocFormat         = "doc_format"
	KeyDocIncludeMeta    = "doc_include_metadata"
	KeyTheme             = "theme"
	KeyLicense           = "hypercmdc_license"
)
