package models

// ModuleType distinguishes the always-present core application from
// independently shipped satellite modules.
const (
	ModuleTypeCore      = "core"
	ModuleTypeSatellite = "satellite"
)

// ModuleEntry is one module catalog document. One document exists per module
// per branch, written by that branch's running process during
// self-registration.
type ModuleEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
	// Branch is the human-readable branch name, never the sanitized token.
	Branch       string `json:"branch"`
	Type         string `json:"type"`
	IsMaster     bool   `json:"is_master"`
	IsMainApp    bool   `json:"is_main_app"`
	MainScreen   string `json:"main_screen,omitempty"`
	ScreensCount int    `json:"screens_count"`
	// UpdatedAt is epoch seconds of the last self-registration.
	UpdatedAt int64 `json:"updated_at"`
}

// ScreenEntry is one screen catalog document: a screen type discovered by
// the source scanner, keyed by the lowercased type name.
type ScreenEntry struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Title         string `json:"title,omitempty"`
	Description   string `json:"description,omitempty"`
	ModuleID      string `json:"module_id"`
	Branch        string `json:"branch"`
	FilePath      string `json:"file_path,omitempty"`
	FullClassName string `json:"full_class_name,omitempty"`
	// IndexedAt is an ISO-8601 timestamp of the scan that produced this entry.
	IndexedAt string `json:"indexed_at"`
}

// IndexMeta is the per-branch self-index metadata document, stored with
// document id "app_screens_index" and written after every screen entry so
// observers never see a partial count.
type IndexMeta struct {
	ScreenCount int    `json:"screen_count"`
	CreatedAt   int64  `json:"created_at"`
	AppVersion  string `json:"app_version,omitempty"`
	Branch      string `json:"branch"`
}

// Invocation is a single-use handoff record keyed by (user, module). It is
// created by a host, consumed exactly once by the target module process, and
// destroyed on consumption or expiry.
type Invocation struct {
	// Route is the bare screen id to open inside the target module.
	Route  string         `json:"route,omitempty"`
	Params map[string]any `json:"params,omitempty"`
	// ExpiresAt is epoch seconds after which the record is dead.
	ExpiresAt int64 `json:"expires_at"`
}

// Task is a dashboard tile selection handed to the task router. Field
// precedence during resolution is defined by the router.
type Task struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name,omitempty"`
	TargetModuleID  string `json:"target_module_id,omitempty"`
	ModuleID        string `json:"module_id,omitempty"`
	ApplicationName string `json:"application_name,omitempty"`
	TargetScreenID  string `json:"target_screen_id,omitempty"`
	Screen          string `json:"screen,omitempty"`
	ScreenID        string `json:"screen_id,omitempty"`
	Params          map[string]any `json:"params,omitempty"`
}
