package models

// Collection and document naming for the shared document store. All
// functions take branch *tokens* (already sanitized); producing tokens is
// pkg/branch's job and ad-hoc sanitization elsewhere is forbidden.

// IndexMetaDocID is the fixed document id of the per-branch self-index
// metadata document.
const IndexMetaDocID = "app_screens_index"

// DashboardScreenID is the synthetic main entry every module catalog gets.
const DashboardScreenID = "dashboard"

// ScreensIndexCollection names the per-branch screen index written by the
// indexer: one metadata doc plus one doc per discovered screen.
func ScreensIndexCollection(branchToken string) string {
	return "app_screens_index_" + branchToken
}

// ModulesCollection names the per-branch module catalog.
func ModulesCollection(branchToken string) string {
	return "module_indexes_modules_" + branchToken
}

// ModuleScreensCollection names the legacy per-branch screen catalog of a
// module.
func ModuleScreensCollection(moduleID, branchToken string) string {
	return "module_indexes_screens_" + moduleID + "_" + branchToken
}

// ModuleScreensBranchless names the newer branchless screen catalog of a
// module. See the discovery aggregator for the fallback policy between the
// two schemas.
func ModuleScreensBranchless(moduleID string) string {
	return "module_indexes_screens_" + moduleID
}

// SelfModuleID is the conventional id of the running application's own
// module catalog entry on a branch.
func SelfModuleID(branchToken string) string {
	return "module_" + branchToken
}

// InvocationsCollection names the per-user invocation mailbox.
func InvocationsCollection(userID string) string {
	return "invocations_" + userID
}

// InvocationDocID names the at-most-one invocation record per
// (user, module).
func InvocationDocID(userID, moduleName string) string {
	return userID + "_" + moduleName
}
