// Package branch centralizes branch identity: detecting the current
// source-control branch and converting branch names to store-safe tokens.
// Ad-hoc branch string replacement anywhere else in the repository is a
// bug; always go through Sanitize/Unsanitize.
package branch

import (
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"hangarcore/pkg/logger"
)

// EnvOverride is consulted when the working tree yields no branch.
const EnvOverride = "HC_GIT_BRANCH"

// Unknown is the literal fallback when neither git nor the environment can
// name a branch.
const Unknown = "unknown"

// replacements maps branch-name characters that are unsafe in collection
// names to reversible tokens. The dash and space entries are a deliberate
// extension: collection names stay word-only and Unsanitize restores the
// original branch exactly.
var replacements = [][2]string{
	{"/", "_SLASH_"},
	{".", "_DOT_"},
	{"#", "_HASH_"},
	{"$", "_DOLLAR_"},
	{"[", "_LBRACKET_"},
	{"]", "_RBRACKET_"},
	{"*", "_STAR_"},
	{"-", "_DASH_"},
	{" ", "_SPACE_"},
}

// Sanitize converts a branch name into a store-safe token. Total: every
// input maps to a token, the empty branch to the empty token.
func Sanitize(name string) string {
	out := name
	for _, r := range replacements {
		out = strings.ReplaceAll(out, r[0], r[1])
	}
	return out
}

// Unsanitize inverts Sanitize on the set of tokens Sanitize produces.
func Unsanitize(token string) string {
	out := token
	for _, r := range replacements {
		out = strings.ReplaceAll(out, r[1], r[0])
	}
	return out
}

// Identity reports the branch the process is running on.
type Identity struct {
	// WorkTree is the directory to run git in; empty means the process
	// working directory.
	WorkTree string
}

// Current returns the branch name: working tree first, then the
// HC_GIT_BRANCH override, then the literal "unknown".
func (b Identity) Current() string {
	if name := b.gitOutput("rev-parse", "--abbrev-ref", "HEAD"); name != "" && name != "HEAD" {
		return name
	}
	if v := strings.TrimSpace(os.Getenv(EnvOverride)); v != "" {
		return v
	}
	logger.Log.Warn("branch_detection_failed", zap.String("fallback", Unknown))
	return Unknown
}

// CurrentToken returns the sanitized token for the current branch.
func (b Identity) CurrentToken() string {
	return Sanitize(b.Current())
}

// Known returns the local branch names the working tree reports, always
// including the current branch first. Detection failure degrades to just
// the current branch.
func (b Identity) Known() []string {
	current := b.Current()
	out := []string{current}
	seen := map[string]bool{current: true}
	raw := b.gitOutput("for-each-ref", "--format=%(refname:short)", "refs/heads")
	for _, line := range strings.Split(raw, "\n") {
		name := strings.TrimSpace(line)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// IsDevelopment reports whether a branch name marks a development branch
// (contains "dev_" or "develop", case-insensitive). The indexer's
// staleness policy only applies to these.
func IsDevelopment(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "dev_") || strings.Contains(lower, "develop")
}

func (b Identity) gitOutput(args ...string) string {
	cmd := exec.Command("git", args...)
	if b.WorkTree != "" {
		cmd.Dir = b.WorkTree
	}
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
