// Package indexer scans the local source tree for screen types and
// publishes the per-branch screen index and module self-registration
// documents. The scan predicate is deliberately permissive: shipping a
// stray catalog entry is cheaper than missing a real screen, and loose
// matches are counted for observability.
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"hangarcore/pkg/branch"
	"hangarcore/pkg/logger"
	"hangarcore/pkg/models"
	"hangarcore/pkg/store"
	"hangarcore/pkg/telemetry"
)

// DefaultPattern matches Go screen-type declarations. The first capture
// group is the type name.
const DefaultPattern = `^type\s+([A-Za-z_]\w*)\s+struct\s*\{`

// screenWords are the tokens that make a type (or its embedded base) look
// like a screen.
var screenWords = regexp.MustCompile(`Screen|Window|View|Page`)

// packageRe pulls the package name for full_class_name.
var packageRe = regexp.MustCompile(`(?m)^package\s+(\w+)`)

// staleAfter is how old a dev-branch index may get before it is rebuilt.
const staleAfter = time.Hour

// Indexer scans a source root and writes the branch's screen catalog.
type Indexer struct {
	Store      *store.Adapter
	Branch     branch.Identity
	SourceRoot string
	// Glob matches base file names (default "*.go").
	Glob string
	// Pattern overrides DefaultPattern when non-empty.
	Pattern    string
	AppName    string
	AppVersion string

	declRe *regexp.Regexp
}

func (ix *Indexer) glob() string {
	if ix.Glob == "" {
		return "*.go"
	}
	return ix.Glob
}

func (ix *Indexer) decl() *regexp.Regexp {
	if ix.declRe == nil {
		p := ix.Pattern
		if p == "" {
			p = DefaultPattern
		}
		ix.declRe = regexp.MustCompile(p)
	}
	return ix.declRe
}

// Scan walks the source root and returns the screen entries found in the
// current tree. Files that cannot be read are skipped, never fatal.
func (ix *Indexer) Scan() []models.ScreenEntry {
	branchName := ix.Branch.Current()
	token := branch.Sanitize(branchName)
	moduleID := models.SelfModuleID(token)
	now := time.Now().UTC().Format(time.RFC3339)

	var out []models.ScreenEntry
	root := ix.SourceRoot
	if root == "" {
		root = "./ui"
	}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(ix.glob(), d.Name()); !ok {
			return nil
		}
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			logger.Log.Warn("indexer_file_unreadable", zap.String("path", path), zap.Error(rerr))
			return nil
		}
		out = append(out, ix.scanFile(path, string(data), branchName, moduleID, now)...)
		return nil
	})
	if err != nil {
		logger.Log.Warn("indexer_walk_failed", zap.String("root", root), zap.Error(err))
	}
	return out
}

// scanFile extracts screen entries from one source file.
func (ix *Indexer) scanFile(path, content, branchName, moduleID, now string) []models.ScreenEntry {
	pkg := ""
	if m := packageRe.FindStringSubmatch(content); m != nil {
		pkg = m[1]
	}

	var out []models.ScreenEntry
	lines := strings.Split(content, "\n")
	for i := 0; i < len(lines); i++ {
		m := ix.decl().FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		name := m[1]
		body, end := structBody(lines, i)

		loose := false
		switch {
		case screenWords.MatchString(name):
		case embeddedScreenBase(body):
		case strings.Contains(body, "Screen"):
			// loose body mention only; tolerated but counted
			loose = true
		default:
			i = end
			continue
		}
		if loose {
			telemetry.FalsePositives.Inc()
		}

		title, description := docComment(lines, i)
		full := name
		if pkg != "" {
			full = pkg + "." + name
		}
		out = append(out, models.ScreenEntry{
			ID:            strings.ToLower(name),
			Name:          name,
			Title:         title,
			Description:   description,
			ModuleID:      moduleID,
			Branch:        branchName,
			FilePath:      path,
			FullClassName: full,
			IndexedAt:     now,
		})
		i = end
	}
	return out
}

// structBody collects the declaration body from the opening line to the
// closing brace at column zero, returning the body text and the index of
// the last consumed line.
func structBody(lines []string, start int) (string, int) {
	var b strings.Builder
	for i := start + 1; i < len(lines); i++ {
		if strings.HasPrefix(lines[i], "}") {
			return b.String(), i
		}
		b.WriteString(lines[i])
		b.WriteString("\n")
	}
	return b.String(), len(lines) - 1
}

// embeddedScreenBase reports whether the struct embeds a screen-like base
// type (a bare, possibly qualified identifier on its own line).
func embeddedScreenBase(body string) bool {
	for _, line := range strings.Split(body, "\n") {
		f := strings.Fields(strings.TrimSpace(line))
		if len(f) != 1 {
			continue
		}
		token := f[0]
		if idx := strings.LastIndexByte(token, '.'); idx >= 0 {
			token = token[idx+1:]
		}
		if screenWords.MatchString(token) {
			return true
		}
	}
	return false
}

// docComment gathers the // comment block immediately above line i. The
// first line becomes the title, the rest the description.
func docComment(lines []string, i int) (string, string) {
	var block []string
	for j := i - 1; j >= 0; j-- {
		t := strings.TrimSpace(lines[j])
		if !strings.HasPrefix(t, "//") {
			break
		}
		block = append([]string{strings.TrimSpace(strings.TrimPrefix(t, "//"))}, block...)
	}
	if len(block) == 0 {
		return "", ""
	}
	return block[0], strings.Join(block[1:], " ")
}

// IsIndexingNeeded applies the staleness policy: reindex when the metadata
// document is missing or the collection empty; on a development branch,
// also when the source holds more screens than the stored count or the
// index is older than an hour.
func (ix *Indexer) IsIndexingNeeded(ctx context.Context) bool {
	branchName := ix.Branch.Current()
	token := branch.Sanitize(branchName)
	coll := models.ScreensIndexCollection(token)

	meta := ix.Store.GetDocument(ctx, coll, models.IndexMetaDocID)
	if meta == nil {
		return true
	}
	if docs := ix.Store.GetCollection(ctx, coll); len(docs) == 0 {
		return true
	}
	if !branch.IsDevelopment(branchName) {
		return false
	}

	var stored models.IndexMeta
	if err := store.Decode(meta, &stored); err != nil {
		return true
	}
	if len(ix.Scan()) > stored.ScreenCount {
		return true
	}
	created := time.Unix(stored.CreatedAt, 0)
	return time.Since(created) > staleAfter
}

// Reindex scans the source tree and rewrites the branch's catalog
// documents. As many entries as possible are written even when some fail;
// the metadata document goes last so observers see "no index" rather than
// a partial count.
func (ix *Indexer) Reindex(ctx context.Context) error {
	branchName := ix.Branch.Current()
	token := branch.Sanitize(branchName)
	coll := models.ScreensIndexCollection(token)
	moduleID := models.SelfModuleID(token)

	screens := ix.Scan()
	logger.Log.Info("reindex_started",
		zap.String("branch", branchName),
		zap.Int("screens", len(screens)))

	var firstErr error
	written := 0
	for _, s := range screens {
		doc, err := store.Encode(s)
		if err == nil {
			err = ix.Store.SetDataWithID(ctx, coll, s.ID, doc)
		}
		if err != nil {
			logger.Log.Error("screen_entry_write_failed", zap.String("screen", s.ID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		written++
		telemetry.ScreensIndexed.Inc()
	}

	meta := models.IndexMeta{
		ScreenCount: written,
		CreatedAt:   time.Now().Unix(),
		AppVersion:  ix.AppVersion,
		Branch:      branchName,
	}
	metaDoc, err := store.Encode(meta)
	if err == nil {
		err = ix.Store.SetDataWithID(ctx, coll, models.IndexMetaDocID, metaDoc)
	}
	if err != nil {
		logger.Log.Error("index_meta_write_failed", zap.String("branch", branchName), zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	if err := ix.registerSelf(ctx, branchName, token, moduleID, screens); err != nil && firstErr == nil {
		firstErr = err
	}

	logger.Log.Info("reindex_finished",
		zap.String("branch", branchName),
		zap.Int("written", written))
	return firstErr
}

// registerSelf writes the module catalog entry for the running application
// and mirrors the discovered screens (plus the synthetic dashboard main
// entry) into the module's own screens collection.
func (ix *Indexer) registerSelf(ctx context.Context, branchName, token, moduleID string, screens []models.ScreenEntry) error {
	now := time.Now()
	entry := models.ModuleEntry{
		ID:           moduleID,
		Name:         ix.AppName,
		Description:  fmt.Sprintf("%s on branch %s", ix.AppName, branchName),
		Version:      ix.AppVersion,
		Branch:       branchName,
		Type:         models.ModuleTypeCore,
		IsMaster:     !branch.IsDevelopment(branchName),
		IsMainApp:    true,
		MainScreen:   models.DashboardScreenID,
		ScreensCount: len(screens),
		UpdatedAt:    now.Unix(),
	}
	doc, err := store.Encode(entry)
	if err == nil {
		err = ix.Store.SetDataWithID(ctx, models.ModulesCollection(token), moduleID, doc)
	}
	if err != nil {
		logger.Log.Error("module_register_failed", zap.String("module", moduleID), zap.Error(err))
		return err
	}

	screensColl := models.ModuleScreensCollection(moduleID, token)
	var firstErr error
	dash := models.ScreenEntry{
		ID:            models.DashboardScreenID,
		Name:          "Dashboard",
		Title:         "Dashboard",
		Description:   "Role dashboard with task tiles",
		ModuleID:      moduleID,
		Branch:        branchName,
		FullClassName: "ui.DashboardScreen",
		IndexedAt:     now.UTC().Format(time.RFC3339),
	}
	for _, s := range append([]models.ScreenEntry{dash}, screens...) {
		sdoc, err := store.Encode(s)
		if err == nil {
			err = ix.Store.SetDataWithID(ctx, screensColl, s.ID, sdoc)
		}
		if err != nil {
			logger.Log.Error("module_screen_write_failed", zap.String("screen", s.ID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// EnsureIndexed runs Reindex when the staleness policy asks for it.
func (ix *Indexer) EnsureIndexed(ctx context.Context) error {
	if !ix.IsIndexingNeeded(ctx) {
		logger.Log.Debug("index_fresh", zap.String("branch", ix.Branch.Current()))
		return nil
	}
	return ix.Reindex(ctx)
}
