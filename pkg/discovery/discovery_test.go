package discovery

import (
	"context"
	"os"
	"os/exec"
	"testing"

	"hangarcore/pkg/branch"
	"hangarcore/pkg/config"
	"hangarcore/pkg/models"
	"hangarcore/pkg/store"
)

// gitRepo builds a throwaway repository checked out on current, with the
// extra branches created but not checked out.
func gitRepo(t *testing.T, current string, others ...string) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@localhost",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@localhost",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init", "-b", current)
	run("commit", "--allow-empty", "-m", "init")
	for _, b := range others {
		run("branch", b)
	}
	return dir
}

func testStore(t *testing.T) *store.Adapter {
	t.Helper()
	p, err := store.OpenPebble(t.TempDir())
	if err != nil {
		t.Fatalf("OpenPebble: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return store.NewAdapter(p)
}

func seedModule(t *testing.T, a *store.Adapter, branchToken, id, name string) {
	t.Helper()
	ctx := context.Background()
	doc, err := store.Encode(models.ModuleEntry{ID: id, Name: name, Type: models.ModuleTypeSatellite})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.SetDataWithID(ctx, models.ModulesCollection(branchToken), id, doc); err != nil {
		t.Fatal(err)
	}
}

func seedScreen(t *testing.T, a *store.Adapter, collection, id, name string) {
	t.Helper()
	ctx := context.Background()
	doc, err := store.Encode(models.ScreenEntry{ID: id, Name: name})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.SetDataWithID(ctx, collection, id, doc); err != nil {
		t.Fatal(err)
	}
}

func TestInstalledModulesCurrentBranchFirst(t *testing.T) {
	ctx := context.Background()
	repo := gitRepo(t, "dev_table", "master")
	a := testStore(t)
	ident := branch.Identity{WorkTree: repo}

	seedModule(t, a, "master", "module_weather", "weather")
	seedModule(t, a, "dev_table", "module_weather", "weather")
	seedModule(t, a, "dev_table", "module_payloads", "payloads")

	d := &Discovery{Agg: &Aggregator{Store: a, Branch: ident}, Branch: ident}
	mods := d.GetInstalledModules(ctx)
	if len(mods) != 3 {
		t.Fatalf("got %d modules: %+v", len(mods), mods)
	}
	// current branch entries lead the catalog
	if mods[0].Branch != "dev_table" || mods[1].Branch != "dev_table" {
		t.Fatalf("current branch not first: %+v", mods)
	}
	if mods[2].Branch != "master" || mods[2].ID != "module_weather" {
		t.Fatalf("older branch entry mangled: %+v", mods[2])
	}
}

func TestInstalledModulesDedupeByID(t *testing.T) {
	ctx := context.Background()
	repo := gitRepo(t, "dev_table", "master")
	a := testStore(t)
	ident := branch.Identity{WorkTree: repo}

	seedModule(t, a, "master", "module_weather", "weather")
	seedModule(t, a, "dev_table", "module_weather", "weather")

	d := &Discovery{Agg: &Aggregator{Store: a, Branch: ident}, Branch: ident, DedupeByID: true}
	mods := d.GetInstalledModules(ctx)
	if len(mods) != 1 {
		t.Fatalf("got %d modules, want 1: %+v", len(mods), mods)
	}
	if mods[0].Branch != "dev_table" {
		t.Fatalf("dedupe kept the wrong branch: %+v", mods[0])
	}
}

func TestBranchFilterSuppressesOtherBranches(t *testing.T) {
	ctx := context.Background()
	repo := gitRepo(t, "dev_table", "master")
	a := testStore(t)
	ident := branch.Identity{WorkTree: repo}

	seedModule(t, a, "master", "module_weather", "weather")
	seedModule(t, a, "dev_table", "module_payloads", "payloads")

	ag := &Aggregator{Store: a, Branch: ident, Mode: config.BranchlessPreferNew}
	if docs := ag.GetCollection(ctx, models.ModulesCollection("master")); len(docs) != 0 {
		t.Fatalf("other-branch catalog not suppressed: %v", docs)
	}
	if docs := ag.GetCollection(ctx, models.ModulesCollection("dev_table")); len(docs) != 1 {
		t.Fatalf("current-branch catalog lost: %v", docs)
	}
	// non-module collections pass through untouched
	seedScreen(t, a, "app_screens_index_master", "s1", "S1")
	if docs := ag.GetCollection(ctx, "app_screens_index_master"); len(docs) != 1 {
		t.Fatalf("unrelated collection filtered: %v", docs)
	}
}

func TestModuleScreensBranchlessFallback(t *testing.T) {
	ctx := context.Background()
	a := testStore(t)
	ident := branch.Identity{}

	legacy := models.ModuleScreensCollection("module_weather", "main")
	branchless := models.ModuleScreensBranchless("module_weather")
	seedScreen(t, a, legacy, "radar", "Radar")
	seedScreen(t, a, branchless, "radar", "Radar")
	seedScreen(t, a, branchless, "forecast", "Forecast")

	cases := []struct {
		mode config.BranchlessMode
		want int
	}{
		{config.BranchlessPreferNew, 2},
		{config.BranchlessPreferOld, 1},
		{config.BranchlessOff, 1},
	}
	for _, c := range cases {
		ag := &Aggregator{Store: a, Branch: ident, Mode: c.mode}
		if docs := ag.ModuleScreens(ctx, "module_weather", "main"); len(docs) != c.want {
			t.Fatalf("mode %s: got %d docs, want %d", c.mode, len(docs), c.want)
		}
	}
}

func TestModuleScreensPreferNewFallsBackToLegacy(t *testing.T) {
	ctx := context.Background()
	a := testStore(t)

	legacy := models.ModuleScreensCollection("module_weather", "main")
	seedScreen(t, a, legacy, "radar", "Radar")

	ag := &Aggregator{Store: a, Mode: config.BranchlessPreferNew}
	docs := ag.ModuleScreens(ctx, "module_weather", "main")
	if len(docs) != 1 || docs[0]["id"] != "radar" {
		t.Fatalf("prefer_new with empty branchless must use legacy: %v", docs)
	}
}

func TestGetModuleScreensTagsBranchesCurrentFirst(t *testing.T) {
	ctx := context.Background()
	repo := gitRepo(t, "dev_table", "master")
	a := testStore(t)
	ident := branch.Identity{WorkTree: repo}

	seedScreen(t, a, models.ModuleScreensCollection("module_weather", "dev_table"), "radar", "Radar")
	seedScreen(t, a, models.ModuleScreensCollection("module_weather", "dev_table"), "forecast", "Forecast")
	seedScreen(t, a, models.ModuleScreensCollection("module_weather", "master"), "radar", "Radar")

	d := &Discovery{Agg: &Aggregator{Store: a, Branch: ident}, Branch: ident}
	screens := d.GetModuleScreens(ctx, "module_weather")
	if len(screens) != 3 {
		t.Fatalf("got %d screens: %+v", len(screens), screens)
	}
	// current branch entries lead, each tagged with its own branch
	if screens[0].Branch != "dev_table" || screens[1].Branch != "dev_table" {
		t.Fatalf("current branch not first: %+v", screens)
	}
	if screens[2].Branch != "master" || screens[2].ID != "radar" {
		t.Fatalf("older branch entry mangled: %+v", screens[2])
	}
	// radar appears once per branch, never twice for the same branch
	perBranch := map[string]int{}
	for _, s := range screens {
		if s.ID == "radar" {
			perBranch[s.Branch]++
		}
	}
	if perBranch["dev_table"] != 1 || perBranch["master"] != 1 {
		t.Fatalf("dedupe by (id, branch) broken: %v", perBranch)
	}
}

func TestGetModuleScreensBranchlessOnly(t *testing.T) {
	ctx := context.Background()
	repo := gitRepo(t, "dev_table", "master")
	a := testStore(t)
	ident := branch.Identity{WorkTree: repo}

	seedScreen(t, a, models.ModuleScreensBranchless("module_weather"), "radar", "Radar")

	d := &Discovery{
		Agg:    &Aggregator{Store: a, Branch: ident, Mode: config.BranchlessPreferNew},
		Branch: ident,
	}
	// The branchless catalog has no branch of its own, so every known
	// branch surfaces the same document tagged as its own.
	screens := d.GetModuleScreens(ctx, "module_weather")
	if len(screens) != 2 {
		t.Fatalf("got %d screens: %+v", len(screens), screens)
	}
	if screens[0].Branch != "dev_table" || screens[0].ID != "radar" {
		t.Fatalf("current branch entry wrong: %+v", screens[0])
	}
	if screens[1].Branch != "master" || screens[1].ID != "radar" {
		t.Fatalf("other branch entry wrong: %+v", screens[1])
	}
}

func TestGetScreenDetails(t *testing.T) {
	ctx := context.Background()
	repo := gitRepo(t, "main")
	a := testStore(t)
	ident := branch.Identity{WorkTree: repo}

	legacy := models.ModuleScreensCollection("module_weather", "main")
	seedScreen(t, a, legacy, "radar", "Radar")

	d := &Discovery{Agg: &Aggregator{Store: a, Branch: ident}, Branch: ident}
	entry, ok := d.GetScreenDetails(ctx, "module_weather", "radar", "")
	if !ok || entry.Name != "Radar" || entry.Branch != "main" {
		t.Fatalf("got %+v ok=%v", entry, ok)
	}
	if _, ok := d.GetScreenDetails(ctx, "module_weather", "missing", ""); ok {
		t.Fatal("missing screen resolved")
	}
}

type testNav struct {
	routes []string
	params []map[string]any
}

func (n *testNav) RouteTo(screenID string) { n.routes = append(n.routes, screenID) }
func (n *testNav) DispatchParams(p map[string]any) error {
	n.params = append(n.params, p)
	return nil
}

func TestNavigateToModuleScreen(t *testing.T) {
	ctx := context.Background()
	repo := gitRepo(t, "main")
	a := testStore(t)
	ident := branch.Identity{WorkTree: repo}

	legacy := models.ModuleScreensCollection("module_weather", "main")
	seedScreen(t, a, legacy, "radar", "Radar")

	d := &Discovery{Agg: &Aggregator{Store: a, Branch: ident}, Branch: ident}
	nav := &testNav{}
	if err := d.NavigateToModuleScreen(ctx, nav, "module_weather", "radar", map[string]any{"zoom": 3}); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if len(nav.routes) != 1 || nav.routes[0] != "radar" {
		t.Fatalf("routes = %v", nav.routes)
	}
	if len(nav.params) != 1 {
		t.Fatalf("params = %v", nav.params)
	}
	if err := d.NavigateToModuleScreen(ctx, nav, "module_weather", "missing", nil); err == nil {
		t.Fatal("expected error for unknown screen")
	}
}
