package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gyaneshwarpardhi/slcreator/internal/action"
	"github.com/gyaneshwarpardhi/slcreator/internal/graph"
	"github.com/gyaneshwarpardhi/slcreator/internal/sociallink"
	"github.com/gyaneshwarpardhi/slcreator/internal/store"
)

type cliTestEnv struct {
	dataDir    string
	configPath string
	store      *store.FileStore
}

// setupCLITestEnv seeds a Lovers link whose level 1 cutscene is
//
//	0 Info "Lunch break" → 1
//	1 Speak Yukari "Want to eat together?" → 2, 3
//	2 Speak Me "Sure!" (+3 Lovers) → 4
//	3 Speak Me "Not today."
//	4 Speak Yukari "Great!"
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	base := t.TempDir()
	dataDir := filepath.Join(base, "data")
	configPath := filepath.Join(base, "slcreator.yaml")
	content := fmt.Sprintf("data_dir: %q\nlog:\n  level: warn\n", dataDir)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	st, err := store.NewFileStore(dataDir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	link := sociallink.New("Lovers")
	link.Pseudoname = "Yukari"
	g := link.StartLink(1, 0)
	sure := action.NewSpeak("Me", "Sure!")
	sure.PutPoints("Lovers", 3)
	for i, p := range []action.Payload{
		action.NewInfo("Lunch break"),
		action.NewSpeak("Yukari", "Want to eat together?"),
		sure,
		action.NewSpeak("Me", "Not today."),
		action.NewSpeak("Yukari", "Great!"),
	} {
		if err := g.SetItem(p, i); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range [][2]int{{0, 1}, {1, 2}, {1, 3}, {2, 4}} {
		if err := g.AddRelation(e[0], e[1]); err != nil {
			t.Fatal(err)
		}
	}
	link.SetCutInfo(1, 0, "First meeting")
	if err := link.Save(context.Background(), st); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := st.WriteReferenceList(context.Background(), "places", []string{"Dorm", "Gekkoukan"}); err != nil {
		t.Fatalf("write refs: %v", err)
	}
	return &cliTestEnv{dataDir: dataDir, configPath: configPath, store: st}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestShow(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "show", "Lovers")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Pseudoname: Yukari")
	requireContains(t, out, "First meeting")

	out, _, err = runCLI(t, env, "show", "Moon")
	if err != nil {
		t.Fatalf("show missing link: %v", err)
	}
	requireContains(t, out, "No cutscenes yet")
}

func TestNodesAndFind(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "nodes", "Lovers", "1", "0")
	if err != nil {
		t.Fatalf("nodes: %v", err)
	}
	requireContains(t, out, "Yukari: Want to eat together?")
	requireContains(t, out, "2, 3")

	out, _, err = runCLI(t, env, "find", "Lovers", "1", "0", `points.Lovers > 0`)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	requireContains(t, out, "Me: Sure!")
	if strings.Contains(out, "Not today.") {
		t.Errorf("find returned a node without points:\n%s", out)
	}

	out, _, err = runCLI(t, env, "find", "Lovers", "1", "0", `kind == "camera"`)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	requireContains(t, out, "No matching nodes")

	if _, _, err := runCLI(t, env, "find", "Lovers", "1", "0", `kind ==`); err == nil {
		t.Error("expected a query error")
	}
	if _, _, err := runCLI(t, env, "nodes", "Lovers", "2", "0"); err == nil {
		t.Error("expected an error for a missing cutscene")
	}
	if _, _, err := runCLI(t, env, "nodes", "Lovers", "11", "0"); err == nil {
		t.Error("expected an error for an invalid level")
	}
}

func TestSimulate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "simulate", "Lovers", "1", "0")
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	requireContains(t, out, "Node 1 offers a choice")

	out, _, err = runCLI(t, env, "simulate", "Lovers", "1", "0", "--pick", "0")
	if err != nil {
		t.Fatalf("simulate --pick: %v", err)
	}
	requireContains(t, out, "> [2] Me: Sure!")
	requireContains(t, out, "[4] Yukari: Great!")
	requireContains(t, out, "Lovers")
}

func TestSubtreeAndDelete(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "subtree", "Lovers", "1", "0", "2")
	if err != nil {
		t.Fatalf("subtree: %v", err)
	}
	requireContains(t, out, "removes: 2, 4")

	out, _, err = runCLI(t, env, "delete", "Lovers", "1", "0", "2")
	if err != nil {
		t.Fatalf("delete preview: %v", err)
	}
	requireContains(t, out, "Would delete: 2, 4")

	out, _, err = runCLI(t, env, "delete", "Lovers", "1", "0", "2", "--yes")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	requireContains(t, out, "Deleted: 2, 4")

	link, err := sociallink.Load(context.Background(), env.store, "Lovers")
	if err != nil {
		t.Fatal(err)
	}
	g, _ := link.Cutscene(1, 0)
	if g.Size() != 3 {
		t.Errorf("size after delete = %d, want 3", g.Size())
	}
	if succ, _ := g.Relations(1); len(succ) != 1 {
		t.Errorf("relations of 1 = %v, want one left", succ)
	}
	if _, err := g.Item(graph.Root); err != nil {
		t.Errorf("root lost: %v", err)
	}
}

func TestRefs(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "refs", "places")
	if err != nil {
		t.Fatalf("refs: %v", err)
	}
	requireContains(t, out, "Gekkoukan")

	if _, _, err := runCLI(t, env, "refs", "music"); err == nil {
		t.Error("expected an error for a missing list")
	}
}

func TestBadConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("store:\n  backend: mongo\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := runCLI(t, env, "show", "Lovers")
	if err == nil || !strings.Contains(err.Error(), "store.backend") {
		t.Errorf("err = %v, want a store.backend validation error", err)
	}
}
