package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"shelfnav/internal/testutil"
)

func writeTestConfig(t *testing.T, baseURL string) string {
	t.Helper()
	d := t.TempDir()
	cfgPath := filepath.Join(d, "config.yaml")
	cfg := "version: 1\n" +
		"server:\n" +
		"  base_url: " + baseURL + "\n" +
		"  library_prefix: /rpc/cat/scan/epub\n" +
		"  login_path: /rpc/login\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func TestRun_Dispatch(t *testing.T) {
	ctx := context.Background()
	if err := run(ctx, []string{"version"}); err != nil {
		t.Fatalf("version: %v", err)
	}
	if err := run(ctx, []string{"help"}); err != nil {
		t.Fatalf("help: %v", err)
	}
	if err := run(ctx, nil); err == nil {
		t.Fatal("no command must error")
	}
	if err := run(ctx, []string{"frobnicate"}); err == nil {
		t.Fatal("unknown command must error")
	}
}

func TestHandleConfig(t *testing.T) {
	cfgPath := writeTestConfig(t, "http://localhost:1")
	if err := handleConfig([]string{"validate", "-config", cfgPath}); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := handleConfig([]string{"print", "-config", cfgPath}); err != nil {
		t.Fatalf("print: %v", err)
	}
	if err := handleConfig([]string{"validate", "-config", filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Fatal("missing config must error")
	}
}

func TestHandleList_NoNetworkBeyondFixture(t *testing.T) {
	ls := testutil.NewLibraryServer(t)
	ls.Listings["/rpc/cat/scan/epub/index.html"] = `<body><ul>
<li><a href="shelf/">shelf</a></li>
<li><a href="[A] One.epub" bookdate="200">[A] One</a></li>
</ul></body>`
	cfgPath := writeTestConfig(t, ls.URL)

	args := []string{"-config", cfgPath, "-sort", "date", "-desc"}
	if err := handleList(context.Background(), args); err != nil {
		t.Fatalf("list failed: %v", err)
	}
}

func TestHandleLogin_RequiresUser(t *testing.T) {
	if err := handleLogin(context.Background(), nil); err == nil {
		t.Fatal("login without -user must error")
	}
}
