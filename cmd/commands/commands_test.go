package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/netreconcile/internal/approval"
	"github.com/yourusername/netreconcile/internal/models"
)

type fakeNetBox struct {
	mu      sync.Mutex
	patches []map[string]any
}

func (f *fakeNetBox) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/dcim/interfaces/":
			fmt.Fprint(w, `{"count": 1, "next": null, "results": [
				{"id": 42, "name": "Gi0/1", "device": {"name": "R1"}, "enabled": true, "mtu": 1500}]}`)
		case r.Method == http.MethodPatch && r.URL.Path == "/api/dcim/interfaces/42/":
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.mu.Lock()
			f.patches = append(f.patches, body)
			f.mu.Unlock()
			fmt.Fprint(w, `{"id": 42}`)
		default:
			http.NotFound(w, r)
		}
	}
}

func writeFixture(t *testing.T, netboxURL, redisAddr string) string {
	t.Helper()
	dir := t.TempDir()
	snap := filepath.Join(dir, "snapshots")
	require.NoError(t, os.MkdirAll(filepath.Join(snap, "R1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(snap, "R1", "interface.yaml"), []byte(`
- interface: Gi0/1
  link_status: administratively down
  mtu: 9000
`), 0o600))

	redis := "redis:\n  enabled: false\n"
	if redisAddr != "" {
		redis = fmt.Sprintf("redis:\n  enabled: true\n  addr: %s\n  key_prefix: cmdtest\n", redisAddr)
	}
	cfg := fmt.Sprintf(`log:
  level: error
netbox:
  url: %s
  token: t
engine:
  live_source: snapshot
  workers: 2
snapshot:
  dir: %s
  source: cli
%s`, netboxURL, snap, redis)

	path := filepath.Join(dir, "netreconcile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "netreconcile version dev")

	flagOut, err := run(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, out, flagOut)
}

func TestPolicyCmd(t *testing.T) {
	out, err := run(t, "policy", "--config", writeFixture(t, "http://127.0.0.1:1", ""))
	require.NoError(t, err)
	assert.Contains(t, out, "[interface]")
	assert.Contains(t, out, "auto_correct:     description, mtu")
	assert.Contains(t, out, "vrf=CRITICAL")

	path := filepath.Join(t.TempDir(), "policy.hcl")
	require.NoError(t, os.WriteFile(path, []byte("exclusive = true\n"), 0o600))
	out, err = run(t, "policy", "--file", path, "-o", "json")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, true, decoded["exclusive"])
}

func TestCompareCmd(t *testing.T) {
	nb := &fakeNetBox{}
	srv := httptest.NewServer(nb.handler(t))
	defer srv.Close()
	cfg := writeFixture(t, srv.URL, "")
	saved := filepath.Join(t.TempDir(), "report.json")

	out, err := run(t, "compare", "--config", cfg, "--devices", "R1", "--types", "interface", "-o", "json", "--save", saved)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, float64(2), decoded["mismatched"])
	assert.FileExists(t, saved)

	out, err = run(t, "reconcile", "--config", cfg, "--report", saved, "--auto-correct")
	require.NoError(t, err)
	assert.Contains(t, out, "[DRY RUN] would update Gi0/1.mtu from 1500 to 9000")
	assert.Contains(t, out, "pending_approval: 1")
	assert.Empty(t, nb.patches, "dry run never writes")

	_, err = run(t, "compare", "--config", cfg)
	assert.Error(t, err, "--devices is required")

	_, err = run(t, "compare", "--config", cfg, "--devices", "R1", "-o", "xml")
	assert.Error(t, err)
}

func TestReconcileApprovalFlow(t *testing.T) {
	nb := &fakeNetBox{}
	srv := httptest.NewServer(nb.handler(t))
	defer srv.Close()
	mr := miniredis.RunT(t)
	cfg := writeFixture(t, srv.URL, mr.Addr())

	args := []string{"reconcile", "--config", cfg, "--devices", "R1", "--types", "interface", "--auto-correct", "--dry-run=false", "-o", "json"}

	out, err := run(t, args...)
	require.NoError(t, err)
	actions := resultActions(t, out)
	assert.Equal(t, []models.ReconcileAction{models.ActionPendingApproval, models.ActionAutoCorrected}, actions)
	require.Len(t, nb.patches, 1)
	assert.Equal(t, map[string]any{"mtu": float64(9000)}, nb.patches[0])

	out, err = run(t, "approvals", "list", "--config", cfg, "-o", "json")
	require.NoError(t, err)
	var pending []approval.Pending
	require.NoError(t, json.Unmarshal([]byte(out), &pending))
	require.Len(t, pending, 1)
	key := pending[0].Key
	assert.Equal(t, "interface|R1|Gi0/1.enabled|false", key)

	out, err = run(t, "approvals", "approve", key, "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "approved "+key)

	_, err = run(t, "approvals", "approve", key, "--config", cfg)
	assert.Error(t, err, "already decided")

	out, err = run(t, args...)
	require.NoError(t, err)
	assert.Equal(t, []models.ReconcileAction{models.ActionApproved, models.ActionAutoCorrected}, resultActions(t, out))
	require.Len(t, nb.patches, 3)
	assert.Equal(t, map[string]any{"enabled": false}, nb.patches[1])
}

func TestReconcileCmd_Interactive(t *testing.T) {
	nb := &fakeNetBox{}
	srv := httptest.NewServer(nb.handler(t))
	defer srv.Close()
	cfg := writeFixture(t, srv.URL, "")

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader("n\n"))
	root.SetArgs([]string{"reconcile", "--config", cfg, "--devices", "R1", "--types", "interface", "--interactive", "-o", "json"})
	require.NoError(t, root.Execute())

	assert.Equal(t, []models.ReconcileAction{models.ActionRejected, models.ActionReportOnly}, resultActions(t, out.String()))
}

func TestReconcileCmd_RequiresInput(t *testing.T) {
	_, err := run(t, "reconcile", "--config", writeFixture(t, "http://127.0.0.1:1", ""))
	assert.Error(t, err)
}

func resultActions(t *testing.T, out string) []models.ReconcileAction {
	t.Helper()
	var decoded struct {
		Results []models.ReconcileResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	actions := make([]models.ReconcileAction, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		actions = append(actions, r.Action)
	}
	return actions
}
