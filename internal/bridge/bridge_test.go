package bridge

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeRunner(out string, err error) Runner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(out), err
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		out  string
		ok   bool
	}{
		{"plain", `{"ok":true}`, true},
		{"preamble", "Config warnings:\n- plugin foo disabled\n{\"ok\":true}\n", true},
		{"no brace", "gateway not running", false},
		{"empty", "", false},
		{"truncated", `{"ok":tr`, false},
		{"trailing noise", `{"ok":true} done`, false},
		{"array only", `[1,2,3]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Extract([]byte(tt.out))
			if tt.ok {
				require.NotNil(t, snap)
				assert.True(t, snap.Bool("ok"))
			} else {
				assert.Nil(t, snap)
			}
		})
	}
}

func TestInvoke_PassesArgs(t *testing.T) {
	var gotName string
	var gotArgs []string
	b := New("openclaw", WithRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName = name
		gotArgs = args
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return []byte(`{"version":"1.0"}`), nil
	}))

	snap := b.Invoke(context.Background(), time.Second, "status", "--json")
	require.NotNil(t, snap)
	assert.Equal(t, "1.0", snap.String("version", ""))
	assert.Equal(t, "openclaw", gotName)
	assert.Equal(t, []string{"status", "--json"}, gotArgs)
}

func TestInvoke_FailureIsNil(t *testing.T) {
	b := New("openclaw", WithRunner(fakeRunner(`{"partial":true}`, errors.New("exit status 1"))))
	assert.Nil(t, b.Invoke(context.Background(), time.Second, "status"))

	b = New("openclaw", WithRunner(fakeRunner("not json", nil)))
	assert.Nil(t, b.Invoke(context.Background(), time.Second, "status"))
}

func TestInvoke_RealProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	b := New("sh")
	snap := b.Invoke(context.Background(), 5*time.Second, "-c", `echo "starting..."; echo '{"gateway":{"reachable":true}}'; echo oops >&2`)
	require.NotNil(t, snap)
	assert.True(t, snap.Bool("gateway.reachable"))

	assert.Nil(t, b.Invoke(context.Background(), 5*time.Second, "-c", `echo '{"ok":true}'; exit 3`))
}

func TestInvoke_Timeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sleep")
	}
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	b := New("sleep")
	start := time.Now()
	assert.Nil(t, b.Invoke(context.Background(), 100*time.Millisecond, "5"))
	assert.Less(t, time.Since(start), 4*time.Second)
}
