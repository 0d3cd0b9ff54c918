package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wtas/internal/config"
	"github.com/roach88/wtas/internal/engine"
	"github.com/roach88/wtas/internal/ir"
	"github.com/roach88/wtas/internal/protocol"
	"github.com/roach88/wtas/internal/store"
)

func TestParseControl(t *testing.T) {
	defaults := ir.DefaultTraceDrawOptions()

	tests := []struct {
		args []string
		want protocol.Command
	}{
		{[]string{"play", "route.wtas"}, protocol.PlayFile{Name: "route.wtas"}},
		{[]string{"stop"}, protocol.Stop{}},
		{[]string{"advance"}, protocol.AdvanceFrame{}},
		{[]string{"skip", "3600"}, protocol.SkipTo{Tick: 3600}},
		{[]string{"pause", "0"}, protocol.PauseAt{Tick: 0}},
		{[]string{"teleport", "12"}, protocol.TeleportToTick{Tick: 12}},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			got, err := parseControl(tt.args, defaults)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := parseControl([]string{"trace", "between:10:20"}, defaults)
	require.NoError(t, err)
	opts := got.(protocol.SetTraceOptions).Options
	assert.Equal(t, ir.Between(10, 20), opts.Interval)
	assert.Equal(t, defaults.SphereRadius, opts.SphereRadius, "other options keep their configured values")
}

func TestParseControl_Rejects(t *testing.T) {
	for _, args := range [][]string{
		{"play"},
		{"stop", "now"},
		{"skip"},
		{"skip", "-1"},
		{"pause", "soon"},
		{"trace", "everything"},
		{"rewind"},
	} {
		_, err := parseControl(args, ir.DefaultTraceDrawOptions())
		assert.Error(t, err, strings.Join(args, " "))
	}
}

func TestControl_NoEngine(t *testing.T) {
	_, err := execute(t, "control", "--addr", "127.0.0.1:1", "--timeout", "200ms", "stop")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "control", "rewind")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

// startServe runs the serve command on an ephemeral port until the test
// ends and returns its address.
func startServe(t *testing.T, scripts map[string]string) (addr, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	for name, src := range scripts {
		writeFile(t, dir, name, src)
	}
	dbPath = filepath.Join(dir, "runs.db")

	ready := make(chan string, 1)
	opts := &ServeOptions{
		RootOptions: &RootOptions{Format: "text", Config: config.Default()},
		Listen:      "127.0.0.1:0",
		Database:    dbPath,
		ScriptsDir:  dir,
		RunIDs:      engine.NewFixedGenerator("run-1", "run-2", "run-3"),
		ready:       ready,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	cmd.SetOut(&bytes.Buffer{})

	done := make(chan error, 1)
	go func() { done <- runServe(opts, cmd) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("serve did not stop")
		}
	})

	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not start")
	}
	return addr, dbPath
}

func TestServe_PlaysAndRecords(t *testing.T) {
	addr, dbPath := startServe(t, map[string]string{"walk.wtas": walkScript})

	client, err := protocol.Dial(context.Background(), addr)
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Send(protocol.PlayFile{Name: "walk.wtas"}))

	var states []ir.PlaybackState
	deadline := time.After(5 * time.Second)
	for len(states) == 0 || states[len(states)-1] != ir.Stopped || len(states) < 2 {
		select {
		case ev, ok := <-client.Events():
			require.True(t, ok, "connection closed early: %v", client.Err())
			if s, ok := ev.(protocol.PlaybackStateChanged); ok {
				if len(states) == 0 && s.State == ir.Stopped {
					continue
				}
				if len(states) == 0 || states[len(states)-1] != s.State {
					states = append(states, s.State)
				}
			}
		case <-deadline:
			t.Fatalf("run did not finish, states so far: %v", states)
		}
	}
	assert.Equal(t, []ir.PlaybackState{ir.Playing, ir.Stopped}, states)

	require.Eventually(t, func() bool {
		st, err := store.Open(dbPath)
		if err != nil {
			return false
		}
		defer st.Close()
		run, err := st.ReadRun(context.Background(), "run-1")
		return err == nil && run.Reason == "finished"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestControl_WatchShowsStateChanges(t *testing.T) {
	addr, _ := startServe(t, map[string]string{"walk.wtas": walkScript})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"control", "--addr", addr, "--watch", "play", "walk.wtas"})
	require.NoError(t, cmd.ExecuteContext(ctx))

	text := out.String()
	playing := strings.Index(text, "playing")
	require.GreaterOrEqual(t, playing, 0, text)
	assert.Greater(t, strings.LastIndex(text, "stopped"), playing, text)
}
