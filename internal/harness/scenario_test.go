package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wtas/internal/protocol"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalScenario = `
name: minimal
description: plays one script
scripts:
  a.wtas: "version 0\nstart now\n1>U\n"
steps: 3
commands:
  - at: 0
    type: PlayFile
    data: {name: a.wtas}
`

func TestLoadScenario_Minimal(t *testing.T) {
	s, err := LoadScenario(writeScenario(t, minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, uint32(3), s.Steps)
	require.Len(t, s.Commands, 1)

	cmd, err := s.Commands[0].Command()
	require.NoError(t, err)
	assert.Equal(t, protocol.PlayFile{Name: "a.wtas"}, cmd)
}

func TestLoadScenario_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "unknown field",
			body: minimalScenario + "assertion: []\n",
			want: "failed to parse YAML",
		},
		{
			name: "missing description",
			body: "name: x\nscripts: {a: b}\nsteps: 1\ncommands: [{at: 0, type: Stop}]\n",
			want: "description is required",
		},
		{
			name: "no scripts",
			body: "name: x\ndescription: y\nsteps: 1\ncommands: [{at: 0, type: Stop}]\n",
			want: "scripts or script_files is required",
		},
		{
			name: "zero steps",
			body: "name: x\ndescription: y\nscripts: {a: b}\ncommands: [{at: 0, type: Stop}]\n",
			want: "steps must be positive",
		},
		{
			name: "no commands",
			body: "name: x\ndescription: y\nscripts: {a: b}\nsteps: 1\n",
			want: "commands list is required",
		},
		{
			name: "command past last step",
			body: "name: x\ndescription: y\nscripts: {a: b}\nsteps: 2\ncommands: [{at: 2, type: Stop}]\n",
			want: "at 2 is past the last step 1",
		},
		{
			name: "unknown command",
			body: "name: x\ndescription: y\nscripts: {a: b}\nsteps: 1\ncommands: [{at: 0, type: Rewind}]\n",
			want: "commands[0]",
		},
		{
			name: "input assertion without keys",
			body: minimalScenario + "assertions: [{type: input, tick: 1}]\n",
			want: "input requires tick and keys",
		},
		{
			name: "unknown assertion",
			body: minimalScenario + "assertions: [{type: vibes}]\n",
			want: `unknown assertion type "vibes"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadDir_Empty(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	assert.ErrorContains(t, err, "no scenario files")
}

func TestLoadDir_NamesBadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(minimalScenario), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("name: b\n"), 0o644))

	_, err := LoadDir(dir)
	assert.ErrorContains(t, err, "b.yaml")
}
