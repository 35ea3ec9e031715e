package cli

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeContacts(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewContactsCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func decodeContacts(t *testing.T, buf *bytes.Buffer) ContactsResult {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var res ContactsResult
	require.NoError(t, json.Unmarshal(raw, &res))
	return res
}

func TestContacts_RootsSitOnLimb(t *testing.T) {
	model := writeModel(t, orbitModel)
	buf, err := executeContacts(t, "json", model, "--radius", "8.0")
	require.NoError(t, err)

	res := decodeContacts(t, buf)
	require.NotEmpty(t, res.Contacts)
	for _, c := range res.Contacts {
		assert.InDelta(t, 8.0, math.Hypot(c.X, c.Y), 1e-6, "t=%v", c.Time)
	}
}

func TestContacts_SideFilter(t *testing.T) {
	model := writeModel(t, orbitModel)

	buf, err := executeContacts(t, "json", model, "--radius", "8.0", "--side", "transit")
	require.NoError(t, err)
	transits := decodeContacts(t, buf)
	require.NotEmpty(t, transits.Contacts)
	for _, c := range transits.Contacts {
		assert.True(t, c.Transit)
	}

	buf, err = executeContacts(t, "json", model, "--radius", "8.0", "--side", "both")
	require.NoError(t, err)
	both := decodeContacts(t, buf)
	assert.Greater(t, len(both.Contacts), len(transits.Contacts),
		"both hemispheres carry more contacts than the transit side alone")
}

func TestContacts_FaceOnHasNone(t *testing.T) {
	// Face-on circular-ish orbit: the projected separation never drops
	// near zero, so a small limb radius is never touched. Normal outcome.
	faceOn := `
elements:
  semi_major: 100.0
  ecc: 0.0
  inclination: 0.0
  period: 10.0
`
	model := writeModel(t, faceOn)
	buf, err := executeContacts(t, "text", model, "--radius", "1.0")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "no contacts at L = 1")
}

func TestContacts_InvalidSide(t *testing.T) {
	model := writeModel(t, orbitModel)
	buf, err := executeContacts(t, "text", model, "--radius", "8.0", "--side", "sideways")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeInvalidInput)
}
